package lift

import (
	"github.com/blocksecteam/hookscan/hookerr"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/yulast"
)

// lowerBlockStmts lowers a Yul block's statements into the builder's
// current block, stopping early once a terminator has been appended
// (break/continue/leave/return make everything after them dead code).
func (b *builder) lowerBlockStmts(blk *yulast.Block) error {
	if blk == nil {
		return nil
	}
	for _, stmt := range blk.Statements {
		if b.terminated() {
			return nil
		}
		if err := b.lowerStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) lowerStatement(stmt yulast.Statement) error {
	switch s := stmt.(type) {
	case *yulast.FunctionDefinition:
		// Declared in the pre-scan pass, built lazily on first call
		// reference (spec.md §4.1 item 2); nothing to lower here.
		return nil
	case *yulast.VariableDeclaration:
		return b.lowerVariableDeclaration(s)
	case *yulast.Assignment:
		return b.lowerAssignment(s)
	case *yulast.ExpressionStatement:
		_, err := b.lowerCallMulti(s.Call, 0)
		return err
	case *yulast.If:
		return b.lowerIf(s)
	case *yulast.Switch:
		return b.lowerSwitch(s)
	case *yulast.ForLoop:
		return b.lowerForLoop(s)
	case *yulast.BreakStatement:
		return b.lowerBreak()
	case *yulast.ContinueStatement:
		return b.lowerContinue()
	case *yulast.LeaveStatement:
		return b.lowerLeave()
	default:
		return b.fail(hookerr.LiftError, "unrecognized statement shape")
	}
}

func (b *builder) lowerVariableDeclaration(s *yulast.VariableDeclaration) error {
	if s.Value == nil {
		zero := ir.NewIntConstant(b.arena(), "0", 0)
		for _, name := range s.Names {
			b.writeVariable(b.currentBlock, name, zero)
		}
		return nil
	}
	if call, ok := s.Value.(*yulast.FunctionCall); ok && len(s.Names) != 1 {
		vals, err := b.lowerCallMulti(call, len(s.Names))
		if err != nil {
			return err
		}
		if len(vals) != len(s.Names) {
			return b.fail(hookerr.LiftError, "let arity mismatch against call return count")
		}
		for i, name := range s.Names {
			b.writeVariable(b.currentBlock, name, vals[i])
		}
		return nil
	}
	v, err := b.lowerExpr(s.Value)
	if err != nil {
		return err
	}
	b.writeVariable(b.currentBlock, s.Names[0], v)
	return nil
}

func (b *builder) lowerAssignment(s *yulast.Assignment) error {
	if call, ok := s.Value.(*yulast.FunctionCall); ok && len(s.Names) != 1 {
		vals, err := b.lowerCallMulti(call, len(s.Names))
		if err != nil {
			return err
		}
		if len(vals) != len(s.Names) {
			return b.fail(hookerr.LiftError, "assignment arity mismatch against call return count")
		}
		for i, name := range s.Names {
			b.writeVariable(b.currentBlock, name, vals[i])
		}
		return nil
	}
	v, err := b.lowerExpr(s.Value)
	if err != nil {
		return err
	}
	b.writeVariable(b.currentBlock, s.Names[0], v)
	return nil
}

// lowerIf implements spec.md §4.1 item 3: a fresh then-block branches
// back to a join block, which is sealed immediately once both of its
// predecessors (the original block's false edge, and then-block's
// fallthrough) are known.
func (b *builder) lowerIf(s *yulast.If) error {
	cond, err := b.lowerExpr(s.Cond)
	if err != nil {
		return err
	}
	thenBB := b.newBlock("if_then")
	joinBB := b.newBlock("if_join")

	b.currentBlock.Append(ir.NewBranchInst(b.arena(), cond, thenBB, joinBB))
	ir.AddEdge(b.currentBlock, thenBB)
	ir.AddEdge(b.currentBlock, joinBB)
	b.sealBlock(thenBB)

	b.currentBlock = thenBB
	thenBB.SetLastLoopEntry(b.currentLoopEntry)
	if err := b.lowerBlockStmts(s.Body); err != nil {
		return err
	}
	if !b.terminated() {
		b.currentBlock.Append(ir.NewBranchInst(b.arena(), nil, joinBB, nil))
		ir.AddEdge(b.currentBlock, joinBB)
	}
	b.sealBlock(joinBB)

	b.currentBlock = joinBB
	joinBB.SetLastLoopEntry(b.currentLoopEntry)
	return nil
}

func (b *builder) lowerSwitch(s *yulast.Switch) error {
	cond, err := b.lowerExpr(s.Cond)
	if err != nil {
		return err
	}

	caseBlocks := make([]*ir.BasicBlock, len(s.Cases))
	cases := make([]ir.SwitchCase, len(s.Cases))
	for i, c := range s.Cases {
		lit, err := b.lowerLiteral(c.Value)
		if err != nil {
			return err
		}
		cb := b.newBlock("case")
		caseBlocks[i] = cb
		cases[i] = ir.SwitchCase{Value: lit, Block: cb}
	}
	defBB := b.newBlock("default")
	joinBB := b.newBlock("switch_join")

	b.currentBlock.Append(ir.NewSwitchInst(b.arena(), cond, cases, defBB))
	for _, cb := range caseBlocks {
		ir.AddEdge(b.currentBlock, cb)
		b.sealBlock(cb)
	}
	ir.AddEdge(b.currentBlock, defBB)
	b.sealBlock(defBB)

	lowerArm := func(bb *ir.BasicBlock, body *yulast.Block) error {
		b.currentBlock = bb
		bb.SetLastLoopEntry(b.currentLoopEntry)
		if err := b.lowerBlockStmts(body); err != nil {
			return err
		}
		if !b.terminated() {
			b.currentBlock.Append(ir.NewBranchInst(b.arena(), nil, joinBB, nil))
			ir.AddEdge(b.currentBlock, joinBB)
		}
		return nil
	}

	for i, c := range s.Cases {
		if err := lowerArm(caseBlocks[i], c.Body); err != nil {
			return err
		}
	}
	if s.Default != nil {
		if err := lowerArm(defBB, s.Default.Body); err != nil {
			return err
		}
	} else {
		defBB.Append(ir.NewUnreachableInst(b.arena()))
	}

	b.sealBlock(joinBB)
	b.currentBlock = joinBB
	joinBB.SetLastLoopEntry(b.currentLoopEntry)
	return nil
}

// lowerForLoop implements spec.md §4.1 item 5: init runs in the current
// block, the header ("compare") block holds the loop condition and is
// marked is_loop_entry, the body runs with current_loop_entry set to the
// header, and post runs before the back edge. The header is sealed only
// once its two predecessors (init and post) both exist; body/post/exit
// similarly wait on every break/continue edge before sealing.
func (b *builder) lowerForLoop(s *yulast.ForLoop) error {
	if err := b.lowerBlockStmts(s.Init); err != nil {
		return err
	}

	headerBB := b.newBlock("for_header")
	bodyBB := b.newBlock("for_body")
	postBB := b.newBlock("for_post")
	exitBB := b.newBlock("for_exit")

	b.currentBlock.Append(ir.NewBranchInst(b.arena(), nil, headerBB, nil))
	ir.AddEdge(b.currentBlock, headerBB)

	b.currentBlock = headerBB
	cond, err := b.lowerExpr(s.Cond)
	if err != nil {
		return err
	}
	headerBB.Append(ir.NewBranchInst(b.arena(), cond, bodyBB, exitBB))
	ir.AddEdge(headerBB, bodyBB)
	ir.AddEdge(headerBB, exitBB)
	headerBB.IsLoopEntry = true
	condAlwaysTrue := isAlwaysTrue(cond)
	if !condAlwaysTrue {
		headerBB.LoopCompare = headerBB
	}
	b.sealBlock(bodyBB)

	ctx := &loopCtx{header: headerBB, continueBlock: postBB, breakBlock: exitBB, condAlwaysTrue: condAlwaysTrue}
	b.pushLoop(ctx)
	prevLoopEntry := b.currentLoopEntry
	b.currentLoopEntry = headerBB

	b.currentBlock = bodyBB
	bodyBB.SetLastLoopEntry(headerBB)
	if err := b.lowerBlockStmts(s.Body); err != nil {
		return err
	}
	if !b.terminated() {
		b.currentBlock.Append(ir.NewBranchInst(b.arena(), nil, postBB, nil))
		ir.AddEdge(b.currentBlock, postBB)
	}

	b.sealBlock(postBB)
	b.sealBlock(exitBB)
	if condAlwaysTrue && ctx.breakIfCount >= 1 {
		headerBB.DoWhileCompare = ctx.firstBreakIf
	}
	if condAlwaysTrue && ctx.breakIfCount >= 2 {
		headerBB.LoopCompare = ctx.secondBreakIf
	}

	b.currentBlock = postBB
	postBB.SetLastLoopEntry(headerBB)
	if err := b.lowerBlockStmts(s.Post); err != nil {
		return err
	}
	if !b.terminated() {
		b.currentBlock.Append(ir.NewBranchInst(b.arena(), nil, headerBB, nil))
		ir.AddEdge(b.currentBlock, headerBB)
	}
	b.sealBlock(headerBB)

	b.popLoop()
	b.currentLoopEntry = prevLoopEntry

	b.currentBlock = exitBB
	exitBB.SetLastLoopEntry(prevLoopEntry)
	return nil
}

func isAlwaysTrue(v ir.Value) bool {
	c, ok := v.(*ir.Constant)
	if !ok {
		return false
	}
	switch c.Kind {
	case ir.ConstBool:
		return c.Bool
	case ir.ConstInt:
		return c.Int != 0
	default:
		return false
	}
}

func (b *builder) lowerBreak() error {
	ctx := b.loop()
	if ctx == nil {
		return b.fail(hookerr.LiftError, "break outside a loop")
	}
	ctx.breakIfCount++
	if ctx.breakIfCount == 1 {
		ctx.firstBreakIf = b.currentBlock
	} else if ctx.breakIfCount == 2 {
		ctx.secondBreakIf = b.currentBlock
	}
	b.currentBlock.Append(ir.NewBranchInst(b.arena(), nil, ctx.breakBlock, nil))
	ir.AddEdge(b.currentBlock, ctx.breakBlock)
	return nil
}

func (b *builder) lowerContinue() error {
	ctx := b.loop()
	if ctx == nil {
		return b.fail(hookerr.LiftError, "continue outside a loop")
	}
	b.currentBlock.Append(ir.NewBranchInst(b.arena(), nil, ctx.continueBlock, nil))
	ir.AddEdge(b.currentBlock, ctx.continueBlock)
	return nil
}

// lowerLeave implements spec.md §4.1 item 8: leave flows to a per-
// function return of the named return variables' current values.
func (b *builder) lowerLeave() error {
	vals := make([]ir.Value, len(b.fn.ReturnNames))
	for i, name := range b.fn.ReturnNames {
		vals[i] = b.readVariable(b.currentBlock, name)
	}
	b.currentBlock.Append(ir.NewReturnInst(b.arena(), vals))
	return nil
}
