package lift

import (
	"github.com/blocksecteam/hookscan/hookerr"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/yulast"
)

// halfCtx is the per-half (creation or runtime) lowering context shared
// across every function built from that half: it holds the AST for each
// declared-but-not-yet-built function, plus in-progress bookkeeping so
// mutually or self-recursive calls don't re-enter a function's body
// lowering twice.
type halfCtx struct {
	contract    *ir.Contract
	runtimeHalf bool
	asts        map[string]*yulast.FunctionDefinition
	building    map[string]bool
	err         error
}

// ensureFunctionBuilt lowers name's body on first reference, matching
// Yul's lazy-visibility rule (spec.md §4.1 item 2). It returns nil for
// any name that was never declared in this half, letting the caller fall
// back to a generic Yul helper call. A failure while lowering that body
// is latched onto h.err rather than returned here, since this is called
// from deep inside expression lowering with no error path of its own;
// callers check h.err immediately afterward.
func (h *halfCtx) ensureFunctionBuilt(name string) *ir.Function {
	fn := h.contract.FunctionByName(name, h.runtimeHalf)
	if fn == nil {
		return nil
	}
	if h.building[name] || fn.Entry != nil {
		return fn
	}
	fd, ok := h.asts[name]
	if !ok {
		return fn
	}
	h.building[name] = true
	if err := buildFunctionBody(h, fn, fd); err != nil && h.err == nil {
		h.err = err
	}
	delete(h.building, name)
	return fn
}

// Lift turns a parsed Yul object into a fully wired *ir.Contract
// (spec.md §4.1). obj must be the outermost object; its first child
// named "<name>_deployed" is lowered as the runtime half, everything
// else is recorded as an auxiliary contract name.
func Lift(obj *yulast.Object, file string) (*ir.Contract, error) {
	if obj == nil {
		return nil, hookerr.New(hookerr.LiftError, "nil top-level object")
	}

	contract := ir.NewContract(file, obj.Name)

	deployedName := obj.Name + "_deployed"
	var runtimeObj *yulast.Object
	for _, child := range obj.Objects {
		if child.Name == deployedName && runtimeObj == nil {
			runtimeObj = child
		} else {
			contract.AuxContracts = append(contract.AuxContracts, child.Name)
		}
	}
	if runtimeObj == nil {
		return nil, hookerr.New(hookerr.LiftError, "no runtime object named "+deployedName)
	}

	creationFn := ir.NewFunction(contract.Arena, "__creation", ir.FuncCreation)
	contract.Creation = creationFn
	if err := liftHalf(contract, creationFn, obj.Code, false); err != nil {
		return nil, err
	}

	runtimeFn := ir.NewFunction(contract.Arena, "__runtime", ir.FuncRuntime)
	runtimeFn.IsRuntime = true
	contract.Runtime = runtimeFn
	if err := liftHalf(contract, runtimeFn, runtimeObj.Code, true); err != nil {
		return nil, err
	}

	discoverDispatcher(contract)

	return contract, nil
}

// liftHalf pre-scans every function declaration reachable from code
// (declaration pass), builds the half's synthetic entry function body
// (topFn), then forces every declared function that the entry body
// didn't already reach lazily to be built too, so helper functions that
// are only called from other helpers still get lowered.
func liftHalf(contract *ir.Contract, topFn *ir.Function, code *yulast.Block, runtimeHalf bool) error {
	h := &halfCtx{
		contract:    contract,
		runtimeHalf: runtimeHalf,
		asts:        make(map[string]*yulast.FunctionDefinition),
		building:    make(map[string]bool),
	}

	collectFunctionDefs(code, h.asts)
	for name, fd := range h.asts {
		typ := ir.InferFunctionType(name)
		fn := ir.NewFunction(contract.Arena, name, typ)
		fn.ReturnNames = fd.Returns
		fn.IsRuntime = runtimeHalf
		if runtimeHalf {
			contract.RuntimeFuncs[name] = fn
		} else {
			contract.CreationFuncs[name] = fn
		}
	}

	if err := buildTopLevelBody(h, topFn, code); err != nil {
		return err
	}
	if h.err != nil {
		return h.err
	}

	for name := range h.asts {
		h.ensureFunctionBuilt(name)
		if h.err != nil {
			return h.err
		}
	}

	return nil
}

func collectFunctionDefs(blk *yulast.Block, out map[string]*yulast.FunctionDefinition) {
	if blk == nil {
		return
	}
	for _, stmt := range blk.Statements {
		switch s := stmt.(type) {
		case *yulast.FunctionDefinition:
			out[s.Name] = s
			collectFunctionDefs(s.Body, out)
		case *yulast.If:
			collectFunctionDefs(s.Body, out)
		case *yulast.Switch:
			for _, c := range s.Cases {
				collectFunctionDefs(c.Body, out)
			}
			if s.Default != nil {
				collectFunctionDefs(s.Default.Body, out)
			}
		case *yulast.ForLoop:
			collectFunctionDefs(s.Init, out)
			collectFunctionDefs(s.Post, out)
			collectFunctionDefs(s.Body, out)
		}
	}
}

// buildTopLevelBody lowers a half's outer code block into topFn's entry
// block. Unlike a named function, the creation/runtime halves have no
// declared return names; falling off the end without an explicit
// stop/return/revert is lowered as an implicit STOP (spec.md §4.1: every
// block ends in exactly one terminator).
func buildTopLevelBody(h *halfCtx, topFn *ir.Function, code *yulast.Block) error {
	b := newBuilder(h, topFn)
	entry := b.newBlock("entry")
	b.currentBlock = entry
	b.sealBlock(entry)

	if err := b.lowerBlockStmts(code); err != nil {
		return err
	}
	if h.err != nil {
		return h.err
	}
	if !b.terminated() {
		b.currentBlock.Append(ir.NewEVMInst(b.arena(), ir.OpSTOP, nil))
		b.currentBlock.Append(ir.NewUnreachableInst(b.arena()))
	}
	return nil
}

func buildFunctionBody(h *halfCtx, fn *ir.Function, fd *yulast.FunctionDefinition) error {
	b := newBuilder(h, fn)
	entry := b.newBlock("entry")
	b.currentBlock = entry

	for _, p := range fd.Params {
		arg := fn.AddArgument(b.arena(), p)
		b.writeVariable(entry, p, arg)
	}
	zero := ir.NewIntConstant(b.arena(), "0", 0)
	for _, name := range fd.Returns {
		b.writeVariable(entry, name, zero)
	}
	b.sealBlock(entry)

	if err := b.lowerBlockStmts(fd.Body); err != nil {
		return err
	}
	if h.err != nil {
		return h.err
	}
	if !b.terminated() {
		vals := make([]ir.Value, len(fd.Returns))
		for i, name := range fd.Returns {
			vals[i] = b.readVariable(b.currentBlock, name)
		}
		b.currentBlock.Append(ir.NewReturnInst(b.arena(), vals))
	}
	return nil
}

// discoverDispatcher implements spec.md §4.1 item 11: the runtime half's
// top-level switch has its case literals (selectors) mapped to the
// external function reached through each case block's trivial chain of
// a single unconditional branch to a single call. A conditional branch
// encountered along that chain means a library layout, which is outside
// this scanner's scope and is simply left undispatched rather than
// treated as fatal -- hookscan only targets single-contract hooks.
func discoverDispatcher(contract *ir.Contract) {
	entry := contract.Runtime.Entry
	if entry == nil {
		return
	}
	sw := findSwitch(entry)
	if sw == nil {
		return
	}
	for _, c := range sw.Cases {
		lit, ok := c.Value.(*ir.Constant)
		if !ok || lit.Kind != ir.ConstInt {
			continue
		}
		if fn := chaseDispatchCase(c.Block); fn != nil {
			sel := uint32(lit.Int)
			contract.Dispatcher[sel] = fn
			fn.Selector = &sel
		}
	}
}

// findSwitch walks a block's successor chain looking for the first
// SwitchInst terminator, following single-successor unconditional
// branches only (the dispatcher selector switch sits at the end of a
// short straight-line calldata-size/selector-load prologue).
func findSwitch(bb *ir.BasicBlock) *ir.SwitchInst {
	seen := make(map[*ir.BasicBlock]bool)
	for bb != nil && !seen[bb] {
		seen[bb] = true
		term := bb.Terminator()
		if sw, ok := term.(*ir.SwitchInst); ok {
			return sw
		}
		br, ok := term.(*ir.BranchInst)
		if !ok || !br.Unconditional() {
			return nil
		}
		bb = br.True
	}
	return nil
}

// chaseDispatchCase follows a case block's trivial chain of
// unconditional branches to the single CallInst it ends in, returning
// the called function if and only if it is EXTERNAL.
func chaseDispatchCase(bb *ir.BasicBlock) *ir.Function {
	seen := make(map[*ir.BasicBlock]bool)
	for bb != nil && !seen[bb] {
		seen[bb] = true
		var call *ir.CallInst
		for _, inst := range bb.Instructions {
			if c, ok := inst.(*ir.CallInst); ok {
				if call != nil {
					return nil // more than one call: not a trivial chain
				}
				call = c
			}
		}
		term := bb.Terminator()
		if br, ok := term.(*ir.BranchInst); ok && br.Unconditional() {
			if call != nil {
				return nil // a call followed by further control flow isn't trivial
			}
			bb = br.True
			continue
		}
		if call != nil && call.Callee != nil && call.Callee.Type == ir.FuncExternal {
			return call.Callee
		}
		return nil
	}
	return nil
}
