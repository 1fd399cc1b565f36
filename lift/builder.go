// Package lift turns a parsed Yul object into the typed SSA Contract the
// rest of the scanner operates on (spec.md §4.1). It never re-parses Yul
// text: the AST is handed to it fully formed by the external
// lexer/parser (package yulast), and the output is a fully wired
// *ir.Contract with phi nodes at every control-flow join.
package lift

import (
	"github.com/blocksecteam/hookscan/hookerr"
	"github.com/blocksecteam/hookscan/ir"
)

// loopCtx tracks the blocks a break/continue statement must jump to, and
// enough state to recognize the degenerate "if cond { break }" shapes
// that promote a block to loop_compare / do_while_compare.
type loopCtx struct {
	header, continueBlock, breakBlock *ir.BasicBlock
	condAlwaysTrue                    bool
	breakIfCount                      int
	firstBreakIf                      *ir.BasicBlock
	secondBreakIf                     *ir.BasicBlock
}

// builder lowers a single ir.Function body using Braun/Buchwald SSA
// construction: variable definitions are tracked per block, joins whose
// predecessor set isn't known yet get an incomplete phi that is filled
// in once the block is sealed.
type builder struct {
	half *halfCtx
	fn   *ir.Function

	currentBlock     *ir.BasicBlock
	currentLoopEntry *ir.BasicBlock
	loops            []*loopCtx

	defs           map[*ir.BasicBlock]map[string]ir.Value
	incompletePhis map[*ir.BasicBlock]map[string]*ir.PhiInst
	sealed         map[*ir.BasicBlock]bool

	blockSeq int
}

func newBuilder(half *halfCtx, fn *ir.Function) *builder {
	return &builder{
		half:           half,
		fn:             fn,
		defs:           make(map[*ir.BasicBlock]map[string]ir.Value),
		incompletePhis: make(map[*ir.BasicBlock]map[string]*ir.PhiInst),
		sealed:         make(map[*ir.BasicBlock]bool),
	}
}

func (b *builder) arena() *ir.Arena { return b.half.contract.Arena }

func (b *builder) newBlock(label string) *ir.BasicBlock {
	b.blockSeq++
	bb := ir.NewBasicBlock(b.arena(), b.fn, label)
	b.fn.AddBlock(bb)
	return bb
}

func (b *builder) writeVariable(bb *ir.BasicBlock, name string, v ir.Value) {
	m := b.defs[bb]
	if m == nil {
		m = make(map[string]ir.Value)
		b.defs[bb] = m
	}
	m[name] = v
}

func (b *builder) readVariable(bb *ir.BasicBlock, name string) ir.Value {
	if m, ok := b.defs[bb]; ok {
		if v, ok := m[name]; ok {
			return v
		}
	}
	return b.readVariableRecursive(bb, name)
}

// readVariableRecursive implements the three cases of Braun's algorithm:
// an unsealed block gets a placeholder phi completed later at sealBlock,
// a single-predecessor block just forwards the read, and a sealed
// multi-predecessor block gets a phi whose operands are filled in
// immediately (writing the phi into defs before recursing breaks cycles
// through loop back-edges).
func (b *builder) readVariableRecursive(bb *ir.BasicBlock, name string) ir.Value {
	var val ir.Value
	switch {
	case !b.sealed[bb]:
		phi := ir.NewPhiInst(b.arena())
		bb.PrependPhi(phi)
		m := b.incompletePhis[bb]
		if m == nil {
			m = make(map[string]*ir.PhiInst)
			b.incompletePhis[bb] = m
		}
		m[name] = phi
		val = phi
	case len(bb.Predecessors) == 1:
		val = b.readVariable(bb.Predecessors[0], name)
	default:
		phi := ir.NewPhiInst(b.arena())
		bb.PrependPhi(phi)
		b.writeVariable(bb, name, phi)
		val = b.addPhiOperands(name, phi, bb)
	}
	b.writeVariable(bb, name, val)
	return val
}

func (b *builder) addPhiOperands(name string, phi *ir.PhiInst, bb *ir.BasicBlock) ir.Value {
	for _, pred := range bb.Predecessors {
		phi.AddIncoming(pred, b.readVariable(pred, name))
	}
	return trivialValue(phi)
}

// trivialValue reports the collapsed value of a phi whose incoming
// values are all the same id (spec.md §4.1 item 12). The phi node itself
// is left in place: downstream path-sensitive value resolution
// (package traversal) reads a phi's per-predecessor value directly, so a
// trivial phi costs nothing beyond the node sitting unused in its block.
func trivialValue(phi *ir.PhiInst) ir.Value {
	if phi.AllSame() {
		return phi.Values[0]
	}
	return phi
}

// sealBlock records that bb's predecessor set is now final, completing
// any phi created while it was still open.
func (b *builder) sealBlock(bb *ir.BasicBlock) {
	if b.sealed[bb] {
		return
	}
	for name, phi := range b.incompletePhis[bb] {
		b.addPhiOperands(name, phi, bb)
	}
	delete(b.incompletePhis, bb)
	b.sealed[bb] = true
}

func (b *builder) pushLoop(ctx *loopCtx) { b.loops = append(b.loops, ctx) }

func (b *builder) popLoop() { b.loops = b.loops[:len(b.loops)-1] }

func (b *builder) loop() *loopCtx {
	if len(b.loops) == 0 {
		return nil
	}
	return b.loops[len(b.loops)-1]
}

// terminated reports whether the current block already has a terminator,
// meaning any further statements in the enclosing Yul block are dead.
func (b *builder) terminated() bool {
	return b.currentBlock.Terminator() != nil
}

func (b *builder) fail(kind hookerr.Kind, msg string) error {
	return hookerr.New(kind, b.fn.Name+": "+msg)
}
