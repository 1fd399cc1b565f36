package ir

// BasicBlock is a straight-line instruction sequence ending in exactly
// one terminator (spec.md §3, §8 "Terminator uniqueness").
type BasicBlock struct {
	valueBase
	Label        string
	Func         *Function
	Instructions []Instruction

	Predecessors []*BasicBlock
	Successors   []*BasicBlock

	// Loop metadata (spec.md §3).
	IsLoopEntry     bool
	LoopCompare     *BasicBlock // the block whose conditional terminator decides loop continuation; nil for infinite/for-true loops
	DoWhileCompare  *BasicBlock
	lastLoopEntry   *BasicBlock // `_last_loop_entry`: enclosing loop head, set while lowering
}

func NewBasicBlock(a *Arena, fn *Function, label string) *BasicBlock {
	return &BasicBlock{valueBase: newValueBase(a), Label: label, Func: fn}
}

// Append adds an instruction to the end of the block, wiring its block
// and bb_index. It must not be called after a terminator has already
// been appended.
func (bb *BasicBlock) Append(inst Instruction) {
	inst.setBlock(bb)
	inst.setBBIndex(len(bb.Instructions))
	bb.Instructions = append(bb.Instructions, inst)
}

// Terminator returns the block's single terminator, or nil if the block
// is not yet closed.
func (bb *BasicBlock) Terminator() Terminator {
	if len(bb.Instructions) == 0 {
		return nil
	}
	last := bb.Instructions[len(bb.Instructions)-1]
	if t, ok := last.(Terminator); ok {
		return t
	}
	return nil
}

// PrependPhi inserts phi at the head of the block's instruction list,
// the conventional position for SSA phi nodes (spec.md §4.1 item 12),
// fixing up every later instruction's bb_index.
func (bb *BasicBlock) PrependPhi(phi *PhiInst) {
	phi.setBlock(bb)
	bb.Instructions = append([]Instruction{phi}, bb.Instructions...)
	for i, inst := range bb.Instructions {
		inst.setBBIndex(i)
	}
}

// ReplaceInstruction swaps the instruction at old's position for
// replacement in place, keeping bb_index contiguous. Operand/user edges
// on old and replacement are the caller's responsibility (package
// normalize uses ir.ReplaceAllUses first, then this, when splicing a
// typed instruction in for a generic helper call).
func (bb *BasicBlock) ReplaceInstruction(old, replacement Instruction) {
	for i, inst := range bb.Instructions {
		if inst == old {
			replacement.setBlock(bb)
			replacement.setBBIndex(i)
			bb.Instructions[i] = replacement
			return
		}
	}
}

// TruncateAfter drops every instruction after the one at index idx,
// then appends term as the block's new terminator. Used when
// normalization turns a former non-halting call (`revert_forward_1`,
// `panic_error_…`) into a halting opcode: whatever the lifter placed
// after it in the same block becomes unreachable (spec.md §4.2).
func (bb *BasicBlock) TruncateAfter(idx int, term Instruction) {
	bb.Instructions = append(bb.Instructions[:idx+1], term)
	term.setBlock(bb)
	term.setBBIndex(idx + 1)
}

// ClearSuccessors detaches bb from every successor it currently has,
// fixing up each successor's Predecessors list to match. Used after
// TruncateAfter replaces a block's terminator with Unreachable, since
// the edges the lifter wired for the code that is now gone are stale.
func (bb *BasicBlock) ClearSuccessors() {
	for _, succ := range bb.Successors {
		out := succ.Predecessors[:0]
		for _, p := range succ.Predecessors {
			if p != bb {
				out = append(out, p)
			}
		}
		succ.Predecessors = out
	}
	bb.Successors = nil
}

// AddEdge records bb -> succ as predecessor/successor pair, keeping both
// sides symmetric per spec.md §8.
func AddEdge(bb, succ *BasicBlock) {
	if bb == nil || succ == nil {
		return
	}
	for _, s := range bb.Successors {
		if s == succ {
			return
		}
	}
	bb.Successors = append(bb.Successors, succ)
	succ.Predecessors = append(succ.Predecessors, bb)
}

// CurrentLoopEntry returns the block's `current_loop_entry`: itself if
// it is a loop entry, else its `_last_loop_entry` (spec.md §3: "Every
// non-loop-entry block inherits its enclosing current_loop_entry from
// _last_loop_entry").
func (bb *BasicBlock) CurrentLoopEntry() *BasicBlock {
	if bb.IsLoopEntry {
		return bb
	}
	return bb.lastLoopEntry
}

// SetLastLoopEntry records the enclosing loop header while the lifter
// is walking statements inside a loop body.
func (bb *BasicBlock) SetLastLoopEntry(entry *BasicBlock) { bb.lastLoopEntry = entry }
