package traversal

import (
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/taint"
)

// CallInfo is pushed onto TraversalInfo's global Path either when the
// DFS steps into a CallInst's callee (IsCall true) or when it reaches a
// ReturnInst and is about to resume the caller (IsCall false) -- spec.md
// §4.5, grounded on
// original_source/hookscan/core/traversal_info.py's CallInfo dataclass.
type CallInfo struct {
	IsCall       bool
	InstInstance *ValueInstance

	// Resume point recorded when IsCall is true: where the DFS
	// continues once the callee's Return pops this frame.
	ReturnBB             *ir.BasicBlock
	ReturnIndex          int
	ReturnPreBB          *ir.BasicBlock
	ReturnLoopEntryPreBB *ir.BasicBlock
}

// Instances returns the call's own operand instances -- the caller-
// supplied arguments an ir.Argument inside the callee resolves against
// (spec.md §4.5, literal wording: "Arguments resolve to the matching
// operand_instance of the call on the top of the call stack").
func (c *CallInfo) Instances() []taint.Instance {
	return c.InstInstance.OperandInstances()
}

// PathNode is one frame of the DFS's explicit path: every block visited
// along the walk gets one, pushed in dfs and popped again in popAll
// (traversal_info.py's PathNode dataclass).
type PathNode struct {
	BasicBlock   *ir.BasicBlock
	StartIndex   int
	CurrentIndex int

	CallInfo            *CallInfo
	LastForkConstraints []Constraint

	InstInstances []*ValueInstance

	// ConditionChoose records which branch/case this block's terminator
	// took, surfaced for debugging/cfgdot rendering; nil until the
	// terminator is stepped. Holds bool (branch), int64 (switch case),
	// or the string "default".
	ConditionChoose interface{}
}

func newPathNode(bb *ir.BasicBlock, startIndex int) *PathNode {
	return &PathNode{BasicBlock: bb, StartIndex: startIndex}
}
