package handler

import "github.com/blocksecteam/hookscan/ir"

// ProtectHandler tracks the path positions where a caller-protection
// check was observed (spec.md §4.7). No source file for this
// collaborator survived retrieval -- grep across the retrieved pack
// turns up only its bare construction site and a type annotation, never
// a `protect_handler.py` body -- so the stack mechanics here are a
// direct reconstruction from spec.md's description ("a stack of path
// indices... info.is_protected (stack non-empty)"), and the recognizer
// is the one concrete shape spec.md itself names as the self-check
// UniswapPublicCallback looks for: Eq(CALLER, ADDRESS), either operand
// order.
type ProtectHandler struct {
	stack []int
}

func NewProtectHandler() *ProtectHandler {
	return &ProtectHandler{}
}

// Push records a new protection mark at the given path index.
func (p *ProtectHandler) Push(pathIndex int) {
	p.stack = append(p.stack, pathIndex)
}

// Pop removes the top mark, but only if it was pushed at pathIndex --
// mirroring the DFS pop_all contract of only unwinding what the current
// stack frame itself pushed.
func (p *ProtectHandler) Pop(pathIndex int) {
	if len(p.stack) == 0 || p.stack[len(p.stack)-1] != pathIndex {
		return
	}
	p.stack = p.stack[:len(p.stack)-1]
}

// IsProtected reports info.is_protected: whether any protection mark is
// currently on the stack.
func (p *ProtectHandler) IsProtected() bool {
	return len(p.stack) > 0
}

// IsCallerAddressCheck recognizes the Eq(CALLER, ADDRESS) / Eq(ADDRESS,
// CALLER) condition shape the engine pushes a protection mark for when
// the true branch of a fork is taken (spec.md §4.7, §4.8).
func IsCallerAddressCheck(cond *ir.EVMInst, left, right ir.Value) bool {
	if cond == nil || cond.Op != ir.OpEQ {
		return false
	}
	a, okA := left.(*ir.EVMInst)
	b, okB := right.(*ir.EVMInst)
	if !okA || !okB {
		return false
	}
	return (a.Op == ir.OpCALLER && b.Op == ir.OpADDRESS) || (a.Op == ir.OpADDRESS && b.Op == ir.OpCALLER)
}
