// Package traversal implements the path-sensitive DFS engine (spec.md
// §4.5): it steps through each Function's CFG materializing one
// ValueInstance per visited instruction, wiring provenance/taint via
// package taint, reasoning about branch/switch constraints, and
// dispatching per-instruction callbacks a higher-level detector
// scheduler (package detector) registers.
package traversal

import (
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/taint"
)

// ValueInstance is one visit of one ir.Value along one DFS path
// (spec.md §3's ValueInstance, grounded on
// original_source/hookscan/core/instruction_instance.py). It satisfies
// taint.Instance structurally, so package taint's seeding and
// call-recovery logic operates on it without taint importing this
// package back.
type ValueInstance struct {
	value    ir.Value
	origin   *ValueInstance
	operands []taint.Instance
	taints   taint.Set
	typeStr  string

	sig    uint32
	hasSig bool

	callArgs []taint.Instance

	// PathNode is the DFS stack frame this instance was created under;
	// nil for instances synthesized outside normal stepping (e.g. the
	// per-contract constant cache).
	PathNode *PathNode
}

func newValueInstance(v ir.Value, node *PathNode) *ValueInstance {
	return &ValueInstance{value: v, taints: taint.NewSet(), PathNode: node}
}

func (v *ValueInstance) IRValue() ir.Value             { return v.value }
func (v *ValueInstance) OperandInstances() []taint.Instance { return v.operands }
func (v *ValueInstance) Taints() taint.Set             { return v.taints }
func (v *ValueInstance) CallArgs() []taint.Instance     { return v.callArgs }
func (v *ValueInstance) SetCallArgs(a []taint.Instance) { v.callArgs = a }

func (v *ValueInstance) FunctionSignature() (uint32, bool) { return v.sig, v.hasSig }
func (v *ValueInstance) SetFunctionSignature(sig uint32)   { v.sig, v.hasSig = sig, true }

// Origin returns the ValueInstance this one propagated from, or itself
// if it has no provenance ancestor (instruction_instance.py's `origin`
// property).
func (v *ValueInstance) Origin() taint.Instance {
	if v.origin == nil {
		return v
	}
	return v.origin
}

// OriginInstance is the concretely-typed counterpart of Origin, used
// internally by this package where a *ValueInstance (not the taint.
// Instance interface) is needed.
func (v *ValueInstance) OriginInstance() *ValueInstance {
	if v.origin == nil {
		return v
	}
	return v.origin
}

// PropagateFrom unions other's taints in, adopts its resolved origin,
// and copies its type_str -- instruction_instance.py's propagate_from,
// used for PHI resolution, ExtractReturnValue, type-convert, and
// cleanup helpers.
func (v *ValueInstance) PropagateFrom(other *ValueInstance) {
	v.taints.Union(other.Taints())
	v.origin = other.OriginInstance()
	v.typeStr = other.typeStr
}
