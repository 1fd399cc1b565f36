package detector

import (
	"reflect"

	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/traversal"
)

// Detector is one scanner, grounded on
// original_source/uniscan/detectors/base_detector.py's BaseDetector.
//
// CallbackKeys declares the exact instruction shapes that trigger
// Callback; a detector's own keys may not be in a subclass relationship
// with each other, but since this port's CallbackKey is a flat struct
// (not a class hierarchy) that constraint collapses to "no detector
// declares an identical key twice", checked by Scheduler.Register.
// Different detectors may declare the same key.
//
// RoundDependency maps a relative round index to the detector types
// that must have fully finished (every round) before this detector may
// run that round; round 0 with no dependency is the common case.
type Detector interface {
	CallbackKeys() []traversal.CallbackKey
	RoundDependency() map[int][]reflect.Type
	RegisterTraverseEvent() bool

	Callback(info *traversal.TraversalInfo, inst *traversal.ValueInstance, isEnd bool) Outcome

	// InternalResult is always collected, feeding dependent detectors'
	// TraverseStart via Scheduler.Results. ExternalResult is collected
	// only for detectors that were part of the originally requested set
	// (base_detector.py's get_internal_result/get_external_result).
	InternalResult() []*Result
	ExternalResult() []*Result
}

// TraverseEventDetector is implemented by detectors whose
// RegisterTraverseEvent is true and that need the per-round start/stop
// hook (base_detector.py's traverse_start/traverse_stop), most notably
// to read another detector's InternalResult out of Scheduler.Results at
// round 0.
type TraverseEventDetector interface {
	TraverseStart(info *traversal.TraversalInfo, results map[reflect.Type][]*Result, round int)
	TraverseStop(info *traversal.TraversalInfo, round int)
}

// Name returns a detector's registry name -- its Go type name, standing
// in for Python's class name (used as both the CLI's `-d` selector and
// the report's `detector_name` field).
func Name(d Detector) string {
	t := reflect.TypeOf(d)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// VulnerabilityDescriber is implemented by every built-in detector to
// supply the report's `vulnerability` field (the uniform
// VULNERABILITY_DESCRIPTION class attribute in the source detectors).
type VulnerabilityDescriber interface {
	VulnerabilityDescription() string
}

// terminatedByRevert reports whether the path that just ended via
// Unreachable was immediately preceded by a Revert, grounded on
// base_detector.py's terminated_by_revert. Must only be called from a
// Callback invocation with isEnd true.
func terminatedByRevert(info *traversal.TraversalInfo) bool {
	if len(info.Path) == 0 {
		return false
	}
	pn := info.Path[len(info.Path)-1]
	if len(pn.InstInstances) < 2 {
		return false
	}
	evm, ok := pn.InstInstances[len(pn.InstInstances)-2].IRValue().(*ir.EVMInst)
	return ok && evm.Op == ir.OpREVERT
}

// isEVMCall reports whether op is one of the four call-family opcodes
// UniswapGetCallback's callback_keys cover.
func isEVMCall(op ir.Opcode) bool {
	switch op {
	case ir.OpCALL, ir.OpCALLCODE, ir.OpDELEGATECALL, ir.OpSTATICCALL:
		return true
	default:
		return false
	}
}

// callSignature returns vi's recovered callee selector, grounded on
// base_detector.py's get_call_signature -- vi must be a call-family
// instance, checked by the caller via isEVMCall.
func callSignature(vi *traversal.ValueInstance) (uint32, bool) {
	return vi.FunctionSignature()
}

// callArgMember returns the origin of vi's index'th recovered call
// argument, grounded on base_detector.py's get_call_args_member.
func callArgMember(vi *traversal.ValueInstance, index int) *traversal.ValueInstance {
	args := vi.CallArgs()
	if index < 0 || index >= len(args) {
		return nil
	}
	origin := args[index].Origin()
	vo, _ := origin.(*traversal.ValueInstance)
	return vo
}
