package detector

import (
	"fmt"

	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/traversal"
)

// Severity and Confidence mirror the fixed string enums
// detector_result.py asserts against (spec.md §6).
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Result is a single finding, grounded on
// original_source/hookscan/detectors/detector_result.py's DetectorResult
// with one difference: where the Python class reaches back through a
// ValueInstance's own `.info` pointer to recover entry-point/selector/
// call-stack context, every constructor here takes that TraversalInfo
// directly, since in this port it's always already in scope at the
// callback call site that builds a Result.
type Result struct {
	Severity       Severity
	Confidence     Confidence
	AdditionalInfo interface{}

	ExternalFunction string

	hasFunctionSelector bool
	functionSelector    string

	CallStack []string // yul_call_stack, nil means "absent" in the JSON shape

	hasSourceLocation bool
	sourceLocation    string
}

// FunctionSelector returns the rendered selector string ("0x........"
// or "(FALLBACK_OR_RECEIVE)") and whether one is known at all.
func (r *Result) FunctionSelector() (string, bool) { return r.functionSelector, r.hasFunctionSelector }

// SourceLocation returns the rendered "<file>:<row>" string and whether
// a source position is known.
func (r *Result) SourceLocation() (string, bool) { return r.sourceLocation, r.hasSourceLocation }

func formatSelector(sel *traversal.Selector) (string, bool) {
	if sel == nil {
		return "", false
	}
	if sel.IsFallback {
		return "(FALLBACK_OR_RECEIVE)", true
	}
	return fmt.Sprintf("%#010x", sel.Value), true
}

// NewInstanceResult builds a Result targeting a single ValueInstance
// visited under info, mirroring DetectorResult's ValueInstance branch:
// external_function/function_selector/call_stack come off info's
// current entry-point context, and the source location off the
// instruction itself (when it carries one).
func NewInstanceResult(info *traversal.TraversalInfo, target *traversal.ValueInstance, severity Severity, confidence Confidence, additionalInfo interface{}) *Result {
	r := &Result{Severity: severity, Confidence: confidence, AdditionalInfo: additionalInfo}
	if info.EntryPointFunction != nil {
		r.ExternalFunction = info.EntryPointFunction.SolidityName()
	}
	r.functionSelector, r.hasFunctionSelector = formatSelector(info.CurrentFunctionSelector)

	for _, fn := range info.GetCallStackFunctions() {
		r.CallStack = append(r.CallStack, fn.Name)
	}

	if inst, ok := target.IRValue().(ir.Instruction); ok {
		if span := inst.SourceMap(); span.Valid {
			r.sourceLocation = fmt.Sprintf("%s:%d", info.Contract.File, span.StartLine)
			r.hasSourceLocation = true
		}
	}
	return r
}

// NewFunctionResult builds a Result targeting an EXTERNAL Function
// directly (DetectorResult's Function branch), used by detectors that
// report a whole entry point rather than a single instruction.
// Panics if fn is not EXTERNAL, mirroring the Python assert -- this is
// a framework-internal invariant, never a reachable user-input error.
func NewFunctionResult(fn *ir.Function, severity Severity, confidence Confidence, additionalInfo interface{}) *Result {
	if fn.Type != ir.FuncExternal {
		panic("detector.NewFunctionResult: target must be an EXTERNAL function")
	}
	r := &Result{
		Severity:         severity,
		Confidence:       confidence,
		AdditionalInfo:   additionalInfo,
		ExternalFunction: fn.SolidityName(),
	}
	if fn.Selector != nil {
		r.functionSelector, r.hasFunctionSelector = fmt.Sprintf("%#010x", *fn.Selector), true
	}
	if fn.Entry != nil {
		for _, inst := range fn.Entry.Instructions {
			if span := inst.SourceMap(); span.Valid {
				r.sourceLocation = fmt.Sprintf("%s:%d", fn.Contract.File, span.StartLine)
				r.hasSourceLocation = true
				break
			}
		}
	}
	return r
}
