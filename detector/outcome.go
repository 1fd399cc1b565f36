// Package detector implements the §4.7 detector framework: detector
// registration, round/dependency scheduling, callback dispatch, and the
// built-in result shape produced by the scanners in
// detector/uniswaphook. Grounded on
// original_source/hookscan/hookscan.py (the Hookscan scheduler class)
// and original_source/uniscan/detectors/base_detector.py.
package detector

import "fmt"

// Outcome is a detector callback's soft-error channel, replacing
// Python's convention of raising NotImplementedError(reason) from
// inside a callback to mean "this instruction shape wasn't handled,
// skip it and keep going" (spec.md §4.7/§7 item 5). It is never a Go
// error or panic: a detector that can't make sense of the current
// instruction just returns SkipPath with a reason, and the engine logs
// it and continues the walk.
type Outcome struct {
	skipped bool
	reason  string
}

// Continue is the normal-path return value: the callback ran to
// completion.
func Continue() Outcome { return Outcome{} }

// SkipPath reports a locally recoverable skip, logged by the scheduler
// but never fatal.
func SkipPath(reason string) Outcome { return Outcome{skipped: true, reason: reason} }

func (o Outcome) Skipped() bool  { return o.skipped }
func (o Outcome) Reason() string { return o.reason }

// skipError adapts an Outcome to the error traversal.Callback expects,
// so Register can wire a Detector's Outcome-returning Callback into
// traversal.Engine.Dispatch without the traversal package knowing
// anything about Outcome.
type skipError struct{ reason string }

func (e *skipError) Error() string { return fmt.Sprintf("detector callback skipped: %s", e.reason) }

func (o Outcome) asErr() error {
	if !o.skipped {
		return nil
	}
	return &skipError{reason: o.reason}
}
