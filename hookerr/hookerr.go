// Package hookerr defines the small typed error catalogue the core
// raises for its four fatal error classes, so the CLI boundary can
// format `{error, error_type}` without string-sniffing (spec.md §7).
package hookerr

import "fmt"

// Kind tags which stage of the pipeline failed.
type Kind int

const (
	CompileError Kind = iota
	ParseError
	LiftError
	NormalizationError
	CLIError
)

func (k Kind) String() string {
	switch k {
	case CompileError:
		return "CompileError"
	case ParseError:
		return "ParseError"
	case LiftError:
		return "LiftError"
	case NormalizationError:
		return "NormalizationError"
	case CLIError:
		return "CLIError"
	default:
		return "UnknownError"
	}
}

// Error is the single error type every fatal pipeline stage returns.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }
