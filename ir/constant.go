package ir

import "fmt"

// ConstantKind tags the four literal forms the Yul lifter can produce
// (spec.md §3, §4.1 item 10).
type ConstantKind int

const (
	ConstInt ConstantKind = iota
	ConstString
	ConstHexString
	ConstBool
)

func (k ConstantKind) String() string {
	switch k {
	case ConstInt:
		return "int"
	case ConstString:
		return "string"
	case ConstHexString:
		return "hexstring"
	case ConstBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Constant is a tagged literal value with an optional recovered type
// name (populated by normalization when a helper's type_str pins it).
type Constant struct {
	valueBase
	Kind     ConstantKind
	Int      int64  // valid when Kind == ConstInt and the literal fits; see IntValue for the arbitrary-precision text
	IntText  string // original decimal/hex text, always populated for ConstInt
	Str      string // valid when Kind == ConstString or ConstHexString
	Bool     bool   // valid when Kind == ConstBool
	TypeName string
}

// NewIntConstant records both a best-effort int64 and the original text,
// since Yul integer literals may exceed 64 bits (e.g. full-width masks).
func NewIntConstant(a *Arena, text string, v int64) *Constant {
	return &Constant{valueBase: newValueBase(a), Kind: ConstInt, Int: v, IntText: text}
}

func NewStringConstant(a *Arena, s string) *Constant {
	return &Constant{valueBase: newValueBase(a), Kind: ConstString, Str: s}
}

func NewHexStringConstant(a *Arena, s string) *Constant {
	return &Constant{valueBase: newValueBase(a), Kind: ConstHexString, Str: s}
}

func NewBoolConstant(a *Arena, b bool) *Constant {
	return &Constant{valueBase: newValueBase(a), Kind: ConstBool, Bool: b}
}

func (c *Constant) String() string {
	switch c.Kind {
	case ConstInt:
		return c.IntText
	case ConstString:
		return fmt.Sprintf("%q", c.Str)
	case ConstHexString:
		return "hex\"" + c.Str + "\""
	case ConstBool:
		return fmt.Sprintf("%t", c.Bool)
	default:
		return "<const>"
	}
}

// Argument is a positional formal parameter of a Function.
type Argument struct {
	valueBase
	Name  string
	Index int
	Func  *Function
}

func NewArgument(a *Arena, name string, index int, fn *Function) *Argument {
	return &Argument{valueBase: newValueBase(a), Name: name, Index: index, Func: fn}
}

func (arg *Argument) String() string { return arg.Name }
