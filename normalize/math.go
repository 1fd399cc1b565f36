package normalize

import (
	"regexp"

	"github.com/blocksecteam/hookscan/ir"
)

var (
	reIncrement        = regexp.MustCompile(`^increment_(.+)$`)
	reDecrement        = regexp.MustCompile(`^decrement_(.+)$`)
	reChecked          = regexp.MustCompile(`^checked_(add|sub|mul|div|mod|exp)_(.+)$`)
	reWrapping         = regexp.MustCompile(`^wrapping_(add|sub|mul|div|mod|exp)_(.+)$`)
	reModPlain         = regexp.MustCompile(`^mod_(.+)$`)
	reConvertStringLit = regexp.MustCompile(`^convert_t_stringliteral_(.+)_to_(.+)$`)
	reConvertArray     = regexp.MustCompile(`^convert_array_(.+)_to_(.+)$`)
	reConvertStruct    = regexp.MustCompile(`^convert_t_struct_(.+)_to_(.+)$`)
	reConvertGeneric   = regexp.MustCompile(`^convert_(.+)_to_(.+)$`)
)

func mathOpFor(s string) ir.MathOp {
	switch s {
	case "add":
		return ir.MathAdd
	case "sub":
		return ir.MathSub
	case "mul":
		return ir.MathMul
	case "div":
		return ir.MathDiv
	case "mod":
		return ir.MathMod
	case "exp":
		return ir.MathExp
	default:
		return ir.MathAdd
	}
}

// tryMath recognizes the arithmetic-helper family (increment_/decrement_/
// wrapping_/checked_/mod_, folding into MathInst with wrapping_ ⇒
// unchecked per spec.md §4.2) and the convert_… family (folding into
// ConvertStringLiteralInst, ConvertReferenceInst, or
// TypeConvertInstruction depending on which side of the conversion needs
// a distinct location). The convert_ patterns are checked most-specific
// first since the generic `convert_<from>_to_<to>` shape would
// otherwise also match `convert_array_…`/`convert_t_struct_…`.
func tryMath(a *ir.Arena, name string, args []ir.Value) (ir.Instruction, bool) {
	switch {
	case reIncrement.MatchString(name):
		m := reIncrement.FindStringSubmatch(name)
		return ir.NewMathInst(a, ir.MathIncrement, m[1], true, arg(args, 0), nil), true
	case reDecrement.MatchString(name):
		m := reDecrement.FindStringSubmatch(name)
		return ir.NewMathInst(a, ir.MathDecrement, m[1], true, arg(args, 0), nil), true
	case reChecked.MatchString(name):
		m := reChecked.FindStringSubmatch(name)
		return ir.NewMathInst(a, mathOpFor(m[1]), m[2], true, arg(args, 0), arg(args, 1)), true
	case reWrapping.MatchString(name):
		m := reWrapping.FindStringSubmatch(name)
		return ir.NewMathInst(a, mathOpFor(m[1]), m[2], false, arg(args, 0), arg(args, 1)), true
	case reModPlain.MatchString(name):
		m := reModPlain.FindStringSubmatch(name)
		return ir.NewMathInst(a, ir.MathMod, m[1], true, arg(args, 0), arg(args, 1)), true
	case reConvertStringLit.MatchString(name):
		m := reConvertStringLit.FindStringSubmatch(name)
		return ir.NewConvertStringLiteralInst(a, m[2], arg(args, 0)), true
	case reConvertArray.MatchString(name):
		m := reConvertArray.FindStringSubmatch(name)
		return ir.NewConvertReferenceInst(a, m[1], m[2], arg(args, 0)), true
	case reConvertStruct.MatchString(name):
		m := reConvertStruct.FindStringSubmatch(name)
		return ir.NewConvertReferenceInst(a, m[1], m[2], arg(args, 0)), true
	case reConvertGeneric.MatchString(name):
		m := reConvertGeneric.FindStringSubmatch(name)
		return ir.NewTypeConvertInstruction(a, m[1], m[2], arg(args, 0)), true
	}
	return nil, false
}
