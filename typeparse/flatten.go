package typeparse

import "strings"

// Flatten reconstructs the mangled type string for t. Flatten(parse(s))
// is the identity for every input ParseTypeWithTail accepts in full
// (spec.md §8's round-trip property).
func Flatten(t Type) string {
	switch t.Kind {
	case KindAddress:
		if t.Payable {
			return "t_address_payable"
		}
		return "t_address"
	case KindBool:
		return "t_bool"
	case KindBytesN:
		return "t_bytes" + itoa(t.Bits)
	case KindBytesDynamic:
		return withLoc("t_bytes", t.Loc)
	case KindContract:
		return dollarID("t_contract", t.ID, t.DeclNum)
	case KindEnum:
		return dollarID("t_enum", t.ID, t.DeclNum)
	case KindUserDefinedValueType:
		return dollarID("t_userDefinedValueType", t.ID, t.DeclNum)
	case KindStruct:
		s := dollarID("t_struct", t.ID, t.DeclNum)
		if t.Loc != "" {
			s += "_" + t.Loc
		}
		return s
	case KindRational:
		s := "t_rational"
		if t.Minus {
			s += "_minus"
		}
		return s + "_" + t.Num + "_by_" + t.Den
	case KindString:
		return withLoc("t_string", t.Loc)
	case KindStringLiteral:
		return "t_stringliteral_" + t.Literal
	case KindUint:
		return "t_uint" + itoa(t.Bits)
	case KindInt:
		return "t_int" + itoa(t.Bits)
	case KindFunction:
		var b strings.Builder
		b.WriteString("t_function_")
		b.WriteString(t.FuncVis)
		b.WriteString("_")
		b.WriteString(t.FuncMut)
		b.WriteString("$_")
		b.WriteString(flattenList(t.Params))
		b.WriteString("_$returns$_")
		b.WriteString(flattenList(t.Returns))
		b.WriteString("_$")
		return b.String()
	case KindArray:
		var b strings.Builder
		b.WriteString("t_array$_")
		b.WriteString(Flatten(*t.Elem))
		b.WriteString("_$")
		b.WriteString(t.Len)
		if t.Loc != "" {
			b.WriteString("_")
			b.WriteString(t.Loc)
		}
		return b.String()
	case KindMapping:
		var b strings.Builder
		b.WriteString("t_mapping$_")
		b.WriteString(Flatten(*t.Key))
		b.WriteString("_$_")
		b.WriteString(Flatten(*t.Elem))
		b.WriteString("_$")
		return b.String()
	case KindTuple:
		var b strings.Builder
		b.WriteString("t_tuple$_")
		b.WriteString(flattenList(t.Elems))
		b.WriteString("_$")
		return b.String()
	default:
		return ""
	}
}

func flattenList(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = Flatten(t)
	}
	return strings.Join(parts, "_$_")
}

func withLoc(prefix, loc string) string {
	if loc == "" {
		return prefix
	}
	return prefix + "_" + loc
}

func dollarID(prefix, id, num string) string {
	return prefix + "$_" + id + "_$" + num
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
