// Package typeparse is the hand-rolled recursive-descent parser over the
// Solidity compiler's mangled type grammar (spec.md §4.3), used both by
// the normalization pass (to recover ABI-encode/decode argument and
// return lists) and by detectors that need to tell a calldata-pointer
// logical argument from a single-word one.
package typeparse

import (
	"strconv"
	"strings"
)

// Kind enumerates the leaf and compound type shapes spec.md §4.3 names.
type Kind int

const (
	KindAddress Kind = iota
	KindBool
	KindBytesN
	KindBytesDynamic
	KindContract
	KindEnum
	KindInt
	KindUint
	KindRational
	KindString
	KindStringLiteral
	KindStruct
	KindUserDefinedValueType
	KindFunction
	KindArray
	KindMapping
	KindTuple
)

// Type is one parsed node of the mangled type grammar.
type Type struct {
	Kind Kind

	// Leaves
	Payable  bool   // t_address_payable
	Bits     int    // t_bytesN, t_(u)int{N}
	ID       string // contract/enum/struct/userDefinedValueType name
	DeclNum  string // the trailing "$N" declaration-order number
	Loc      string // memory_ptr | calldata_ptr | storage_ptr | storage | ""
	Num, Den string // rational numerator/denominator text
	Minus    bool   // rational sign
	Literal  string // t_stringliteral_<hex64>

	// Compounds
	Elem    *Type  // array element / mapping value
	Key     *Type  // mapping key
	Len     string // array length: "dyn" or a decimal string
	Elems   []Type // tuple elements
	FuncVis string // internal | external
	FuncMut string // view | pure | payable | nonpayable
	Params  []Type
	Returns []Type
}

// locations recognized after a bare location-bearing leaf.
var locKeywords = []string{"memory_ptr", "calldata_ptr", "storage_ptr", "storage"}

// ParseTypeWithTail parses a single type starting at s and returns the
// parsed Type plus whatever text follows it (spec.md §4.3: "parse a
// single type with tail").
func ParseTypeWithTail(s string) (Type, string, bool) {
	switch {
	case strings.HasPrefix(s, "t_address_payable"):
		return Type{Kind: KindAddress, Payable: true}, s[len("t_address_payable"):], true
	case strings.HasPrefix(s, "t_address"):
		return Type{Kind: KindAddress}, s[len("t_address"):], true
	case strings.HasPrefix(s, "t_bool"):
		return Type{Kind: KindBool}, s[len("t_bool"):], true
	case strings.HasPrefix(s, "t_bytes"):
		return parseBytes(s)
	case strings.HasPrefix(s, "t_contract$_"):
		return parseDollarID(s, "t_contract$_", KindContract)
	case strings.HasPrefix(s, "t_enum$_"):
		return parseDollarID(s, "t_enum$_", KindEnum)
	case strings.HasPrefix(s, "t_userDefinedValueType$_"):
		return parseDollarID(s, "t_userDefinedValueType$_", KindUserDefinedValueType)
	case strings.HasPrefix(s, "t_struct$_"):
		return parseStruct(s)
	case strings.HasPrefix(s, "t_rational"):
		return parseRational(s)
	case strings.HasPrefix(s, "t_stringliteral_"):
		rest := s[len("t_stringliteral_"):]
		hex, tail := takeWhile(rest, isHexDigit)
		return Type{Kind: KindStringLiteral, Literal: hex}, tail, true
	case strings.HasPrefix(s, "t_string"):
		return parseWithOptionalLoc(s, "t_string", KindString)
	case strings.HasPrefix(s, "t_uint"):
		return parseIntLike(s, "t_uint", KindUint)
	case strings.HasPrefix(s, "t_int"):
		return parseIntLike(s, "t_int", KindInt)
	case strings.HasPrefix(s, "t_function_"):
		return parseFunction(s)
	case strings.HasPrefix(s, "t_array$_"):
		return parseArray(s)
	case strings.HasPrefix(s, "t_mapping$_"):
		return parseMapping(s)
	case strings.HasPrefix(s, "t_tuple$_"):
		return parseTuple(s)
	default:
		return Type{}, s, false
	}
}

func parseBytes(s string) (Type, string, bool) {
	rest := s[len("t_bytes"):]
	digits, tail := takeWhile(rest, isDigit)
	if digits != "" {
		n, _ := strconv.Atoi(digits)
		return Type{Kind: KindBytesN, Bits: n}, tail, true
	}
	return parseWithOptionalLoc(s, "t_bytes", KindBytesDynamic)
}

func parseWithOptionalLoc(s, prefix string, kind Kind) (Type, string, bool) {
	rest := s[len(prefix):]
	rest = strings.TrimPrefix(rest, "_")
	loc, tail := takeLocKeyword(rest)
	return Type{Kind: kind, Loc: loc}, tail, true
}

func takeLocKeyword(s string) (string, string) {
	for _, kw := range locKeywords {
		if strings.HasPrefix(s, kw) {
			return kw, s[len(kw):]
		}
	}
	return "", s
}

func parseIntLike(s, prefix string, kind Kind) (Type, string, bool) {
	rest := s[len(prefix):]
	digits, tail := takeWhile(rest, isDigit)
	bits := 256
	if digits != "" {
		bits, _ = strconv.Atoi(digits)
	}
	return Type{Kind: kind, Bits: bits}, tail, true
}

// parseDollarID parses `<prefix><name>_$<N>` where prefix already ends
// in "$_" (e.g. "t_contract$_").
func parseDollarID(s, prefix string, kind Kind) (Type, string, bool) {
	rest := s[len(prefix):]
	idx := strings.Index(rest, "_$")
	if idx < 0 {
		return Type{}, s, false
	}
	name := rest[:idx]
	after := rest[idx+2:]
	num, tail := takeWhile(after, isDigit)
	return Type{Kind: kind, ID: name, DeclNum: num}, tail, true
}

// parseStruct additionally carries a trailing location.
func parseStruct(s string) (Type, string, bool) {
	t, tail, ok := parseDollarID(s, "t_struct$_", KindStruct)
	if !ok {
		return t, tail, ok
	}
	tail = strings.TrimPrefix(tail, "_")
	loc, rest := takeLocKeyword(tail)
	t.Loc = loc
	return t, rest, true
}

func parseRational(s string) (Type, string, bool) {
	rest := strings.TrimPrefix(s, "t_rational")
	minus := false
	if strings.HasPrefix(rest, "_minus") {
		minus = true
		rest = rest[len("_minus"):]
	}
	rest = strings.TrimPrefix(rest, "_")
	num, rest := takeWhile(rest, isDigit)
	rest = strings.TrimPrefix(rest, "_by_")
	den, tail := takeWhile(rest, isDigit)
	return Type{Kind: KindRational, Minus: minus, Num: num, Den: den}, tail, true
}

// parseListUntil parses a "_$_"-separated run of types starting at s,
// stopping when the remaining text begins with stopMarker (which is then
// consumed). A "_$_" followed by a parsable type is read as a separator
// first, since it also begins with the "_$" marker that closes a tuple.
// An empty list is valid when s already begins with
// stopMarker. stopMarker == "" means "consume as many types as possible
// and return whatever is left" (used for the unbracketed top-level
// list).
func parseListUntil(s, stopMarker string) (elems []Type, remainder string, ok bool) {
	rest := s
	if stopMarker != "" && strings.HasPrefix(rest, stopMarker) {
		return nil, rest[len(stopMarker):], true
	}
	for {
		t, tail, pok := ParseTypeWithTail(rest)
		if !pok {
			return nil, s, false
		}
		elems = append(elems, t)
		if strings.HasPrefix(tail, "_$_") {
			if _, _, next := ParseTypeWithTail(tail[3:]); next {
				rest = tail[3:]
				continue
			}
		}
		if stopMarker != "" && strings.HasPrefix(tail, stopMarker) {
			return elems, tail[len(stopMarker):], true
		}
		if stopMarker == "" {
			return elems, tail, true
		}
		return nil, s, false
	}
}

func parseFunction(s string) (Type, string, bool) {
	rest := s[len("t_function_"):]
	vis := ""
	for _, v := range []string{"internal", "external"} {
		if strings.HasPrefix(rest, v) {
			vis = v
			rest = rest[len(v):]
			break
		}
	}
	rest = strings.TrimPrefix(rest, "_")
	mut := ""
	for _, m := range []string{"nonpayable", "payable", "view", "pure"} {
		if strings.HasPrefix(rest, m) {
			mut = m
			rest = rest[len(m):]
			break
		}
	}
	rest = strings.TrimPrefix(rest, "$_")
	params, rest, ok := parseListUntil(rest, "_$returns$_")
	if !ok {
		return Type{}, s, false
	}
	returns, tail, ok := parseListUntil(rest, "_$")
	if !ok {
		return Type{}, s, false
	}
	return Type{Kind: KindFunction, FuncVis: vis, FuncMut: mut, Params: params, Returns: returns}, tail, true
}

func parseArray(s string) (Type, string, bool) {
	rest := s[len("t_array$_"):]
	elem, tail, ok := ParseTypeWithTail(rest)
	if !ok {
		return Type{}, s, false
	}
	tail = strings.TrimPrefix(tail, "_$")
	length := ""
	if strings.HasPrefix(tail, "dyn") {
		length = "dyn"
		tail = tail[len("dyn"):]
	} else {
		length, tail = takeWhile(tail, isDigit)
	}
	tail = strings.TrimPrefix(tail, "_")
	loc, tail := takeLocKeyword(tail)
	return Type{Kind: KindArray, Elem: &elem, Len: length, Loc: loc}, tail, true
}

func parseMapping(s string) (Type, string, bool) {
	rest := s[len("t_mapping$_"):]
	key, tail, ok := ParseTypeWithTail(rest)
	if !ok {
		return Type{}, s, false
	}
	tail = strings.TrimPrefix(tail, "_$_")
	val, tail, ok := ParseTypeWithTail(tail)
	if !ok {
		return Type{}, s, false
	}
	tail = strings.TrimPrefix(tail, "_$")
	return Type{Kind: KindMapping, Key: &key, Elem: &val}, tail, true
}

func parseTuple(s string) (Type, string, bool) {
	rest := s[len("t_tuple$_"):]
	elems, tail, ok := parseListUntil(rest, "_$")
	if !ok {
		return Type{}, s, false
	}
	return Type{Kind: KindTuple, Elems: elems}, tail, true
}

// ParseTypeList parses a `_$_`-separated type list that occupies the
// entire string with no enclosing bracket (spec.md §4.3).
func ParseTypeList(s string) ([]Type, error) {
	if s == "" {
		return nil, nil
	}
	elems, remainder, ok := parseListUntil(s, "")
	if !ok || remainder != "" {
		return nil, errBadType(s)
	}
	return elems, nil
}

// ParseMultiType parses a concatenated multi-type string as used in
// `abi_encode_tuple`/`abi_decode_tuple` helper names: a run of
// back-to-back type strings with no separator, each type's own grammar
// determining where the next one starts (spec.md §4.3).
func ParseMultiType(s string) ([]Type, error) {
	var out []Type
	rest := s
	for rest != "" {
		rest = strings.TrimPrefix(rest, "_")
		if rest == "" {
			break
		}
		t, tail, ok := ParseTypeWithTail(rest)
		if !ok {
			return nil, errBadType(rest)
		}
		out = append(out, t)
		if tail == rest {
			return nil, errBadType(rest)
		}
		rest = tail
	}
	return out, nil
}

func takeWhile(s string, pred func(byte) bool) (string, string) {
	i := 0
	for i < len(s) && pred(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func isDigit(b byte) bool    { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool { return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') }

type badTypeError struct{ s string }

func (e badTypeError) Error() string { return "typeparse: cannot parse type string: " + e.s }
func errBadType(s string) error      { return badTypeError{s} }

// TypeStrByIndex returns the flattened type string of types[idx]. It is
// a free function, not a method, preserving the call sites' behavior of
// the source's `get_type_str_by_index`, whose intended receiver is
// ambiguous (spec.md §9 Open Questions).
func TypeStrByIndex(types []Type, idx int) string {
	if idx < 0 || idx >= len(types) {
		return ""
	}
	return Flatten(types[idx])
}

// IsTwoArgCalldataPointer is the §4.2 predicate: a type string occupies
// two logical arguments (offset + length) iff it is
// `t_bytes_calldata_ptr`, `t_string_calldata_ptr`, begins with
// `t_function_external`, or is a dynamic calldata array.
func IsTwoArgCalldataPointer(typeStr string) bool {
	if typeStr == "t_bytes_calldata_ptr" || typeStr == "t_string_calldata_ptr" {
		return true
	}
	if strings.HasPrefix(typeStr, "t_function_external") {
		return true
	}
	t, _, ok := ParseTypeWithTail(typeStr)
	if !ok {
		return false
	}
	return t.Kind == KindArray && t.Len == "dyn" && t.Loc == "calldata_ptr"
}
