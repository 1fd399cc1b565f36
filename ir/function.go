package ir

// FunctionType tags a Function's role, inferred from its Yul name at
// lift time per spec.md §3's naming convention table.
type FunctionType int

const (
	FuncCreation FunctionType = iota
	FuncConstructor
	FuncRuntime
	FuncConstant
	FuncGetter
	FuncModifier
	FuncExternal
	FuncInternal
	FuncFallback
	FuncYul
)

func (t FunctionType) String() string {
	switch t {
	case FuncCreation:
		return "CREATION"
	case FuncConstructor:
		return "CONSTRUCTOR"
	case FuncRuntime:
		return "RUNTIME"
	case FuncConstant:
		return "CONSTANT"
	case FuncGetter:
		return "GETTER"
	case FuncModifier:
		return "MODIFIER"
	case FuncExternal:
		return "EXTERNAL"
	case FuncInternal:
		return "INTERNAL"
	case FuncFallback:
		return "FALLBACK"
	case FuncYul:
		return "YUL_FUNCTION"
	default:
		return "UNKNOWN"
	}
}

// MutabilityInfo records the mutability analysis result for a Function
// (spec.md §3, §4.4).
type MutabilityInfo struct {
	Payable       bool
	NonStaticCall bool
	StorageWrite  bool
	Log           bool
	SelfDestruct  bool
}

// Mutable reports whether the function can change chain state in any
// observable way -- used by the built-in detectors' "mutable-or-payable"
// gate (spec.md §4.8).
func (m MutabilityInfo) Mutable() bool {
	return m.NonStaticCall || m.StorageWrite || m.Log || m.SelfDestruct
}

// MutableOrPayable is the gate every built-in detector checks before
// reporting a finding against an entry point (spec.md §4.8, grounded on
// original_source/uniscan/components/function.py's mutable_or_payable
// property).
func (f *Function) MutableOrPayable() bool {
	return f.Mutability.Mutable() || f.Mutability.Payable
}

// SolidityName derives the reader-facing function name from the lifted
// Yul name, grounded on
// original_source/uniscan/components/function.py's solidity_name
// property: a FALLBACK has no selector-derived name at all, an EXTERNAL
// name is `external_fun_<name>_<id>`, an INTERNAL one is `fun_<name>_<id>`.
func (f *Function) SolidityName() string {
	switch f.Type {
	case FuncFallback:
		return "(FALLBACK_OR_RECEIVE)"
	case FuncExternal:
		return joinMiddle(f.Name, 2)
	case FuncInternal:
		return joinMiddle(f.Name, 1)
	default:
		return ""
	}
}

// joinMiddle splits name on '_' and rejoins the slice [from:len-1],
// mirroring Python's `"_".join(self.name.split("_")[from:-1])`.
func joinMiddle(name string, from int) string {
	parts := splitUnderscore(name)
	if from >= len(parts) {
		return ""
	}
	end := len(parts) - 1
	if end < from {
		end = from
	}
	return joinUnderscore(parts[from:end])
}

func splitUnderscore(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func joinUnderscore(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "_"
		}
		out += p
	}
	return out
}

// Function is a Contract-owned unit with an ordered block list
// (spec.md §3).
type Function struct {
	valueBase
	Name         string
	Type         FunctionType
	Selector     *uint32 // external 4-byte selector, nil unless Type is EXTERNAL or FALLBACK with a known selector
	Args         []*Argument
	ReturnNames  []string
	Entry        *BasicBlock
	Blocks       []*BasicBlock
	IsRuntime    bool
	Mutability   MutabilityInfo
	Contract     *Contract
}

func NewFunction(a *Arena, name string, typ FunctionType) *Function {
	return &Function{valueBase: newValueBase(a), Name: name, Type: typ}
}

// AddBlock appends bb to the function's block list; the first block
// added becomes Entry unless Entry is already set.
func (f *Function) AddBlock(bb *BasicBlock) {
	bb.Func = f
	f.Blocks = append(f.Blocks, bb)
	if f.Entry == nil {
		f.Entry = bb
	}
}

// AddArgument appends a new positional Argument and returns it.
func (f *Function) AddArgument(a *Arena, name string) *Argument {
	arg := NewArgument(a, name, len(f.Args), f)
	f.Args = append(f.Args, arg)
	return arg
}

// InferFunctionType classifies a Yul function by its name, per spec.md
// §3's naming convention table. Order matters: CONSTRUCTOR and EXTERNAL
// prefixes are checked before the more general FALLBACK/INTERNAL shapes.
func InferFunctionType(name string) FunctionType {
	switch {
	case hasPrefix(name, "constructor_"):
		return FuncConstructor
	case hasPrefix(name, "external_fun_"):
		return FuncExternal
	case hasPrefix(name, "getter_fun_"):
		return FuncGetter
	case hasPrefix(name, "modifier_"):
		return FuncModifier
	case isFallbackShaped(name):
		return FuncFallback
	case hasPrefix(name, "fun_"), hasPrefix(name, "usr$"):
		return FuncInternal
	case hasPrefix(name, "constant_"):
		return FuncConstant
	default:
		return FuncYul
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// isFallbackShaped matches `fun__<digits>` not ending in `inner`
// (spec.md §3).
func isFallbackShaped(name string) bool {
	const p = "fun__"
	if !hasPrefix(name, p) {
		return false
	}
	if hasSuffix(name, "inner") {
		return false
	}
	rest := name[len(p):]
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
