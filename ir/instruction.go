package ir

// InstructionKind tags the closed sum of instruction kinds (spec.md §3).
// Detector dispatch (package detector) keys its callback table on this
// enum; a detector may not declare the same callback key twice, which is
// enforced by detector.Scheduler.Register.
type InstructionKind int

const (
	KindReturn InstructionKind = iota
	KindBranch
	KindSwitch
	KindUnreachable
	KindCall
	KindExtractReturnValue
	KindPhi
	KindEVMOpcode
	KindYulFunc

	// Memory (normalized)
	KindAllocateMemory
	KindWriteToMemory
	KindReadFromMemory
	KindReadFromCalldata
	KindArrayLength
	KindDataSlot
	KindIndexAccess
	KindStructIndexAccess
	KindABIEncode
	KindABIDecodeFromCallData
	KindABIDecodeFromMemory
	KindConcat
	KindConvertReference
	KindConvertStringLiteral
	KindCopyLiteral
	KindCopyArray
	KindExtractReturnData

	// Storage (normalized)
	KindStorageArrayLength
	KindStorageIndex
	KindStorageRead
	KindStorageUpdate

	// Math / type conversion (normalized)
	KindMath
	KindTypeConvert
)

var kindNames = map[InstructionKind]string{
	KindReturn:                "return",
	KindBranch:                "branch",
	KindSwitch:                "switch",
	KindUnreachable:           "unreachable",
	KindCall:                  "call",
	KindExtractReturnValue:    "extract_return_value",
	KindPhi:                   "phi",
	KindEVMOpcode:             "evm_opcode",
	KindYulFunc:               "yul_func",
	KindAllocateMemory:        "allocate_memory",
	KindWriteToMemory:         "write_to_memory",
	KindReadFromMemory:        "read_from_memory",
	KindReadFromCalldata:      "read_from_calldata",
	KindArrayLength:           "array_length",
	KindDataSlot:              "data_slot",
	KindIndexAccess:           "index_access",
	KindStructIndexAccess:     "struct_index_access",
	KindABIEncode:             "abi_encode",
	KindABIDecodeFromCallData: "abi_decode_from_calldata",
	KindABIDecodeFromMemory:   "abi_decode_from_memory",
	KindConcat:                "concat",
	KindConvertReference:      "convert_reference",
	KindConvertStringLiteral:  "convert_stringliteral",
	KindCopyLiteral:           "copy_literal",
	KindCopyArray:             "copy_array",
	KindExtractReturnData:     "extract_returndata",
	KindStorageArrayLength:    "storage_array_length",
	KindStorageIndex:          "storage_index",
	KindStorageRead:           "storage_read",
	KindStorageUpdate:         "storage_update",
	KindMath:                  "math",
	KindTypeConvert:           "type_convert",
}

func (k InstructionKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// SourceSpan is the Yul source-map tuple carried on each instruction, so
// the core can render findings against the original text without
// re-parsing it (the Contract keeps the original IR text for exactly
// this purpose, per spec.md §3).
type SourceSpan struct {
	StartLine, StartCol int
	StopLine, StopCol   int
	Valid               bool
}

// Instruction is the closed sum type every IR node in a BasicBlock
// implements.
type Instruction interface {
	User
	Kind() InstructionKind
	Block() *BasicBlock
	setBlock(*BasicBlock)
	BBIndex() int
	setBBIndex(int)
	SourceMap() SourceSpan
	SetSourceMap(SourceSpan)
	IsTerminator() bool
	IsHalt() bool
	Result() Value
	String() string
}

// Terminator is the subset of Instruction kinds allowed to end a
// BasicBlock: Return, Branch, Switch, Unreachable.
type Terminator interface {
	Instruction
	Successors() []*BasicBlock
}

// BaseInst is embedded by every concrete instruction type; it carries
// the header fields common to all instructions (spec.md §3: "owning
// basic block, index within that block, optional source-map tuple, and
// bidirectional operand/user edges").
type BaseInst struct {
	valueBase
	block   *BasicBlock
	bbIndex int
	span    SourceSpan
}

func newBaseInst(a *Arena) BaseInst { return BaseInst{valueBase: newValueBase(a)} }

func (b *BaseInst) Block() *BasicBlock        { return b.block }
func (b *BaseInst) setBlock(bb *BasicBlock)   { b.block = bb }
func (b *BaseInst) BBIndex() int              { return b.bbIndex }
func (b *BaseInst) setBBIndex(i int)          { b.bbIndex = i }
func (b *BaseInst) SourceMap() SourceSpan     { return b.span }
func (b *BaseInst) SetSourceMap(s SourceSpan) { b.span = s }
func (b *BaseInst) IsHalt() bool              { return false }

// --- Control instructions ---

// ReturnInst returns zero or more values from the current function.
type ReturnInst struct {
	BaseInst
	Values []Value
}

func NewReturnInst(a *Arena, values []Value) *ReturnInst {
	r := &ReturnInst{BaseInst: newBaseInst(a), Values: values}
	for _, v := range values {
		use(v, r)
	}
	return r
}

func (r *ReturnInst) Kind() InstructionKind { return KindReturn }
func (r *ReturnInst) Operands() []Value     { return r.Values }
func (r *ReturnInst) Result() Value         { return nil }
func (r *ReturnInst) IsTerminator() bool    { return true }
func (r *ReturnInst) Successors() []*BasicBlock { return nil }
func (r *ReturnInst) String() string        { return "return" }

// BranchInst is a 0- or 1-condition, 1- or 2-successor branch. A nil
// Condition with a single True successor is an unconditional jump.
type BranchInst struct {
	BaseInst
	Condition    Value
	True, False  *BasicBlock
}

func NewBranchInst(a *Arena, cond Value, trueBB, falseBB *BasicBlock) *BranchInst {
	b := &BranchInst{BaseInst: newBaseInst(a), Condition: cond, True: trueBB, False: falseBB}
	use(cond, b)
	return b
}

func (b *BranchInst) Kind() InstructionKind { return KindBranch }
func (b *BranchInst) Result() Value         { return nil }
func (b *BranchInst) IsTerminator() bool    { return true }
func (b *BranchInst) Operands() []Value {
	if b.Condition == nil {
		return nil
	}
	return []Value{b.Condition}
}
func (b *BranchInst) Successors() []*BasicBlock {
	if b.False == nil {
		return []*BasicBlock{b.True}
	}
	return []*BasicBlock{b.False, b.True}
}
func (b *BranchInst) Unconditional() bool { return b.Condition == nil }
func (b *BranchInst) String() string {
	if b.Unconditional() {
		return "br"
	}
	return "br.cond"
}

// SwitchCase is one literal case of a SwitchInst.
type SwitchCase struct {
	Value Value // a Constant
	Block *BasicBlock
}

// SwitchInst dispatches on a condition value to N literal cases plus a
// required default.
type SwitchInst struct {
	BaseInst
	Condition Value
	Cases     []SwitchCase
	Default   *BasicBlock
}

func NewSwitchInst(a *Arena, cond Value, cases []SwitchCase, def *BasicBlock) *SwitchInst {
	s := &SwitchInst{BaseInst: newBaseInst(a), Condition: cond, Cases: cases, Default: def}
	use(cond, s)
	for _, c := range cases {
		use(c.Value, s)
	}
	return s
}

func (s *SwitchInst) Kind() InstructionKind { return KindSwitch }
func (s *SwitchInst) Result() Value         { return nil }
func (s *SwitchInst) IsTerminator() bool    { return true }
func (s *SwitchInst) Operands() []Value {
	ops := []Value{s.Condition}
	for _, c := range s.Cases {
		ops = append(ops, c.Value)
	}
	return ops
}
func (s *SwitchInst) Successors() []*BasicBlock {
	out := make([]*BasicBlock, 0, len(s.Cases)+1)
	for _, c := range s.Cases {
		out = append(out, c.Block)
	}
	if s.Default != nil {
		out = append(out, s.Default)
	}
	return out
}
func (s *SwitchInst) String() string { return "switch" }

// UnreachableInst marks dead code: after an opcode flagged is_halt_inst,
// or a switch default deemed unreachable (spec.md §4.1 item 4). This is
// also where a DFS path ends (spec.md §4.5).
type UnreachableInst struct {
	BaseInst
}

func NewUnreachableInst(a *Arena) *UnreachableInst {
	return &UnreachableInst{BaseInst: newBaseInst(a)}
}

func (u *UnreachableInst) Kind() InstructionKind    { return KindUnreachable }
func (u *UnreachableInst) Result() Value            { return nil }
func (u *UnreachableInst) Operands() []Value        { return nil }
func (u *UnreachableInst) IsTerminator() bool        { return true }
func (u *UnreachableInst) Successors() []*BasicBlock { return nil }
func (u *UnreachableInst) String() string            { return "unreachable" }

// --- Call / SSA glue ---

// CallInst calls another Function (possibly returning a tuple, see
// ExtractReturnValueInst).
type CallInst struct {
	BaseInst
	Callee *Function
	Args   []Value
}

func NewCallInst(a *Arena, callee *Function, args []Value) *CallInst {
	c := &CallInst{BaseInst: newBaseInst(a), Callee: callee, Args: args}
	for _, arg := range args {
		use(arg, c)
	}
	return c
}

func (c *CallInst) Kind() InstructionKind { return KindCall }
func (c *CallInst) Operands() []Value     { return c.Args }
func (c *CallInst) Result() Value         { return c }
func (c *CallInst) IsTerminator() bool    { return false }
func (c *CallInst) String() string {
	if c.Callee != nil {
		return "call " + c.Callee.Name
	}
	return "call"
}

// ExtractReturnValueInst projects the i-th element of a tuple-returning
// CallInst.
type ExtractReturnValueInst struct {
	BaseInst
	Call  *CallInst
	Index int
}

func NewExtractReturnValueInst(a *Arena, call *CallInst, index int) *ExtractReturnValueInst {
	e := &ExtractReturnValueInst{BaseInst: newBaseInst(a), Call: call, Index: index}
	use(call, e)
	return e
}

func (e *ExtractReturnValueInst) Kind() InstructionKind { return KindExtractReturnValue }
func (e *ExtractReturnValueInst) Operands() []Value     { return []Value{e.Call} }
func (e *ExtractReturnValueInst) Result() Value         { return e }
func (e *ExtractReturnValueInst) IsTerminator() bool    { return false }
func (e *ExtractReturnValueInst) String() string        { return "extract_return_value" }

// PhiInst picks a value based on which predecessor edge was taken.
// Preds and Values are parallel slices of equal length (spec.md §8
// "Phi shape").
type PhiInst struct {
	BaseInst
	Preds  []*BasicBlock
	Values []Value
}

func NewPhiInst(a *Arena) *PhiInst {
	return &PhiInst{BaseInst: newBaseInst(a)}
}

// AddIncoming appends one predecessor/value pair, wiring the back-edge.
func (p *PhiInst) AddIncoming(pred *BasicBlock, v Value) {
	p.Preds = append(p.Preds, pred)
	p.Values = append(p.Values, v)
	use(v, p)
}

// ValueFor returns the incoming value for a given predecessor block, or
// nil if pred is not (yet) a recorded predecessor.
func (p *PhiInst) ValueFor(pred *BasicBlock) Value {
	for i, bb := range p.Preds {
		if bb == pred {
			return p.Values[i]
		}
	}
	return nil
}

// AllSame reports whether every incoming value has the same (arena, id)
// -- the condition under which phi-simplification removes this node
// (spec.md §4.1 item 12, §8).
func (p *PhiInst) AllSame() bool {
	if len(p.Values) == 0 {
		return false
	}
	first := p.Values[0]
	for _, v := range p.Values[1:] {
		if !sameValue(first, v) {
			return false
		}
	}
	return true
}

func (p *PhiInst) Kind() InstructionKind { return KindPhi }
func (p *PhiInst) Operands() []Value     { return p.Values }
func (p *PhiInst) Result() Value         { return p }
func (p *PhiInst) IsTerminator() bool    { return false }
func (p *PhiInst) String() string        { return "phi" }
