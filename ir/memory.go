package ir

// The typed memory/calldata instructions produced by normalization
// (package normalize) from recognized Yul helper calls (spec.md §4.2).
// Each keeps a TypeStr, the mangled compiler type string recovered from
// the helper name, since downstream detectors and the type parser
// (package typeparse) consume it directly rather than a resolved Type.

// AllocateMemoryInst reserves a memory region (array, struct, or an
// "allocate_unbounded" encode pointer -- see spec.md §4.6 item 3).
type AllocateMemoryInst struct {
	BaseInst
	TypeStr    string
	Unbounded  bool
	SizeArg    Value // nil for unbounded/struct allocations with a fixed size baked into TypeStr
}

func NewAllocateMemoryInst(a *Arena, typeStr string, unbounded bool, size Value) *AllocateMemoryInst {
	inst := &AllocateMemoryInst{BaseInst: newBaseInst(a), TypeStr: typeStr, Unbounded: unbounded, SizeArg: size}
	use(size, inst)
	return inst
}

func (i *AllocateMemoryInst) Kind() InstructionKind { return KindAllocateMemory }
func (i *AllocateMemoryInst) Result() Value         { return i }
func (i *AllocateMemoryInst) IsTerminator() bool    { return false }
func (i *AllocateMemoryInst) Operands() []Value {
	if i.SizeArg == nil {
		return nil
	}
	return []Value{i.SizeArg}
}
func (i *AllocateMemoryInst) String() string { return "allocate_memory" }

// WriteToMemoryInst is `write_to_memory_…`: the write-side counterpart
// of ReadFromMemoryInst. Like StorageUpdateInst it has no result.
type WriteToMemoryInst struct {
	BaseInst
	TypeStr string
	Offset  Value
	Value   Value
}

func NewWriteToMemoryInst(a *Arena, typeStr string, offset, value Value) *WriteToMemoryInst {
	i := &WriteToMemoryInst{BaseInst: newBaseInst(a), TypeStr: typeStr, Offset: offset, Value: value}
	use(offset, i)
	use(value, i)
	return i
}
func (i *WriteToMemoryInst) Kind() InstructionKind { return KindWriteToMemory }
func (i *WriteToMemoryInst) Result() Value         { return nil }
func (i *WriteToMemoryInst) IsTerminator() bool    { return false }
func (i *WriteToMemoryInst) Operands() []Value     { return []Value{i.Offset, i.Value} }
func (i *WriteToMemoryInst) String() string        { return "write_to_memory" }

// ReadFromMemoryInst / ReadFromCalldataInst read a typed value from
// memory or calldata at an offset.
type ReadFromMemoryInst struct {
	BaseInst
	TypeStr string
	Offset  Value
}

func NewReadFromMemoryInst(a *Arena, typeStr string, offset Value) *ReadFromMemoryInst {
	i := &ReadFromMemoryInst{BaseInst: newBaseInst(a), TypeStr: typeStr, Offset: offset}
	use(offset, i)
	return i
}
func (i *ReadFromMemoryInst) Kind() InstructionKind { return KindReadFromMemory }
func (i *ReadFromMemoryInst) Result() Value         { return i }
func (i *ReadFromMemoryInst) IsTerminator() bool    { return false }
func (i *ReadFromMemoryInst) Operands() []Value     { return []Value{i.Offset} }
func (i *ReadFromMemoryInst) String() string        { return "read_from_memory" }

type ReadFromCalldataInst struct {
	BaseInst
	TypeStr string
	Offset  Value
}

func NewReadFromCalldataInst(a *Arena, typeStr string, offset Value) *ReadFromCalldataInst {
	i := &ReadFromCalldataInst{BaseInst: newBaseInst(a), TypeStr: typeStr, Offset: offset}
	use(offset, i)
	return i
}
func (i *ReadFromCalldataInst) Kind() InstructionKind { return KindReadFromCalldata }
func (i *ReadFromCalldataInst) Result() Value         { return i }
func (i *ReadFromCalldataInst) IsTerminator() bool    { return false }
func (i *ReadFromCalldataInst) Operands() []Value     { return []Value{i.Offset} }
func (i *ReadFromCalldataInst) String() string        { return "read_from_calldata" }

// ArrayLengthInst reads the length of a memory-, calldata-, or
// storage-backed array (the storage variant is StorageArrayLengthInst).
type ArrayLengthInst struct {
	BaseInst
	TypeStr string
	Loc     string // "memory_ptr" or "calldata_ptr"
	Base    Value
}

func NewArrayLengthInst(a *Arena, typeStr, loc string, base Value) *ArrayLengthInst {
	i := &ArrayLengthInst{BaseInst: newBaseInst(a), TypeStr: typeStr, Loc: loc, Base: base}
	use(base, i)
	return i
}
func (i *ArrayLengthInst) Kind() InstructionKind { return KindArrayLength }
func (i *ArrayLengthInst) Result() Value         { return i }
func (i *ArrayLengthInst) IsTerminator() bool    { return false }
func (i *ArrayLengthInst) Operands() []Value     { return []Value{i.Base} }
func (i *ArrayLengthInst) String() string        { return "array_length" }

// DataSlotInst recovers the storage dataslot of a dynamic array/mapping
// base (`array_dataslot_…`).
type DataSlotInst struct {
	BaseInst
	TypeStr string
	Base    Value
}

func NewDataSlotInst(a *Arena, typeStr string, base Value) *DataSlotInst {
	i := &DataSlotInst{BaseInst: newBaseInst(a), TypeStr: typeStr, Base: base}
	use(base, i)
	return i
}
func (i *DataSlotInst) Kind() InstructionKind { return KindDataSlot }
func (i *DataSlotInst) Result() Value         { return i }
func (i *DataSlotInst) IsTerminator() bool    { return false }
func (i *DataSlotInst) Operands() []Value     { return []Value{i.Base} }
func (i *DataSlotInst) String() string        { return "array_dataslot" }

// IndexAccessInst is memory/calldata array element indexing.
type IndexAccessInst struct {
	BaseInst
	TypeStr string
	Loc     string
	Base    Value
	Index   Value
}

func NewIndexAccessInst(a *Arena, typeStr, loc string, base, index Value) *IndexAccessInst {
	i := &IndexAccessInst{BaseInst: newBaseInst(a), TypeStr: typeStr, Loc: loc, Base: base, Index: index}
	use(base, i)
	use(index, i)
	return i
}
func (i *IndexAccessInst) Kind() InstructionKind { return KindIndexAccess }
func (i *IndexAccessInst) Result() Value         { return i }
func (i *IndexAccessInst) IsTerminator() bool    { return false }
func (i *IndexAccessInst) Operands() []Value     { return []Value{i.Base, i.Index} }
func (i *IndexAccessInst) String() string        { return "index_access" }

// StructIndexAccessInst is memory/calldata struct field access.
type StructIndexAccessInst struct {
	BaseInst
	TypeStr string
	Field   string
	Base    Value
}

func NewStructIndexAccessInst(a *Arena, typeStr, field string, base Value) *StructIndexAccessInst {
	i := &StructIndexAccessInst{BaseInst: newBaseInst(a), TypeStr: typeStr, Field: field, Base: base}
	use(base, i)
	return i
}
func (i *StructIndexAccessInst) Kind() InstructionKind { return KindStructIndexAccess }
func (i *StructIndexAccessInst) Result() Value         { return i }
func (i *StructIndexAccessInst) IsTerminator() bool    { return false }
func (i *StructIndexAccessInst) Operands() []Value     { return []Value{i.Base} }
func (i *StructIndexAccessInst) String() string        { return "struct_index_access" }

// ABIEncodeInst is `abi_encode_tuple[_packed]_…`. The call arguments and
// selector the ABI-encode-to-call recovery pass (spec.md §4.6) recovers
// for it are not stored here: they are recorded on the traversal's
// per-path instance of this instruction when it is visited.
type ABIEncodeInst struct {
	BaseInst
	TypeStr  string
	Packed   bool
	Args     []Value // memory operands consumed by the encode, in order
	ResultPtr Value  // destination memory pointer operand
}

func NewABIEncodeInst(a *Arena, typeStr string, packed bool, dst Value, args []Value) *ABIEncodeInst {
	i := &ABIEncodeInst{BaseInst: newBaseInst(a), TypeStr: typeStr, Packed: packed, ResultPtr: dst, Args: args}
	use(dst, i)
	for _, arg := range args {
		use(arg, i)
	}
	return i
}
func (i *ABIEncodeInst) Kind() InstructionKind { return KindABIEncode }
func (i *ABIEncodeInst) Result() Value         { return i }
func (i *ABIEncodeInst) IsTerminator() bool    { return false }
func (i *ABIEncodeInst) Operands() []Value {
	ops := make([]Value, 0, len(i.Args)+1)
	if i.ResultPtr != nil {
		ops = append(ops, i.ResultPtr)
	}
	return append(ops, i.Args...)
}
func (i *ABIEncodeInst) String() string { return "abi_encode_tuple" }

// ABIDecodeFromCallDataInst / ABIDecodeFromMemoryInst decode one logical
// return value (spec.md §4.2: "expanded into one YulFuncInst per logical
// return"; after the memory rewrite these become these typed nodes).
type ABIDecodeFromCallDataInst struct {
	BaseInst
	TypeStr     string
	ReturnIndex int
	ReturnCount int
	Offset      Value
	Length      Value // non-nil only for two-arg calldata-pointer logical returns
}

func NewABIDecodeFromCallDataInst(a *Arena, typeStr string, idx, count int, offset, length Value) *ABIDecodeFromCallDataInst {
	i := &ABIDecodeFromCallDataInst{BaseInst: newBaseInst(a), TypeStr: typeStr, ReturnIndex: idx, ReturnCount: count, Offset: offset, Length: length}
	use(offset, i)
	use(length, i)
	return i
}
func (i *ABIDecodeFromCallDataInst) Kind() InstructionKind { return KindABIDecodeFromCallData }
func (i *ABIDecodeFromCallDataInst) Result() Value         { return i }
func (i *ABIDecodeFromCallDataInst) IsTerminator() bool    { return false }
func (i *ABIDecodeFromCallDataInst) Operands() []Value {
	if i.Length == nil {
		return []Value{i.Offset}
	}
	return []Value{i.Offset, i.Length}
}
func (i *ABIDecodeFromCallDataInst) String() string { return "abi_decode_from_calldata" }

type ABIDecodeFromMemoryInst struct {
	BaseInst
	TypeStr     string
	ReturnIndex int
	ReturnCount int
	Offset      Value
}

func NewABIDecodeFromMemoryInst(a *Arena, typeStr string, idx, count int, offset Value) *ABIDecodeFromMemoryInst {
	i := &ABIDecodeFromMemoryInst{BaseInst: newBaseInst(a), TypeStr: typeStr, ReturnIndex: idx, ReturnCount: count, Offset: offset}
	use(offset, i)
	return i
}
func (i *ABIDecodeFromMemoryInst) Kind() InstructionKind { return KindABIDecodeFromMemory }
func (i *ABIDecodeFromMemoryInst) Result() Value         { return i }
func (i *ABIDecodeFromMemoryInst) IsTerminator() bool    { return false }
func (i *ABIDecodeFromMemoryInst) Operands() []Value     { return []Value{i.Offset} }
func (i *ABIDecodeFromMemoryInst) String() string        { return "abi_decode_from_memory" }

// ConcatInst is `string_concat_…` / `bytes_concat_…`.
type ConcatInst struct {
	BaseInst
	TypeStr string
	Parts   []Value
}

func NewConcatInst(a *Arena, typeStr string, parts []Value) *ConcatInst {
	i := &ConcatInst{BaseInst: newBaseInst(a), TypeStr: typeStr, Parts: parts}
	for _, p := range parts {
		use(p, i)
	}
	return i
}
func (i *ConcatInst) Kind() InstructionKind { return KindConcat }
func (i *ConcatInst) Result() Value         { return i }
func (i *ConcatInst) IsTerminator() bool    { return false }
func (i *ConcatInst) Operands() []Value     { return i.Parts }
func (i *ConcatInst) String() string        { return "concat" }

// ConvertReferenceInst is `convert_array_…` / `convert_t_struct_…`: a
// reference-type conversion that preserves the underlying data location.
type ConvertReferenceInst struct {
	BaseInst
	FromType, ToType string
	Operand          Value
}

func NewConvertReferenceInst(a *Arena, from, to string, operand Value) *ConvertReferenceInst {
	i := &ConvertReferenceInst{BaseInst: newBaseInst(a), FromType: from, ToType: to, Operand: operand}
	use(operand, i)
	return i
}
func (i *ConvertReferenceInst) Kind() InstructionKind { return KindConvertReference }
func (i *ConvertReferenceInst) Result() Value         { return i }
func (i *ConvertReferenceInst) IsTerminator() bool    { return false }
func (i *ConvertReferenceInst) Operands() []Value     { return []Value{i.Operand} }
func (i *ConvertReferenceInst) String() string        { return "convert_reference" }

// ConvertStringLiteralInst is `convert_t_stringliteral_…`.
type ConvertStringLiteralInst struct {
	BaseInst
	ToType  string
	Literal Value
}

func NewConvertStringLiteralInst(a *Arena, to string, lit Value) *ConvertStringLiteralInst {
	i := &ConvertStringLiteralInst{BaseInst: newBaseInst(a), ToType: to, Literal: lit}
	use(lit, i)
	return i
}
func (i *ConvertStringLiteralInst) Kind() InstructionKind { return KindConvertStringLiteral }
func (i *ConvertStringLiteralInst) Result() Value         { return i }
func (i *ConvertStringLiteralInst) IsTerminator() bool    { return false }
func (i *ConvertStringLiteralInst) Operands() []Value     { return []Value{i.Literal} }
func (i *ConvertStringLiteralInst) String() string        { return "convert_stringliteral" }

// CopyLiteralInst is `copy_literal_to_memory_…`.
type CopyLiteralInst struct {
	BaseInst
	Dest    Value
	Literal Value
}

func NewCopyLiteralInst(a *Arena, dest, literal Value) *CopyLiteralInst {
	i := &CopyLiteralInst{BaseInst: newBaseInst(a), Dest: dest, Literal: literal}
	use(dest, i)
	use(literal, i)
	return i
}
func (i *CopyLiteralInst) Kind() InstructionKind { return KindCopyLiteral }
func (i *CopyLiteralInst) Result() Value         { return i }
func (i *CopyLiteralInst) IsTerminator() bool    { return false }
func (i *CopyLiteralInst) Operands() []Value     { return []Value{i.Dest, i.Literal} }
func (i *CopyLiteralInst) String() string        { return "copy_literal_to_memory" }

// CopyArrayInst is `copy_array_from_storage_to_memory_…`.
type CopyArrayInst struct {
	BaseInst
	TypeStr string
	Src     Value
	Dst     Value
}

func NewCopyArrayInst(a *Arena, typeStr string, src, dst Value) *CopyArrayInst {
	i := &CopyArrayInst{BaseInst: newBaseInst(a), TypeStr: typeStr, Src: src, Dst: dst}
	use(src, i)
	use(dst, i)
	return i
}
func (i *CopyArrayInst) Kind() InstructionKind { return KindCopyArray }
func (i *CopyArrayInst) Result() Value         { return i }
func (i *CopyArrayInst) IsTerminator() bool    { return false }
func (i *CopyArrayInst) Operands() []Value     { return []Value{i.Src, i.Dst} }
func (i *CopyArrayInst) String() string        { return "copy_array" }

// ExtractReturnDataInst is `extract_returndata` / `try_decode_error_message`.
type ExtractReturnDataInst struct {
	BaseInst
}

func NewExtractReturnDataInst(a *Arena) *ExtractReturnDataInst {
	return &ExtractReturnDataInst{BaseInst: newBaseInst(a)}
}
func (i *ExtractReturnDataInst) Kind() InstructionKind { return KindExtractReturnData }
func (i *ExtractReturnDataInst) Result() Value         { return i }
func (i *ExtractReturnDataInst) IsTerminator() bool    { return false }
func (i *ExtractReturnDataInst) Operands() []Value     { return nil }
func (i *ExtractReturnDataInst) String() string        { return "extract_returndata" }
