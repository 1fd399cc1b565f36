package normalize

import (
	"regexp"

	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/typeparse"
)

var (
	reAllocArray      = regexp.MustCompile(`^allocate_memory_array_(.+)$`)
	reAllocStruct     = regexp.MustCompile(`^allocate_memory_struct_(.+)$`)
	reAllocUnbounded  = regexp.MustCompile(`^allocate_unbounded$`)
	reAllocatePlain   = regexp.MustCompile(`^allocate_memory$`)
	reZeroValue       = regexp.MustCompile(`^zero_value_for_split_(.+?)(?:_memory_ptr)?$`)
	reWriteMemory     = regexp.MustCompile(`^write_to_memory_(.+)$`)
	reReadMemory      = regexp.MustCompile(`^read_from_memory_(.+)$`)
	reReadCalldata    = regexp.MustCompile(`^read_from_calldata_(.+)$`)
	reMemoryIndex     = regexp.MustCompile(`^memory_array_index_access_(.+)$`)
	reCalldataIndex   = regexp.MustCompile(`^calldata_array_index_access_(.+)$`)
	reCalldataTail    = regexp.MustCompile(`^access_calldata_tail_(.+)$`)
	reExtractRetData  = regexp.MustCompile(`^extract_returndata$`)
	reTryDecodeErr    = regexp.MustCompile(`^try_decode_error_message$`)
	reABIEncodeTuple  = regexp.MustCompile(`^abi_encode_tuple(_packed)?_(.*)$`)
	reABIDecodeTuple  = regexp.MustCompile(`^abi_decode_tuple_(.+?)(_fromMemory)?$`)
	reStringConcat    = regexp.MustCompile(`^string_concat(?:_.*)?$`)
	reBytesConcat     = regexp.MustCompile(`^bytes_concat(?:_.*)?$`)
	reCopyArrayStore  = regexp.MustCompile(`^copy_array_from_storage_to_memory_(.+)$`)
	reCopyLiteral     = regexp.MustCompile(`^copy_literal_to_memory_(.+)$`)
	reArrayLenMemCd   = regexp.MustCompile(`^array_length_(.+)_(memory_ptr|calldata_ptr)$`)
)

// tryMemory recognizes the memory/calldata helper families spec.md §4.2
// names. inst is the original call, consulted only for abi_decode_tuple:
// a multi-return decode arrives as one YulFuncInst per logical return,
// each stamped with the ReturnIndex/ReturnCount the lifter assigned it
// (package lift), since a CallInst never carries those -- a declared
// function's multiple returns already come back through
// ExtractReturnValueInst instead.
func tryMemory(a *ir.Arena, name string, args []ir.Value, inst ir.Instruction) (ir.Instruction, bool) {
	switch {
	case reAllocArray.MatchString(name):
		m := reAllocArray.FindStringSubmatch(name)
		return ir.NewAllocateMemoryInst(a, m[1], false, arg(args, 0)), true
	case reAllocStruct.MatchString(name):
		m := reAllocStruct.FindStringSubmatch(name)
		return ir.NewAllocateMemoryInst(a, m[1], false, arg(args, 0)), true
	case reAllocUnbounded.MatchString(name):
		return ir.NewAllocateMemoryInst(a, "", true, nil), true
	case reAllocatePlain.MatchString(name):
		return ir.NewAllocateMemoryInst(a, "", false, arg(args, 0)), true
	case reZeroValue.MatchString(name):
		// Zero-initializing a split value is, in effect, reserving a
		// fixed-size region for it with no explicit size argument -- the
		// same AllocateMemoryInst shape a fixed-size allocation uses,
		// since no normalized kind distinguishes "allocate" from
		// "materialize the zero value for".
		m := reZeroValue.FindStringSubmatch(name)
		return ir.NewAllocateMemoryInst(a, m[1], false, nil), true
	case reWriteMemory.MatchString(name):
		m := reWriteMemory.FindStringSubmatch(name)
		return ir.NewWriteToMemoryInst(a, m[1], arg(args, 0), arg(args, 1)), true
	case reReadCalldata.MatchString(name):
		m := reReadCalldata.FindStringSubmatch(name)
		return ir.NewReadFromCalldataInst(a, m[1], arg(args, 0)), true
	case reReadMemory.MatchString(name):
		m := reReadMemory.FindStringSubmatch(name)
		return ir.NewReadFromMemoryInst(a, m[1], arg(args, 0)), true
	case reMemoryIndex.MatchString(name):
		m := reMemoryIndex.FindStringSubmatch(name)
		return ir.NewIndexAccessInst(a, m[1], "memory_ptr", arg(args, 0), arg(args, 1)), true
	case reCalldataIndex.MatchString(name):
		m := reCalldataIndex.FindStringSubmatch(name)
		return ir.NewIndexAccessInst(a, m[1], "calldata_ptr", arg(args, 0), arg(args, 1)), true
	case reCalldataTail.MatchString(name):
		m := reCalldataTail.FindStringSubmatch(name)
		return ir.NewReadFromCalldataInst(a, m[1], arg(args, 0)), true
	case reArrayLenMemCd.MatchString(name):
		m := reArrayLenMemCd.FindStringSubmatch(name)
		return ir.NewArrayLengthInst(a, m[1], m[2], arg(args, 0)), true
	case reExtractRetData.MatchString(name), reTryDecodeErr.MatchString(name):
		return ir.NewExtractReturnDataInst(a), true
	case reABIEncodeTuple.MatchString(name):
		m := reABIEncodeTuple.FindStringSubmatch(name)
		return ir.NewABIEncodeInst(a, m[2], m[1] != "", arg(args, 0), restArgs(args, 1)), true
	case reABIDecodeTuple.MatchString(name):
		return tryABIDecode(a, name, args, inst)
	case reStringConcat.MatchString(name):
		return ir.NewConcatInst(a, "string", args), true
	case reBytesConcat.MatchString(name):
		return ir.NewConcatInst(a, "bytes", args), true
	case reCopyArrayStore.MatchString(name):
		m := reCopyArrayStore.FindStringSubmatch(name)
		return ir.NewCopyArrayInst(a, m[1], arg(args, 0), arg(args, 1)), true
	case reCopyLiteral.MatchString(name):
		// The literal bytes are baked into the helper's own body by the
		// compiler rather than passed positionally, so only the memory
		// destination is recoverable from the call site; Literal is left
		// nil (an accepted simplification -- full recovery would need to
		// read the callee's body, not just its name).
		return ir.NewCopyLiteralInst(a, arg(args, 0), nil), true
	}
	return nil, false
}

func restArgs(args []ir.Value, from int) []ir.Value {
	if from >= len(args) {
		return nil
	}
	return args[from:]
}

// tryABIDecode recovers the logical return's mangled type string from
// the concatenated type list embedded in the helper name (spec.md §4.3's
// multi-type grammar), then builds the calldata- or memory-sourced typed
// decode node. A two-arg calldata-pointer logical return (spec.md §4.2's
// predicate) additionally consumes the call's second argument as its
// length operand.
func tryABIDecode(a *ir.Arena, name string, args []ir.Value, inst ir.Instruction) (ir.Instruction, bool) {
	m := reABIDecodeTuple.FindStringSubmatch(name)
	if m == nil {
		return nil, false
	}
	fromMemory := m[2] != ""

	idx, count := 0, 1
	if yf, ok := inst.(*ir.YulFuncInst); ok {
		idx, count = yf.ReturnIndex, yf.ReturnCount
		if count == 0 {
			count = 1
		}
	}

	typeStr := ""
	if types, err := typeparse.ParseMultiType(m[1]); err == nil {
		typeStr = typeparse.TypeStrByIndex(types, idx)
	}

	offset := arg(args, 0)
	if fromMemory {
		return ir.NewABIDecodeFromMemoryInst(a, typeStr, idx, count, offset), true
	}
	var length ir.Value
	if typeparse.IsTwoArgCalldataPointer(typeStr) {
		length = arg(args, 1)
	}
	return ir.NewABIDecodeFromCallDataInst(a, typeStr, idx, count, offset, length), true
}
