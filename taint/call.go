package taint

import (
	"math/big"
	"strings"

	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/typeparse"
)

// FindEncodePtr walks an instance's origin chain down to the
// `allocate_unbounded` YulFuncInst at the root of an ABI-encode's
// destination-pointer arithmetic (spec.md §4.6 item 3): through a
// non-packed ABIEncodeInst's own result pointer, or through an EVM ADD
// whose index operand is either a Datasize opcode or a 32-aligned (or
// 4-byte header) constant offset. Returns nil if the chain bottoms out
// anywhere else.
func FindEncodePtr(instance Instance) Instance {
	if instance == nil {
		return nil
	}
	origin := instance.Origin()

	switch v := origin.IRValue().(type) {
	case *ir.ABIEncodeInst:
		if v.Packed {
			return nil
		}
		ops := origin.OperandInstances()
		if len(ops) == 0 {
			return nil
		}
		return FindEncodePtr(ops[0])

	case *ir.EVMInst:
		if v.Op != ir.OpADD {
			return nil
		}
		ops := origin.OperandInstances()
		if len(ops) != 2 {
			return nil
		}
		base, index := ops[0], ops[1]
		idxOrigin := index.Origin()
		if evm, ok := idxOrigin.IRValue().(*ir.EVMInst); ok && evm.Op == ir.OpDATASIZE {
			return FindEncodePtr(base)
		}
		if c, ok := idxOrigin.IRValue().(*ir.Constant); ok && c.Kind == ir.ConstInt {
			if c.Int == 4 || c.Int%32 == 0 {
				return FindEncodePtr(base)
			}
		}
		return nil

	case *ir.YulFuncInst:
		if v.Name == "allocate_unbounded" {
			return origin
		}
		return nil

	default:
		return nil
	}
}

// RecordCallArgs recovers the logical argument list of a non-packed
// ABIEncode by parsing its type_str (spec.md §4.6 item 1). A
// stringliteral-typed logical argument consumes no memory operand (the
// literal is the encode instance itself); a calldata_ptr-typed one
// consumes two (offset + length); every other type consumes one.
func RecordCallArgs(instance Instance) []Instance {
	enc, ok := instance.IRValue().(*ir.ABIEncodeInst)
	if !ok {
		return nil
	}
	if enc.TypeStr == "_to__fromStack" {
		return nil
	}
	// TypeStr is "<source types>__to_<target types>__fromStack"; only the
	// source types describe the encode's operands.
	fromTypes := enc.TypeStr
	if i := strings.Index(fromTypes, "__to_"); i >= 0 {
		fromTypes = fromTypes[:i]
	}
	types, err := typeparse.ParseMultiType(fromTypes)
	if err != nil {
		return nil
	}

	ops := instance.OperandInstances()
	var args []Instance
	stringLiterals := 0
	twoArgCalldataPtrs := 0

	for i := range types {
		typeStr := typeparse.TypeStrByIndex(types, i)
		idx := i + 1 - stringLiterals + twoArgCalldataPtrs

		if strings.Contains(typeStr, "stringliteral") {
			stringLiterals++
			args = append(args, instance)
			continue
		}
		if idx >= 0 && idx < len(ops) {
			args = append(args, ops[idx])
		}
		if typeparse.IsTwoArgCalldataPointer(typeStr) {
			twoArgCalldataPtrs++
		}
	}
	return args
}

// RecordCallSignature recovers a 4-byte selector from prev, the
// ValueInstance visited immediately before the current ABIEncode
// (spec.md §4.6 item 2): prev must be an MSTORE whose value operand
// resolves to a ConstantInt, directly, through one level of a
// single-operand wrapper, or through a type-convert / extract-
// return-value origin chain.
func RecordCallSignature(prev Instance) (uint32, bool) {
	if prev == nil {
		return 0, false
	}
	mstore, ok := prev.IRValue().(*ir.EVMInst)
	if !ok || mstore.Op != ir.OpMSTORE {
		return 0, false
	}
	ops := prev.OperandInstances()
	if len(ops) < 2 {
		return 0, false
	}
	valueInst := ops[1]

	if valueOps := valueInst.OperandInstances(); len(valueOps) == 1 {
		if n, ok := rawConstInt(valueOps[0]); ok {
			return uint32(n.Uint64()), true
		}
	}
	if n, ok := rawConstInt(valueInst); ok {
		return selectorFromFullWidth(n), true
	}
	switch valueInst.IRValue().(type) {
	case *ir.TypeConvertInstruction, *ir.ExtractReturnValueInst:
		if n, ok := rawConstInt(valueInst.Origin()); ok {
			return selectorFromFullWidth(n), true
		}
	}
	return 0, false
}

func rawConstInt(inst Instance) (*big.Int, bool) {
	c, ok := inst.IRValue().(*ir.Constant)
	if !ok || c.Kind != ir.ConstInt {
		return nil, false
	}
	n := new(big.Int)
	text := c.IntText
	base := 10
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		base = 16
		text = text[2:]
	}
	if text == "" {
		return big.NewInt(c.Int), true
	}
	if _, ok := n.SetString(text, base); !ok {
		return big.NewInt(c.Int), true
	}
	return n, true
}

func selectorFromFullWidth(n *big.Int) uint32 {
	shifted := new(big.Int).Rsh(n, 224)
	return uint32(shifted.Uint64())
}

// UpdateAbiEncode runs the full spec.md §4.6 ABI-encode-to-call
// recovery for a freshly visited non-packed ABIEncode instance: records
// its call_args and (if recoverable from prev) function_signature, then
// propagates both plus the accumulated taint set onto its encode
// pointer so a later CALL can recover them through the call-offset
// operand (see UpdateCall).
func UpdateAbiEncode(instance Instance, prev Instance) {
	enc, ok := instance.IRValue().(*ir.ABIEncodeInst)
	if !ok || enc.Packed {
		return
	}
	instance.SetCallArgs(RecordCallArgs(instance))
	if sig, ok := RecordCallSignature(prev); ok {
		instance.SetFunctionSignature(sig)
	}

	ptr := FindEncodePtr(instance)
	if ptr == nil {
		return
	}
	ptr.Taints().Union(instance.Taints())
	ptr.SetCallArgs(instance.CallArgs())
	if sig, ok := instance.FunctionSignature(); ok {
		ptr.SetFunctionSignature(sig)
	}
}

// UpdateCall is the CALL-side counterpart of UpdateAbiEncode: on a
// freshly visited CALL-family instance, its call-offset operand is
// walked back (via FindEncodePtr) to the encode pointer an earlier
// ABIEncode stamped, and that pointer's call_args/function_signature/
// taints are copied onto the call instance itself.
func UpdateCall(instance Instance) {
	evm, ok := instance.IRValue().(*ir.EVMInst)
	if !ok {
		return
	}
	var offsetIdx int
	switch evm.Op {
	case ir.OpCALL, ir.OpCALLCODE:
		offsetIdx = 3
	case ir.OpSTATICCALL, ir.OpDELEGATECALL:
		offsetIdx = 2
	default:
		return
	}
	ops := instance.OperandInstances()
	if offsetIdx >= len(ops) {
		return
	}
	ptr := FindEncodePtr(ops[offsetIdx])
	if ptr == nil {
		return
	}
	instance.Taints().Union(ptr.Taints())
	instance.SetCallArgs(ptr.CallArgs())
	if sig, ok := ptr.FunctionSignature(); ok {
		instance.SetFunctionSignature(sig)
	}
}
