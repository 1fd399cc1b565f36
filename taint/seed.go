package taint

import (
	"strings"

	"github.com/blocksecteam/hookscan/ir"
)

// Seed computes the instruction-shape-driven taint contribution for
// instance, the first half of spec.md §4.6's "taint is recomputed, then
// operand taints are unioned in" rule (the union itself is the caller's
// job, since it has no bearing on shape recognition). A handful of
// shapes also mutate an operand's own Set directly (EQ, STATIC/DELEGATE/
// CALL's returndata buffer) -- those side effects belong here too,
// since they're driven by the same instruction-shape dispatch.
//
// The seed-identity taints the original adds ("self-instance" alongside
// "caller" on CALLER, alongside "calldata" on ABIDecodeFromCallData) are
// not reproduced: they rely on a Python set holding a ValueInstance's
// own identity as a taint member, which a string-keyed Set has no room
// for. Any detector that needs "is this specific call site downstream
// of that instance" can walk Instance.Origin() directly instead.
func Seed(instance Instance) Set {
	s := NewSet()

	if c, ok := instance.Origin().IRValue().(*ir.Constant); ok && c.Kind == ir.ConstInt {
		s.Add("_constant")
	}

	switch v := instance.IRValue().(type) {
	case *ir.EVMInst:
		seedEVM(instance, v, s)
	case *ir.YulFuncInst:
		if strings.HasPrefix(v.Name, "constant") {
			s.Add("_constant")
		}
	case *ir.StorageReadInst:
		s.Add("_storageread")
	case *ir.ConcatInst:
		if strings.Contains(v.TypeStr, "_storage") {
			s.Add("_storageread")
		}
	case *ir.ConvertReferenceInst:
		if strings.Contains(v.FromType, "_storage") || strings.Contains(v.ToType, "_storage") {
			s.Add("_storageread")
		}
	case *ir.CopyArrayInst:
		if strings.Contains(v.TypeStr, "_storage") {
			s.Add("_storageread")
		}
	case *ir.StorageArrayLengthInst:
		s.Add("_array_length")
	case *ir.ArrayLengthInst:
		s.Add("_array_length")
	case *ir.ABIDecodeFromCallDataInst:
		s.Add("calldata")
	case *ir.ExtractReturnDataInst:
		s.Add("returndata")
	}

	return s
}

func seedEVM(instance Instance, v *ir.EVMInst, s Set) {
	ops := instance.OperandInstances()

	switch v.Op {
	case ir.OpADDRESS:
		s.Add("_address")
	case ir.OpORIGIN:
		s.Add("origin")
	case ir.OpCALLVALUE:
		s.Add("_callvalue")
	case ir.OpCALLER:
		s.Add("caller")
	case ir.OpLOADIMMUTABLE:
		s.Add("_loadimmutable")
	case ir.OpSLOAD:
		s.Add("_storageread")
	case ir.OpTIMESTAMP:
		s.Add("timestamp")
	case ir.OpNUMBER:
		s.Add("number")
	case ir.OpEQ:
		for _, op := range ops {
			op.Origin().Taints().Add("eq")
		}
	case ir.OpKECCAK256:
		if len(ops) == 2 && (ops[0].Taints().Has("calldata") || ops[1].Taints().Has("calldata")) {
			s.Add("_keccak256_after_calldata")
		}
	case ir.OpSTATICCALL:
		s.Add("returndata")
		if len(ops) > 1 {
			if c, ok := ops[1].IRValue().(*ir.Constant); ok && c.Kind == ir.ConstInt && c.Int == 1 {
				s.Add("_ecrecover")
			}
		}
		if len(ops) > 4 {
			ops[4].Taints().Add("returndata")
		}
	case ir.OpDELEGATECALL:
		s.Add("returndata")
		if len(ops) > 4 {
			ops[4].Taints().Add("returndata")
		}
	case ir.OpCALL, ir.OpCALLCODE:
		s.Add("returndata")
		if len(ops) > 5 {
			ops[5].Taints().Add("returndata")
		}
	case ir.OpRETURNDATACOPY:
		s.Add("returndata")
	}
}

// AfterUpdateTaint is spec.md §4.6's final taint-refinement pass, run
// once per visited instruction after Seed and the operand-union have
// already happened (so it can see instance's full accumulated Set, not
// just its own seed contribution).
func AfterUpdateTaint(instance Instance) {
	addStandardSelectorCallTaint(instance)

	evm, ok := instance.IRValue().(*ir.EVMInst)
	if !ok {
		return
	}

	switch evm.Op {
	case ir.OpCALL, ir.OpSTATICCALL, ir.OpDELEGATECALL, ir.OpCALLCODE:
		sig, ok := instance.FunctionSignature()
		if !ok || !NotConsiderProtectStandardSelector[sig] {
			return
		}
		instance.Taints().Add("_is_not_consider_protect_standard_returndata")
		ops := instance.OperandInstances()
		switch evm.Op {
		case ir.OpCALL, ir.OpCALLCODE:
			if len(ops) > 5 {
				ops[5].Taints().Add("_is_not_consider_protect_standard_returndata")
			}
		case ir.OpSTATICCALL, ir.OpDELEGATECALL:
			if len(ops) > 4 {
				ops[4].Taints().Add("_is_not_consider_protect_standard_returndata")
			}
		}
	case ir.OpKECCAK256:
		if instance.Taints().Has("calldata") {
			instance.Taints().Add("_keccak256_after_calldata")
		}
	}
}

// addStandardSelectorCallTaint seeds the ownerOf/isApprovedForAll/
// getApproved high-level-call markers a STATICCALL's returndata operand
// gets when its recovered selector matches one of those three methods
// (spec.md §4.6).
func addStandardSelectorCallTaint(instance Instance) {
	evm, ok := instance.IRValue().(*ir.EVMInst)
	if !ok || evm.Op != ir.OpSTATICCALL {
		return
	}
	sig, ok := instance.FunctionSignature()
	if !ok {
		return
	}
	ops := instance.OperandInstances()
	if len(ops) <= 4 {
		return
	}
	switch sig {
	case SelectorOwnerOf:
		ops[4].Taints().Add("_high_level_call_ownerof")
	case SelectorIsApprovedForAll:
		ops[4].Taints().Add("_high_level_call_isApprovedForAll")
	case SelectorGetApproved:
		ops[4].Taints().Add("_high_level_call_getApproved")
	}
}

// UpdateReturndata propagates a known preceding EVM call instance's
// taints onto an ExtractReturnData / RETURNDATACOPY visit. lastCall is
// found by the caller walking the current path backwards for the most
// recent CALL-shaped ValueInstance (spec.md §4.6); nil if none exists
// yet on this path.
func UpdateReturndata(instance Instance, lastCall Instance) {
	if lastCall == nil {
		return
	}
	switch v := instance.IRValue().(type) {
	case *ir.ExtractReturnDataInst:
		instance.Taints().Union(lastCall.Taints())
	case *ir.EVMInst:
		if v.Op == ir.OpRETURNDATACOPY {
			ops := instance.OperandInstances()
			if len(ops) > 0 {
				ops[0].Taints().Union(lastCall.Taints())
			}
		}
	}
}
