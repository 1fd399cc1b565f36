package traversal

import (
	"testing"

	"github.com/blocksecteam/hookscan/handler"
	"github.com/blocksecteam/hookscan/ir"
)

// buildCallerCheckFunction builds:
//
//	entry:  caller(); address(); eq(caller, address); br eq ? trueBB : falseBB
//	falseBB: return
//	trueBB:  return
//
// so the DFS visits falseBB's return unprotected and trueBB's return
// protected (caller==address is the self-check recognizer).
func buildCallerCheckFunction() (*ir.Contract, *ir.Function) {
	contract := ir.NewContract("test.sol", "Test")
	arena := contract.Arena
	fn := ir.NewFunction(arena, "external_fun_test", ir.FuncExternal)
	fn.IsRuntime = true
	fn.Contract = contract
	contract.Runtime = fn
	contract.RuntimeFuncs[fn.Name] = fn

	entry := ir.NewBasicBlock(arena, fn, "entry")
	trueBB := ir.NewBasicBlock(arena, fn, "true_bb")
	falseBB := ir.NewBasicBlock(arena, fn, "false_bb")
	fn.AddBlock(entry)
	fn.AddBlock(trueBB)
	fn.AddBlock(falseBB)

	caller := ir.NewEVMInst(arena, ir.OpCALLER, nil)
	addr := ir.NewEVMInst(arena, ir.OpADDRESS, nil)
	eq := ir.NewEVMInst(arena, ir.OpEQ, []ir.Value{caller, addr})
	entry.Append(caller)
	entry.Append(addr)
	entry.Append(eq)
	branch := ir.NewBranchInst(arena, eq, trueBB, falseBB)
	entry.Append(branch)
	ir.AddEdge(entry, trueBB)
	ir.AddEdge(entry, falseBB)

	trueBB.Append(ir.NewReturnInst(arena, nil))
	falseBB.Append(ir.NewReturnInst(arena, nil))

	return contract, fn
}

func TestEngineTraverseMarksCallerCheckProtected(t *testing.T) {
	contract, fn := buildCallerCheckFunction()

	timeout := handler.NewTimeoutHandler(0, 0)
	timeout.StartRound(contract)
	protect := handler.NewProtectHandler()
	info := NewTraversalInfo(contract, fn, timeout, protect)

	var protectedAtReturn []bool
	engine := NewEngine()
	key := CallbackKey{Kind: ir.KindReturn}
	engine.Dispatch[key] = []Callback{
		func(info *TraversalInfo, inst *ValueInstance, isEnd bool) error {
			if !isEnd {
				protectedAtReturn = append(protectedAtReturn, info.isProtected())
			}
			return nil
		},
	}

	engine.Traverse(info, fn)

	if len(protectedAtReturn) != 2 {
		t.Fatalf("expected 2 return visits, got %d: %v", len(protectedAtReturn), protectedAtReturn)
	}
	if protectedAtReturn[0] {
		t.Fatalf("false branch's return should not be protected")
	}
	if !protectedAtReturn[1] {
		t.Fatalf("true branch's return (caller==address) should be protected")
	}
	if info.Protect.IsProtected() {
		t.Fatalf("protect stack must be fully unwound after Traverse returns")
	}
	if len(info.Path) != 0 {
		t.Fatalf("path must be fully unwound after Traverse returns, got %d frames", len(info.Path))
	}
}

func TestEngineTraverseHandlesCallAndReturn(t *testing.T) {
	contract := ir.NewContract("test.sol", "Test")
	arena := contract.Arena

	callee := ir.NewFunction(arena, "internal_fun_helper", ir.FuncInternal)
	callee.Contract = contract
	calleeEntry := ir.NewBasicBlock(arena, callee, "entry")
	callee.AddBlock(calleeEntry)
	one := ir.NewIntConstant(arena, "1", 1)
	calleeEntry.Append(ir.NewReturnInst(arena, []ir.Value{one}))

	caller := ir.NewFunction(arena, "external_fun_main", ir.FuncExternal)
	caller.IsRuntime = true
	caller.Contract = contract
	contract.Runtime = caller
	contract.RuntimeFuncs[caller.Name] = caller
	callerEntry := ir.NewBasicBlock(arena, caller, "entry")
	caller.AddBlock(callerEntry)

	callInst := ir.NewCallInst(arena, callee, nil)
	callerEntry.Append(callInst)
	extract := ir.NewExtractReturnValueInst(arena, callInst, 0)
	callerEntry.Append(extract)
	callerEntry.Append(ir.NewReturnInst(arena, []ir.Value{extract}))

	timeout := handler.NewTimeoutHandler(0, 0)
	timeout.StartRound(contract)
	protect := handler.NewProtectHandler()
	info := NewTraversalInfo(contract, caller, timeout, protect)

	engine := NewEngine()
	var sawReturnedOne bool
	engine.Dispatch[CallbackKey{Kind: ir.KindReturn}] = []Callback{
		func(info *TraversalInfo, inst *ValueInstance, isEnd bool) error {
			if isEnd {
				return nil
			}
			ret, ok := inst.IRValue().(*ir.ReturnInst)
			if !ok || len(ret.Values) == 0 {
				return nil
			}
			if konst, ok := ret.Values[0].(*ir.Constant); ok && konst.Int == 1 {
				sawReturnedOne = true
			}
			return nil
		},
	}

	engine.Traverse(info, caller)

	if !sawReturnedOne {
		t.Fatalf("expected to visit the callee's return of constant 1")
	}
	if len(info.Path) != 0 {
		t.Fatalf("path must be fully unwound after Traverse returns, got %d frames", len(info.Path))
	}
}
