package uniswaphook

import (
	"reflect"

	"github.com/blocksecteam/hookscan/detector"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/traversal"
)

// UniswapGetCallback enumerates callback functions a hook passes to the pool
// manager via `lock(bytes)`/`lock(address,bytes)`, tagged by selector
// and (when the dispatcher knows it) name. Grounded on
// original_source/uniscan/detectors/uniswap_hook/uniswap_get_callback.py;
// unlike every other detector in this package it reports nothing itself
// -- it exists purely to feed UniswapPublicCallback's round-0 dependency.
type UniswapGetCallback struct {
	found map[uint32]string // selector -> dispatcher name ("" if unknown)
}

var callKeys = []traversal.CallbackKey{
	{Kind: ir.KindEVMOpcode, Op: ir.OpCALL},
	{Kind: ir.KindEVMOpcode, Op: ir.OpDELEGATECALL},
	{Kind: ir.KindEVMOpcode, Op: ir.OpSTATICCALL},
	{Kind: ir.KindEVMOpcode, Op: ir.OpCALLCODE},
}

func (d *UniswapGetCallback) CallbackKeys() []traversal.CallbackKey { return callKeys }

func (d *UniswapGetCallback) RoundDependency() map[int][]reflect.Type { return map[int][]reflect.Type{0: nil} }

func (d *UniswapGetCallback) RegisterTraverseEvent() bool { return false }

func (d *UniswapGetCallback) Callback(info *traversal.TraversalInfo, inst *traversal.ValueInstance, isEnd bool) detector.Outcome {
	if !info.Function.IsRuntime || isEnd {
		return detector.Continue()
	}
	evm, ok := inst.IRValue().(*ir.EVMInst)
	if !ok {
		return detector.SkipPath("expected an EVM call instruction")
	}

	sig, hasSig := callSignatureOf(inst, evm.Op)
	if !hasSig {
		return detector.Continue()
	}

	var lockBytes *traversal.ValueInstance
	switch sig {
	case lockSelector:
		lockBytes = argAt(inst, 0)
	case lockWithAddress:
		lockBytes = argAt(inst, 1)
		lockAddress := argAt(inst, 0)
		if lockBytes == nil || lockAddress == nil {
			return detector.Continue()
		}
		addrOrigin, ok := lockAddress.Origin().(*traversal.ValueInstance)
		if !ok {
			return detector.Continue()
		}
		addrEVM, ok := addrOrigin.IRValue().(*ir.EVMInst)
		if !ok || addrEVM.Op != ir.OpADDRESS {
			return detector.Continue()
		}
	default:
		return detector.Continue()
	}
	if lockBytes == nil {
		return detector.Continue()
	}
	callbackSelector, ok := lockBytes.FunctionSignature()
	if !ok {
		return detector.Continue()
	}

	if d.found == nil {
		d.found = make(map[uint32]string)
	}
	name := ""
	if fn, ok := info.Contract.Dispatcher[callbackSelector]; ok && fn != nil {
		name = fn.Name
	}
	d.found[callbackSelector] = name
	return detector.Continue()
}

// callbackSelectorPair is the AdditionalInfo payload UniswapGetCallback's
// InternalResult carries -- UniswapPublicCallback's TraverseStart reads it back
// out of the round-0 results map by type-asserting AdditionalInfo.
type callbackSelectorPair struct {
	Selector uint32
	Name     string
}

func (d *UniswapGetCallback) InternalResult() []*detector.Result {
	out := make([]*detector.Result, 0, len(d.found))
	for sel, name := range d.found {
		out = append(out, &detector.Result{AdditionalInfo: callbackSelectorPair{Selector: sel, Name: name}})
	}
	return out
}

func (d *UniswapGetCallback) ExternalResult() []*detector.Result { return nil }

func callSignatureOf(inst *traversal.ValueInstance, op ir.Opcode) (uint32, bool) {
	if !isEVMCallOp(op) {
		return 0, false
	}
	return inst.FunctionSignature()
}

func isEVMCallOp(op ir.Opcode) bool {
	switch op {
	case ir.OpCALL, ir.OpCALLCODE, ir.OpDELEGATECALL, ir.OpSTATICCALL:
		return true
	default:
		return false
	}
}

func argAt(inst *traversal.ValueInstance, index int) *traversal.ValueInstance {
	args := inst.CallArgs()
	if index < 0 || index >= len(args) {
		return nil
	}
	vi, _ := args[index].(*traversal.ValueInstance)
	return vi
}
