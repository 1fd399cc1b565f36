package uniswaphook

import (
	"reflect"

	"github.com/blocksecteam/hookscan/detector"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/traversal"
)

// UniswapUpgradableHook flags a `delegatecall` whose target address traces back
// to storage or to ABI-decoded calldata/memory -- i.e. an address the
// hook's owner or a caller can change or choose, rather than a constant
// baked into the bytecode. Grounded on
// original_source/hookscan/detectors/uniswap_hook/uniswap_upgradable_hook.py.
type UniswapUpgradableHook struct {
	found map[ir.Value]*detector.Result
}

var upgradableHookCallbackKeys = []traversal.CallbackKey{{Kind: ir.KindEVMOpcode, Op: ir.OpDELEGATECALL}}

func (d *UniswapUpgradableHook) CallbackKeys() []traversal.CallbackKey { return upgradableHookCallbackKeys }

func (d *UniswapUpgradableHook) RoundDependency() map[int][]reflect.Type { return map[int][]reflect.Type{0: nil} }

func (d *UniswapUpgradableHook) RegisterTraverseEvent() bool { return false }

func (d *UniswapUpgradableHook) Callback(info *traversal.TraversalInfo, inst *traversal.ValueInstance, isEnd bool) detector.Outcome {
	if !info.Function.IsRuntime || isEnd {
		return detector.Continue()
	}
	evm, ok := inst.IRValue().(*ir.EVMInst)
	if !ok || evm.Op != ir.OpDELEGATECALL {
		return detector.SkipPath("expected a delegatecall instruction")
	}
	ops := inst.OperandInstances()
	if len(ops) < 2 {
		return detector.SkipPath("delegatecall without an address operand")
	}
	addrInst, ok := ops[1].Origin().(*traversal.ValueInstance)
	if !ok {
		return detector.Continue()
	}
	if !isMutableAddressSource(addrInst.IRValue()) {
		return detector.Continue()
	}
	if d.found == nil {
		d.found = make(map[ir.Value]*detector.Result)
	}
	d.found[inst.IRValue()] = detector.NewInstanceResult(info, inst, detector.SeverityHigh, detector.ConfidenceHigh, nil)
	return detector.Continue()
}

func isMutableAddressSource(v ir.Value) bool {
	switch v.(type) {
	case *ir.StorageReadInst, *ir.ABIDecodeFromCallDataInst, *ir.ABIDecodeFromMemoryInst:
		return true
	default:
		return false
	}
}

func (d *UniswapUpgradableHook) result() []*detector.Result {
	out := make([]*detector.Result, 0, len(d.found))
	for _, r := range d.found {
		out = append(out, r)
	}
	return out
}

func (d *UniswapUpgradableHook) InternalResult() []*detector.Result { return d.result() }
func (d *UniswapUpgradableHook) ExternalResult() []*detector.Result { return d.result() }

func (d *UniswapUpgradableHook) VulnerabilityDescription() string {
	return "containing delegate-call to mutable addresses"
}
