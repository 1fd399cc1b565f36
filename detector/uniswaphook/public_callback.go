package uniswaphook

import (
	"reflect"

	"github.com/blocksecteam/hookscan/detector"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/traversal"
)

// UniswapPublicCallback flags every callback function UniswapGetCallback found that
// is reachable without a `caller == address(this)` guard, grounded on
// original_source/hookscan/detectors/uniswap_hook/uniswap_public_callback.py.
type UniswapPublicCallback struct {
	pending  map[uint32]bool   // selector -> still unguarded
	names    map[uint32]string // selector -> dispatcher name
	results  map[uint32]*detector.Result
}

func (d *UniswapPublicCallback) CallbackKeys() []traversal.CallbackKey {
	return []traversal.CallbackKey{
		{Kind: ir.KindEVMOpcode, Op: ir.OpEQ},
		{Kind: ir.KindReturn},
	}
}

func (d *UniswapPublicCallback) RoundDependency() map[int][]reflect.Type {
	return map[int][]reflect.Type{0: {reflect.TypeOf((*UniswapGetCallback)(nil))}}
}

func (d *UniswapPublicCallback) RegisterTraverseEvent() bool { return true }

func (d *UniswapPublicCallback) TraverseStart(info *traversal.TraversalInfo, results map[reflect.Type][]*detector.Result, round int) {
	if round != 0 || d.pending != nil {
		return
	}
	d.pending = make(map[uint32]bool)
	d.names = make(map[uint32]string)
	d.results = make(map[uint32]*detector.Result)

	getCallbackResults := results[reflect.TypeOf((*UniswapGetCallback)(nil))]
	for _, r := range getCallbackResults {
		pair, ok := r.AdditionalInfo.(callbackSelectorPair)
		if !ok {
			continue
		}
		d.pending[pair.Selector] = true
		d.names[pair.Selector] = pair.Name
	}
}

func (d *UniswapPublicCallback) TraverseStop(info *traversal.TraversalInfo, round int) {}

func (d *UniswapPublicCallback) Callback(info *traversal.TraversalInfo, inst *traversal.ValueInstance, isEnd bool) detector.Outcome {
	if !info.Function.IsRuntime {
		return detector.Continue()
	}
	selector, ok := info.CurrentFunctionSelector.AsUint32()
	if !ok {
		return detector.Continue()
	}

	if !isEnd {
		evm, ok := inst.IRValue().(*ir.EVMInst)
		if !ok || evm.Op != ir.OpEQ {
			return detector.Continue()
		}
		ops := inst.OperandInstances()
		if len(ops) != 2 {
			return detector.SkipPath("eq instruction without two operands")
		}
		if !d.pending[selector] {
			return detector.Continue()
		}
		op0, ok0 := ops[0].Origin().(*traversal.ValueInstance)
		op1, ok1 := ops[1].Origin().(*traversal.ValueInstance)
		if !ok0 || !ok1 {
			return detector.Continue()
		}
		if isSelfCheck(op0, op1) {
			delete(d.pending, selector)
		}
		return detector.Continue()
	}

	// End of path: the engine passes no instruction here (inst is nil).
	if _, already := d.results[selector]; already {
		return detector.Continue()
	}
	if _, known := d.names[selector]; !known {
		return detector.Continue()
	}
	if info.EntryPointFunction == nil || !info.EntryPointFunction.MutableOrPayable() {
		return detector.Continue()
	}
	d.results[selector] = detector.NewFunctionResult(info.EntryPointFunction, detector.SeverityHigh, detector.ConfidenceHigh, nil)
	return detector.Continue()
}

func isSelfCheck(a, b *traversal.ValueInstance) bool {
	isCaller := func(v *traversal.ValueInstance) bool {
		evm, ok := v.IRValue().(*ir.EVMInst)
		return ok && evm.Op == ir.OpCALLER
	}
	isAddress := func(v *traversal.ValueInstance) bool {
		evm, ok := v.IRValue().(*ir.EVMInst)
		return ok && evm.Op == ir.OpADDRESS
	}
	return (isCaller(a) && isAddress(b)) || (isAddress(a) && isCaller(b))
}

func (d *UniswapPublicCallback) InternalResult() []*detector.Result { return d.collect() }
func (d *UniswapPublicCallback) ExternalResult() []*detector.Result { return d.collect() }

// collect returns a Result only for selectors that never got a self-check
// removed, mirroring uniswap_public_callback.py's get_internal_result:
// it filters the recorded results against the still-pending set at the
// very end, not as each Eq instance is visited.
func (d *UniswapPublicCallback) collect() []*detector.Result {
	var out []*detector.Result
	for selector := range d.pending {
		if r, ok := d.results[selector]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (d *UniswapPublicCallback) VulnerabilityDescription() string {
	return "no constraints on callers of callback function (self only)"
}
