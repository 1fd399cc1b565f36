package uniswaphook

import (
	"reflect"

	"github.com/blocksecteam/hookscan/detector"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/traversal"
)

// UniswapPublicHook flags a hook entry point (e.g. `beforeSwap`) that is
// not `view`/`pure` and reachable by anyone without a privilege check,
// restricted to the fixed set of known Uniswap V4 hook-callback
// selectors (lockAcquired included). Grounded on
// original_source/hookscan/detectors/uniswap_hook/uniswap_public_hook.py.
type UniswapPublicHook struct {
	unsafe map[uint32]*detector.Result
}

// publicHookCallbackKeys dispatches on Return purely to get an
// end-of-path callback; the detector never inspects the instruction
// itself, matching the source comment "no need for callback, use random
// one to enable callback".
var publicHookCallbackKeys = []traversal.CallbackKey{{Kind: ir.KindReturn}}

func (d *UniswapPublicHook) CallbackKeys() []traversal.CallbackKey { return publicHookCallbackKeys }

func (d *UniswapPublicHook) RoundDependency() map[int][]reflect.Type { return map[int][]reflect.Type{0: nil} }

func (d *UniswapPublicHook) RegisterTraverseEvent() bool { return false }

func (d *UniswapPublicHook) Callback(info *traversal.TraversalInfo, inst *traversal.ValueInstance, isEnd bool) detector.Outcome {
	if !info.Function.IsRuntime || !isEnd {
		return detector.Continue()
	}
	if terminatedByRevertHere(info) {
		return detector.Continue()
	}
	if info.EntryPointFunction == nil || !info.EntryPointFunction.MutableOrPayable() {
		return detector.Continue()
	}
	selector, ok := info.CurrentFunctionSelector.AsUint32()
	if !ok {
		return detector.Continue()
	}
	if !knownHookSelectors[selector] {
		return detector.Continue()
	}
	if info.IsProtected() {
		return detector.Continue()
	}
	if d.unsafe == nil {
		d.unsafe = make(map[uint32]*detector.Result)
	}
	if _, already := d.unsafe[selector]; already {
		return detector.Continue()
	}
	d.unsafe[selector] = detector.NewFunctionResult(info.EntryPointFunction, detector.SeverityHigh, detector.ConfidenceHigh, nil)
	return detector.Continue()
}

// terminatedByRevertHere mirrors base_detector.py's terminated_by_revert,
// re-implemented here since detector's own helper of the same name is
// unexported across the package boundary.
func terminatedByRevertHere(info *traversal.TraversalInfo) bool {
	if len(info.Path) == 0 {
		return false
	}
	pn := info.Path[len(info.Path)-1]
	if len(pn.InstInstances) < 2 {
		return false
	}
	evm, ok := pn.InstInstances[len(pn.InstInstances)-2].IRValue().(*ir.EVMInst)
	return ok && evm.Op == ir.OpREVERT
}

func (d *UniswapPublicHook) result() []*detector.Result {
	out := make([]*detector.Result, 0, len(d.unsafe))
	for _, r := range d.unsafe {
		out = append(out, r)
	}
	return out
}

func (d *UniswapPublicHook) InternalResult() []*detector.Result { return d.result() }
func (d *UniswapPublicHook) ExternalResult() []*detector.Result { return d.result() }

func (d *UniswapPublicHook) VulnerabilityDescription() string {
	return "no constraints on callers of hook functions (pool manager only)"
}
