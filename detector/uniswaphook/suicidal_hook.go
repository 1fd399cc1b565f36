package uniswaphook

import (
	"reflect"

	"github.com/blocksecteam/hookscan/detector"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/traversal"
)

// UniswapSuicidalHook flags any reachable `selfdestruct`, privileged or not.
// Grounded on
// original_source/hookscan/detectors/uniswap_hook/uniswap_suicidal_hook.py.
type UniswapSuicidalHook struct {
	found map[ir.Value]*detector.Result
}

var suicidalHookCallbackKeys = []traversal.CallbackKey{{Kind: ir.KindEVMOpcode, Op: ir.OpSELFDESTRUCT}}

func (d *UniswapSuicidalHook) CallbackKeys() []traversal.CallbackKey { return suicidalHookCallbackKeys }

func (d *UniswapSuicidalHook) RoundDependency() map[int][]reflect.Type { return map[int][]reflect.Type{0: nil} }

func (d *UniswapSuicidalHook) RegisterTraverseEvent() bool { return false }

func (d *UniswapSuicidalHook) Callback(info *traversal.TraversalInfo, inst *traversal.ValueInstance, isEnd bool) detector.Outcome {
	if !info.Function.IsRuntime || isEnd {
		return detector.Continue()
	}
	evm, ok := inst.IRValue().(*ir.EVMInst)
	if !ok || evm.Op != ir.OpSELFDESTRUCT {
		return detector.SkipPath("expected a selfdestruct instruction")
	}
	if d.found == nil {
		d.found = make(map[ir.Value]*detector.Result)
	}
	d.found[inst.IRValue()] = detector.NewInstanceResult(info, inst, detector.SeverityMedium, detector.ConfidenceHigh, nil)
	return detector.Continue()
}

func (d *UniswapSuicidalHook) result() []*detector.Result {
	out := make([]*detector.Result, 0, len(d.found))
	for _, r := range d.found {
		out = append(out, r)
	}
	return out
}

func (d *UniswapSuicidalHook) InternalResult() []*detector.Result { return d.result() }
func (d *UniswapSuicidalHook) ExternalResult() []*detector.Result { return d.result() }

func (d *UniswapSuicidalHook) VulnerabilityDescription() string { return "containing self-destruct" }
