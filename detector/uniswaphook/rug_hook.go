package uniswaphook

import (
	"reflect"

	"github.com/blocksecteam/hookscan/detector"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/traversal"
)

// UniswapRugHook flags a privileged entry point that moves value (an ERC20/
// ERC721/ERC1155 transfer, or a native call carrying nonzero value) -- a
// possible rug-pull hook. The recipient address is not examined.
// Grounded on
// original_source/hookscan/detectors/uniswap_hook/uniswap_rug_hook.py,
// itself marked "NOTE THIS IS PROTOTYPE" in the source tree and not
// part of the default registry (see AllDetectors).
//
// The source callback calls a `get_all_hooked_instances` method that
// does not exist anywhere in base_detector.py or TraversalInfo -- it
// would raise AttributeError if this detector were ever actually run.
// This port reads it as "every Call/Callcode value visited so far along
// the current path", the only sense consistent with the rest of the
// method body (it then filters that set down to transfer-shaped calls),
// and implements it as a plain path walk rather than leaving the
// prototype uncompilable.
type UniswapRugHook struct {
	found map[ir.Value]*detector.Result
}

var rugHookCallbackKeys = []traversal.CallbackKey{
	{Kind: ir.KindEVMOpcode, Op: ir.OpCALL},
	{Kind: ir.KindEVMOpcode, Op: ir.OpCALLCODE},
}

func (d *UniswapRugHook) CallbackKeys() []traversal.CallbackKey { return rugHookCallbackKeys }

func (d *UniswapRugHook) RoundDependency() map[int][]reflect.Type { return map[int][]reflect.Type{0: nil} }

func (d *UniswapRugHook) RegisterTraverseEvent() bool { return false }

func (d *UniswapRugHook) Callback(info *traversal.TraversalInfo, inst *traversal.ValueInstance, isEnd bool) detector.Outcome {
	if !info.Function.IsRuntime || !isEnd {
		return detector.Continue()
	}
	if !info.IsProtected() {
		return detector.Continue()
	}
	for _, transferInst := range allHookedCallInstances(info) {
		evm, ok := transferInst.IRValue().(*ir.EVMInst)
		if !ok {
			continue
		}
		sig, hasSig := transferInst.FunctionSignature()
		isTokenTransfer := hasSig && tokenTransferSelectors[sig]
		isNativeValueCall := !isZeroCallValue(evm)
		if !isTokenTransfer && !isNativeValueCall {
			continue
		}
		if d.found == nil {
			d.found = make(map[ir.Value]*detector.Result)
		}
		d.found[evm] = detector.NewInstanceResult(info, transferInst, detector.SeverityMedium, detector.ConfidenceMedium, nil)
	}
	return detector.Continue()
}

// allHookedCallInstances returns every Call/Callcode ValueInstance
// visited along the current path -- see the UniswapRugHook doc comment.
func allHookedCallInstances(info *traversal.TraversalInfo) []*traversal.ValueInstance {
	var out []*traversal.ValueInstance
	for _, pn := range info.Path {
		for _, vi := range pn.InstInstances {
			evm, ok := vi.IRValue().(*ir.EVMInst)
			if !ok {
				continue
			}
			if evm.Op == ir.OpCALL || evm.Op == ir.OpCALLCODE {
				out = append(out, vi)
			}
		}
	}
	return out
}

// isZeroCallValue reports whether a Call/Callcode's value operand
// (argument index 2) is the constant literal 0.
func isZeroCallValue(evm *ir.EVMInst) bool {
	if len(evm.Args) < 3 {
		return false
	}
	c, ok := evm.Args[2].(*ir.Constant)
	return ok && c.Kind == ir.ConstInt && c.Int == 0
}

func (d *UniswapRugHook) result() []*detector.Result {
	out := make([]*detector.Result, 0, len(d.found))
	for _, r := range d.found {
		out = append(out, r)
	}
	return out
}

func (d *UniswapRugHook) InternalResult() []*detector.Result { return d.result() }
func (d *UniswapRugHook) ExternalResult() []*detector.Result { return d.result() }

func (d *UniswapRugHook) VulnerabilityDescription() string { return "possible rug-pull hook" }
