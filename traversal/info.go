package traversal

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/blocksecteam/hookscan/handler"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/taint"
)

// constantCacheSize bounds the shared constant-instance cache below.
// A contract's distinct Constant values rarely number in the
// thousands even for a large hook, so this is sized generously rather
// than tuned.
const constantCacheSize = 4096

// ConstantCache is a contract-scoped cache of Constant ValueInstances,
// meant to be created once per Scheduler.Run call and shared across
// every round and every creation/runtime traversal of that scan: a
// round re-walks the whole CFG for each detector's RoundDependency
// depth, so the same *ir.Constant pointer gets re-resolved many times,
// and a Constant's ValueInstance never changes once seeded (it has no
// per-path identity). Backed by github.com/hashicorp/golang-lru so a
// pathological contract with an unusually large constant pool degrades
// by evicting the coldest entries instead of growing unbounded.
type ConstantCache struct {
	cache *lru.Cache
}

// NewConstantCache builds an empty, ready-to-share cache.
func NewConstantCache() *ConstantCache {
	c, err := lru.New(constantCacheSize)
	if err != nil {
		panic(err)
	}
	return &ConstantCache{cache: c}
}

func (c *ConstantCache) get(v ir.Value) (*ValueInstance, bool) {
	val, ok := c.cache.Get(v)
	if !ok {
		return nil, false
	}
	return val.(*ValueInstance), true
}

func (c *ConstantCache) add(v ir.Value, vi *ValueInstance) {
	c.cache.Add(v, vi)
}

// TraversalInfo is the single mutable state threaded through one
// Engine.Traverse call: the explicit DFS path (a flat, global stack
// rather than Go's own call stack, so the engine can reason about
// arbitrary earlier path positions the way spec.md §4.5 requires),
// plus the timeout/protect collaborators and the per-contract instance
// caches (grounded on
// original_source/hookscan/core/traversal_info.py's TraversalInfo
// dataclass).
type TraversalInfo struct {
	Contract *ir.Contract
	Function *ir.Function

	Timeout *handler.TimeoutHandler
	Protect *handler.ProtectHandler

	OnlyRunNotProtected bool
	IsEnd               bool

	Path []*PathNode

	// EntryPointFunction is the nearest enclosing EXTERNAL/FALLBACK
	// function reached via a __runtime-dispatched call, or nil while the
	// walk is still inside the dispatcher itself. Detector results
	// (spec.md §6) and TimeoutHandler's per-entry-point budget split are
	// both keyed off this, not off the top-level Function.
	EntryPointFunction *ir.Function

	// CurrentFunctionSelector mirrors EntryPointFunction: the concrete
	// 4-byte selector the dispatcher chose to reach it, or nil while
	// inside the dispatcher. Nil for both a FALLBACK entry point (no
	// selector) and the not-yet-dispatched state.
	CurrentFunctionSelector *Selector

	// ForkIndexList holds the Path index of every block whose
	// terminator had more than one successor, so a later constraint can
	// be checked against every earlier fork's committed choice.
	ForkIndexList []int

	// CallInfoIndexList holds the Path index of every node that carries
	// a CallInfo (call or return), in visitation order.
	CallInfoIndexList []int

	// CallIndexStack holds the Path index of every still-open call
	// frame, innermost last.
	CallIndexStack []int

	// TriggerIndexList records (path index, inst index) pairs for every
	// instruction a callback actually fired for, so end-of-path
	// re-firing (trigger_callback's is_end pass) can walk it backwards.
	TriggerIndexList [][2]int

	pathNodeStack      map[*ir.BasicBlock]map[int][]*PathNode
	recursiveCallCount map[*ir.Function]int
	constants          *ConstantCache

	// recentReturns is keyed by the *ir.CallInst pointer a frame was
	// pushed for; populated once that callee's ReturnInst is reached and
	// the frame pops, read by ExtractReturnValueInst resolution.
	recentReturns map[*ir.CallInst][]*ValueInstance
}

// NewTraversalInfo builds fresh per-round state for one entry-point
// walk over contract, with its own private constant cache. Most
// callers running a full multi-round scan should use
// NewTraversalInfoWithCache instead so that cache is shared across
// rounds; this constructor remains for callers (tests, one-off
// traversals) that only ever run a single walk.
func NewTraversalInfo(contract *ir.Contract, fn *ir.Function, timeout *handler.TimeoutHandler, protect *handler.ProtectHandler) *TraversalInfo {
	return NewTraversalInfoWithCache(contract, fn, timeout, protect, NewConstantCache())
}

// NewTraversalInfoWithCache is NewTraversalInfo but threading in a
// ConstantCache the caller owns, so a Scheduler.Run can share one
// cache across every round and half of one scan.
func NewTraversalInfoWithCache(contract *ir.Contract, fn *ir.Function, timeout *handler.TimeoutHandler, protect *handler.ProtectHandler, constants *ConstantCache) *TraversalInfo {
	return &TraversalInfo{
		Contract:           contract,
		Function:           fn,
		Timeout:            timeout,
		Protect:            protect,
		pathNodeStack:      make(map[*ir.BasicBlock]map[int][]*PathNode),
		recursiveCallCount: make(map[*ir.Function]int),
		constants:          constants,
		recentReturns:      make(map[*ir.CallInst][]*ValueInstance),
	}
}

// Selector replaces Python's Optional[Union[int, str]] current_function_
// selector: a concrete 4-byte selector, the fallback/receive sentinel, or
// (as a nil *Selector) "not dispatched yet".
type Selector struct {
	Value      uint32
	IsFallback bool
}

// AsUint32 reports the concrete selector value, returning false for both
// a nil Selector and the fallback/receive case -- the two situations
// every built-in detector's selector-gated logic treats identically.
func (s *Selector) AsUint32() (uint32, bool) {
	if s == nil || s.IsFallback {
		return 0, false
	}
	return s.Value, true
}

// GetCallStackFunctions returns the callee of every still-open call
// frame, innermost last, grounded on traversal_info.py's
// get_call_stack_functions -- used by DetectorResult's yul_call_stack
// field (spec.md §6).
func (t *TraversalInfo) GetCallStackFunctions() []*ir.Function {
	fns := make([]*ir.Function, 0, len(t.CallIndexStack))
	for _, idx := range t.CallIndexStack {
		call, ok := t.Path[idx].CallInfo.InstInstance.IRValue().(*ir.CallInst)
		if !ok {
			continue
		}
		fns = append(fns, call.Callee)
	}
	return fns
}

// enterRuntimeEntry records that the walk just stepped, via a
// __runtime-dispatched call, into callee -- grounded on
// timeout_handler.py's _before_call. Unlike the Python original, which
// recovers the dispatch selector from the fixed path depth
// self.info.path[3].condition_choose, currentSwitchSelector scans
// backwards for the nearest still-open switch frame so this doesn't
// depend on the dispatcher always being exactly that many blocks deep.
func (t *TraversalInfo) enterRuntimeEntry(callee *ir.Function) {
	t.EntryPointFunction = callee
	switch callee.Type {
	case ir.FuncExternal:
		if v, ok := t.currentSwitchSelector(); ok {
			t.CurrentFunctionSelector = &Selector{Value: v}
		} else {
			t.CurrentFunctionSelector = nil
		}
	case ir.FuncFallback:
		t.CurrentFunctionSelector = &Selector{IsFallback: true}
	default:
		t.CurrentFunctionSelector = nil
	}
}

// leaveRuntimeEntry undoes enterRuntimeEntry once the dispatched call
// returns (timeout_handler.py's _after_call).
func (t *TraversalInfo) leaveRuntimeEntry() {
	t.EntryPointFunction = nil
	t.CurrentFunctionSelector = nil
}

// currentSwitchSelector finds the nearest still-open PathNode whose
// block's terminator is a switch and reports the case value it committed
// to, if that case was a concrete selector rather than the default arm.
func (t *TraversalInfo) currentSwitchSelector() (uint32, bool) {
	for i := len(t.Path) - 1; i >= 0; i-- {
		pn := t.Path[i]
		if _, ok := pn.BasicBlock.Terminator().(*ir.SwitchInst); !ok {
			continue
		}
		switch cv := pn.ConditionChoose.(type) {
		case int64:
			return uint32(cv), true
		default:
			return 0, false
		}
	}
	return 0, false
}

func (t *TraversalInfo) currentPathNode() *PathNode {
	if len(t.Path) == 0 {
		return nil
	}
	return t.Path[len(t.Path)-1]
}

func (t *TraversalInfo) currentInstInstance() *ValueInstance {
	pn := t.currentPathNode()
	if pn == nil || len(pn.InstInstances) == 0 {
		return nil
	}
	return pn.InstInstances[len(pn.InstInstances)-1]
}

// IsProtected mirrors TraversalInfo.is_protected -- delegated to the
// ProtectHandler collaborator. Exported so package detector's built-in
// scanners can gate findings on caller-privilege checks the same way
// the source detectors read info.is_protected.
func (t *TraversalInfo) IsProtected() bool {
	return t.Protect != nil && t.Protect.IsProtected()
}

func (t *TraversalInfo) isProtected() bool { return t.IsProtected() }

// lastCallInfo returns the CallInfo of the innermost still-open call
// frame, or nil at the top level (traversal_info.py's
// get_last_call_info with func=None).
func (t *TraversalInfo) lastCallInfo() *CallInfo {
	if len(t.CallIndexStack) == 0 {
		return nil
	}
	idx := t.CallIndexStack[len(t.CallIndexStack)-1]
	return t.Path[idx].CallInfo
}

func (t *TraversalInfo) pushPathNode(pn *PathNode) int {
	t.Path = append(t.Path, pn)
	idx := len(t.Path) - 1
	if t.pathNodeStack[pn.BasicBlock] == nil {
		t.pathNodeStack[pn.BasicBlock] = make(map[int][]*PathNode)
	}
	t.pathNodeStack[pn.BasicBlock][pn.StartIndex] = append(t.pathNodeStack[pn.BasicBlock][pn.StartIndex], pn)
	return idx
}

// popAll unwinds everything the current path node's frame pushed:
// itself off Path/pathNodeStack, any fork/call/loop index it
// contributed, and any trigger-callback entries recorded within its own
// instruction range (traversal.py's pop_all).
func (t *TraversalInfo) popAll(pn *PathNode) {
	current := len(t.Path) - 1

	popIfTop := func(list *[]int) {
		l := *list
		if len(l) != 0 && l[len(l)-1] >= current {
			*list = l[:len(l)-1]
		}
	}
	popIfTop(&t.ForkIndexList)
	popIfTop(&t.CallInfoIndexList)
	popIfTop(&t.CallIndexStack)

	for len(t.TriggerIndexList) != 0 {
		last := t.TriggerIndexList[len(t.TriggerIndexList)-1]
		if last[0] == current && last[1] >= pn.StartIndex {
			t.TriggerIndexList = t.TriggerIndexList[:len(t.TriggerIndexList)-1]
		} else {
			break
		}
	}

	t.Protect.Pop(current)

	t.Path = t.Path[:current]
	stack := t.pathNodeStack[pn.BasicBlock][pn.StartIndex]
	t.pathNodeStack[pn.BasicBlock][pn.StartIndex] = stack[:len(stack)-1]
}

// constantInstance returns the shared, contract-wide ValueInstance for
// a Constant value, creating and seeding it on first use (Constants
// have no per-path identity: the same literal always taints the same
// way wherever it's read).
func (t *TraversalInfo) constantInstance(v ir.Value) *ValueInstance {
	if vi, ok := t.constants.get(v); ok {
		return vi
	}
	vi := newValueInstance(v, nil)
	vi.taints = taint.Seed(vi)
	t.constants.add(v, vi)
	return vi
}

// getInstance resolves any operand Value read while stepping the
// instruction at (bb, index) to its ValueInstance on the current path
// (traversal_info.py's _get_instance): an Instruction resolves through
// pathNodeStack to whichever PathNode is currently walking the chunk of
// its block that contains it; an Argument resolves through the
// innermost open call frame; a Constant resolves through the shared
// cache. phiUser is the PhiInst when resolving one of its incoming
// values (nil otherwise); when that value is defined in the PhiInst's
// own block (a loop back-edge), the previous lap's PathNode is used
// instead of the one currently being built.
func (t *TraversalInfo) getInstance(v ir.Value, phiUser *ir.PhiInst) *ValueInstance {
	switch val := v.(type) {
	case ir.Instruction:
		bb := val.Block()
		index := val.BBIndex()
		starts := t.pathNodeStack[bb]
		best := -1
		for start := range starts {
			if start <= index && start > best {
				best = start
			}
		}
		if best < 0 {
			return t.constantInstance(v)
		}
		stack := starts[best]
		if len(stack) == 0 {
			return t.constantInstance(v)
		}
		chosen := stack[len(stack)-1]
		if phiUser != nil && phiUser.Block() == bb && len(stack) >= 2 {
			chosen = stack[len(stack)-2]
		}
		pos := index - best
		if pos < 0 || pos >= len(chosen.InstInstances) {
			return t.constantInstance(v)
		}
		return chosen.InstInstances[pos]
	case *ir.Argument:
		ci := t.lastCallInfo()
		if ci == nil {
			return t.constantInstance(v)
		}
		ops := ci.Instances()
		if val.Index < 0 || val.Index >= len(ops) {
			return t.constantInstance(v)
		}
		if vi, ok := ops[val.Index].(*ValueInstance); ok {
			return vi
		}
		return t.constantInstance(v)
	case *ir.Constant:
		return t.constantInstance(v)
	default:
		return t.constantInstance(v)
	}
}

func (t *TraversalInfo) recordReturn(call *ir.CallInst, values []*ValueInstance) {
	t.recentReturns[call] = values
}

func (t *TraversalInfo) lookupReturn(call *ir.CallInst, index int) (*ValueInstance, bool) {
	values, ok := t.recentReturns[call]
	if !ok || index < 0 || index >= len(values) {
		return nil, false
	}
	return values[index], true
}

// findLastEVMCallInstance walks the path backwards for the most
// recently visited CALL/STATICCALL/DELEGATECALL/CALLCODE ValueInstance
// (traversal.py's _find_last_evm_call_instance), used by
// UpdateReturndata.
func (t *TraversalInfo) findLastEVMCallInstance() *ValueInstance {
	for i := len(t.Path) - 1; i >= 0; i-- {
		insts := t.Path[i].InstInstances
		for j := len(insts) - 1; j >= 0; j-- {
			if evm, ok := insts[j].IRValue().(*ir.EVMInst); ok {
				switch evm.Op {
				case ir.OpCALL, ir.OpSTATICCALL, ir.OpDELEGATECALL, ir.OpCALLCODE:
					return insts[j]
				}
			}
		}
	}
	return nil
}
