package traversal

import (
	"github.com/blocksecteam/hookscan/handler"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/taint"
)

// maxRecursiveCallCount caps how many concurrent frames the DFS keeps
// open for the same callee before truncating the path at the call
// (spec.md §4.5's recursion cap), mirroring package mutability's
// maxCallDepth=2 call-graph-merge policy.
const maxRecursiveCallCount = 2

// CallbackKey identifies which instruction shape a detector callback
// wants to be invoked for. Op is only meaningful when Kind is
// KindEVMOpcode -- the flattened ir.EVMInst covers every abstract EVM
// opcode under one Go type, so distinguishing "only on STATICCALL" from
// "only on CALL" needs the opcode alongside the kind (spec.md §4.7's
// callback_keys, grounded on traversal.py's exact-class dispatch, which
// this generalizes since Python gave each opcode its own class).
type CallbackKey struct {
	Kind ir.InstructionKind
	Op   ir.Opcode
}

func keyFor(inst ir.Instruction) CallbackKey {
	if evm, ok := inst.(*ir.EVMInst); ok {
		return CallbackKey{Kind: ir.KindEVMOpcode, Op: evm.Op}
	}
	return CallbackKey{Kind: inst.Kind()}
}

// Callback is a detector's per-instruction hook (spec.md §4.7).
// isEnd is true exactly once per path, on the re-fire pass that happens
// when the path reaches an UnreachableInst; inst is nil on that pass
// since trigger_callback's end-of-path re-fire doesn't carry a fresh
// instruction, only the fact that this callback's key fired somewhere
// earlier on the now-finished path.
type Callback func(info *TraversalInfo, inst *ValueInstance, isEnd bool) error

// Engine runs the path-sensitive DFS over one Function (spec.md §4.5,
// grounded on original_source/hookscan/core/traversal.py's Traversal
// class).
type Engine struct {
	Dispatch map[CallbackKey][]Callback

	// OnErr is called for an error a callback returns, mirroring
	// traversal.py's soft-catch of a callback's NotImplementedError: the
	// walk keeps going rather than aborting the whole round. nil is a
	// valid Engine but every callback error is then silently dropped, so
	// production callers should always set this (the detector scheduler
	// wires it to commonlog).
	OnErr func(key CallbackKey, err error)
}

// NewEngine builds an Engine with an empty dispatch table; detectors
// register into Dispatch directly (package detector owns the
// registration API and its validation rules).
func NewEngine() *Engine {
	return &Engine{Dispatch: make(map[CallbackKey][]Callback)}
}

// Traverse walks every path through fn's CFG starting at its entry
// block, under info (already StartRound-initialized by the caller for
// the timeout/protect collaborators).
func (e *Engine) Traverse(info *TraversalInfo, fn *ir.Function) {
	if fn == nil || fn.Entry == nil {
		return
	}
	info.Function = fn
	e.dfs(info, fn.Entry, 0, nil, nil, nil, false)
}

// isFromLoop mirrors traversal.py's is_from_loop: whether bb is being
// re-entered from within the same loop loopEntryPreBB belongs to.
func isFromLoop(bb, loopEntryPreBB *ir.BasicBlock) bool {
	if loopEntryPreBB == nil {
		return false
	}
	entry := loopEntryPreBB.CurrentLoopEntry()
	return entry != nil && entry == bb.CurrentLoopEntry()
}

func isLoopCompareBlock(bb *ir.BasicBlock) bool {
	entry := bb.CurrentLoopEntry()
	return entry != nil && entry.LoopCompare != nil && entry.LoopCompare == bb
}

func isDoWhileCompareBlock(bb *ir.BasicBlock) bool {
	entry := bb.CurrentLoopEntry()
	return entry != nil && entry.DoWhileCompare != nil && entry.DoWhileCompare == bb
}

// dfs walks bb starting at instruction startIndex, mirroring
// traversal.py's Traversal.dfs. preBB is the block control flowed in
// from on this same straight-line edge (nil when crossing a call
// boundary); lastForkConstraints are the constraints this particular
// edge committed to, recorded on the new PathNode for later violation
// checks; loopEntryPreBB tracks the predecessor used to decide whether
// a loop body is being re-entered; pushProtect is true when the edge
// being taken is the matching side of a caller/address self-check
// (handler.IsCallerAddressCheck), so entering bb should mark the path
// protected until this frame pops.
func (e *Engine) dfs(
	info *TraversalInfo,
	bb *ir.BasicBlock,
	startIndex int,
	preBB *ir.BasicBlock,
	lastForkConstraints []Constraint,
	loopEntryPreBB *ir.BasicBlock,
	pushProtect bool,
) {
	isRuntime := info.Function != nil && info.Function.IsRuntime
	if info.Timeout != nil && info.Timeout.IsTimeout(isRuntime, info.EntryPointFunction) {
		return
	}
	if info.OnlyRunNotProtected && info.isProtected() {
		return
	}

	if bb.IsLoopEntry && bb.LoopCompare == nil && isFromLoop(bb, preBB) {
		return
	}

	pathNode := newPathNode(bb, startIndex)
	pathNode.LastForkConstraints = lastForkConstraints
	currentPathIndex := info.pushPathNode(pathNode)

	if pushProtect {
		info.Protect.Push(currentPathIndex)
	}

	if bb.IsLoopEntry {
		loopEntryPreBB = preBB
	}

	tookCallBranch := false
	instructions := bb.Instructions
	for i := startIndex; i < len(instructions); i++ {
		inst := instructions[i]
		instance := e.createInstInstance(info, inst, preBB, pathNode)
		pathNode.InstInstances = append(pathNode.InstInstances, instance)
		pathNode.CurrentIndex = i
		e.triggerCallback(info, instance, false, currentPathIndex, i)

		if call, ok := inst.(*ir.CallInst); ok {
			callee := call.Callee
			isRuntimeDispatch := bb.Func != nil && bb.Func.Name == "__runtime" &&
				(callee.Type == ir.FuncExternal || callee.Type == ir.FuncFallback)
			if info.Timeout != nil {
				info.Timeout.EnterEntry(callee)
			}
			if isRuntimeDispatch {
				info.enterRuntimeEntry(callee)
			}
			// A break here (recursion cap hit) abandons the path right
			// here, same as a break from the call-descent case below:
			// neither falls through to return/fork handling.
			tookCallBranch = true
			if info.recursiveCallCount[callee] >= maxRecursiveCallCount {
				break
			}
			pathNode.CallInfo = &CallInfo{
				IsCall:               true,
				InstInstance:         instance,
				ReturnBB:             bb,
				ReturnIndex:          i + 1,
				ReturnPreBB:          preBB,
				ReturnLoopEntryPreBB: loopEntryPreBB,
			}
			info.CallInfoIndexList = append(info.CallInfoIndexList, currentPathIndex)
			info.CallIndexStack = append(info.CallIndexStack, currentPathIndex)
			info.recursiveCallCount[callee]++
			e.dfs(info, callee.Entry, 0, nil, nil, loopEntryPreBB, false)
			info.recursiveCallCount[callee]--
			if info.Timeout != nil {
				info.Timeout.LeaveEntry(callee)
			}
			if isRuntimeDispatch {
				info.leaveRuntimeEntry()
			}
			break
		}
	}

	if !tookCallBranch {
		term := bb.Terminator()
		switch t := term.(type) {
		case *ir.ReturnInst:
			e.stepReturn(info, bb, pathNode, currentPathIndex, t)
		default:
			e.stepFork(info, bb, pathNode, currentPathIndex, loopEntryPreBB)
		}
	}

	info.popAll(pathNode)
}

// stepReturn mirrors traversal.py's ReturnInst branch of dfs: it
// records a non-call CallInfo, stores the return values for the
// caller's ExtractReturnValueInst resolution, pops the call stack, and
// resumes the caller at its recorded resume point.
func (e *Engine) stepReturn(info *TraversalInfo, bb *ir.BasicBlock, pathNode *PathNode, currentPathIndex int, ret *ir.ReturnInst) {
	lastCall := info.lastCallInfo()
	if lastCall == nil {
		return
	}
	terminatorInstance := info.currentInstInstance()
	pathNode.CallInfo = &CallInfo{IsCall: false, InstInstance: terminatorInstance}
	info.CallInfoIndexList = append(info.CallInfoIndexList, currentPathIndex)

	poppedIdx := info.CallIndexStack[len(info.CallIndexStack)-1]
	info.CallIndexStack = info.CallIndexStack[:len(info.CallIndexStack)-1]

	if callInst, ok := lastCall.InstInstance.IRValue().(*ir.CallInst); ok {
		values := make([]*ValueInstance, len(ret.Values))
		for i, v := range ret.Values {
			values[i] = info.getInstance(v, nil)
		}
		info.recordReturn(callInst, values)
		fn := bb.Func
		info.recursiveCallCount[fn]--
		e.dfs(info, lastCall.ReturnBB, lastCall.ReturnIndex, lastCall.ReturnPreBB, nil, lastCall.ReturnLoopEntryPreBB, false)
		info.recursiveCallCount[fn]++
	}

	info.CallIndexStack = append(info.CallIndexStack, poppedIdx)
}

// stepFork mirrors the non-call, non-return tail of traversal.py's dfs:
// Branch and Switch terminators fork the walk into every
// non-constraint-violating successor; Unreachable ends the path and
// re-fires every callback that fired somewhere on it.
func (e *Engine) stepFork(info *TraversalInfo, bb *ir.BasicBlock, pathNode *PathNode, currentPathIndex int, loopEntryPreBB *ir.BasicBlock) {
	if len(bb.Successors) > 1 {
		info.ForkIndexList = append(info.ForkIndexList, currentPathIndex)
	}
	terminatorInstance := info.currentInstInstance()

	switch term := bb.Terminator().(type) {
	case *ir.BranchInst:
		e.stepBranch(info, bb, term, terminatorInstance, currentPathIndex, loopEntryPreBB)
	case *ir.SwitchInst:
		e.stepSwitch(info, bb, term, terminatorInstance, currentPathIndex, loopEntryPreBB)
	case *ir.UnreachableInst:
		e.triggerCallback(info, terminatorInstance, true, currentPathIndex, pathNode.CurrentIndex)
	}
}

func (e *Engine) stepBranch(info *TraversalInfo, bb *ir.BasicBlock, term *ir.BranchInst, terminatorInstance *ValueInstance, currentPathIndex int, loopEntryPreBB *ir.BasicBlock) {
	if term.Unconditional() {
		e.dfs(info, term.True, 0, bb, nil, loopEntryPreBB, false)
		return
	}

	skipTrue, skipFalse := false, false
	if isLoopCompareBlock(bb) {
		fromLoop := isFromLoop(bb, loopEntryPreBB)
		if bb.IsLoopEntry {
			skipTrue, skipFalse = fromLoop, !fromLoop
		} else {
			skipTrue, skipFalse = !fromLoop, fromLoop
		}
		loopEntryPreBB = nil
	}
	if isDoWhileCompareBlock(bb) {
		if !isFromLoop(bb, loopEntryPreBB) {
			loopEntryPreBB = nil
		}
	}

	condition := terminatorInstance.OperandInstances()[0].(*ValueInstance).OriginInstance()

	isCallerCheck := false
	if evmCond, ok := condition.IRValue().(*ir.EVMInst); ok && len(evmCond.Args) == 2 {
		l := info.getInstance(evmCond.Args[0], nil).OriginInstance().IRValue()
		r := info.getInstance(evmCond.Args[1], nil).OriginInstance().IRValue()
		isCallerCheck = handler.IsCallerAddressCheck(evmCond, l, r)
	}

	for _, takeTrue := range []bool{false, true} {
		if takeTrue && skipTrue {
			continue
		}
		if !takeTrue && skipFalse {
			continue
		}
		// A condition normalizes to "== 1" when true, so the successor
		// taken when the raw value is nonzero (takeTrue) is recorded as
		// is_eq=false/case=0 and normalized from there, mirroring
		// traversal.py's `for is_eq in (False, True)` loop where
		// is_eq=False is the true-successor iteration.
		constraints := []Constraint{newConstraint(condition, !takeTrue, 0)}
		if ViolatesConstraints(constraints, forkConstraints(info)) {
			continue
		}
		succ := term.False
		if takeTrue {
			succ = term.True
		}
		info.Path[currentPathIndex].ConditionChoose = takeTrue
		e.dfs(info, succ, 0, bb, constraints, loopEntryPreBB, isCallerCheck && takeTrue)
	}
}

func (e *Engine) stepSwitch(info *TraversalInfo, bb *ir.BasicBlock, term *ir.SwitchInst, terminatorInstance *ValueInstance, currentPathIndex int, loopEntryPreBB *ir.BasicBlock) {
	condition := terminatorInstance.OperandInstances()[0].(*ValueInstance).OriginInstance()

	var defaultConstraints []Constraint
	for _, c := range term.Cases {
		caseConst, ok := c.Value.(*ir.Constant)
		if !ok || caseConst.Kind != ir.ConstInt {
			continue
		}
		constraints := []Constraint{newConstraint(condition, true, caseConst.Int)}
		if !ViolatesConstraints(constraints, forkConstraints(info)) {
			info.Path[currentPathIndex].ConditionChoose = caseConst.Int
			e.dfs(info, c.Block, 0, bb, constraints, loopEntryPreBB, false)
		}
		defaultConstraints = append(defaultConstraints, newConstraint(condition, false, caseConst.Int))
	}

	if term.Default != nil {
		if _, isUnreachable := firstInstOf(term.Default).(*ir.UnreachableInst); !isUnreachable {
			if !ViolatesConstraints(defaultConstraints, forkConstraints(info)) {
				info.Path[currentPathIndex].ConditionChoose = "default"
				e.dfs(info, term.Default, 0, bb, defaultConstraints, loopEntryPreBB, false)
			}
		}
	}
}

func firstInstOf(bb *ir.BasicBlock) ir.Instruction {
	if len(bb.Instructions) == 0 {
		return nil
	}
	return bb.Instructions[0]
}

// forkConstraints collects the committed constraint set recorded on
// every earlier fork point on the current path, for ViolatesConstraints
// to check a new candidate against (traversal.py's is_violate_constraints
// loop over self.info.fork_index_list).
func forkConstraints(info *TraversalInfo) [][]Constraint {
	out := make([][]Constraint, 0, len(info.ForkIndexList))
	for _, idx := range info.ForkIndexList {
		if idx+1 >= len(info.Path) {
			continue
		}
		out = append(out, info.Path[idx+1].LastForkConstraints)
	}
	return out
}

// triggerCallback dispatches inst to every registered callback for its
// exact shape, and on the end-of-path pass (isEnd true) re-fires every
// callback whose key already fired somewhere on this now-finished path,
// each at most once, walking backwards (traversal.py's trigger_callback).
func (e *Engine) triggerCallback(info *TraversalInfo, instance *ValueInstance, isEnd bool, pathIndex, instIndex int) {
	if !isEnd {
		key, ok := e.exactKey(instance)
		if !ok {
			return
		}
		info.TriggerIndexList = append(info.TriggerIndexList, [2]int{pathIndex, instIndex})
		for _, cb := range e.Dispatch[key] {
			if err := cb(info, instance, false); err != nil && e.OnErr != nil {
				e.OnErr(key, err)
			}
		}
		return
	}

	info.IsEnd = true
	fired := make(map[*Callback]bool)
	for i := len(info.TriggerIndexList) - 1; i >= 0; i-- {
		tp, ti := info.TriggerIndexList[i][0], info.TriggerIndexList[i][1]
		triggerNode := info.Path[tp]
		localIdx := ti - triggerNode.StartIndex
		if localIdx < 0 || localIdx >= len(triggerNode.InstInstances) {
			continue
		}
		triggerInstance := triggerNode.InstInstances[localIdx]
		key, ok := e.exactKey(triggerInstance)
		if !ok {
			continue
		}
		for ci := range e.Dispatch[key] {
			cb := &e.Dispatch[key][ci]
			if fired[cb] {
				continue
			}
			if err := (*cb)(info, nil, true); err != nil && e.OnErr != nil {
				e.OnErr(key, err)
			}
			fired[cb] = true
		}
	}
	info.IsEnd = false
}

func (e *Engine) exactKey(instance *ValueInstance) (CallbackKey, bool) {
	inst, ok := instance.IRValue().(ir.Instruction)
	if !ok {
		return CallbackKey{}, false
	}
	key := keyFor(inst)
	if _, ok := e.Dispatch[key]; !ok {
		return CallbackKey{}, false
	}
	return key, true
}

// createInstInstance mirrors traversal.py's create_inst_instance: build
// a fresh ValueInstance for inst and run its post-creation pipeline, or
// -- for the two node kinds whose value is entirely derived from
// elsewhere -- just propagate.
func (e *Engine) createInstInstance(info *TraversalInfo, inst ir.Instruction, preBB *ir.BasicBlock, pathNode *PathNode) *ValueInstance {
	instance := newValueInstance(inst, pathNode)

	switch v := inst.(type) {
	case *ir.ExtractReturnValueInst:
		origin, ok := info.lookupReturn(v.Call, v.Index)
		if ok {
			instance.PropagateFrom(origin)
		}
		return instance
	case *ir.PhiInst:
		if preBB == nil {
			return instance
		}
		operand := v.ValueFor(preBB)
		if operand == nil {
			return instance
		}
		origin := info.getInstance(operand, v)
		instance.PropagateFrom(origin)
		return instance
	}

	instance.operands = resolveOperands(info, inst, pathNode)
	updateZeroValue(instance)
	updateTypeConvert(instance)
	updateCleanup(instance)
	updateTaintPipeline(instance)
	var prev taint.Instance
	if len(pathNode.InstInstances) > 0 {
		prev = pathNode.InstInstances[len(pathNode.InstInstances)-1]
	}
	taint.UpdateAbiEncode(instance, prev)
	taint.UpdateCall(instance)
	// findLastEVMCallInstance only sees instances already pushed onto
	// pathNode.InstInstances, which this one isn't yet, so it never
	// resolves to itself.
	if lastCall := info.findLastEVMCallInstance(); lastCall != nil {
		taint.UpdateReturndata(instance, lastCall)
	}
	taint.AfterUpdateTaint(instance)
	return instance
}

func resolveOperands(info *TraversalInfo, inst ir.Instruction, pathNode *PathNode) []taint.Instance {
	raw := inst.Operands()
	out := make([]taint.Instance, len(raw))
	for i, v := range raw {
		out[i] = info.getInstance(v, nil)
	}
	return out
}

// updateZeroValue mirrors update_zero_value: a
// `zero_value_for_split_*` helper (not the memory_ptr variant) always
// evaluates to the literal zero, so it propagates from a synthetic
// zero constant instead of getting its own taint shape.
func updateZeroValue(instance *ValueInstance) {
	yf, ok := instance.IRValue().(*ir.YulFuncInst)
	if !ok {
		return
	}
	if !isZeroValueForSplitHelper(yf.Name) {
		return
	}
	zero := ir.NewIntConstant(instance.IRValue().ValueArena(), "0", 0)
	origin := newValueInstance(zero, nil)
	origin.taints = taint.Seed(origin)
	instance.PropagateFrom(origin)
}

func isZeroValueForSplitHelper(name string) bool {
	const prefix = "zero_value_for_split_"
	const suffix = "memory_ptr"
	if len(name) < len(prefix) || name[:len(prefix)] != prefix {
		return false
	}
	if len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix {
		return false
	}
	return true
}

// updateTypeConvert mirrors update_type_convert: a TypeConvertInstruction
// is transparent to taint/origin, just relabeling the type string.
func updateTypeConvert(instance *ValueInstance) {
	tc, ok := instance.IRValue().(*ir.TypeConvertInstruction)
	if !ok {
		return
	}
	if len(instance.operands) == 0 {
		return
	}
	arg, ok := instance.operands[0].(*ValueInstance)
	if !ok {
		return
	}
	instance.PropagateFrom(arg)
	instance.typeStr = tc.ToType
}

// updateCleanup mirrors update_cleanup: a `cleanup_*` helper is
// transparent to taint/origin.
func updateCleanup(instance *ValueInstance) {
	yf, ok := instance.IRValue().(*ir.YulFuncInst)
	if !ok || len(yf.Name) < len("cleanup_") || yf.Name[:len("cleanup_")] != "cleanup_" {
		return
	}
	if len(instance.operands) == 0 {
		return
	}
	arg, ok := instance.operands[0].(*ValueInstance)
	if !ok {
		return
	}
	instance.PropagateFrom(arg)
	instance.typeStr = yf.Name[len("cleanup_"):]
}

// updateTaintPipeline mirrors update_taint: CallInst/ReturnInst carry no
// taint of their own (theirs lives on the CallInfo's operand/return
// instances instead); everything else gets Seed()'d and then unions in
// every operand's already-resolved taint set.
func updateTaintPipeline(instance *ValueInstance) {
	switch instance.IRValue().(type) {
	case *ir.CallInst, *ir.ReturnInst:
		return
	}
	instance.taints = taint.Seed(instance)
	for _, op := range instance.operands {
		instance.taints.Union(op.Taints())
	}
}
