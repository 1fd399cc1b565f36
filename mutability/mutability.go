// Package mutability fills in a Function's MutabilityInfo after
// normalization (spec.md §4.4): payable detection from the dispatcher
// prelude shape, and a recursive merge of non_static_call/storage_write/
// log/self_destruct flags across the call graph.
package mutability

import "github.com/blocksecteam/hookscan/ir"

// maxCallDepth bounds the recursive merge at the same depth the
// traversal engine allows for recursive calls (spec.md §4.5's "depth 2"
// policy), so a mutual-recursion cycle between two helper functions
// can't recurse forever (spec.md §4.9).
const maxCallDepth = 2

// Analyze computes Mutability for every function reachable from
// contract. Must run after normalize.Normalize: it recognizes storage
// writes via *ir.StorageUpdateInst, the typed kind normalization
// produces, not the raw SSTORE opcode a storage-helper call compiles
// down to before rewriting.
func Analyze(contract *ir.Contract) {
	identifyPayable(contract)
	for _, fn := range contract.AllFunctions() {
		mergeMutability(fn, map[*ir.Function]int{})
	}
}

// mergeMutability walks fn's own instructions, folding in opcode-level
// flags directly and recursing into call targets (depth-bounded) to
// fold in their accumulated flags. Safe to call more than once for the
// same fn: every flag is monotone (OR-only), so a repeat visit can only
// confirm bits already set.
func mergeMutability(fn *ir.Function, depth map[*ir.Function]int) {
	if fn == nil || depth[fn] >= maxCallDepth {
		return
	}
	depth[fn]++
	defer func() { depth[fn]-- }()

	for _, bb := range fn.Blocks {
		for _, inst := range bb.Instructions {
			switch v := inst.(type) {
			case *ir.EVMInst:
				switch v.Op {
				case ir.OpCALL, ir.OpCALLCODE, ir.OpDELEGATECALL:
					fn.Mutability.NonStaticCall = true
				case ir.OpLOG0, ir.OpLOG1, ir.OpLOG2, ir.OpLOG3, ir.OpLOG4:
					fn.Mutability.Log = true
				case ir.OpSELFDESTRUCT:
					fn.Mutability.SelfDestruct = true
				}
			case *ir.StorageUpdateInst:
				fn.Mutability.StorageWrite = true
			case *ir.CallInst:
				if v.Callee != nil {
					mergeMutability(v.Callee, depth)
					updateMutability(&fn.Mutability, v.Callee.Mutability)
				}
			}
		}
	}
}

// updateMutability ORs other into dst, leaving Payable untouched --
// payability is a property of a function's own dispatcher prelude, not
// something a callee can confer (spec.md §4.9, mirroring the original
// MutabilityInfo.update's explicit "payable will not be updated" note).
func updateMutability(dst *ir.MutabilityInfo, other ir.MutabilityInfo) {
	dst.NonStaticCall = dst.NonStaticCall || other.NonStaticCall
	dst.StorageWrite = dst.StorageWrite || other.StorageWrite
	dst.Log = dst.Log || other.Log
	dst.SelfDestruct = dst.SelfDestruct || other.SelfDestruct
}

// identifyPayable sets Payable for every EXTERNAL and FALLBACK function
// (spec.md §4.4). CREATION/CONSTRUCTOR have no payable concept here and
// are left at their zero value.
func identifyPayable(contract *ir.Contract) {
	for _, fn := range contract.AllFunctions() {
		switch fn.Type {
		case ir.FuncExternal:
			fn.Mutability.Payable = externalPrelude(fn)
		case ir.FuncFallback:
			fn.Mutability.Payable = fallbackPrelude(contract, fn)
		}
	}
}

// externalPrelude reads payability off an EXTERNAL function's own
// entry block: a CALLDATASIZE first instruction means the selector
// dispatch fell straight through into argument decoding (no callvalue
// guard), while a branch means the compiler inserted the standard
// non-payable "revert if callvalue() != 0" check ahead of it.
func externalPrelude(fn *ir.Function) bool {
	if fn.Entry == nil || len(fn.Entry.Instructions) == 0 {
		return false
	}
	switch first := fn.Entry.Instructions[0].(type) {
	case *ir.EVMInst:
		return first.Op == ir.OpCALLDATASIZE
	case *ir.BranchInst:
		return false
	default:
		return false
	}
}

// fallbackPrelude reads payability off the shape of the dispatcher
// block that falls through into the fallback's single call site
// (spec.md §4.4): a CALLDATASIZE-led predecessor is the `receive`
// shape; a two-successor conditional whose arms rejoin each other is
// the standard non-payable guard; anything else defaults to payable.
func fallbackPrelude(contract *ir.Contract, fn *ir.Function) bool {
	users := callersOf(contract, fn)
	if len(users) != 1 {
		return false
	}
	callBB := users[0].Block()
	if callBB == nil || len(callBB.Predecessors) == 0 {
		return true
	}

	pred := callBB.Predecessors[0]
	if isReceiveShaped(pred) {
		return true
	}
	if _, ok := firstInst(pred).(*ir.BranchInst); ok && len(pred.Successors) == 2 {
		a, b := pred.Successors[0], pred.Successors[1]
		if blockIn(a, b.Predecessors) || blockIn(b, a.Predecessors) {
			return false
		}
		return true
	}
	return true
}

func isReceiveShaped(bb *ir.BasicBlock) bool {
	evm, ok := firstInst(bb).(*ir.EVMInst)
	return ok && evm.Op == ir.OpCALLDATASIZE
}

func firstInst(bb *ir.BasicBlock) ir.Instruction {
	if bb == nil || len(bb.Instructions) == 0 {
		return nil
	}
	return bb.Instructions[0]
}

func blockIn(bb *ir.BasicBlock, list []*ir.BasicBlock) bool {
	for _, b := range list {
		if b == bb {
			return true
		}
	}
	return false
}

// callersOf returns every CallInst targeting fn, across the whole
// contract. A FALLBACK function is expected to have exactly one.
func callersOf(contract *ir.Contract, fn *ir.Function) []*ir.CallInst {
	var out []*ir.CallInst
	for _, caller := range contract.AllFunctions() {
		for _, bb := range caller.Blocks {
			for _, inst := range bb.Instructions {
				if call, ok := inst.(*ir.CallInst); ok && call.Callee == fn {
					out = append(out, call)
				}
			}
		}
	}
	return out
}
