// Package normalize rewrites the generic helper calls a Yul lifting
// leaves behind into the typed storage/memory/math/type-convert
// instruction kinds package ir models (spec.md §4.2). A helper call
// shows up in one of two shapes depending on whether the lifter (package
// lift) could resolve it to a function actually declared in the Yul
// object:
//
//   - a CallInst to a declared helper function, for the common case
//     (the Solidity compiler emits these helpers as real Yul functions)
//   - the lifter's generic YulFuncInst fallback, for any call name it
//     couldn't resolve to a declared function
//
// Normalize recognizes both shapes the same way: by the callee/call
// name, regardless of which kind of instruction carries it. It runs
// once, after lift and before traversal.
package normalize

import "github.com/blocksecteam/hookscan/ir"

func arg(args []ir.Value, i int) ir.Value {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

// Normalize rewrites every recognized helper call reachable from
// contract in place. Functions that every rewritten call site replaced
// are erased from their half's dictionary afterward (spec.md §4.2:
// "Replaced helper functions are erased from the function dictionary
// after the pass").
func Normalize(contract *ir.Contract) error {
	erase := map[erasureKey]bool{}

	for _, fn := range contract.AllFunctions() {
		for _, bb := range fn.Blocks {
			// Snapshot first: rewriting mutates bb.Instructions in place,
			// and ranging over the live slice while splicing into it would
			// skip or repeat entries.
			insts := append([]ir.Instruction(nil), bb.Instructions...)
			for _, inst := range insts {
				name, args, callee, ok := calleeOf(inst)
				if !ok {
					continue
				}
				if !rewriteOne(contract.Arena, bb, inst, name, args) {
					continue
				}
				if callee != nil {
					erase[erasureKey{callee.Name, callee.IsRuntime}] = true
				}
			}
		}
	}

	for key := range erase {
		contract.EraseFunction(key.name, key.runtime)
	}
	return nil
}

type erasureKey struct {
	name    string
	runtime bool
}

// calleeOf reports the callable name and positional arguments behind
// inst, when inst is one of the two shapes normalize rewrites. Helper
// functions with more than one declared return aren't normalized: the
// typed replacement kinds model a single result, and rewriting a
// multi-return CallInst would orphan its ExtractReturnValueInst readers.
func calleeOf(inst ir.Instruction) (name string, args []ir.Value, callee *ir.Function, ok bool) {
	switch v := inst.(type) {
	case *ir.CallInst:
		if v.Callee == nil || len(v.Callee.ReturnNames) > 1 {
			return "", nil, nil, false
		}
		return v.Callee.Name, v.Args, v.Callee, true
	case *ir.YulFuncInst:
		return v.Name, v.Args, nil, true
	default:
		return "", nil, nil, false
	}
}

// rewriteOne tries each recognized helper family in turn, splicing the
// first match's replacement into bb in inst's place. It reports whether
// a rewrite happened.
func rewriteOne(a *ir.Arena, bb *ir.BasicBlock, inst ir.Instruction, name string, args []ir.Value) bool {
	if repl, ok := tryRevert(a, name, args); ok {
		spliceHalting(bb, inst, repl)
		return true
	}
	if repl, ok := tryStorage(a, name, args); ok {
		splice(bb, inst, repl)
		return true
	}
	if repl, ok := tryMath(a, name, args); ok {
		splice(bb, inst, repl)
		return true
	}
	if repl, ok := tryMemory(a, name, args, inst); ok {
		splice(bb, inst, repl)
		return true
	}
	return false
}

// splice retargets every user of old onto replacement, then swaps
// replacement into old's slot in bb.
func splice(bb *ir.BasicBlock, old, replacement ir.Instruction) {
	ir.ReplaceAllUses(old, replacement)
	bb.ReplaceInstruction(old, replacement)
}

// spliceHalting is splice plus the halt-opcode bookkeeping spec.md §4.2
// requires of revert_forward_1/panic_error_…: the block's terminator
// becomes Unreachable and whatever the lifter wired as this block's
// successors is dropped, since code after a halting opcode can't run.
func spliceHalting(bb *ir.BasicBlock, old, replacement ir.Instruction) {
	idx := old.BBIndex()
	ir.ReplaceAllUses(old, replacement)
	bb.ReplaceInstruction(old, replacement)
	bb.TruncateAfter(idx, ir.NewUnreachableInst(replacement.ValueArena()))
	bb.ClearSuccessors()
}
