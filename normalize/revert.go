package normalize

import (
	"regexp"

	"github.com/blocksecteam/hookscan/ir"
)

var (
	reRevertForward = regexp.MustCompile(`^revert_forward_1$`)
	rePanicError    = regexp.MustCompile(`^panic_error_0x[0-9a-fA-F]+$`)
)

// tryRevert recognizes the two halting-helper shapes spec.md §4.2 names:
// a plain bubble-up revert and a Solidity panic code. Both compile down
// to the same REVERT opcode (the Solidity panic selector itself isn't
// retained on the instruction, since no normalized kind carries it --
// a detector that cares reads the helper name back off the original IR
// text via the instruction's source map instead). Missing operands fall
// back to a zero offset/size, matching revert_forward_1's usual
// zero-argument call shape (it forwards whatever is already in the
// return-data buffer rather than taking an explicit range).
func tryRevert(a *ir.Arena, name string, args []ir.Value) (ir.Instruction, bool) {
	if !reRevertForward.MatchString(name) && !rePanicError.MatchString(name) {
		return nil, false
	}
	offset := arg(args, 0)
	size := arg(args, 1)
	if offset == nil {
		offset = ir.NewIntConstant(a, "0", 0)
	}
	if size == nil {
		size = ir.NewIntConstant(a, "0", 0)
	}
	return ir.NewEVMInst(a, ir.OpREVERT, []ir.Value{offset, size}), true
}
