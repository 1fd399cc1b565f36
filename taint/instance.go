package taint

import "github.com/blocksecteam/hookscan/ir"

// Instance is the minimal surface this package needs from a traversal
// ValueInstance: enough to read the underlying ir.Value, walk the
// provenance chain, and mutate the taint/call-recovery bookkeeping of
// itself or any of its operands. traversal.ValueInstance satisfies this
// structurally; nothing here imports package traversal.
type Instance interface {
	IRValue() ir.Value
	Origin() Instance
	OperandInstances() []Instance
	Taints() Set

	CallArgs() []Instance
	SetCallArgs([]Instance)
	FunctionSignature() (uint32, bool)
	SetFunctionSignature(uint32)
}
