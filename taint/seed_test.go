package taint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksecteam/hookscan/ir"
)

// fakeInstance is a minimal hand-written Instance, standing in for
// traversal.ValueInstance so this package's taint-seeding logic can be
// exercised without running a full DFS (spec.md §4.7's requirement that
// detectors be unit-testable against a seeded taint set directly).
type fakeInstance struct {
	value    ir.Value
	origin   *fakeInstance
	operands []Instance
	taints   Set
	callArgs []Instance
	sig      uint32
	hasSig   bool
}

func newFake(v ir.Value, operands ...Instance) *fakeInstance {
	return &fakeInstance{value: v, operands: operands, taints: NewSet()}
}

func (f *fakeInstance) IRValue() ir.Value            { return f.value }
func (f *fakeInstance) OperandInstances() []Instance { return f.operands }
func (f *fakeInstance) Taints() Set                  { return f.taints }
func (f *fakeInstance) CallArgs() []Instance          { return f.callArgs }
func (f *fakeInstance) SetCallArgs(a []Instance)      { f.callArgs = a }
func (f *fakeInstance) FunctionSignature() (uint32, bool) { return f.sig, f.hasSig }
func (f *fakeInstance) SetFunctionSignature(sig uint32)   { f.sig, f.hasSig = sig, true }

func (f *fakeInstance) Origin() Instance {
	if f.origin == nil {
		return f
	}
	return f.origin
}

func TestSeedCaller(t *testing.T) {
	a := ir.NewArena()
	inst := ir.NewEVMInst(a, ir.OpCALLER, nil)
	fi := newFake(inst)

	s := Seed(fi)
	assert.True(t, s.Has("caller"))
}

func TestSeedConstantOrigin(t *testing.T) {
	a := ir.NewArena()
	c := ir.NewIntConstant(a, "5", 5)
	cInst := newFake(c)
	convert := ir.NewTypeConvertInstruction(a, "t_uint256", "t_address", c)
	fi := newFake(convert, cInst)
	fi.origin = cInst

	s := Seed(fi)
	assert.True(t, s.Has("_constant"))
}

func TestSeedEqMarksBothOperandOrigins(t *testing.T) {
	a := ir.NewArena()
	left := ir.NewEVMInst(a, ir.OpCALLER, nil)
	right := ir.NewEVMInst(a, ir.OpADDRESS, nil)
	leftInst := newFake(left)
	rightInst := newFake(right)
	eq := ir.NewEVMInst(a, ir.OpEQ, []ir.Value{left, right})
	fi := newFake(eq, leftInst, rightInst)

	Seed(fi)
	assert.True(t, leftInst.Taints().Has("eq"))
	assert.True(t, rightInst.Taints().Has("eq"))
}

func TestSeedKeccak256AfterCalldata(t *testing.T) {
	a := ir.NewArena()
	decode := ir.NewABIDecodeFromCallDataInst(a, "t_uint256", 0, 1, ir.NewIntConstant(a, "4", 4), nil)
	decodeInst := newFake(decode)
	decodeInst.taints = Seed(decodeInst)
	require.True(t, decodeInst.Taints().Has("calldata"))

	other := newFake(ir.NewIntConstant(a, "0", 0))
	keccak := ir.NewEVMInst(a, ir.OpKECCAK256, []ir.Value{decode, ir.NewIntConstant(a, "0", 0)})
	fi := newFake(keccak, decodeInst, other)

	s := Seed(fi)
	assert.True(t, s.Has("_keccak256_after_calldata"))
}

func TestAfterUpdateTaintNotConsiderProtectStandard(t *testing.T) {
	a := ir.NewArena()
	args := make([]ir.Value, 6)
	ops := make([]Instance, 6)
	for i := range args {
		c := ir.NewIntConstant(a, "0", 0)
		args[i] = c
		ops[i] = newFake(c)
	}
	call := ir.NewEVMInst(a, ir.OpSTATICCALL, args)
	fi := newFake(call, ops...)
	fi.SetFunctionSignature(0x70a08231) // balanceOf(address)

	AfterUpdateTaint(fi)

	assert.True(t, fi.Taints().Has("_is_not_consider_protect_standard_returndata"))
	assert.True(t, ops[4].Taints().Has("_is_not_consider_protect_standard_returndata"))
}

func TestAfterUpdateTaintOwnerOfHighLevelCall(t *testing.T) {
	a := ir.NewArena()
	args := make([]ir.Value, 6)
	ops := make([]Instance, 6)
	for i := range args {
		c := ir.NewIntConstant(a, "0", 0)
		args[i] = c
		ops[i] = newFake(c)
	}
	call := ir.NewEVMInst(a, ir.OpSTATICCALL, args)
	fi := newFake(call, ops...)
	fi.SetFunctionSignature(SelectorOwnerOf)

	AfterUpdateTaint(fi)

	assert.True(t, ops[4].Taints().Has("_high_level_call_ownerof"))
}

func TestFindEncodePtrThroughAllocateUnbounded(t *testing.T) {
	a := ir.NewArena()
	alloc := ir.NewYulFuncInst(a, "allocate_unbounded", nil)
	allocInst := newFake(alloc)

	k32 := ir.NewIntConstant(a, "32", 32)
	add := ir.NewEVMInst(a, ir.OpADD, []ir.Value{alloc, k32})
	addInst := newFake(add, allocInst, newFake(k32))

	enc := ir.NewABIEncodeInst(a, "t_uint256", false, add, nil)
	encInst := newFake(enc, addInst)

	ptr := FindEncodePtr(encInst)
	require.NotNil(t, ptr)
	assert.Same(t, allocInst, ptr)
}

func TestRecordCallArgsSkipsStringLiteralOperand(t *testing.T) {
	a := ir.NewArena()
	num := ir.NewIntConstant(a, "1", 1)
	dst := ir.NewIntConstant(a, "0", 0)

	// The literal is baked into the encode helper, so the encode has no
	// memory operand for it: only the destination and the uint256.
	enc := ir.NewABIEncodeInst(a, "t_stringliteral_1t_uint256", false, dst, []ir.Value{num})
	dstInst := newFake(dst)
	numInst := newFake(num)
	encInst := newFake(enc, dstInst, numInst)

	args := RecordCallArgs(encInst)
	require.Len(t, args, 2)
	assert.Same(t, encInst, args[0], "the stringliteral logical arg is the encode instance itself")
	assert.Same(t, numInst, args[1])
}

func TestRecordCallSignatureDirectConstant(t *testing.T) {
	a := ir.NewArena()
	slot := ir.NewIntConstant(a, "64", 64)
	fullWidth := new(big.Int).Lsh(big.NewInt(0xa9059cbb), 224)
	selector := ir.NewIntConstant(a, "0x"+fullWidth.Text(16), 0)
	mstore := ir.NewEVMInst(a, ir.OpMSTORE, []ir.Value{slot, selector})
	prev := newFake(mstore, newFake(slot), newFake(selector))

	sig, ok := RecordCallSignature(prev)
	require.True(t, ok)
	assert.Equal(t, uint32(0xa9059cbb), sig)
}
