package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperandUserSymmetry(t *testing.T) {
	a := NewArena()
	c1 := NewIntConstant(a, "1", 1)
	c2 := NewIntConstant(a, "2", 2)
	add := NewMathInst(a, MathAdd, "t_uint256", true, c1, c2)

	problems := CheckOperandUserSymmetry([]User{add})
	assert.Empty(t, problems)

	found := false
	for _, u := range c1.Users() {
		if SameValue(u, add) {
			found = true
		}
	}
	assert.True(t, found, "constant must record the math instruction as a user")
}

func TestTerminatorUniqueness(t *testing.T) {
	a := NewArena()
	fn := NewFunction(a, "external_fun_foo", FuncExternal)
	bb := NewBasicBlock(a, fn, "entry")
	fn.AddBlock(bb)

	c := NewIntConstant(a, "1", 1)
	bb.Append(NewReturnInst(a, []Value{c}))

	require.Len(t, bb.Instructions, 1)
	term := bb.Terminator()
	require.NotNil(t, term)
	assert.True(t, term.IsTerminator())
}

func TestPredecessorSuccessorSymmetry(t *testing.T) {
	a := NewArena()
	fn := NewFunction(a, "fun_helper", FuncInternal)
	entry := NewBasicBlock(a, fn, "entry")
	exit := NewBasicBlock(a, fn, "exit")
	fn.AddBlock(entry)
	fn.AddBlock(exit)

	AddEdge(entry, exit)

	assert.Contains(t, exit.Predecessors, entry)
	assert.Contains(t, entry.Successors, exit)
}

func TestPhiShapeAndSimplification(t *testing.T) {
	a := NewArena()
	fn := NewFunction(a, "fun_join", FuncInternal)
	bb := NewBasicBlock(a, fn, "join")
	fn.AddBlock(bb)
	pred1 := NewBasicBlock(a, fn, "p1")
	pred2 := NewBasicBlock(a, fn, "p2")

	phi := NewPhiInst(a)
	c := NewIntConstant(a, "5", 5)
	phi.AddIncoming(pred1, c)
	phi.AddIncoming(pred2, c)

	assert.Equal(t, len(phi.Preds), len(phi.Values))
	assert.True(t, phi.AllSame(), "identical incoming values should simplify away")
}

func TestFunctionTypeInference(t *testing.T) {
	cases := map[string]FunctionType{
		"constructor_Hook":        FuncConstructor,
		"external_fun_beforeSwap": FuncExternal,
		"getter_fun_owner":        FuncGetter,
		"modifier_onlyOwner":      FuncModifier,
		"fun__12345":              FuncFallback,
		"fun__12345_inner":        FuncInternal,
		"fun_transfer":            FuncInternal,
		"usr$helper":              FuncInternal,
		"constant_MAX_UINT":       FuncConstant,
		"some_other_helper":       FuncYul,
	}
	for name, want := range cases {
		assert.Equal(t, want, InferFunctionType(name), name)
	}
}

func TestMutabilityMutable(t *testing.T) {
	assert.False(t, MutabilityInfo{}.Mutable())
	assert.True(t, MutabilityInfo{StorageWrite: true}.Mutable())
	assert.True(t, MutabilityInfo{SelfDestruct: true}.Mutable())
}
