package lift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/yulast"
)

func symmetryProblems(t *testing.T, contract *ir.Contract) []string {
	t.Helper()
	var users []ir.User
	for _, inst := range contract.AllInstructions() {
		users = append(users, inst)
	}
	return ir.CheckOperandUserSymmetry(users)
}

func TestLiftStraightLine(t *testing.T) {
	fn := yulast.FnDef("external_fun_add", []string{"a", "b"}, []string{"r"},
		yulast.Blk(
			yulast.Assign(yulast.Call("add", yulast.Ident("a"), yulast.Ident("b")), "r"),
		),
	)
	runtimeCode := yulast.Blk(fn)
	obj := yulast.Obj("Hook", yulast.Blk(),
		yulast.Obj("Hook_deployed", runtimeCode),
	)

	contract, err := Lift(obj, "Hook.yul")
	require.NoError(t, err)
	assert.Empty(t, symmetryProblems(t, contract))

	added := contract.FunctionByName("external_fun_add", true)
	require.NotNil(t, added)
	require.Len(t, added.Blocks, 1)
	term := added.Entry.Terminator()
	ret, ok := term.(*ir.ReturnInst)
	require.True(t, ok, "function falling off the end returns its named returns")
	require.Len(t, ret.Values, 1)

	evm, ok := ret.Values[0].(*ir.EVMInst)
	require.True(t, ok)
	assert.Equal(t, ir.OpADD, evm.Op)
}

func TestLiftIfProducesJoinPhi(t *testing.T) {
	fn := yulast.FnDef("external_fun_pick", []string{"a"}, []string{"r"},
		yulast.Blk(
			yulast.IfStmt(yulast.Ident("a"), yulast.Blk(
				yulast.Assign(yulast.Dec("1"), "r"),
			)),
		),
	)
	obj := yulast.Obj("Hook", yulast.Blk(),
		yulast.Obj("Hook_deployed", yulast.Blk(fn)),
	)

	contract, err := Lift(obj, "Hook.yul")
	require.NoError(t, err)
	assert.Empty(t, symmetryProblems(t, contract))

	pick := contract.FunctionByName("external_fun_pick", true)
	require.NotNil(t, pick)

	var join *ir.BasicBlock
	for _, bb := range pick.Blocks {
		if bb.Label == "if_join" {
			join = bb
		}
	}
	require.NotNil(t, join, "if lowering must produce a join block")

	var phi *ir.PhiInst
	for _, inst := range join.Instructions {
		if p, ok := inst.(*ir.PhiInst); ok {
			phi = p
		}
	}
	require.NotNil(t, phi, "merging r across the if's two incoming edges needs a phi")
	assert.Len(t, phi.Preds, 2)
	assert.Len(t, phi.Values, 2)
	assert.False(t, phi.AllSame(), "then-edge assigns 1, false-edge keeps the zero-initialized default")

	ret, ok := join.Terminator().(*ir.ReturnInst)
	require.True(t, ok)
	assert.True(t, ir.SameValue(ret.Values[0], phi))
}

func TestLiftForLoopShape(t *testing.T) {
	fn := yulast.FnDef("fun_sum", []string{"n"}, []string{"total"},
		yulast.Blk(
			yulast.Let(yulast.Dec("0"), "i"),
			yulast.For(
				yulast.Blk(),
				yulast.Call("lt", yulast.Ident("i"), yulast.Ident("n")),
				yulast.Blk(yulast.Assign(yulast.Call("add", yulast.Ident("i"), yulast.Dec("1")), "i")),
				yulast.Blk(yulast.Assign(yulast.Call("add", yulast.Ident("total"), yulast.Ident("i")), "total")),
			),
		),
	)
	obj := yulast.Obj("Hook", yulast.Blk(),
		yulast.Obj("Hook_deployed", yulast.Blk(fn)),
	)

	contract, err := Lift(obj, "Hook.yul")
	require.NoError(t, err)
	assert.Empty(t, symmetryProblems(t, contract))

	sum := contract.FunctionByName("fun_sum", true)
	require.NotNil(t, sum)

	var header *ir.BasicBlock
	for _, bb := range sum.Blocks {
		if bb.Label == "for_header" {
			header = bb
		}
	}
	require.NotNil(t, header)
	assert.True(t, header.IsLoopEntry)
	assert.Same(t, header, header.LoopCompare, "condition is not constant-true, so the header marks itself loop_compare")
	assert.Len(t, header.Predecessors, 2, "init block and post block both branch into the header")

	phiCount := 0
	for _, inst := range header.Instructions {
		if _, ok := inst.(*ir.PhiInst); ok {
			phiCount++
		}
	}
	assert.GreaterOrEqual(t, phiCount, 2, "both i and total differ across the loop back-edge")
}

func TestLiftDispatcherDiscovery(t *testing.T) {
	beforeSwap := yulast.FnDef("external_fun_beforeSwap", nil, nil,
		yulast.Blk(
			yulast.ExprStmt(yulast.Call("sstore", yulast.Dec("0"), yulast.Dec("1"))),
		),
	)
	dispatchCase := yulast.Blk(
		yulast.ExprStmt(yulast.Call("external_fun_beforeSwap")),
		yulast.ExprStmt(yulast.Call("return", yulast.Dec("0"), yulast.Dec("0"))),
	)
	runtimeCode := yulast.Blk(
		beforeSwap,
		yulast.Let(yulast.Call("calldataload", yulast.Dec("0")), "selector"),
		yulast.SwitchStmt(yulast.Ident("selector"),
			yulast.DefaultStmt(yulast.Blk(yulast.ExprStmt(yulast.Call("revert", yulast.Dec("0"), yulast.Dec("0"))))),
			yulast.CaseStmt(yulast.Hex("0x12345678"), dispatchCase),
		),
	)
	obj := yulast.Obj("Hook", yulast.Blk(),
		yulast.Obj("Hook_deployed", runtimeCode),
	)

	contract, err := Lift(obj, "Hook.yul")
	require.NoError(t, err)
	assert.Empty(t, symmetryProblems(t, contract))

	fn, ok := contract.Dispatcher[0x12345678]
	require.True(t, ok, "selector 0x12345678 must resolve through the trivial case chain")
	assert.Equal(t, "external_fun_beforeSwap", fn.Name)
}

func TestLiftRejectsMissingRuntimeObject(t *testing.T) {
	obj := yulast.Obj("Hook", yulast.Blk())
	_, err := Lift(obj, "Hook.yul")
	require.Error(t, err)
}
