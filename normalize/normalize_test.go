package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/lift"
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

func TestNormalizeStorageUpdate(t *testing.T) {
	helper := yulast.FnDef("update_storage_value_offset0_t_uint256", []string{"slot", "value"}, nil,
		yulast.Blk(yulast.ExprStmt(yulast.Call("sstore", yulast.Ident("slot"), yulast.Ident("value")))),
	)
	entry := yulast.FnDef("external_fun_setX", []string{"slot", "value"}, nil,
		yulast.Blk(yulast.ExprStmt(yulast.Call("update_storage_value_offset0_t_uint256", yulast.Ident("slot"), yulast.Ident("value")))),
	)
	obj := yulast.Obj("Hook", yulast.Blk(),
		yulast.Obj("Hook_deployed", yulast.Blk(helper, entry)),
	)

	contract, err := lift.Lift(obj, "Hook.yul")
	require.NoError(t, err)

	require.NoError(t, Normalize(contract))
	assert.Empty(t, symmetryProblems(t, contract))

	assert.Nil(t, contract.FunctionByName("update_storage_value_offset0_t_uint256", true),
		"a fully rewritten helper is erased from its half's dictionary")

	setX := contract.FunctionByName("external_fun_setX", true)
	require.NotNil(t, setX)

	var found *ir.StorageUpdateInst
	for _, inst := range setX.Entry.Instructions {
		if u, ok := inst.(*ir.StorageUpdateInst); ok {
			found = u
		}
	}
	require.NotNil(t, found, "the call site is rewritten to a StorageUpdateInst")
	assert.Equal(t, "t_uint256", found.TypeStr)
	assert.Equal(t, ir.StorageUpdateCommon, found.Action)
	assert.Equal(t, 0, found.Offset)
}

func TestNormalizeCheckedMath(t *testing.T) {
	helper := yulast.FnDef("checked_add_t_uint256", []string{"x", "y"}, []string{"r"},
		yulast.Blk(yulast.Assign(yulast.Call("add", yulast.Ident("x"), yulast.Ident("y")), "r")),
	)
	entry := yulast.FnDef("external_fun_add2", []string{"a", "b"}, []string{"r"},
		yulast.Blk(yulast.Assign(yulast.Call("checked_add_t_uint256", yulast.Ident("a"), yulast.Ident("b")), "r")),
	)
	obj := yulast.Obj("Hook", yulast.Blk(),
		yulast.Obj("Hook_deployed", yulast.Blk(helper, entry)),
	)

	contract, err := lift.Lift(obj, "Hook.yul")
	require.NoError(t, err)
	require.NoError(t, Normalize(contract))
	assert.Empty(t, symmetryProblems(t, contract))

	add2 := contract.FunctionByName("external_fun_add2", true)
	require.NotNil(t, add2)
	ret, ok := add2.Entry.Terminator().(*ir.ReturnInst)
	require.True(t, ok)
	math, ok := ret.Values[0].(*ir.MathInst)
	require.True(t, ok, "the checked_add call is rewritten in place, so the return reads the MathInst directly")
	assert.Equal(t, ir.MathAdd, math.Op)
	assert.True(t, math.Checked)
	assert.Equal(t, "t_uint256", math.TypeStr)
}

func TestNormalizeAbiDecodeTupleMultiReturn(t *testing.T) {
	entry := yulast.FnDef("external_fun_decode", []string{"headStart", "dataEnd"}, []string{"a", "b"},
		yulast.Blk(
			yulast.Let(
				yulast.Call("abi_decode_tuple_t_uint256_t_address", yulast.Ident("headStart"), yulast.Ident("dataEnd")),
				"a", "b",
			),
		),
	)
	obj := yulast.Obj("Hook", yulast.Blk(),
		yulast.Obj("Hook_deployed", yulast.Blk(entry)),
	)

	contract, err := lift.Lift(obj, "Hook.yul")
	require.NoError(t, err)
	require.NoError(t, Normalize(contract))
	assert.Empty(t, symmetryProblems(t, contract))

	fn := contract.FunctionByName("external_fun_decode", true)
	require.NotNil(t, fn)

	var decodes []*ir.ABIDecodeFromCallDataInst
	for _, inst := range fn.Entry.Instructions {
		if d, ok := inst.(*ir.ABIDecodeFromCallDataInst); ok {
			decodes = append(decodes, d)
		}
	}
	require.Len(t, decodes, 2, "a two-return abi_decode_tuple expands into one node per logical return")
	assert.Equal(t, "t_uint256", decodes[0].TypeStr)
	assert.Equal(t, 0, decodes[0].ReturnIndex)
	assert.Equal(t, "t_address", decodes[1].TypeStr)
	assert.Equal(t, 1, decodes[1].ReturnIndex)
	for _, d := range decodes {
		assert.Equal(t, 2, d.ReturnCount)
	}
}

func TestNormalizeRevertForwardHalts(t *testing.T) {
	entry := yulast.FnDef("external_fun_guarded", nil, nil,
		yulast.Blk(yulast.ExprStmt(yulast.Call("revert_forward_1"))),
	)
	obj := yulast.Obj("Hook", yulast.Blk(),
		yulast.Obj("Hook_deployed", yulast.Blk(entry)),
	)

	contract, err := lift.Lift(obj, "Hook.yul")
	require.NoError(t, err)
	require.NoError(t, Normalize(contract))
	assert.Empty(t, symmetryProblems(t, contract))

	fn := contract.FunctionByName("external_fun_guarded", true)
	require.NotNil(t, fn)

	require.Len(t, fn.Entry.Instructions, 2)
	evm, ok := fn.Entry.Instructions[0].(*ir.EVMInst)
	require.True(t, ok)
	assert.Equal(t, ir.OpREVERT, evm.Op)
	assert.True(t, evm.IsHalt())

	_, ok = fn.Entry.Instructions[1].(*ir.UnreachableInst)
	require.True(t, ok, "code after a normalized halting call becomes unreachable")
	assert.Empty(t, fn.Entry.Successors)
}
