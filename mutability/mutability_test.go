package mutability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/lift"
	"github.com/blocksecteam/hookscan/normalize"
	"github.com/blocksecteam/hookscan/yulast"
)

func buildContract(t *testing.T, runtimeCode *yulast.Block) *ir.Contract {
	t.Helper()
	obj := yulast.Obj("Hook", yulast.Blk(), yulast.Obj("Hook_deployed", runtimeCode))
	contract, err := lift.Lift(obj, "Hook.yul")
	require.NoError(t, err)
	require.NoError(t, normalize.Normalize(contract))
	return contract
}

func TestPayableExternalCalldatasizePrelude(t *testing.T) {
	fn := yulast.FnDef("external_fun_receive", nil, nil,
		yulast.Blk(yulast.ExprStmt(yulast.Call("calldatasize"))),
	)
	contract := buildContract(t, yulast.Blk(fn))

	Analyze(contract)

	got := contract.FunctionByName("external_fun_receive", true)
	require.NotNil(t, got)
	assert.True(t, got.Mutability.Payable)
}

func TestNonPayableExternalBranchPrelude(t *testing.T) {
	// The condition is a bare identifier (an argument), not a call, so
	// lowering doesn't insert any instruction ahead of the branch --
	// matching the real prelude shape, where the branch is the entry
	// block's very first instruction.
	fn := yulast.FnDef("external_fun_guarded", []string{"cv"}, nil,
		yulast.Blk(
			yulast.IfStmt(yulast.Ident("cv"),
				yulast.Blk(yulast.ExprStmt(yulast.Call("revert", yulast.Dec("0"), yulast.Dec("0")))),
			),
		),
	)
	contract := buildContract(t, yulast.Blk(fn))

	Analyze(contract)

	got := contract.FunctionByName("external_fun_guarded", true)
	require.NotNil(t, got)
	assert.False(t, got.Mutability.Payable)
}

func TestMutabilityMergesAcrossCallGraph(t *testing.T) {
	helper := yulast.FnDef("update_storage_value_offset0_t_uint256", []string{"slot", "value"}, nil,
		yulast.Blk(yulast.ExprStmt(yulast.Call("sstore", yulast.Ident("slot"), yulast.Ident("value")))),
	)
	inner := yulast.FnDef("fun_setX", []string{"slot", "value"}, nil,
		yulast.Blk(yulast.ExprStmt(yulast.Call("update_storage_value_offset0_t_uint256", yulast.Ident("slot"), yulast.Ident("value")))),
	)
	outer := yulast.FnDef("external_fun_wrapper", []string{"slot", "value"}, nil,
		yulast.Blk(yulast.ExprStmt(yulast.Call("fun_setX", yulast.Ident("slot"), yulast.Ident("value")))),
	)
	contract := buildContract(t, yulast.Blk(helper, inner, outer))

	Analyze(contract)

	wrapper := contract.FunctionByName("external_fun_wrapper", true)
	require.NotNil(t, wrapper)
	assert.True(t, wrapper.Mutability.StorageWrite, "storage_write propagates two call levels up")
	assert.False(t, wrapper.Mutability.Log)
	assert.False(t, wrapper.Mutability.SelfDestruct)
}

func TestMutabilityFlagsFromOpcodes(t *testing.T) {
	fn := yulast.FnDef("external_fun_noisyCall", nil, nil,
		yulast.Blk(
			yulast.ExprStmt(yulast.Call("log0", yulast.Dec("0"), yulast.Dec("0"))),
			yulast.ExprStmt(yulast.Call("call",
				yulast.Dec("0"), yulast.Dec("0"), yulast.Dec("0"),
				yulast.Dec("0"), yulast.Dec("0"), yulast.Dec("0"), yulast.Dec("0"),
			)),
		),
	)
	contract := buildContract(t, yulast.Blk(fn))

	Analyze(contract)

	got := contract.FunctionByName("external_fun_noisyCall", true)
	require.NotNil(t, got)
	assert.True(t, got.Mutability.Log)
	assert.True(t, got.Mutability.NonStaticCall)
	assert.True(t, got.Mutability.Mutable())
}
