package typeparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"t_address",
		"t_address_payable",
		"t_bool",
		"t_bytes32",
		"t_bytes_memory_ptr",
		"t_bytes_calldata_ptr",
		"t_string_storage",
		"t_stringliteral_deadbeef",
		"t_uint256",
		"t_int8",
		"t_rational_100_by_1",
		"t_rational_minus_3_by_2",
		"t_contract$_IHooks_$42",
		"t_enum$_Direction_$7",
		"t_userDefinedValueType$_Balance_$3",
		"t_struct$_PoolKey_$12_storage",
		"t_array$_t_uint256_$dyn_storage",
		"t_array$_t_address_$3_memory_ptr",
		"t_mapping$_t_address_$_t_uint256_$",
		"t_tuple$_t_address_$_t_uint256_$",
		"t_function_external_nonpayable$_t_address_$returns$_t_bool_$",
		"t_array$_t_struct$_PoolKey_$12_storage_$dyn_storage",
	}
	for _, s := range cases {
		ty, tail, ok := ParseTypeWithTail(s)
		require.True(t, ok, "parse failed for %q", s)
		assert.Empty(t, tail, "unexpected leftover for %q", s)
		assert.Equal(t, s, Flatten(ty), "round-trip mismatch for %q", s)
	}
}

func TestParseTypeList(t *testing.T) {
	types, err := ParseTypeList("t_address_$_t_uint256_$_t_bool")
	require.NoError(t, err)
	require.Len(t, types, 3)
	assert.Equal(t, KindAddress, types[0].Kind)
	assert.Equal(t, KindUint, types[1].Kind)
	assert.Equal(t, KindBool, types[2].Kind)
}

func TestTypeStrByIndex(t *testing.T) {
	types, err := ParseTypeList("t_address_$_t_uint256")
	require.NoError(t, err)
	assert.Equal(t, "t_address", TypeStrByIndex(types, 0))
	assert.Equal(t, "t_uint256", TypeStrByIndex(types, 1))
	assert.Equal(t, "", TypeStrByIndex(types, 2))
}

func TestIsTwoArgCalldataPointer(t *testing.T) {
	assert.True(t, IsTwoArgCalldataPointer("t_bytes_calldata_ptr"))
	assert.True(t, IsTwoArgCalldataPointer("t_string_calldata_ptr"))
	assert.True(t, IsTwoArgCalldataPointer("t_function_external_nonpayable$_$returns$_$"))
	assert.True(t, IsTwoArgCalldataPointer("t_array$_t_uint256_$dyn_calldata_ptr"))
	assert.False(t, IsTwoArgCalldataPointer("t_uint256"))
	assert.False(t, IsTwoArgCalldataPointer("t_array$_t_uint256_$3_memory_ptr"))
}
