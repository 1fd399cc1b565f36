package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksecteam/hookscan/ir"
)

func TestProtectHandlerStack(t *testing.T) {
	p := NewProtectHandler()
	assert.False(t, p.IsProtected())

	p.Push(3)
	assert.True(t, p.IsProtected())

	p.Pop(5) // wrong index, stack frame at 5 never pushed -- no-op
	assert.True(t, p.IsProtected())

	p.Pop(3)
	assert.False(t, p.IsProtected())
}

func TestIsCallerAddressCheckEitherOrder(t *testing.T) {
	a := ir.NewArena()
	caller := ir.NewEVMInst(a, ir.OpCALLER, nil)
	address := ir.NewEVMInst(a, ir.OpADDRESS, nil)
	eq := ir.NewEVMInst(a, ir.OpEQ, []ir.Value{caller, address})

	assert.True(t, IsCallerAddressCheck(eq, caller, address))
	assert.True(t, IsCallerAddressCheck(eq, address, caller))

	other := ir.NewEVMInst(a, ir.OpEQ, []ir.Value{caller, caller})
	assert.False(t, IsCallerAddressCheck(other, caller, caller))
}

func TestTimeoutHandlerSplitsBudgetAcrossEntries(t *testing.T) {
	contract := ir.NewContract("Hook.yul", "Hook")
	ext1 := ir.NewFunction(contract.Arena, "external_fun_a", ir.FuncExternal)
	ext2 := ir.NewFunction(contract.Arena, "external_fun_b", ir.FuncExternal)
	contract.RuntimeFuncs["external_fun_a"] = ext1
	contract.RuntimeFuncs["external_fun_b"] = ext2

	h := NewTimeoutHandler(60*time.Second, 3*time.Second)
	h.StartRound(contract)

	require.Contains(t, h.perEntryLimit, ext1)
	require.Contains(t, h.perEntryLimit, ext2)
	assert.Equal(t, h.perEntryLimit[ext1], h.perEntryLimit[ext2])
	assert.Equal(t, (57*time.Second)/2, h.perEntryLimit[ext1])
}

func TestTimeoutHandlerCreationPartOnly(t *testing.T) {
	h := NewTimeoutHandler(60*time.Second, 1*time.Millisecond)
	h.StartRound(ir.NewContract("Hook.yul", "Hook"))

	assert.False(t, h.IsTimeout(false, nil))
	time.Sleep(2 * time.Millisecond)
	assert.True(t, h.IsTimeout(false, nil))
	// the creation-part clock never marks the whole round out
	assert.False(t, h.HasTimedOutAll())
}

func TestTimeoutHandlerRoundWideTimeout(t *testing.T) {
	h := NewTimeoutHandler(1*time.Millisecond, 0)
	h.StartRound(ir.NewContract("Hook.yul", "Hook"))

	time.Sleep(2 * time.Millisecond)
	assert.True(t, h.IsTimeout(true, nil))
	assert.True(t, h.HasTimedOutAll())
}
