package traversal

import (
	"testing"

	"github.com/blocksecteam/hookscan/ir"
)

func TestConstraintNormalizeIszero(t *testing.T) {
	a := ir.NewArena()
	caller := ir.NewEVMInst(a, ir.OpCALLER, nil)
	callerInst := newValueInstance(caller, nil)
	iszero := ir.NewEVMInst(a, ir.OpISZERO, []ir.Value{caller})
	iszeroInst := newValueInstance(iszero, nil)
	iszeroInst.operands = append(iszeroInst.operands, callerInst)

	// ISZERO(caller) == 0 means caller is nonzero/truthy.
	c := newConstraint(iszeroInst, true, 0)
	if c.Condition.IRValue() != caller {
		t.Fatalf("expected normalize to unwrap ISZERO down to CALLER, got %v", c.Condition.IRValue())
	}
	if c.IsEq || c.CaseValue != 0 {
		t.Fatalf("ISZERO(caller)==0 should normalize to caller!=0, got IsEq=%v CaseValue=%d", c.IsEq, c.CaseValue)
	}
}

func TestConstraintMutualExclusive(t *testing.T) {
	a := ir.NewArena()
	caller := ir.NewEVMInst(a, ir.OpCALLER, nil)
	callerInst := newValueInstance(caller, nil)

	c1 := newConstraint(callerInst, true, 1)
	c2 := newConstraint(callerInst, true, 0)
	if !IsMutualExclusive(c1, c2) {
		t.Fatalf("eq(caller,1) and eq(caller,0) must be mutually exclusive")
	}

	c3 := newConstraint(callerInst, true, 1)
	if IsMutualExclusive(c1, c3) {
		t.Fatalf("eq(caller,1) and eq(caller,1) are the same constraint, not exclusive")
	}
}

func TestConstraintConstantSolves(t *testing.T) {
	a := ir.NewArena()
	one := ir.NewIntConstant(a, "1", 1)
	oneInst := newValueInstance(one, nil)

	c := newConstraint(oneInst, true, 1)
	if c.solved == nil || !*c.solved {
		t.Fatalf("eq(1,1) should solve true")
	}

	c2 := newConstraint(oneInst, true, 0)
	if c2.solved == nil || *c2.solved {
		t.Fatalf("eq(1,0) should solve false")
	}
}

func TestConditionKeySharesContextOpcode(t *testing.T) {
	a := ir.NewArena()
	caller1 := ir.NewEVMInst(a, ir.OpCALLER, nil)
	caller2 := ir.NewEVMInst(a, ir.OpCALLER, nil)
	if conditionKey(newValueInstance(caller1, nil)) != conditionKey(newValueInstance(caller2, nil)) {
		t.Fatalf("two independent CALLER reads must share a condition key")
	}

	addr := ir.NewEVMInst(a, ir.OpADDRESS, nil)
	if conditionKey(newValueInstance(caller1, nil)) == conditionKey(newValueInstance(addr, nil)) {
		t.Fatalf("CALLER and ADDRESS must not share a condition key")
	}
}

func TestViolatesConstraintsDetectsSelfContradiction(t *testing.T) {
	a := ir.NewArena()
	caller := ir.NewEVMInst(a, ir.OpCALLER, nil)
	callerInst := newValueInstance(caller, nil)

	committed := []Constraint{newConstraint(callerInst, true, 1)}
	candidate := newConstraint(callerInst, true, 0)
	if !ViolatesConstraints([]Constraint{candidate}, [][]Constraint{committed}) {
		t.Fatalf("a fork claiming caller==0 after an earlier committed caller==1 must violate")
	}

	sameAgain := newConstraint(callerInst, true, 1)
	if ViolatesConstraints([]Constraint{sameAgain}, [][]Constraint{committed}) {
		t.Fatalf("repeating the already-committed constraint must not violate")
	}
}
