package traversal

import (
	"fmt"

	"github.com/blocksecteam/hookscan/ir"
)

// Constraint records one branch/switch decision the DFS has committed
// to along the current path (spec.md §4.5, grounded on
// original_source/hookscan/core/traversal.py's Constraint dataclass).
// Condition is always normalized down to the innermost ValueInstance
// being compared; CaseValue/IsEq record what it was compared against.
type Constraint struct {
	Condition *ValueInstance
	IsEq      bool
	CaseValue int64

	conditionKey string
	solved       *bool // nil = unknown, else the forced truth of this constraint
}

// newConstraint builds and normalizes a Constraint the way the Python
// dataclass's __post_init__ does (_normalize, compute key, _try_solve).
func newConstraint(condition *ValueInstance, isEq bool, caseValue int64) Constraint {
	c := Constraint{Condition: condition, IsEq: isEq, CaseValue: caseValue}
	c.normalize()
	c.conditionKey = conditionKey(c.Condition)
	c.trySolve()
	return c
}

// isBoolCondition reports whether cond's underlying instruction is
// already 0/1-shaped: a comparison opcode, or `and(x, 1)`.
func isBoolCondition(cond *ValueInstance) bool {
	evm, ok := cond.IRValue().(*ir.EVMInst)
	if !ok {
		return false
	}
	switch evm.Op {
	case ir.OpLT, ir.OpGT, ir.OpSLT, ir.OpSGT, ir.OpEQ, ir.OpISZERO:
		return true
	case ir.OpAND:
		if len(evm.Args) != 2 {
			return false
		}
		c, ok := evm.Args[1].(*ir.Constant)
		return ok && c.Kind == ir.ConstInt && c.Int == 1
	default:
		return false
	}
}

// normalize walks ISZERO / boolean-negation / EQ-against-constant shapes
// down to a canonical (condition, is_eq, case_value) triple
// (traversal.py's Constraint._normalize).
func (c *Constraint) normalize() {
	c.Condition = c.Condition.OriginInstance()

	if evm, ok := c.Condition.IRValue().(*ir.EVMInst); ok && evm.Op == ir.OpISZERO {
		inner, ok := c.Condition.OperandInstances()[0].(*ValueInstance)
		if ok {
			c.IsEq = !xorBool(c.IsEq, c.CaseValue != 0)
			c.Condition = inner
			c.CaseValue = 0
			c.normalize()
			return
		}
	}

	if isBoolCondition(c.Condition) && !c.IsEq {
		c.IsEq = true
		c.CaseValue = 1 - c.CaseValue
		c.normalize()
		return
	}

	if evm, ok := c.Condition.IRValue().(*ir.EVMInst); ok && evm.Op == ir.OpEQ {
		ops := c.Condition.OperandInstances()
		if len(ops) == 2 {
			for i := 0; i < 2; i++ {
				vi, ok := ops[i].(*ValueInstance)
				if !ok {
					continue
				}
				konst, ok := vi.OriginInstance().IRValue().(*ir.Constant)
				if !ok || konst.Kind != ir.ConstInt {
					continue
				}
				other, ok := ops[1-i].(*ValueInstance)
				if !ok {
					continue
				}
				c.IsEq = !xorBool(c.IsEq, c.CaseValue != 0)
				c.Condition = other.OriginInstance()
				c.CaseValue = konst.Int
				c.normalize()
				return
			}
		}
	}
}

func xorBool(a, b bool) bool { return a != b }

// trySolve pre-computes whether this constraint is trivially
// satisfiable/unsatisfiable given the condition's own shape
// (traversal.py's Constraint._try_solve): a literal constant condition
// resolves immediately, and `eq(a, a)` resolves to its own case value.
func (c *Constraint) trySolve() {
	if konst, ok := c.Condition.IRValue().(*ir.Constant); ok && konst.Kind == ir.ConstInt {
		result := c.IsEq == (konst.Int == c.CaseValue)
		c.solved = &result
		return
	}
	if evm, ok := c.Condition.IRValue().(*ir.EVMInst); ok && evm.Op == ir.OpEQ {
		ops := c.Condition.OperandInstances()
		if len(ops) == 2 {
			a, aok := ops[0].(*ValueInstance)
			b, bok := ops[1].(*ValueInstance)
			if aok && bok && conditionKey(a.OriginInstance()) == conditionKey(b.OriginInstance()) {
				result := c.CaseValue != 0
				c.solved = &result
			}
		}
	}
}

// conditionKey canonicalizes a normalized condition's origin so that
// two reads of the same context opcode (CALLER, NUMBER, ...) -- which
// carry no operands and so are structurally interchangeable regardless
// of which ValueInstance produced them -- compare equal
// (grounded on the sibling project's flatten_key_mapping.get_key). Any
// other condition is keyed by the identity of its own instance.
func conditionKey(v *ValueInstance) string {
	switch inst := v.IRValue().(type) {
	case *ir.EVMInst:
		switch inst.Op {
		case ir.OpCALLER, ir.OpCALLVALUE, ir.OpORIGIN, ir.OpNUMBER, ir.OpTIMESTAMP,
			ir.OpADDRESS, ir.OpCALLDATASIZE, ir.OpCODESIZE, ir.OpGASPRICE, ir.OpCOINBASE,
			ir.OpPREVRANDAO, ir.OpGASLIMIT, ir.OpCHAINID:
			return "op:" + ir.OpcodeName(inst.Op)
		case ir.OpLOADIMMUTABLE:
			if len(inst.Args) == 1 {
				if c, ok := inst.Args[0].(*ir.Constant); ok {
					return "loadimmutable:" + c.IntText
				}
			}
		}
	case *ir.Constant:
		if inst.Kind == ir.ConstInt {
			return "const:" + inst.IntText
		}
	}
	return fmt.Sprintf("identity:%p", v)
}

// IsMutualExclusive reports whether a and b are two constraints on the
// same condition with incompatible values (traversal.py's
// is_mutual_exclusive).
func IsMutualExclusive(a, b Constraint) bool {
	if a.conditionKey != b.conditionKey {
		return false
	}
	if a.IsEq != b.IsEq {
		return a.CaseValue == b.CaseValue
	}
	if a.IsEq && b.IsEq {
		return a.CaseValue != b.CaseValue
	}
	return false
}

// ViolatesConstraints reports whether any of candidates conflicts with
// a constraint already committed to earlier on the current path, or is
// self-contradictory (traversal.py's is_violate_constraints). forks is
// the list of earlier fork PathNodes' own committed constraint sets.
func ViolatesConstraints(candidates []Constraint, forks [][]Constraint) bool {
	if len(candidates) == 1 {
		cond := candidates[0].Condition
		if evm, ok := cond.IRValue().(*ir.EVMInst); ok && evm.Op == ir.OpGT {
			ops := cond.OperandInstances()
			if len(ops) == 2 {
				left, lok := ops[0].(*ValueInstance)
				right, rok := ops[1].(*ValueInstance)
				if lok && rok {
					_, leftConst := left.IRValue().(*ir.Constant)
					rightRDS, rightOK := right.IRValue().(*ir.EVMInst)
					if leftConst && rightOK && rightRDS.Op == ir.OpRETURNDATASIZE {
						return candidates[0].CaseValue == 1
					}
				}
			}
		}
	}

	for _, constraint := range candidates {
		if constraint.solved != nil {
			if *constraint.solved {
				continue
			}
			return true
		}
		for _, committed := range forks {
			for _, pc := range committed {
				if IsMutualExclusive(pc, constraint) {
					return true
				}
			}
		}
	}
	return false
}
