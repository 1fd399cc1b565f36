// Package ir is the typed, SSA-like control-flow graph that the Yul
// lifter (package lift) builds and the normalization pass (package
// normalize) rewrites in place. It has no dependency on the Yul AST or
// the compiler-output loader: it only models the data in spec.md §3.
package ir

// ID is a dense integer identifier, unique within one Arena. Hashing and
// equality of a Value rest on the pair (Arena, ID), never on pointer
// identity of the Go value alone, so that two contracts can be compared
// or merged without their arenas colliding.
type ID int

// Arena assigns stable dense IDs to every Value created for one
// contract. Arenas are not thread-safe; cross-arena Value comparisons
// are undefined (spec.md §5).
type Arena struct {
	next ID
}

// NewArena returns an empty Arena. IDs start at 1 so the zero ID can
// mean "unset" in instruction fields that haven't been wired yet.
func NewArena() *Arena {
	return &Arena{next: 1}
}

func (a *Arena) alloc() ID {
	id := a.next
	a.next++
	return id
}

// Value is the base abstraction every IR entity implements: Instruction,
// Constant, Argument, Function, and BasicBlock.
type Value interface {
	ValueID() ID
	ValueArena() *Arena
	Users() []Value
	addUser(Value)
	removeUser(Value)
}

// valueBase is embedded by every concrete Value implementation.
type valueBase struct {
	arena *Arena
	id    ID
	users []Value
}

func newValueBase(a *Arena) valueBase {
	return valueBase{arena: a, id: a.alloc()}
}

func (v *valueBase) ValueID() ID          { return v.id }
func (v *valueBase) ValueArena() *Arena   { return v.arena }
func (v *valueBase) Users() []Value       { return v.users }

func (v *valueBase) addUser(u Value) {
	for _, existing := range v.users {
		if sameValue(existing, u) {
			return
		}
	}
	v.users = append(v.users, u)
}

func (v *valueBase) removeUser(u Value) {
	out := v.users[:0]
	for _, existing := range v.users {
		if !sameValue(existing, u) {
			out = append(out, existing)
		}
	}
	v.users = out
}

// sameValue compares two Values by (arena, id), per spec.md §3.
func sameValue(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ValueArena() == b.ValueArena() && a.ValueID() == b.ValueID()
}

// SameValue exposes the (arena, id) equality used throughout the engine
// for canonicalization and deduplication.
func SameValue(a, b Value) bool { return sameValue(a, b) }

// User is a Value that owns operands; every operand it reads records a
// back-pointer to it in the operand's Users() list.
type User interface {
	Value
	Operands() []Value
}

// use links operand -> user in both directions. Instruction constructors
// call this once per operand field they set; nil operands are ignored so
// partially-built instructions (e.g. a Branch with no condition) don't
// panic.
func use(operand Value, user User) {
	if operand == nil {
		return
	}
	operand.addUser(user)
}

// unuse removes a previously established operand/user edge, used when an
// instruction's operand is replaced (e.g. during normalization rewrites
// or phi simplification).
func unuse(operand Value, user User) {
	if operand == nil {
		return
	}
	operand.removeUser(user)
}

// CheckOperandUserSymmetry verifies that for every User u and every
// operand v, u is in v.Users(). Only this operand-to-user direction is
// checked; a stale entry in v.Users() whose user no longer has v as an
// operand is not reported. It is used by tests (spec.md §8) after lift, after every
// transform, and after normalization.
func CheckOperandUserSymmetry(users []User) []string {
	var problems []string
	for _, u := range users {
		for _, op := range u.Operands() {
			if op == nil {
				continue
			}
			found := false
			for _, usr := range op.Users() {
				if sameValue(usr, u) {
					found = true
					break
				}
			}
			if !found {
				problems = append(problems, "operand missing back-edge to user")
			}
		}
	}
	return problems
}
