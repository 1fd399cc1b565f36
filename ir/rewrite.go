package ir

import "reflect"

// ReplaceOperand rewrites every field of user that currently points at
// old (compared by (arena, id) identity, per sameValue) to instead point
// at newVal, and fixes up the operand/user back-edges to match. It is
// the mechanism normalization (package normalize) uses to splice a typed
// instruction in for the generic YulFuncInst/CallInst it replaces: the
// replaced instruction's former users otherwise keep pointing at a node
// that is no longer reachable from any block.
//
// Operand fields across the ~30 concrete instruction kinds all hold
// either a Value or a []Value, so a single reflection-based sweep
// replaces the bespoke ReplaceOperand method each kind would otherwise
// need.
func ReplaceOperand(user User, old, newVal Value) {
	if user == nil || old == nil || sameValue(old, newVal) {
		return
	}
	v := reflect.ValueOf(user)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	if replaceInStruct(v, old, newVal) {
		unuse(old, user)
		use(newVal, user)
	}
}

var valueType = reflect.TypeOf((*Value)(nil)).Elem()

func replaceInStruct(v reflect.Value, old, newVal Value) bool {
	replaced := false
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !f.CanSet() {
			continue
		}
		switch {
		case f.Type() == valueType:
			if !f.IsNil() && sameValue(f.Interface().(Value), old) {
				f.Set(reflect.ValueOf(newVal))
				replaced = true
			}
		case f.Kind() == reflect.Slice && f.Type().Elem() == valueType:
			for j := 0; j < f.Len(); j++ {
				elem := f.Index(j)
				if !elem.IsNil() && sameValue(elem.Interface().(Value), old) {
					elem.Set(reflect.ValueOf(newVal))
					replaced = true
				}
			}
		}
	}
	return replaced
}

// ReplaceAllUses retargets every recorded user of old onto newVal. Used
// after splicing a replacement instruction into a block in old's place.
func ReplaceAllUses(old, newVal Value) {
	if old == nil || sameValue(old, newVal) {
		return
	}
	for _, u := range append([]Value(nil), old.Users()...) {
		if user, ok := u.(User); ok {
			ReplaceOperand(user, old, newVal)
		}
	}
}
