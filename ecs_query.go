package umbra

import (
	"reflect"
	"slices"
)

// Queries walk live entities in ascending id order. A component type listed
// in optionals may be missing, in which case nil is passed for it.
type Query1[A any] struct{ ecs *Ecs }
type Query2[A, B any] struct{ ecs *Ecs }
type Query3[A, B, C any] struct{ ecs *Ecs }
type Query4[A, B, C, D any] struct{ ecs *Ecs }

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return Query3[A, B, C]{ecs: cmd.app.ecs} }
func MakeQuery4[A, B, C, D any](cmd *Commands) Query4[A, B, C, D] {
	return Query4[A, B, C, D]{ecs: cmd.app.ecs}
}

type column struct {
	store    componentStore
	optional bool
}

func resolveColumn(ecs *Ecs, t reflect.Type, opt set[reflect.Type]) (column, bool) {
	_, optional := opt[t]
	store, ok := ecs.stores[t]
	if !ok && !optional {
		return column{}, false
	}
	return column{store: store, optional: optional}, true
}

// fetch returns the component pointer (or nil) and whether the entity matches.
func (c column) fetch(eid EntityId) (any, bool) {
	if v, ok := c.store[eid]; ok {
		return v, true
	}
	return nil, c.optional
}

func identifyOptionals(optionals ...any) set[reflect.Type] {
	res := make(set[reflect.Type], len(optionals))
	for _, o := range optionals {
		res[componentType(o)] = struct{}{}
	}
	return res
}

func ptrOrNil[T any](v any) *T {
	if v == nil {
		return nil
	}
	return v.(*T)
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	opt := identifyOptionals(optionals...)
	colA, ok := resolveColumn(q.ecs, typeOf[A](), opt)
	if !ok {
		return
	}

	for _, eid := range slices.Clone(q.ecs.alive) {
		a, ok := colA.fetch(eid)
		if !ok {
			continue
		}
		if !m(eid, ptrOrNil[A](a)) {
			return
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	opt := identifyOptionals(optionals...)
	colA, okA := resolveColumn(q.ecs, typeOf[A](), opt)
	colB, okB := resolveColumn(q.ecs, typeOf[B](), opt)
	if !okA || !okB {
		return
	}

	for _, eid := range slices.Clone(q.ecs.alive) {
		a, ok := colA.fetch(eid)
		if !ok {
			continue
		}
		b, ok := colB.fetch(eid)
		if !ok {
			continue
		}
		if !m(eid, ptrOrNil[A](a), ptrOrNil[B](b)) {
			return
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	opt := identifyOptionals(optionals...)
	colA, okA := resolveColumn(q.ecs, typeOf[A](), opt)
	colB, okB := resolveColumn(q.ecs, typeOf[B](), opt)
	colC, okC := resolveColumn(q.ecs, typeOf[C](), opt)
	if !okA || !okB || !okC {
		return
	}

	for _, eid := range slices.Clone(q.ecs.alive) {
		a, ok := colA.fetch(eid)
		if !ok {
			continue
		}
		b, ok := colB.fetch(eid)
		if !ok {
			continue
		}
		c, ok := colC.fetch(eid)
		if !ok {
			continue
		}
		if !m(eid, ptrOrNil[A](a), ptrOrNil[B](b), ptrOrNil[C](c)) {
			return
		}
	}
}

func (q Query4[A, B, C, D]) Map(m func(EntityId, *A, *B, *C, *D) bool, optionals ...any) {
	opt := identifyOptionals(optionals...)
	colA, okA := resolveColumn(q.ecs, typeOf[A](), opt)
	colB, okB := resolveColumn(q.ecs, typeOf[B](), opt)
	colC, okC := resolveColumn(q.ecs, typeOf[C](), opt)
	colD, okD := resolveColumn(q.ecs, typeOf[D](), opt)
	if !okA || !okB || !okC || !okD {
		return
	}

	for _, eid := range slices.Clone(q.ecs.alive) {
		a, ok := colA.fetch(eid)
		if !ok {
			continue
		}
		b, ok := colB.fetch(eid)
		if !ok {
			continue
		}
		c, ok := colC.fetch(eid)
		if !ok {
			continue
		}
		d, ok := colD.fetch(eid)
		if !ok {
			continue
		}
		if !m(eid, ptrOrNil[A](a), ptrOrNil[B](b), ptrOrNil[C](c), ptrOrNil[D](d)) {
			return
		}
	}
}

// GetComponent returns the entity's component of type T, or nil when the
// entity is gone or does not carry one.
func GetComponent[T any](cmd *Commands, eid EntityId) *T {
	if cmd == nil || cmd.app == nil || cmd.app.ecs == nil {
		return nil
	}
	v, ok := cmd.app.ecs.component(eid, typeOf[T]())
	if !ok {
		return nil
	}
	return v.(*T)
}
