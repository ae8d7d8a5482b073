package umbra

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

type EntityId uint64
type set[T comparable] = map[T]struct{}

// componentStore maps an entity to a pointer to its component value.
type componentStore map[EntityId]any

type Ecs struct {
	stores map[reflect.Type]componentStore
	alive  []EntityId // ascending; ids are never reused

	idGeneratorLock sync.Mutex
	entityIdCounter EntityId
}

func MakeEcs() Ecs {
	return Ecs{
		stores:          make(map[reflect.Type]componentStore),
		entityIdCounter: EntityId(1),
	}
}

func (ecs *Ecs) addEntity(components ...any) EntityId {
	entityId := ecs.nextEntityId()
	return ecs.insertEntity(entityId, components...)
}

func (ecs *Ecs) insertEntity(entityId EntityId, components ...any) EntityId {
	if idx, found := slices.BinarySearch(ecs.alive, entityId); !found {
		ecs.alive = slices.Insert(ecs.alive, idx, entityId)
	}
	for _, component := range components {
		ecs.writeComponent(entityId, component)
	}
	return entityId
}

func (ecs *Ecs) hasEntity(entityId EntityId) bool {
	_, found := slices.BinarySearch(ecs.alive, entityId)
	return found
}

func (ecs *Ecs) removeEntity(entityId EntityId) {
	idx, found := slices.BinarySearch(ecs.alive, entityId)
	if !found {
		return
	}
	ecs.alive = slices.Delete(ecs.alive, idx, idx+1)
	for _, store := range ecs.stores {
		delete(store, entityId)
	}
}

func (ecs *Ecs) addComponents(entityId EntityId, components ...any) {
	if !ecs.hasEntity(entityId) {
		return
	}
	for _, component := range components {
		ecs.writeComponent(entityId, component)
	}
}

func (ecs *Ecs) removeComponents(entityId EntityId, components ...any) {
	for _, c := range components {
		if store, ok := ecs.stores[componentType(c)]; ok {
			delete(store, entityId)
		}
	}
}

// writeComponent stores pointers as-is so the caller keeps a live handle to
// the component; values are copied into a fresh allocation.
func (ecs *Ecs) writeComponent(entityId EntityId, component any) {
	t := componentType(component)
	store, ok := ecs.stores[t]
	if !ok {
		store = make(componentStore)
		ecs.stores[t] = store
	}

	v := reflect.ValueOf(component)
	if v.Kind() == reflect.Pointer {
		store[entityId] = component
		return
	}
	ptr := reflect.New(t)
	ptr.Elem().Set(v)
	store[entityId] = ptr.Interface()
}

func (ecs *Ecs) component(entityId EntityId, t reflect.Type) (any, bool) {
	store, ok := ecs.stores[t]
	if !ok {
		return nil, false
	}
	c, ok := store[entityId]
	return c, ok
}

func (ecs *Ecs) nextEntityId() EntityId {
	ecs.idGeneratorLock.Lock()
	defer ecs.idGeneratorLock.Unlock()

	id := ecs.entityIdCounter
	ecs.entityIdCounter += 1

	return id
}

func componentType(component any) reflect.Type {
	t := reflect.TypeOf(component)
	if t == nil {
		panic("component must not be nil")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Errorf("expected Component to be a struct or a pointer to a struct, got %s", t.Kind()))
	}
	return t
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
