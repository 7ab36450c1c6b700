package vulkan

import (
	"slices"
	"sync"
)

// handleTable maps the opaque handles the engine holds to binding objects.
// Handle values come from a counter shared by every table of a context, so a
// handle of one kind never aliases another.
type handleTable[T any] struct {
	mu   sync.RWMutex
	objs map[uint64]T
}

func newHandleTable[T any]() *handleTable[T] {
	return &handleTable[T]{objs: make(map[uint64]T)}
}

func (t *handleTable[T]) put(id uint64, obj T) {
	t.mu.Lock()
	t.objs[id] = obj
	t.mu.Unlock()
}

// get returns the zero value for unknown handles, which the binding treats as VK_NULL_HANDLE.
func (t *handleTable[T]) get(id uint64) T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.objs[id]
}

func (t *handleTable[T]) take(id uint64) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.objs[id]
	delete(t.objs, id)
	return obj, ok
}

// ids returns the live handles in ascending order.
func (t *handleTable[T]) ids() []uint64 {
	t.mu.RLock()
	keys := make([]uint64, 0, len(t.objs))
	for id := range t.objs {
		keys = append(keys, id)
	}
	t.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

func (t *handleTable[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.objs)
}
