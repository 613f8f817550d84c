package library

// table keeps entities by id in insertion order.
type table[T any] struct {
	items map[string]*T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{items: make(map[string]*T)}
}

func (t *table[T]) get(id string) (*T, bool) {
	v, ok := t.items[id]
	return v, ok
}

// put inserts or replaces; replacing keeps the original position.
func (t *table[T]) put(id string, v *T) {
	if _, ok := t.items[id]; !ok {
		t.order = append(t.order, id)
	}
	t.items[id] = v
}

func (t *table[T]) remove(id string) (*T, bool) {
	v, ok := t.items[id]
	if !ok {
		return nil, false
	}
	delete(t.items, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return v, true
}

func (t *table[T]) list(clone func(*T) *T) []*T {
	out := make([]*T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, clone(t.items[id]))
	}
	return out
}

func (t *table[T]) len() int { return len(t.order) }

func (t *table[T]) reset() {
	t.items = make(map[string]*T)
	t.order = nil
}
