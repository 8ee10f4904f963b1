package memstore

import (
	"bytes"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"eduplatform-backend/store"
)

// table holds immutable rows: every write stores a fresh clone, so a shallow
// copy of rows is a consistent snapshot.
type table[T any] struct {
	rows map[primitive.ObjectID]*T
	id   func(*T) primitive.ObjectID
}

func newTable[T any](id func(*T) primitive.ObjectID) *table[T] {
	return &table[T]{rows: map[primitive.ObjectID]*T{}, id: id}
}

func clone[T any](v *T) *T {
	raw, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := bson.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}

func (t *table[T]) snapshot() *table[T] {
	rows := make(map[primitive.ObjectID]*T, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	return &table[T]{rows: rows, id: t.id}
}

func (t *table[T]) insert(v *T) error {
	id := t.id(v)
	if _, ok := t.rows[id]; ok {
		return store.ErrDuplicate
	}
	t.rows[id] = clone(v)
	return nil
}

func (t *table[T]) get(id primitive.ObjectID) (*T, error) {
	v, ok := t.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(v), nil
}

func (t *table[T]) replace(v *T) error {
	id := t.id(v)
	if _, ok := t.rows[id]; !ok {
		return store.ErrNotFound
	}
	t.rows[id] = clone(v)
	return nil
}

func (t *table[T]) update(id primitive.ObjectID, fn func(*T) error) error {
	v, ok := t.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	next := clone(v)
	if err := fn(next); err != nil {
		return err
	}
	t.rows[id] = next
	return nil
}

func (t *table[T]) delete(id primitive.ObjectID) error {
	if _, ok := t.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

func (t *table[T]) deleteWhere(match func(*T) bool) {
	for id, v := range t.rows {
		if match(v) {
			delete(t.rows, id)
		}
	}
}

func (t *table[T]) first(match func(*T) bool) (*T, error) {
	for _, v := range t.rows {
		if match(v) {
			return clone(v), nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *table[T]) exists(match func(*T) bool) bool {
	for _, v := range t.rows {
		if match(v) {
			return true
		}
	}
	return false
}

// find returns clones of the matching rows, newest first.
func (t *table[T]) find(match func(*T) bool) []*T {
	out := make([]*T, 0)
	for _, v := range t.rows {
		if match == nil || match(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := t.id(out[i]), t.id(out[j])
		return bytes.Compare(a[:], b[:]) > 0
	})
	for i, v := range out {
		out[i] = clone(v)
	}
	return out
}

func paginate[T any](rows []*T, p store.Page) []*T {
	p = p.Normalize()
	if p.Skip >= int64(len(rows)) {
		return []*T{}
	}
	end := p.Skip + p.Limit
	if end > int64(len(rows)) {
		end = int64(len(rows))
	}
	return rows[p.Skip:end]
}

func hasID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func withoutID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
