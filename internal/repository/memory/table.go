package memory

import "sort"

// table keeps rows by id plus their insertion sequence so listings are stable.
type table[T any] struct {
	rows map[string]T
	seq  map[string]uint64
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[string]T), seq: make(map[string]uint64)}
}

func (t table[T]) clone() table[T] {
	cp := table[T]{rows: make(map[string]T, len(t.rows)), seq: make(map[string]uint64, len(t.seq))}
	for k, v := range t.rows {
		cp.rows[k] = v
	}
	for k, v := range t.seq {
		cp.seq[k] = v
	}
	return cp
}

func (t table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t table[T]) has(id string) bool {
	_, ok := t.rows[id]
	return ok
}

func (t table[T]) put(id string, v T, seq uint64) {
	if _, ok := t.seq[id]; !ok {
		t.seq[id] = seq
	}
	t.rows[id] = v
}

func (t table[T]) remove(id string) {
	delete(t.rows, id)
	delete(t.seq, id)
}

func (t table[T]) list(keep func(T) bool) []T {
	ids := make([]string, 0, len(t.rows))
	for id, v := range t.rows {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return t.seq[ids[i]] < t.seq[ids[j]] })

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id])
	}
	return out
}

func (t table[T]) any(match func(T) bool) bool {
	for _, v := range t.rows {
		if match(v) {
			return true
		}
	}
	return false
}
