package odx

import "sort"

// ShortNameList is an ordered, short-name-keyed container, modeled on
// original_source's NamedItemList (SPEC_FULL.md §9 supplemented
// feature). It gives every "list of X, keyed by short name" in the spec
// (diag layer containers, comparam subsets, protocols, flattened
// services) the same deterministic iteration order.
type ShortNameList[T any] struct {
	keyOf  func(T) string
	byName map[string]T
	order  []string
}

func NewShortNameList[T any](keyOf func(T) string) *ShortNameList[T] {
	return &ShortNameList[T]{keyOf: keyOf, byName: make(map[string]T)}
}

func (l *ShortNameList[T]) Set(item T) {
	l.SetNamed(l.keyOf(item), item)
}

// SetNamed inserts item under an explicit name, used when the name in
// effect differs from the item's own short name (inheritance renames).
func (l *ShortNameList[T]) SetNamed(name string, item T) {
	if _, exists := l.byName[name]; !exists {
		l.order = append(l.order, name)
	}
	l.byName[name] = item
}

func (l *ShortNameList[T]) Get(name string) (T, bool) {
	v, ok := l.byName[name]
	return v, ok
}

// Items returns the contents sorted by short name, matching
// NamedItemList's sort-by-key convention.
func (l *ShortNameList[T]) Items() []T {
	names := append([]string{}, l.order...)
	sort.Strings(names)
	out := make([]T, len(names))
	for i, n := range names {
		out[i] = l.byName[n]
	}
	return out
}

func (l *ShortNameList[T]) Len() int { return len(l.order) }
