// Package state holds the mutable conversation context threaded through the
// turns of one scenario.
package state

import (
	"reflect"
	"sort"

	deepcopy "github.com/tiendc/go-deepcopy"
)

// Bag is the map-backed conversation context a scenario run threads through
// its turns. It is owned by a single run and is not safe for concurrent
// writers. Snapshots never alias live data.
type Bag struct {
	fields map[string]any
}

// NewBag seeds a Bag from initial context values. A nil seed yields an empty
// bag.
func NewBag(seed map[string]any) *Bag {
	b := &Bag{fields: make(map[string]any, len(seed))}
	for k, v := range seed {
		b.fields[k] = v
	}
	return b
}

func (b *Bag) Set(key string, value any) {
	b.fields[key] = value
}

func (b *Bag) Get(key string) (any, bool) {
	v, ok := b.fields[key]
	return v, ok
}

func (b *Bag) Delete(key string) {
	delete(b.fields, key)
}

func (b *Bag) Len() int {
	return len(b.fields)
}

// Keys returns the field names in sorted order.
func (b *Bag) Keys() []string {
	keys := make([]string, 0, len(b.fields))
	for k := range b.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *Bag) Snapshot() map[string]any {
	var copied map[string]any
	if err := deepcopy.Copy(&copied, b.fields); err != nil {
		// Non-copyable values degrade to a shallow snapshot.
		copied = make(map[string]any, len(b.fields))
		for k, v := range b.fields {
			copied[k] = v
		}
	}
	if copied == nil {
		copied = make(map[string]any)
	}
	return copied
}

// Diff returns the fields whose values changed between two snapshots, mapped
// to their new values. Fields removed in after are reported with a nil value.
func Diff(before, after map[string]any) map[string]any {
	changes := make(map[string]any)

	for key, newValue := range after {
		oldValue, existed := before[key]
		if !existed || !reflect.DeepEqual(oldValue, newValue) {
			changes[key] = newValue
		}
	}

	for key := range before {
		if _, stillThere := after[key]; !stillThere {
			changes[key] = nil
		}
	}

	return changes
}
