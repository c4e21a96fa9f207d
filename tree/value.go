package tree

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/google/go-cmp/cmp"
)

// Structural helpers over canonical values. Every helper that produces a new
// value copies the container it touches; stored values are never edited in place.

var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// equal compares two canonical values structurally.
func equal(a, b any) bool {
	return cmp.Equal(a, b, exportAll)
}

func listIndex(key any) (int, bool) {
	switch k := key.(type) {
	case int:
		return k, true
	case int64:
		return int(k), true
	case int32:
		return int(k), true
	case uint:
		return int(k), true
	}
	return 0, false
}

func getKey(v any, key any, f Form) (any, bool) {
	switch f {
	case FormRecord:
		rec, _ := v.(Record)
		name, ok := key.(string)
		if !ok || rec == nil {
			return nil, false
		}
		child, ok := rec[name]
		return child, ok
	case FormMap:
		m, _ := v.(Map)
		if m == nil || !comparableKey(key) {
			return nil, false
		}
		child, ok := m[key]
		return child, ok
	case FormList:
		list, _ := v.(List)
		i, ok := listIndex(key)
		if !ok || i < 0 || i >= len(list) {
			return nil, false
		}
		return list[i], true
	}
	return nil, false
}

// setKey returns a copy of v with key set to child.
func setKey(v any, key any, child any, f Form) (any, error) {
	switch f {
	case FormRecord:
		name, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("record key %v (%T) is not a string: %w", key, key, ErrInvalidChild)
		}
		rec, _ := v.(Record)
		out := make(Record, len(rec)+1)
		for k, e := range rec {
			out[k] = e
		}
		out[name] = child
		return out, nil
	case FormMap:
		if !comparableKey(key) {
			return nil, fmt.Errorf("map key %v (%T) is not comparable: %w", key, key, ErrInvalidChild)
		}
		m, _ := v.(Map)
		out := make(Map, len(m)+1)
		for k, e := range m {
			out[k] = e
		}
		out[key] = child
		return out, nil
	case FormList:
		i, ok := listIndex(key)
		if !ok || i < 0 {
			return nil, fmt.Errorf("list index %v (%T) is invalid: %w", key, key, ErrInvalidChild)
		}
		list, _ := v.(List)
		size := len(list)
		if i >= size {
			size = i + 1
		}
		out := make(List, size)
		copy(out, list)
		out[i] = child
		return out, nil
	}
	return nil, ErrNotCompound
}

// delKeys returns a copy of v without keys. Lists keep their length and leave
// nil holes so the remaining children keep their indices.
func delKeys(v any, keys []any, f Form) any {
	switch f {
	case FormRecord:
		rec, _ := v.(Record)
		out := make(Record, len(rec))
		for k, e := range rec {
			out[k] = e
		}
		for _, key := range keys {
			if name, ok := key.(string); ok {
				delete(out, name)
			}
		}
		return out
	case FormMap:
		m, _ := v.(Map)
		out := make(Map, len(m))
		for k, e := range m {
			out[k] = e
		}
		for _, key := range keys {
			if comparableKey(key) {
				delete(out, key)
			}
		}
		return out
	case FormList:
		list, _ := v.(List)
		out := make(List, len(list))
		copy(out, list)
		for _, key := range keys {
			if i, ok := listIndex(key); ok && i >= 0 && i < len(out) {
				out[i] = nil
			}
		}
		return out
	}
	return v
}

// merge overlays update onto base. Keys present in update win, keys only in base
// survive. Nil list entries in update leave the base entry alone.
func merge(base, update any, f Form) any {
	switch f {
	case FormRecord:
		b, _ := base.(Record)
		u, _ := update.(Record)
		out := make(Record, len(b)+len(u))
		for k, e := range b {
			out[k] = e
		}
		for k, e := range u {
			out[k] = e
		}
		return out
	case FormMap:
		b, _ := base.(Map)
		u, _ := update.(Map)
		out := make(Map, len(b)+len(u))
		for k, e := range b {
			out[k] = e
		}
		for k, e := range u {
			out[k] = e
		}
		return out
	case FormList:
		b, _ := base.(List)
		u, _ := update.(List)
		size := len(b)
		if len(u) > size {
			size = len(u)
		}
		out := make(List, size)
		copy(out, b)
		for i, e := range u {
			if e != nil {
				out[i] = e
			}
		}
		return out
	}
	return update
}

// keysOf lists the keys of a canonical value in a stable order.
func keysOf(v any, f Form) []any {
	var out []any
	switch f {
	case FormRecord:
		rec, _ := v.(Record)
		names := make([]string, 0, len(rec))
		for k := range rec {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			out = append(out, k)
		}
	case FormMap:
		m, _ := v.(Map)
		for k := range m {
			out = append(out, k)
		}
		sort.Slice(out, func(i, j int) bool {
			return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
		})
	case FormList:
		list, _ := v.(List)
		for i := range list {
			out = append(out, i)
		}
	}
	return out
}

func comparableKey(key any) bool {
	if key == nil {
		return false
	}
	return reflect.TypeOf(key).Comparable()
}
