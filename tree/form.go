package tree

import (
	"reflect"

	"github.com/mitchellh/copystructure"
)

// Form is the structural shape of a node's value.
type Form int

const (
	// FormScalar is any value without addressable sub-fields.
	FormScalar Form = iota

	// FormList is an index-addressed sequence ([List]).
	FormList

	// FormMap is a key-indexed map with arbitrary comparable keys ([Map]).
	FormMap

	// FormRecord is a string-keyed record ([Record]).
	FormRecord
)

// String returns the form's lower-case name.
func (f Form) String() string {
	switch f {
	case FormScalar:
		return "scalar"
	case FormList:
		return "list"
	case FormMap:
		return "map"
	case FormRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Compound reports whether values of this form have child-addressable keys.
func (f Form) Compound() bool {
	return f == FormList || f == FormMap || f == FormRecord
}

// Record is the canonical representation of a keyed record.
// Any map with string-kind keys is ingested as a Record.
type Record map[string]any

// Map is the canonical representation of a key-indexed map.
// Maps whose keys are not strings are ingested as a Map.
type Map map[any]any

// List is the canonical representation of an ordered list.
// Slices other than []byte are ingested as a List.
type List []any

// DetectForm returns the form a value would take once ingested into a node.
func DetectForm(v any) Form {
	switch v.(type) {
	case nil:
		return FormScalar
	case Record, map[string]any:
		return FormRecord
	case Map, map[any]any:
		return FormMap
	case List, []any:
		return FormList
	case []byte:
		return FormScalar
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return FormRecord
		}
		return FormMap
	case reflect.Slice:
		return FormList
	}
	return FormScalar
}

// ingest deep-copies v and rewrites every container into its canonical
// Record, Map or List type so stored values never alias caller memory.
func ingest(v any) any {
	return canonical(deepCopy(v))
}

// deepCopy returns an independent copy of v, or v itself when it cannot be copied
// (functions, channels and the like are treated as opaque scalars).
func deepCopy(v any) any {
	if v == nil {
		return nil
	}
	out, err := copystructure.Copy(v)
	if err != nil {
		return v
	}
	return out
}

func canonical(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case Record:
		return canonicalRecord(t)
	case map[string]any:
		return canonicalRecord(t)
	case Map:
		return canonicalMap(t)
	case map[any]any:
		return canonicalMap(t)
	case List:
		return canonicalList(t)
	case []any:
		return canonicalList(t)
	case []byte:
		return t
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		iter := rv.MapRange()
		if rv.Type().Key().Kind() == reflect.String {
			out := make(Record, rv.Len())
			for iter.Next() {
				out[iter.Key().String()] = canonical(iter.Value().Interface())
			}
			return out
		}
		out := make(Map, rv.Len())
		for iter.Next() {
			out[iter.Key().Interface()] = canonical(iter.Value().Interface())
		}
		return out
	case reflect.Slice:
		out := make(List, rv.Len())
		for i := range out {
			out[i] = canonical(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func canonicalRecord(in map[string]any) Record {
	out := make(Record, len(in))
	for k, e := range in {
		out[k] = canonical(e)
	}
	return out
}

func canonicalMap(in map[any]any) Map {
	out := make(Map, len(in))
	for k, e := range in {
		out[k] = canonical(e)
	}
	return out
}

func canonicalList(in []any) List {
	out := make(List, len(in))
	for i, e := range in {
		out[i] = canonical(e)
	}
	return out
}

// sameType reports whether two scalars share a dynamic type. Used for type pinning.
func sameType(a, b any) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}
