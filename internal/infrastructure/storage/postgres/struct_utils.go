package postgres

import (
	"fmt"
	"reflect"

	"adminkit/internal/metadata"
)

// StructToMap converts an entity to a column -> value map over the mapped
// columns of its descriptor. Association fields are not included; their
// foreign keys are ordinary columns.
func StructToMap(def *metadata.EntityDef, entity any) (map[string]any, error) {
	res := make(map[string]any, len(def.ListAttributes))
	for _, a := range def.ListAttributes {
		if a.Column == "" {
			continue
		}
		v, ok := def.Accessor().Value(entity, a.Name)
		if !ok {
			return nil, fmt.Errorf("%s: attribute %s is not accessible on %T", def.Key, a.Name, entity)
		}
		res[a.Column] = v
	}
	return res, nil
}

// isZero reports whether v is nil or the zero value of its type.
func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}

// newSlicePtr returns a pointer to an empty []*T for scanning.
func newSlicePtr(t reflect.Type) reflect.Value {
	return reflect.New(reflect.SliceOf(reflect.PointerTo(t)))
}

// toAnySlice flattens a []*T held in a reflect.Value.
func toAnySlice(slice reflect.Value) []any {
	out := make([]any, slice.Len())
	for i := range out {
		out[i] = slice.Index(i).Interface()
	}
	return out
}

// assignCollection stores scanned []*T into a plural field typed []*T or []T.
func assignCollection(field reflect.Value, scanned reflect.Value) {
	if field.Type() == scanned.Type() {
		field.Set(scanned)
		return
	}
	values := reflect.MakeSlice(field.Type(), scanned.Len(), scanned.Len())
	for i := 0; i < scanned.Len(); i++ {
		values.Index(i).Set(scanned.Index(i).Elem())
	}
	field.Set(values)
}

// assignReference stores a scanned *T into a singular field typed *T or T.
func assignReference(field reflect.Value, scanned reflect.Value) {
	if field.Kind() == reflect.Ptr {
		field.Set(scanned)
		return
	}
	field.Set(scanned.Elem())
}
