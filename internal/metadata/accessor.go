package metadata

import (
	"reflect"
)

// Accessor is a per-type dispatch table from attribute name to struct field
// index path, built once at registry construction.
type Accessor struct {
	typ    reflect.Type
	fields map[string][]int
}

func newAccessor(t reflect.Type, attrs []AttributeDef) *Accessor {
	fields := make(map[string][]int, len(attrs))
	for _, a := range attrs {
		fields[a.Name] = a.Index
	}
	return &Accessor{typ: t, fields: fields}
}

// Has reports whether name is a known attribute.
func (a *Accessor) Has(name string) bool {
	_, ok := a.fields[name]
	return ok
}

// Value returns the raw value of attribute name on instance. ok is false when
// the attribute is unknown or the instance is not (and does not wrap) the
// accessor's type. Nil pointers, slices and maps come back as a nil value with
// ok set. Value never mutates instance.
func (a *Accessor) Value(instance any, name string) (value any, ok bool) {
	idx, known := a.fields[name]
	if !known {
		return nil, false
	}
	rv, found := a.locate(reflect.ValueOf(instance))
	if !found {
		return nil, false
	}
	f, err := rv.FieldByIndexErr(idx)
	if err != nil || !f.CanInterface() {
		return nil, false
	}
	switch f.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		if f.IsNil() {
			return nil, true
		}
	}
	return f.Interface(), true
}

// Field returns the settable field behind attribute name. instance must be a
// non-nil pointer. Meant for persistence code that populates associations.
func (a *Accessor) Field(instance any, name string) (reflect.Value, bool) {
	idx, known := a.fields[name]
	if !known {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return reflect.Value{}, false
	}
	rv, found := a.locate(rv)
	if !found {
		return reflect.Value{}, false
	}
	f, err := rv.FieldByIndexErr(idx)
	if err != nil || !f.CanSet() {
		return reflect.Value{}, false
	}
	return f, true
}

// locate dereferences v and, for wrapper types, walks anonymous fields until
// it finds the accessor's struct type.
func (a *Accessor) locate(v reflect.Value) (reflect.Value, bool) {
	for depth := 0; depth <= maxEmbedDepth; depth++ {
		for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		if !v.IsValid() || v.Kind() != reflect.Struct {
			return reflect.Value{}, false
		}
		if v.Type() == a.typ {
			return v, true
		}
		next, ok := embeddedField(v, a.typ)
		if !ok {
			return reflect.Value{}, false
		}
		v = next
	}
	return reflect.Value{}, false
}

// embeddedField returns the anonymous field of v that is, or leads to, target.
func embeddedField(v reflect.Value, target reflect.Type) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := deref(f.Type)
		if ft == target || embeds(ft, target, 0) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
