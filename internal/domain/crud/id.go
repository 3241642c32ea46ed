package crud

import (
	"fmt"
	"reflect"
	"strconv"

	"adminkit/internal/core/apperror"
	"adminkit/internal/core/id"
	"adminkit/internal/metadata"
)

// CoerceID converts an identifier token to the entity's declared identifier
// type. A malformed token fails with INVALID_ID; an identifier type without a
// text coercion fails with UNSUPPORTED_ID_TYPE.
func CoerceID(def *metadata.EntityDef, token string) (any, error) {
	var (
		v   any
		err error
	)
	switch def.IDType {
	case metadata.IDInt32:
		var n int64
		n, err = strconv.ParseInt(token, 10, 32)
		v = int32(n)
	case metadata.IDInt64:
		var n int64
		n, err = strconv.ParseInt(token, 10, 64)
		v = n
	case metadata.IDUUID:
		v, err = id.Parse(token)
	case metadata.IDString:
		v = token
	default:
		return nil, apperror.NewUnsupportedIDType(def.Key, fmt.Sprint(def.IDGoType))
	}
	if err != nil {
		return nil, apperror.NewInvalidID(def.Key, token, err)
	}
	return convertTo(v, def.IDGoType), nil
}

// convertTo converts v to the declared Go type (int, named string types, ...).
func convertTo(v any, t reflect.Type) any {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	rv := reflect.ValueOf(v)
	if t == nil || rv.Type() == t || !rv.Type().ConvertibleTo(t) {
		return v
	}
	return rv.Convert(t).Interface()
}
