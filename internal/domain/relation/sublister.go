// Package relation lists an already loaded plural association in memory:
// filter, sort, then paginate, with the same page shape as database lists.
package relation

import (
	"bytes"
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"adminkit/internal/domain"
	"adminkit/internal/metadata"
)

// NullOrder decides where null values sort.
type NullOrder int

const (
	// NullsLow treats null as smaller than any value: nulls come first when
	// ascending and last when descending.
	NullsLow NullOrder = iota
	// NullsFirst puts nulls first in both directions.
	NullsFirst
	// NullsLast puts nulls last in both directions.
	NullsLast
)

func (o NullOrder) String() string {
	switch o {
	case NullsFirst:
		return "nulls_first"
	case NullsLast:
		return "nulls_last"
	}
	return "nulls_low"
}

// ParseNullOrder maps the admin.null_order setting to a policy. Unknown
// values map to NullsLow.
func ParseNullOrder(s string) NullOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nulls_first", "first":
		return NullsFirst
	case "nulls_last", "last":
		return NullsLast
	}
	return NullsLow
}

// Sublister filters, sorts and pages in-memory collections of one entity type.
type Sublister struct {
	nulls NullOrder
}

// Option configures a Sublister.
type Option func(*Sublister)

// WithNullOrder sets the null ordering policy.
func WithNullOrder(o NullOrder) Option {
	return func(s *Sublister) { s.nulls = o }
}

// NewSublister creates a sublister. The default null policy is NullsLow.
func NewSublister(opts ...Option) *Sublister {
	s := &Sublister{nulls: NullsLow}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List runs Filter, Sort and Paginate in that order.
func (s *Sublister) List(def *metadata.EntityDef, items []any, attributeNames []string, req domain.ListRequest) domain.DataPage[any] {
	items = s.Filter(def, items, attributeNames, req.Search)
	items = s.Sort(def, items, req.Sort, req.Dir, attributeNames)
	return s.Paginate(items, req.Page, req.Size)
}

// Filter keeps the items whose identifier text or any string attribute among
// attributeNames contains q, case-insensitively. A blank q returns items
// unchanged.
func (s *Sublister) Filter(def *metadata.EntityDef, items []any, attributeNames []string, q string) []any {
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return items
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		if s.matches(def, item, attributeNames, needle) {
			out = append(out, item)
		}
	}
	return out
}

func (s *Sublister) matches(def *metadata.EntityDef, item any, attributeNames []string, needle string) bool {
	if idValue, ok := def.IdentifierOf(item); ok {
		if strings.Contains(strings.ToLower(fmt.Sprint(idValue)), needle) {
			return true
		}
	}
	for _, name := range attributeNames {
		v, ok := def.Accessor().Value(item, name)
		if !ok || v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		for rv.Kind() == reflect.Ptr && !rv.IsNil() {
			rv = rv.Elem()
		}
		if rv.Kind() == reflect.String && strings.Contains(strings.ToLower(rv.String()), needle) {
			return true
		}
	}
	return false
}

// Sort returns a stably sorted copy of items ordered by the attribute
// sortName. It is a no-op unless sortName is one of attributeNames. dir is
// descending only on a case-insensitive "desc".
func (s *Sublister) Sort(def *metadata.EntityDef, items []any, sortName, dir string, attributeNames []string) []any {
	if sortName == "" || !slices.Contains(attributeNames, sortName) {
		return items
	}
	desc := strings.EqualFold(dir, "desc")

	type keyed struct {
		item any
		key  any
	}
	rows := make([]keyed, len(items))
	for i, item := range items {
		v, _ := def.Accessor().Value(item, sortName)
		rows[i] = keyed{item: item, key: sortKey(v)}
	}

	slices.SortStableFunc(rows, func(a, b keyed) int {
		return s.compare(a.key, b.key, desc)
	})

	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r.item
	}
	return out
}

// Paginate slices items with the same offset and clamping rules as the
// database list.
func (s *Sublister) Paginate(items []any, page, size int) domain.DataPage[any] {
	return domain.Slice(items, page, size)
}

func (s *Sublister) compare(a, b any, desc bool) int {
	aNull, bNull := a == nil, b == nil
	if aNull && bNull {
		return 0
	}
	if aNull || bNull {
		switch s.nulls {
		case NullsFirst:
			if aNull {
				return -1
			}
			return 1
		case NullsLast:
			if aNull {
				return 1
			}
			return -1
		}
		c := 1
		if aNull {
			c = -1
		}
		if desc {
			c = -c
		}
		return c
	}

	c, _ := compareValues(a, b)
	if desc {
		c = -c
	}
	return c
}

// sortKey normalizes a raw attribute value. Nil pointers and values with no
// natural ordering become nil.
func sortKey(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	v = rv.Interface()

	switch v.(type) {
	case time.Time, decimal.Decimal, uuid.UUID:
		return v
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String, reflect.Bool:
		return v
	}
	return nil
}

// compareValues orders two non-nil sort keys. ok is false when the values
// are of incomparable types, in which case they compare equal.
func compareValues(a, b any) (int, bool) {
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
		return 0, false
	case decimal.Decimal:
		if y, ok := b.(decimal.Decimal); ok {
			return x.Cmp(y), true
		}
		return 0, false
	case uuid.UUID:
		if y, ok := b.(uuid.UUID); ok {
			return bytes.Compare(x[:], y[:]), true
		}
		return 0, false
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case isInt(ra) && isInt(rb):
		return cmp.Compare(ra.Int(), rb.Int()), true
	case isUint(ra) && isUint(rb):
		return cmp.Compare(ra.Uint(), rb.Uint()), true
	case isNumber(ra) && isNumber(rb):
		return cmp.Compare(toFloat(ra), toFloat(rb)), true
	case ra.Kind() == reflect.String && rb.Kind() == reflect.String:
		return cmp.Compare(ra.String(), rb.String()), true
	case ra.Kind() == reflect.Bool && rb.Kind() == reflect.Bool:
		return cmp.Compare(boolRank(ra.Bool()), boolRank(rb.Bool())), true
	}
	return 0, false
}

func isInt(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumber(v reflect.Value) bool {
	return isInt(v) || isUint(v) || v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isInt(v):
		return float64(v.Int())
	case isUint(v):
		return float64(v.Uint())
	}
	return v.Float()
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
