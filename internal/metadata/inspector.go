package metadata

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"adminkit/internal/core/apperror"
)

// StructSource is a Source over Go struct types described by `db` and `admin`
// struct tags:
//
//	type Post struct {
//		ID      int    `db:"id" admin:"id"`
//		Title   string `db:"title"`
//		Content string `db:"content" admin:"lob"`
//		UserID  int    `db:"user_id"`
//		User    *User  `db:"-" admin:"many_to_one,join=user_id"`
//	}
//
// Anonymous struct fields are flattened.
type StructSource struct {
	entries []sourceEntry
}

type sourceEntry struct {
	typ         reflect.Type
	table       string
	displayName string
}

// RegisterOption customizes a registered type.
type RegisterOption func(*sourceEntry)

// WithTable sets the table the type is stored in.
func WithTable(name string) RegisterOption {
	return func(e *sourceEntry) { e.table = name }
}

// WithDisplayName overrides the display name (defaults to the type name).
func WithDisplayName(name string) RegisterOption {
	return func(e *sourceEntry) { e.displayName = name }
}

// NewStructSource creates an empty source.
func NewStructSource() *StructSource {
	return &StructSource{}
}

// Register adds the type of prototype (a struct or pointer to struct).
func (s *StructSource) Register(prototype any, opts ...RegisterOption) *StructSource {
	e := sourceEntry{typ: deref(reflect.TypeOf(prototype))}
	for _, opt := range opts {
		opt(&e)
	}
	s.entries = append(s.entries, e)
	return s
}

// MappedTypes inspects every registered type.
func (s *StructSource) MappedTypes() ([]TypeMapping, error) {
	out := make([]TypeMapping, 0, len(s.entries))
	for _, e := range s.entries {
		m, err := Inspect(e.typ)
		if err != nil {
			return nil, err
		}
		if e.table != "" {
			m.SchemaName = e.table
		}
		if e.displayName != "" {
			m.DisplayName = e.displayName
		}
		out = append(out, m)
	}
	return out, nil
}

// Inspect analyzes a struct type and returns its mapping.
func Inspect(t reflect.Type) (TypeMapping, error) {
	t = deref(t)
	if t == nil || t.Kind() != reflect.Struct {
		return TypeMapping{}, apperror.NewSchema(fmt.Sprintf("mapped type %v is not a struct", t))
	}

	m := TypeMapping{
		Type:        t,
		SimpleName:  t.Name(),
		SchemaName:  snakeCase(t.Name()) + "s",
		DisplayName: t.Name(),
	}
	if err := inspectStruct(t, nil, &m); err != nil {
		return TypeMapping{}, err
	}
	if err := checkJoinColumns(&m); err != nil {
		return TypeMapping{}, err
	}
	return m, nil
}

func inspectStruct(t reflect.Type, prefix []int, m *TypeMapping) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.PkgPath != "" { // unexported
			continue
		}

		index := append(append([]int{}, prefix...), i)

		// Embedded structs are flattened
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := inspectStruct(field.Type, index, m); err != nil {
				return err
			}
			continue
		}

		attr, mapped, err := inspectField(m.SimpleName, field)
		if err != nil {
			return err
		}
		if !mapped {
			continue
		}
		attr.Index = index
		m.Attributes = append(m.Attributes, attr)
	}
	return nil
}

func inspectField(owner string, field reflect.StructField) (AttributeDef, bool, error) {
	tag := parseAdminTag(field.Tag.Get("admin"))
	dbTag, hasDB := field.Tag.Lookup("db")

	attr := AttributeDef{
		Name:      attributeName(field),
		Label:     field.Name,
		ID:        tag.has("id"),
		LargeText: tag.has("lob"),
	}

	if rel := tag.relation(); rel != RelationNone {
		attr.Relation = rel
		return inspectAssociation(owner, field, attr, tag)
	}

	if dbTag == "-" {
		return attr, false, nil
	}
	attr.Column = dbTag
	if !hasDB || dbTag == "" {
		attr.Column = snakeCase(field.Name)
	}
	attr.ValueType = field.Type

	if tag.has("embedded") || !isScalarType(field.Type) {
		attr.Kind = KindEmbedded
	} else {
		attr.Kind = KindScalar
	}
	return attr, true, nil
}

func inspectAssociation(owner string, field reflect.StructField, attr AttributeDef, tag adminTag) (AttributeDef, bool, error) {
	fail := func(msg string) (AttributeDef, bool, error) {
		return AttributeDef{}, false, apperror.NewSchema(fmt.Sprintf("%s.%s: %s", owner, field.Name, msg))
	}

	switch attr.Relation {
	case ManyToOne, OneToOne:
		target := deref(field.Type)
		if target.Kind() != reflect.Struct {
			return fail("singular association must be a struct or pointer to struct")
		}
		attr.Kind = KindSingular
		attr.ValueType = target
		attr.JoinColumn = tag.params["join"]
		if attr.JoinColumn == "" {
			return fail("singular association requires join=<column>")
		}
	case OneToMany, ManyToMany:
		if field.Type.Kind() != reflect.Slice || deref(field.Type.Elem()).Kind() != reflect.Struct {
			return fail("plural association must be a slice of structs")
		}
		attr.Kind = KindPlural
		attr.ValueType = deref(field.Type.Elem())
		if attr.Relation == OneToMany {
			attr.MappedBy = tag.params["mapped_by"]
			if attr.MappedBy == "" {
				return fail("one_to_many requires mapped_by=<column>")
			}
		} else {
			attr.Through = tag.params["through"]
			attr.JoinColumn = tag.params["join"]
			attr.InverseColumn = tag.params["inverse"]
			if attr.Through == "" || attr.JoinColumn == "" || attr.InverseColumn == "" {
				return fail("many_to_many requires through=, join= and inverse=")
			}
		}
	}
	return attr, true, nil
}

// checkJoinColumns makes sure every singular association's foreign key is a
// mapped column of the owning row, since the association is loaded from it.
func checkJoinColumns(m *TypeMapping) error {
	columns := make(map[string]bool)
	for _, a := range m.Attributes {
		if a.Column != "" {
			columns[a.Column] = true
		}
	}
	for _, a := range m.Attributes {
		if a.Kind == KindSingular && !columns[a.JoinColumn] {
			return apperror.NewSchema(fmt.Sprintf("%s.%s: join column %q is not mapped", m.SimpleName, a.Name, a.JoinColumn))
		}
	}
	return nil
}

var valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()

// isScalarType reports whether values of t are stored as plain column values.
func isScalarType(t reflect.Type) bool {
	if t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType) {
		return true
	}
	t = deref(t)
	if t == timeType || t == uuidType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice, reflect.Array:
		return deref(t.Elem()).Kind() != reflect.Struct
	}
	return false
}

type adminTag struct {
	flags  map[string]bool
	params map[string]string
}

func parseAdminTag(tag string) adminTag {
	t := adminTag{flags: map[string]bool{}, params: map[string]string{}}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if k, v, ok := strings.Cut(part, "="); ok {
			t.params[strings.TrimSpace(k)] = strings.TrimSpace(v)
			continue
		}
		t.flags[part] = true
	}
	return t
}

func (t adminTag) has(flag string) bool {
	return t.flags[flag]
}

func (t adminTag) relation() RelationType {
	for _, rel := range []RelationType{ManyToOne, OneToOne, OneToMany, ManyToMany} {
		if t.flags[string(rel)] {
			return rel
		}
	}
	return RelationNone
}

// attributeName uses the json tag name, falling back to lowerCamelCase with a
// leading initialism lowered as a whole (ID -> id, URLPath -> urlPath).
func attributeName(field reflect.StructField) string {
	if tag, ok := field.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	runes := []rune(field.Name)
	for i := range runes {
		if !unicode.IsUpper(runes[i]) {
			break
		}
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// snakeCase converts a Go identifier to snake_case: UserRole -> user_role,
// UserID -> user_id.
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
