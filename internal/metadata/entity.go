package metadata

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// AttributeKind classifies a mapped attribute.
type AttributeKind string

const (
	KindScalar   AttributeKind = "scalar"
	KindEmbedded AttributeKind = "embedded"
	KindSingular AttributeKind = "singular"
	KindPlural   AttributeKind = "plural"
)

// RelationType is the association flavor of a singular or plural attribute.
type RelationType string

const (
	RelationNone RelationType = ""
	ManyToOne    RelationType = "many_to_one"
	OneToOne     RelationType = "one_to_one"
	OneToMany    RelationType = "one_to_many"
	ManyToMany   RelationType = "many_to_many"
)

// IDType is the declared identifier type of an entity.
type IDType string

const (
	IDInt32       IDType = "int32"
	IDInt64       IDType = "int64"
	IDUUID        IDType = "uuid"
	IDString      IDType = "string"
	IDUnsupported IDType = "unsupported"
)

var (
	uuidType = reflect.TypeOf(uuid.UUID{})
	timeType = reflect.TypeOf(time.Time{})
)

// AttributeDef describes one mapped attribute.
type AttributeDef struct {
	Name      string        `json:"name"`
	Label     string        `json:"label,omitempty"`
	Kind      AttributeKind `json:"kind"`
	Relation  RelationType  `json:"relation,omitempty"`
	LargeText bool          `json:"largeText,omitempty"`
	ID        bool          `json:"id,omitempty"`

	// ValueType is the field type for scalars and embedded values, and the
	// target struct type for associations.
	ValueType reflect.Type `json:"-"`

	// Column is the mapped column of a scalar or embedded attribute.
	Column string `json:"-"`

	// JoinColumn is the foreign key column on the owning row for singular
	// associations, or the link-table column pointing at the owner for
	// many-to-many.
	JoinColumn string `json:"-"`

	// MappedBy is the foreign key column on the target table for one-to-many.
	MappedBy string `json:"-"`

	// Through and InverseColumn describe the many-to-many link table.
	Through       string `json:"-"`
	InverseColumn string `json:"-"`

	// Index is the struct field index path.
	Index []int `json:"-"`
}

// IsString reports whether the attribute holds text.
func (a AttributeDef) IsString() bool {
	t := deref(a.ValueType)
	return t != nil && t.Kind() == reflect.String
}

// Searchable reports whether the attribute takes part in free-text search.
func (a AttributeDef) Searchable() bool {
	return (a.Kind == KindScalar || a.Kind == KindEmbedded) && a.IsString() && !a.LargeText
}

// EntityDef describes a mapped entity type.
type EntityDef struct {
	Key         string       `json:"key"`
	DisplayName string       `json:"displayName"`
	SchemaName  string       `json:"schemaName"`
	Type        reflect.Type `json:"-"`

	IDAttribute string       `json:"idAttribute"`
	IDColumn    string       `json:"-"`
	IDType      IDType       `json:"idType"`
	IDGoType    reflect.Type `json:"-"`

	// ListAttributes holds scalar and embedded attributes (list columns).
	ListAttributes []AttributeDef `json:"listAttributes"`
	// DetailAttributes holds ListAttributes plus singular associations.
	DetailAttributes []AttributeDef `json:"detailAttributes"`
	// PluralAttributes holds one-to-many and many-to-many associations.
	PluralAttributes []AttributeDef `json:"pluralAttributes,omitempty"`

	accessor *Accessor
}

// Accessor returns the precomputed field accessor table of the entity type.
func (d *EntityDef) Accessor() *Accessor {
	return d.accessor
}

// ListAttributeNames returns list attribute names in declaration order.
func (d *EntityDef) ListAttributeNames() []string {
	names := make([]string, len(d.ListAttributes))
	for i, a := range d.ListAttributes {
		names[i] = a.Name
	}
	return names
}

// ListAttribute looks up a list attribute by name.
func (d *EntityDef) ListAttribute(name string) (AttributeDef, bool) {
	return findAttribute(d.ListAttributes, name)
}

// PluralAttribute looks up a plural association by name.
func (d *EntityDef) PluralAttribute(name string) (AttributeDef, bool) {
	return findAttribute(d.PluralAttributes, name)
}

// SingularAttributes returns the singular associations among DetailAttributes.
func (d *EntityDef) SingularAttributes() []AttributeDef {
	var out []AttributeDef
	for _, a := range d.DetailAttributes {
		if a.Kind == KindSingular {
			out = append(out, a)
		}
	}
	return out
}

// Columns returns the mapped columns of the root row in declaration order.
func (d *EntityDef) Columns() []string {
	cols := make([]string, 0, len(d.ListAttributes))
	for _, a := range d.ListAttributes {
		if a.Column != "" {
			cols = append(cols, a.Column)
		}
	}
	return cols
}

// SearchableAttributes returns the non-large-text string attributes of the
// list and detail sets, plus the identifier when it is a string. Each name
// appears once.
func (d *EntityDef) SearchableAttributes() []AttributeDef {
	seen := make(map[string]bool)
	var out []AttributeDef
	add := func(a AttributeDef) {
		if !seen[a.Name] {
			seen[a.Name] = true
			out = append(out, a)
		}
	}
	for _, set := range [][]AttributeDef{d.ListAttributes, d.DetailAttributes} {
		for _, a := range set {
			if a.Searchable() {
				add(a)
			}
		}
	}
	if d.IDType == IDString {
		if a, ok := d.ListAttribute(d.IDAttribute); ok {
			add(a)
		}
	}
	return out
}

// IdentifierOf returns the identifier value held by entity.
func (d *EntityDef) IdentifierOf(entity any) (any, bool) {
	v, ok := d.accessor.Value(entity, d.IDAttribute)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// New returns a pointer to a fresh zero value of the entity type.
func (d *EntityDef) New() any {
	return reflect.New(d.Type).Interface()
}

func findAttribute(attrs []AttributeDef, name string) (AttributeDef, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeDef{}, false
}

func idTypeOf(t reflect.Type) IDType {
	t = deref(t)
	if t == nil {
		return IDUnsupported
	}
	if t == uuidType {
		return IDUUID
	}
	switch t.Kind() {
	case reflect.Int32:
		return IDInt32
	case reflect.Int, reflect.Int64:
		return IDInt64
	case reflect.String:
		return IDString
	}
	return IDUnsupported
}
