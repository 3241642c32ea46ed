// Package projection turns opaque entity instances into display rows, detail
// fields with association links, and capped previews of plural relations.
package projection

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"adminkit/internal/metadata"
	"adminkit/pkg/logger"
)

// IdentifierResolver resolves the identifier of any registered instance.
type IdentifierResolver interface {
	Identifier(entity any) (any, bool)
}

// Detail holds three parallel sequences, one element per detail attribute.
type Detail struct {
	Names  []string  `json:"names"`
	Values []*string `json:"values"`
	Links  []*string `json:"links"`
}

// RelationPreview is a capped view of one plural association.
type RelationPreview struct {
	Name              string   `json:"name"`
	TargetEntity      string   `json:"targetEntity"`
	TargetDisplayName string   `json:"targetDisplayName"`
	AttributeNames    []string `json:"attributeNames"`
	Rows              [][]any  `json:"rows"`
	RowIDs            []any    `json:"rowIds"`
	TotalCount        int      `json:"totalCount"`
	Limited           bool     `json:"limited"`
	PreviewLimit      int      `json:"previewLimit"`
}

// Projector reads instances through the registry's accessor tables.
type Projector struct {
	registry *metadata.Registry
	ids      IdentifierResolver
	basePath string
	log      *logger.Logger
}

// NewProjector creates a projector. basePath prefixes association links.
func NewProjector(registry *metadata.Registry, ids IdentifierResolver, basePath string) *Projector {
	return &Projector{
		registry: registry,
		ids:      ids,
		basePath: strings.TrimRight(basePath, "/"),
		log:      logger.Default().WithComponent("projection"),
	}
}

// WithLogger replaces the projector's logger.
func (p *Projector) WithLogger(l *logger.Logger) *Projector {
	p.log = l.WithComponent("projection")
	return p
}

// ProjectRow returns the raw value of each named attribute. A cell that cannot
// be read is nil; the rest of the row is still projected.
func (p *Projector) ProjectRow(entity any, attributeNames []string) []any {
	row := make([]any, len(attributeNames))
	def, ok := p.registry.GetByValue(entity)
	if !ok {
		return row
	}
	for i, name := range attributeNames {
		row[i] = p.cell(def, entity, name)
	}
	return row
}

// ProjectRows projects every entity.
func (p *Projector) ProjectRows(entities []any, attributeNames []string) [][]any {
	rows := make([][]any, len(entities))
	for i, e := range entities {
		rows[i] = p.ProjectRow(e, attributeNames)
	}
	return rows
}

// RowIDs resolves the identifier of every entity, nil where unresolvable.
func (p *Projector) RowIDs(entities []any) []any {
	ids := make([]any, len(entities))
	for i, e := range entities {
		if v, ok := p.ids.Identifier(e); ok {
			ids[i] = v
		}
	}
	return ids
}

func (p *Projector) cell(def *metadata.EntityDef, entity any, name string) (value any) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Debugw("cell projection failed", "entity", def.Key, "attribute", name, "panic", r)
			value = nil
		}
	}()
	v, ok := def.Accessor().Value(entity, name)
	if !ok {
		p.log.Debugw("attribute not accessible", "entity", def.Key, "attribute", name)
		return nil
	}
	return v
}

// ProjectDetail renders the given attributes of entity. Singular associations
// get a link basePath/targetKey/targetID when the target is registered and its
// identifier resolves.
func (p *Projector) ProjectDetail(entity any, attrs []metadata.AttributeDef) Detail {
	d := Detail{
		Names:  make([]string, len(attrs)),
		Values: make([]*string, len(attrs)),
		Links:  make([]*string, len(attrs)),
	}
	def, ok := p.registry.GetByValue(entity)
	for i, a := range attrs {
		d.Names[i] = a.Name
		if !ok {
			continue
		}
		value := p.cell(def, entity, a.Name)
		if value == nil {
			continue
		}
		d.Values[i] = ptr(p.Text(value))
		if a.Kind == metadata.KindSingular {
			d.Links[i] = p.link(value)
		}
	}
	return d
}

func (p *Projector) link(target any) *string {
	def, ok := p.registry.GetByValue(target)
	if !ok {
		return nil
	}
	idValue, ok := p.ids.Identifier(target)
	if !ok {
		return nil
	}
	return ptr(p.EntityURL(def.Key, idValue))
}

// EntityURL builds basePath/entityKey/id.
func (p *Projector) EntityURL(entityKey string, idValue any) string {
	return p.basePath + "/" + entityKey + "/" + url.PathEscape(fmt.Sprint(idValue))
}

// BasePath returns the link prefix without a trailing slash.
func (p *Projector) BasePath() string {
	return p.basePath
}

// Text is the textual form of a value. Registered entities without a String
// method render as "DisplayName#id".
func (p *Projector) Text(value any) string {
	if s, ok := value.(fmt.Stringer); ok {
		return s.String()
	}
	if def, ok := p.registry.GetByValue(value); ok {
		if idValue, ok := p.ids.Identifier(value); ok {
			return fmt.Sprintf("%s#%v", def.DisplayName, idValue)
		}
		return def.DisplayName
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	return fmt.Sprint(rv.Interface())
}

// Relations previews every plural association of entity. Each preview holds
// at most previewLimit projected rows but an exact TotalCount. A relation that
// fails is logged and left out.
func (p *Projector) Relations(ctx context.Context, entity any, previewLimit int) []RelationPreview {
	def, ok := p.registry.GetByValue(entity)
	if !ok {
		return nil
	}
	previews := make([]RelationPreview, 0, len(def.PluralAttributes))
	for _, a := range def.PluralAttributes {
		preview, err := p.relation(def, entity, a, previewLimit)
		if err != nil {
			logger.Warn(ctx, "relation preview failed", "entity", def.Key, "relation", a.Name, "error", err)
			continue
		}
		previews = append(previews, preview)
	}
	return previews
}

func (p *Projector) relation(def *metadata.EntityDef, entity any, a metadata.AttributeDef, previewLimit int) (preview RelationPreview, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	items, err := p.Collection(def, entity, a.Name)
	if err != nil {
		return RelationPreview{}, err
	}

	preview = RelationPreview{
		Name:              a.Name,
		TargetDisplayName: a.Name,
		AttributeNames:    []string{},
		Rows:              [][]any{},
		RowIDs:            []any{},
		TotalCount:        items.Total,
		PreviewLimit:      previewLimit,
	}
	if target, ok := p.ResolveTarget(items.Elements, a); ok {
		preview.TargetEntity = target.Key
		preview.TargetDisplayName = target.DisplayName
		preview.AttributeNames = target.ListAttributeNames()
	}

	for _, item := range items.Elements {
		if len(preview.Rows) >= previewLimit {
			break
		}
		preview.Rows = append(preview.Rows, p.ProjectRow(item, preview.AttributeNames))
		idValue, _ := p.ids.Identifier(item)
		preview.RowIDs = append(preview.RowIDs, idValue)
	}
	preview.Limited = preview.TotalCount > len(preview.Rows)
	return preview, nil
}

// Items is a materialized plural association.
type Items struct {
	// Elements holds the non-nil elements in order.
	Elements []any
	// Total counts every element of the collection, nil ones included.
	Total int
}

// Collection reads the plural attribute name of entity. A nil collection is
// empty.
func (p *Projector) Collection(def *metadata.EntityDef, entity any, name string) (Items, error) {
	if _, ok := def.PluralAttribute(name); !ok {
		return Items{}, fmt.Errorf("%s has no plural attribute %q", def.Key, name)
	}
	raw, ok := def.Accessor().Value(entity, name)
	if !ok {
		return Items{}, fmt.Errorf("%s.%s is not accessible", def.Key, name)
	}
	if raw == nil {
		return Items{Elements: []any{}}, nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return Items{}, fmt.Errorf("%s.%s is a %s, not a collection", def.Key, name, rv.Kind())
	}
	items := Items{Elements: make([]any, 0, rv.Len()), Total: rv.Len()}
	for i := 0; i < rv.Len(); i++ {
		el := rv.Index(i)
		if (el.Kind() == reflect.Ptr || el.Kind() == reflect.Interface) && el.IsNil() {
			continue
		}
		if el.Kind() == reflect.Struct && el.CanAddr() {
			el = el.Addr()
		}
		items.Elements = append(items.Elements, el.Interface())
	}
	return items, nil
}

// ResolveTarget finds the descriptor of a relation's elements from the first
// element's runtime type, falling back to the declared element type.
func (p *Projector) ResolveTarget(elements []any, a metadata.AttributeDef) (*metadata.EntityDef, bool) {
	if len(elements) > 0 {
		if def, ok := p.registry.GetByValue(elements[0]); ok {
			return def, true
		}
	}
	if a.ValueType == nil {
		return nil, false
	}
	return p.registry.GetByType(a.ValueType)
}

func ptr(s string) *string {
	return &s
}
