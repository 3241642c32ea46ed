// Package metadata discovers mapped entity types and serves their descriptors.
//
// Descriptors are computed once from a Source, on first access or on an explicit
// Load, and are read-only afterwards. The registry lifecycle is
// Uninitialized -> Initializing -> Ready (or Failed).
package metadata

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"adminkit/internal/core/apperror"
)

// State is the registry lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Source enumerates mapped types. It is the schema-reflection capability the
// registry is built from.
type Source interface {
	MappedTypes() ([]TypeMapping, error)
}

// TypeMapping is one mapped type as reported by a Source.
type TypeMapping struct {
	Type        reflect.Type
	SimpleName  string
	SchemaName  string
	DisplayName string
	Attributes  []AttributeDef
}

// Registry stores entity descriptors.
type Registry struct {
	source Source

	once  sync.Once
	state atomic.Int32
	err   error

	byKey   map[string]*EntityDef
	byType  map[reflect.Type]*EntityDef
	ordered []*EntityDef
}

// NewRegistry creates a registry backed by source. Nothing is discovered until
// the first access or Load.
func NewRegistry(source Source) *Registry {
	return &Registry{source: source}
}

// Load runs discovery exactly once. Concurrent callers block until the single
// discovery pass completes and all observe its result.
func (r *Registry) Load() error {
	r.once.Do(func() {
		r.state.Store(int32(StateInitializing))

		entities, err := discover(r.source)
		if err != nil {
			r.err = err
			r.state.Store(int32(StateFailed))
			return
		}

		r.byKey = make(map[string]*EntityDef, len(entities))
		r.byType = make(map[reflect.Type]*EntityDef, len(entities))
		for _, def := range entities {
			r.byKey[def.Key] = def
			r.byType[def.Type] = def
		}
		sort.SliceStable(entities, func(i, j int) bool {
			return strings.ToLower(entities[i].DisplayName) < strings.ToLower(entities[j].DisplayName)
		})
		r.ordered = entities
		r.state.Store(int32(StateReady))
	})
	return r.err
}

// State reports the current lifecycle state.
func (r *Registry) State() State {
	return State(r.state.Load())
}

// mustLoad panics when discovery failed. Callers are expected to Load at
// startup, so a failure here means the process started with a broken schema.
func (r *Registry) mustLoad() {
	if err := r.Load(); err != nil {
		panic(err)
	}
}

// All returns every descriptor sorted by display name, case-insensitively.
func (r *Registry) All() []*EntityDef {
	r.mustLoad()
	out := make([]*EntityDef, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Get returns the descriptor registered under key.
func (r *Registry) Get(key string) (*EntityDef, bool) {
	r.mustLoad()
	def, ok := r.byKey[key]
	return def, ok
}

// GetByType resolves the descriptor for a runtime type. Exact matches win;
// otherwise the first descriptor related to t in either direction is returned,
// so wrapper types that embed a mapped struct resolve to that struct's descriptor.
func (r *Registry) GetByType(t reflect.Type) (*EntityDef, bool) {
	r.mustLoad()
	if t == nil {
		return nil, false
	}
	t = deref(t)
	if def, ok := r.byType[t]; ok {
		return def, true
	}
	for _, def := range r.ordered {
		if related(t, def.Type) {
			return def, true
		}
	}
	return nil, false
}

// GetByValue resolves the descriptor for the runtime type of v.
func (r *Registry) GetByValue(v any) (*EntityDef, bool) {
	if v == nil {
		return nil, false
	}
	return r.GetByType(reflect.TypeOf(v))
}

func discover(source Source) ([]*EntityDef, error) {
	mappings, err := source.MappedTypes()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]reflect.Type, len(mappings))
	entities := make([]*EntityDef, 0, len(mappings))
	for _, m := range mappings {
		def, err := buildEntityDef(m)
		if err != nil {
			return nil, err
		}
		if other, dup := seen[def.Key]; dup {
			return nil, apperror.NewSchema(fmt.Sprintf("entity key %q is used by both %s and %s", def.Key, other, m.Type)).
				WithDetail("key", def.Key)
		}
		seen[def.Key] = m.Type
		entities = append(entities, def)
	}
	return entities, nil
}

func buildEntityDef(m TypeMapping) (*EntityDef, error) {
	var ids []AttributeDef
	for _, a := range m.Attributes {
		if a.ID {
			ids = append(ids, a)
		}
	}
	if len(ids) != 1 {
		return nil, apperror.NewSchema(fmt.Sprintf("entity %s must have exactly one identifier", m.SimpleName)).
			WithDetail("type", m.Type.String()).
			WithDetail("identifiers", len(ids))
	}
	idAttr := ids[0]

	def := &EntityDef{
		Key:         entityKey(m.SimpleName),
		DisplayName: m.DisplayName,
		SchemaName:  m.SchemaName,
		Type:        deref(m.Type),
		IDAttribute: idAttr.Name,
		IDColumn:    idAttr.Column,
		IDType:      idTypeOf(idAttr.ValueType),
		IDGoType:    idAttr.ValueType,
	}
	if def.DisplayName == "" {
		def.DisplayName = m.SimpleName
	}

	for _, a := range m.Attributes {
		switch a.Kind {
		case KindScalar, KindEmbedded:
			def.ListAttributes = append(def.ListAttributes, a)
			def.DetailAttributes = append(def.DetailAttributes, a)
		case KindSingular:
			def.DetailAttributes = append(def.DetailAttributes, a)
		case KindPlural:
			def.PluralAttributes = append(def.PluralAttributes, a)
		default:
			return nil, apperror.NewSchema(fmt.Sprintf("attribute %s.%s has unknown kind %q", m.SimpleName, a.Name, a.Kind))
		}
	}
	def.accessor = newAccessor(def.Type, m.Attributes)
	return def, nil
}

// entityKey lower-cases the first letter of the simple type name.
func entityKey(simpleName string) string {
	if simpleName == "" {
		return ""
	}
	runes := []rune(simpleName)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func deref(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// related reports whether a and b are assignable in either direction or one
// embeds the other.
func related(a, b reflect.Type) bool {
	a, b = deref(a), deref(b)
	if a == b {
		return true
	}
	if a.AssignableTo(b) || b.AssignableTo(a) {
		return true
	}
	return embeds(a, b, 0) || embeds(b, a, 0)
}

const maxEmbedDepth = 4

func embeds(outer, inner reflect.Type, depth int) bool {
	if outer.Kind() != reflect.Struct || depth > maxEmbedDepth {
		return false
	}
	for i := 0; i < outer.NumField(); i++ {
		f := outer.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := deref(f.Type)
		if ft == inner || embeds(ft, inner, depth+1) {
			return true
		}
	}
	return false
}
