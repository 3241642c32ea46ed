// Package admin is the presentation-facing facade of the engine: it resolves
// entity keys, applies the page-size policy and assembles list, detail and
// relation views.
package admin

import (
	"context"

	"adminkit/internal/core/apperror"
	"adminkit/internal/domain"
	"adminkit/internal/domain/crud"
	"adminkit/internal/domain/pagination"
	"adminkit/internal/domain/projection"
	"adminkit/internal/domain/relation"
	"adminkit/internal/metadata"
)

var pageSizeChoices = []int{10, 25, 50, 100, 200}

// Settings are the resolved presentation settings.
type Settings struct {
	BasePath        string
	Title           string
	DefaultPageSize int
	MaxPageSize     int
	// PreviewLimit caps relation previews; 0 means DefaultPageSize.
	PreviewLimit int
}

// Service assembles admin views.
type Service struct {
	engine    *crud.Engine
	projector *projection.Projector
	sublister *relation.Sublister
	settings  Settings
}

// NewService creates the facade.
func NewService(engine *crud.Engine, projector *projection.Projector, sublister *relation.Sublister, settings Settings) *Service {
	return &Service{
		engine:    engine,
		projector: projector,
		sublister: sublister,
		settings:  settings,
	}
}

// EntitySummary is one entry of the index.
type EntitySummary struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	URL         string `json:"url"`
}

// IndexView lists every registered entity.
type IndexView struct {
	Title    string          `json:"title"`
	BasePath string          `json:"basePath"`
	Entities []EntitySummary `json:"entities"`
}

// ListView is one page of rows with its pagination layout.
type ListView struct {
	Entity          *metadata.EntityDef  `json:"entity"`
	AttributeNames  []string             `json:"attributeNames"`
	Page            domain.DataPage[any] `json:"page"`
	TotalPages      int                  `json:"totalPages"`
	Rows            [][]any              `json:"rows"`
	RowIDs          []any                `json:"rowIds"`
	Pagination      pagination.View      `json:"pagination"`
	Links           []pagination.Link    `json:"links"`
	Sort            string               `json:"sort,omitempty"`
	Dir             string               `json:"dir,omitempty"`
	Search          string               `json:"q,omitempty"`
	Size            int                  `json:"size"`
	PageSizeOptions []int                `json:"pageSizeOptions"`
	BaseURL         string               `json:"baseUrl"`
}

// DetailView is one instance with its fields and relation previews.
type DetailView struct {
	Entity    *metadata.EntityDef          `json:"entity"`
	ID        any                          `json:"id"`
	Instance  any                          `json:"instance"`
	Detail    projection.Detail            `json:"detail"`
	Relations []projection.RelationPreview `json:"relations"`
}

// RelationListView is a list view over one plural association of a parent.
type RelationListView struct {
	ListView
	Parent   *metadata.EntityDef `json:"parent"`
	ParentID any                 `json:"parentId"`
	Relation string              `json:"relation"`
}

// Settings returns the resolved settings.
func (s *Service) Settings() Settings {
	return s.settings
}

// Index returns every entity sorted by display name.
func (s *Service) Index() IndexView {
	defs := s.engine.Registry().All()
	entities := make([]EntitySummary, len(defs))
	for i, def := range defs {
		entities[i] = EntitySummary{
			Key:         def.Key,
			DisplayName: def.DisplayName,
			URL:         s.projector.BasePath() + "/" + def.Key,
		}
	}
	return IndexView{Title: s.settings.Title, BasePath: s.projector.BasePath(), Entities: entities}
}

// PageSize applies the page-size policy: non-positive sizes fall back to the
// default, larger ones are clamped to the maximum.
func (s *Service) PageSize(requested int) int {
	if requested <= 0 {
		return s.settings.DefaultPageSize
	}
	return min(requested, s.settings.MaxPageSize)
}

// PageSizeOptions returns the selectable page sizes not above the maximum.
func (s *Service) PageSizeOptions() []int {
	out := make([]int, 0, len(pageSizeChoices))
	for _, n := range pageSizeChoices {
		if n <= s.settings.MaxPageSize {
			out = append(out, n)
		}
	}
	return out
}

// PreviewLimit returns the relation preview cap.
func (s *Service) PreviewLimit() int {
	if s.settings.PreviewLimit > 0 {
		return s.settings.PreviewLimit
	}
	return s.settings.DefaultPageSize
}

func (s *Service) normalize(req domain.ListRequest) domain.ListRequest {
	req.Page = max(req.Page, 0)
	req.Size = s.PageSize(req.Size)
	return req
}

// List returns one page of an entity.
func (s *Service) List(ctx context.Context, entityKey string, req domain.ListRequest) (ListView, error) {
	req = s.normalize(req)
	def, err := s.engine.Describe(entityKey)
	if err != nil {
		return ListView{}, err
	}
	page, err := s.engine.List(ctx, entityKey, req)
	if err != nil {
		return ListView{}, err
	}
	return s.listView(def, page, req, s.projector.BasePath()+"/"+def.Key), nil
}

func (s *Service) listView(def *metadata.EntityDef, page domain.DataPage[any], req domain.ListRequest, baseURL string) ListView {
	names := def.ListAttributeNames()
	view := pagination.FromPage(page)
	return ListView{
		Entity:          def,
		AttributeNames:  names,
		Page:            page,
		TotalPages:      page.TotalPages(),
		Rows:            s.projector.ProjectRows(page.Content, names),
		RowIDs:          s.projector.RowIDs(page.Content),
		Pagination:      view,
		Links:           view.Links(),
		Sort:            req.Sort,
		Dir:             req.Dir,
		Search:          req.Search,
		Size:            req.Size,
		PageSizeOptions: s.PageSizeOptions(),
		BaseURL:         baseURL,
	}
}

// Detail returns one instance. An unknown id is NOT_FOUND.
func (s *Service) Detail(ctx context.Context, entityKey, idToken string) (DetailView, error) {
	def, entity, err := s.find(ctx, entityKey, idToken)
	if err != nil {
		return DetailView{}, err
	}
	idValue, _ := s.engine.Identifier(entity)
	return DetailView{
		Entity:    def,
		ID:        idValue,
		Instance:  entity,
		Detail:    s.projector.ProjectDetail(entity, def.DetailAttributes),
		Relations: s.projector.Relations(ctx, entity, s.PreviewLimit()),
	}, nil
}

// RelationList pages the plural association relationName of one instance in
// memory. A missing parent, relation or resolvable element type is NOT_FOUND.
func (s *Service) RelationList(ctx context.Context, entityKey, idToken, relationName string, req domain.ListRequest) (RelationListView, error) {
	req = s.normalize(req)
	parent, entity, err := s.find(ctx, entityKey, idToken)
	if err != nil {
		return RelationListView{}, err
	}

	attr, ok := parent.PluralAttribute(relationName)
	if !ok {
		return RelationListView{}, apperror.NewNotFound("relation", relationName).WithDetail("entity", parent.Key)
	}
	items, err := s.projector.Collection(parent, entity, relationName)
	if err != nil {
		return RelationListView{}, apperror.NewNotFound("relation", relationName).WithCause(err)
	}
	target, ok := s.projector.ResolveTarget(items.Elements, attr)
	if !ok {
		return RelationListView{}, apperror.NewNotFound("relation target", relationName).WithDetail("entity", parent.Key)
	}

	page := s.sublister.List(target, items.Elements, target.ListAttributeNames(), req)
	parentID, _ := s.engine.Identifier(entity)
	baseURL := s.projector.EntityURL(parent.Key, parentID) + "/rel/" + relationName

	return RelationListView{
		ListView: s.listView(target, page, req, baseURL),
		Parent:   parent,
		ParentID: parentID,
		Relation: relationName,
	}, nil
}

func (s *Service) find(ctx context.Context, entityKey, idToken string) (*metadata.EntityDef, any, error) {
	def, err := s.engine.Describe(entityKey)
	if err != nil {
		return nil, nil, err
	}
	entity, found, err := s.engine.FindByID(ctx, entityKey, idToken)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, apperror.NewNotFound(def.DisplayName, idToken)
	}
	return def, entity, nil
}

// Describe returns the descriptor of entityKey or UNKNOWN_ENTITY.
func (s *Service) Describe(entityKey string) (*metadata.EntityDef, error) {
	return s.engine.Describe(entityKey)
}

// ResolveID returns the descriptor of entityKey and idToken coerced to its
// identifier type.
func (s *Service) ResolveID(entityKey, idToken string) (*metadata.EntityDef, any, error) {
	def, err := s.engine.Describe(entityKey)
	if err != nil {
		return nil, nil, err
	}
	idValue, err := crud.CoerceID(def, idToken)
	if err != nil {
		return nil, nil, err
	}
	return def, idValue, nil
}

// Delete removes one instance; an unknown id is a no-op.
func (s *Service) Delete(ctx context.Context, entityKey, idToken string) error {
	return s.engine.DeleteByID(ctx, entityKey, idToken)
}

// Save decodes a fresh instance of the entity through decode and upserts it.
func (s *Service) Save(ctx context.Context, entityKey string, decode func(target any) error) (any, error) {
	def, err := s.engine.Describe(entityKey)
	if err != nil {
		return nil, err
	}
	instance := def.New()
	if err := decode(instance); err != nil {
		return nil, apperror.NewValidation("invalid " + def.DisplayName + " payload").WithCause(err)
	}
	return s.engine.Save(ctx, instance)
}
