// Package crud implements list, find, delete and save over any registered
// entity without per-entity code.
package crud

import (
	"context"
	"fmt"
	"strings"

	"adminkit/internal/core/apperror"
	"adminkit/internal/core/tx"
	"adminkit/internal/domain"
	"adminkit/internal/domain/query"
	"adminkit/internal/metadata"
)

// Engine drives the query executor and entity store from entity descriptors.
type Engine struct {
	registry  *metadata.Registry
	executor  domain.QueryExecutor
	store     domain.EntityStore
	txManager tx.Manager // optional
	hooks     *domain.HookRegistry
}

// Config configures the engine.
type Config struct {
	Registry  *metadata.Registry
	Executor  domain.QueryExecutor
	Store     domain.EntityStore
	TxManager tx.Manager
}

// NewEngine creates a new engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		registry:  cfg.Registry,
		executor:  cfg.Executor,
		store:     cfg.Store,
		txManager: cfg.TxManager,
		hooks:     domain.NewHookRegistry(),
	}
}

// Hooks returns the hook registry for external registration.
func (e *Engine) Hooks() *domain.HookRegistry {
	return e.hooks
}

// Registry returns the registry the engine resolves entity keys through.
func (e *Engine) Registry() *metadata.Registry {
	return e.registry
}

// Describe resolves an entity key, failing with UNKNOWN_ENTITY.
func (e *Engine) Describe(entityKey string) (*metadata.EntityDef, error) {
	def, ok := e.registry.Get(entityKey)
	if !ok {
		return nil, apperror.NewUnknownEntity(entityKey)
	}
	return def, nil
}

// List returns one page of entity instances. Sort, direction and search are
// normalized, never rejected.
func (e *Engine) List(ctx context.Context, entityKey string, req domain.ListRequest) (domain.DataPage[any], error) {
	def, err := e.Describe(entityKey)
	if err != nil {
		return domain.DataPage[any]{}, err
	}

	q := e.BuildSelect(def, req)

	rows, err := e.executor.Select(ctx, def, q)
	if err != nil {
		return domain.DataPage[any]{}, fmt.Errorf("list %s: %w", def.Key, err)
	}
	total, err := e.executor.Count(ctx, def, q)
	if err != nil {
		return domain.DataPage[any]{}, fmt.Errorf("count %s: %w", def.Key, err)
	}

	return domain.DataPage[any]{
		Content:       rows,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
	}, nil
}

// BuildSelect builds the list query for def. The count query is the same
// select with ordering and paging ignored.
func (e *Engine) BuildSelect(def *metadata.EntityDef, req domain.ListRequest) query.Select {
	q := query.Select{
		From:    def.SchemaName,
		Alias:   query.RootAlias,
		Columns: def.Columns(),
	}

	if attr, ok := def.ListAttribute(req.Sort); ok && attr.Column != "" {
		q.Order = &query.Order{
			Column: query.ColumnRef{Alias: query.RootAlias, Column: attr.Column},
			Desc:   strings.EqualFold(req.Dir, "desc"),
		}
	}

	if text := strings.TrimSpace(req.Search); text != "" {
		q.Search = e.buildSearch(def, &q, text)
	}

	if offset, ok := domain.Offset(req.Page, req.Size); ok {
		q.Paged = true
		q.Offset = uint64(offset)
		q.Limit = uint64(req.Size)
	}
	return q
}

// buildSearch joins every singular association with a registered target and
// collects the searchable columns of the root and of each joined target. The
// recursion stops at one level.
func (e *Engine) buildSearch(def *metadata.EntityDef, q *query.Select, text string) *query.Search {
	s := &query.Search{Pattern: LikePattern(text)}
	seen := make(map[query.ColumnRef]bool)
	add := func(ref query.ColumnRef) {
		if ref.Column != "" && !seen[ref] {
			seen[ref] = true
			s.Columns = append(s.Columns, ref)
		}
	}

	for _, a := range def.SearchableAttributes() {
		add(query.ColumnRef{Alias: query.RootAlias, Column: a.Column})
	}

	for _, a := range def.SingularAttributes() {
		target, ok := e.registry.GetByType(a.ValueType)
		if !ok {
			continue
		}
		alias := query.JoinAlias(a.Name)
		if !q.HasJoin(alias) {
			q.Joins = append(q.Joins, query.Join{
				Table:        target.SchemaName,
				Alias:        alias,
				LocalColumn:  a.JoinColumn,
				TargetColumn: target.IDColumn,
			})
		}
		for _, ta := range target.SearchableAttributes() {
			add(query.ColumnRef{Alias: alias, Column: ta.Column})
		}
	}
	return s
}

// LikePattern lower-cases text, escapes LIKE metacharacters and wraps it in
// wildcards, so the match is a literal substring.
func LikePattern(text string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(strings.TrimSpace(text)))
	return "%" + escaped + "%"
}

// FindByID loads one instance. A well-formed identifier that matches no row
// is reported with found=false and a nil error.
func (e *Engine) FindByID(ctx context.Context, entityKey, token string) (entity any, found bool, err error) {
	def, err := e.Describe(entityKey)
	if err != nil {
		return nil, false, err
	}
	idValue, err := CoerceID(def, token)
	if err != nil {
		return nil, false, err
	}
	entity, found, err = e.store.Find(ctx, def, idValue)
	if err != nil {
		return nil, false, fmt.Errorf("find %s %s: %w", def.Key, token, err)
	}
	return entity, found, nil
}

// DeleteByID removes one instance. An absent identifier is a no-op. The
// lookup, the single removal and the delete hooks run in one transaction.
func (e *Engine) DeleteByID(ctx context.Context, entityKey, token string) error {
	def, err := e.Describe(entityKey)
	if err != nil {
		return err
	}
	idValue, err := CoerceID(def, token)
	if err != nil {
		return err
	}

	return e.inTransaction(ctx, func(ctx context.Context) error {
		entity, found, err := e.store.Find(ctx, def, idValue)
		if err != nil {
			return fmt.Errorf("find %s %s: %w", def.Key, token, err)
		}
		if !found {
			return nil
		}
		if err := e.hooks.Run(ctx, domain.BeforeDelete, def, entity); err != nil {
			return err
		}
		if err := e.store.Remove(ctx, def, entity); err != nil {
			return fmt.Errorf("delete %s %s: %w", def.Key, token, err)
		}
		if err := e.hooks.Run(ctx, domain.AfterDelete, def, entity); err != nil {
			return fmt.Errorf("after delete %s %s: %w", def.Key, token, err)
		}
		return nil
	})
}

// Save upserts entity through the store and returns the stored state. The
// write and the after-save hooks share one transaction.
func (e *Engine) Save(ctx context.Context, entity any) (any, error) {
	def, ok := e.registry.GetByValue(entity)
	if !ok {
		return nil, apperror.NewUnknownEntity(fmt.Sprintf("%T", entity))
	}

	if err := e.hooks.Run(ctx, domain.BeforeSave, def, entity); err != nil {
		return nil, err
	}

	var saved any
	err := e.inTransaction(ctx, func(ctx context.Context) error {
		var err error
		saved, err = e.store.Merge(ctx, def, entity)
		if err != nil {
			return fmt.Errorf("save %s: %w", def.Key, err)
		}
		if err := e.hooks.Run(ctx, domain.AfterSave, def, saved); err != nil {
			return fmt.Errorf("after save %s: %w", def.Key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Identifier returns the identifier of any registered instance.
func (e *Engine) Identifier(entity any) (any, bool) {
	if entity == nil {
		return nil, false
	}
	return e.store.Identifier(entity)
}

func (e *Engine) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if e.txManager == nil {
		return fn(ctx)
	}
	return e.txManager.RunInTransaction(ctx, fn)
}
