// Package domain provides the capability interfaces and result types shared by
// the admin engine.
package domain

import (
	"context"

	"adminkit/internal/domain/query"
	"adminkit/internal/metadata"
)

// ListRequest holds the raw list parameters as received from the caller.
// Invalid values are normalized by the engine, never rejected.
type ListRequest struct {
	Page   int
	Size   int
	Sort   string
	Dir    string
	Search string
}

// QueryExecutor runs query ASTs against the backing store.
type QueryExecutor interface {
	// Select returns the matching instances, each a pointer to def's type.
	Select(ctx context.Context, def *metadata.EntityDef, q query.Select) ([]any, error)

	// Count returns the number of rows q matches, ignoring its ordering and paging.
	Count(ctx context.Context, def *metadata.EntityDef, q query.Select) (int64, error)
}

// EntityStore is the entity-level persistence capability.
type EntityStore interface {
	// Find loads the instance with the given identifier together with its
	// associations. found is false when no row matches.
	Find(ctx context.Context, def *metadata.EntityDef, id any) (entity any, found bool, err error)

	// Merge inserts or updates entity and returns the stored state.
	Merge(ctx context.Context, def *metadata.EntityDef, entity any) (any, error)

	// Remove deletes entity.
	Remove(ctx context.Context, def *metadata.EntityDef, entity any) error

	// Identifier resolves the identifier of any registered instance.
	Identifier(entity any) (any, bool)
}

// --- Hooks ---

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	BeforeSave   HookEvent = "before_save"
	AfterSave    HookEvent = "after_save"
	BeforeDelete HookEvent = "before_delete"
	AfterDelete  HookEvent = "after_delete"
)

// Hook is a function that runs at specific lifecycle points.
type Hook func(ctx context.Context, def *metadata.EntityDef, entity any) error

// HookRegistry stores lifecycle hooks, optionally scoped to one entity key.
type HookRegistry struct {
	hooks map[HookEvent][]scopedHook
}

type scopedHook struct {
	entityKey string
	fn        Hook
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{
		hooks: make(map[HookEvent][]scopedHook),
	}
}

// On registers a hook for every entity.
func (r *HookRegistry) On(event HookEvent, hook Hook) {
	r.hooks[event] = append(r.hooks[event], scopedHook{fn: hook})
}

// OnEntity registers a hook for one entity key.
func (r *HookRegistry) OnEntity(entityKey string, event HookEvent, hook Hook) {
	r.hooks[event] = append(r.hooks[event], scopedHook{entityKey: entityKey, fn: hook})
}

// Run executes the hooks registered for event that apply to def.
func (r *HookRegistry) Run(ctx context.Context, event HookEvent, def *metadata.EntityDef, entity any) error {
	for _, h := range r.hooks[event] {
		if h.entityKey != "" && h.entityKey != def.Key {
			continue
		}
		if err := h.fn(ctx, def, entity); err != nil {
			return err
		}
	}
	return nil
}
