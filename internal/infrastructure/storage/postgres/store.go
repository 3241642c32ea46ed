package postgres

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"adminkit/internal/core/apperror"
	"adminkit/internal/domain"
	"adminkit/internal/metadata"
	"adminkit/pkg/logger"
)

// pgForeignKeyViolation is the SQLSTATE raised when a delete is blocked by a
// referencing row.
const pgForeignKeyViolation = "23503"

// Compile-time check that EntityStore implements domain.EntityStore.
var _ domain.EntityStore = (*EntityStore)(nil)

// EntityStore loads, upserts and deletes registered entities.
type EntityStore struct {
	registry  *metadata.Registry
	txManager *TxManager
}

// NewEntityStore creates a store.
func NewEntityStore(registry *metadata.Registry, txManager *TxManager) *EntityStore {
	return &EntityStore{registry: registry, txManager: txManager}
}

// Find loads the row with the given identifier and, in the same read-only
// transaction, its singular and plural associations one level deep.
func (s *EntityStore) Find(ctx context.Context, def *metadata.EntityDef, id any) (any, bool, error) {
	entity := def.New()
	found := false

	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		sql, args, err := Builder().
			Select(def.Columns()...).
			From(def.SchemaName).
			Where(squirrel.Eq{def.IDColumn: id}).
			Limit(1).
			ToSql()
		if err != nil {
			return fmt.Errorf("build find: %w", err)
		}
		if err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), entity, sql, args...); err != nil {
			if pgxscan.NotFound(err) {
				return nil
			}
			return fmt.Errorf("find %s: %w", def.SchemaName, err)
		}
		found = true

		for _, a := range def.SingularAttributes() {
			if err := s.loadReference(ctx, def, entity, a); err != nil {
				return err
			}
		}
		for _, a := range def.PluralAttributes {
			if err := s.loadCollection(ctx, def, entity, id, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil || !found {
		return nil, false, err
	}
	return entity, true, nil
}

func (s *EntityStore) loadReference(ctx context.Context, def *metadata.EntityDef, entity any, a metadata.AttributeDef) error {
	target, ok := s.registry.GetByType(a.ValueType)
	if !ok {
		logger.Debug(ctx, "skipping unregistered association target", "entity", def.Key, "attribute", a.Name)
		return nil
	}
	fk, ok := columnValue(def, entity, a.JoinColumn)
	if !ok || isZero(fk) {
		return nil
	}

	ref := target.New()
	sql, args, err := Builder().
		Select(target.Columns()...).
		From(target.SchemaName).
		Where(squirrel.Eq{target.IDColumn: fk}).
		Limit(1).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s.%s: %w", def.Key, a.Name, err)
	}
	if err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), ref, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil
		}
		return fmt.Errorf("load %s.%s: %w", def.Key, a.Name, err)
	}

	field, ok := def.Accessor().Field(entity, a.Name)
	if !ok {
		return fmt.Errorf("%s.%s is not settable", def.Key, a.Name)
	}
	assignReference(field, reflect.ValueOf(ref))
	return nil
}

func (s *EntityStore) loadCollection(ctx context.Context, def *metadata.EntityDef, entity, id any, a metadata.AttributeDef) error {
	target, ok := s.registry.GetByType(a.ValueType)
	if !ok {
		logger.Debug(ctx, "skipping unregistered association target", "entity", def.Key, "attribute", a.Name)
		return nil
	}

	cols := make([]string, 0, len(target.Columns()))
	for _, c := range target.Columns() {
		cols = append(cols, "t."+c)
	}
	sb := Builder().Select(cols...).From(target.SchemaName + " t")
	switch a.Relation {
	case metadata.OneToMany:
		sb = sb.Where(squirrel.Eq{"t." + a.MappedBy: id})
	case metadata.ManyToMany:
		sb = sb.Join(fmt.Sprintf("%s l ON l.%s = t.%s", a.Through, a.InverseColumn, target.IDColumn)).
			Where(squirrel.Eq{"l." + a.JoinColumn: id})
	default:
		return fmt.Errorf("%s.%s: unsupported plural relation %q", def.Key, a.Name, a.Relation)
	}
	sql, args, err := sb.OrderBy("t." + target.IDColumn).ToSql()
	if err != nil {
		return fmt.Errorf("build %s.%s: %w", def.Key, a.Name, err)
	}

	dest := newSlicePtr(target.Type)
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), dest.Interface(), sql, args...); err != nil {
		return fmt.Errorf("load %s.%s: %w", def.Key, a.Name, err)
	}

	field, ok := def.Accessor().Field(entity, a.Name)
	if !ok {
		return fmt.Errorf("%s.%s is not settable", def.Key, a.Name)
	}
	assignCollection(field, dest.Elem())
	return nil
}

// Merge upserts the mapped columns of entity in one statement and returns the
// stored row. A zero identifier is left to the column default.
func (s *EntityStore) Merge(ctx context.Context, def *metadata.EntityDef, entity any) (any, error) {
	values, err := StructToMap(def, entity)
	if err != nil {
		return nil, apperror.NewValidation(err.Error())
	}
	if isZero(values[def.IDColumn]) {
		delete(values, def.IDColumn)
	}

	sql, args, err := upsertSQL(def, values)
	if err != nil {
		return nil, fmt.Errorf("build upsert: %w", err)
	}

	saved := def.New()
	if err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), saved, sql, args...); err != nil {
		return nil, fmt.Errorf("upsert %s: %w", def.SchemaName, err)
	}
	return saved, nil
}

func upsertSQL(def *metadata.EntityDef, values map[string]any) (string, []any, error) {
	returning := strings.Join(def.Columns(), ", ")
	if len(values) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", def.SchemaName, returning), nil, nil
	}

	updates := make([]string, 0, len(values))
	for col := range values {
		if col != def.IDColumn {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	sort.Strings(updates)
	if len(updates) == 0 {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", def.IDColumn, def.IDColumn))
	}

	return Builder().
		Insert(def.SchemaName).
		SetMap(values).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
			def.IDColumn, strings.Join(updates, ", "), returning)).
		ToSql()
}

// Remove deletes entity by identifier. A delete blocked by a foreign key
// fails with CONFLICT.
func (s *EntityStore) Remove(ctx context.Context, def *metadata.EntityDef, entity any) error {
	id, ok := def.IdentifierOf(entity)
	if !ok {
		return apperror.NewValidation(fmt.Sprintf("%s has no identifier", def.Key))
	}

	sql, args, err := Builder().
		Delete(def.SchemaName).
		Where(squirrel.Eq{def.IDColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperror.NewConflict(fmt.Sprintf("%s is still referenced", def.DisplayName)).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
		return fmt.Errorf("delete %s: %w", def.SchemaName, err)
	}
	return nil
}

// Identifier resolves the identifier of any registered instance, wrappers
// included.
func (s *EntityStore) Identifier(entity any) (any, bool) {
	def, ok := s.registry.GetByValue(entity)
	if !ok {
		return nil, false
	}
	return def.IdentifierOf(entity)
}

func columnValue(def *metadata.EntityDef, entity any, column string) (any, bool) {
	for _, a := range def.ListAttributes {
		if a.Column == column {
			return def.Accessor().Value(entity, a.Name)
		}
	}
	return nil, false
}
