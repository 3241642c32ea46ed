package postgres

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"adminkit/internal/domain"
	"adminkit/internal/domain/query"
	"adminkit/internal/metadata"
)

// Compile-time check that QueryExecutor implements domain.QueryExecutor.
var _ domain.QueryExecutor = (*QueryExecutor)(nil)

// QueryExecutor renders query ASTs and runs them on the querier in context.
type QueryExecutor struct {
	txManager *TxManager
}

// NewQueryExecutor creates an executor.
func NewQueryExecutor(txManager *TxManager) *QueryExecutor {
	return &QueryExecutor{txManager: txManager}
}

// Select runs the list query and scans rows into pointers to def's type.
func (e *QueryExecutor) Select(ctx context.Context, def *metadata.EntityDef, q query.Select) ([]any, error) {
	ctx, span := tracer.Start(ctx, "query.select", trace.WithAttributes(
		attribute.String("entity", def.Key),
		attribute.Int("joins", len(q.Joins)),
	))
	defer span.End()

	sql, args, err := RenderSelect(q)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	dest := newSlicePtr(def.Type)
	if err := pgxscan.Select(ctx, e.txManager.GetQuerier(ctx), dest.Interface(), sql, args...); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("select %s: %w", def.SchemaName, err)
	}
	return toAnySlice(dest.Elem()), nil
}

// Count runs the count query.
func (e *QueryExecutor) Count(ctx context.Context, def *metadata.EntityDef, q query.Select) (int64, error) {
	ctx, span := tracer.Start(ctx, "query.count", trace.WithAttributes(
		attribute.String("entity", def.Key),
	))
	defer span.End()

	sql, args, err := RenderCount(q)
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var total int64
	if err := e.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("count %s: %w", def.SchemaName, err)
	}
	return total, nil
}
