// Package tx defines the transaction boundary used by the engine. Writes run
// inside RunInTransaction so a delete's lookup and removal share one
// transaction. The PostgreSQL implementation lives in
// infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs fn within a transaction carried by ctx: rolled back when fn
// returns an error, committed otherwise. Nested calls reuse the transaction
// already in ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transactions, used for
// multi-statement reads such as loading an entity with its associations.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
