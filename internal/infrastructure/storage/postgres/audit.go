package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "adminkit/internal/core/context"
	"adminkit/internal/core/id"
	"adminkit/internal/domain"
	"adminkit/internal/metadata"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditTableDDL creates the audit table.
const AuditTableDDL = `CREATE TABLE IF NOT EXISTS admin_audit (
	id                 UUID PRIMARY KEY,
	entity_key         TEXT NOT NULL,
	entity_id          TEXT NOT NULL,
	action             TEXT NOT NULL,
	request_id         TEXT NOT NULL DEFAULT '',
	snapshot           JSONB,
	snapshot_compressed BYTEA,
	compression_algo   TEXT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL
)`

// auditRow is the stored form of an entry. Large snapshots live in
// SnapshotCompressed instead of Snapshot.
type auditRow struct {
	domain.AuditEntry
	SnapshotCompressed []byte          `db:"snapshot_compressed"`
	CompressionAlgo    CompressionAlgo `db:"compression_algo"`
}

// AuditLog records saves and deletes performed through the engine. Snapshots
// above the threshold are stored zstd-compressed.
type AuditLog struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
	now               func() time.Time
}

// NewAuditLog creates an audit log. threshold <= 0 selects 10KB.
func NewAuditLog(txManager *TxManager, threshold int) (*AuditLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if threshold <= 0 {
		threshold = 10 * 1024
	}
	return &AuditLog{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: threshold,
		now:               time.Now,
	}, nil
}

// Register installs the audit hooks on a hook registry.
func (a *AuditLog) Register(hooks *domain.HookRegistry) {
	hooks.On(domain.AfterSave, a.hook(domain.AuditActionSave))
	hooks.On(domain.AfterDelete, a.hook(domain.AuditActionDelete))
}

// hook records the write in the caller's transaction, so a failed insert
// rolls the write back.
func (a *AuditLog) hook(action domain.AuditAction) domain.Hook {
	return func(ctx context.Context, def *metadata.EntityDef, entity any) error {
		entry, err := a.entry(def, entity, action)
		if err != nil {
			return err
		}
		entry.RequestID = appctx.GetRequestID(ctx)
		return a.Log(ctx, entry)
	}
}

func (a *AuditLog) entry(def *metadata.EntityDef, entity any, action domain.AuditAction) (domain.AuditEntry, error) {
	snapshot, err := StructToMap(def, entity)
	if err != nil {
		return domain.AuditEntry{}, err
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	idValue, _ := def.IdentifierOf(entity)
	return domain.AuditEntry{
		EntityKey: def.Key,
		EntityID:  fmt.Sprint(idValue),
		Action:    action,
		Snapshot:  raw,
	}, nil
}

// compress builds the stored row, moving a large snapshot into
// SnapshotCompressed.
func (a *AuditLog) compress(entry domain.AuditEntry) auditRow {
	row := auditRow{AuditEntry: entry, CompressionAlgo: CompressionNone}
	if len(entry.Snapshot) > a.compressThreshold {
		row.SnapshotCompressed = a.encoder.EncodeAll(entry.Snapshot, nil)
		row.Snapshot = nil
		row.CompressionAlgo = CompressionZstd
	}
	return row
}

// decompress restores the entry of a stored row.
func (a *AuditLog) decompress(row auditRow) (domain.AuditEntry, error) {
	entry := row.AuditEntry
	if row.CompressionAlgo != CompressionZstd || len(row.SnapshotCompressed) == 0 {
		return entry, nil
	}
	raw, err := a.decoder.DecodeAll(row.SnapshotCompressed, nil)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("decompress snapshot: %w", err)
	}
	entry.Snapshot = raw
	return entry, nil
}

// Log records an audit entry in the transaction carried by ctx, if any.
func (a *AuditLog) Log(ctx context.Context, entry domain.AuditEntry) error {
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.now().UTC()
	}
	row := a.compress(entry)

	sql, args, err := Builder().
		Insert("admin_audit").
		Columns("id", "entity_key", "entity_id", "action", "request_id",
			"snapshot", "snapshot_compressed", "compression_algo", "created_at").
		Values(row.ID, row.EntityKey, row.EntityID, row.Action, row.RequestID,
			nullableJSON(row.Snapshot), row.SnapshotCompressed, row.CompressionAlgo, row.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := a.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns the latest entries for one instance, newest first.
func (a *AuditLog) History(ctx context.Context, entityKey, entityID string, limit int) ([]domain.AuditEntry, error) {
	sql, args, err := Builder().
		Select("id", "entity_key", "entity_id", "action", "request_id",
			"snapshot", "snapshot_compressed", "compression_algo", "created_at").
		From("admin_audit").
		Where("entity_key = ? AND entity_id = ?", entityKey, entityID).
		OrderBy("created_at DESC").
		Limit(uint64(max(limit, 1))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history: %w", err)
	}

	var rows []auditRow
	if err := pgxscan.Select(ctx, a.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	entries := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := a.decompress(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func nullableJSON(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}
