package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"clinika/internal/core/appctx"
	"clinika/internal/core/id"
	"clinika/internal/domain/audit"
	"clinika/pkg/logger"
)

// CompressionAlgo specifies the compression algorithm used on a snapshot.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is one row of sys_audit_log.
type AuditEntry struct {
	ID                 id.ID           `db:"id"`
	EntityType         string          `db:"entity_type"`
	EntityID           id.ID           `db:"entity_id"`
	Action             audit.Action    `db:"action"`
	UserID             string          `db:"user_id"`
	Snapshot           json.RawMessage `db:"snapshot"`
	SnapshotCompressed []byte          `db:"snapshot_compressed"`
	CompressionAlgo    CompressionAlgo `db:"compression_algo"`
	CreatedAt          time.Time       `db:"created_at"`
}

// AuditStore persists entity snapshots to sys_audit_log, compressing large
// ones with zstd. It implements audit.Recorder.
type AuditStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Recorder = (*AuditStore)(nil)

// NewAuditStore creates an audit store.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record writes an audit entry. Best effort: a failed audit write is logged
// and never fails the business operation that triggered it.
func (s *AuditStore) Record(ctx context.Context, entityType string, entityID id.ID, action audit.Action, snapshot any) {
	entry := AuditEntry{
		ID:              id.New(),
		EntityType:      entityType,
		EntityID:        entityID,
		Action:          action,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}

	entry.UserID = appctx.GetUserID(ctx)

	if snapshot != nil {
		raw, err := json.Marshal(snapshot)
		if err != nil {
			logger.Warn(ctx, "audit snapshot marshal failed",
				"entity_type", entityType,
				"entity_id", entityID,
				"error", err,
			)
			return
		}
		if len(raw) > s.compressThreshold {
			entry.SnapshotCompressed = s.encoder.EncodeAll(raw, nil)
			entry.CompressionAlgo = CompressionZstd
		} else {
			entry.Snapshot = raw
		}
	}

	sql := `
		INSERT INTO sys_audit_log (
			id, entity_type, entity_id, action, user_id,
			snapshot, snapshot_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action, entry.UserID,
		entry.Snapshot, entry.SnapshotCompressed, entry.CompressionAlgo,
		entry.CreatedAt,
	)
	if err != nil {
		logger.Warn(ctx, "audit write failed",
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// EntityHistory retrieves audit history for an entity, newest first.
func (s *AuditStore) EntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	sql := `
		SELECT id, entity_type, entity_id, action, user_id,
		       snapshot, snapshot_compressed, compression_algo, created_at
		FROM sys_audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.UserID,
			&e.Snapshot, &e.SnapshotCompressed, &e.CompressionAlgo,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.SnapshotCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(e.SnapshotCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress snapshot: %w", err)
			}
			e.Snapshot = decompressed
			e.SnapshotCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
