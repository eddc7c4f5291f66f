package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/id"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is one row of the audit trail. Large payloads are stored
// zstd-compressed.
type AuditEntry struct {
	ID              id.ID           `db:"id"`
	ClinicID        string          `db:"clinic_id"`
	EntityType      string          `db:"entity_type"`
	EntityID        id.ID           `db:"entity_id"`
	Action          string          `db:"action"`
	UserID          string          `db:"user_id"`
	Payload         json.RawMessage `db:"payload"`
	PayloadZstd     []byte          `db:"payload_zstd"`
	CompressionAlgo CompressionAlgo `db:"compression_algo"`
	CreatedAt       time.Time       `db:"created_at"`
}

// AuditService records cancellation and correction events. It satisfies
// the Auditor interface of the billing and sale services.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record writes one audit entry. Runs on the caller's transaction when
// one is active, so the trail commits and rolls back with the operation.
func (s *AuditService) Record(ctx context.Context, entityType string, entityID id.ID, action string, metadata map[string]any) error {
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	entry := AuditEntry{
		ID:              id.New(),
		ClinicID:        appctx.GetClinicID(ctx),
		EntityType:      entityType,
		EntityID:        entityID,
		Action:          action,
		UserID:          appctx.GetUserID(ctx),
		Payload:         payload,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}

	if len(entry.Payload) > s.compressThreshold {
		entry.PayloadZstd = s.encoder.EncodeAll(entry.Payload, nil)
		entry.Payload = nil
		entry.CompressionAlgo = CompressionZstd
	}

	querier := s.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, `
		INSERT INTO sys_audit (
			id, clinic_id, entity_type, entity_id, action, user_id,
			payload, payload_zstd, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		entry.ID, entry.ClinicID, entry.EntityType, entry.EntityID,
		entry.Action, entry.UserID,
		entry.Payload, entry.PayloadZstd, entry.CompressionAlgo, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// DecodePayload returns the entry's payload, decompressing when needed.
func (s *AuditService) DecodePayload(entry AuditEntry) (json.RawMessage, error) {
	if entry.CompressionAlgo != CompressionZstd {
		return entry.Payload, nil
	}
	raw, err := s.decoder.DecodeAll(entry.PayloadZstd, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress audit payload: %w", err)
	}
	return raw, nil
}
