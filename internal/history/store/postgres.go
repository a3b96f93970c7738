package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docscan/internal/history/models"
	insmodels "docscan/internal/inspector/models"
	"docscan/pkg/platform/sentinel"
)

// Postgres persists scan records in PostgreSQL. The full scan payload lives
// in a jsonb column; the count columns cache the derivation over it.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema returns the DDL for the scan_records table. Migrations tooling is a
// deployment concern; dev setups can apply this directly.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS scan_records (
			id UUID PRIMARY KEY,
			owner_id BIGINT NOT NULL,
			document_name TEXT NOT NULL,
			file_path TEXT NOT NULL,
			file_mime TEXT NOT NULL DEFAULT 'application/pdf',
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			total_pages INT NOT NULL,
			qr_count INT NOT NULL DEFAULT 0,
			signature_count INT NOT NULL DEFAULT 0,
			stamp_count INT NOT NULL DEFAULT 0,
			payload JSONB NOT NULL,
			processing_time DOUBLE PRECISION NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_scan_records_owner ON scan_records (owner_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_scan_records_expiry ON scan_records (expires_at);
	`
}

func (s *Postgres) Create(ctx context.Context, record *models.ScanRecord) error {
	payload, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("marshal scan payload: %w", err)
	}

	query := `
		INSERT INTO scan_records (
			id, owner_id, document_name, file_path, file_mime,
			created_at, expires_at, total_pages,
			qr_count, signature_count, stamp_count,
			payload, processing_time
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.OwnerID,
		record.DocumentName,
		record.FilePath,
		record.FileMime,
		record.CreatedAt,
		record.ExpiresAt,
		record.TotalPages,
		record.QRCount,
		record.SignatureCount,
		record.StampCount,
		payload,
		record.ProcessingTime,
	)
	if err != nil {
		return fmt.Errorf("insert scan record: %w", err)
	}
	return nil
}

func (s *Postgres) ListByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]models.Summary, error) {
	query := `
		SELECT id, owner_id, document_name, created_at, expires_at,
			   total_pages, qr_count, signature_count, stamp_count, processing_time
		FROM scan_records
		WHERE owner_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list scan records: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.Summary, 0)
	for rows.Next() {
		var summary models.Summary
		err := rows.Scan(
			&summary.ID,
			&summary.OwnerID,
			&summary.DocumentName,
			&summary.CreatedAt,
			&summary.ExpiresAt,
			&summary.TotalPages,
			&summary.QRCount,
			&summary.SignatureCount,
			&summary.StampCount,
			&summary.ProcessingTime,
		)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan records: %w", err)
	}
	return summaries, nil
}

func (s *Postgres) FindByOwner(ctx context.Context, id uuid.UUID, ownerID int64) (*models.ScanRecord, error) {
	query := `
		SELECT id, owner_id, document_name, file_path, file_mime,
			   created_at, expires_at, total_pages,
			   qr_count, signature_count, stamp_count,
			   payload, processing_time
		FROM scan_records
		WHERE id = $1 AND owner_id = $2
	`
	record, err := s.scanRecord(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find scan record: %w", err)
	}
	return record, nil
}

func (s *Postgres) Delete(ctx context.Context, id uuid.UUID, ownerID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM scan_records WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete scan record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scan record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) StatsByOwner(ctx context.Context, ownerID int64) (models.Stats, error) {
	query := `
		SELECT COUNT(id),
			   COALESCE(SUM(total_pages), 0),
			   COALESCE(SUM(qr_count), 0),
			   COALESCE(SUM(signature_count), 0),
			   COALESCE(SUM(stamp_count), 0)
		FROM scan_records
		WHERE owner_id = $1
	`
	var stats models.Stats
	err := s.db.QueryRowContext(ctx, query, ownerID).Scan(
		&stats.TotalScans,
		&stats.TotalPages,
		&stats.TotalQR,
		&stats.TotalSignatures,
		&stats.TotalStamps,
	)
	if err != nil {
		return models.Stats{}, fmt.Errorf("aggregate scan stats: %w", err)
	}
	return stats, nil
}

func (s *Postgres) ListExpired(ctx context.Context, now time.Time) ([]*models.ScanRecord, error) {
	query := `
		SELECT id, owner_id, document_name, file_path, file_mime,
			   created_at, expires_at, total_pages,
			   qr_count, signature_count, stamp_count,
			   payload, processing_time
		FROM scan_records
		WHERE expires_at < $1
		ORDER BY expires_at
	`
	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list expired scan records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.ScanRecord, 0)
	for rows.Next() {
		record, err := s.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired records: %w", err)
	}
	return records, nil
}

func (s *Postgres) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM scan_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete scan record by id: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scan record by id: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanRecord(row rowScanner) (*models.ScanRecord, error) {
	var (
		record  models.ScanRecord
		payload []byte
	)
	err := row.Scan(
		&record.ID,
		&record.OwnerID,
		&record.DocumentName,
		&record.FilePath,
		&record.FileMime,
		&record.CreatedAt,
		&record.ExpiresAt,
		&record.TotalPages,
		&record.QRCount,
		&record.SignatureCount,
		&record.StampCount,
		&payload,
		&record.ProcessingTime,
	)
	if err != nil {
		return nil, err
	}

	var result insmodels.ScanResult
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("unmarshal scan payload: %w", err)
		}
	}
	record.Result = result
	return &record, nil
}
