// Package repository implements rotation audit-trail persistence.
//
// Each rotation attempt is appended as a RotationRecord, keyed by its
// identifier, ordered by rotation date and filterable by status, enough to
// answer "when was the last completed rotation" and "is rotation overdue".
// Repositories support transaction-aware operations via database.GetTx().
package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/allisson/configvault/internal/database"
	apperrors "github.com/allisson/configvault/internal/errors"
	rotationDomain "github.com/allisson/configvault/internal/rotation/domain"
)

// PostgreSQLRotationRecordRepository implements RotationRecord persistence
// for PostgreSQL. Uses native UUID and JSONB types with transaction support
// via database.GetTx().
type PostgreSQLRotationRecordRepository struct {
	db *sql.DB
}

// NewPostgreSQLRotationRecordRepository creates a new PostgreSQL RotationRecord repository.
func NewPostgreSQLRotationRecordRepository(db *sql.DB) *PostgreSQLRotationRecordRepository {
	return &PostgreSQLRotationRecordRepository{db: db}
}

// Create inserts a new RotationRecord. Nil detail maps and empty path lists
// are stored as database NULL.
func (p *PostgreSQLRotationRecordRepository) Create(
	ctx context.Context,
	record *rotationDomain.RotationRecord,
) error {
	querier := database.GetTx(ctx, p.db)

	pathsJSON, detailJSON, err := marshalRecordJSON(record)
	if err != nil {
		return err
	}

	query := `INSERT INTO rotation_records
			  (id, status, old_key_fingerprint, new_key_fingerprint, reason,
			   reencrypted_paths, backup_path, verification_passed, verification_detail,
			   error_message, created_at, completed_at, next_rotation_due)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = querier.ExecContext(
		ctx,
		query,
		record.ID,
		string(record.Status),
		record.OldKeyFingerprint,
		record.NewKeyFingerprint,
		record.Reason,
		pathsJSON,
		record.BackupPath,
		record.VerificationPassed,
		detailJSON,
		record.ErrorMessage,
		record.CreatedAt,
		record.CompletedAt,
		record.NextRotationDue,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rotation record")
	}

	return nil
}

// Update persists the mutable fields of an in-flight RotationRecord.
// Returns ErrRecordNotFound if no record with the given ID exists.
func (p *PostgreSQLRotationRecordRepository) Update(
	ctx context.Context,
	record *rotationDomain.RotationRecord,
) error {
	querier := database.GetTx(ctx, p.db)

	pathsJSON, detailJSON, err := marshalRecordJSON(record)
	if err != nil {
		return err
	}

	query := `UPDATE rotation_records
			  SET status = $2, old_key_fingerprint = $3, new_key_fingerprint = $4,
			      reencrypted_paths = $5, backup_path = $6, verification_passed = $7,
			      verification_detail = $8, error_message = $9, completed_at = $10,
			      next_rotation_due = $11
			  WHERE id = $1`

	result, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		string(record.Status),
		record.OldKeyFingerprint,
		record.NewKeyFingerprint,
		pathsJSON,
		record.BackupPath,
		record.VerificationPassed,
		detailJSON,
		record.ErrorMessage,
		record.CompletedAt,
		record.NextRotationDue,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update rotation record")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check rotation record update")
	}
	if affected == 0 {
		return rotationDomain.ErrRecordNotFound
	}

	return nil
}

// Get retrieves a RotationRecord by its identifier.
// Returns ErrRecordNotFound if the record does not exist.
func (p *PostgreSQLRotationRecordRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*rotationDomain.RotationRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := selectColumns + ` FROM rotation_records WHERE id = $1`

	row := querier.QueryRowContext(ctx, query, id)
	record, err := scanRotationRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, rotationDomain.ErrRecordNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get rotation record")
	}

	return record, nil
}

// List retrieves rotation records ordered by created_at descending (newest
// first) with pagination. An empty status filters nothing. Returns an empty
// slice when no records match.
func (p *PostgreSQLRotationRecordRepository) List(
	ctx context.Context,
	status rotationDomain.Status,
	offset, limit int,
) ([]*rotationDomain.RotationRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := selectColumns + ` FROM rotation_records`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`
	if status != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rotation records")
	}
	defer func() {
		_ = rows.Close()
	}()

	// Initialize empty slice to avoid returning nil for empty results
	records := make([]*rotationDomain.RotationRecord, 0)
	for rows.Next() {
		record, err := scanRotationRecord(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rotation record")
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rotation records")
	}

	return records, nil
}

// LatestCompleted retrieves the most recently completed rotation record.
// Returns ErrRecordNotFound when no rotation has ever completed.
func (p *PostgreSQLRotationRecordRepository) LatestCompleted(
	ctx context.Context,
) (*rotationDomain.RotationRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := selectColumns + ` FROM rotation_records
			  WHERE status = $1
			  ORDER BY completed_at DESC
			  LIMIT 1`

	row := querier.QueryRowContext(ctx, query, string(rotationDomain.StatusCompleted))
	record, err := scanRotationRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, rotationDomain.ErrRecordNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get latest completed rotation record")
	}

	return record, nil
}

const selectColumns = `SELECT id, status, old_key_fingerprint, new_key_fingerprint, reason,
	reencrypted_paths, backup_path, verification_passed, verification_detail,
	error_message, created_at, completed_at, next_rotation_due`

// marshalRecordJSON renders the record's path list and detail map as JSON,
// mapping empty values to NULL.
func marshalRecordJSON(record *rotationDomain.RotationRecord) (pathsJSON, detailJSON []byte, err error) {
	if len(record.ReencryptedPaths) > 0 {
		pathsJSON, err = json.Marshal(record.ReencryptedPaths)
		if err != nil {
			return nil, nil, apperrors.Wrap(err, "failed to marshal reencrypted paths")
		}
	}
	if record.VerificationDetail != nil {
		detailJSON, err = json.Marshal(record.VerificationDetail)
		if err != nil {
			return nil, nil, apperrors.Wrap(err, "failed to marshal verification detail")
		}
	}
	return pathsJSON, detailJSON, nil
}

// scanRotationRecord scans one row into a RotationRecord, handling NULL
// JSON columns and timestamps.
func scanRotationRecord(scan func(dest ...any) error) (*rotationDomain.RotationRecord, error) {
	var record rotationDomain.RotationRecord
	var status string
	var pathsJSON, detailJSON []byte
	var completedAt, nextRotationDue sql.NullTime

	err := scan(
		&record.ID,
		&status,
		&record.OldKeyFingerprint,
		&record.NewKeyFingerprint,
		&record.Reason,
		&pathsJSON,
		&record.BackupPath,
		&record.VerificationPassed,
		&detailJSON,
		&record.ErrorMessage,
		&record.CreatedAt,
		&completedAt,
		&nextRotationDue,
	)
	if err != nil {
		return nil, err
	}

	record.Status = rotationDomain.Status(status)
	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}
	if nextRotationDue.Valid {
		record.NextRotationDue = &nextRotationDue.Time
	}
	if pathsJSON != nil {
		if err := json.Unmarshal(pathsJSON, &record.ReencryptedPaths); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal reencrypted paths")
		}
	}
	if detailJSON != nil {
		if err := json.Unmarshal(detailJSON, &record.VerificationDetail); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal verification detail")
		}
	}

	return &record, nil
}
