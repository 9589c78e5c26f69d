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

// MySQLRotationRecordRepository implements RotationRecord persistence for
// MySQL. UUIDs are stored as BINARY(16) and JSON columns hold the path list
// and verification detail. Transaction support via database.GetTx().
type MySQLRotationRecordRepository struct {
	db *sql.DB
}

// NewMySQLRotationRecordRepository creates a new MySQL RotationRecord repository.
func NewMySQLRotationRecordRepository(db *sql.DB) *MySQLRotationRecordRepository {
	return &MySQLRotationRecordRepository{db: db}
}

// Create inserts a new RotationRecord.
func (m *MySQLRotationRecordRepository) Create(
	ctx context.Context,
	record *rotationDomain.RotationRecord,
) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rotation record id")
	}

	pathsJSON, detailJSON, err := marshalRecordJSON(record)
	if err != nil {
		return err
	}

	query := `INSERT INTO rotation_records
			  (id, status, old_key_fingerprint, new_key_fingerprint, reason,
			   reencrypted_paths, backup_path, verification_passed, verification_detail,
			   error_message, created_at, completed_at, next_rotation_due)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		idBytes,
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
func (m *MySQLRotationRecordRepository) Update(
	ctx context.Context,
	record *rotationDomain.RotationRecord,
) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rotation record id")
	}

	pathsJSON, detailJSON, err := marshalRecordJSON(record)
	if err != nil {
		return err
	}

	query := `UPDATE rotation_records
			  SET status = ?, old_key_fingerprint = ?, new_key_fingerprint = ?,
			      reencrypted_paths = ?, backup_path = ?, verification_passed = ?,
			      verification_detail = ?, error_message = ?, completed_at = ?,
			      next_rotation_due = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
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
		idBytes,
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
func (m *MySQLRotationRecordRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*rotationDomain.RotationRecord, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal rotation record id")
	}

	query := selectColumns + ` FROM rotation_records WHERE id = ?`

	row := querier.QueryRowContext(ctx, query, idBytes)
	record, err := scanMySQLRotationRecord(row.Scan)
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
func (m *MySQLRotationRecordRepository) List(
	ctx context.Context,
	status rotationDomain.Status,
	offset, limit int,
) ([]*rotationDomain.RotationRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := selectColumns + ` FROM rotation_records`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
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
		record, err := scanMySQLRotationRecord(rows.Scan)
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
func (m *MySQLRotationRecordRepository) LatestCompleted(
	ctx context.Context,
) (*rotationDomain.RotationRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := selectColumns + ` FROM rotation_records
			  WHERE status = ?
			  ORDER BY completed_at DESC
			  LIMIT 1`

	row := querier.QueryRowContext(ctx, query, string(rotationDomain.StatusCompleted))
	record, err := scanMySQLRotationRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, rotationDomain.ErrRecordNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get latest completed rotation record")
	}

	return record, nil
}

// scanMySQLRotationRecord scans one row, converting the BINARY(16) id back
// into a uuid.UUID.
func scanMySQLRotationRecord(scan func(dest ...any) error) (*rotationDomain.RotationRecord, error) {
	var record rotationDomain.RotationRecord
	var idBytes []byte
	var status string
	var pathsJSON, detailJSON []byte
	var completedAt, nextRotationDue sql.NullTime

	err := scan(
		&idBytes,
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

	id, err := uuid.FromBytes(idBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse rotation record id")
	}

	record.ID = id
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
