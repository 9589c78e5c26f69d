package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rotationDomain "github.com/allisson/configvault/internal/rotation/domain"
)

var recordColumns = []string{
	"id", "status", "old_key_fingerprint", "new_key_fingerprint", "reason",
	"reencrypted_paths", "backup_path", "verification_passed", "verification_detail",
	"error_message", "created_at", "completed_at", "next_rotation_due",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func completedRecord(t *testing.T) *rotationDomain.RotationRecord {
	t.Helper()
	record := rotationDomain.NewRotationRecord("quarterly rotation")
	require.NoError(t, record.Begin("old-fingerprint", "new-fingerprint"))
	record.ReencryptedPaths = []string{"/etc/app/.env.encrypted"}
	record.BackupPath = "/etc/app/.env.encrypted.backup.20260301T120000Z"
	record.VerificationDetail = map[string]any{"entries": float64(12)}
	require.NoError(t, record.Complete(
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		rotationDomain.DefaultRotationInterval,
	))
	return record
}

func recordRow(t *testing.T, record *rotationDomain.RotationRecord) *sqlmock.Rows {
	t.Helper()

	var pathsJSON, detailJSON []byte
	var err error
	if len(record.ReencryptedPaths) > 0 {
		pathsJSON, err = json.Marshal(record.ReencryptedPaths)
		require.NoError(t, err)
	}
	if record.VerificationDetail != nil {
		detailJSON, err = json.Marshal(record.VerificationDetail)
		require.NoError(t, err)
	}

	return sqlmock.NewRows(recordColumns).AddRow(
		record.ID, string(record.Status), record.OldKeyFingerprint,
		record.NewKeyFingerprint, record.Reason, pathsJSON, record.BackupPath,
		record.VerificationPassed, detailJSON, record.ErrorMessage,
		record.CreatedAt, record.CompletedAt, record.NextRotationDue,
	)
}

func TestPostgreSQLRotationRecordRepository_Create(t *testing.T) {
	t.Run("inserts initiated record", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationRecordRepository(db)

		record := rotationDomain.NewRotationRecord("quarterly rotation")

		mock.ExpectExec("INSERT INTO rotation_records").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(context.Background(), record)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database errors", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationRecordRepository(db)

		mock.ExpectExec("INSERT INTO rotation_records").
			WillReturnError(assert.AnError)

		err := repo.Create(context.Background(), rotationDomain.NewRotationRecord("test"))
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestPostgreSQLRotationRecordRepository_Update(t *testing.T) {
	t.Run("updates existing record", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationRecordRepository(db)

		record := completedRecord(t)

		mock.ExpectExec("UPDATE rotation_records").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(context.Background(), record)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when no rows affected", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationRecordRepository(db)

		mock.ExpectExec("UPDATE rotation_records").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), rotationDomain.NewRotationRecord("test"))
		assert.ErrorIs(t, err, rotationDomain.ErrRecordNotFound)
	})
}

func TestPostgreSQLRotationRecordRepository_Get(t *testing.T) {
	t.Run("returns record with JSON fields decoded", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationRecordRepository(db)

		record := completedRecord(t)

		mock.ExpectQuery("SELECT (.+) FROM rotation_records WHERE id").
			WithArgs(record.ID).
			WillReturnRows(recordRow(t, record))

		got, err := repo.Get(context.Background(), record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.ID, got.ID)
		assert.Equal(t, rotationDomain.StatusCompleted, got.Status)
		assert.Equal(t, []string{"/etc/app/.env.encrypted"}, got.ReencryptedPaths)
		assert.Equal(t, map[string]any{"entries": float64(12)}, got.VerificationDetail)
		require.NotNil(t, got.NextRotationDue)
	})

	t.Run("returns not found for missing record", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationRecordRepository(db)

		record := rotationDomain.NewRotationRecord("test")

		mock.ExpectQuery("SELECT (.+) FROM rotation_records WHERE id").
			WithArgs(record.ID).
			WillReturnRows(sqlmock.NewRows(recordColumns))

		_, err := repo.Get(context.Background(), record.ID)
		assert.ErrorIs(t, err, rotationDomain.ErrRecordNotFound)
	})
}

func TestPostgreSQLRotationRecordRepository_List(t *testing.T) {
	t.Run("returns records newest first", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationRecordRepository(db)

		record := completedRecord(t)

		mock.ExpectQuery("SELECT (.+) FROM rotation_records ORDER BY created_at DESC").
			WithArgs(10, 0).
			WillReturnRows(recordRow(t, record))

		records, err := repo.List(context.Background(), "", 0, 10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, record.ID, records[0].ID)
	})

	t.Run("filters by status", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationRecordRepository(db)

		mock.ExpectQuery("SELECT (.+) FROM rotation_records WHERE status").
			WithArgs(string(rotationDomain.StatusFailed), 10, 0).
			WillReturnRows(sqlmock.NewRows(recordColumns))

		records, err := repo.List(context.Background(), rotationDomain.StatusFailed, 0, 10)
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})
}

func TestPostgreSQLRotationRecordRepository_LatestCompleted(t *testing.T) {
	t.Run("returns newest completed record", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationRecordRepository(db)

		record := completedRecord(t)

		mock.ExpectQuery("SELECT (.+) FROM rotation_records").
			WithArgs(string(rotationDomain.StatusCompleted)).
			WillReturnRows(recordRow(t, record))

		got, err := repo.LatestCompleted(context.Background())
		require.NoError(t, err)
		assert.Equal(t, record.ID, got.ID)
		assert.True(t, got.VerificationPassed)
	})

	t.Run("returns not found when no rotation completed yet", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationRecordRepository(db)

		mock.ExpectQuery("SELECT (.+) FROM rotation_records").
			WithArgs(string(rotationDomain.StatusCompleted)).
			WillReturnRows(sqlmock.NewRows(recordColumns))

		_, err := repo.LatestCompleted(context.Background())
		assert.ErrorIs(t, err, rotationDomain.ErrRecordNotFound)
	})
}
