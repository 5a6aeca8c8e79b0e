package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturenotes/internal/models"
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { mockDb.Close() })
	return &Postgres{DB: sqlx.NewDb(mockDb, "sqlmock")}, mock
}

var lectureColumns = []string{
	"id", "owner_id", "title", "audio_path", "duration_seconds", "status",
	"raw_transcript", "filtered_transcript", "summary", "notes", "qna",
	"error_message", "created_at", "processing_started_at",
	"processing_completed_at", "updated_at",
}

func lectureRow(id string, ownerID int64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(lectureColumns).AddRow(
		id, ownerID, "Lecture", "/data/audio/a.webm", 900, status,
		nil, nil, nil, nil, nil, nil, now, nil, nil, now)
}

func TestPostgresGetLecture(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT \* FROM lectures WHERE id = \$1 AND owner_id = \$2`).
		WithArgs("lec-1", int64(7)).
		WillReturnRows(lectureRow("lec-1", 7, models.StatusUploaded))

	lecture, err := p.GetLecture("lec-1", 7)
	require.NoError(t, err)
	assert.Equal(t, "lec-1", lecture.ID)
	assert.Equal(t, models.StatusUploaded, lecture.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetLectureNotFound(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT \* FROM lectures WHERE id = \$1 AND owner_id = \$2`).
		WithArgs("lec-1", int64(999)).
		WillReturnError(sql.ErrNoRows)

	_, err := p.GetLecture("lec-1", 999)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClaimProcessing(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`UPDATE lectures`).
		WithArgs("lec-1", int64(7)).
		WillReturnRows(lectureRow("lec-1", 7, models.StatusProcessing))

	lecture, err := p.ClaimProcessing("lec-1", 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, lecture.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClaimProcessingTerminalLecture(t *testing.T) {
	p, mock := newMockPostgres(t)

	// Completed and failed lectures do not match the claim predicate.
	mock.ExpectQuery(`UPDATE lectures`).
		WithArgs("lec-1", int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := p.ClaimProcessing("lec-1", 7)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkCompleted(t *testing.T) {
	p, mock := newMockPostgres(t)

	artifacts := Artifacts{
		RawTranscript:      "raw",
		FilteredTranscript: "filtered",
		Summary:            "summary",
		Notes:              "notes",
		QnA:                "qna",
	}
	mock.ExpectExec(`UPDATE lectures`).
		WithArgs("raw", "filtered", "summary", "notes", "qna", "lec-1", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.MarkCompleted("lec-1", 7, artifacts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkFailedNotFound(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE lectures`).
		WithArgs("boom", "lec-1", int64(999)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := p.MarkFailed("lec-1", 999, "boom")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteLecture(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM lectures WHERE id = \$1 AND owner_id = \$2`).
		WithArgs("lec-1", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.DeleteLecture("lec-1", 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteLectureWrongOwner(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM lectures WHERE id = \$1 AND owner_id = \$2`).
		WithArgs("lec-1", int64(999)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := p.DeleteLecture("lec-1", 999)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReapStale(t *testing.T) {
	p, mock := newMockPostgres(t)

	cutoff := time.Now().Add(-2 * time.Hour)
	mock.ExpectExec(`UPDATE lectures`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	reaped, err := p.ReapStale(cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), reaped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertUser(t *testing.T) {
	p, mock := newMockPostgres(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "telegram_username", "feed_uuid", "created_at", "updated_at"}).
		AddRow(int64(7), "alice", "feed-uuid-1", now, now)
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(int64(7), "alice").
		WillReturnRows(rows)

	user, err := p.UpsertUser(7, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "feed-uuid-1", user.FeedUUID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
