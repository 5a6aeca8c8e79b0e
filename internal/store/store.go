package store

import (
	"errors"
	"time"

	"lecturenotes/internal/models"
)

// ErrNotFound is returned when a record does not exist or belongs to a
// different owner. Owner mismatches deliberately look identical to missing
// records so the API never leaks another user's lecture ids.
var ErrNotFound = errors.New("not found")

// Artifacts holds everything the pipeline produces for a completed lecture.
// They are persisted together in one update so a poll never observes a
// half-populated completed record.
type Artifacts struct {
	RawTranscript      string
	FilteredTranscript string
	Summary            string
	Notes              string
	QnA                string
}

// Store is the persistence adapter. Two backends implement it: Postgres
// (sqlx) and Document (a JSON file). All lecture operations are owner-scoped.
type Store interface {
	UpsertUser(id int64, username string) (*models.User, error)
	GetUserByFeedUUID(feedUUID string) (*models.User, error)

	CreateLecture(lecture *models.Lecture) error
	GetLecture(id string, ownerID int64) (*models.Lecture, error)
	ListLectures(ownerID int64) ([]models.Lecture, error)
	ListCompletedLectures(ownerID int64) ([]models.Lecture, error)
	UpdateTitle(id string, ownerID int64, title string) (*models.Lecture, error)
	DeleteLecture(id string, ownerID int64) error

	ClaimProcessing(id string, ownerID int64) (*models.Lecture, error)
	MarkCompleted(id string, ownerID int64, artifacts Artifacts) error
	MarkFailed(id string, ownerID int64, errorMessage string) error
	ReapStale(cutoff time.Time) (int64, error)
}
