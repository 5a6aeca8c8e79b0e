package store

import (
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // The database driver

	"lecturenotes/internal/models"
)

// Postgres implements Store on top of a Postgres database.
type Postgres struct {
	DB *sqlx.DB
}

// NewPostgres connects to the database at dbURL and pings it.
func NewPostgres(dbURL string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	log.Println("Database connection established")
	return &Postgres{DB: db}, nil
}

func (p *Postgres) UpsertUser(id int64, username string) (*models.User, error) {
	query := `
		INSERT INTO users (id, telegram_username)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			telegram_username = EXCLUDED.telegram_username,
			updated_at = NOW()
		RETURNING id, telegram_username, feed_uuid, created_at, updated_at
	`
	user := &models.User{}
	if err := p.DB.Get(user, query, id, username); err != nil {
		log.Printf("Error upserting user: %v", err)
		return nil, err
	}
	return user, nil
}

func (p *Postgres) GetUserByFeedUUID(feedUUID string) (*models.User, error) {
	user := &models.User{}
	err := p.DB.Get(user, "SELECT * FROM users WHERE feed_uuid = $1", feedUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (p *Postgres) CreateLecture(lecture *models.Lecture) error {
	query := `
		INSERT INTO lectures (id, owner_id, title, audio_path, duration_seconds, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`
	return p.DB.Get(lecture, query,
		lecture.ID, lecture.OwnerID, lecture.Title, lecture.AudioPath,
		lecture.DurationSeconds, lecture.Status)
}

func (p *Postgres) GetLecture(id string, ownerID int64) (*models.Lecture, error) {
	lecture := &models.Lecture{}
	err := p.DB.Get(lecture, "SELECT * FROM lectures WHERE id = $1 AND owner_id = $2", id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lecture, nil
}

func (p *Postgres) ListLectures(ownerID int64) ([]models.Lecture, error) {
	var lectures []models.Lecture
	query := `
		SELECT * FROM lectures
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	if err := p.DB.Select(&lectures, query, ownerID); err != nil {
		log.Printf("Error listing lectures for user %d: %v", ownerID, err)
		return nil, err
	}
	return lectures, nil
}

func (p *Postgres) ListCompletedLectures(ownerID int64) ([]models.Lecture, error) {
	var lectures []models.Lecture
	query := `
		SELECT * FROM lectures
		WHERE owner_id = $1 AND status = 'completed'
		ORDER BY created_at DESC
	`
	if err := p.DB.Select(&lectures, query, ownerID); err != nil {
		return nil, err
	}
	return lectures, nil
}

func (p *Postgres) UpdateTitle(id string, ownerID int64, title string) (*models.Lecture, error) {
	lecture := &models.Lecture{}
	query := `
		UPDATE lectures
		SET title = $1, updated_at = NOW()
		WHERE id = $2 AND owner_id = $3
		RETURNING *
	`
	err := p.DB.Get(lecture, query, title, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lecture, nil
}

func (p *Postgres) DeleteLecture(id string, ownerID int64) error {
	result, err := p.DB.Exec("DELETE FROM lectures WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ClaimProcessing moves a lecture into processing. Re-claiming a lecture that
// is already processing is allowed so a redelivered queue task can resume;
// processing_started_at is only set on the first claim.
func (p *Postgres) ClaimProcessing(id string, ownerID int64) (*models.Lecture, error) {
	lecture := &models.Lecture{}
	query := `
		UPDATE lectures
		SET status = 'processing',
			processing_started_at = COALESCE(processing_started_at, NOW()),
			error_message = NULL,
			updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND status IN ('uploaded', 'processing')
		RETURNING *
	`
	err := p.DB.Get(lecture, query, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lecture, nil
}

func (p *Postgres) MarkCompleted(id string, ownerID int64, artifacts Artifacts) error {
	query := `
		UPDATE lectures
		SET status = 'completed',
			raw_transcript = $1,
			filtered_transcript = $2,
			summary = $3,
			notes = $4,
			qna = $5,
			error_message = NULL,
			processing_completed_at = NOW(),
			updated_at = NOW()
		WHERE id = $6 AND owner_id = $7
	`
	result, err := p.DB.Exec(query,
		artifacts.RawTranscript, artifacts.FilteredTranscript,
		artifacts.Summary, artifacts.Notes, artifacts.QnA, id, ownerID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (p *Postgres) MarkFailed(id string, ownerID int64, errorMessage string) error {
	query := `
		UPDATE lectures
		SET status = 'failed',
			error_message = $1,
			processing_completed_at = NOW(),
			updated_at = NOW()
		WHERE id = $2 AND owner_id = $3
	`
	result, err := p.DB.Exec(query, errorMessage, id, ownerID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ReapStale fails every lecture that has been processing since before cutoff.
// This is the crash-recovery backstop for workers that died mid-job.
func (p *Postgres) ReapStale(cutoff time.Time) (int64, error) {
	query := `
		UPDATE lectures
		SET status = 'failed',
			error_message = 'processing timed out',
			processing_completed_at = NOW(),
			updated_at = NOW()
		WHERE status = 'processing' AND processing_started_at < $1
	`
	result, err := p.DB.Exec(query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
