package models

import "time"

// Lecture statuses. A lecture only moves forward:
// uploaded -> processing -> completed | failed.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Lecture is one audio-to-artifacts processing record.
type Lecture struct {
	ID                    string     `db:"id" json:"id"`
	OwnerID               int64      `db:"owner_id" json:"-"`
	Title                 string     `db:"title" json:"title"`
	AudioPath             string     `db:"audio_path" json:"-"`
	DurationSeconds       int        `db:"duration_seconds" json:"durationSeconds"`
	Status                string     `db:"status" json:"status"`
	RawTranscript         *string    `db:"raw_transcript" json:"rawTranscript,omitempty"`
	FilteredTranscript    *string    `db:"filtered_transcript" json:"filteredTranscript,omitempty"`
	Summary               *string    `db:"summary" json:"summary,omitempty"`
	Notes                 *string    `db:"notes" json:"notes,omitempty"`
	QnA                   *string    `db:"qna" json:"qna,omitempty"`
	ErrorMessage          *string    `db:"error_message" json:"errorMessage,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"createdAt"`
	ProcessingStartedAt   *time.Time `db:"processing_started_at" json:"processingStartedAt,omitempty"`
	ProcessingCompletedAt *time.Time `db:"processing_completed_at" json:"processingCompletedAt,omitempty"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updatedAt"`
}

// DurationMinutes is derived from DurationSeconds, rounded up.
func (l *Lecture) DurationMinutes() int {
	return (l.DurationSeconds + 59) / 60
}

// IsDone reports whether the lecture reached a terminal status.
func (l *Lecture) IsDone() bool {
	return l.Status == StatusCompleted || l.Status == StatusFailed
}

// Progress maps a status to the coarse percentage/message pair exposed by the
// polling endpoint. It communicates "still working", not true progress.
func Progress(status string) (int, string) {
	switch status {
	case StatusUploaded:
		return 10, "Uploaded, waiting to be processed"
	case StatusProcessing:
		return 50, "Transcribing and generating study material"
	case StatusCompleted:
		return 100, "Done"
	case StatusFailed:
		return 0, "Processing failed"
	default:
		return 0, "Unknown"
	}
}
