package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"lecturenotes/internal/models"
	"lecturenotes/internal/pipeline"
	"lecturenotes/internal/store"
	"lecturenotes/pkg/tasks"
)

// DefaultStaleAfter is how long a lecture may sit in processing before the
// reaper declares the worker dead and fails it.
const DefaultStaleAfter = 2 * time.Hour

// processor runs the lecture pipeline. Implemented by *pipeline.Orchestrator.
type processor interface {
	Process(ctx context.Context, lectureID string, ownerID int64) (*models.Lecture, error)
}

// Notifier tells the owner that a lecture finished. Best-effort.
type Notifier interface {
	NotifyCompleted(ownerID int64, lecture *models.Lecture)
}

type TaskHandler struct {
	store      store.Store
	pipeline   processor
	notifier   Notifier
	staleAfter time.Duration
}

func NewTaskHandler(s store.Store, p processor, notifier Notifier, staleAfter time.Duration) *TaskHandler {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &TaskHandler{store: s, pipeline: p, notifier: notifier, staleAfter: staleAfter}
}

// HandleProcessLectureTask runs the pipeline for one lecture.
//
// A stage failure has already been recorded on the lecture as status=failed,
// so it is returned wrapped in asynq.SkipRetry: redelivering it would regress
// a terminal status. Infrastructure errors are returned as-is so asynq's
// at-least-once redelivery doubles as crash recovery.
func (h *TaskHandler) HandleProcessLectureTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.ProcessLectureTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Processing lecture: %s", p.LectureID)

	lecture, err := h.pipeline.Process(ctx, p.LectureID, p.OwnerID)
	if errors.Is(err, pipeline.ErrJobFailed) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("process lecture %s: %w", p.LectureID, err)
	}

	if h.notifier != nil && lecture.Status == models.StatusCompleted {
		h.notifier.NotifyCompleted(p.OwnerID, lecture)
	}

	log.Printf("Successfully processed lecture: %s", p.LectureID)
	return nil
}

// HandleReapStaleTask fails lectures stuck in processing longer than the
// stale deadline. This covers workers that crashed after claiming a job but
// before the queue redelivered it.
func (h *TaskHandler) HandleReapStaleTask(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().Add(-h.staleAfter)
	reaped, err := h.store.ReapStale(cutoff)
	if err != nil {
		return fmt.Errorf("reap stale lectures: %w", err)
	}
	if reaped > 0 {
		log.Printf("Reaped %d stale lectures", reaped)
	}
	return nil
}
