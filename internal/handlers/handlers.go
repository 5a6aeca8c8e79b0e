package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"lecturenotes/internal/models"
	"lecturenotes/internal/store"
	"lecturenotes/pkg/tasks"
)

// processor runs the pipeline inline for short lectures.
// Implemented by *pipeline.Orchestrator.
type processor interface {
	Process(ctx context.Context, lectureID string, ownerID int64) (*models.Lecture, error)
}

// durationProber reports audio length in seconds (with its own fallback).
type durationProber interface {
	Duration(audioPath string) int
}

type Handlers struct {
	store                 store.Store
	files                 audioFiles
	prober                durationProber
	pipeline              processor
	asynqClient           tasks.TaskEnqueuer
	baseURL               string
	asyncThresholdSeconds int
	maxUploadBytes        int64
}

type audioFiles interface {
	SaveUpload(r io.Reader, filename string) (string, error)
	Delete(path string) error
}

func New(s store.Store, files audioFiles, prober durationProber, p processor, asynqClient tasks.TaskEnqueuer, baseURL string, asyncThresholdSeconds int, maxUploadBytes int64) *Handlers {
	return &Handlers{
		store:                 s,
		files:                 files,
		prober:                prober,
		pipeline:              p,
		asynqClient:           asynqClient,
		baseURL:               baseURL,
		asyncThresholdSeconds: asyncThresholdSeconds,
		maxUploadBytes:        maxUploadBytes,
	}
}

func currentUser(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(models.UserContextKey).(*models.User)
	return user, ok
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
