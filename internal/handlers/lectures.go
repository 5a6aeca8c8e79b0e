package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"lecturenotes/internal/models"
	"lecturenotes/internal/store"
	"lecturenotes/pkg/tasks"
)

// UploadLecture accepts a multipart "audio" file, probes its duration and
// picks the processing strategy: short audio is processed synchronously and
// the completed record returned; long audio gets a background task and an
// immediate 202 with the lecture id.
func (h *Handlers) UploadLecture(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "User not found in context")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Audio file is required")
		return
	}
	defer file.Close()

	audioPath, err := h.files.SaveUpload(file, header.Filename)
	if err != nil {
		log.Printf("Error saving upload: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to store audio")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}
	if title == "" {
		title = "Untitled lecture"
	}

	lecture := &models.Lecture{
		ID:              uuid.NewString(),
		OwnerID:         user.ID,
		Title:           title,
		AudioPath:       audioPath,
		DurationSeconds: h.prober.Duration(audioPath),
		Status:          models.StatusUploaded,
	}
	if err := h.store.CreateLecture(lecture); err != nil {
		log.Printf("Error creating lecture: %v", err)
		_ = h.files.Delete(audioPath)
		respondError(w, http.StatusInternalServerError, "Failed to create lecture")
		return
	}

	if lecture.DurationSeconds > h.asyncThresholdSeconds {
		h.enqueueProcessing(w, lecture)
		return
	}

	processed, err := h.pipeline.Process(r.Context(), lecture.ID, user.ID)
	if err != nil {
		log.Printf("Error processing lecture %s: %v", lecture.ID, err)
		respondError(w, http.StatusInternalServerError, "Lecture processing failed")
		return
	}
	respondJSON(w, http.StatusOK, processed)
}

func (h *Handlers) enqueueProcessing(w http.ResponseWriter, lecture *models.Lecture) {
	task, err := tasks.NewProcessLectureTask(lecture.ID, lecture.OwnerID)
	if err != nil {
		log.Printf("Error creating process task: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to schedule processing")
		return
	}
	if _, err := h.asynqClient.Enqueue(task); err != nil {
		log.Printf("Error enqueuing process task: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to schedule processing")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"id":               lecture.ID,
		"status":           lecture.Status,
		"estimatedSeconds": estimateProcessingSeconds(lecture.DurationSeconds),
	})
}

// estimateProcessingSeconds is a rough "come back in" hint for the client.
func estimateProcessingSeconds(durationSeconds int) int {
	estimate := durationSeconds / 5
	if estimate < 60 {
		estimate = 60
	}
	return estimate
}

func (h *Handlers) GetLecture(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "User not found in context")
		return
	}

	lecture, err := h.store.GetLecture(mux.Vars(r)["id"], user.ID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Lecture not found")
		return
	}
	if err != nil {
		log.Printf("Error getting lecture: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, lecture)
}

func (h *Handlers) ListLectures(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "User not found in context")
		return
	}

	lectures, err := h.store.ListLectures(user.ID)
	if err != nil {
		log.Printf("Error listing lectures: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, lectures)
}

func (h *Handlers) RenameLecture(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "User not found in context")
		return
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Title) == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}

	lecture, err := h.store.UpdateTitle(mux.Vars(r)["id"], user.ID, strings.TrimSpace(body.Title))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Lecture not found")
		return
	}
	if err != nil {
		log.Printf("Error renaming lecture: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, lecture)
}

func (h *Handlers) DeleteLecture(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "User not found in context")
		return
	}

	id := mux.Vars(r)["id"]
	lecture, err := h.store.GetLecture(id, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Lecture not found")
		return
	}
	if err != nil {
		log.Printf("Error getting lecture: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.store.DeleteLecture(id, user.ID); err != nil {
		log.Printf("Error deleting lecture: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Audio normally disappears at the end of processing; this covers
	// lectures deleted before a worker picked them up.
	if err := h.files.Delete(lecture.AudioPath); err != nil {
		log.Printf("Error deleting audio for lecture %s: %v", id, err)
	}

	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	Status                string     `json:"status"`
	ProgressPercentage    int        `json:"progressPercentage"`
	ProgressMessage       string     `json:"progressMessage"`
	CreatedAt             time.Time  `json:"createdAt"`
	ProcessingStartedAt   *time.Time `json:"processingStartedAt,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processingCompletedAt,omitempty"`
	ErrorMessage          *string    `json:"errorMessage,omitempty"`
}

// GetStatus is the polling endpoint for background jobs. Percentage and
// message derive purely from the status via a fixed mapping.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "User not found in context")
		return
	}

	lecture, err := h.store.GetLecture(mux.Vars(r)["id"], user.ID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Lecture not found")
		return
	}
	if err != nil {
		log.Printf("Error getting lecture status: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	percentage, message := models.Progress(lecture.Status)
	respondJSON(w, http.StatusOK, statusResponse{
		Status:                lecture.Status,
		ProgressPercentage:    percentage,
		ProgressMessage:       message,
		CreatedAt:             lecture.CreatedAt,
		ProcessingStartedAt:   lecture.ProcessingStartedAt,
		ProcessingCompletedAt: lecture.ProcessingCompletedAt,
		ErrorMessage:          lecture.ErrorMessage,
	})
}
