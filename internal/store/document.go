package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"lecturenotes/internal/models"
)

type documentData struct {
	Users    map[string]models.User
	Lectures map[string]models.Lecture
}

// lectureRecord is the on-disk form of a lecture. The API struct hides
// OwnerID and AudioPath from JSON responses, but the store must persist them,
// so they get explicit tags here.
type lectureRecord struct {
	models.Lecture
	OwnerID   int64  `json:"ownerId"`
	AudioPath string `json:"audioPath"`
}

func newLectureRecord(lecture models.Lecture) lectureRecord {
	return lectureRecord{
		Lecture:   lecture,
		OwnerID:   lecture.OwnerID,
		AudioPath: lecture.AudioPath,
	}
}

func (r lectureRecord) lecture() models.Lecture {
	lecture := r.Lecture
	lecture.OwnerID = r.OwnerID
	lecture.AudioPath = r.AudioPath
	return lecture
}

// documentFile is the serialized shape of the whole store.
type documentFile struct {
	Users    map[string]models.User   `json:"users"`
	Lectures map[string]lectureRecord `json:"lectures"`
}

// Document implements Store on a single JSON file with atomic-rename saves.
// It is the zero-infrastructure backend for single-node deployments.
type Document struct {
	mu   sync.RWMutex
	path string
	data documentData
}

// NewDocument opens (or creates) the document store under baseDir.
func NewDocument(baseDir string) (*Document, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	d := &Document{path: filepath.Join(baseDir, "lectures.json")}
	if err := d.load(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) load() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.data = documentData{
		Users:    map[string]models.User{},
		Lectures: map[string]models.Lecture{},
	}

	file, err := os.Open(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return d.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	var contents documentFile
	if err := json.NewDecoder(file).Decode(&contents); err != nil {
		if errors.Is(err, io.EOF) {
			return d.saveLocked()
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	if contents.Users != nil {
		d.data.Users = contents.Users
	}
	for id, record := range contents.Lectures {
		d.data.Lectures[id] = record.lecture()
	}
	return nil
}

func (d *Document) saveLocked() error {
	tmp, err := os.CreateTemp(filepath.Dir(d.path), "lectures-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}

	contents := documentFile{
		Users:    d.data.Users,
		Lectures: make(map[string]lectureRecord, len(d.data.Lectures)),
	}
	for id, lecture := range d.data.Lectures {
		contents.Lectures[id] = newLectureRecord(lecture)
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(contents); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func userKey(id int64) string { return strconv.FormatInt(id, 10) }

func (d *Document) UpsertUser(id int64, username string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().UTC()
	user, ok := d.data.Users[userKey(id)]
	if !ok {
		user = models.User{
			ID:        id,
			FeedUUID:  uuid.NewString(),
			CreatedAt: now,
		}
	}
	user.TelegramUsername = username
	user.UpdatedAt = now
	d.data.Users[userKey(id)] = user

	if err := d.saveLocked(); err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Document) GetUserByFeedUUID(feedUUID string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, user := range d.data.Users {
		if user.FeedUUID == feedUUID {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (d *Document) CreateLecture(lecture *models.Lecture) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().UTC()
	lecture.CreatedAt = now
	lecture.UpdatedAt = now
	d.data.Lectures[lecture.ID] = *lecture
	return d.saveLocked()
}

// getLocked enforces owner scoping; a mismatch is indistinguishable from a
// missing record.
func (d *Document) getLocked(id string, ownerID int64) (models.Lecture, error) {
	lecture, ok := d.data.Lectures[id]
	if !ok || lecture.OwnerID != ownerID {
		return models.Lecture{}, ErrNotFound
	}
	return lecture, nil
}

func (d *Document) GetLecture(id string, ownerID int64) (*models.Lecture, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	lecture, err := d.getLocked(id, ownerID)
	if err != nil {
		return nil, err
	}
	return &lecture, nil
}

func (d *Document) ListLectures(ownerID int64) ([]models.Lecture, error) {
	return d.list(ownerID, false)
}

func (d *Document) ListCompletedLectures(ownerID int64) ([]models.Lecture, error) {
	return d.list(ownerID, true)
}

func (d *Document) list(ownerID int64, completedOnly bool) ([]models.Lecture, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	lectures := make([]models.Lecture, 0)
	for _, lecture := range d.data.Lectures {
		if lecture.OwnerID != ownerID {
			continue
		}
		if completedOnly && lecture.Status != models.StatusCompleted {
			continue
		}
		lectures = append(lectures, lecture)
	}
	sort.Slice(lectures, func(i, j int) bool {
		return lectures[i].CreatedAt.After(lectures[j].CreatedAt)
	})
	return lectures, nil
}

func (d *Document) UpdateTitle(id string, ownerID int64, title string) (*models.Lecture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	lecture, err := d.getLocked(id, ownerID)
	if err != nil {
		return nil, err
	}

	lecture.Title = title
	lecture.UpdatedAt = time.Now().UTC()
	d.data.Lectures[id] = lecture

	if err := d.saveLocked(); err != nil {
		return nil, err
	}
	return &lecture, nil
}

func (d *Document) DeleteLecture(id string, ownerID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.getLocked(id, ownerID); err != nil {
		return err
	}
	delete(d.data.Lectures, id)
	return d.saveLocked()
}

func (d *Document) ClaimProcessing(id string, ownerID int64) (*models.Lecture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	lecture, err := d.getLocked(id, ownerID)
	if err != nil {
		return nil, err
	}
	if lecture.Status != models.StatusUploaded && lecture.Status != models.StatusProcessing {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	lecture.Status = models.StatusProcessing
	if lecture.ProcessingStartedAt == nil {
		lecture.ProcessingStartedAt = &now
	}
	lecture.ErrorMessage = nil
	lecture.UpdatedAt = now
	d.data.Lectures[id] = lecture

	if err := d.saveLocked(); err != nil {
		return nil, err
	}
	return &lecture, nil
}

func (d *Document) MarkCompleted(id string, ownerID int64, artifacts Artifacts) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	lecture, err := d.getLocked(id, ownerID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	lecture.Status = models.StatusCompleted
	lecture.RawTranscript = &artifacts.RawTranscript
	lecture.FilteredTranscript = &artifacts.FilteredTranscript
	lecture.Summary = &artifacts.Summary
	lecture.Notes = &artifacts.Notes
	lecture.QnA = &artifacts.QnA
	lecture.ErrorMessage = nil
	lecture.ProcessingCompletedAt = &now
	lecture.UpdatedAt = now
	d.data.Lectures[id] = lecture

	return d.saveLocked()
}

func (d *Document) MarkFailed(id string, ownerID int64, errorMessage string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	lecture, err := d.getLocked(id, ownerID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	lecture.Status = models.StatusFailed
	lecture.ErrorMessage = &errorMessage
	lecture.ProcessingCompletedAt = &now
	lecture.UpdatedAt = now
	d.data.Lectures[id] = lecture

	return d.saveLocked()
}

func (d *Document) ReapStale(cutoff time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var reaped int64
	now := time.Now().UTC()
	msg := "processing timed out"
	for id, lecture := range d.data.Lectures {
		if lecture.Status != models.StatusProcessing {
			continue
		}
		if lecture.ProcessingStartedAt == nil || !lecture.ProcessingStartedAt.Before(cutoff) {
			continue
		}
		lecture.Status = models.StatusFailed
		lecture.ErrorMessage = &msg
		lecture.ProcessingCompletedAt = &now
		lecture.UpdatedAt = now
		d.data.Lectures[id] = lecture
		reaped++
	}

	if reaped == 0 {
		return 0, nil
	}
	return reaped, d.saveLocked()
}
