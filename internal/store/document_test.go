package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturenotes/internal/models"
)

func newDocument(t *testing.T) (*Document, string) {
	t.Helper()
	dir := t.TempDir()
	d, err := NewDocument(dir)
	require.NoError(t, err)
	return d, dir
}

func seedLecture(t *testing.T, d *Document, id string, ownerID int64) *models.Lecture {
	t.Helper()
	lecture := &models.Lecture{
		ID:              id,
		OwnerID:         ownerID,
		Title:           "Linear Algebra",
		AudioPath:       "/data/audio/" + id + ".webm",
		DurationSeconds: 900,
		Status:          models.StatusUploaded,
	}
	require.NoError(t, d.CreateLecture(lecture))
	return lecture
}

func TestDocumentUpsertUserAssignsFeedUUIDOnce(t *testing.T) {
	d, _ := newDocument(t)

	first, err := d.UpsertUser(7, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, first.FeedUUID)
	assert.Equal(t, "alice", first.TelegramUsername)

	second, err := d.UpsertUser(7, "alice_renamed")
	require.NoError(t, err)
	assert.Equal(t, first.FeedUUID, second.FeedUUID)
	assert.Equal(t, "alice_renamed", second.TelegramUsername)
}

func TestDocumentGetUserByFeedUUID(t *testing.T) {
	d, _ := newDocument(t)

	user, err := d.UpsertUser(7, "alice")
	require.NoError(t, err)

	found, err := d.GetUserByFeedUUID(user.FeedUUID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), found.ID)

	_, err = d.GetUserByFeedUUID("not-a-feed")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDocumentOwnerScoping(t *testing.T) {
	d, _ := newDocument(t)
	lecture := seedLecture(t, d, "lec-1", 7)

	// The owner sees the lecture; everyone else gets not-found.
	_, err := d.GetLecture(lecture.ID, 7)
	require.NoError(t, err)

	_, err = d.GetLecture(lecture.ID, 8)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = d.UpdateTitle(lecture.ID, 8, "hijacked")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = d.DeleteLecture(lecture.ID, 8)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = d.MarkFailed(lecture.ID, 8, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	// Still intact for the real owner.
	got, err := d.GetLecture(lecture.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", got.Title)
	assert.Equal(t, models.StatusUploaded, got.Status)
}

func TestDocumentListIsOwnerScopedAndNewestFirst(t *testing.T) {
	d, _ := newDocument(t)
	seedLecture(t, d, "lec-old", 7)
	time.Sleep(5 * time.Millisecond)
	seedLecture(t, d, "lec-new", 7)
	seedLecture(t, d, "lec-other", 8)

	lectures, err := d.ListLectures(7)
	require.NoError(t, err)
	require.Len(t, lectures, 2)
	assert.Equal(t, "lec-new", lectures[0].ID)
	assert.Equal(t, "lec-old", lectures[1].ID)
}

func TestDocumentListCompletedLectures(t *testing.T) {
	d, _ := newDocument(t)
	seedLecture(t, d, "lec-1", 7)
	done := seedLecture(t, d, "lec-2", 7)

	_, err := d.ClaimProcessing(done.ID, 7)
	require.NoError(t, err)
	require.NoError(t, d.MarkCompleted(done.ID, 7, Artifacts{Summary: "s"}))

	lectures, err := d.ListCompletedLectures(7)
	require.NoError(t, err)
	require.Len(t, lectures, 1)
	assert.Equal(t, "lec-2", lectures[0].ID)
}

func TestDocumentStatusTransitions(t *testing.T) {
	d, _ := newDocument(t)
	lecture := seedLecture(t, d, "lec-1", 7)

	claimed, err := d.ClaimProcessing(lecture.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, claimed.Status)
	require.NotNil(t, claimed.ProcessingStartedAt)
	startedAt := *claimed.ProcessingStartedAt

	// Re-claim after a redelivery keeps the original start time.
	reclaimed, err := d.ClaimProcessing(lecture.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, reclaimed.Status)
	assert.True(t, reclaimed.ProcessingStartedAt.Equal(startedAt))

	require.NoError(t, d.MarkCompleted(lecture.ID, 7, Artifacts{
		RawTranscript:      "raw",
		FilteredTranscript: "filtered",
		Summary:            "summary",
		Notes:              "notes",
		QnA:                "qna",
	}))

	got, err := d.GetLecture(lecture.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "raw", *got.RawTranscript)
	assert.Equal(t, "qna", *got.QnA)
	assert.NotNil(t, got.ProcessingCompletedAt)
	assert.Nil(t, got.ErrorMessage)

	// Terminal lectures cannot be claimed again.
	_, err = d.ClaimProcessing(lecture.ID, 7)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDocumentMarkFailed(t *testing.T) {
	d, _ := newDocument(t)
	lecture := seedLecture(t, d, "lec-1", 7)

	require.NoError(t, d.MarkFailed(lecture.ID, 7, "transcription exploded"))

	got, err := d.GetLecture(lecture.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "transcription exploded", *got.ErrorMessage)
	assert.Nil(t, got.Summary)
}

func TestDocumentSurvivesReopen(t *testing.T) {
	d, dir := newDocument(t)
	lecture := seedLecture(t, d, "lec-1", 7)
	_, err := d.UpsertUser(7, "alice")
	require.NoError(t, err)

	reopened, err := NewDocument(dir)
	require.NoError(t, err)

	// The owner id and audio path are hidden from API JSON but must survive
	// the save/load round trip, or owner scoping breaks on restart.
	got, err := reopened.GetLecture(lecture.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, lecture.Title, got.Title)
	assert.Equal(t, int64(7), got.OwnerID)
	assert.Equal(t, lecture.AudioPath, got.AudioPath)

	_, err = reopened.GetLecture(lecture.ID, 8)
	assert.True(t, errors.Is(err, ErrNotFound))

	lectures, err := reopened.ListLectures(7)
	require.NoError(t, err)
	assert.Len(t, lectures, 1)

	user, err := reopened.UpsertUser(7, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, user.FeedUUID)
}

func TestDocumentReapStale(t *testing.T) {
	d, _ := newDocument(t)
	stale := seedLecture(t, d, "lec-stale", 7)
	fresh := seedLecture(t, d, "lec-fresh", 7)

	_, err := d.ClaimProcessing(stale.ID, 7)
	require.NoError(t, err)
	_, err = d.ClaimProcessing(fresh.ID, 7)
	require.NoError(t, err)

	// Cutoff in the future: both claims started before it, both are stale.
	// First check a cutoff in the past reaps nothing.
	reaped, err := d.ReapStale(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), reaped)

	reaped, err = d.ReapStale(time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), reaped)

	got, err := d.GetLecture(stale.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "processing timed out", *got.ErrorMessage)
}
