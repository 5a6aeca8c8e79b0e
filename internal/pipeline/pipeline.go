package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"lecturenotes/internal/ai"
	"lecturenotes/internal/audio"
	"lecturenotes/internal/models"
	"lecturenotes/internal/store"
)

// ErrJobFailed wraps any stage error that has already been recorded on the
// lecture as status=failed. Callers must not retry these: a retry would
// regress a terminal status.
var ErrJobFailed = errors.New("lecture processing failed")

// MaxFilteredWords bounds the text handed to the generators. Content past the
// budget is dropped; this trades completeness for bounded downstream cost.
const MaxFilteredWords = 2000

const defaultMaxParallel = 4

type fileStore interface {
	ChunkDir(lectureID string) (string, error)
	Delete(path string) error
	RemoveChunkDir(lectureID string) error
}

type chunkSplitter interface {
	Split(ctx context.Context, audioPath, chunkDir string, durationSeconds int) []audio.Chunk
	WindowSeconds() int
}

// Orchestrator drives one lecture from raw audio to finished artifacts and
// keeps the persisted status in lock-step with actual progress.
type Orchestrator struct {
	store       store.Store
	files       fileStore
	splitter    chunkSplitter // nil when ffmpeg is unavailable
	transcriber ai.Transcriber
	generator   ai.Generator
	maxParallel int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxParallel caps concurrent chunk transcriptions.
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.maxParallel = n
		}
	}
}

// WithSplitter enables chunked transcription for long audio. Without a
// splitter every lecture is transcribed as a single file.
func WithSplitter(s chunkSplitter) Option {
	return func(o *Orchestrator) {
		o.splitter = s
	}
}

func NewOrchestrator(s store.Store, files fileStore, transcriber ai.Transcriber, generator ai.Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       s,
		files:       files,
		transcriber: transcriber,
		generator:   generator,
		maxParallel: defaultMaxParallel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs the full pipeline for one lecture:
// claim -> transcribe (chunked for long audio) -> filter -> truncate ->
// generate summary/notes/qna in parallel -> persist -> cleanup.
//
// Stage failures are written to the lecture as status=failed and returned
// wrapped in ErrJobFailed. Infrastructure failures before or after the
// compute stages are returned as plain errors so the queue may redeliver.
// Audio and chunk files are removed whatever the outcome.
func (o *Orchestrator) Process(ctx context.Context, lectureID string, ownerID int64) (*models.Lecture, error) {
	lecture, err := o.store.GetLecture(lectureID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load lecture %s: %w", lectureID, err)
	}
	if lecture.IsDone() {
		// Redelivered task for a finished job; nothing to do.
		return lecture, nil
	}

	lecture, err = o.store.ClaimProcessing(lectureID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("claim lecture %s: %w", lectureID, err)
	}

	defer o.cleanup(lecture)

	artifacts, stageErr := o.run(ctx, lecture)
	if stageErr != nil {
		log.Printf("lecture %s failed: %v", lectureID, stageErr)
		if err := o.store.MarkFailed(lectureID, ownerID, stageErr.Error()); err != nil {
			log.Printf("could not record failure for lecture %s: %v", lectureID, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrJobFailed, stageErr)
	}

	if err := o.store.MarkCompleted(lectureID, ownerID, artifacts); err != nil {
		// The computed artifacts are lost and the lecture stays at
		// status=processing until a redelivery or the reaper picks it up.
		return nil, fmt.Errorf("persist lecture %s: %w", lectureID, err)
	}

	return o.store.GetLecture(lectureID, ownerID)
}

// run executes the compute stages. Any returned error fails the whole job.
func (o *Orchestrator) run(ctx context.Context, lecture *models.Lecture) (store.Artifacts, error) {
	raw, err := o.transcribe(ctx, lecture)
	if err != nil {
		return store.Artifacts{}, fmt.Errorf("transcribe: %w", err)
	}

	filtered, err := o.generator.Filter(ctx, raw)
	if err != nil {
		return store.Artifacts{}, fmt.Errorf("filter transcript: %w", err)
	}

	truncated := TruncateWords(filtered, MaxFilteredWords)

	artifacts := store.Artifacts{
		RawTranscript:      raw,
		FilteredTranscript: filtered,
	}

	// Summary, notes and Q&A are independent transforms of the same text.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := o.generator.Summary(gctx, truncated)
		if err != nil {
			return fmt.Errorf("generate summary: %w", err)
		}
		artifacts.Summary = summary
		return nil
	})
	g.Go(func() error {
		notes, err := o.generator.Notes(gctx, truncated)
		if err != nil {
			return fmt.Errorf("generate notes: %w", err)
		}
		artifacts.Notes = notes
		return nil
	})
	g.Go(func() error {
		qna, err := o.generator.QnA(gctx, truncated)
		if err != nil {
			return fmt.Errorf("generate qna: %w", err)
		}
		artifacts.QnA = qna
		return nil
	})
	if err := g.Wait(); err != nil {
		return store.Artifacts{}, err
	}

	return artifacts, nil
}

// transcribe picks single-file or chunked transcription. Audio longer than
// one chunk window is split; anything else (and everything, when no splitter
// is configured) goes through one transcription call whose failure fails the
// job.
func (o *Orchestrator) transcribe(ctx context.Context, lecture *models.Lecture) (string, error) {
	if o.splitter == nil || lecture.DurationSeconds <= o.splitter.WindowSeconds() {
		return o.transcriber.Transcribe(ctx, lecture.AudioPath)
	}

	chunkDir, err := o.files.ChunkDir(lecture.ID)
	if err != nil {
		return "", err
	}

	chunks := o.splitter.Split(ctx, lecture.AudioPath, chunkDir, lecture.DurationSeconds)
	texts, err := o.transcribeChunks(ctx, chunks)
	if err != nil {
		return "", err
	}
	return Reassemble(chunks, texts), nil
}

// transcribeChunks transcribes all chunks concurrently, bounded by
// maxParallel. A chunk that failed to split or to transcribe contributes an
// empty string; one bad chunk must not sink the whole lecture.
func (o *Orchestrator) transcribeChunks(ctx context.Context, chunks []audio.Chunk) ([]string, error) {
	texts := make([]string, len(chunks))
	sem := make(chan struct{}, o.maxParallel)
	g, gctx := errgroup.WithContext(ctx)

	for i, chunk := range chunks {
		if chunk.Path == "" {
			continue
		}
		i, chunk := i, chunk
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			text, err := o.transcriber.Transcribe(gctx, chunk.Path)
			if err != nil {
				log.Printf("chunk %d transcription failed: %v", chunk.Index, err)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}

// cleanup discards the original audio and the chunk directory. Failures are
// logged only; cleanup is best-effort and never affects the job outcome.
func (o *Orchestrator) cleanup(lecture *models.Lecture) {
	if err := o.files.Delete(lecture.AudioPath); err != nil {
		log.Printf("could not delete audio for lecture %s: %v", lecture.ID, err)
	}
	if err := o.files.RemoveChunkDir(lecture.ID); err != nil {
		log.Printf("could not delete chunk dir for lecture %s: %v", lecture.ID, err)
	}
}
