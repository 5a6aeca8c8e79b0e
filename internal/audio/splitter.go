package audio

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Chunk is one time-bounded slice of the source audio. A chunk whose
// extraction failed keeps an empty Path and later contributes an empty
// transcript instead of sinking the whole lecture.
type Chunk struct {
	Index           int
	StartSeconds    int
	DurationSeconds int
	Path            string
}

// DefaultChunkWindowSeconds is the fixed segment length for long recordings.
const DefaultChunkWindowSeconds = 600

// Splitter slices long audio into fixed-length segments with ffmpeg.
type Splitter struct {
	ffmpegPath    string
	windowSeconds int
	maxParallel   int
}

func NewSplitter(ffmpegPath string, windowSeconds, maxParallel int) *Splitter {
	if windowSeconds <= 0 {
		windowSeconds = DefaultChunkWindowSeconds
	}
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Splitter{
		ffmpegPath:    ffmpegPath,
		windowSeconds: windowSeconds,
		maxParallel:   maxParallel,
	}
}

// WindowSeconds returns the configured segment length.
func (s *Splitter) WindowSeconds() int {
	return s.windowSeconds
}

// Split extracts ceil(duration/window) segments into chunkDir, concurrently
// but bounded. Extraction failures are logged and leave the chunk's Path
// empty; the returned slice is always ordered by index and always has
// ceil(duration/window) entries.
func (s *Splitter) Split(ctx context.Context, audioPath, chunkDir string, durationSeconds int) []Chunk {
	total := (durationSeconds + s.windowSeconds - 1) / s.windowSeconds
	if total < 1 {
		total = 1
	}

	chunks := make([]Chunk, total)
	for i := range chunks {
		start := i * s.windowSeconds
		window := s.windowSeconds
		if start+window > durationSeconds {
			window = durationSeconds - start
		}
		chunks[i] = Chunk{Index: i, StartSeconds: start, DurationSeconds: window}
	}

	sem := make(chan struct{}, s.maxParallel)
	g, ctx := errgroup.WithContext(ctx)

	for i := range chunks {
		i := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			defer func() { <-sem }()

			chunkPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%03d.ogg", i))
			if err := s.extract(ctx, audioPath, chunkPath, chunks[i].StartSeconds); err != nil {
				log.Printf("chunk %d extraction failed: %v", i, err)
				return nil
			}
			chunks[i].Path = chunkPath
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures leave Path empty

	return chunks
}

// extract re-encodes one window to mono 16kHz OGG, which keeps segments small
// and is what speech models expect.
func (s *Splitter) extract(ctx context.Context, audioPath, chunkPath string, startSeconds int) error {
	args := []string{
		"-y",
		"-i", audioPath,
		"-ss", fmt.Sprintf("%d", startSeconds),
		"-t", fmt.Sprintf("%d", s.windowSeconds),
		"-c:a", "libvorbis",
		"-ar", "16000",
		"-ac", "1",
		chunkPath,
	}

	cmd := execCommandContext(ctx, s.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, string(output))
	}
	return nil
}
