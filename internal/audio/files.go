package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Files stores uploaded audio and transient chunk files on disk. Each lecture
// gets its own chunk directory so concurrent jobs never collide.
type Files struct {
	audioDir  string
	chunksDir string
}

// NewFiles creates the storage directories under baseDir.
func NewFiles(baseDir string) (*Files, error) {
	f := &Files{
		audioDir:  filepath.Join(baseDir, "audio"),
		chunksDir: filepath.Join(baseDir, "chunks"),
	}
	for _, dir := range []string{f.audioDir, f.chunksDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return f, nil
}

// SaveUpload writes an uploaded audio stream to disk under a fresh UUID name,
// keeping the original extension so ffmpeg and the transcription API can
// detect the container format.
func (f *Files) SaveUpload(r io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".webm"
	}

	path := filepath.Join(f.audioDir, uuid.NewString()+ext)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("write audio file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close audio file: %w", err)
	}
	return path, nil
}

// ChunkDir returns the chunk directory for one lecture, creating it if needed.
func (f *Files) ChunkDir(lectureID string) (string, error) {
	dir := filepath.Join(f.chunksDir, lectureID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chunk dir: %w", err)
	}
	return dir, nil
}

// Delete removes a stored file. Missing files are not an error.
func (f *Files) Delete(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveChunkDir deletes a lecture's chunk directory and everything in it.
func (f *Files) RemoveChunkDir(lectureID string) error {
	if lectureID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(f.chunksDir, lectureID))
}
