package audio

import (
	"fmt"
	"log"
	"os/exec"
	"regexp"
	"strconv"
)

var (
	execCommand        = exec.Command
	execCommandContext = exec.CommandContext
)

// FallbackDurationSeconds is reported when the probe fails. Duration only
// drives strategy selection, so a wrong guess degrades scheduling, not
// correctness.
const FallbackDurationSeconds = 300

// Prober reads a clip's length in seconds using ffmpeg. An empty ffmpegPath
// means the binary was not found at startup and every probe falls back.
type Prober struct {
	ffmpegPath string
}

func NewProber(ffmpegPath string) *Prober {
	return &Prober{ffmpegPath: ffmpegPath}
}

// Duration returns the audio length in whole seconds, or the fallback on any
// probe failure.
func (p *Prober) Duration(audioPath string) int {
	if p.ffmpegPath == "" {
		return FallbackDurationSeconds
	}

	// ffmpeg exits non-zero without an output file but still prints the
	// Duration line to stderr, so parse regardless of the exit code.
	cmd := execCommand(p.ffmpegPath, "-i", audioPath, "-f", "null", "-")
	output, err := cmd.CombinedOutput()
	if err != nil && len(output) == 0 {
		log.Printf("duration probe failed for %s: %v", audioPath, err)
		return FallbackDurationSeconds
	}

	seconds, err := parseDurationSeconds(string(output))
	if err != nil {
		log.Printf("duration probe failed for %s: %v", audioPath, err)
		return FallbackDurationSeconds
	}
	return seconds
}

var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)(?:\.(\d+))?`)

// parseDurationSeconds extracts "Duration: HH:MM:SS.cs" from ffmpeg stderr.
func parseDurationSeconds(output string) (int, error) {
	matches := durationRe.FindStringSubmatch(output)
	if matches == nil {
		return 0, fmt.Errorf("no duration in ffmpeg output")
	}

	h, _ := strconv.Atoi(matches[1])
	m, _ := strconv.Atoi(matches[2])
	s, _ := strconv.Atoi(matches[3])
	seconds := h*3600 + m*60 + s

	// Round up so a clip of 10:00.5 is treated as longer than one window.
	if matches[4] != "" {
		if frac, _ := strconv.Atoi(matches[4]); frac > 0 {
			seconds++
		}
	}
	return seconds, nil
}
