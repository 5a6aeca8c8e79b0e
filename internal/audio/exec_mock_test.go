package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// fakeExecCommand re-runs the test binary as a stand-in for ffmpeg. The helper
// process reads its behavior from FFMPEG_MOCK_* env vars set by the test.
func fakeExecCommand(command string, args ...string) *exec.Cmd {
	cs := append([]string{"-test.run=TestHelperProcess", "--", command}, args...)
	cmd := exec.Command(os.Args[0], cs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	return cmd
}

func fakeExecCommandContext(ctx context.Context, command string, args ...string) *exec.Cmd {
	return fakeExecCommand(command, args...)
}

// swapExec installs the fake exec functions for one test.
func swapExec(t *testing.T) {
	t.Helper()
	origCommand := execCommand
	origContext := execCommandContext
	execCommand = fakeExecCommand
	execCommandContext = fakeExecCommandContext
	t.Cleanup(func() {
		execCommand = origCommand
		execCommandContext = origContext
	})
}

// TestHelperProcess is not a real test; it plays ffmpeg for the tests above.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}

	if stderr := os.Getenv("FFMPEG_MOCK_STDERR"); stderr != "" {
		fmt.Fprint(os.Stderr, stderr)
	}

	// Simulate a failing extraction for one specific output file.
	if suffix := os.Getenv("FFMPEG_MOCK_FAIL_SUFFIX"); suffix != "" && len(args) > 0 {
		if strings.HasSuffix(args[len(args)-1], suffix) {
			os.Exit(1)
		}
	}

	if os.Getenv("FFMPEG_MOCK_EXIT_CODE") == "1" {
		os.Exit(1)
	}
	os.Exit(0)
}
