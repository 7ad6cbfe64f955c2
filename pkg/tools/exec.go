package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// SafeEnvVars is the whitelist of environment variables passed to spawned
// processes. Keeps API keys and other sensitive variables out of tool runs.
var SafeEnvVars = []string{
	"PATH",
	"HOME",
	"USER",
	"SHELL",
	"TERM",
	"LANG",
	"LC_ALL",
	"TMPDIR",
	// Go toolchain
	"GOPATH",
	"GOROOT",
	"GOPROXY",
	"GOFLAGS",
	// Git identity
	"GIT_AUTHOR_NAME",
	"GIT_AUTHOR_EMAIL",
	"GIT_COMMITTER_NAME",
	"GIT_COMMITTER_EMAIL",
}

const (
	// DefaultCommandTimeout bounds command wall-clock time when the step
	// does not override it.
	DefaultCommandTimeout = 60 * time.Second

	// DefaultMaxOutputBytes caps combined output before head+tail truncation.
	DefaultMaxOutputBytes = 16384

	// killGracePeriod is how long a timed-out process group gets between
	// SIGTERM and SIGKILL.
	killGracePeriod = 2 * time.Second
)

// buildSafeEnv creates a sanitized environment for spawned processes. Only
// whitelisted variables pass through; PATH always gets a sane value.
func buildSafeEnv() []string {
	env := make([]string, 0, len(SafeEnvVars))
	hasPath := false
	for _, key := range SafeEnvVars {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
			if key == "PATH" {
				hasPath = true
			}
		}
	}
	if !hasPath {
		env = append(env, "PATH=/usr/local/bin:/usr/bin:/bin")
	}
	return env
}

// execOutcome is the raw result of a bounded process run.
type execOutcome struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
	err      error // start failures and non-exit errors
}

// runBounded executes name with args under dir, killing the whole process
// group if timeout elapses or ctx is canceled. The spawned process cannot
// outlive the call.
func runBounded(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) execOutcome {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = buildSafeEnv()
	setProcAttr(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return execOutcome{err: fmt.Errorf("failed to start command: %w", err)}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	timedOut := false
	select {
	case waitErr = <-done:
	case <-execCtx.Done():
		timedOut = true
		killProcessGroup(cmd, killGracePeriod)
		waitErr = <-done
	}

	out := execOutcome{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		timedOut: timedOut,
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			out.exitCode = exitErr.ExitCode()
		} else if !timedOut {
			out.err = waitErr
		}
	}
	return out
}

// combineOutput merges stdout and stderr the way a terminal user would read
// them, then applies head+tail truncation so errors and summaries at the end
// survive oversized output.
func combineOutput(stdoutStr, stderrStr string, maxBytes int) string {
	var output strings.Builder

	if len(stdoutStr) > 0 {
		output.WriteString(stdoutStr)
	}
	if len(stderrStr) > 0 {
		if output.Len() > 0 {
			output.WriteString("\n")
		}
		output.WriteString("STDERR:\n")
		output.WriteString(stderrStr)
	}

	result := output.String()
	if maxBytes <= 0 {
		maxBytes = DefaultMaxOutputBytes
	}
	if len(result) > maxBytes {
		headSize := maxBytes / 3
		tailSize := maxBytes - headSize
		head := result[:headSize]
		tail := result[len(result)-tailSize:]
		omitted := result[headSize : len(result)-tailSize]
		omittedLines := strings.Count(omitted, "\n")
		result = head +
			fmt.Sprintf("\n\n... [%d lines, %d chars omitted] ...\n\n", omittedLines, len(omitted)) +
			tail
	}

	if result == "" {
		result = "(no output)"
	}
	return result
}
