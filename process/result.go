package process

import (
	"strings"
	"time"
)

// maxStderrDetail bounds how much stderr is attached to an error.
const maxStderrDetail = 512

// Result holds the output and status of a completed subprocess.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is the process exit code. -1 if the process was killed.
	ExitCode int
	Duration time.Duration
}

// StderrTail returns the last part of stderr, trimmed, for error details.
func (r *Result) StderrTail() string {
	if r == nil {
		return ""
	}
	s := strings.TrimSpace(string(r.Stderr))
	if len(s) > maxStderrDetail {
		s = s[len(s)-maxStderrDetail:]
	}
	return s
}
