package extract

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
)

// Runner abstracts command execution for testability.
type Runner interface {
	// Run executes name in dir and returns its raw stdout and trimmed stderr.
	Run(ctx context.Context, dir, name string, args ...string) (stdout []byte, stderr string, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), strings.TrimSpace(stderr.String()), err
}

// MockRunner returns canned output and records every invocation.
type MockRunner struct {
	mu     sync.Mutex
	Stdout string
	Stderr string
	Err    error
	Calls  [][]string
}

// Run implements Runner.
func (m *MockRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, append([]string{dir, name}, args...))
	return []byte(m.Stdout), m.Stderr, m.Err
}
