// Package projects tracks indexed projects and runs their indexing in the
// background.
package projects

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"codefacts/internal/ingest"
)

// Status is the indexing state of a project.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusIndexing  Status = "indexing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// maxErrors caps the error list kept per project.
const maxErrors = 100

// Project is one registered project.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	StorePath string `json:"storePath"`

	Status   Status   `json:"status"`
	Progress int      `json:"progress"` // 0-100
	Message  string   `json:"message,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	RunID    string   `json:"runId,omitempty"`
	Source   string   `json:"source,omitempty"`

	CreatedAt   time.Time    `json:"createdAt"`
	StartedAt   *time.Time   `json:"startedAt,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	Stats       ingest.Stats `json:"stats"`
}

// IsTerminal reports whether indexing has finished.
func (p *Project) IsTerminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusFailed
}

// Duration returns how long indexing took, or has been running.
func (p *Project) Duration() time.Duration {
	if p.StartedAt == nil {
		return 0
	}
	end := time.Now().UTC()
	if p.CompletedAt != nil {
		end = *p.CompletedAt
	}
	return end.Sub(*p.StartedAt)
}

func (p *Project) markIndexing(runID string) {
	now := time.Now().UTC()
	p.Status = StatusIndexing
	p.RunID = runID
	p.StartedAt = &now
	p.Message = "indexing"
}

func (p *Project) markCompleted(stats ingest.Stats) {
	now := time.Now().UTC()
	p.Status = StatusCompleted
	p.Progress = 100
	p.CompletedAt = &now
	p.Stats = stats
	p.Message = "indexing completed"
}

func (p *Project) markFailed(err error) {
	now := time.Now().UTC()
	p.Status = StatusFailed
	p.CompletedAt = &now
	p.Message = "indexing failed"
	if err != nil {
		p.addError(err.Error())
	}
}

func (p *Project) setProgress(progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	p.Progress = progress
}

func (p *Project) addError(msg string) {
	if len(p.Errors) < maxErrors {
		p.Errors = append(p.Errors, msg)
	}
}

func (p *Project) clone() *Project {
	c := *p
	c.Errors = append([]string(nil), p.Errors...)
	if p.StartedAt != nil {
		t := *p.StartedAt
		c.StartedAt = &t
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

var drivePath = regexp.MustCompile(`^[a-z]:/`)

// NormalizePath returns the comparison form of a project path: absolute,
// forward slashes, lower case, no trailing slash. Windows drive paths are
// recognized on every platform so ids are stable across hosts.
func NormalizePath(p string) (string, error) {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(p), `\`, "/"))
	if !strings.HasPrefix(s, "/") && !drivePath.MatchString(s) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		s = strings.ToLower(filepath.ToSlash(abs))
	}
	s = path.Clean(s)
	if drivePath.MatchString(s+"/") && len(s) == 2 {
		s += "/"
	}
	return s, nil
}

// ID derives the project id from a path. Equivalent paths share an id.
func ID(p string) (string, error) {
	norm, err := NormalizePath(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:12]), nil
}

// absPath is the path handed to the extractor: absolute and cleaned, with
// its original case.
func absPath(p string) (string, error) {
	if drivePath.MatchString(strings.ToLower(strings.ReplaceAll(p, `\`, "/"))) {
		return p, nil
	}
	return filepath.Abs(p)
}
