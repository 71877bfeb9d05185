package consistency

import (
	"context"
	"log/slog"
	"strings"

	"codefacts/internal/diff"
	cferrors "codefacts/internal/errors"
	"codefacts/internal/extract"
	"codefacts/internal/facts"
	"codefacts/internal/factstore"
	"codefacts/internal/projects"
	"codefacts/internal/slogutil"
	"codefacts/internal/storage"
)

// Projects is the part of the registry the service needs.
type Projects interface {
	GetStatus(id string) (*projects.Project, error)
	Store(id string) (storage.DocumentStore, error)
	Plan(projectPath string) (*extract.Plan, error)
}

// GroundTruth is a fresh, validated extraction of a project.
type GroundTruth struct {
	Facts []facts.Fact
	// Invalid counts extracted records that failed validation. They can
	// never match a stored fact.
	Invalid int
	Source  string
}

// AccuracyReport compares a project's stored facts with ground truth.
type AccuracyReport struct {
	ProjectID string `json:"projectId"`
	diff.Report
	GroundTruthInvalid int    `json:"groundTruthInvalid"`
	Skipped            int    `json:"skipped"`
	Source             string `json:"source"`
}

// Service runs accuracy and cleanup against registered projects, pulling
// ground truth from the project's extractor on every call.
type Service struct {
	projects   Projects
	reader     *factstore.Reader
	maintainer *Maintainer
	validator  *facts.Validator
	logger     *slog.Logger
}

// NewService creates a service.
func NewService(p Projects, reader *factstore.Reader, logger *slog.Logger) *Service {
	logger = slogutil.OrDiscard(logger)
	return &Service{
		projects:   p,
		reader:     reader,
		maintainer: NewMaintainer(reader, logger),
		validator:  facts.NewValidator(),
		logger:     logger,
	}
}

// GroundTruth extracts and validates the facts of the source at projectPath.
func (s *Service) GroundTruth(ctx context.Context, projectPath string) (*GroundTruth, error) {
	plan, err := s.projects.Plan(projectPath)
	if err != nil {
		return nil, err
	}
	recs, err := plan.Extractor.Extract(ctx, extract.Request{ProjectPath: projectPath, Options: plan.Options})
	if err != nil {
		return nil, err
	}
	valid, failures := s.validator.ValidateBatch(recs)
	if len(failures) > 0 {
		s.logger.Warn("Ground truth contains invalid records", "path", projectPath, "invalid", len(failures))
	}
	return &GroundTruth{Facts: valid, Invalid: len(failures), Source: plan.Source}, nil
}

func (s *Service) open(ctx context.Context, projectID string) (*projects.Project, storage.DocumentStore, *GroundTruth, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, nil, nil, cferrors.Invalid("project id is required")
	}
	p, err := s.projects.GetStatus(projectID)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := s.projects.Store(projectID)
	if err != nil {
		return nil, nil, nil, err
	}
	gt, err := s.GroundTruth(ctx, p.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, store, gt, nil
}

// CompareAgainstGroundTruth scores the stored facts of a project against a
// fresh extraction.
func (s *Service) CompareAgainstGroundTruth(ctx context.Context, projectID string) (*AccuracyReport, error) {
	_, store, gt, err := s.open(ctx, projectID)
	if err != nil {
		return nil, err
	}
	snap, err := s.reader.Load(ctx, store)
	if err != nil {
		return nil, err
	}
	stored := make([]facts.Fact, len(snap.Entries))
	for i, e := range snap.Entries {
		stored[i] = e.Fact
	}

	report := &AccuracyReport{
		ProjectID:          projectID,
		Report:             diff.CompareFacts(gt.Facts, stored),
		GroundTruthInvalid: gt.Invalid,
		Skipped:            snap.Skipped + snap.Malformed,
		Source:             gt.Source,
	}
	s.logger.Info("Computed accuracy",
		"projectId", projectID,
		"precision", report.Overall.Precision,
		"recall", report.Overall.Recall,
		"f1", report.Overall.F1,
	)
	return report, nil
}

// CleanupStale deletes the stored facts of a project that a fresh extraction
// no longer produces.
func (s *Service) CleanupStale(ctx context.Context, projectID string, opts CleanupOptions) (*CleanupReport, error) {
	p, store, gt, err := s.open(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status == projects.StatusQueued || p.Status == projects.StatusIndexing {
		s.logger.Warn("Cleaning up while indexing is in flight", "projectId", projectID, "status", p.Status)
	}
	return s.maintainer.CleanupStale(ctx, store, gt.Facts, opts)
}
