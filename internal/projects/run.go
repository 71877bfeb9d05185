package projects

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"codefacts/internal/extract"
	"codefacts/internal/ingest"
	"codefacts/internal/metrics"
)

// Progress share of the extraction step; ingestion fills the rest.
const extractProgress = 10

// run is the indexing task. It is the only writer of the project's status
// after IndexProject created it.
func (r *Registry) run(e *entry) {
	defer r.tasks.Done()
	defer close(e.done)

	runID := uuid.NewString()
	e.mu.Lock()
	e.project.markIndexing(runID)
	id, projectPath := e.project.ID, e.project.Path
	e.mu.Unlock()
	r.save()

	logger := r.logger.With("projectId", id, "runId", runID)
	logger.Info("Indexing project", "path", projectPath)

	stats, err := r.index(context.Background(), e, projectPath)

	e.mu.Lock()
	if err != nil {
		e.project.markFailed(err)
	} else {
		e.project.markCompleted(stats.Stats)
		for _, f := range stats.Failures {
			e.project.addError(fmt.Sprintf("record %d: %v", f.Index, f.Err()))
		}
	}
	status, duration := e.project.Status, e.project.Duration()
	e.mu.Unlock()
	r.save()

	metrics.IndexRuns.WithLabelValues(string(status)).Inc()
	if err != nil {
		logger.Error("Indexing failed", "error", err, "duration", duration)
		return
	}
	logger.Info("Indexing completed",
		"written", stats.Written,
		"updated", stats.Updated,
		"unchanged", stats.Unchanged,
		"invalid", stats.Invalid,
		"duration", duration,
	)
}

func (r *Registry) index(ctx context.Context, e *entry, projectPath string) (*ingest.Result, error) {
	plan, err := r.Plan(projectPath)
	if err != nil {
		return nil, err
	}
	r.update(e, func(p *Project) {
		p.Source = plan.Source
		p.Message = "extracting facts from " + plan.Source
		if plan.Name != "" {
			p.Name = plan.Name
		}
	})

	recs, err := plan.Extractor.Extract(ctx, extract.Request{ProjectPath: projectPath, Options: plan.Options})
	if err != nil {
		return nil, err
	}
	r.update(e, func(p *Project) {
		p.setProgress(extractProgress)
		p.Message = fmt.Sprintf("ingesting %d facts", len(recs))
	})

	st, err := r.openStore(e)
	if err != nil {
		return nil, err
	}
	return r.ingester.Ingest(ctx, st, recs, func(done, total int) {
		r.update(e, func(p *Project) {
			p.setProgress(extractProgress + (100-extractProgress)*done/total)
		})
	})
}

func (r *Registry) update(e *entry, fn func(*Project)) {
	e.mu.Lock()
	fn(e.project)
	e.mu.Unlock()
}
