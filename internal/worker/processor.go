package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ecourt-scraper/internal/entity"
)

// JobLifecycle is the orchestrator side of a run (implementation:
// service.JobService).
type JobLifecycle interface {
	Start(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	Complete(ctx context.Context, id uuid.UUID, result *entity.ExtractionResult, artifacts entity.Artifacts) error
	Fail(ctx context.Context, id uuid.UUID, cause error) error
}

// Runner executes a job's extraction and reports its artifacts.
type Runner interface {
	Run(ctx context.Context, job *entity.Job) (*entity.ExtractionResult, entity.Artifacts, error)
}

type Processor struct {
	jobs   JobLifecycle
	runner Runner
	log    *slog.Logger
}

func NewProcessor(jobs JobLifecycle, runner Runner, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{jobs: jobs, runner: runner, log: log}
}

// Process drives one job from pending to a terminal state. It always leaves
// the job terminal unless the job was not pending to begin with.
func (p *Processor) Process(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	// transitions must land even when the run was cut short
	tctx := context.WithoutCancel(ctx)

	job, err := p.jobs.Start(tctx, id)
	if err != nil {
		p.log.Error("start job", "job_id", id, "err", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return p.fail(tctx, job, start, fmt.Errorf("shutting down: %w", err))
	}

	p.log.Info("job picked up", "job_id", id, "kind", job.Request.Kind)

	result, artifacts, err := p.run(ctx, job)
	if err != nil {
		return p.fail(tctx, job, start, err)
	}

	if err := p.jobs.Complete(tctx, id, result, artifacts); err != nil {
		p.log.Error("complete job", "job_id", id, "err", err)
		return err
	}
	p.log.Info("job done", "job_id", id, "kind", job.Request.Kind,
		"output_file", artifacts.ResultFile, "pdfs", len(artifacts.PDFs),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (p *Processor) run(ctx context.Context, job *entity.Job) (res *entity.ExtractionResult, arts entity.Artifacts, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, arts, err = nil, entity.Artifacts{}, fmt.Errorf("runner panic: %v", r)
		}
	}()
	return p.runner.Run(ctx, job)
}

func (p *Processor) fail(ctx context.Context, job *entity.Job, start time.Time, cause error) error {
	if err := p.jobs.Fail(ctx, job.ID, cause); err != nil {
		p.log.Error("fail job", "job_id", job.ID, "err", err)
		return err
	}
	p.log.Info("job error", "job_id", job.ID, "kind", job.Request.Kind,
		"duration_ms", time.Since(start).Milliseconds(), "error", cause)
	return cause
}
