package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"ecourt-scraper/internal/artifact"
	"ecourt-scraper/internal/entity"
	"ecourt-scraper/internal/scraper"
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrNotFound        = errors.New("job not found")
	ErrAlreadyFinished = errors.New("job already finished")
	ErrNotPending      = errors.New("job is not pending")
)

// JobQueue hands a job to the background workers without blocking.
// (implementation: worker.Pool)
type JobQueue interface {
	Enqueue(ctx context.Context, id uuid.UUID) error
}

// Observer is told about every job transition, after it is applied. job is
// a snapshot the observer may keep.
type Observer interface {
	JobChanged(ctx context.Context, job *entity.Job)
}

type JobService struct {
	reg       *Registry
	queue     JobQueue
	validate  *validator.Validate
	observers []Observer
	now       func() time.Time
	log       *slog.Logger
}

func NewJobService(reg *Registry, queue JobQueue, validate *validator.Validate, log *slog.Logger, observers ...Observer) *JobService {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &JobService{
		reg:       reg,
		queue:     queue,
		validate:  validate,
		observers: observers,
		now:       time.Now,
		log:       log,
	}
}

// WithClock replaces the clock used for submission and transition times.
func (s *JobService) WithClock(now func() time.Time) *JobService {
	s.now = now
	return s
}

// Submit validates req, records a pending job and schedules it. It returns
// as soon as the job is queued.
func (s *JobService) Submit(ctx context.Context, req entity.ExtractionRequest) (uuid.UUID, error) {
	if err := s.Validate(req); err != nil {
		return uuid.Nil, err
	}

	now := s.now()
	job := &entity.Job{
		ID:          uuid.New(),
		Status:      entity.StatusPending,
		Request:     req.WithDefaultDate(now),
		SubmittedAt: now,
	}
	if !s.reg.Add(job) {
		return uuid.Nil, fmt.Errorf("job id collision: %s", job.ID)
	}
	s.log.Info("job submitted", "job_id", job.ID, "kind", job.Request.Kind)
	s.notify(ctx, job.Clone())

	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		if ferr := s.Fail(ctx, job.ID, fmt.Errorf("enqueue: %w", err)); ferr != nil {
			s.log.Error("fail unqueued job", "job_id", job.ID, "err", ferr)
		}
		return uuid.Nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job.ID, nil
}

// Validate reports whether req could be submitted.
func (s *JobService) Validate(req entity.ExtractionRequest) error {
	return validateRequest(s.validate, req)
}

var defaultValidate = validator.New()

// ValidateRequest applies the Submit checks without a service; the CLI uses
// it before launching a browser.
func ValidateRequest(req entity.ExtractionRequest) error {
	return validateRequest(defaultValidate, req)
}

func validateRequest(v *validator.Validate, req entity.ExtractionRequest) error {
	if err := req.CheckVariant(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := v.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, describeValidation(err))
	}
	return nil
}

func (s *JobService) Status(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	j, ok := s.reg.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

func (s *JobService) List(ctx context.Context) []*entity.Job {
	return s.reg.List()
}

// Start moves a pending job to running.
func (s *JobService) Start(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	job, err := s.reg.Update(id, func(j *entity.Job) error {
		if j.Status != entity.StatusPending {
			if j.Status.Terminal() {
				return ErrAlreadyFinished
			}
			return ErrNotPending
		}
		t := s.now()
		j.Status = entity.StatusRunning
		j.StartedAt = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("job running", "job_id", id, "kind", job.Request.Kind)
	s.notify(ctx, job)
	return job, nil
}

// Complete is the successful terminal transition. It can happen once.
func (s *JobService) Complete(ctx context.Context, id uuid.UUID, result *entity.ExtractionResult, artifacts entity.Artifacts) error {
	if result == nil {
		return s.Fail(ctx, id, errors.New("completed without a result"))
	}
	job, err := s.reg.Update(id, func(j *entity.Job) error {
		if j.Status.Terminal() {
			return ErrAlreadyFinished
		}
		t := s.now()
		j.Status = entity.StatusCompleted
		j.FinishedAt = &t
		j.Result = result.Clone()
		a := artifacts
		a.PDFs = append([]string{}, artifacts.PDFs...)
		j.Artifacts = &a
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("job completed", "job_id", id, "kind", job.Request.Kind,
		"pdfs", len(job.Artifacts.PDFs), "duration_ms", s.duration(job))
	s.notify(ctx, job)
	return nil
}

// Fail is the failing terminal transition. It can happen once.
func (s *JobService) Fail(ctx context.Context, id uuid.UUID, cause error) error {
	if cause == nil {
		cause = errors.New("unknown error")
	}
	msg := cause.Error()
	kind := Classify(cause)
	job, err := s.reg.Update(id, func(j *entity.Job) error {
		if j.Status.Terminal() {
			return ErrAlreadyFinished
		}
		t := s.now()
		j.Status = entity.StatusFailed
		j.FinishedAt = &t
		j.Error = &msg
		j.ErrorKind = kind
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Error("job failed", "job_id", id, "kind", job.Request.Kind,
		"error_kind", kind, "error", msg, "duration_ms", s.duration(job))
	s.notify(ctx, job)
	return nil
}

// Classify maps a run error onto the error kind recorded on the job.
func Classify(err error) entity.ErrorKind {
	switch {
	case errors.Is(err, artifact.ErrMissingOutput):
		return entity.ErrorKindMissingOutput
	case errors.Is(err, scraper.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return entity.ErrorKindTimeout
	case errors.Is(err, scraper.ErrSite):
		return entity.ErrorKindSite
	default:
		return entity.ErrorKindInternal
	}
}

func (s *JobService) duration(j *entity.Job) int64 {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt).Milliseconds()
}

func (s *JobService) notify(ctx context.Context, job *entity.Job) {
	for _, o := range s.observers {
		o.JobChanged(ctx, job.Clone())
	}
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "datetime":
			parts = append(parts, field+" must be YYYY-MM-DD")
		case "oneof":
			parts = append(parts, field+" must be one of: "+fe.Param())
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
