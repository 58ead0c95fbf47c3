package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ecourt-scraper/internal/entity"
)

var ErrNotTerminal = errors.New("job is not finished")

// Execer is the slice of pgxpool.Pool the journal needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS extraction_runs (
    job_id       UUID PRIMARY KEY,
    kind         TEXT NOT NULL,
    status       TEXT NOT NULL,
    request      JSONB NOT NULL,
    result       JSONB,
    output_file  TEXT,
    pdfs         TEXT[] NOT NULL DEFAULT '{}',
    error        TEXT,
    error_kind   TEXT,
    submitted_at TIMESTAMPTZ NOT NULL,
    started_at   TIMESTAMPTZ,
    finished_at  TIMESTAMPTZ
);`

// RunJournal appends finished jobs to Postgres. It is write-only history:
// nothing reads it back into the in-memory registry.
type RunJournal struct {
	db  Execer
	log *slog.Logger
}

func NewRunJournal(db Execer, log *slog.Logger) *RunJournal {
	if log == nil {
		log = slog.Default()
	}
	return &RunJournal{db: db, log: log}
}

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

func (j *RunJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create extraction_runs: %w", err)
	}
	return nil
}

// Record stores a terminal job. Recording the same job twice is a no-op.
func (j *RunJournal) Record(ctx context.Context, job *entity.Job) error {
	q, args, err := insertRun(job)
	if err != nil {
		return err
	}
	if _, err := j.db.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("insert run %s: %w", job.ID, err)
	}
	return nil
}

// JobChanged implements service.Observer; only terminal jobs are recorded.
func (j *RunJournal) JobChanged(ctx context.Context, job *entity.Job) {
	if !job.Status.Terminal() {
		return
	}
	if err := j.Record(ctx, job); err != nil {
		j.log.Error("journal run", "job_id", job.ID, "err", err)
	}
}

func insertRun(job *entity.Job) (string, []any, error) {
	if !job.Status.Terminal() {
		return "", nil, fmt.Errorf("%s: %w", job.ID, ErrNotTerminal)
	}
	request, err := json.Marshal(job.Request)
	if err != nil {
		return "", nil, fmt.Errorf("encode request: %w", err)
	}

	var (
		result     []byte
		outputFile *string
		pdfs       = []string{}
		errKind    *string
	)
	if job.Result != nil {
		if result, err = json.Marshal(job.Result); err != nil {
			return "", nil, fmt.Errorf("encode result: %w", err)
		}
	}
	if job.Artifacts != nil {
		outputFile = &job.Artifacts.ResultFile
		pdfs = append(pdfs, job.Artifacts.PDFs...)
	}
	if job.ErrorKind != "" {
		k := string(job.ErrorKind)
		errKind = &k
	}

	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert("extraction_runs").
		Columns("job_id", "kind", "status", "request", "result", "output_file", "pdfs",
			"error", "error_kind", "submitted_at", "started_at", "finished_at").
		Values(job.ID, string(job.Request.Kind), string(job.Status), request, result, outputFile, pdfs,
			job.Error, errKind, job.SubmittedAt, job.StartedAt, job.FinishedAt).
		Suffix("ON CONFLICT (job_id) DO NOTHING").
		ToSql()
}
