package postgresql

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"ecourt-scraper/internal/entity"
)

type fakeExecer struct {
	sql  []string
	args [][]any
	err  error
}

func (f *fakeExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func finishedJob() *entity.Job {
	start := time.Date(2025, 10, 18, 10, 0, 0, 0, time.UTC)
	end := start.Add(42 * time.Second)
	return &entity.Job{
		ID:          uuid.MustParse("66666666-6666-6666-6666-666666666666"),
		Status:      entity.StatusCompleted,
		Request:     entity.NewCnrRequest("X1", "2025-10-18", true),
		SubmittedAt: start,
		StartedAt:   &start,
		FinishedAt:  &end,
		Result:      &entity.ExtractionResult{Cases: []entity.CaseRow{}},
		Artifacts:   &entity.Artifacts{ResultFile: "web_x.json", PDFs: []string{"pdfs/a.pdf"}},
	}
}

func TestRunJournal_RecordsTerminalJobs(t *testing.T) {
	db := &fakeExecer{}
	j := NewRunJournal(db, nil)

	pending := finishedJob()
	pending.Status = entity.StatusRunning
	j.JobChanged(context.Background(), pending)
	if len(db.sql) != 0 {
		t.Fatalf("expected running job to be skipped, got %v", db.sql)
	}

	j.JobChanged(context.Background(), finishedJob())
	if len(db.sql) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(db.sql))
	}
	q := db.sql[0]
	if !strings.HasPrefix(q, "INSERT INTO extraction_runs") || !strings.Contains(q, "$12") || !strings.HasSuffix(q, "ON CONFLICT (job_id) DO NOTHING") {
		t.Fatalf("unexpected sql: %s", q)
	}
	args := db.args[0]
	if len(args) != 12 {
		t.Fatalf("expected 12 args, got %d", len(args))
	}
	if args[2] != "completed" || string(args[4].([]byte)) != `{"cases_found":[]}` {
		t.Fatalf("unexpected args: status=%v result=%s", args[2], args[4])
	}
}

func TestRunJournal_RecordRejectsUnfinished(t *testing.T) {
	job := finishedJob()
	job.Status = entity.StatusPending
	err := NewRunJournal(&fakeExecer{}, nil).Record(context.Background(), job)
	if !errors.Is(err, ErrNotTerminal) {
		t.Fatalf("expected ErrNotTerminal, got %v", err)
	}
}

func TestRunJournal_ExecErrorIsWrapped(t *testing.T) {
	db := &fakeExecer{err: errors.New("conn closed")}
	err := NewRunJournal(db, nil).Record(context.Background(), finishedJob())
	if err == nil || !strings.Contains(err.Error(), "conn closed") {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
}
