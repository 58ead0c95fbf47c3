package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"ecourt-scraper/internal/artifact"
	"ecourt-scraper/internal/browser"
	"ecourt-scraper/internal/entity"
	"ecourt-scraper/internal/scraper"
	"ecourt-scraper/internal/service"
)

type fakeQueue struct {
	mu         sync.Mutex
	enqueued   []uuid.UUID
	enqueueErr error
}

func (q *fakeQueue) Enqueue(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueued = append(q.enqueued, id)
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []entity.JobStatus
}

func (o *recordingObserver) JobChanged(ctx context.Context, job *entity.Job) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, job.Status)
}

var testNow = time.Date(2025, 10, 18, 10, 0, 0, 0, time.UTC)

func newService(q service.JobQueue, obs ...service.Observer) *service.JobService {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.NewJobService(service.NewRegistry(), q, nil, log, obs...).
		WithClock(func() time.Time { return testNow })
}

func TestJobService_Submit_RejectsIncompleteCauseList(t *testing.T) {
	ctx := context.Background()
	queue := &fakeQueue{}
	svc := newService(queue)

	bad := []entity.ExtractionRequest{
		entity.NewCauseListRequest("", "New Delhi", "Tis Hazari", "", false),
		entity.NewCauseListRequest("Delhi", "", "Tis Hazari", "", false),
		entity.NewCauseListRequest("Delhi", "New Delhi", "", "", false),
		entity.NewCauseListRequest("Delhi", "New Delhi", "Tis Hazari", "18-10-2025", false),
		entity.NewCnrRequest("", "", false),
		{Kind: entity.KindCnrLookup, CauseList: &entity.CauseList{State: "Delhi", District: "x", Complex: "y"}},
		{Kind: "case", Cnr: &entity.CnrLookup{CNR: "X"}},
	}
	for i, req := range bad {
		id, err := svc.Submit(ctx, req)
		if !errors.Is(err, service.ErrInvalidRequest) {
			t.Fatalf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
		if id != uuid.Nil {
			t.Fatalf("case %d: expected nil id, got %s", i, id)
		}
	}
	if n := len(svc.List(ctx)); n != 0 {
		t.Fatalf("expected no jobs to be created, got %d", n)
	}
	if len(queue.enqueued) != 0 {
		t.Fatalf("expected nothing enqueued, got %v", queue.enqueued)
	}
}

func TestJobService_Submit_RecordsPendingAndEnqueues(t *testing.T) {
	ctx := context.Background()
	queue := &fakeQueue{}
	svc := newService(queue)

	id, err := svc.Submit(ctx, entity.NewCnrRequest("DLHC010001232025", "", true))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(queue.enqueued) != 1 || queue.enqueued[0] != id {
		t.Fatalf("expected job %s enqueued, got %v", id, queue.enqueued)
	}

	job, err := svc.Status(ctx, id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if job.Status != entity.StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.Request.Cnr.Date != "2025-10-18" {
		t.Fatalf("expected date defaulted to submission day, got %q", job.Request.Cnr.Date)
	}
	if !job.SubmittedAt.Equal(testNow) {
		t.Fatalf("expected submitted_at %v, got %v", testNow, job.SubmittedAt)
	}
	if job.Result != nil || job.Error != nil {
		t.Fatalf("pending job must carry neither result nor error")
	}
}

func TestJobService_Submit_EnqueueFailureFailsJob(t *testing.T) {
	ctx := context.Background()
	svc := newService(&fakeQueue{enqueueErr: errors.New("queue full")})

	_, err := svc.Submit(ctx, entity.NewCnrRequest("X1", "", false))
	if err == nil {
		t.Fatalf("expected enqueue error")
	}
	jobs := svc.List(ctx)
	if len(jobs) != 1 || jobs[0].Status != entity.StatusFailed {
		t.Fatalf("expected the unqueued job to be failed, got %+v", jobs)
	}
}

func TestJobService_Status_NotFound(t *testing.T) {
	svc := newService(&fakeQueue{})
	if _, err := svc.Status(context.Background(), uuid.New()); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobService_Lifecycle_CompleteOnce(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	svc := newService(&fakeQueue{}, obs)

	id, err := svc.Submit(ctx, entity.NewCauseListRequest("Delhi", "New Delhi", "Tis Hazari", "2025-10-18", true))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Start(ctx, id); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Start(ctx, id); !errors.Is(err, service.ErrNotPending) {
		t.Fatalf("expected ErrNotPending on second start, got %v", err)
	}

	result := &entity.ExtractionResult{CauseList: &entity.CauseListResult{
		State: "Delhi", District: "New Delhi", Complex: "Tis Hazari", Date: "2025-10-18",
		Judges: []entity.JudgeEntry{{JudgeText: "Judge_1", PDFLink: "/a.pdf"}},
	}}
	arts := entity.Artifacts{ResultFile: "web_x.json", PDFs: []string{"pdfs/a.pdf"}}
	if err := svc.Complete(ctx, id, result, arts); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	first, _ := svc.Status(ctx, id)
	if first.Status != entity.StatusCompleted || first.Result == nil || first.Artifacts == nil {
		t.Fatalf("expected completed job with result and artifacts, got %+v", first)
	}

	if err := svc.Complete(ctx, id, &entity.ExtractionResult{}, entity.Artifacts{}); !errors.Is(err, service.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
	if err := svc.Fail(ctx, id, errors.New("late failure")); !errors.Is(err, service.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
	if _, err := svc.Start(ctx, id); !errors.Is(err, service.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished on restart, got %v", err)
	}

	second, _ := svc.Status(ctx, id)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("terminal snapshot changed (-first +second):\n%s", diff)
	}

	want := []entity.JobStatus{entity.StatusPending, entity.StatusRunning, entity.StatusCompleted}
	if diff := cmp.Diff(want, obs.statuses); diff != "" {
		t.Fatalf("observer statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestJobService_SnapshotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := newService(&fakeQueue{})
	id, _ := svc.Submit(ctx, entity.NewCnrRequest("X1", "", false))
	_, _ = svc.Start(ctx, id)
	_ = svc.Complete(ctx, id, &entity.ExtractionResult{Cases: []entity.CaseRow{{RowText: "X1", Serial: "1", Court: "C"}}},
		entity.Artifacts{ResultFile: "r.json"})

	snap, _ := svc.Status(ctx, id)
	snap.Result.Cases[0].RowText = "mutated"
	snap.Request.Cnr.CNR = "mutated"

	again, _ := svc.Status(ctx, id)
	if again.Result.Cases[0].RowText != "X1" || again.Request.Cnr.CNR != "X1" {
		t.Fatalf("registry state leaked through a snapshot: %+v", again)
	}
}

func TestJobService_Fail_ClassifiesErrors(t *testing.T) {
	cases := []struct {
		err  error
		want entity.ErrorKind
	}{
		{artifact.ErrMissingOutput, entity.ErrorKindMissingOutput},
		{&scraper.StepError{Step: scraper.StepNavigate, Err: browser.ErrTimeout}, entity.ErrorKindTimeout},
		{&scraper.StepError{Step: scraper.StepSelectState, Err: browser.ErrNoOption}, entity.ErrorKindSite},
		{fmt.Errorf("exit status 1: %s", "Traceback"), entity.ErrorKindInternal},
	}
	ctx := context.Background()
	svc := newService(&fakeQueue{})
	for _, tc := range cases {
		id, _ := svc.Submit(ctx, entity.NewCnrRequest("X1", "", false))
		_, _ = svc.Start(ctx, id)
		if err := svc.Fail(ctx, id, tc.err); err != nil {
			t.Fatalf("Fail: %v", err)
		}
		job, _ := svc.Status(ctx, id)
		if job.Status != entity.StatusFailed || job.ErrorKind != tc.want {
			t.Fatalf("%v: expected failed/%s, got %s/%s", tc.err, tc.want, job.Status, job.ErrorKind)
		}
		if job.Error == nil || *job.Error != tc.err.Error() {
			t.Fatalf("expected error message %q, got %v", tc.err.Error(), job.Error)
		}
		if job.Result != nil {
			t.Fatalf("failed job must not carry a result")
		}
	}
}

func TestJobService_TerminalTransitionIsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	svc := newService(&fakeQueue{})
	id, _ := svc.Submit(ctx, entity.NewCnrRequest("X1", "", false))
	_, _ = svc.Start(ctx, id)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				err = svc.Complete(ctx, id, &entity.ExtractionResult{}, entity.Artifacts{ResultFile: "r.json"})
			} else {
				err = svc.Fail(ctx, id, errors.New("boom"))
			}
			if err == nil {
				wins.Add(1)
			} else if !errors.Is(err, service.ErrAlreadyFinished) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one terminal transition, got %d", wins.Load())
	}
	job, _ := svc.Status(ctx, id)
	switch job.Status {
	case entity.StatusCompleted:
		if job.Result == nil || job.Error != nil {
			t.Fatalf("inconsistent completed job: %+v", job)
		}
	case entity.StatusFailed:
		if job.Result != nil || job.Error == nil {
			t.Fatalf("inconsistent failed job: %+v", job)
		}
	default:
		t.Fatalf("expected terminal status, got %s", job.Status)
	}
}

func TestJobService_List_OrderedBySubmission(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tick := testNow
	svc := service.NewJobService(service.NewRegistry(), &fakeQueue{}, nil, log).
		WithClock(func() time.Time { tick = tick.Add(time.Second); return tick })

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id, err := svc.Submit(ctx, entity.NewCnrRequest(fmt.Sprintf("X%d", i), "", false))
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, id)
	}
	jobs := svc.List(ctx)
	for i, j := range jobs {
		if j.ID != ids[i] {
			t.Fatalf("position %d: expected %s, got %s", i, ids[i], j.ID)
		}
	}
}
