package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"ecourt-scraper/internal/artifact"
	"ecourt-scraper/internal/entity"
	"ecourt-scraper/internal/scraper"
	"ecourt-scraper/internal/service"
	"ecourt-scraper/internal/worker"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRunner struct {
	mu      sync.Mutex
	release chan struct{}
	result  *entity.ExtractionResult
	arts    entity.Artifacts
	err     error
	panicV  any
	ran     []uuid.UUID
}

func (r *fakeRunner) Run(ctx context.Context, job *entity.Job) (*entity.ExtractionResult, entity.Artifacts, error) {
	r.mu.Lock()
	r.ran = append(r.ran, job.ID)
	r.mu.Unlock()
	if r.release != nil {
		<-r.release
	}
	if r.panicV != nil {
		panic(r.panicV)
	}
	if r.err != nil {
		return nil, entity.Artifacts{}, r.err
	}
	return r.result, r.arts, nil
}

type fakeEngine struct {
	result *entity.ExtractionResult
	err    error
}

func (e *fakeEngine) Run(ctx context.Context, req entity.ExtractionRequest) (*entity.ExtractionResult, error) {
	return e.result, e.err
}

type brokenStore struct{}

func (brokenStore) WriteResult(string, artifact.Document) (string, error) {
	return "", errors.New("disk full")
}
func (brokenStore) Rel(p string) string { return p }

type countingHandler struct {
	mu  sync.Mutex
	ids []uuid.UUID
	ctx []error
}

func (h *countingHandler) Process(ctx context.Context, id uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, id)
	h.ctx = append(h.ctx, ctx.Err())
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPool_EnqueueNeverBlocks(t *testing.T) {
	p := worker.NewPool(1, 2, discard)
	ctx := context.Background()

	if err := p.Enqueue(ctx, uuid.New()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := p.Enqueue(ctx, uuid.New()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- p.Enqueue(ctx, uuid.New()) }()
	select {
	case err := <-done:
		if !errors.Is(err, worker.ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Enqueue blocked on a full queue")
	}
}

func TestPool_DrainsQueueOnShutdown(t *testing.T) {
	p := worker.NewPool(2, 8, discard)
	h := &countingHandler{}
	ctx, cancel := context.WithCancel(context.Background())

	for i := 0; i < 3; i++ {
		if err := p.Enqueue(ctx, uuid.New()); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	cancel()
	p.Run(ctx, h)

	if len(h.ids) != 3 {
		t.Fatalf("expected 3 processed jobs, got %d", len(h.ids))
	}
	if err := p.Enqueue(context.Background(), uuid.New()); !errors.Is(err, worker.ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func newStack(t *testing.T, runner worker.Runner) (*service.JobService, func()) {
	t.Helper()
	pool := worker.NewPool(2, 16, discard)
	svc := service.NewJobService(service.NewRegistry(), pool, nil, discard)
	proc := worker.NewProcessor(svc, runner, discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx, proc)
		close(done)
	}()
	return svc, func() {
		cancel()
		<-done
	}
}

func TestProcessor_CompletesJob(t *testing.T) {
	release := make(chan struct{})
	runner := &fakeRunner{
		release: release,
		result:  &entity.ExtractionResult{Cases: []entity.CaseRow{{RowText: "X1 row", Serial: "1", Court: "C"}}},
		arts:    entity.Artifacts{ResultFile: "web_x_20251018_100000.json", PDFs: []string{}},
	}
	svc, stop := newStack(t, runner)
	defer stop()
	ctx := context.Background()

	id, err := svc.Submit(ctx, entity.NewCnrRequest("X1", "", false))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job, _ := svc.Status(ctx, id)
	if job.Status.Terminal() {
		t.Fatalf("expected pending or running before the run finishes, got %s", job.Status)
	}

	close(release)
	waitFor(t, func() bool {
		j, _ := svc.Status(ctx, id)
		return j.Status.Terminal()
	})

	job, _ = svc.Status(ctx, id)
	if job.Status != entity.StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", job.Status, job.Error)
	}
	if diff := cmp.Diff(runner.arts, *job.Artifacts); diff != "" {
		t.Fatalf("artifacts mismatch (-want +got):\n%s", diff)
	}
	if job.StartedAt == nil || job.FinishedAt == nil {
		t.Fatalf("expected start and finish times to be set")
	}
}

func TestProcessor_RunnerErrorFailsJob(t *testing.T) {
	runner := &fakeRunner{err: &scraper.StepError{Step: scraper.StepNavigate, Err: context.DeadlineExceeded}}
	svc, stop := newStack(t, runner)
	defer stop()
	ctx := context.Background()

	id, _ := svc.Submit(ctx, entity.NewCnrRequest("X1", "", false))
	waitFor(t, func() bool {
		j, _ := svc.Status(ctx, id)
		return j.Status.Terminal()
	})

	job, _ := svc.Status(ctx, id)
	if job.Status != entity.StatusFailed || job.ErrorKind != entity.ErrorKindTimeout {
		t.Fatalf("expected failed/timeout, got %s/%s", job.Status, job.ErrorKind)
	}
	if job.Error == nil || *job.Error == "" {
		t.Fatalf("expected an error message")
	}
}

func TestProcessor_RunnerPanicFailsJob(t *testing.T) {
	svc, stop := newStack(t, &fakeRunner{panicV: "nil map"})
	defer stop()
	ctx := context.Background()

	id, _ := svc.Submit(ctx, entity.NewCnrRequest("X1", "", false))
	waitFor(t, func() bool {
		j, _ := svc.Status(ctx, id)
		return j.Status.Terminal()
	})
	job, _ := svc.Status(ctx, id)
	if job.Status != entity.StatusFailed || job.ErrorKind != entity.ErrorKindInternal {
		t.Fatalf("expected failed/internal, got %s/%s", job.Status, job.ErrorKind)
	}
}

func TestInProcessRunner_WritesDocumentAndListsPDFs(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	pdfPath, err := store.SavePDF("X1_1760770800.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("SavePDF: %v", err)
	}
	res := &entity.ExtractionResult{Cases: []entity.CaseRow{
		{RowText: "X1 a", Serial: "1", Court: "C", PDFLink: "/a.pdf", DownloadedPDF: pdfPath},
		{RowText: "X1 b", Serial: "2", Court: "C", PDFLink: "/b.pdf"},
	}}
	runner := worker.NewInProcessRunner(&fakeEngine{result: res}, store)

	job := &entity.Job{ID: uuid.New(), Request: entity.NewCnrRequest("X1", "2025-10-18", true)}
	got, arts, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != res {
		t.Fatalf("expected the engine result to be returned as is")
	}
	if diff := cmp.Diff([]string{"pdfs/X1_1760770800.pdf"}, arts.PDFs); diff != "" {
		t.Fatalf("pdfs mismatch (-want +got):\n%s", diff)
	}

	doc, err := store.ReadResult(arts.ResultFile)
	if err != nil {
		t.Fatalf("ReadResult: %v", err)
	}
	if doc.DateChecked != "2025-10-18" || len(doc.Result.Cases) != 2 {
		t.Fatalf("unexpected document %+v", doc)
	}

	corr, err := artifact.NewCorrelator(store).Locate(job.ID.String(), time.Now().Add(-time.Minute))
	if err != nil || corr.ResultFile != arts.ResultFile {
		t.Fatalf("expected correlator to find %s, got %+v (%v)", arts.ResultFile, corr, err)
	}
}

func TestInProcessRunner_MissingDocumentFails(t *testing.T) {
	runner := worker.NewInProcessRunner(&fakeEngine{result: &entity.ExtractionResult{}}, brokenStore{})
	job := &entity.Job{ID: uuid.New(), Request: entity.NewCnrRequest("X1", "2025-10-18", false)}

	_, _, err := runner.Run(context.Background(), job)
	if !errors.Is(err, artifact.ErrMissingOutput) {
		t.Fatalf("expected ErrMissingOutput, got %v", err)
	}
	if service.Classify(err) != entity.ErrorKindMissingOutput {
		t.Fatalf("expected missing_output kind, got %s", service.Classify(err))
	}
}

func TestCLIArgs(t *testing.T) {
	got := worker.CLIArgs(entity.NewCauseListRequest("Delhi", "New Delhi", "Tis Hazari", "2025-10-18", true), "web_1")
	want := []string{
		"causelist", "--state", "Delhi", "--district", "New Delhi", "--complex", "Tis Hazari",
		"--date", "2025-10-18", "--download-pdf", "--output", "web_1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}

	got = worker.CLIArgs(entity.NewCnrRequest("X1", "2025-10-18", false), "web_2")
	want = []string{"cnr", "--cnr", "X1", "--date", "2025-10-18", "--output", "web_2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

// fakeCLI writes a script standing in for the ecourts binary.
func fakeCLI(t *testing.T, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	p := filepath.Join(t.TempDir(), "fake-ecourts.sh")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return "/bin/sh " + p
}

const writeDocScript = `
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then out="$2"; fi
  shift
done
printf '%%PDF' > "$FAKE_PDF_DIR/judge.pdf"
cat > "$FAKE_OUT_DIR/${out}_20251018_100000.json" <<'JSON'
{"invoked_at":"2025-10-18T10:00:00Z","date_checked":"2025-10-18","args":{"kind":"causelist"},
 "result":{"cause_list":{"state":"Delhi","district":"New Delhi","complex":"Tis Hazari","date":"2025-10-18",
 "judges":[{"judge_text":"Judge_1","pdf_link":"/j.pdf","downloaded_pdf":"outputs/pdfs/judge.pdf"}]}}}
JSON
`

func TestSubprocessRunner_CorrelatesOutput(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Setenv("FAKE_OUT_DIR", store.Dir())
	t.Setenv("FAKE_PDF_DIR", store.PDFDir())

	runner, err := worker.NewSubprocessRunner(fakeCLI(t, writeDocScript), store, discard)
	if err != nil {
		t.Fatalf("NewSubprocessRunner: %v", err)
	}
	job := &entity.Job{ID: uuid.New(), Request: entity.NewCauseListRequest("Delhi", "New Delhi", "Tis Hazari", "2025-10-18", true)}

	res, arts, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if arts.ResultFile != "web_"+job.ID.String()+"_20251018_100000.json" {
		t.Fatalf("unexpected result file %q", arts.ResultFile)
	}
	if diff := cmp.Diff([]string{"pdfs/judge.pdf"}, arts.PDFs); diff != "" {
		t.Fatalf("pdfs mismatch (-want +got):\n%s", diff)
	}
	if res.CauseList == nil || len(res.CauseList.Judges) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSubprocessRunner_NoOutputIsMissingOutput(t *testing.T) {
	store, _ := artifact.NewStore(t.TempDir(), "")
	runner, _ := worker.NewSubprocessRunner(fakeCLI(t, "exit 0\n"), store, discard)

	job := &entity.Job{ID: uuid.New(), Request: entity.NewCnrRequest("X1", "2025-10-18", false)}
	if _, _, err := runner.Run(context.Background(), job); !errors.Is(err, artifact.ErrMissingOutput) {
		t.Fatalf("expected ErrMissingOutput, got %v", err)
	}
}

func TestSubprocessRunner_ExitCodeCarriesErrorClass(t *testing.T) {
	store, _ := artifact.NewStore(t.TempDir(), "")
	runner, _ := worker.NewSubprocessRunner(fakeCLI(t, "echo 'level=INFO msg=navigating' >&2\necho 'navigate: browser: timeout' >&2\nexit 3\n"), store, discard)

	job := &entity.Job{ID: uuid.New(), Request: entity.NewCnrRequest("X1", "2025-10-18", false)}
	_, _, err := runner.Run(context.Background(), job)
	if !errors.Is(err, scraper.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if err.Error() != scraper.ErrTimeout.Error()+": navigate: browser: timeout" {
		t.Fatalf("expected last stderr line as message, got %q", err.Error())
	}
}

func TestSubprocessRunner_UnwrittenDocumentIsMissingOutput(t *testing.T) {
	store, _ := artifact.NewStore(t.TempDir(), "")
	runner, _ := worker.NewSubprocessRunner(fakeCLI(t, "echo 'scraper ran but did not produce an output file: disk full' >&2\nexit 4\n"), store, discard)

	job := &entity.Job{ID: uuid.New(), Request: entity.NewCnrRequest("X1", "2025-10-18", false)}
	_, _, err := runner.Run(context.Background(), job)
	if !errors.Is(err, artifact.ErrMissingOutput) {
		t.Fatalf("expected ErrMissingOutput, got %v", err)
	}
	if kind := service.Classify(err); kind != entity.ErrorKindMissingOutput {
		t.Fatalf("expected %s, got %s", entity.ErrorKindMissingOutput, kind)
	}
}
