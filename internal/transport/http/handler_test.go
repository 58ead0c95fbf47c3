package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"ecourt-scraper/internal/artifact"
	"ecourt-scraper/internal/catalog"
	"ecourt-scraper/internal/entity"
	"ecourt-scraper/internal/service"
	httptransport "ecourt-scraper/internal/transport/http"
	"ecourt-scraper/internal/worker"
)

// ---- fakes ----

type queueStub struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
	err      error
}

func (q *queueStub) Enqueue(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, id)
	return nil
}

// ---- helpers ----

type fixture struct {
	svc    *service.JobService
	store  *artifact.Store
	queue  *queueStub
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := artifact.NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	q := &queueStub{}
	svc := service.NewJobService(service.NewRegistry(), q, nil, log)
	h := httptransport.NewHandler(svc, store, catalog.Default(), log)
	return &fixture{svc: svc, store: store, queue: q, router: httptransport.Routes(h)}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) submitCompleted(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id, err := f.svc.Submit(ctx, entity.NewCnrRequest("DLND010012342023", "2025-01-10", false))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.Start(ctx, id); err != nil {
		t.Fatalf("start: %v", err)
	}
	res := &entity.ExtractionResult{Cases: []entity.CaseRow{
		{RowText: "1 Court No. 4 Order", Serial: "1", Court: "Court No. 4", PDFLink: entity.NotAvailable},
	}}
	arts := entity.Artifacts{ResultFile: "web_" + id.String() + "_20250110_101500.json", PDFs: []string{}}
	if err := f.svc.Complete(ctx, id, res, arts); err != nil {
		t.Fatalf("complete: %v", err)
	}
	return id
}

// ---- tests ----

func TestHTTP_CreateJob_201_AndEnqueued(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/jobs", `{"kind":"causelist","state":"Delhi","district":"New Delhi","complex":"Patiala House Court","date":"2025-01-10"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body=%s", rr.Code, rr.Body.String())
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json response: %v, body=%s", err, rr.Body.String())
	}
	if len(f.queue.enqueued) != 1 || f.queue.enqueued[0].String() != resp.ID {
		t.Fatalf("expected enqueue id=%s, got %#v", resp.ID, f.queue.enqueued)
	}

	rr2 := f.do(http.MethodGet, "/jobs/"+resp.ID, "")
	if rr2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr2.Code, rr2.Body.String())
	}
	var got map[string]any
	if err := json.Unmarshal(rr2.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v, body=%s", err, rr2.Body.String())
	}
	if got["status"] != "pending" || got["kind"] != "causelist" {
		t.Fatalf("unexpected job view: %v", got)
	}
}

func TestHTTP_CreateJob_400_OnInvalidRequests(t *testing.T) {
	cases := map[string]string{
		"bad json":             `{"kind":`,
		"unknown kind":         `{"kind":"other"}`,
		"cnr without cnr":      `{"kind":"cnr"}`,
		"causelist no complex": `{"kind":"causelist","state":"Delhi","district":"New Delhi"}`,
		"bad date":             `{"kind":"cnr","cnr":"X","date":"10/01/2025"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			rr := f.do(http.MethodPost, "/jobs", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d, body=%s", rr.Code, rr.Body.String())
			}
			if len(f.queue.enqueued) != 0 {
				t.Fatalf("nothing should be enqueued, got %v", f.queue.enqueued)
			}
			if jobs := f.svc.List(context.Background()); len(jobs) != 0 {
				t.Fatalf("no job should exist, got %d", len(jobs))
			}
		})
	}
}

func TestHTTP_CreateJob_503_WhenQueueFull(t *testing.T) {
	f := newFixture(t)
	f.queue.err = worker.ErrQueueFull

	rr := f.do(http.MethodPost, "/jobs", `{"kind":"cnr","cnr":"DLND010012342023"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d, body=%s", rr.Code, rr.Body.String())
	}
}

func TestHTTP_GetJob_400_404(t *testing.T) {
	f := newFixture(t)

	if rr := f.do(http.MethodGet, "/jobs/not-a-uuid", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if rr := f.do(http.MethodGet, "/jobs/"+uuid.NewString(), ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestHTTP_GetJobResult_409_WhenNotCompleted(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.Submit(context.Background(), entity.NewCnrRequest("DLND010012342023", "", false))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	for _, path := range []string{"/jobs/" + id.String() + "/result", "/jobs/" + id.String() + "/export.xlsx"} {
		if rr := f.do(http.MethodGet, path, ""); rr.Code != http.StatusConflict {
			t.Fatalf("%s: expected 409, got %d, body=%s", path, rr.Code, rr.Body.String())
		}
	}
}

func TestHTTP_GetJobResult_200_WhenCompleted(t *testing.T) {
	f := newFixture(t)
	id := f.submitCompleted(t)

	rr := f.do(http.MethodGet, "/jobs/"+id.String()+"/result", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}

	var got struct {
		Cases []entity.CaseRow `json:"cases_found"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	want := []entity.CaseRow{{RowText: "1 Court No. 4 Order", Serial: "1", Court: "Court No. 4", PDFLink: entity.NotAvailable}}
	if diff := cmp.Diff(want, got.Cases); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	view := f.do(http.MethodGet, "/jobs/"+id.String(), "")
	if !strings.Contains(view.Body.String(), `"output_file":"web_`+id.String()) {
		t.Fatalf("job view should carry the output file, got %s", view.Body.String())
	}
}

func TestHTTP_ExportJob_ReturnsWorkbook(t *testing.T) {
	f := newFixture(t)
	id := f.submitCompleted(t)

	rr := f.do(http.MethodGet, "/jobs/"+id.String()+"/export.xlsx", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	// xlsx is a zip archive
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected zip payload, got %q", rr.Body.Bytes()[:min(8, rr.Body.Len())])
	}
}

func TestHTTP_StatusPage(t *testing.T) {
	f := newFixture(t)
	id := f.submitCompleted(t)

	rr := f.do(http.MethodGet, "/status/"+id.String(), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "completed") || !strings.Contains(body, `href="/outputs/web_`+id.String()) {
		t.Fatalf("status page missing status or result link:\n%s", body)
	}
	if strings.Contains(body, "http-equiv") {
		t.Fatalf("finished job page should not refresh:\n%s", body)
	}
}

func TestHTTP_GetOutput(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(filepath.Join(f.store.Dir(), "web_x.json"), []byte(`{"ok":true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	rr := f.do(http.MethodGet, "/outputs/web_x.json", "")
	if rr.Code != http.StatusOK || rr.Body.String() != `{"ok":true}` {
		t.Fatalf("expected file contents, got %d %q", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "attachment") {
		t.Fatalf("expected attachment disposition, got %q", rr.Header().Get("Content-Disposition"))
	}

	if rr := f.do(http.MethodGet, "/outputs/missing.json", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr := f.do(http.MethodGet, "/outputs/../secret", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for traversal, got %d", rr.Code)
	}
}

func TestHTTP_Catalog(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/catalog", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got catalog.Catalog
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if diff := cmp.Diff(catalog.Default().StateNames(), got.StateNames()); diff != "" {
		t.Fatalf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTP_CatalogDependentLists(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/catalog/Delhi/districts", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	var districts []string
	if err := json.Unmarshal(rr.Body.Bytes(), &districts); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if diff := cmp.Diff(catalog.Default().Districts("Delhi"), districts); diff != "" {
		t.Fatalf("districts mismatch (-want +got):\n%s", diff)
	}

	rr = f.do(http.MethodGet, "/catalog/Delhi/New%20Delhi/complexes", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	var complexes []string
	if err := json.Unmarshal(rr.Body.Bytes(), &complexes); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if diff := cmp.Diff([]string{"Tis Hazari", "Patiala House", "Rouse Avenue"}, complexes); diff != "" {
		t.Fatalf("complexes mismatch (-want +got):\n%s", diff)
	}

	if rr := f.do(http.MethodGet, "/catalog/Goa/districts", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown state, got %d", rr.Code)
	}
}
