package httptransport

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ecourt-scraper/internal/artifact"
	"ecourt-scraper/internal/catalog"
	"ecourt-scraper/internal/entity"
	"ecourt-scraper/internal/export"
	"ecourt-scraper/internal/service"
)

// FileStore serves artifacts by their name relative to the output dir
// (implementation: artifact.Store).
type FileStore interface {
	Open(name string) (*os.File, error)
}

type Handler struct {
	jobSvc  *service.JobService
	files   FileStore
	catalog *catalog.Catalog
	log     *slog.Logger
}

func NewHandler(jobSvc *service.JobService, files FileStore, cat *catalog.Catalog, log *slog.Logger) *Handler {
	if cat == nil {
		cat = catalog.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{jobSvc: jobSvc, files: files, catalog: cat, log: log}
}

type createJobDTO struct {
	Kind        string `json:"kind"`
	CNR         string `json:"cnr,omitempty"`
	State       string `json:"state,omitempty"`
	District    string `json:"district,omitempty"`
	Complex     string `json:"complex,omitempty"`
	Date        string `json:"date,omitempty"` // YYYY-MM-DD, empty => today
	DownloadPDF bool   `json:"download_pdf"`
}

func (d createJobDTO) request() entity.ExtractionRequest {
	switch entity.RequestKind(d.Kind) {
	case entity.KindCnrLookup:
		return entity.NewCnrRequest(d.CNR, d.Date, d.DownloadPDF)
	case entity.KindCauseList:
		return entity.NewCauseListRequest(d.State, d.District, d.Complex, d.Date, d.DownloadPDF)
	default:
		return entity.ExtractionRequest{Kind: entity.RequestKind(d.Kind)}
	}
}

type createJobResp struct {
	ID string `json:"id"`
}

type jobResp struct {
	ID          string                   `json:"id"`
	Kind        entity.RequestKind       `json:"kind"`
	Status      entity.JobStatus         `json:"status"`
	Request     entity.ExtractionRequest `json:"request"`
	SubmittedAt string                   `json:"submitted_at"`
	StartedAt   *string                  `json:"started_at,omitempty"`
	FinishedAt  *string                  `json:"finished_at,omitempty"`
	OutputFile  string                   `json:"output_file,omitempty"`
	PDFs        []string                 `json:"pdfs,omitempty"`
	Error       *string                  `json:"error,omitempty"`
	ErrorKind   entity.ErrorKind         `json:"error_kind,omitempty"`
}

func newJobResp(j *entity.Job) jobResp {
	resp := jobResp{
		ID:          j.ID.String(),
		Kind:        j.Request.Kind,
		Status:      j.Status,
		Request:     j.Request,
		SubmittedAt: j.SubmittedAt.Format(time.RFC3339),
		StartedAt:   formatTime(j.StartedAt),
		FinishedAt:  formatTime(j.FinishedAt),
		Error:       j.Error,
		ErrorKind:   j.ErrorKind,
	}
	if j.Artifacts != nil {
		resp.OutputFile = j.Artifacts.ResultFile
		resp.PDFs = j.Artifacts.PDFs
	}
	return resp
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// CreateJob godoc
// @Summary Submit an extraction job
// @Description Validates the request, records a pending job and schedules it for background extraction.
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body createJobDTO true "kind is cnr (needs cnr) or causelist (needs state, district, complex)"
// @Success 201 {object} createJobResp
// @Failure 400 {object} apiError
// @Failure 503 {object} apiError
// @Router /jobs [post]
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var dto createJobDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	id, err := h.jobSvc.Submit(r.Context(), dto.request())
	if err != nil {
		writeErr(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, createJobResp{ID: id.String()})
}

// ListJobs godoc
// @Summary List jobs
// @Tags jobs
// @Produce json
// @Success 200 {array} jobResp
// @Router /jobs [get]
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobSvc.List(r.Context())
	out := make([]jobResp, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, newJobResp(j))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetJob godoc
// @Summary Get job by id
// @Tags jobs
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} jobResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, ok := h.job(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newJobResp(j))
}

// GetJobResult godoc
// @Summary Get job result
// @Description Returns cases_found for a CNR lookup or cause_list for a cause-list run.
// @Tags jobs
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /jobs/{id}/result [get]
func (h *Handler) GetJobResult(w http.ResponseWriter, r *http.Request) {
	j, ok := h.completedJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, j.Result)
}

// ExportJob godoc
// @Summary Download job result as a spreadsheet
// @Tags jobs
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "job id (uuid)"
// @Success 200 {file} file
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /jobs/{id}/export.xlsx [get]
func (h *Handler) ExportJob(w http.ResponseWriter, r *http.Request) {
	j, ok := h.completedJob(w, r)
	if !ok {
		return
	}
	data, err := export.JobXLSX(j)
	if err != nil {
		h.log.Error("export job", "job_id", j.ID, "err", err)
		writeErr(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="job_`+j.ID.String()+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetOutput godoc
// @Summary Download an artifact
// @Description Serves a result document or PDF by its path relative to the output dir.
// @Tags outputs
// @Param path path string true "artifact path"
// @Success 200 {file} file
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /outputs/{path} [get]
func (h *Handler) GetOutput(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	f, err := h.files.Open(name)
	switch {
	case errors.Is(err, artifact.ErrInvalidName):
		writeErr(w, http.StatusBadRequest, "invalid path")
		return
	case errors.Is(err, fs.ErrNotExist):
		writeErr(w, http.StatusNotFound, "file not found")
		return
	case err != nil:
		h.log.Error("open output", "name", name, "err", err)
		writeErr(w, http.StatusInternalServerError, "cannot open file")
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "cannot open file")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(name)+`"`)
	http.ServeContent(w, r, path.Base(name), st.ModTime(), f)
}

// GetCatalog godoc
// @Summary States, districts and court complexes known to the service
// @Tags catalog
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /catalog [get]
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog)
}

// ListDistricts godoc
// @Summary Districts of a state, for dependent pickers
// @Tags catalog
// @Produce json
// @Param state path string true "state name"
// @Success 200 {array} string
// @Failure 404 {object} apiError
// @Router /catalog/{state}/districts [get]
func (h *Handler) ListDistricts(w http.ResponseWriter, r *http.Request) {
	districts := h.catalog.Districts(chi.URLParam(r, "state"))
	if districts == nil {
		writeErr(w, http.StatusNotFound, "unknown state")
		return
	}
	writeJSON(w, http.StatusOK, districts)
}

// ListComplexes godoc
// @Summary Court complexes of a district
// @Tags catalog
// @Produce json
// @Param state path string true "state name"
// @Param district path string true "district name"
// @Success 200 {array} string
// @Failure 404 {object} apiError
// @Router /catalog/{state}/{district}/complexes [get]
func (h *Handler) ListComplexes(w http.ResponseWriter, r *http.Request) {
	complexes := h.catalog.Complexes(chi.URLParam(r, "state"), chi.URLParam(r, "district"))
	if complexes == nil {
		writeErr(w, http.StatusNotFound, "unknown state or district")
		return
	}
	writeJSON(w, http.StatusOK, complexes)
}

// job resolves the {id} path parameter, writing 400/404 itself.
func (h *Handler) job(w http.ResponseWriter, r *http.Request) (*entity.Job, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	j, err := h.jobSvc.Status(r.Context(), id)
	if err != nil {
		writeErr(w, statusFor(err), err.Error())
		return nil, false
	}
	return j, true
}

func (h *Handler) completedJob(w http.ResponseWriter, r *http.Request) (*entity.Job, bool) {
	j, ok := h.job(w, r)
	if !ok {
		return nil, false
	}
	if j.Status != entity.StatusCompleted {
		writeErr(w, http.StatusConflict, "job not completed")
		return nil, false
	}
	return j, true
}
