package httptransport

import (
	"html/template"
	"net/http"

	"ecourt-scraper/internal/entity"
)

var statusPage = template.Must(template.New("status").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Job {{.ID}}</title>
{{if not .Terminal}}<meta http-equiv="refresh" content="3">{{end}}
</head>
<body>
<h1>Job {{.ID}}</h1>
<p>Kind: {{.Kind}}<br>Date: {{.Date}}<br>Status: <strong>{{.Status}}</strong></p>
{{if .Error}}<p>Error ({{.ErrorKind}}): {{.Error}}</p>{{end}}
{{if .OutputFile}}<p>Result: <a href="/outputs/{{.OutputFile}}">{{.OutputFile}}</a>
 | <a href="/jobs/{{.ID}}/export.xlsx">xlsx</a></p>{{end}}
{{if .PDFs}}<ul>{{range .PDFs}}<li><a href="/outputs/{{.}}">{{.}}</a></li>{{end}}</ul>{{end}}
</body>
</html>
`))

type statusView struct {
	ID         string
	Kind       entity.RequestKind
	Date       string
	Status     entity.JobStatus
	Terminal   bool
	Error      string
	ErrorKind  entity.ErrorKind
	OutputFile string
	PDFs       []string
}

// StatusPage godoc
// @Summary Human-readable job status
// @Description Refreshes itself until the job is finished, then links the artifacts.
// @Tags jobs
// @Produce html
// @Param id path string true "job id (uuid)"
// @Success 200 {string} string
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /status/{id} [get]
func (h *Handler) StatusPage(w http.ResponseWriter, r *http.Request) {
	j, ok := h.job(w, r)
	if !ok {
		return
	}
	v := statusView{
		ID:        j.ID.String(),
		Kind:      j.Request.Kind,
		Date:      j.Request.Date(),
		Status:    j.Status,
		Terminal:  j.Status.Terminal(),
		ErrorKind: j.ErrorKind,
	}
	if j.Error != nil {
		v.Error = *j.Error
	}
	if j.Artifacts != nil {
		v.OutputFile = j.Artifacts.ResultFile
		v.PDFs = j.Artifacts.PDFs
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusPage.Execute(w, v); err != nil {
		h.log.Error("render status page", "job_id", j.ID, "err", err)
	}
}
