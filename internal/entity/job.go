package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type ErrorKind string

const (
	ErrorKindTimeout       ErrorKind = "timeout"
	ErrorKindSite          ErrorKind = "site_error"
	ErrorKindMissingOutput ErrorKind = "missing_output"
	ErrorKindInternal      ErrorKind = "internal"
)

// Artifacts are the files a job produced under the shared output area.
// Names are relative to the output dir.
type Artifacts struct {
	ResultFile string   `json:"output_file"`
	PDFs       []string `json:"pdfs"`
}

type Job struct {
	ID          uuid.UUID         `json:"id"`
	Status      JobStatus         `json:"status"`
	Request     ExtractionRequest `json:"request"`
	SubmittedAt time.Time         `json:"submitted_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	Result      *ExtractionResult `json:"result,omitempty"`
	Artifacts   *Artifacts        `json:"artifacts,omitempty"`
	Error       *string           `json:"error,omitempty"`
	ErrorKind   ErrorKind         `json:"error_kind,omitempty"`
}

// Clone returns a deep copy so callers never share mutable state with the registry.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Request = j.Request.Clone()
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	if j.Result != nil {
		c.Result = j.Result.Clone()
	}
	if j.Artifacts != nil {
		a := *j.Artifacts
		a.PDFs = append([]string{}, j.Artifacts.PDFs...)
		c.Artifacts = &a
	}
	if j.Error != nil {
		e := *j.Error
		c.Error = &e
	}
	return &c
}
