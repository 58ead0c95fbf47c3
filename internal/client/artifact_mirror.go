package client

import (
	"context"
	"io"
	"log/slog"
	"path"
	"strings"

	"ecourt-scraper/internal/entity"
)

type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
}

// ArtifactSource opens artifacts by name (implementation: artifact.Store).
type ArtifactSource interface {
	Open(name string) (io.ReadCloser, error)
}

// SourceFunc adapts an open function to ArtifactSource.
type SourceFunc func(name string) (io.ReadCloser, error)

func (f SourceFunc) Open(name string) (io.ReadCloser, error) { return f(name) }

// ArtifactMirror copies the artifacts of completed jobs to object storage
// under {prefix}/{job_id}/{name}. It is a service.Observer.
type ArtifactMirror struct {
	up     Uploader
	files  ArtifactSource
	prefix string
	log    *slog.Logger
}

func NewArtifactMirror(up Uploader, files ArtifactSource, prefix string, log *slog.Logger) *ArtifactMirror {
	if log == nil {
		log = slog.Default()
	}
	return &ArtifactMirror{up: up, files: files, prefix: strings.Trim(prefix, "/"), log: log}
}

// Key is the object key of an artifact.
func (m *ArtifactMirror) Key(job *entity.Job, name string) string {
	return path.Join(m.prefix, job.ID.String(), name)
}

func (m *ArtifactMirror) JobChanged(ctx context.Context, job *entity.Job) {
	if job.Status != entity.StatusCompleted || job.Artifacts == nil {
		return
	}
	names := append([]string{job.Artifacts.ResultFile}, job.Artifacts.PDFs...)
	uploaded := 0
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := m.upload(ctx, job, name); err != nil {
			m.log.Warn("mirror artifact", "job_id", job.ID, "file", name, "err", err)
			continue
		}
		uploaded++
	}
	m.log.Info("artifacts mirrored", "job_id", job.ID, "uploaded", uploaded, "total", len(names))
}

func (m *ArtifactMirror) upload(ctx context.Context, job *entity.Job, name string) error {
	f, err := m.files.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.up.Upload(ctx, m.Key(job, name), f, contentType(name))
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return "application/json"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
