package worker

import (
	"context"
	"fmt"
	"time"

	"ecourt-scraper/internal/artifact"
	"ecourt-scraper/internal/entity"
)

// Extractor runs a scraping flow (implementation: scraper.Engine).
type Extractor interface {
	Run(ctx context.Context, req entity.ExtractionRequest) (*entity.ExtractionResult, error)
}

// ResultStore persists result documents (implementation: artifact.Store).
type ResultStore interface {
	WriteResult(basename string, doc artifact.Document) (string, error)
	Rel(path string) string
}

// InProcessRunner runs the engine in this process. Artifacts come straight
// from the result, so nothing has to be rediscovered on disk.
type InProcessRunner struct {
	engine Extractor
	store  ResultStore
	now    func() time.Time
}

func NewInProcessRunner(engine Extractor, store ResultStore) *InProcessRunner {
	return &InProcessRunner{engine: engine, store: store, now: time.Now}
}

func (r *InProcessRunner) Run(ctx context.Context, job *entity.Job) (*entity.ExtractionResult, entity.Artifacts, error) {
	invokedAt := r.now()
	res, err := r.engine.Run(ctx, job.Request)
	if err != nil {
		return nil, entity.Artifacts{}, err
	}

	doc := artifact.Document{
		InvokedAt:   invokedAt,
		DateChecked: job.Request.Date(),
		Args:        job.Request,
		Result:      *res,
	}
	name, err := r.store.WriteResult(artifact.ResultBasename(job.ID.String()), doc)
	if err != nil {
		return nil, entity.Artifacts{}, fmt.Errorf("%w: %v", artifact.ErrMissingOutput, err)
	}

	arts := entity.Artifacts{ResultFile: name, PDFs: []string{}}
	for _, p := range res.DownloadedPDFs() {
		arts.PDFs = append(arts.PDFs, r.store.Rel(p))
	}
	return res, arts, nil
}
