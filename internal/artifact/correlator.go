package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ecourt-scraper/internal/entity"
)

// CorrelationSlack widens the PDF window to absorb coarse file mtimes.
const CorrelationSlack = time.Second

// ResultBasename is the document basename a job passes to the CLI.
func ResultBasename(jobID string) string {
	return "web_" + jobID
}

// Correlator rediscovers the artifacts of a run that happened outside this
// process, from file names and modification times alone.
type Correlator struct {
	store *Store
}

func NewCorrelator(store *Store) *Correlator {
	return &Correlator{store: store}
}

// Locate returns the job's result document and the PDFs written since
// startedAt (minus CorrelationSlack). The PDF match is best effort: any job
// running in an overlapping window claims the same files, and there is no
// upper bound on the window.
func (c *Correlator) Locate(jobID string, startedAt time.Time) (entity.Artifacts, error) {
	pattern := filepath.Join(c.store.dir, ResultBasename(jobID)+"_*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return entity.Artifacts{}, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return entity.Artifacts{}, ErrMissingOutput
	}
	sort.Strings(matches)

	pdfs, err := c.pdfsSince(startedAt.Add(-CorrelationSlack))
	if err != nil {
		return entity.Artifacts{}, err
	}
	return entity.Artifacts{
		ResultFile: filepath.Base(matches[len(matches)-1]),
		PDFs:       pdfs,
	}, nil
}

func (c *Correlator) pdfsSince(since time.Time) ([]string, error) {
	entries, err := os.ReadDir(c.store.pdfDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pdf dir: %w", err)
	}

	pdfs := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(since) {
			pdfs = append(pdfs, c.store.Rel(filepath.Join(c.store.pdfDir, e.Name())))
		}
	}
	// ReadDir is already name-ordered
	return pdfs, nil
}
