// Package artifact owns the shared output area: result documents, downloaded
// PDFs, and the correlation of both back to the job that produced them.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ecourt-scraper/internal/entity"
)

var (
	// ErrMissingOutput means a run finished without a result document.
	ErrMissingOutput = errors.New("scraper ran but did not produce an output file")
	// ErrInvalidName is returned for names that would leave the output area.
	ErrInvalidName = errors.New("invalid artifact name")
)

// DefaultBasename names result documents written without an explicit base.
const DefaultBasename = "ecourts_result"

const stampLayout = "20060102_150405"

// Document is the serialized form of one extraction run.
type Document struct {
	InvokedAt   time.Time                `json:"invoked_at"`
	DateChecked string                   `json:"date_checked"`
	Args        entity.ExtractionRequest `json:"args"`
	Result      entity.ExtractionResult  `json:"result"`
}

// Store reads and writes artifacts under dir; PDFs go to pdfDir.
type Store struct {
	dir    string
	pdfDir string
	now    func() time.Time
}

func NewStore(dir, pdfDir string) (*Store, error) {
	if pdfDir == "" {
		pdfDir = filepath.Join(dir, "pdfs")
	}
	for _, d := range []string{dir, pdfDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	return &Store{dir: dir, pdfDir: pdfDir, now: time.Now}, nil
}

func (s *Store) Dir() string    { return s.dir }
func (s *Store) PDFDir() string { return s.pdfDir }

// WriteResult stores doc as {basename}_{YYYYmmdd_HHMMSS}.json and returns the
// file name relative to the output dir. The file appears atomically.
func (s *Store) WriteResult(basename string, doc Document) (string, error) {
	if basename == "" {
		basename = DefaultBasename
	}
	if !filepath.IsLocal(basename) || strings.ContainsAny(basename, `/\`) {
		return "", fmt.Errorf("basename %q: %w", basename, ErrInvalidName)
	}
	name := fmt.Sprintf("%s_%s.json", basename, s.now().Format(stampLayout))

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	if err := writeAtomic(s.dir, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// SavePDF writes a downloaded PDF and returns its path as stored on the
// result (output dir joined with the relative name).
func (s *Store) SavePDF(name string, data []byte) (string, error) {
	name = pdfName(name)
	if err := writeAtomic(s.pdfDir, name, data); err != nil {
		return "", err
	}
	return filepath.Join(s.pdfDir, name), nil
}

// Rel converts a stored path into a name relative to the output dir, the
// form used in job artifacts and the /outputs route.
func (s *Store) Rel(path string) string {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || !filepath.IsLocal(rel) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Open opens an artifact by its name relative to the output dir.
func (s *Store) Open(name string) (*os.File, error) {
	name = filepath.FromSlash(strings.TrimPrefix(name, "/"))
	if name == "" || !filepath.IsLocal(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%q is a directory: %w", name, ErrInvalidName)
	}
	return f, nil
}

// pdfName keeps a PDF inside the PDF dir whatever labels went into its name.
func pdfName(name string) string {
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		name = "document"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
