// Package scraper implements the portal flows: a CNR lookup and a cause-list
// download for a court complex. Each run owns one browser session.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ecourt-scraper/internal/browser"
	"ecourt-scraper/internal/config"
	"ecourt-scraper/internal/entity"
)

// PDFSink persists downloaded PDFs and returns the saved path.
type PDFSink interface {
	SavePDF(name string, data []byte) (string, error)
}

type Options struct {
	PortalURL string
	Timeouts  config.TimeoutsConfig
	Selectors config.SelectorsConfig
}

// OptionsFromConfig picks the engine settings out of the app config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PortalURL: cfg.Portal.URL,
		Timeouts:  cfg.Timeouts,
		Selectors: cfg.Selectors,
	}
}

type Engine struct {
	launcher browser.Launcher
	sink     PDFSink
	opts     Options
	log      *slog.Logger
	now      func() time.Time
}

func NewEngine(launcher browser.Launcher, sink PDFSink, opts Options, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{launcher: launcher, sink: sink, opts: opts, log: log, now: time.Now}
}

// WithClock replaces the clock used for default dates and PDF names.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Run executes the flow selected by req.Kind in a fresh browser session.
// Flow failures are returned as *StepError; an empty result is not a failure.
func (e *Engine) Run(ctx context.Context, req entity.ExtractionRequest) (res *entity.ExtractionResult, err error) {
	if err := req.CheckVariant(); err != nil {
		return nil, err
	}
	req = req.WithDefaultDate(e.now())
	start := e.now()

	b, err := e.launcher.Launch(ctx)
	if err != nil {
		return nil, stepErr(StepLaunch, err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			e.log.Warn("close browser", "err", cerr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, stepErr(StepFlow, fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			e.log.Error("extraction failed", "kind", req.Kind, "err", err,
				"duration_ms", e.now().Sub(start).Milliseconds())
		}
	}()

	switch req.Kind {
	case entity.KindCnrLookup:
		e.log.Info("looking up case by cnr", "cnr", req.Cnr.CNR)
		rows, err := e.lookupCnr(ctx, b, req.Cnr)
		if err != nil {
			return nil, err
		}
		e.log.Info("cnr lookup done", "cnr", req.Cnr.CNR, "rows", len(rows),
			"duration_ms", e.now().Sub(start).Milliseconds())
		return &entity.ExtractionResult{Cases: rows}, nil

	default:
		q := req.CauseList
		e.log.Info("fetching cause list", "state", q.State, "district", q.District,
			"complex", q.Complex, "date", q.Date)
		cl, err := e.fetchCauseList(ctx, b, q)
		if err != nil {
			return nil, err
		}
		e.log.Info("cause list done", "complex", q.Complex, "judges", len(cl.Judges),
			"duration_ms", e.now().Sub(start).Milliseconds())
		return &entity.ExtractionResult{CauseList: cl}, nil
	}
}

// download fetches link and saves it as name. Failures are logged and
// returned wrapped in ErrDownload; callers keep the entry either way.
func (e *Engine) download(ctx context.Context, b browser.Browser, link, name string) (string, error) {
	e.log.Info("downloading pdf", "url", link, "file", name)
	data, err := b.FetchBytes(ctx, link, e.opts.Timeouts.Download)
	if err != nil {
		e.log.Error("pdf download failed", "url", link, "err", err)
		return "", fmt.Errorf("%w: %v", ErrDownload, err)
	}
	path, err := e.sink.SavePDF(name, data)
	if err != nil {
		e.log.Error("pdf save failed", "file", name, "err", err)
		return "", fmt.Errorf("%w: %v", ErrDownload, err)
	}
	e.log.Info("pdf saved", "path", path, "bytes", len(data))
	return path, nil
}

// pdfNames keeps the PDF names of one run distinct: a repeated name gets a
// counter before the extension (x.pdf, x_2.pdf, x_3.pdf).
type pdfNames map[string]int

func (n pdfNames) next(name string) string {
	n[name]++
	if c := n[name]; c > 1 {
		return fmt.Sprintf("%s_%d.pdf", strings.TrimSuffix(name, ".pdf"), c)
	}
	return name
}
