package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ecourt-scraper/internal/browser"
	"ecourt-scraper/internal/entity"
)

func (e *Engine) fetchCauseList(ctx context.Context, b browser.Browser, q *entity.CauseList) (*entity.CauseListResult, error) {
	sel, t := e.opts.Selectors, e.opts.Timeouts

	if err := b.Navigate(ctx, e.opts.PortalURL, t.Navigate); err != nil {
		return nil, stepErr(StepNavigate, err)
	}

	// State and district selections reload the dependent dropdown, so the
	// network has to settle before the next select is touched.
	if err := e.selectOption(ctx, b, StepSelectState, sel.State, q.State, t.Reload); err != nil {
		return nil, err
	}
	if q.District != "" {
		if err := e.selectOption(ctx, b, StepSelectDistrict, sel.District, q.District, t.Reload); err != nil {
			return nil, err
		}
	}
	if q.Complex != "" {
		if err := e.selectOption(ctx, b, StepSelectComplex, sel.Complex, q.Complex, 0); err != nil {
			return nil, err
		}
	}

	if err := b.Fill(ctx, sel.Date, q.Date, t.Selector); err != nil {
		return nil, stepErr(StepSetDate, err)
	}

	if err := b.Click(ctx, sel.Submit, t.Selector); err != nil {
		return nil, stepErr(StepSubmit, err)
	}
	if err := b.WaitForNetworkIdle(ctx, t.Results); err != nil {
		return nil, stepErr(StepSubmit, err)
	}

	anchors, err := b.QueryAll(ctx, sel.PDFAnchor)
	if err != nil {
		return nil, stepErr(StepExtractJudges, err)
	}
	e.log.Info("judge cause list pdfs", "count", len(anchors))

	out := &entity.CauseListResult{
		State:    q.State,
		District: q.District,
		Complex:  q.Complex,
		Date:     q.Date,
		Judges:   []entity.JudgeEntry{},
	}
	names := pdfNames{}
	for i, a := range anchors {
		href, _ := a.Attr("href")
		label := strings.TrimSpace(a.Text())
		if label == "" {
			label = fmt.Sprintf("Judge_%d", i+1)
		}
		entry := entity.JudgeEntry{JudgeText: label, PDFLink: href}

		if q.DownloadPDF && href != "" {
			name := names.next(fmt.Sprintf("%s_%s_%s.pdf", q.Date, q.Complex, SanitizeLabel(label)))
			if path, err := e.download(ctx, b, href, name); err == nil {
				entry.DownloadedPDF = path
			}
		}
		out.Judges = append(out.Judges, entry)
	}
	return out, nil
}

// selectOption picks label in selector, then waits for the dependent reload
// when settle is non-zero.
func (e *Engine) selectOption(ctx context.Context, b browser.Browser, step Step, selector, label string, settle time.Duration) error {
	t := e.opts.Timeouts
	if err := b.WaitFor(ctx, selector, t.Selector); err != nil {
		return stepErr(step, err)
	}
	if err := b.SelectOption(ctx, selector, label, t.Selector); err != nil {
		return stepErr(step, err)
	}
	if settle > 0 {
		if err := b.WaitForNetworkIdle(ctx, settle); err != nil {
			return stepErr(step, err)
		}
	}
	return nil
}
