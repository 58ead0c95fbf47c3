package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ecourt-scraper/internal/browser"
	"ecourt-scraper/internal/entity"
)

func (e *Engine) lookupCnr(ctx context.Context, b browser.Browser, q *entity.CnrLookup) ([]entity.CaseRow, error) {
	sel, t := e.opts.Selectors, e.opts.Timeouts

	if err := b.Navigate(ctx, e.opts.PortalURL, t.Navigate); err != nil {
		return nil, stepErr(StepNavigate, err)
	}

	if err := b.WaitFor(ctx, sel.CnrInput, t.CnrInput); err != nil {
		return nil, stepErr(StepLocateInput, err)
	}
	if err := b.Fill(ctx, sel.CnrInput, q.CNR, t.CnrInput); err != nil {
		return nil, stepErr(StepLocateInput, err)
	}

	// Some portal variants submit on input; a missing button is fine.
	present, err := b.Exists(ctx, sel.Submit)
	if err != nil {
		e.log.Warn("submit lookup failed, continuing", "err", err)
	}
	if present {
		if err := b.Click(ctx, sel.Submit, t.Selector); err != nil {
			return nil, stepErr(StepSubmit, err)
		}
	}

	if err := b.WaitForNetworkIdle(ctx, t.Settle); err != nil {
		if !errors.Is(err, browser.ErrTimeout) {
			return nil, stepErr(StepSettle, err)
		}
		e.log.Warn("page did not settle, reading rows as they are", "timeout", t.Settle)
	}

	elems, err := b.QueryAll(ctx, sel.ResultRow)
	if err != nil {
		return nil, stepErr(StepExtractRows, err)
	}
	e.log.Info("potential result rows", "count", len(elems))

	rows := []entity.CaseRow{}
	names := pdfNames{}
	for _, el := range elems {
		text := strings.TrimSpace(el.Text())
		if text == "" || !strings.Contains(text, q.CNR) {
			continue
		}

		row := entity.CaseRow{
			RowText: text,
			Serial:  entity.NotAvailable,
			Court:   entity.NotAvailable,
		}
		cells := el.QueryAll("td")
		if len(cells) > 0 {
			row.Serial = strings.TrimSpace(cells[0].Text())
		}
		if len(cells) > 1 {
			row.Court = strings.TrimSpace(cells[1].Text())
		}
		if anchors := el.QueryAll(sel.PDFAnchor); len(anchors) > 0 {
			row.PDFLink, _ = anchors[0].Attr("href")
		}

		if q.DownloadPDF && row.PDFLink != "" {
			name := names.next(fmt.Sprintf("%s_%d.pdf", q.CNR, e.now().Unix()))
			if path, err := e.download(ctx, b, row.PDFLink, name); err == nil {
				row.DownloadedPDF = path
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
