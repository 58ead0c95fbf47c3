// Package export renders job results as spreadsheets.
package export

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"ecourt-scraper/internal/entity"
)

var ErrNoResult = errors.New("job has no result")

// JobXLSX returns a workbook with a Summary sheet and a Cases or Judges
// sheet, rows in the order they were found on the page.
func JobXLSX(job *entity.Job) ([]byte, error) {
	if job == nil || job.Result == nil {
		return nil, ErrNoResult
	}

	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	req := job.Request
	pairs := [][2]string{
		{"Job ID", job.ID.String()},
		{"Kind", string(req.Kind)},
		{"Status", string(job.Status)},
		{"Date", req.Date()},
	}
	switch {
	case req.Cnr != nil:
		pairs = append(pairs, [2]string{"CNR", req.Cnr.CNR})
	case req.CauseList != nil:
		pairs = append(pairs,
			[2]string{"State", req.CauseList.State},
			[2]string{"District", req.CauseList.District},
			[2]string{"Complex", req.CauseList.Complex},
		)
	}
	if job.Artifacts != nil {
		pairs = append(pairs, [2]string{"Result File", job.Artifacts.ResultFile})
	}
	for i, p := range pairs {
		_ = f.SetCellValue(summary, cell(1, i+1), p[0])
		_ = f.SetCellValue(summary, cell(2, i+1), p[1])
	}
	_ = f.SetColWidth(summary, "A", "A", 14)
	_ = f.SetColWidth(summary, "B", "B", 48)

	var err error
	if job.Result.CauseList != nil {
		err = writeJudges(f, job.Result.CauseList.Judges)
	} else {
		err = writeCases(f, job.Result.Cases)
	}
	if err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeCases(f *excelize.File, rows []entity.CaseRow) error {
	const sheet = "Cases"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header(f, sheet, "Serial", "Court", "Row Text", "PDF Link", "Downloaded PDF")
	for i, r := range rows {
		row := i + 2
		for col, v := range []string{r.Serial, r.Court, r.RowText, r.PDFLink, r.DownloadedPDF} {
			_ = f.SetCellValue(sheet, cell(col+1, row), v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 24)
	_ = f.SetColWidth(sheet, "C", "C", 60)
	_ = f.SetColWidth(sheet, "D", "E", 40)
	return nil
}

func writeJudges(f *excelize.File, judges []entity.JudgeEntry) error {
	const sheet = "Judges"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header(f, sheet, "#", "Judge", "PDF Link", "Downloaded PDF")
	for i, j := range judges {
		row := i + 2
		_ = f.SetCellValue(sheet, cell(1, row), i+1)
		for col, v := range []string{j.JudgeText, j.PDFLink, j.DownloadedPDF} {
			_ = f.SetCellValue(sheet, cell(col+2, row), v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 6)
	_ = f.SetColWidth(sheet, "B", "B", 40)
	_ = f.SetColWidth(sheet, "C", "D", 48)
	return nil
}

func header(f *excelize.File, sheet string, names ...string) {
	for i, h := range names {
		_ = f.SetCellValue(sheet, cell(i+1, 1), h)
	}
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
