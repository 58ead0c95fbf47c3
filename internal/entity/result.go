package entity

import "encoding/json"

// NotAvailable stands in for table cells missing from a result row.
const NotAvailable = "N/A"

type CaseRow struct {
	RowText       string `json:"row_text"`
	Serial        string `json:"serial"`
	Court         string `json:"court"`
	PDFLink       string `json:"pdf_link,omitempty"`
	DownloadedPDF string `json:"downloaded_pdf,omitempty"`
}

type JudgeEntry struct {
	JudgeText     string `json:"judge_text"`
	PDFLink       string `json:"pdf_link,omitempty"`
	DownloadedPDF string `json:"downloaded_pdf,omitempty"`
}

type CauseListResult struct {
	State    string       `json:"state"`
	District string       `json:"district"`
	Complex  string       `json:"complex"`
	Date     string       `json:"date"`
	Judges   []JudgeEntry `json:"judges"`
}

// ExtractionResult mirrors ExtractionRequest: Cases for a CNR lookup,
// CauseList for a cause-list run.
type ExtractionResult struct {
	Cases     []CaseRow        `json:"cases_found,omitempty"`
	CauseList *CauseListResult `json:"cause_list,omitempty"`
}

// MarshalJSON writes exactly one variant; an empty CNR lookup still yields
// "cases_found": [] so consumers can tell the two kinds apart.
func (r ExtractionResult) MarshalJSON() ([]byte, error) {
	if r.CauseList != nil {
		return json.Marshal(struct {
			CauseList *CauseListResult `json:"cause_list"`
		}{r.CauseList})
	}
	cases := r.Cases
	if cases == nil {
		cases = []CaseRow{}
	}
	return json.Marshal(struct {
		Cases []CaseRow `json:"cases_found"`
	}{cases})
}

// DownloadedPDFs lists saved PDF paths in document order.
func (r *ExtractionResult) DownloadedPDFs() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, c := range r.Cases {
		if c.DownloadedPDF != "" {
			out = append(out, c.DownloadedPDF)
		}
	}
	if r.CauseList != nil {
		for _, j := range r.CauseList.Judges {
			if j.DownloadedPDF != "" {
				out = append(out, j.DownloadedPDF)
			}
		}
	}
	return out
}

func (r *ExtractionResult) Clone() *ExtractionResult {
	if r == nil {
		return nil
	}
	c := &ExtractionResult{}
	if r.Cases != nil {
		c.Cases = append([]CaseRow{}, r.Cases...)
	}
	if r.CauseList != nil {
		cl := *r.CauseList
		cl.Judges = append([]JudgeEntry{}, r.CauseList.Judges...)
		c.CauseList = &cl
	}
	return c
}
