package entity

import (
	"fmt"
	"time"
)

type RequestKind string

const (
	KindCnrLookup RequestKind = "cnr"
	KindCauseList RequestKind = "causelist"
)

// DateLayout is the ISO date format the portal's date input accepts.
const DateLayout = "2006-01-02"

type CnrLookup struct {
	CNR         string `json:"cnr" validate:"required"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DownloadPDF bool   `json:"download_pdf"`
}

type CauseList struct {
	State       string `json:"state" validate:"required"`
	District    string `json:"district" validate:"required"`
	Complex     string `json:"complex" validate:"required"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DownloadPDF bool   `json:"download_pdf"`
}

// ExtractionRequest carries exactly one of Cnr or CauseList, selected by Kind.
type ExtractionRequest struct {
	Kind      RequestKind `json:"kind" validate:"required,oneof=cnr causelist"`
	Cnr       *CnrLookup  `json:"cnr_lookup,omitempty" validate:"omitempty"`
	CauseList *CauseList  `json:"cause_list,omitempty" validate:"omitempty"`
}

func NewCnrRequest(cnr, date string, downloadPDF bool) ExtractionRequest {
	return ExtractionRequest{
		Kind: KindCnrLookup,
		Cnr:  &CnrLookup{CNR: cnr, Date: date, DownloadPDF: downloadPDF},
	}
}

func NewCauseListRequest(state, district, complex, date string, downloadPDF bool) ExtractionRequest {
	return ExtractionRequest{
		Kind: KindCauseList,
		CauseList: &CauseList{
			State:       state,
			District:    district,
			Complex:     complex,
			Date:        date,
			DownloadPDF: downloadPDF,
		},
	}
}

// CheckVariant verifies that the payload matches Kind. Field-level rules are
// enforced by struct tags.
func (r ExtractionRequest) CheckVariant() error {
	switch r.Kind {
	case KindCnrLookup:
		if r.Cnr == nil || r.CauseList != nil {
			return fmt.Errorf("kind %q requires only the cnr lookup payload", r.Kind)
		}
	case KindCauseList:
		if r.CauseList == nil || r.Cnr != nil {
			return fmt.Errorf("kind %q requires only the cause list payload", r.Kind)
		}
	default:
		return fmt.Errorf("unknown request kind %q", r.Kind)
	}
	return nil
}

func (r ExtractionRequest) Date() string {
	switch {
	case r.Cnr != nil:
		return r.Cnr.Date
	case r.CauseList != nil:
		return r.CauseList.Date
	}
	return ""
}

func (r ExtractionRequest) DownloadPDF() bool {
	switch {
	case r.Cnr != nil:
		return r.Cnr.DownloadPDF
	case r.CauseList != nil:
		return r.CauseList.DownloadPDF
	}
	return false
}

// WithDefaultDate fills an empty date with the local calendar date of now.
func (r ExtractionRequest) WithDefaultDate(now time.Time) ExtractionRequest {
	c := r.Clone()
	today := now.Format(DateLayout)
	if c.Cnr != nil && c.Cnr.Date == "" {
		c.Cnr.Date = today
	}
	if c.CauseList != nil && c.CauseList.Date == "" {
		c.CauseList.Date = today
	}
	return c
}

func (r ExtractionRequest) Clone() ExtractionRequest {
	c := ExtractionRequest{Kind: r.Kind}
	if r.Cnr != nil {
		v := *r.Cnr
		c.Cnr = &v
	}
	if r.CauseList != nil {
		v := *r.CauseList
		c.CauseList = &v
	}
	return c
}
