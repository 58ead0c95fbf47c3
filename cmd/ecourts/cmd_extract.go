package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ecourt-scraper/internal/artifact"
	"ecourt-scraper/internal/browser"
	"ecourt-scraper/internal/entity"
	"ecourt-scraper/internal/logging"
	"ecourt-scraper/internal/scraper"
	"ecourt-scraper/internal/service"
)

var extractFlags struct {
	cnr         string
	state       string
	district    string
	complex     string
	date        string
	today       bool
	tomorrow    bool
	downloadPDF bool
	output      string
}

var cnrCmd = &cobra.Command{
	Use:   "cnr",
	Short: "Look up the listings of a case by its CNR",
	RunE: func(cmd *cobra.Command, _ []string) error {
		date, err := resolveDate(extractFlags.date, extractFlags.today, extractFlags.tomorrow, time.Now())
		if err != nil {
			return err
		}
		return runExtract(cmd, entity.NewCnrRequest(extractFlags.cnr, date, extractFlags.downloadPDF))
	},
}

var causeListCmd = &cobra.Command{
	Use:   "causelist",
	Short: "Collect the judges' cause lists of a court complex for a date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		date, err := resolveDate(extractFlags.date, extractFlags.today, extractFlags.tomorrow, time.Now())
		if err != nil {
			return err
		}
		return runExtract(cmd, entity.NewCauseListRequest(
			extractFlags.state, extractFlags.district, extractFlags.complex, date, extractFlags.downloadPDF))
	},
}

func init() {
	for _, c := range []*cobra.Command{cnrCmd, causeListCmd} {
		f := c.Flags()
		f.StringVar(&extractFlags.date, "date", "", "Date to check (YYYY-MM-DD, default today)")
		f.BoolVar(&extractFlags.today, "today", false, "Check listings for today")
		f.BoolVar(&extractFlags.tomorrow, "tomorrow", false, "Check listings for tomorrow")
		f.BoolVar(&extractFlags.downloadPDF, "download-pdf", false, "Download PDF(s) when found")
		f.StringVar(&extractFlags.output, "output", artifact.DefaultBasename, "Output base filename (without extension)")
		c.MarkFlagsMutuallyExclusive("date", "today", "tomorrow")
	}

	cnrCmd.Flags().StringVar(&extractFlags.cnr, "cnr", "", "CNR number to look up (required)")
	_ = cnrCmd.MarkFlagRequired("cnr")

	f := causeListCmd.Flags()
	f.StringVar(&extractFlags.state, "state", "", "State name (required)")
	f.StringVar(&extractFlags.district, "district", "", "District name (required)")
	f.StringVar(&extractFlags.complex, "complex", "", "Court complex name (required)")
	_ = causeListCmd.MarkFlagRequired("state")
	_ = causeListCmd.MarkFlagRequired("district")
	_ = causeListCmd.MarkFlagRequired("complex")
}

// resolveDate turns the date flags into a YYYY-MM-DD string. An empty result
// leaves the default (today) to the engine.
func resolveDate(date string, today, tomorrow bool, now time.Time) (string, error) {
	switch {
	case today && tomorrow:
		return "", errors.New("--today and --tomorrow are mutually exclusive")
	case today:
		return now.Format(entity.DateLayout), nil
	case tomorrow:
		return now.AddDate(0, 0, 1).Format(entity.DateLayout), nil
	}
	return date, nil
}

func runExtract(cmd *cobra.Command, req entity.ExtractionRequest) error {
	if err := service.ValidateRequest(req); err != nil {
		return err
	}
	invokedAt := time.Now()
	req = req.WithDefaultDate(invokedAt)
	log := logging.New("cli")

	store, err := artifact.NewStore(cfg.Output.Dir, cfg.Output.PDFDir)
	if err != nil {
		return err
	}
	launcher, err := browser.NewLauncher(cfg.Browser.Driver, browser.Options{
		Headless: cfg.Browser.Headless,
		ExecPath: cfg.Browser.ExecPath,
	})
	if err != nil {
		return err
	}
	engine := scraper.NewEngine(launcher, store, scraper.OptionsFromConfig(cfg), logging.New("scraper"))

	res, err := engine.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	name, err := store.WriteResult(extractFlags.output, artifact.Document{
		InvokedAt:   invokedAt,
		DateChecked: req.Date(),
		Args:        req,
		Result:      *res,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", artifact.ErrMissingOutput, err)
	}
	log.Info("result saved", "output_file", name, "pdfs", len(res.DownloadedPDFs()))

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
