// ecourts scrapes the eCourts portal: one-off CNR lookups and cause-list
// downloads from the command line, or a job API with background workers.
//
// Usage:
//
//	ecourts serve
//	ecourts cnr --cnr <CNR> [--today|--tomorrow|--date YYYY-MM-DD] [--download-pdf] [--output base]
//	ecourts causelist --state <S> --district <D> --complex <C> [--date YYYY-MM-DD] [--download-pdf]
//
// On failure the last line of stderr is the error message and the exit code
// tells timeouts (3), site errors (2) and an unwritten result document (4)
// apart from other failures (1).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ecourt-scraper/internal/scraper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(scraper.ExitCode(err))
	}
}
