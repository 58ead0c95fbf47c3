package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"ecourt-scraper/internal/artifact"
	"ecourt-scraper/internal/entity"
	"ecourt-scraper/internal/scraper"
)

// SubprocessRunner runs each job through the CLI in a child process and
// rediscovers its output with the correlator. PDF attribution is best
// effort; see artifact.Correlator.
type SubprocessRunner struct {
	command    []string
	store      *artifact.Store
	correlator *artifact.Correlator
	log        *slog.Logger
}

// NewSubprocessRunner splits command on whitespace; an empty command
// re-executes the current binary.
func NewSubprocessRunner(command string, store *artifact.Store, log *slog.Logger) (*SubprocessRunner, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		argv = []string{self}
	}
	if log == nil {
		log = slog.Default()
	}
	return &SubprocessRunner{
		command:    argv,
		store:      store,
		correlator: artifact.NewCorrelator(store),
		log:        log,
	}, nil
}

// CLIArgs renders req as arguments of the cnr or causelist command.
func CLIArgs(req entity.ExtractionRequest, output string) []string {
	var args []string
	switch req.Kind {
	case entity.KindCnrLookup:
		args = []string{"cnr", "--cnr", req.Cnr.CNR}
	case entity.KindCauseList:
		q := req.CauseList
		args = []string{"causelist", "--state", q.State, "--district", q.District, "--complex", q.Complex}
	}
	if d := req.Date(); d != "" {
		args = append(args, "--date", d)
	}
	if req.DownloadPDF() {
		args = append(args, "--download-pdf")
	}
	return append(args, "--output", output)
}

func (r *SubprocessRunner) Run(ctx context.Context, job *entity.Job) (*entity.ExtractionResult, entity.Artifacts, error) {
	start := time.Now()
	args := append(append([]string{}, r.command[1:]...), CLIArgs(job.Request, artifact.ResultBasename(job.ID.String()))...)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.command[0], args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	r.log.Info("running scraper subprocess", "job_id", job.ID, "cmd", strings.Join(cmd.Args, " "))
	if err := cmd.Run(); err != nil {
		msg := lastLine(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, entity.Artifacts{}, scraper.FromExit(exitErr.ExitCode(), msg)
		}
		return nil, entity.Artifacts{}, fmt.Errorf("run scraper: %s", msg)
	}

	arts, err := r.correlator.Locate(job.ID.String(), start)
	if err != nil {
		return nil, entity.Artifacts{}, err
	}
	doc, err := r.store.ReadResult(arts.ResultFile)
	if err != nil {
		return nil, entity.Artifacts{}, err
	}
	return &doc.Result, arts, nil
}

// lastLine returns the final non-empty line of the child's stderr, where the
// CLI reports its terminal error after any log output.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
