package scraper

import (
	"context"
	"errors"
	"fmt"

	"ecourt-scraper/internal/artifact"
	"ecourt-scraper/internal/browser"
)

var (
	// ErrTimeout classifies a flow aborted by a step exceeding its bound.
	ErrTimeout = errors.New("timeout waiting for page elements")
	// ErrSite classifies any other flow abort: markup changes, navigation
	// errors, rejected options.
	ErrSite = errors.New("site error")
	// ErrDownload marks a single failed PDF download. It never aborts a flow.
	ErrDownload = errors.New("download failed")
)

type Step string

const (
	StepLaunch         Step = "launch"
	StepNavigate       Step = "navigate"
	StepLocateInput    Step = "locate_input"
	StepSubmit         Step = "submit"
	StepSettle         Step = "wait_settle"
	StepExtractRows    Step = "extract_rows"
	StepSelectState    Step = "select_state"
	StepSelectDistrict Step = "select_district"
	StepSelectComplex  Step = "select_complex"
	StepSetDate        Step = "set_date"
	StepExtractJudges  Step = "extract_judges"
	StepFlow           Step = "flow"
)

// StepError is the terminal error of a flow. It matches ErrTimeout or
// ErrSite under errors.Is, as well as the underlying cause.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{e.kind(), e.Err}
}

func (e *StepError) kind() error {
	if errors.Is(e.Err, browser.ErrTimeout) || errors.Is(e.Err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrSite
}

func stepErr(step Step, err error) error {
	return &StepError{Step: step, Err: err}
}

// Exit codes the CLI uses so a parent process can recover the error class.
const (
	ExitFailure = 1
	ExitSite    = 2
	ExitTimeout = 3
	// ExitMissingOutput: the flow ran but its result document was not written.
	ExitMissingOutput = 4
)

func ExitCode(err error) int {
	switch {
	case errors.Is(err, artifact.ErrMissingOutput):
		return ExitMissingOutput
	case errors.Is(err, ErrTimeout):
		return ExitTimeout
	case errors.Is(err, ErrSite):
		return ExitSite
	default:
		return ExitFailure
	}
}

// FromExit rebuilds a classified error from a CLI exit code and its stderr.
func FromExit(code int, msg string) error {
	switch code {
	case ExitTimeout:
		return fmt.Errorf("%w: %s", ErrTimeout, msg)
	case ExitSite:
		return fmt.Errorf("%w: %s", ErrSite, msg)
	case ExitMissingOutput:
		return fmt.Errorf("%w: %s", artifact.ErrMissingOutput, msg)
	default:
		return errors.New(msg)
	}
}
