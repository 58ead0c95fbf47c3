// Package browser is the automation capability the scraper drives: a narrow
// navigate/wait/fill/click/read/download surface over a real browser engine.
//
// Reads (QueryAll, Element.Text, Element.Attr) work on a DOM snapshot taken
// at call time, so elements never go stale while a flow iterates them.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is returned when a step exceeds its caller-specified bound.
	ErrTimeout = errors.New("browser: timeout")
	// ErrNoElement is returned when an interaction target does not exist.
	ErrNoElement = errors.New("browser: element not found")
	// ErrNoOption is returned when a select has no option with the given label.
	ErrNoOption = errors.New("browser: option not found")
)

// Element is a read-only node of a DOM snapshot.
type Element interface {
	Text() string
	Attr(name string) (string, bool)
	QueryAll(selector string) []Element
}

// Browser is one exclusive browser session (a single page).
type Browser interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	SelectOption(ctx context.Context, selector, label string, timeout time.Duration) error
	Exists(ctx context.Context, selector string) (bool, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	FetchBytes(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
	Close() error
}

// Launcher opens a fresh session per call; sessions are never shared.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

type Options struct {
	Headless bool
	ExecPath string
}

const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

func NewLauncher(driver string, opts Options) (Launcher, error) {
	switch driver {
	case "", DriverChromedp:
		return NewChromeLauncher(opts), nil
	case DriverPlaywright:
		return NewPlaywrightLauncher(opts), nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q", driver)
	}
}

// networkIdleWindow is how long the network must stay quiet to count as idle.
const networkIdleWindow = 500 * time.Millisecond
