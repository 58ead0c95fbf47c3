// Package browsertest provides an in-memory browser.Browser driven by HTML
// fixtures, for testing flows without a real browser.
package browsertest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"ecourt-scraper/internal/browser"
)

// Call records one invocation on a Browser.
type Call struct {
	Op     string
	Target string
	Value  string
}

// Browser serves QueryAll/WaitFor/Exists from HTML. Interactions only check
// that their target exists and record the call.
type Browser struct {
	mu sync.Mutex

	// HTML is the current page.
	HTML string
	// AfterClick, when set, replaces HTML on the first click.
	AfterClick string
	// Options restricts the labels SelectOption accepts, per selector.
	// Selectors without an entry accept any label.
	Options map[string][]string
	// Files maps fetched URLs to their bytes; unknown URLs fail.
	Files map[string][]byte

	errs   map[string]error
	calls  []Call
	closed bool
}

func New(html string) *Browser {
	return &Browser{HTML: html, Files: map[string][]byte{}, Options: map[string][]string{}}
}

// Fail makes op fail with err. target narrows the failure to one selector or
// URL; an empty target fails every call of op. Ops are the method names.
func (b *Browser) Fail(op, target string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.errs == nil {
		b.errs = map[string]error{}
	}
	b.errs[op+"|"+target] = err
}

func (b *Browser) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Ops lists the op names of recorded calls in order.
func (b *Browser) Ops() []string {
	var ops []string
	for _, c := range b.Calls() {
		ops = append(ops, c.Op)
	}
	return ops
}

func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Browser) record(op, target, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, Call{Op: op, Target: target, Value: value})
	if err, ok := b.errs[op+"|"+target]; ok {
		return err
	}
	if err, ok := b.errs[op+"|"]; ok {
		return err
	}
	return nil
}

func (b *Browser) snapshot() (*browser.Document, error) {
	b.mu.Lock()
	html := b.HTML
	b.mu.Unlock()
	return browser.ParseHTML(html)
}

func (b *Browser) present(selector string) (bool, error) {
	doc, err := b.snapshot()
	if err != nil {
		return false, err
	}
	return len(doc.QueryAll(selector)) > 0, nil
}

func (b *Browser) mustExist(op, selector string) error {
	ok, err := b.present(selector)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %q: %w", op, selector, browser.ErrTimeout)
	}
	return nil
}

func (b *Browser) Navigate(_ context.Context, url string, _ time.Duration) error {
	return b.record("Navigate", url, "")
}

func (b *Browser) WaitFor(_ context.Context, selector string, _ time.Duration) error {
	if err := b.record("WaitFor", selector, ""); err != nil {
		return err
	}
	return b.mustExist("wait for", selector)
}

func (b *Browser) WaitForNetworkIdle(_ context.Context, _ time.Duration) error {
	return b.record("WaitForNetworkIdle", "", "")
}

func (b *Browser) Fill(_ context.Context, selector, value string, _ time.Duration) error {
	if err := b.record("Fill", selector, value); err != nil {
		return err
	}
	return b.mustExist("fill", selector)
}

func (b *Browser) Click(_ context.Context, selector string, _ time.Duration) error {
	if err := b.record("Click", selector, ""); err != nil {
		return err
	}
	if err := b.mustExist("click", selector); err != nil {
		return err
	}
	b.mu.Lock()
	if b.AfterClick != "" {
		b.HTML, b.AfterClick = b.AfterClick, ""
	}
	b.mu.Unlock()
	return nil
}

func (b *Browser) SelectOption(_ context.Context, selector, label string, _ time.Duration) error {
	if err := b.record("SelectOption", selector, label); err != nil {
		return err
	}
	if err := b.mustExist("select", selector); err != nil {
		return err
	}
	b.mu.Lock()
	allowed, restricted := b.Options[selector]
	b.mu.Unlock()
	if restricted && !slices.Contains(allowed, label) {
		return fmt.Errorf("select %q in %q: %w", label, selector, browser.ErrNoOption)
	}
	return nil
}

func (b *Browser) Exists(_ context.Context, selector string) (bool, error) {
	if err := b.record("Exists", selector, ""); err != nil {
		return false, err
	}
	return b.present(selector)
}

func (b *Browser) QueryAll(_ context.Context, selector string) ([]browser.Element, error) {
	if err := b.record("QueryAll", selector, ""); err != nil {
		return nil, err
	}
	doc, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	return doc.QueryAll(selector), nil
}

func (b *Browser) FetchBytes(_ context.Context, url string, _ time.Duration) ([]byte, error) {
	if err := b.record("FetchBytes", url, ""); err != nil {
		return nil, err
	}
	b.mu.Lock()
	data, ok := b.Files[url]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("fetch %s: status 404", url)
	}
	return data, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Launcher hands out a fixed Browser.
type Launcher struct {
	Browser *Browser
	Err     error

	mu       sync.Mutex
	launches int
}

func (l *Launcher) Launch(context.Context) (browser.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Browser, nil
}

func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}
