package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	pollInterval    = 100 * time.Millisecond
	snapshotTimeout = 10 * time.Second
)

// ChromeLauncher starts a dedicated Chrome process per session via chromedp.
type ChromeLauncher struct {
	opts Options
}

func NewChromeLauncher(opts Options) *ChromeLauncher {
	return &ChromeLauncher{opts: opts}
}

func (l *ChromeLauncher) Launch(ctx context.Context) (Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if l.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	tracker := newNetTracker()
	chromedp.ListenTarget(tabCtx, tracker.handle)

	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &chromeSession{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		net: tracker,
	}, nil
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	net    *netTracker
	once   sync.Once
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		tctx   context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		tctx, cancel = context.WithTimeout(s.ctx, timeout)
	} else {
		tctx, cancel = context.WithCancel(s.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tctx, actions...)
	if err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func (s *chromeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *chromeSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	expr, err := findExpr(selector, "return !!el;")
	if err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	for {
		var found bool
		if err := s.run(ctx, snapshotTimeout, chromedp.Evaluate(expr, &found)); err != nil {
			return fmt.Errorf("wait for %q: %w", selector, err)
		}
		if found {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("wait for %q: %w", selector, ErrTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (s *chromeSession) WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if s.net.idleFor() >= networkIdleWindow {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("network idle: %w", ErrTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *chromeSession) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	v, _ := json.Marshal(value)
	return s.act(ctx, selector, timeout, fmt.Sprintf(`
		el.focus();
		el.value = %s;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return 'ok';`, v))
}

func (s *chromeSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return s.act(ctx, selector, timeout, `el.click(); return 'ok';`)
}

func (s *chromeSession) SelectOption(ctx context.Context, selector, label string, timeout time.Duration) error {
	l, _ := json.Marshal(label)
	return s.act(ctx, selector, timeout, fmt.Sprintf(`
		const want = %s;
		const opt = Array.from(el.options || []).find(o => o.label.trim() === want || o.text.trim() === want);
		if (!opt) return 'nooption';
		el.value = opt.value;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return 'ok';`, l))
}

// act waits for selector and then runs body with the element bound to `el`.
func (s *chromeSession) act(ctx context.Context, selector string, timeout time.Duration, body string) error {
	if err := s.WaitFor(ctx, selector, timeout); err != nil {
		return err
	}
	expr, err := findExpr(selector, "if (!el) return 'missing';\n"+body)
	if err != nil {
		return err
	}
	var res string
	if err := s.run(ctx, timeout, chromedp.Evaluate(expr, &res)); err != nil {
		return fmt.Errorf("%q: %w", selector, err)
	}
	switch res {
	case "ok":
		return nil
	case "nooption":
		return fmt.Errorf("%q: %w", selector, ErrNoOption)
	default:
		return fmt.Errorf("%q: %w", selector, ErrNoElement)
	}
}

func (s *chromeSession) Exists(ctx context.Context, selector string) (bool, error) {
	expr, err := findExpr(selector, "return !!el;")
	if err != nil {
		return false, err
	}
	var found bool
	if err := s.run(ctx, snapshotTimeout, chromedp.Evaluate(expr, &found)); err != nil {
		return false, fmt.Errorf("exists %q: %w", selector, err)
	}
	return found, nil
}

func (s *chromeSession) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	var html string
	if err := s.run(ctx, snapshotTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	doc, err := ParseHTML(html)
	if err != nil {
		return nil, err
	}
	return doc.QueryAll(selector), nil
}

// FetchBytes downloads through the page's own fetch so the portal session
// cookies apply and relative links resolve against the current page.
func (s *chromeSession) FetchBytes(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	u, _ := json.Marshal(url)
	expr := fmt.Sprintf(`(async () => {
		const r = await fetch(%s, {credentials: 'include'});
		if (!r.ok) return {status: r.status, data: ''};
		const buf = new Uint8Array(await r.arrayBuffer());
		let bin = '';
		for (let i = 0; i < buf.length; i += 0x8000) {
			bin += String.fromCharCode.apply(null, buf.subarray(i, i + 0x8000));
		}
		return {status: r.status, data: btoa(bin)};
	})()`, u)

	var res struct {
		Status int    `json:"status"`
		Data   string `json:"data"`
	}
	awaitPromise := func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}
	if err := s.run(ctx, timeout, chromedp.Evaluate(expr, &res, awaitPromise)); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if res.Status < 200 || res.Status > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", url, res.Status)
	}
	body, err := base64.StdEncoding.DecodeString(res.Data)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: decode body: %w", url, err)
	}
	return body, nil
}

func (s *chromeSession) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// findExpr builds a JS expression that binds the first element matching
// selector to `el` and evaluates body.
func findExpr(selector, body string) (string, error) {
	parts, err := json.Marshal(parseSelector(selector))
	if err != nil {
		return "", fmt.Errorf("encode selector: %w", err)
	}
	return fmt.Sprintf(`(() => {
		const parts = %s;
		let el = null;
		outer: for (const p of parts) {
			let nodes = [];
			try { nodes = document.querySelectorAll(p.css); } catch (e) { continue; }
			for (const n of nodes) {
				if (!p.text || (n.innerText || n.textContent || '').includes(p.text)) { el = n; break outer; }
			}
		}
		%s
	})()`, parts, body), nil
}

// netTracker counts in-flight requests to detect network quiescence.
type netTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	last     time.Time
}

func newNetTracker() *netTracker {
	return &netTracker{inflight: map[network.RequestID]struct{}{}, last: time.Now()}
}

func (t *netTracker) handle(ev interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
	default:
		return
	}
	t.last = time.Now()
}

// idleFor reports how long there have been no requests in flight.
func (t *netTracker) idleFor() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inflight) > 0 {
		return 0
	}
	return time.Since(t.last)
}
