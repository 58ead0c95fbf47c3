package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher drives Chromium through the Playwright driver. The
// driver must be installed beforehand (`playwright install chromium`).
type PlaywrightLauncher struct {
	opts Options
}

func NewPlaywrightLauncher(opts Options) *PlaywrightLauncher {
	return &PlaywrightLauncher{opts: opts}
}

func (l *PlaywrightLauncher) Launch(ctx context.Context) (Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(l.opts.Headless)}
	if l.opts.ExecPath != "" {
		launch.ExecutablePath = playwright.String(l.opts.ExecPath)
	}
	b, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{AcceptDownloads: playwright.Bool(true)})
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new page: %w", err)
	}

	return &playwrightSession{pw: pw, browser: b, bctx: bctx, page: page}, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	once    sync.Once
	err     error
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

// wrap maps Playwright timeouts onto ErrTimeout and honours ctx cancellation,
// which Playwright's synchronous API does not observe on its own.
func wrap(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s: %w: %v", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *playwrightSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{Timeout: ms(timeout)})
	return wrap(ctx, "navigate "+url, err)
}

func (s *playwrightSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{Timeout: ms(timeout)})
	return wrap(ctx, fmt.Sprintf("wait for %q", selector), err)
}

func (s *playwrightSession) WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error {
	err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: ms(timeout),
	})
	return wrap(ctx, "network idle", err)
}

func (s *playwrightSession) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	err := s.page.Locator(selector).First().Fill(value, playwright.LocatorFillOptions{Timeout: ms(timeout)})
	return wrap(ctx, fmt.Sprintf("fill %q", selector), err)
}

func (s *playwrightSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	err := s.page.Locator(selector).First().Click(playwright.LocatorClickOptions{Timeout: ms(timeout)})
	return wrap(ctx, fmt.Sprintf("click %q", selector), err)
}

func (s *playwrightSession) SelectOption(ctx context.Context, selector, label string, timeout time.Duration) error {
	if err := s.WaitFor(ctx, selector, timeout); err != nil {
		return err
	}
	selected, err := s.page.Locator(selector).First().SelectOption(
		playwright.SelectOptionValues{Labels: playwright.StringSlice(label)},
		playwright.LocatorSelectOptionOptions{Timeout: ms(timeout)},
	)
	if err != nil {
		return wrap(ctx, fmt.Sprintf("select %q in %q", label, selector), err)
	}
	if len(selected) == 0 {
		return fmt.Errorf("select %q in %q: %w", label, selector, ErrNoOption)
	}
	return nil
}

func (s *playwrightSession) Exists(ctx context.Context, selector string) (bool, error) {
	n, err := s.page.Locator(selector).Count()
	if err != nil {
		return false, wrap(ctx, fmt.Sprintf("exists %q", selector), err)
	}
	return n > 0, nil
}

func (s *playwrightSession) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	html, err := s.page.Content()
	if err != nil {
		return nil, wrap(ctx, "snapshot", err)
	}
	doc, err := ParseHTML(html)
	if err != nil {
		return nil, err
	}
	return doc.QueryAll(selector), nil
}

func (s *playwrightSession) FetchBytes(ctx context.Context, link string, timeout time.Duration) ([]byte, error) {
	target, err := resolveLink(s.page.URL(), link)
	if err != nil {
		return nil, err
	}
	resp, err := s.page.Request().Get(target, playwright.APIRequestContextGetOptions{Timeout: ms(timeout)})
	if err != nil {
		return nil, wrap(ctx, "fetch "+target, err)
	}
	defer resp.Dispose()
	if !resp.Ok() {
		return nil, fmt.Errorf("fetch %s: status %d", target, resp.Status())
	}
	body, err := resp.Body()
	if err != nil {
		return nil, wrap(ctx, "fetch "+target, err)
	}
	return body, nil
}

func (s *playwrightSession) Close() error {
	s.once.Do(func() {
		s.err = errors.Join(s.bctx.Close(), s.browser.Close(), s.pw.Stop())
	})
	return s.err
}

// resolveLink makes href absolute against the page it was read from.
func resolveLink(pageURL, href string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}
