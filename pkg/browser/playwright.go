package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"zonerama/pkg/auth"
	"zonerama/pkg/catalog"
	errs "zonerama/pkg/errors"
	"zonerama/pkg/logger"
)

const (
	maxScrollPasses = 25
	scrollSettle    = time.Second
	// closeGrace bounds how long Close waits for cancelled saves to unwind
	closeGrace = 5 * time.Second
)

// Install downloads the Chromium build playwright drives
func Install() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

var _ Browser = (*Playwright)(nil)

// Playwright implements Browser with a single Chromium page
type Playwright struct {
	opts Options
	log  logger.Logger

	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	mu       sync.Mutex
	failures chan error
	saves    transfers
}

// Launch starts Chromium with downloads enabled and the saved login, if any,
// restored. The caller must Close the returned browser.
func Launch(ctx context.Context, opts Options) (*Playwright, error) {
	opts.applyDefaults()
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeCancelled, "browser.Launch", err)
	}

	p := &Playwright{opts: opts, log: opts.Logger.WithField("component", "browser")}

	pw, err := playwright.Run()
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfiguration, "browser.Launch",
			fmt.Errorf("start playwright (run 'zonerama install' first): %w", err))
	}
	p.pw = pw

	p.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   ms(opts.SlowMo),
	})
	if err != nil {
		p.Close()
		return nil, errs.Wrap(errs.ErrorTypeConfiguration, "browser.Launch", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{AcceptDownloads: playwright.Bool(true)}
	if len(opts.StorageState) > 0 {
		statePath, cleanup, err := writeStateFile(opts.StorageState)
		if err != nil {
			p.log.WithError(err).Warn("cannot restore saved login, starting fresh")
		} else {
			defer cleanup()
			ctxOpts.StorageStatePath = playwright.String(statePath)
		}
	}

	p.context, err = p.browser.NewContext(ctxOpts)
	if err != nil {
		p.Close()
		return nil, errs.Wrap(errs.ErrorTypeConfiguration, "browser.Launch", err)
	}

	p.page, err = p.context.NewPage()
	if err != nil {
		p.Close()
		return nil, errs.Wrap(errs.ErrorTypeConfiguration, "browser.Launch", err)
	}
	p.page.SetDefaultTimeout(float64(opts.ElementTimeout.Milliseconds()))
	p.page.OnDownload(p.handleDownload)

	logger.LogComponentStart(p.log, "browser", map[string]interface{}{
		"headless":       opts.Headless,
		"restored_login": ctxOpts.StorageStatePath != nil,
	})
	return p, nil
}

// DismissConsentIfPresent accepts the cookie banner when it is showing
func (p *Playwright) DismissConsentIfPresent(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrorTypeCancelled, "browser.DismissConsent", err)
	}

	button := p.page.Locator(SelectorCookieAccept).First()
	visible, err := button.IsVisible()
	if err != nil || !visible {
		return nil
	}
	if err := button.Click(playwright.LocatorClickOptions{Timeout: ms(p.opts.ElementTimeout)}); err != nil {
		p.log.WithError(err).Warn("could not accept cookie banner")
		return nil
	}
	p.log.Debug("cookie banner accepted")
	return nil
}

// ListAlbums loads the album listing, asking the user to log in when the
// listing shows no albums, and scrolls until lazy loading stops adding more.
func (p *Playwright) ListAlbums(ctx context.Context) ([]catalog.AlbumRef, error) {
	start := p.opts.AlbumsURL
	if start == "" {
		start = p.opts.BaseURL
	}
	if err := p.goTo(ctx, start); err != nil {
		return nil, err
	}
	_ = p.DismissConsentIfPresent(ctx)

	count, _ := p.page.Locator(SelectorAlbumLink).Count()
	if p.opts.AlbumsURL == "" || count == 0 {
		if p.opts.Prompter == nil {
			return nil, errs.New(errs.ErrorTypeConfiguration, "browser.ListAlbums",
				"no albums visible and no way to ask for a login")
		}
		auth.ShowLoginGuide(p.opts.Guide, start)
		if err := p.opts.Prompter.Confirm(ctx, "Press Enter once your album list is showing... "); err != nil {
			return nil, err
		}
		_ = p.DismissConsentIfPresent(ctx)
	}

	if err := p.scrollToEnd(ctx); err != nil {
		return nil, err
	}

	html, err := p.page.Content()
	if err != nil {
		return nil, p.transient("browser.ListAlbums", err)
	}
	albums, err := ParseAlbumLinks(html, p.page.URL())
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStructural, "browser.ListAlbums", err)
	}
	p.log.InfoWithFields("album listing loaded", map[string]interface{}{
		"albums": len(albums),
		"url":    p.page.URL(),
	})

	if len(albums) > 0 && p.opts.SaveState != nil {
		p.saveLogin()
	}
	return albums, nil
}

// OpenAlbum navigates to the album and waits for its download button
func (p *Playwright) OpenAlbum(ctx context.Context, h catalog.Handle) error {
	if err := p.goTo(ctx, string(h)); err != nil {
		return err
	}
	return p.waitVisible("browser.OpenAlbum", SelectorDownloadButton, p.opts.ElementTimeout)
}

// TriggerDownload opens the download dialog, switches on original quality
// and submits. The returned channel receives an error if saving the archive
// fails later.
func (p *Playwright) TriggerDownload(ctx context.Context, h catalog.Handle) (<-chan error, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeCancelled, "browser.TriggerDownload", err)
	}

	failures := make(chan error, 1)
	p.mu.Lock()
	p.failures = failures
	p.mu.Unlock()

	log := p.log.WithField("album", string(h))

	if err := p.click("browser.TriggerDownload", SelectorDownloadButton); err != nil {
		return nil, err
	}
	if err := p.waitVisible("browser.TriggerDownload", SelectorModal, p.opts.ElementTimeout); err != nil {
		return nil, err
	}

	if err := p.enableOriginals(); err != nil {
		// the site still serves an archive, just with resized photos
		log.WithError(err).Warn("could not enable original quality")
	}

	if err := p.click("browser.TriggerDownload", SelectorModalSubmit); err != nil {
		return nil, err
	}

	// the dialog stays open while the server packs the archive
	err := p.page.Locator(SelectorModal).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: ms(p.opts.ModalCloseTimeout),
	})
	if err != nil {
		log.DebugWithFields("download dialog still open, continuing", map[string]interface{}{
			"waited": p.opts.ModalCloseTimeout,
		})
	}
	return failures, nil
}

// Close cancels in-flight saves and shuts the browser down. Partial files of
// cancelled downloads are removed.
func (p *Playwright) Close() error {
	if n := p.saves.cancelAll(); n > 0 {
		p.log.WithField("downloads", n).Info("cancelling unfinished downloads")
	}

	var errList []error
	if p.context != nil {
		errList = append(errList, p.context.Close())
	}
	if !p.saves.wait(closeGrace) {
		p.log.Warn("downloads still saving after close, leaving them behind")
	}
	if p.browser != nil {
		errList = append(errList, p.browser.Close())
	}
	if p.pw != nil {
		errList = append(errList, p.pw.Stop())
	}
	logger.LogComponentStop(p.log, "browser", "closed")
	return errors.Join(errList...)
}

func (p *Playwright) enableOriginals() error {
	checkbox := p.page.Locator(SelectorOriginals).First()
	if checked, err := checkbox.IsChecked(); err == nil && checked {
		return nil
	}

	switches, err := p.page.Locator(SelectorOriginalsSwitch).All()
	if err == nil {
		for _, sw := range switches {
			class, _ := sw.GetAttribute("class")
			if strings.Contains(class, "switchery-on") {
				return nil
			}
			if err := sw.Click(playwright.LocatorClickOptions{Force: playwright.Bool(true)}); err != nil {
				continue
			}
			if checked, err := checkbox.IsChecked(); err == nil && checked {
				return nil
			}
		}
	}

	// no styled switch responded, tick the hidden input directly
	return checkbox.Check(playwright.LocatorCheckOptions{Force: playwright.Bool(true)})
}

func (p *Playwright) handleDownload(d playwright.Download) {
	p.mu.Lock()
	failures := p.failures
	p.mu.Unlock()

	name := filepath.Base(d.SuggestedFilename())
	final := filepath.Join(p.opts.DownloadDir, name)
	partial := final + p.opts.PartialSuffix
	log := p.log.WithField("file", name)
	log.Debug("download started")

	// SaveAs blocks until the transfer ends, so it must not run on the
	// event goroutine
	done := p.saves.start(d)
	go func() {
		defer done()

		err := d.SaveAs(partial)
		if err == nil {
			err = os.Rename(partial, final)
		}
		if err != nil {
			os.Remove(partial)
			if failure := d.Failure(); failure != nil {
				err = failure
			}
			log.WithError(err).Warn("download failed")
			report(failures, errs.Wrap(errs.ErrorTypeDownload, "browser.download", err))
			return
		}
		log.Debug("download saved")
	}()
}

func report(ch chan error, err error) {
	if ch == nil {
		return
	}
	select {
	case ch <- err:
	default:
	}
}

func (p *Playwright) goTo(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrorTypeCancelled, "browser.goto", err)
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   ms(p.opts.NavigationTimeout),
	})
	if err != nil {
		return p.transient("browser.goto", err)
	}
	return nil
}

func (p *Playwright) click(op, selector string) error {
	err := p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: ms(p.opts.ElementTimeout),
	})
	if err != nil {
		return p.structural(op, selector, err)
	}
	return nil
}

func (p *Playwright) waitVisible(op, selector string, timeout time.Duration) error {
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	})
	if err != nil {
		return p.structural(op, selector, err)
	}
	return nil
}

// scrollToEnd scrolls until two passes in a row add no album links
func (p *Playwright) scrollToEnd(ctx context.Context) error {
	last, stable := -1, 0
	for pass := 0; pass < maxScrollPasses && stable < 2; pass++ {
		if _, err := p.page.Evaluate("window.scrollTo(0, document.body.scrollHeight)"); err != nil {
			return p.transient("browser.scroll", err)
		}

		select {
		case <-ctx.Done():
			return errs.Wrap(errs.ErrorTypeCancelled, "browser.scroll", ctx.Err())
		case <-time.After(scrollSettle):
		}

		count, err := p.page.Locator(SelectorAlbumLink).Count()
		if err != nil {
			return p.transient("browser.scroll", err)
		}
		if count == last {
			stable++
		} else {
			stable = 0
		}
		last = count
	}
	_, _ = p.page.Evaluate("window.scrollTo(0, 0)")
	return nil
}

func (p *Playwright) saveLogin() {
	state, err := p.context.StorageState()
	if err == nil {
		var data []byte
		if data, err = json.Marshal(state); err == nil {
			err = p.opts.SaveState(data)
		}
	}
	if err != nil {
		p.log.WithError(err).Warn("could not remember login")
		return
	}
	p.log.Debug("login remembered")
}

// structural reports a selector miss. A timeout waiting for an element means
// the layout changed, so it is not retried.
func (p *Playwright) structural(op, selector string, err error) error {
	return &errs.Error{
		Type:    errs.ErrorTypeStructural,
		Op:      op,
		Message: fmt.Sprintf("%s: %s", errs.ErrUIElementNotFound.Message, selector),
		Err:     err,
	}
}

func (p *Playwright) transient(op string, err error) error {
	if errors.Is(err, playwright.ErrTargetClosed) {
		// the window was closed under us
		return errs.Wrap(errs.ErrorTypeStructural, op, err)
	}
	return errs.Wrap(errs.ErrorTypeTransient, op, err)
}

func writeStateFile(state []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "zonerama-state-*.json")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	cleanup := func() { os.Remove(path) }
	if _, err := f.Write(state); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
