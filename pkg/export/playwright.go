package export

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/yourusername/report-slides-app/pkg/logger"
	"github.com/yourusername/report-slides-app/pkg/model"
)

// PlaywrightBackend prints the HTML deck through playwright's Chromium.
type PlaywrightBackend struct {
	cfg model.ExportConfig
	log *logger.Logger

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewPlaywrightBackend creates a playwright backend. The driver starts on first export.
func NewPlaywrightBackend(cfg model.ExportConfig, log *logger.Logger) *PlaywrightBackend {
	return &PlaywrightBackend{cfg: cfg, log: logger.OrNop(log).Component("export.playwright")}
}

func (b *PlaywrightBackend) getBrowser() (playwright.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright (is the driver installed?): %w", err)
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     []string{"--disable-dev-shm-usage", "--disable-gpu", "--no-first-run", "--disable-breakpad"},
	}
	if b.cfg.NoSandbox {
		opts.Args = append(opts.Args, "--no-sandbox", "--disable-setuid-sandbox")
	}
	bin := b.cfg.ChromiumPath
	if bin == "" {
		bin = findChrome()
	}
	if bin != "" {
		opts.ExecutablePath = playwright.String(bin)
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}
	b.pw, b.browser = pw, browser
	b.log.Info("browser launched", "bin", bin)
	return browser, nil
}

// Export implements Backend.
func (b *PlaywrightBackend) Export(ctx context.Context, deck *Deck) ([]byte, error) {
	html, err := DeckHTML(deck)
	if err != nil {
		return nil, err
	}
	browser, err := b.getBrowser()
	if err != nil {
		return nil, err
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:          &playwright.Size{Width: slideWidthPx, Height: slideHeightPx},
		DeviceScaleFactor: playwright.Float(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	ms := float64(timeout(b.cfg).Milliseconds())
	if deadline, ok := ctx.Deadline(); ok {
		if left := float64(time.Until(deadline).Milliseconds()); left < ms {
			ms = left
		}
	}
	if err := page.SetContent(html, playwright.PageSetContentOptions{
		Timeout:   playwright.Float(ms),
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}

	w, h := pageInches()
	pdf, err := page.PDF(playwright.PagePdfOptions{
		PrintBackground:   playwright.Bool(true),
		PreferCSSPageSize: playwright.Bool(true),
		Width:             playwright.String(fmt.Sprintf("%.2fin", w)),
		Height:            playwright.String(fmt.Sprintf("%.2fin", h)),
		Margin: &playwright.Margin{
			Top:    playwright.String("0"),
			Bottom: playwright.String("0"),
			Left:   playwright.String("0"),
			Right:  playwright.String("0"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to print deck: %w", err)
	}
	if err := checkPDF(pdf); err != nil {
		return nil, err
	}
	b.log.Debug("deck exported", "slides", len(deck.Slides), "bytes", len(pdf))
	return pdf, nil
}

// Close stops the browser and the playwright driver.
func (b *PlaywrightBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.pw != nil {
		if stopErr := b.pw.Stop(); err == nil {
			err = stopErr
		}
		b.pw = nil
	}
	return err
}

// Name returns the backend name
func (b *PlaywrightBackend) Name() string { return BackendPlaywright }
