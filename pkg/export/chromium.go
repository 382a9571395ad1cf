package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"github.com/yourusername/report-slides-app/pkg/logger"
	"github.com/yourusername/report-slides-app/pkg/model"
)

var chromeCandidates = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

func findChrome() string {
	for _, path := range chromeCandidates {
		if info, err := os.Stat(path); err == nil && info.Mode()&0111 != 0 {
			return path
		}
	}
	return ""
}

// ChromiumBackend prints the HTML deck to PDF with a rod-driven Chromium.
// The browser is launched lazily and reused until Close.
type ChromiumBackend struct {
	cfg        model.ExportConfig
	log        *logger.Logger
	profileDir string

	mu      sync.Mutex
	browser *rod.Browser
}

// NewChromiumBackend creates a chromium backend. Nothing is launched yet.
func NewChromiumBackend(cfg model.ExportConfig, log *logger.Logger) *ChromiumBackend {
	return &ChromiumBackend{
		cfg:        cfg,
		log:        logger.OrNop(log).Component("export.chromium"),
		profileDir: fmt.Sprintf("%s/.report-slides-chromium-%s", os.TempDir(), uuid.NewString()[:8]),
	}
}

func (b *ChromiumBackend) getBrowser() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	if err := os.MkdirAll(b.profileDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profile dir: %w", err)
	}

	l := launcher.New()
	bin := b.cfg.ChromiumPath
	if bin == "" {
		bin = findChrome()
	}
	if bin != "" {
		l = l.Bin(bin)
	} else {
		b.log.Warn("no chrome binary configured or found, rod will try to download one")
	}

	l = l.Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-breakpad").
		Set("user-data-dir", b.profileDir).
		Headless(true)
	if b.cfg.NoSandbox {
		l = l.Set("no-sandbox").Set("disable-setuid-sandbox")
	}

	controlURL, err := l.Launch()
	if err != nil {
		if bin == "" {
			return nil, fmt.Errorf("failed to launch browser (set chromium_path in export settings): %w", err)
		}
		return nil, fmt.Errorf("failed to launch browser at %q: %w", bin, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	b.browser = browser
	b.log.Info("browser launched", "bin", bin, "profile_dir", b.profileDir)
	return browser, nil
}

// Export implements Backend.
func (b *ChromiumBackend) Export(ctx context.Context, deck *Deck) ([]byte, error) {
	html, err := DeckHTML(deck)
	if err != nil {
		return nil, err
	}

	browser, err := b.getBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(timeout(b.cfg))
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             slideWidthPx,
		Height:            slideHeightPx,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}
	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to wait for deck load: %w", err)
	}

	w, h := pageInches()
	f := func(x float64) *float64 { return &x }
	stream, err := page.PDF(&proto.PagePrintToPDF{
		Landscape:         false,
		PrintBackground:   true,
		PreferCSSPageSize: true,
		PaperWidth:        f(w),
		PaperHeight:       f(h),
		MarginTop:         f(0),
		MarginBottom:      f(0),
		MarginLeft:        f(0),
		MarginRight:       f(0),
		Scale:             f(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to print deck: %w", err)
	}
	pdf, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF stream: %w", err)
	}
	if err := checkPDF(pdf); err != nil {
		return nil, err
	}
	b.log.Debug("deck exported", "slides", len(deck.Slides), "bytes", len(pdf))
	return pdf, nil
}

// Close shuts the browser down and removes its profile.
func (b *ChromiumBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	os.RemoveAll(b.profileDir)
	return err
}

// Name returns the backend name
func (b *ChromiumBackend) Name() string { return BackendChromium }
