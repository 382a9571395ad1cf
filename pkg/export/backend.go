// Package export turns rendered slides into a downloadable document.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/report-slides-app/pkg/logger"
	"github.com/yourusername/report-slides-app/pkg/model"
)

// Backend encodes a deck into a document.
type Backend interface {
	// Export encodes every slide of deck, in order.
	Export(ctx context.Context, deck *Deck) ([]byte, error)

	// Close releases resources held by the backend (browser processes).
	Close() error

	// Name returns the backend name
	Name() string
}

// Backend names accepted by NewBackend.
const (
	BackendPDF        = "pdf"
	BackendChromium   = "chromium"
	BackendPlaywright = "playwright"
)

const defaultTimeout = 60 * time.Second

// NewBackend creates the backend selected by cfg. An empty name selects pdf.
func NewBackend(cfg model.ExportConfig, log *logger.Logger) (Backend, error) {
	log = logger.OrNop(log)
	switch strings.ToLower(cfg.Backend) {
	case "", BackendPDF:
		return NewPDFBackend(log), nil
	case BackendChromium:
		return NewChromiumBackend(cfg, log), nil
	case BackendPlaywright:
		return NewPlaywrightBackend(cfg, log), nil
	}
	return nil, fmt.Errorf("unknown export backend %q", cfg.Backend)
}

func timeout(cfg model.ExportConfig) time.Duration {
	if cfg.TimeoutMS > 0 {
		return time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return defaultTimeout
}

func checkPDF(data []byte) error {
	if len(data) < 5 || string(data[:5]) != "%PDF-" {
		return fmt.Errorf("output is not a PDF (got %d bytes)", len(data))
	}
	return nil
}
