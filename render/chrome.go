package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/microcosm-cc/bluemonday"

	"github.com/dhcgn/mail-export/model"
)

// A4 paper size in inches for Page.printToPDF.
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
)

// DefaultTimeout bounds a single render round trip to the browser.
const DefaultTimeout = 60 * time.Second

// Renderer converts a parsed message into a fixed-layout document.
type Renderer interface {
	Render(ctx context.Context, msg model.ParsedMessage) ([]byte, error)
}

// RenderError wraps a rendering backend failure. It is per-item: the
// exporter logs it and moves to the next message.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render document: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// ChromeRenderer prints messages to PDF through a headless Chrome instance.
// Each render launches its own browser context; the store and browser are
// both stateful externalities, so renders are strictly sequential.
type ChromeRenderer struct {
	policy  *bluemonday.Policy
	timeout time.Duration
	logger  *slog.Logger
}

// NewChromeRenderer creates a renderer with the given per-render timeout.
// A non-positive timeout falls back to DefaultTimeout.
func NewChromeRenderer(timeout time.Duration, logger *slog.Logger) *ChromeRenderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ChromeRenderer{
		policy:  emailPolicy(),
		timeout: timeout,
		logger:  logger,
	}
}

func (r *ChromeRenderer) Render(ctx context.Context, msg model.ParsedMessage) ([]byte, error) {
	html, err := buildEnvelope(msg, r.policy)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("no-sandbox", true),
	)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("get frame tree: %w", err)
			}
			if err := page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx); err != nil {
				return fmt.Errorf("set document content: %w", err)
			}

			buf, _, err := page.PrintToPDF().
				WithPaperWidth(paperWidthInches).
				WithPaperHeight(paperHeightInches).
				WithPrintBackground(true).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("print to pdf: %w", err)
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	if r.logger != nil {
		r.logger.Debug("rendered message", "subject", msg.Subject, "bytes", len(pdf))
	}
	return pdf, nil
}
