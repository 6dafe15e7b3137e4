package progress

import (
	"context"
	"fmt"
	"sync"

	"github.com/pterm/pterm"

	"github.com/dhcgn/mail-export/stats"
)

// Bar shows a live export progress bar. It is only active on the "info" log
// level; debug runs log every item anyway and quieter levels should stay
// quiet.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	mu      sync.Mutex
	enabled bool
}

// New creates the progress bar for a run exporting up to total messages.
func New(total int, logLevel string) *Bar {
	bar := &Bar{
		total:   total,
		enabled: logLevel == "info",
	}

	if bar.enabled {
		pb, _ := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Exporting messages").
			Start()
		bar.pb = pb
	}

	return bar
}

// Update advances the bar based on one pipeline event.
func (b *Bar) Update(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeItemDone:
		b.pb.Increment()
		b.pb.UpdateTitle(fmt.Sprintf("Exported %d of %d messages", evt.Processed, b.total))
	case stats.EventTypeRendered:
		if evt.Name != "" {
			b.pb.UpdateTitle("Rendered " + evt.Name)
		}
	case stats.EventTypeFetchError, stats.EventTypeParseError, stats.EventTypeRenderError, stats.EventTypeReportError:
		// Errors surface above the bar; the run itself continues.
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

// Stop finalizes the bar. Safe to call after a run that processed fewer
// messages than requested; the bar simply stops where it is.
func (b *Bar) Stop() {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = b.pb.Stop()
}

// Subscriber adapts the bar to the exporter's event stream.
func (b *Bar) Subscriber(ctx context.Context, events <-chan stats.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			b.Update(evt)
		}
	}
}
