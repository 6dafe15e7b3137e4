package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Stage string

const (
	StageStore  Stage = "mailstore"
	StageParse  Stage = "parse"
	StageRender Stage = "render"
	StageReport Stage = "report"
	StageExport Stage = "export"
)

type EventType string

const (
	EventTypeFetched     EventType = "fetched"
	EventTypeFetchError  EventType = "fetch_error"
	EventTypeFiltered    EventType = "filtered"
	EventTypeParsed      EventType = "parsed"
	EventTypeParseError  EventType = "parse_error"
	EventTypeRowAdded    EventType = "row_added"
	EventTypeRendered    EventType = "rendered"
	EventTypeRenderError EventType = "render_error"
	EventTypeReportError EventType = "report_error"
	EventTypeItemDone    EventType = "item_done"
)

// Event is one pipeline observation. Item events carry the 1-based message
// index and artifact name; item_done additionally carries the run progress
// (Processed is monotonically increasing within a run).
type Event struct {
	Stage     Stage
	Type      EventType
	Index     int
	Name      string
	Processed int
	Total     int
	Percent   int
	Err       error
}

type Summary struct {
	Processed    int
	Exported     int
	Rows         int
	Filtered     int
	FetchErrors  int
	ParseErrors  int
	RenderErrors int
	LastError    error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"processed", s.Processed,
		"exported", s.Exported,
		"rows", s.Rows,
		"filtered", s.Filtered,
		"fetchErrors", s.FetchErrors,
		"parseErrors", s.ParseErrors,
		"renderErrors", s.RenderErrors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			c.apply(evt)
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}

func (c *Collector) apply(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeItemDone:
		c.summary.Processed++
	case EventTypeRendered:
		c.summary.Exported++
	case EventTypeRowAdded:
		c.summary.Rows++
	case EventTypeFiltered:
		c.summary.Filtered++
	case EventTypeFetchError:
		c.summary.FetchErrors++
	case EventTypeParseError:
		c.summary.ParseErrors++
	case EventTypeRenderError:
		c.summary.RenderErrors++
	}
	if evt.Err != nil {
		c.summary.LastError = evt.Err
	}
}

// EventStream is implemented by the exporter: subscribers receive every
// event of one run and are drained before the run returns.
type EventStream interface {
	SubscribeStats(name string, fn func(context.Context, <-chan Event) error)
}

// Reporter folds the event stream into a Summary and logs it when the run
// finishes.
type Reporter struct {
	collector *Collector
	logger    *slog.Logger
	started   time.Time
}

func NewReporter(stream EventStream, logger *slog.Logger) *Reporter {
	reporter := &Reporter{
		collector: NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}
	stream.SubscribeStats("stats-reporter", reporter.consume)
	return reporter
}

func (r *Reporter) consume(ctx context.Context, events <-chan Event) error {
	r.collector.Run(ctx, events)
	summary := r.collector.Snapshot()
	attrs := append(summary.LogAttrs(), "duration", time.Since(r.started))
	if ctx.Err() != nil {
		if r.logger != nil {
			r.logger.Debug("stats collection stopped", append(attrs, "err", ctx.Err())...)
		}
		return ctx.Err()
	}
	if r.logger != nil {
		r.logger.Info("export summary", attrs...)
	}
	return nil
}

func (r *Reporter) Summary() Summary {
	return r.collector.Snapshot()
}
