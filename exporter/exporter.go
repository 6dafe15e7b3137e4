package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dhcgn/mail-export/extract"
	"github.com/dhcgn/mail-export/filter"
	"github.com/dhcgn/mail-export/mailstore"
	"github.com/dhcgn/mail-export/model"
	"github.com/dhcgn/mail-export/parser"
	"github.com/dhcgn/mail-export/render"
	"github.com/dhcgn/mail-export/report"
	"github.com/dhcgn/mail-export/stats"
)

// Options configures one export run.
type Options struct {
	Folder    model.FolderRef
	OutputDir string
	Count     int
	// KeepRaw leaves the intermediate .eml next to a successfully rendered
	// document instead of deleting it.
	KeepRaw bool
}

// Result summarizes a finished run. A run with per-item failures still
// succeeds; the counters distinguish "nothing to export" from "items
// available but all failed" from "N of M succeeded".
type Result struct {
	Total        int
	Requested    int
	Processed    int
	Exported     int
	Filtered     int
	FetchErrors  int
	ParseErrors  int
	RenderErrors int
	Artifacts    []string
	RowCount     int
	ReportPath   string
	// ReportErr records a failed report write. It does not invalidate the
	// artifacts already on disk and does not fail the run.
	ReportErr error

	rows []model.ReportRow
}

// Exporter drives one end-to-end export: enumerate, fetch, parse, extract,
// render, report. Items are processed strictly sequentially because the mail
// store and the rendering backend are stateful external sessions; the event
// stream to subscribers is the only concurrent part and is drained before
// Run returns.
//
// The index range is computed against a count taken once at run start. A
// mailbox that changes during a long export can therefore skip or duplicate
// messages; known limitation, inherited from the enumeration contract.
type Exporter struct {
	store    mailstore.Store
	renderer render.Renderer
	filter   *filter.Filter
	opts     Options
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// One buffered channel per subscriber so every subscriber sees every
	// event; a single shared channel would hand each event to only one.
	subs            []chan stats.Event
	statsWG         sync.WaitGroup
	closeEventsOnce sync.Once

	names *namer
}

// New validates the wiring for one run. The filter may be nil.
func New(store mailstore.Store, renderer render.Renderer, f *filter.Filter, opts Options, logger *slog.Logger) (*Exporter, error) {
	if store == nil {
		return nil, fmt.Errorf("store must not be nil")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer must not be nil")
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory is empty")
	}
	if opts.Count <= 0 {
		return nil, fmt.Errorf("message count must be positive")
	}
	if len(opts.Folder.Path) == 0 {
		return nil, fmt.Errorf("folder path is empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Exporter{
		store:    store,
		renderer: renderer,
		filter:   f,
		opts:     opts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		names:    newNamer(),
	}, nil
}

// SubscribeStats attaches an event subscriber. Subscribers must be attached
// before Run and are drained before Run returns.
func (e *Exporter) SubscribeStats(name string, fn func(context.Context, <-chan stats.Event) error) {
	events := make(chan stats.Event, 128)
	e.subs = append(e.subs, events)
	e.statsWG.Add(1)
	go func() {
		defer e.statsWG.Done()
		if err := fn(e.ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			if e.logger != nil {
				e.logger.Warn("stats subscriber failed", "name", name, "err", err)
			}
		}
	}()
}

// Run executes the export. Only a failure to resolve the folder (or create
// the output directory) is fatal; every per-item failure is logged, counted,
// and skipped.
func (e *Exporter) Run(ctx context.Context) (*Result, error) {
	defer func() {
		e.closeEvents()
		e.statsWG.Wait()
		e.cancel()
	}()

	if err := os.MkdirAll(e.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	total, err := e.store.CountMessages(ctx, e.opts.Folder)
	if err != nil {
		return nil, fmt.Errorf("count messages in %s: %w", e.opts.Folder, err)
	}

	res := &Result{Total: total, Requested: e.opts.Count}

	start := total - e.opts.Count + 1
	if start < 1 {
		start = 1
	}

	if e.logger != nil {
		e.logger.Info("starting export", "folder", e.opts.Folder.String(), "total", total, "requested", e.opts.Count, "output", e.opts.OutputDir)
	}

	// Most recent first: mail stores order folders oldest to newest.
	for i := total; i >= start; i-- {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		e.exportItem(ctx, i, res)
		res.Processed++

		percent := int(math.Round(float64(res.Processed) / float64(e.opts.Count) * 100))
		e.emit(stats.Event{
			Stage:     stats.StageExport,
			Type:      stats.EventTypeItemDone,
			Index:     i,
			Processed: res.Processed,
			Total:     total,
			Percent:   percent,
		})
	}

	if res.Processed == 0 {
		if e.logger != nil {
			e.logger.Info("no messages to export", "folder", e.opts.Folder.String())
		}
		return res, nil
	}

	res.RowCount = len(res.rows)
	if len(res.rows) > 0 {
		path := filepath.Join(e.opts.OutputDir, report.FileName)
		if err := report.Write(path, res.rows); err != nil {
			res.ReportErr = err
			e.emit(stats.Event{Stage: stats.StageReport, Type: stats.EventTypeReportError, Err: err})
			if e.logger != nil {
				e.logger.Error("writing contact report failed", "path", path, "err", err)
			}
		} else {
			res.ReportPath = path
		}
	}

	return res, nil
}

// exportItem handles one message index end to end. Every failure inside is
// per-item: counted, logged, and left behind.
func (e *Exporter) exportItem(ctx context.Context, index int, res *Result) {
	received, err := e.store.FetchDate(ctx, e.opts.Folder, index)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("fetching received date failed, using current time", "index", index, "err", err)
		}
		received = time.Now()
	}
	name := e.names.unique(received)

	raw, err := e.store.FetchSource(ctx, e.opts.Folder, index)
	if err != nil {
		res.FetchErrors++
		e.emit(stats.Event{Stage: stats.StageStore, Type: stats.EventTypeFetchError, Index: index, Err: err})
		if e.logger != nil {
			e.logger.Error("fetching message source failed", "index", index, "err", err)
		}
		return
	}
	e.emit(stats.Event{Stage: stats.StageStore, Type: stats.EventTypeFetched, Index: index, Name: name})

	if e.filter != nil {
		header, body := filter.SplitRawMessage(raw.Source)
		if !e.filter.Allows(header, body) {
			res.Filtered++
			e.emit(stats.Event{Stage: stats.StageExport, Type: stats.EventTypeFiltered, Index: index})
			if e.logger != nil {
				e.logger.Debug("message filtered out", "index", index)
			}
			return
		}
	}

	rawName := name + ".eml"
	rawPath := filepath.Join(e.opts.OutputDir, rawName)
	if err := os.WriteFile(rawPath, raw.Source, 0o644); err != nil {
		res.FetchErrors++
		e.emit(stats.Event{Stage: stats.StageStore, Type: stats.EventTypeFetchError, Index: index, Err: err})
		if e.logger != nil {
			e.logger.Error("writing raw message failed", "index", index, "path", rawPath, "err", err)
		}
		return
	}

	parsed, parseErr := parser.Parse(raw)
	if parseErr != nil {
		res.ParseErrors++
		e.emit(stats.Event{Stage: stats.StageParse, Type: stats.EventTypeParseError, Index: index, Err: parseErr})
		if e.logger != nil {
			e.logger.Warn("parsing message failed, raw artifact retained", "index", index, "err", parseErr)
		}
		// No structured fields means no report row and nothing to render;
		// the raw file remains the item's artifact.
		res.Artifacts = append(res.Artifacts, rawName)
		return
	}
	e.emit(stats.Event{Stage: stats.StageParse, Type: stats.EventTypeParsed, Index: index})

	info := extract.Extract(parsed.TextBody, parsed.From.String())
	res.rows = append(res.rows, model.ReportRow{
		From:    parsed.From.String(),
		Date:    parsed.ReceivedAt,
		Contact: info,
	})
	e.emit(stats.Event{Stage: stats.StageReport, Type: stats.EventTypeRowAdded, Index: index})

	pdf, renderErr := e.renderer.Render(ctx, parsed)
	if renderErr == nil {
		pdfName := name + ".pdf"
		pdfPath := filepath.Join(e.opts.OutputDir, pdfName)
		if err := os.WriteFile(pdfPath, pdf, 0o644); err == nil {
			e.emit(stats.Event{Stage: stats.StageRender, Type: stats.EventTypeRendered, Index: index, Name: pdfName})
			res.Exported++
			res.Artifacts = append(res.Artifacts, pdfName)
			if e.opts.KeepRaw {
				res.Artifacts = append(res.Artifacts, rawName)
			} else if err := os.Remove(rawPath); err != nil && e.logger != nil {
				e.logger.Warn("removing raw message failed", "path", rawPath, "err", err)
			}
			return
		}
		renderErr = fmt.Errorf("write %s: %w", pdfPath, err)
	}

	// Do not delete source we could not convert: the raw file stays as the
	// item's artifact.
	res.RenderErrors++
	res.Artifacts = append(res.Artifacts, rawName)
	e.emit(stats.Event{Stage: stats.StageRender, Type: stats.EventTypeRenderError, Index: index, Err: renderErr})
	if e.logger != nil {
		e.logger.Error("rendering message failed, raw artifact retained", "index", index, "err", renderErr)
	}
}

func (e *Exporter) emit(evt stats.Event) {
	for _, events := range e.subs {
		select {
		case <-e.ctx.Done():
			return
		case events <- evt:
		}
	}
}

func (e *Exporter) closeEvents() {
	e.closeEventsOnce.Do(func() {
		for _, events := range e.subs {
			close(events)
		}
	})
}
