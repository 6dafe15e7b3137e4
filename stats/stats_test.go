package stats

import (
	"context"
	"errors"
	"testing"
)

func TestCollectorFoldsEvents(t *testing.T) {
	events := make(chan Event, 16)
	renderErr := errors.New("browser timeout")

	events <- Event{Stage: StageStore, Type: EventTypeFetched, Index: 3}
	events <- Event{Stage: StageParse, Type: EventTypeParsed, Index: 3}
	events <- Event{Stage: StageReport, Type: EventTypeRowAdded, Index: 3}
	events <- Event{Stage: StageRender, Type: EventTypeRendered, Index: 3, Name: "2024-01-01-10-00-00.pdf"}
	events <- Event{Stage: StageExport, Type: EventTypeItemDone, Index: 3, Processed: 1}
	events <- Event{Stage: StageRender, Type: EventTypeRenderError, Index: 2, Err: renderErr}
	events <- Event{Stage: StageExport, Type: EventTypeItemDone, Index: 2, Processed: 2}
	events <- Event{Stage: StageExport, Type: EventTypeFiltered, Index: 1}
	events <- Event{Stage: StageExport, Type: EventTypeItemDone, Index: 1, Processed: 3}
	close(events)

	collector := NewCollector()
	collector.Run(context.Background(), events)

	summary := collector.Snapshot()
	if summary.Processed != 3 {
		t.Errorf("Processed = %d", summary.Processed)
	}
	if summary.Exported != 1 {
		t.Errorf("Exported = %d", summary.Exported)
	}
	if summary.Rows != 1 {
		t.Errorf("Rows = %d", summary.Rows)
	}
	if summary.Filtered != 1 {
		t.Errorf("Filtered = %d", summary.Filtered)
	}
	if summary.RenderErrors != 1 {
		t.Errorf("RenderErrors = %d", summary.RenderErrors)
	}
	if !errors.Is(summary.LastError, renderErr) {
		t.Errorf("LastError = %v", summary.LastError)
	}
}

func TestCollectorStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan Event)
	collector := NewCollector()
	collector.Run(ctx, events)

	if got := collector.Snapshot(); got.Processed != 0 {
		t.Errorf("Processed = %d, want 0", got.Processed)
	}
}
