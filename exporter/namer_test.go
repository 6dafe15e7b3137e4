package exporter

import (
	"testing"
	"time"
)

func TestNamerDisambiguatesCollisions(t *testing.T) {
	n := newNamer()
	same := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	other := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)

	if got := n.unique(same); got != "2024-01-01-00-00-00" {
		t.Errorf("first occurrence = %q", got)
	}
	if got := n.unique(same); got != "2024-01-01-00-00-00-2" {
		t.Errorf("second occurrence = %q", got)
	}
	if got := n.unique(same); got != "2024-01-01-00-00-00-3" {
		t.Errorf("third occurrence = %q", got)
	}
	if got := n.unique(other); got != "2024-01-01-00-00-01" {
		t.Errorf("distinct stamp = %q", got)
	}
}
