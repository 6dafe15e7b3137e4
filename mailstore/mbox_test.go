package mailstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dhcgn/mail-export/model"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewMboxStore("testdata/sample.mbox", nil)
	if err != nil {
		t.Fatalf("NewMboxStore: %v", err)
	}
	return store
}

func TestMboxCountMessages(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	count, err := store.CountMessages(context.Background(), model.NewFolderRef(MboxAccountName, "sample"))
	if err != nil {
		t.Fatalf("CountMessages: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 messages, got %d", count)
	}
}

func TestMboxFetchSourceByIndex(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	folder := model.NewFolderRef(MboxAccountName, "sample")

	tests := []struct {
		index     int
		messageID string
	}{
		{1, "<first@example.com>"},
		{2, "<second@example.com>"},
		{3, "<third@example.com>"},
	}

	for _, tt := range tests {
		raw, err := store.FetchSource(context.Background(), folder, tt.index)
		if err != nil {
			t.Fatalf("FetchSource(%d): %v", tt.index, err)
		}
		if raw.Index != tt.index {
			t.Errorf("FetchSource(%d): index = %d", tt.index, raw.Index)
		}
		if !strings.Contains(string(raw.Source), tt.messageID) {
			t.Errorf("FetchSource(%d): source missing %s", tt.index, tt.messageID)
		}
	}
}

func TestMboxFetchSourceOutOfRange(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	folder := model.NewFolderRef(MboxAccountName, "sample")

	for _, index := range []int{0, 4} {
		_, err := store.FetchSource(context.Background(), folder, index)
		if err == nil {
			t.Fatalf("FetchSource(%d): expected error", index)
		}
		var locErr *LocatorError
		if !errors.As(err, &locErr) {
			t.Fatalf("FetchSource(%d): expected LocatorError, got %T", index, err)
		}
	}
}

func TestMboxFetchDate(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	folder := model.NewFolderRef(MboxAccountName, "sample")

	date, err := store.FetchDate(context.Background(), folder, 3)
	if err != nil {
		t.Fatalf("FetchDate: %v", err)
	}

	want := time.Date(2024, 1, 3, 9, 15, 42, 0, time.UTC)
	if !date.Equal(want) {
		t.Fatalf("FetchDate = %v, want %v", date, want)
	}
}

func TestMboxUnknownFolder(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := store.CountMessages(context.Background(), model.NewFolderRef(MboxAccountName, "does-not-exist"))
	if err == nil {
		t.Fatal("expected error for unknown folder")
	}
}

func TestMboxListFolders(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	accounts, err := store.ListFolders(context.Background())
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Account != MboxAccountName {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
	if len(accounts[0].Folders) != 1 || accounts[0].Folders[0] != "sample" {
		t.Fatalf("unexpected folders: %+v", accounts[0].Folders)
	}
}
