package mailstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dhcgn/mail-export/model"
)

// AccountFolders lists the folders visible under one account.
type AccountFolders struct {
	Account string
	Folders []string
}

// Store is the mail store capability consumed by the exporter. Message
// indices are 1-based and only meaningful against a count taken in the same
// run; the store is not required to re-enumerate between calls, so a mailbox
// that changes mid-run may cause index drift. That is a documented limitation
// of the export, not something the store hides.
//
// Calls may be slow round trips to an external application. Implementations
// are not safe for concurrent use unless stated otherwise.
type Store interface {
	ListFolders(ctx context.Context) ([]AccountFolders, error)
	CountMessages(ctx context.Context, folder model.FolderRef) (int, error)
	FetchDate(ctx context.Context, folder model.FolderRef, index int) (time.Time, error)
	FetchSource(ctx context.Context, folder model.FolderRef, index int) (model.RawMessage, error)
	Close() error
}

// LocatorError describes a failed mail store operation. Index is zero for
// operations that do not address a single message.
type LocatorError struct {
	Op     string
	Folder model.FolderRef
	Index  int
	Err    error
}

func (e *LocatorError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("mailstore %s %s[%d]: %v", e.Op, e.Folder, e.Index, e.Err)
	}
	return fmt.Sprintf("mailstore %s %s: %v", e.Op, e.Folder, e.Err)
}

func (e *LocatorError) Unwrap() error {
	return e.Err
}

func locatorErr(op string, folder model.FolderRef, index int, err error) *LocatorError {
	return &LocatorError{Op: op, Folder: folder, Index: index, Err: err}
}
