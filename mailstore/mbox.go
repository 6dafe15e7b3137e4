package mailstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	mboxlib "github.com/emersion/go-mbox"

	"github.com/dhcgn/mail-export/model"
)

// MboxAccountName is the account under which an mbox file's single folder is
// listed.
const MboxAccountName = "mbox"

// mboxStore serves one local mbox file as a mail store with a single folder
// named after the file. Every call re-scans the file from the start; the
// store contract allows slow per-call round trips, and mbox archives are
// read in file order so index 1 is the oldest message.
type mboxStore struct {
	path   string
	folder string
	logger *slog.Logger
}

// NewMboxStore creates a Store over a local mbox archive.
func NewMboxStore(path string, logger *slog.Logger) (Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("mbox path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat mbox: %w", err)
	}

	base := filepath.Base(path)
	folder := strings.TrimSuffix(base, filepath.Ext(base))
	return &mboxStore{path: path, folder: folder, logger: logger}, nil
}

func (s *mboxStore) ListFolders(ctx context.Context) ([]AccountFolders, error) {
	return []AccountFolders{{Account: MboxAccountName, Folders: []string{s.folder}}}, nil
}

func (s *mboxStore) CountMessages(ctx context.Context, folder model.FolderRef) (int, error) {
	if err := s.resolve(folder); err != nil {
		return 0, locatorErr("count", folder, 0, err)
	}

	count := 0
	err := s.scan(ctx, func(idx int, r io.Reader) (bool, error) {
		count = idx
		_, err := io.Copy(io.Discard, r)
		return true, err
	})
	if err != nil {
		return 0, locatorErr("count", folder, 0, err)
	}
	return count, nil
}

func (s *mboxStore) FetchDate(ctx context.Context, folder model.FolderRef, index int) (time.Time, error) {
	raw, err := s.FetchSource(ctx, folder, index)
	if err != nil {
		return time.Time{}, err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw.Source))
	if err != nil {
		return time.Time{}, locatorErr("fetch date", folder, index, err)
	}
	date, err := mail.ParseDate(msg.Header.Get("Date"))
	if err != nil {
		return time.Time{}, locatorErr("fetch date", folder, index, err)
	}
	return date, nil
}

func (s *mboxStore) FetchSource(ctx context.Context, folder model.FolderRef, index int) (model.RawMessage, error) {
	if err := s.resolve(folder); err != nil {
		return model.RawMessage{}, locatorErr("fetch source", folder, index, err)
	}
	if index < 1 {
		return model.RawMessage{}, locatorErr("fetch source", folder, index, fmt.Errorf("index must be 1-based"))
	}

	var source []byte
	err := s.scan(ctx, func(idx int, r io.Reader) (bool, error) {
		if idx != index {
			_, err := io.Copy(io.Discard, r)
			return true, err
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return false, err
		}
		source = data
		return false, nil
	})
	if err != nil {
		return model.RawMessage{}, locatorErr("fetch source", folder, index, err)
	}
	if source == nil {
		return model.RawMessage{}, locatorErr("fetch source", folder, index, fmt.Errorf("index out of range"))
	}
	return model.RawMessage{Index: index, Source: source}, nil
}

func (s *mboxStore) Close() error {
	return nil
}

func (s *mboxStore) resolve(folder model.FolderRef) error {
	if folder.Account != "" && folder.Account != MboxAccountName {
		return fmt.Errorf("unknown account %q", folder.Account)
	}
	// "INBOX" is accepted as an alias so the default folder works against
	// an mbox archive.
	if name := folder.Name(); name != "" && name != s.folder && name != "INBOX" {
		return fmt.Errorf("unknown folder %q (mbox provides %q)", name, s.folder)
	}
	return nil
}

// scan walks the mbox file calling fn with each message's 1-based index and
// body reader. fn must drain the reader; returning false stops the walk.
func (s *mboxStore) scan(ctx context.Context, fn func(idx int, r io.Reader) (bool, error)) error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	for idx := 1; ; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("message %d: %w", idx, err)
		}

		cont, err := fn(idx, msgReader)
		if err != nil {
			return fmt.Errorf("message %d: %w", idx, err)
		}
		if !cont {
			return nil
		}
	}
}
