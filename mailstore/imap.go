package mailstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/dhcgn/mail-export/model"
)

// IMAPOptions configures the connection to an IMAP-backed mail store.
type IMAPOptions struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
}

// imapStore reads a single IMAP account. The connection is dialed lazily on
// first use and kept for the lifetime of the store; one mailbox is selected
// read-only at a time.
type imapStore struct {
	opts   IMAPOptions
	logger *slog.Logger

	client   *imapclient.Client
	delim    rune
	selected string
	count    uint32
}

// NewIMAPStore creates a Store backed by an IMAP server. The account name of
// every FolderRef passed to it must match the login user.
func NewIMAPStore(opts IMAPOptions, logger *slog.Logger) (Store, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("imap host is empty")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("imap port must be positive")
	}
	return &imapStore{opts: opts, logger: logger, delim: '/'}, nil
}

func (s *imapStore) ListFolders(ctx context.Context) ([]AccountFolders, error) {
	if err := s.ensureClient(ctx); err != nil {
		return nil, locatorErr("list", model.FolderRef{Account: s.opts.Username}, 0, err)
	}

	mailboxes, err := s.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, locatorErr("list", model.FolderRef{Account: s.opts.Username}, 0, err)
	}

	account := AccountFolders{Account: s.opts.Username}
	for _, mbox := range mailboxes {
		if mbox.Delim != 0 {
			s.delim = mbox.Delim
		}
		account.Folders = append(account.Folders, mbox.Mailbox)
	}
	return []AccountFolders{account}, nil
}

func (s *imapStore) CountMessages(ctx context.Context, folder model.FolderRef) (int, error) {
	data, err := s.selectFolder(ctx, folder, true)
	if err != nil {
		return 0, locatorErr("count", folder, 0, err)
	}
	return int(data.NumMessages), nil
}

func (s *imapStore) FetchDate(ctx context.Context, folder model.FolderRef, index int) (time.Time, error) {
	buf, err := s.fetchOne(ctx, folder, index, &imapv2.FetchOptions{
		InternalDate: true,
		Envelope:     true,
	})
	if err != nil {
		return time.Time{}, locatorErr("fetch date", folder, index, err)
	}

	if !buf.InternalDate.IsZero() {
		return buf.InternalDate, nil
	}
	if buf.Envelope != nil && !buf.Envelope.Date.IsZero() {
		return buf.Envelope.Date, nil
	}
	return time.Time{}, locatorErr("fetch date", folder, index, fmt.Errorf("no date available"))
}

func (s *imapStore) FetchSource(ctx context.Context, folder model.FolderRef, index int) (model.RawMessage, error) {
	section := &imapv2.FetchItemBodySection{Peek: true}
	buf, err := s.fetchOne(ctx, folder, index, &imapv2.FetchOptions{
		BodySection: []*imapv2.FetchItemBodySection{section},
	})
	if err != nil {
		return model.RawMessage{}, locatorErr("fetch source", folder, index, err)
	}

	raw := buf.FindBodySection(section)
	if len(raw) == 0 {
		return model.RawMessage{}, locatorErr("fetch source", folder, index, fmt.Errorf("empty body section"))
	}
	return model.RawMessage{Index: index, Source: raw}, nil
}

func (s *imapStore) Close() error {
	if s.client == nil {
		return nil
	}
	client := s.client
	s.client = nil
	s.selected = ""

	if err := client.Logout().Wait(); err != nil {
		if s.logger != nil {
			s.logger.Warn("imap logout failed", "err", err)
		}
	}
	return client.Close()
}

func (s *imapStore) fetchOne(ctx context.Context, folder model.FolderRef, index int, opts *imapv2.FetchOptions) (*imapclient.FetchMessageBuffer, error) {
	if _, err := s.selectFolder(ctx, folder, false); err != nil {
		return nil, err
	}
	if index < 1 || uint32(index) > s.count {
		return nil, fmt.Errorf("index %d out of range 1..%d", index, s.count)
	}

	msgs, err := s.client.Fetch(imapv2.SeqSetNum(uint32(index)), opts).Collect()
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("message %d not returned by server", index)
	}
	return msgs[0], nil
}

// selectFolder selects the mailbox for folder read-only. With force set the
// mailbox is re-selected even when already current, refreshing the message
// count; otherwise the existing selection (and its enumeration) is kept.
func (s *imapStore) selectFolder(ctx context.Context, folder model.FolderRef, force bool) (*imapv2.SelectData, error) {
	if folder.Account != "" && folder.Account != s.opts.Username {
		return nil, fmt.Errorf("unknown account %q (logged in as %q)", folder.Account, s.opts.Username)
	}
	if len(folder.Path) == 0 {
		return nil, fmt.Errorf("folder path is empty")
	}
	if err := s.ensureClient(ctx); err != nil {
		return nil, err
	}

	name := strings.Join(folder.Path, string(s.delim))
	if !force && s.selected == name {
		return &imapv2.SelectData{NumMessages: s.count}, nil
	}

	data, err := s.client.Select(name, &imapv2.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		s.selected = ""
		return nil, fmt.Errorf("select %q: %w", name, err)
	}
	s.selected = name
	s.count = data.NumMessages

	if s.logger != nil {
		s.logger.Debug("imap mailbox selected", "mailbox", name, "messages", data.NumMessages)
	}
	return data, nil
}

func (s *imapStore) ensureClient(ctx context.Context) error {
	if s.client != nil {
		return nil
	}

	address := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	options := &imapclient.Options{}

	var (
		client *imapclient.Client
		err    error
	)
	if s.opts.UseTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         s.opts.Host,
			InsecureSkipVerify: s.opts.InsecureSkipVerify,
		}
		client, err = imapclient.DialTLS(address, options)
	} else {
		client, err = imapclient.DialInsecure(address, options)
	}
	if err != nil {
		return fmt.Errorf("dial imap %s: %w", address, err)
	}

	if err := client.Login(s.opts.Username, s.opts.Password).Wait(); err != nil {
		_ = client.Close()
		return fmt.Errorf("imap login failed: %w", err)
	}

	// Learn the hierarchy delimiter so nested folder paths resolve.
	if mailboxes, err := client.List("", "", nil).Collect(); err == nil {
		for _, mbox := range mailboxes {
			if mbox.Delim != 0 {
				s.delim = mbox.Delim
			}
		}
	}

	if s.logger != nil {
		s.logger.Debug("imap connection established", "address", address, "user", s.opts.Username, "tls", s.opts.UseTLS)
	}

	s.client = client
	return nil
}
