package model

import (
	"strings"
	"time"
)

// FolderRef identifies a folder inside a mail store account. Path holds the
// folder names from the outermost folder inward, so nested folders are
// addressable as "Clients/Invoices".
type FolderRef struct {
	Account string
	Path    []string
}

// NewFolderRef builds a FolderRef from an account name and a slash-separated
// folder path.
func NewFolderRef(account, folderPath string) FolderRef {
	var path []string
	for _, part := range strings.Split(folderPath, "/") {
		part = strings.TrimSpace(part)
		if part != "" {
			path = append(path, part)
		}
	}
	return FolderRef{Account: account, Path: path}
}

// Name returns the innermost folder name, or "" for an empty ref.
func (f FolderRef) Name() string {
	if len(f.Path) == 0 {
		return ""
	}
	return f.Path[len(f.Path)-1]
}

func (f FolderRef) String() string {
	return f.Account + ":" + strings.Join(f.Path, "/")
}

// RawMessage is the full message source as retrieved from the mail store,
// together with its 1-based position in the folder at enumeration time.
type RawMessage struct {
	Index  int
	Source []byte
}

// Address is a decoded mail address with an optional display name.
type Address struct {
	Name string
	Addr string
}

func (a Address) String() string {
	if a.Name != "" && a.Addr != "" {
		return a.Name + " <" + a.Addr + ">"
	}
	if a.Addr != "" {
		return a.Addr
	}
	return a.Name
}

// ParsedMessage holds the structured fields recovered from a raw message.
// Immutable once constructed.
type ParsedMessage struct {
	From       Address
	To         []Address
	Subject    string
	ReceivedAt time.Time
	TextBody   string
	HTMLBody   string
}

// ContactInfo carries the best-effort contact signals mined from a message
// body. Every field may be empty; extraction never fails.
type ContactInfo struct {
	SenderName string
	Company    string
	Phone      string
	Website    string
}

// ReportRow is one line of the aggregated contact report.
type ReportRow struct {
	From    string
	Date    time.Time
	Contact ContactInfo
}
