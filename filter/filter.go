package filter

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrModeConflict is returned when both include and exclude patterns are
// configured; the two modes are mutually exclusive.
var ErrModeConflict = errors.New("include and exclude filters are mutually exclusive")

type scope int

const (
	scopeHeader scope = iota
	scopeBody
)

type pattern struct {
	re    *regexp.Regexp
	scope scope
}

// Options captures the regex lists applied to each exported message.
type Options struct {
	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string
}

func (o Options) Empty() bool {
	return len(o.IncludeHeader) == 0 && len(o.IncludeBody) == 0 &&
		len(o.ExcludeHeader) == 0 && len(o.ExcludeBody) == 0
}

// Filter decides whether a message takes part in an export. In include mode
// a message must match at least one pattern; in exclude mode a match drops
// the message. A filtered-out message is still visited by the run, it just
// yields no artifact and no report row.
type Filter struct {
	include  []pattern
	exclude  []pattern
	wantHdr  bool
	wantBody bool
}

// New compiles the configured patterns. A nil Filter is returned for empty
// Options so callers can skip filtering entirely.
func New(opts Options) (*Filter, error) {
	include, err := compile(opts.IncludeHeader, scopeHeader)
	if err != nil {
		return nil, fmt.Errorf("include-header: %w", err)
	}
	includeBody, err := compile(opts.IncludeBody, scopeBody)
	if err != nil {
		return nil, fmt.Errorf("include-body: %w", err)
	}
	include = append(include, includeBody...)

	exclude, err := compile(opts.ExcludeHeader, scopeHeader)
	if err != nil {
		return nil, fmt.Errorf("exclude-header: %w", err)
	}
	excludeBody, err := compile(opts.ExcludeBody, scopeBody)
	if err != nil {
		return nil, fmt.Errorf("exclude-body: %w", err)
	}
	exclude = append(exclude, excludeBody...)

	if len(include) > 0 && len(exclude) > 0 {
		return nil, ErrModeConflict
	}
	if len(include) == 0 && len(exclude) == 0 {
		return nil, nil
	}

	f := &Filter{include: include, exclude: exclude}
	for _, p := range append(include, exclude...) {
		if p.scope == scopeHeader {
			f.wantHdr = true
		} else {
			f.wantBody = true
		}
	}
	return f, nil
}

// Allows reports whether the message with the given raw header and body
// sections takes part in the export.
func (f *Filter) Allows(header, body []byte) bool {
	var headerText, bodyText string
	if f.wantHdr {
		headerText = string(header)
	}
	if f.wantBody {
		bodyText = string(body)
	}

	if len(f.include) > 0 {
		return matchAny(f.include, headerText, bodyText)
	}
	return !matchAny(f.exclude, headerText, bodyText)
}

// SplitRawMessage splits a raw message into its header and body sections.
func SplitRawMessage(raw []byte) (header, body []byte) {
	if len(raw) == 0 {
		return nil, nil
	}

	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return raw[:idx], raw[idx+4:]
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return raw[:idx], raw[idx+2:]
	}

	return raw, nil
}

func compile(exprs []string, sc scope) ([]pattern, error) {
	patterns := make([]pattern, 0, len(exprs))
	for _, expr := range exprs {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", expr, err)
		}
		patterns = append(patterns, pattern{re: re, scope: sc})
	}
	return patterns, nil
}

func matchAny(patterns []pattern, headerText, bodyText string) bool {
	for _, p := range patterns {
		text := headerText
		if p.scope == scopeBody {
			text = bodyText
		}
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}
