package parser

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/dhcgn/mail-export/model"
)

// Parse decodes a raw message into its structured fields. A returned error is
// a parse-level warning: the caller logs it and moves on, it never aborts a
// batch. Address headers without an angle-bracket form are kept as-is rather
// than rejected.
func Parse(raw model.RawMessage) (model.ParsedMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw.Source))
	if err != nil {
		return model.ParsedMessage{}, fmt.Errorf("parse message %d: %w", raw.Index, err)
	}

	parsed := model.ParsedMessage{
		From:     parseAddress(env.GetHeader("From")),
		Subject:  env.GetHeader("Subject"),
		TextBody: env.Text,
		HTMLBody: env.HTML,
	}

	if list, err := env.AddressList("To"); err == nil {
		for _, addr := range list {
			parsed.To = append(parsed.To, model.Address{Name: addr.Name, Addr: addr.Address})
		}
	} else if to := strings.TrimSpace(env.GetHeader("To")); to != "" {
		parsed.To = append(parsed.To, parseAddress(to))
	}

	if date, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		parsed.ReceivedAt = date
	}

	return parsed, nil
}

// parseAddress decodes a single address header. Headers that net/mail cannot
// handle (no angle brackets, bare display name) degrade to whichever part is
// recognizable instead of failing.
func parseAddress(header string) model.Address {
	header = strings.TrimSpace(header)
	if header == "" {
		return model.Address{}
	}

	if addr, err := mail.ParseAddress(header); err == nil {
		return model.Address{Name: addr.Name, Addr: addr.Address}
	}

	if strings.Contains(header, "@") && !strings.ContainsAny(header, "<> ") {
		return model.Address{Addr: header}
	}
	return model.Address{Name: strings.Trim(header, `"<> `)}
}
