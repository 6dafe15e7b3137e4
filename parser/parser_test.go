package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/dhcgn/mail-export/model"
)

const plainMessage = "From: Alice Example <alice@example.com>\r\n" +
	"To: Bob <bob@example.com>, carol@example.net\r\n" +
	"Subject: Quarterly numbers\r\n" +
	"Date: Mon, 01 Jan 2024 10:00:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello Bob,\r\nnumbers attached.\r\n"

const multipartMessage = "From: news@example.com\r\n" +
	"Subject: Newsletter\r\n" +
	"Date: Tue, 02 Jan 2024 08:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"frontier\"\r\n" +
	"\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Read this in your browser.\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><body><p>Read this in your <b>browser</b>.</p></body></html>\r\n" +
	"--frontier--\r\n"

func TestParsePlainMessage(t *testing.T) {
	parsed, err := Parse(model.RawMessage{Index: 1, Source: []byte(plainMessage)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if parsed.From.Name != "Alice Example" || parsed.From.Addr != "alice@example.com" {
		t.Errorf("From = %+v", parsed.From)
	}
	if len(parsed.To) != 2 {
		t.Fatalf("To = %+v", parsed.To)
	}
	if parsed.To[0].Addr != "bob@example.com" || parsed.To[1].Addr != "carol@example.net" {
		t.Errorf("To = %+v", parsed.To)
	}
	if parsed.Subject != "Quarterly numbers" {
		t.Errorf("Subject = %q", parsed.Subject)
	}
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if !parsed.ReceivedAt.Equal(want) {
		t.Errorf("ReceivedAt = %v, want %v", parsed.ReceivedAt, want)
	}
	if !strings.Contains(parsed.TextBody, "numbers attached") {
		t.Errorf("TextBody = %q", parsed.TextBody)
	}
	if parsed.HTMLBody != "" {
		t.Errorf("HTMLBody = %q, want empty", parsed.HTMLBody)
	}
}

func TestParseMultipartMessage(t *testing.T) {
	parsed, err := Parse(model.RawMessage{Index: 2, Source: []byte(multipartMessage)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !strings.Contains(parsed.TextBody, "Read this in your browser") {
		t.Errorf("TextBody = %q", parsed.TextBody)
	}
	if !strings.Contains(parsed.HTMLBody, "<b>browser</b>") {
		t.Errorf("HTMLBody = %q", parsed.HTMLBody)
	}
}

func TestParseEmptyInput(t *testing.T) {
	_, err := Parse(model.RawMessage{Index: 3, Source: nil})
	if err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   model.Address
	}{
		{"display name and address", "Alice Example <alice@example.com>", model.Address{Name: "Alice Example", Addr: "alice@example.com"}},
		{"bare address", "bob@example.com", model.Address{Addr: "bob@example.com"}},
		{"no angle brackets", "billing team billing@example.com", model.Address{Name: "billing team billing@example.com"}},
		{"display name only", "\"Front Desk\"", model.Address{Name: "Front Desk"}},
		{"empty", "", model.Address{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAddress(tt.header)
			if got != tt.want {
				t.Errorf("parseAddress(%q) = %+v, want %+v", tt.header, got, tt.want)
			}
		})
	}
}
