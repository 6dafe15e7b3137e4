package extract

import (
	"testing"

	"github.com/dhcgn/mail-export/model"
)

func TestExtractSignatureBlock(t *testing.T) {
	body := "Hi,\n\nplease find the offer attached.\n\nBest regards,\nJane Doe\nAcme Corp\n+1 415-555-0100\n"

	info := Extract(body, "Jane Doe <jane@acme.example>")

	want := model.ContactInfo{
		SenderName: "Jane Doe",
		Company:    "Acme Corp",
		Phone:      "+1 415-555-0100",
	}
	if info != want {
		t.Fatalf("Extract = %+v, want %+v", info, want)
	}
}

func TestSenderName(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"angle bracket form", "Jane Doe <jane@acme.example>", "Jane Doe"},
		{"quoted display name", `"Doe, Jane" <jane@acme.example>`, "Doe, Jane"},
		{"no angle bracket", "jane@acme.example", "jane@acme.example"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := senderName(tt.header); got != tt.want {
				t.Errorf("senderName(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestWebsite(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"https url reduced to origin", "Details: https://shop.example.org/catalog?id=7", "https://shop.example.org"},
		{"http url", "see http://example.com/a/b", "http://example.com"},
		{"www token", "Visit www.example.net/start today", "www.example.net"},
		{"no url", "no links here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := website(tt.body); got != tt.want {
				t.Errorf("website(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestPhonePrefersSignature(t *testing.T) {
	body := "Order 12345678 confirmed.\n\nRegards,\nSupport Team\n+49 30 1234567\n"

	info := Extract(body, "support@example.com")
	if info.Phone != "+49 30 1234567" {
		t.Fatalf("Phone = %q, want signature number", info.Phone)
	}
}

func TestPhoneRequiresSevenDigits(t *testing.T) {
	if got := firstPhone("call 12 34 at noon"); got != "" {
		t.Fatalf("firstPhone = %q, want empty", got)
	}
}

func TestNoSignOff(t *testing.T) {
	info := Extract("just a short note with no closing", "alice@example.com")
	if info.Company != "" {
		t.Fatalf("Company = %q, want empty", info.Company)
	}
}

func TestSignOffVariants(t *testing.T) {
	tests := []struct {
		line  string
		match bool
	}{
		{"Best regards,", true},
		{"kind regards", true},
		{"THANKS,", true},
		{"Cheers", true},
		{"Regards, Jane", true},
		{"Regardsless", false},
		{"warmly", false},
	}

	for _, tt := range tests {
		if got := isSignOff(tt.line); got != tt.match {
			t.Errorf("isSignOff(%q) = %v, want %v", tt.line, got, tt.match)
		}
	}
}

func BenchmarkExtract(b *testing.B) {
	body := "Hello,\n\nthe report is ready at https://reports.example.com/q3.\n\nBest regards,\nJane Doe\nAcme Corp\n+1 415-555-0100\n"
	for i := 0; i < b.N; i++ {
		Extract(body, "Jane Doe <jane@acme.example>")
	}
}
