package render

import (
	"strings"
	"testing"
	"time"

	"github.com/dhcgn/mail-export/model"
)

func testMessage() model.ParsedMessage {
	return model.ParsedMessage{
		From:       model.Address{Name: "Alice Example", Addr: "alice@example.com"},
		To:         []model.Address{{Name: "Bob", Addr: "bob@example.com"}},
		Subject:    "Quarterly numbers",
		ReceivedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		TextBody:   "Hello Bob,\nnumbers attached.",
	}
}

func TestBuildEnvelopeHeaderBlock(t *testing.T) {
	html, err := buildEnvelope(testMessage(), emailPolicy())
	if err != nil {
		t.Fatalf("buildEnvelope: %v", err)
	}

	for _, want := range []string{
		"<title>Quarterly numbers</title>",
		"<h2>Quarterly numbers</h2>",
		"Alice Example &lt;alice@example.com&gt;",
		"Bob &lt;bob@example.com&gt;",
		"2024-01-01 10:00:00",
		"<hr/>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("envelope missing %q", want)
		}
	}
}

func TestBuildEnvelopeTextFallback(t *testing.T) {
	html, err := buildEnvelope(testMessage(), emailPolicy())
	if err != nil {
		t.Fatalf("buildEnvelope: %v", err)
	}

	if !strings.Contains(html, "<pre>Hello Bob,\nnumbers attached.</pre>") {
		t.Errorf("plain-text body not wrapped in pre block:\n%s", html)
	}
}

func TestBuildEnvelopePrefersHTMLBody(t *testing.T) {
	msg := testMessage()
	msg.HTMLBody = "<p>Numbers <b>attached</b>.</p>"

	html, err := buildEnvelope(msg, emailPolicy())
	if err != nil {
		t.Fatalf("buildEnvelope: %v", err)
	}

	if !strings.Contains(html, "<p>Numbers <b>attached</b>.</p>") {
		t.Errorf("HTML body missing:\n%s", html)
	}
	if strings.Contains(html, "<pre>") {
		t.Errorf("pre fallback used despite HTML body:\n%s", html)
	}
}

func TestBuildEnvelopeSanitizesHTMLBody(t *testing.T) {
	msg := testMessage()
	msg.HTMLBody = `<p onclick="steal()">hi</p><script>alert(1)</script>`

	html, err := buildEnvelope(msg, emailPolicy())
	if err != nil {
		t.Fatalf("buildEnvelope: %v", err)
	}

	if strings.Contains(html, "<script>") || strings.Contains(html, "onclick") {
		t.Errorf("unsafe markup survived sanitization:\n%s", html)
	}
	if !strings.Contains(html, "<p>hi</p>") {
		t.Errorf("safe markup stripped:\n%s", html)
	}
}

func TestBuildEnvelopeEscapesSubject(t *testing.T) {
	msg := testMessage()
	msg.Subject = `<img src=x onerror=alert(1)>`

	html, err := buildEnvelope(msg, emailPolicy())
	if err != nil {
		t.Fatalf("buildEnvelope: %v", err)
	}

	if strings.Contains(html, "<img src=x") {
		t.Errorf("subject not escaped:\n%s", html)
	}
}
