package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/dhcgn/mail-export/model"
)

// Heuristic contact extraction from a message body. Every sub-extraction is
// independent and best-effort: a miss leaves the field empty, nothing here
// ever returns an error.

var (
	urlPattern   = regexp.MustCompile(`https?://[^\s"'<>]+`)
	wwwPattern   = regexp.MustCompile(`\bwww\.[^\s"'<>]+`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-()]{7,}`)
	digitPattern = regexp.MustCompile(`\d`)
)

// signOffs mark the start of a signature block. Matched case-insensitively
// at the start of a line, with or without a trailing comma.
var signOffs = []string{
	"best regards",
	"kind regards",
	"regards",
	"thank you",
	"thanks",
	"sincerely",
	"cheers",
}

// Extract mines contact signals from a plain-text body and the From header.
func Extract(body, fromHeader string) model.ContactInfo {
	sig := signatureLines(body)

	return model.ContactInfo{
		SenderName: senderName(fromHeader),
		Company:    companyName(sig),
		Phone:      phone(sig, body),
		Website:    website(body),
	}
}

// senderName is the text preceding the first '<' in the From header, or the
// whole header when no angle bracket is present.
func senderName(fromHeader string) string {
	name := fromHeader
	if idx := strings.Index(fromHeader, "<"); idx >= 0 {
		name = fromHeader[:idx]
	}
	return strings.Trim(name, `" `)
}

// website returns the first URL in the body reduced to its origin, or the
// host part of the first www.-prefixed token.
func website(body string) string {
	if match := urlPattern.FindString(body); match != "" {
		if u, err := url.Parse(match); err == nil && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	if match := wwwPattern.FindString(body); match != "" {
		host, _, _ := strings.Cut(match, "/")
		return strings.TrimRight(host, ".,;")
	}
	return ""
}

// phone returns the first loose phone match, preferring the signature block
// over the full body. Candidates need at least 7 digits.
func phone(sig []string, body string) string {
	if len(sig) > 0 {
		if match := firstPhone(strings.Join(sig, "\n")); match != "" {
			return match
		}
	}
	return firstPhone(body)
}

func firstPhone(text string) string {
	for _, match := range phonePattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, " -")
		if len(digitPattern.FindAllString(match, -1)) >= 7 {
			return match
		}
	}
	return ""
}

// companyName guesses the company from a signature block: the second line
// after the sign-off, falling back to the last non-empty signature line.
func companyName(sig []string) string {
	if len(sig) >= 2 {
		return sig[1]
	}
	if len(sig) == 1 {
		return sig[0]
	}
	return ""
}

// signatureLines returns the non-empty lines following the first recognized
// sign-off line, or nil when no sign-off is found.
func signatureLines(body string) []string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if !isSignOff(strings.TrimSpace(line)) {
			continue
		}
		var sig []string
		for _, rest := range lines[i+1:] {
			rest = strings.TrimSpace(rest)
			if rest != "" {
				sig = append(sig, rest)
			}
		}
		return sig
	}
	return nil
}

func isSignOff(line string) bool {
	lower := strings.ToLower(line)
	for _, token := range signOffs {
		if lower == token || lower == token+"," || strings.HasPrefix(lower, token+",") {
			return true
		}
	}
	return false
}
