package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/dhcgn/mail-export/model"
)

// envelopeTemplate is the printable document wrapper: subject as title and
// heading, a From/To/Date header block, a rule, then the message body.
var envelopeTemplate = template.Must(template.New("envelope").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body>
<div style="font-family:sans-serif;">
<h2>{{.Subject}}</h2>
<div><b>From:</b> {{.From}}</div>
<div><b>To:</b> {{.To}}</div>
<div><b>Date:</b> {{.Date}}</div>
<hr/>
{{if .HTMLBody}}<div>{{.HTMLBody}}</div>{{else}}<pre>{{.TextBody}}</pre>{{end}}
</div>
</body>
</html>
`))

type envelopeData struct {
	Subject  string
	From     string
	To       string
	Date     string
	HTMLBody template.HTML
	TextBody string
}

// emailPolicy is a bluemonday policy for the formatting email bodies commonly
// carry. Scripts, external images and event handlers do not survive it.
func emailPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements("p", "br", "hr", "span", "div", "blockquote")
	p.AllowElements("b", "strong", "i", "em", "u", "s", "sub", "sup", "pre", "code")
	p.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowElements("ul", "ol", "li", "dl", "dt", "dd")
	p.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption")
	p.AllowAttrs("colspan", "rowspan", "align", "valign", "width", "height").OnElements("td", "th")
	p.AllowAttrs("width", "border", "cellpadding", "cellspacing", "align").OnElements("table")

	p.AllowElements("a")
	p.AllowAttrs("href", "title").OnElements("a")
	p.RequireNoReferrerOnLinks(true)

	p.AllowElements("img")
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.AllowURLSchemes("data", "cid", "https")

	p.AllowAttrs("style").Globally()
	p.AllowStyles(
		"color", "background-color", "background",
		"font-family", "font-size", "font-weight", "font-style",
		"text-align", "text-decoration",
		"margin", "padding", "border", "width", "height",
	).Globally()

	return p
}

// buildEnvelope renders the HTML document for one parsed message. The HTML
// body is sanitized through the policy; a message without one falls back to
// the plain-text body in a pre block.
func buildEnvelope(msg model.ParsedMessage, policy *bluemonday.Policy) (string, error) {
	var to []string
	for _, addr := range msg.To {
		to = append(to, addr.String())
	}

	data := envelopeData{
		Subject:  msg.Subject,
		From:     msg.From.String(),
		To:       strings.Join(to, ", "),
		TextBody: msg.TextBody,
	}
	if !msg.ReceivedAt.IsZero() {
		data.Date = msg.ReceivedAt.Format("2006-01-02 15:04:05 -0700")
	}
	if msg.HTMLBody != "" {
		data.HTMLBody = template.HTML(policy.Sanitize(msg.HTMLBody))
	}

	var sb strings.Builder
	if err := envelopeTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute envelope template: %w", err)
	}
	return sb.String(), nil
}
