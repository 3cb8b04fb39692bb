package email

import (
	"fmt"
	"html"
	"strings"
)

// Document is the part of a project document that appears in a delivery
// email.
type Document struct {
	Name        string
	URL         string
	Category    string
	ReviewStage string // machine value, e.g. "review_1"
	Description string // optional
}

// StageLabel normalises a machine stage value for display: "review_1"
// becomes "REVIEW 1".
func StageLabel(stage string) string {
	return strings.ToUpper(strings.ReplaceAll(stage, "_", " "))
}

// RenderDocumentsHTML concatenates one escaped card per document in input
// order.
func RenderDocumentsHTML(docs []Document) string {
	var b strings.Builder
	for _, d := range docs {
		b.WriteString(`<div style="border: 1px solid #e5e7eb; border-radius: 8px; padding: 16px; margin-bottom: 12px;">`)
		fmt.Fprintf(&b, `<h3 style="margin: 0 0 8px 0; font-size: 16px; color: #111827;">%s</h3>`, html.EscapeString(d.Name))
		fmt.Fprintf(&b, `<p style="margin: 0 0 4px 0; font-size: 14px; color: #6b7280;">Category: %s</p>`, html.EscapeString(d.Category))
		fmt.Fprintf(&b, `<p style="margin: 0 0 8px 0; font-size: 14px; color: #6b7280;">Stage: %s</p>`, html.EscapeString(StageLabel(d.ReviewStage)))
		if d.Description != "" {
			fmt.Fprintf(&b, `<p style="margin: 0 0 12px 0; font-size: 14px; color: #374151;">%s</p>`, html.EscapeString(d.Description))
		}
		fmt.Fprintf(&b, `<a href="%s" target="_blank" rel="noopener noreferrer" `+
			`style="display: inline-block; background: #0f172a; color: #ffffff; padding: 8px 16px; `+
			`border-radius: 6px; text-decoration: none; font-weight: 600; font-size: 14px;">Download Document</a>`,
			html.EscapeString(d.URL))
		b.WriteString(`</div>`)
	}
	return b.String()
}

// RenderDocumentsText is the plain-text equivalent of RenderDocumentsHTML with
// the same fields in the same order.
func RenderDocumentsText(docs []Document) string {
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "%s\n", d.Name)
		fmt.Fprintf(&b, "Category: %s\n", d.Category)
		fmt.Fprintf(&b, "Stage: %s\n", StageLabel(d.ReviewStage))
		if d.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", d.Description)
		}
		fmt.Fprintf(&b, "Download: %s\n\n", d.URL)
	}
	return b.String()
}
