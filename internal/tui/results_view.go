package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Daethyra/ExecEye/internal/search"
	"github.com/Daethyra/ExecEye/internal/storage/sqlite"
)

// orNA returns NotAvailable for an empty field.
func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

func noun(intent search.Intent) string {
	if intent == search.IntentNews {
		return "News"
	}
	return "Executives"
}

// RenderResults renders records found for company.
//
// Plain output is:
//
//	Executives found for Acme:
//	  - Jane Doe - CEO
//	    Link: https://acme.example/jane
//	    Snippet: N/A
func RenderResults(p Painter, company string, intent search.Intent, records []search.Record) string {
	var sb strings.Builder

	if len(records) == 0 {
		sb.WriteString(p.Paint(MutedStyle,
			fmt.Sprintf("No %s found for %s.", strings.ToLower(noun(intent)), company)))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(p.Paint(HeaderStyle, fmt.Sprintf("%s found for %s:", noun(intent), company)))
	sb.WriteString("\n")
	for _, rec := range records {
		sb.WriteString("  - ")
		sb.WriteString(p.Paint(ValueStyle, orNA(rec.Title)))
		sb.WriteString("\n    ")
		sb.WriteString(p.Paint(LabelStyle, "Link: "))
		sb.WriteString(p.Paint(LinkStyle, orNA(rec.Link)))
		sb.WriteString("\n    ")
		sb.WriteString(p.Paint(LabelStyle, "Snippet: "))
		sb.WriteString(orNA(rec.Snippet))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderHistory renders persisted rows, one block per row.
func RenderHistory(p Painter, rows []sqlite.Row) string {
	if len(rows) == 0 {
		return p.Paint(MutedStyle, "No stored results.") + "\n"
	}

	var sb strings.Builder
	for _, row := range rows {
		stamp := NotAvailable
		if !row.CreatedAt.IsZero() && row.CreatedAt.Unix() > 0 {
			stamp = row.CreatedAt.Local().Format(time.DateTime)
		}
		sb.WriteString(p.Paint(MutedStyle, fmt.Sprintf("#%d %s [%s]", row.ID, stamp, row.Query)))
		sb.WriteString("\n  - ")
		sb.WriteString(p.Paint(ValueStyle, orNA(row.Title)))
		sb.WriteString("\n    ")
		sb.WriteString(p.Paint(LabelStyle, "Link: "))
		sb.WriteString(p.Paint(LinkStyle, orNA(row.Link)))
		sb.WriteString("\n    ")
		sb.WriteString(p.Paint(LabelStyle, "Snippet: "))
		sb.WriteString(orNA(row.Snippet))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderWarning renders a one-line warning.
func RenderWarning(p Painter, msg string) string {
	if p.Styled {
		return WarningStyle.Render(IconWarning+" "+msg) + "\n"
	}
	return "Warning: " + msg + "\n"
}
