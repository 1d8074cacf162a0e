package web

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

var transcriptPolicy *bluemonday.Policy

func init() {
	transcriptPolicy = bluemonday.NewPolicy()
	transcriptPolicy.AllowAttrs("class").
		Matching(regexp.MustCompile(`^log-(error|warn|info)$`)).
		OnElements("span")
}

// RenderTranscript converts run events into HTML for a <pre> block. Event text
// is escaped, never stripped, so ERP bodies echoed in a transcript stay
// readable. Each event is wrapped in a <span> whose class reflects its level:
//   - log-error: ERROR events
//   - log-warn: WARN events
//   - log-info: everything else
func RenderTranscript(events []model.Event) string {
	if len(events) == 0 {
		return ""
	}

	var buf strings.Builder
	for i, ev := range events {
		if i > 0 {
			buf.WriteByte('\n')
		}

		buf.WriteString(`<span class="`)
		buf.WriteString(classForLevel(ev.Level))
		buf.WriteString(`">`)
		buf.WriteString(html.EscapeString(ev.String()))
		buf.WriteString(`</span>`)
	}

	return transcriptPolicy.Sanitize(buf.String())
}

func classForLevel(level string) string {
	switch level {
	case "ERROR":
		return "log-error"
	case "WARN":
		return "log-warn"
	default:
		return "log-info"
	}
}
