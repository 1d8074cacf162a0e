package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	vm "github.com/ericfisherdev/guardiansync/internal/adapter/driving/web/viewmodel"
)

// RunDetail renders a run summary followed by its transcript.
func RunDetail(r vm.RunViewModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := newPrinter(w)

		p.printf(`<section class="run" id="run-%s">`+"\n", templ.EscapeString(r.ID))
		p.printf(`<h1>Run <code>%s</code> <span class="status status-%s">%s</span></h1>`+"\n",
			templ.EscapeString(r.ID), templ.EscapeString(r.StatusClass), templ.EscapeString(r.Status))
		p.printf(`<dl><dt>Trigger</dt><dd>%s</dd><dt>Started</dt><dd>%s</dd><dt>Duration</dt><dd>%s</dd>`+
			`<dt>Fetched</dt><dd>%d</dd><dt>Inserted</dt><dd>%d</dd><dt>Marked</dt><dd>%d</dd><dt>Mark failures</dt><dd>%d</dd></dl>`+"\n",
			templ.EscapeString(r.Trigger), templ.EscapeString(r.StartedAt), templ.EscapeString(r.Duration),
			r.Fetched, r.Inserted, r.Marked, r.MarkFailed)
		if r.Error != "" {
			p.printf(`<p class="error">%s</p>`+"\n", templ.EscapeString(r.Error))
		}

		p.printf(`<h2>Transcript (%d events)</h2>`+"\n", r.EventCount)
		// TranscriptHTML is sanitized by the web package before it reaches here.
		p.print(`<pre class="transcript">` + r.TranscriptHTML + "</pre>\n")
		p.print(`<p><a href="/">Back to dashboard</a></p>` + "\n</section>\n")

		return p.err
	})
}
