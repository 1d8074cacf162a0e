package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	vm "github.com/ericfisherdev/guardiansync/internal/adapter/driving/web/viewmodel"
)

// Dashboard renders the trigger form and the recent run list.
func Dashboard(d vm.DashboardViewModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := newPrinter(w)

		if d.Notice != "" {
			p.printf(`<p class="notice">%s</p>`+"\n", templ.EscapeString(d.Notice))
		}

		p.print(`<section class="trigger">` + "\n")
		p.print(`<h1>Partner import</h1>` + "\n")
		if d.Schedule != "" {
			p.printf(`<p class="schedule">Scheduled: <code>%s</code></p>`+"\n", templ.EscapeString(d.Schedule))
		}
		p.print(`<form method="post" action="/run">` + "\n")
		p.printf(`<input type="hidden" name="csrf_token" value="%s">`+"\n", templ.EscapeString(d.CSRFToken))
		if d.Running {
			p.print(`<button type="submit" disabled>Run in progress</button>` + "\n")
		} else {
			p.print(`<button type="submit">Run sync now</button>` + "\n")
		}
		p.print("</form>\n</section>\n")

		p.print(`<section class="runs">` + "\n<h2>Recent runs</h2>\n")
		if len(d.Runs) == 0 {
			p.print(`<p class="empty">No runs yet.</p>` + "\n</section>\n")
			return p.err
		}

		p.print("<table>\n<thead><tr><th>Started</th><th>Trigger</th><th>Status</th>" +
			"<th>Fetched</th><th>Inserted</th><th>Marked</th><th>Mark failures</th><th>Duration</th></tr></thead>\n<tbody>\n")
		for _, r := range d.Runs {
			p.printf(`<tr><td><a href="%s">%s</a></td><td>%s</td><td><span class="status status-%s">%s</span></td>`+
				"<td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%s</td></tr>\n",
				templ.EscapeString(r.DetailPath), templ.EscapeString(r.StartedAt),
				templ.EscapeString(r.Trigger),
				templ.EscapeString(r.StatusClass), templ.EscapeString(r.Status),
				r.Fetched, r.Inserted, r.Marked, r.MarkFailed,
				templ.EscapeString(r.Duration),
			)
		}
		p.print("</tbody>\n</table>\n</section>\n")

		return p.err
	})
}
