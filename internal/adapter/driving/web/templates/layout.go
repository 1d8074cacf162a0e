// Package templates holds the templ components of the operator GUI.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in the shared HTML document.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<link rel="stylesheet" href="/static/style.css">
</head>
<body>
<header><a href="/" class="brand">guardiansync</a></header>
<main>
`, templ.EscapeString(title)); err != nil {
			return err
		}

		if err := body.Render(ctx, w); err != nil {
			return err
		}

		_, err := io.WriteString(w, "</main>\n</body>\n</html>\n")
		return err
	})
}
