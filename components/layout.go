// Package components renders the HTML screens. Components are plain
// templ.Component values so handlers can pass them to templ.Handler or
// datastar fragment merges.
package components

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// DatastarScript is the client bundle the verification form relies on.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-beta.11/bundles/datastar.js"

// DatastarScriptSources are the script-src entries DatastarScript needs. The
// bundle compiles data-on-* expressions at runtime, hence 'unsafe-eval'.
var DatastarScriptSources = []string{"https://cdn.jsdelivr.net", "'unsafe-eval'"}

// NavLink is one entry in the sidebar.
type NavLink struct {
	Label  string
	Href   string
	Active bool
}

// PageProps configures the shared layout.
type PageProps struct {
	Title   string
	AppEnv  string
	Email   string
	Links   []NavLink
	Year    int
	Content templ.Component
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// Page is the full document shell: navbar, optional sidebar, content, footer.
func Page(p PageProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := "ComplyHub"
		if p.Title != "" {
			title = p.Title + " | ComplyHub"
		}
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>%s</title><script type="module" src="%s"></script></head><body data-env="%s">`,
			esc(title), DatastarScript, esc(p.AppEnv)); err != nil {
			return err
		}
		if err := Navbar(p.Email).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<div class="layout">`); err != nil {
			return err
		}
		if len(p.Links) > 0 {
			if err := Sidebar(p.Links).Render(ctx, w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<main class="content">`); err != nil {
			return err
		}
		if p.Content != nil {
			if err := p.Content.Render(ctx, w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</main></div>`); err != nil {
			return err
		}
		if err := Footer(p.Year).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// Navbar shows the product name and, when signed in, the account email.
func Navbar(email string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		account := `<a class="navbar-signin" href="/login">Sign in</a>`
		if email != "" {
			account = fmt.Sprintf(`<span class="navbar-account">%s</span>`, esc(email))
		}
		_, err := fmt.Fprintf(w, `<nav class="navbar"><a class="navbar-brand" href="/">ComplyHub</a>%s</nav>`, account)
		return err
	})
}

// Sidebar lists navigation links, marking the active one.
func Sidebar(links []NavLink) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<aside class="sidebar"><ul>`); err != nil {
			return err
		}
		for _, l := range links {
			class := ""
			if l.Active {
				class = ` class="active" aria-current="page"`
			}
			if _, err := fmt.Fprintf(w, `<li><a href="%s"%s>%s</a></li>`,
				esc(string(templ.URL(l.Href))), class, esc(l.Label)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul></aside>`)
		return err
	})
}

// Footer renders the copyright line.
func Footer(year int) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<footer class="footer"><p>&copy; %d ComplyHub. All rights reserved.</p>`+
			`<nav><a href="/privacy">Privacy</a> <a href="/terms">Terms</a></nav></footer>`, year)
		return err
	})
}
