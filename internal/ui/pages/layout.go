package pages

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/templui/discord-onboarding/internal/ctxkeys"
)

// stylesheet defines the handful of utility classes the pages use.
const stylesheet = `
body{margin:0;font-family:system-ui,sans-serif;background:#f4f4f5;color:#18181b}
.container{max-width:32rem;margin:4rem auto;padding:0 1rem}
.card{border-radius:.75rem;padding:2rem;border:1px solid #e4e4e7;background:#fff}
.title{font-size:1.5rem;font-weight:600;margin:0 0 1rem}
.muted{color:#71717a;font-size:.875rem}
.border-green{border-color:#86efac}.bg-green{background:#f0fdf4}
.border-red{border-color:#fca5a5}.bg-red{background:#fef2f2}
.border-amber{border-color:#fcd34d}.bg-amber{background:#fffbeb}
a{color:#4f46e5}
`

func appName(ctx context.Context) string {
	if cfg := ctxkeys.Config(ctx); cfg != nil && cfg.AppName != "" {
		return cfg.AppName
	}
	return "Discord Onboarding"
}

// Layout wraps body in the HTML document shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		name := appName(ctx)
		_, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><meta name="robots" content="noindex"><title>%s · %s</title><style nonce="%s">%s</style></head><body><main class="container">`,
			templ.EscapeString(title), templ.EscapeString(name), templ.EscapeString(templ.GetNonce(ctx)), stylesheet,
		)
		if err != nil {
			return err
		}

		err = body.Render(ctx, w)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(w, `<p class="muted">%s</p></main></body></html>`, templ.EscapeString(name))
		return err
	})
}
