package pages

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/a-h/templ"

	"github.com/templui/discord-onboarding/internal/markdown"
)

var parser = markdown.NewParser()

type notice struct {
	title   string
	body    string
	variant Variant
}

var (
	TokenNotFound = notice{
		title:   "Link not found",
		body:    "This authentication link is not valid. Use the `/bind` command in Discord to get a new one.",
		variant: VariantError,
	}
	TokenExpired = notice{
		title:   "Link expired",
		body:    "This authentication link has expired. Use the `/bind` command in Discord to get a new one.",
		variant: VariantWarning,
	}
	TokenUsed = notice{
		title:   "Link already used",
		body:    "This authentication link was already used. If your account is not linked yet, use `/bind` in Discord to get a new link.",
		variant: VariantWarning,
	}
	NoIdentity = notice{
		title:   "No identity found",
		body:    "The login did not return a character. Please try again and pick a character during login.",
		variant: VariantError,
	}
	SessionInvalid = notice{
		title:   "Session expired",
		body:    "Your login session expired or was started in another browser. Open the link from Discord again.",
		variant: VariantWarning,
	}
	LoginFailed = notice{
		title:   "Login failed",
		body:    "We could not complete the login. Please open the link from Discord and try again.",
		variant: VariantError,
	}
	RateLimited = notice{
		title:   "Too many requests",
		body:    "You are sending requests too quickly. Please wait a minute and try again.",
		variant: VariantWarning,
	}
	Unavailable = notice{
		title:   "Login unavailable",
		body:    "Character login is not configured on this server. Please contact an administrator.",
		variant: VariantError,
	}
	InternalError = notice{
		title:   "Something went wrong",
		body:    "An unexpected error occurred. Please try again later.",
		variant: VariantError,
	}
	linked = notice{
		title:   "Account linked",
		body:    "Your Discord account is now linked to **%s**. You can close this page and return to Discord.",
		variant: VariantSuccess,
	}
)

// Page renders the copy as a page.
func (n notice) Page() Notice {
	return Notice{Title: n.title, Body: render(n.body), Variant: n.variant}
}

// Linked is the success page after completion.
func Linked(characterName string) Notice {
	n := linked
	n.body = fmt.Sprintf(n.body, escapeMarkdown(characterName))
	return n.Page()
}

func render(source string) string {
	html, err := parser.ParseString(source)
	if err != nil {
		slog.Error("failed to render page copy", "error", err)
		return "<p>" + templ.EscapeString(source) + "</p>"
	}
	return html
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`, "#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
