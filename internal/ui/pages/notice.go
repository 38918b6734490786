package pages

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	twmerge "github.com/Oudwins/tailwind-merge-go"
)

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantWarning Variant = "warning"
)

var variantClasses = map[Variant]string{
	VariantSuccess: "border-green bg-green",
	VariantError:   "border-red bg-red",
	VariantWarning: "border-amber bg-amber",
}

// Notice is a single message page. Body is trusted HTML, usually rendered
// from markdown.
type Notice struct {
	Title   string
	Body    string
	Variant Variant
	Class   string // extra classes, merged over the variant
}

func (n Notice) classes() string {
	return twmerge.Merge("card", variantClasses[n.Variant], n.Class)
}

// NoticeCard renders the notice without the page shell.
func NoticeCard(n Notice) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section class="%s" data-variant="%s"><h1 class="title">%s</h1>%s</section>`,
			templ.EscapeString(n.classes()),
			templ.EscapeString(string(n.Variant)),
			templ.EscapeString(n.Title),
			n.Body,
		)
		return err
	})
}

func NoticePage(n Notice) templ.Component {
	return Layout(n.Title, NoticeCard(n))
}
