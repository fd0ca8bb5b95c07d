package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

const excerptRunes = 155

// Options are the presentation settings shared by every formatter.
type Options struct {
	// AssetBaseURL prefixes stored asset handles to build image URLs.
	AssetBaseURL string
	// DetailURLBase is joined with the external id to link a listing.
	DetailURLBase string
	AdoptURL      string
	ImageSize     string
}

// Formatter turns one record into an HTML fragment.
type Formatter interface {
	Format(rec mirror.Record, opts Options) string
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(rec mirror.Record, opts Options) string

// Format calls f.
func (f FormatterFunc) Format(rec mirror.Record, opts Options) string {
	return f(rec, opts)
}

// DefaultFormatter is applied when no steps are requested.
const DefaultFormatter = "basic"

var formatters = map[string]Formatter{
	"basic":       FormatterFunc(basic),
	"name":        FormatterFunc(name),
	"description": FormatterFunc(description),
	"excerpt":     FormatterFunc(excerpt),
	"image":       FormatterFunc(image),
	"link":        FormatterFunc(link),
	"breed":       field("breed", func(r mirror.Record) string { return r.BreedSummary }),
	"age":         field("age", func(r mirror.Record) string { return r.AgeCategory }),
	"sex":         field("sex", func(r mirror.Record) string { return r.Sex }),
	"size":        field("size", func(r mirror.Record) string { return r.SizeCategory }),
	"adopt":       FormatterFunc(adopt),
}

// Lookup resolves a step name. Names are case-insensitive.
func Lookup(step string) (Formatter, bool) {
	f, ok := formatters[strings.ToLower(strings.TrimSpace(step))]
	return f, ok
}

// Names lists the registered formatter names.
func Names() []string {
	return []string{"basic", "name", "description", "excerpt", "image", "link", "breed", "age", "sex", "size", "adopt"}
}

func basic(rec mirror.Record, opts Options) string {
	var b strings.Builder
	b.WriteString(`<div style="float:left; display:inline-block;">`)
	b.WriteString(`<article><header><a href="` + detailURL(rec, opts) + `">`)
	b.WriteString(image(rec, opts))
	b.WriteString(`</a></header>`)
	b.WriteString(`<div class="post-excerpt"><h1>` + html.EscapeString(rec.Name) + `</h1>`)
	b.WriteString(`<p>` + html.EscapeString(truncate(rec.Description)) + adopt(rec, opts) + `</p>`)
	b.WriteString(`<br /><h4>` + link(rec, opts) + `</h4><br /></div>`)
	b.WriteString(`</article></div>`)
	return b.String()
}

func name(rec mirror.Record, _ Options) string {
	return `<h1>` + html.EscapeString(rec.Name) + `</h1>`
}

func description(rec mirror.Record, _ Options) string {
	return `<p class="description">` + html.EscapeString(rec.Description) + `</p>`
}

func excerpt(rec mirror.Record, _ Options) string {
	return `<p class="excerpt">` + html.EscapeString(truncate(rec.Description)) + `</p>`
}

func image(rec mirror.Record, opts Options) string {
	if len(rec.AssetHandles) == 0 {
		return ""
	}
	src := strings.TrimRight(opts.AssetBaseURL, "/") + "/" + strings.TrimLeft(rec.AssetHandles[0], "/")
	class := ""
	if opts.ImageSize != "" {
		class = ` class="size-` + html.EscapeString(strings.ToLower(opts.ImageSize)) + `"`
	}
	return fmt.Sprintf(`<img src="%s" alt="%s"%s />`, html.EscapeString(src), html.EscapeString(rec.Name), class)
}

func link(rec mirror.Record, opts Options) string {
	petName := html.EscapeString(rec.Name)
	return `<a rel="nofollow" href="` + detailURL(rec, opts) + `" target="_blank" title="Learn more about ` + petName +
		`">Find out more about ` + petName + `</a>`
}

func adopt(_ mirror.Record, opts Options) string {
	return `<a class="button pink" href="` + html.EscapeString(opts.AdoptURL) + `" title="Adopt a pet now">Adopt me</a>`
}

func field(class string, get func(mirror.Record) string) Formatter {
	return FormatterFunc(func(rec mirror.Record, _ Options) string {
		v := get(rec)
		if v == "" {
			return ""
		}
		return `<span class="` + class + `">` + html.EscapeString(v) + `</span>`
	})
}

func detailURL(rec mirror.Record, opts Options) string {
	return html.EscapeString(strings.TrimRight(opts.DetailURLBase, "/") + "/" + strconv.FormatInt(rec.ExternalID, 10))
}

// truncate cuts at excerptRunes and marks the cut.
func truncate(s string) string {
	if utf8.RuneCountInString(s) <= excerptRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:excerptRunes])) + ". . . "
}
