package render

import (
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/spec-kit/tracker-central/internal/domain"
)

// DefaultHeadingStyle is the inline style of the outer heading div.
const DefaultHeadingStyle = "color: #000000;"

const headingSpanStyle = "text-decoration: underline; background-color: #c1e9d9;"

// Generator turns field values into a ticket description. It is safe for
// concurrent use.
type Generator struct {
	policy *bluemonday.Policy
}

// NewGenerator builds a generator with the user-generated-content policy,
// extended to keep the inline styles the rich-text editor emits.
func NewGenerator() *Generator {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("style").OnElements("p", "span", "div", "strong", "em", "li", "ol", "ul", "h1", "h2", "h3", "td", "th")
	p.AllowStyles("color", "background-color", "text-decoration", "text-align", "margin-left", "margin-top", "margin-bottom", "font-weight", "font-style").Globally()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("p", "span", "li", "ol", "ul", "pre")
	p.AllowAttrs("target").Matching(bluemonday.SpaceSeparatedTokens).OnElements("a")
	return &Generator{policy: p}
}

var defaultGenerator = NewGenerator()

// GenerateDescription renders tpl's description with the shared generator.
func GenerateDescription(tpl *domain.Template, values domain.FieldValues) string {
	return defaultGenerator.Generate(tpl, values)
}

// Generate renders the description. Missing values never fail rendering;
// they only drop or shorten the affected blocks.
func (g *Generator) Generate(tpl *domain.Template, values domain.FieldValues) string {
	if tpl == nil {
		return ""
	}
	r := blockRenderer{
		g:            g,
		tpl:          tpl,
		values:       values,
		headingStyle: tpl.Body.HeadingStyle,
	}
	if r.headingStyle == "" {
		r.headingStyle = DefaultHeadingStyle
	}
	var b strings.Builder
	r.render(&b, tpl.Body.Blocks)
	return b.String()
}

// Sanitize cleans rich-text HTML.
func (g *Generator) Sanitize(value string) string {
	return g.policy.Sanitize(value)
}

type blockRenderer struct {
	g            *Generator
	tpl          *domain.Template
	values       domain.FieldValues
	headingStyle string
}

func (r blockRenderer) render(b *strings.Builder, blocks []domain.Block) {
	for _, blk := range blocks {
		switch blk.Kind {
		case domain.BlockHeading:
			b.WriteString(Heading(blk.Text, lookupStyle(blk.Style, r.headingStyle)))
		case domain.BlockSpacer:
			b.WriteString(Spacer(blk.Px, blk.Top))
		case domain.BlockText:
			b.WriteString(blk.Text)
		case domain.BlockDiv:
			r.div(b, blk)
		case domain.BlockLine:
			r.line(b, blk)
		case domain.BlockHAR:
			r.har(b, blk)
		case domain.BlockGroup:
			if r.anyPresent(blk.AnyOf) {
				r.render(b, blk.Blocks)
			} else {
				r.render(b, blk.Else)
			}
		}
	}
}

// Heading renders a section heading.
func Heading(text, style string) string {
	if style == "" {
		style = DefaultHeadingStyle
	}
	return `<div style="` + style + `"><span style="` + headingSpanStyle + `">` + text + `</span></div>`
}

// Spacer renders an empty div with a vertical margin.
func Spacer(px int, top bool) string {
	if px <= 0 {
		px = 20
	}
	side := "margin-bottom"
	if top {
		side = "margin-top"
	}
	return `<div style="` + side + `: ` + strconv.Itoa(px) + `px;"></div>`
}

func (r blockRenderer) div(b *strings.Builder, blk domain.Block) {
	value, ok := r.value(blk)
	if !ok {
		switch blk.Empty {
		case domain.EmptyPlaceholder:
			r.open(b, blk)
			b.WriteString("<em>" + blk.Default + "</em></div>")
		case domain.EmptyDefault:
			r.open(b, blk)
			b.WriteString(blk.Default + "</div>")
		case domain.EmptyBlank:
			r.open(b, blk)
			b.WriteString("</div>")
		}
		return
	}
	r.open(b, blk)
	b.WriteString(value + "</div>")
}

func (r blockRenderer) open(b *strings.Builder, blk domain.Block) {
	if blk.Label != "" {
		b.WriteString("<div><strong>" + blk.Label + ":</strong></div>")
	}
	b.WriteString(blk.Prefix)
	if blk.Style != "" {
		b.WriteString(`<div style="` + blk.Style + `">`)
		return
	}
	b.WriteString("<div>")
}

func (r blockRenderer) line(b *strings.Builder, blk domain.Block) {
	value, ok := r.value(blk)
	if !ok {
		if !blk.Always {
			return
		}
		value = html.EscapeString(blk.Default)
	}
	sep := ": "
	if blk.Sep != nil {
		sep = *blk.Sep
	}
	suffix := "<br>"
	if blk.Suffix != nil {
		suffix = *blk.Suffix
	}
	b.WriteString(blk.Label + sep + value + suffix)
}

func (r blockRenderer) har(b *strings.Builder, blk domain.Block) {
	attached := r.values.Trimmed(blk.Field)
	if attached == "" && !blk.Always {
		return
	}
	trigger := blk.Trigger
	if trigger == "" {
		trigger = "No"
	}
	out := html.EscapeString(attached)
	if attached == trigger && r.values.Has(blk.Reason) {
		out += " (" + html.EscapeString(r.values.Trimmed(blk.Reason)) + ")"
	}
	suffix := "<br>"
	if blk.Suffix != nil {
		suffix = *blk.Suffix
	}
	b.WriteString(blk.Label + ": " + out + suffix)
}

// value resolves the block's field, then its fallbacks, and formats the
// first present one.
func (r blockRenderer) value(blk domain.Block) (string, bool) {
	if blk.Field == "" {
		return "", false
	}
	for _, id := range append([]string{blk.Field}, blk.Fallback...) {
		if !r.values.Has(id) {
			continue
		}
		return r.format(id, blk.Format), true
	}
	return "", false
}

func (r blockRenderer) format(id string, format domain.ValueFormat) string {
	raw := r.values.Get(id)
	switch format {
	case domain.FormatDate:
		return html.EscapeString(FormatDate(strings.TrimSpace(raw)))
	case domain.FormatLink:
		return LinkHTML(raw)
	case domain.FormatProgram:
		return html.EscapeString(ProgramName(raw, r.values))
	}
	if f, ok := r.tpl.Field(id); ok && f.Type == domain.FieldRichText {
		return r.g.Sanitize(raw)
	}
	if f, ok := r.tpl.Field(id); ok && f.Type == domain.FieldCheckboxes {
		return html.EscapeString(RoleText(r.values, id, f.Options))
	}
	return html.EscapeString(strings.TrimSpace(raw))
}

func (r blockRenderer) anyPresent(ids []string) bool {
	for _, id := range ids {
		if r.values.Has(id) {
			return true
		}
	}
	return false
}

func lookupStyle(style, fallback string) string {
	if style != "" {
		return style
	}
	return fallback
}
