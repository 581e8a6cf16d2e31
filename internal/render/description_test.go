package render

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/templates"
)

func loadTemplate(t *testing.T, key string) *domain.Template {
	t.Helper()
	reg, err := templates.Load(templates.WithResourceOptions([]string{"Bookshelves", "Reading Log"}))
	require.NoError(t, err)
	tpl, err := reg.Resolved(key)
	require.NoError(t, err)
	return tpl
}

const headingSpan = `<span style="text-decoration: underline; background-color: #c1e9d9;">`

func TestGenerateDescriptionHelpArticle(t *testing.T) {
	tpl := loadTemplate(t, "help-article")
	values := domain.FieldValues{
		"summaryContent":  "<p>Update the article</p>",
		"requester":       "Abby Miller",
		"dateRequested":   "2025-06-05",
		"articleName":     "Reading Log",
		"articleUrl":      "help.benchmarkuniverse.com/a/1",
		"referenceImages": domain.EmptyEditorHTML,
	}

	want := `<div style="color: #000000">` + headingSpan + `SUMMARY</span></div>` +
		`<div><p>Update the article</p></div>` +
		`<div style="margin-bottom: 20px;"></div>` +
		`<div style="color: #000000;">` + headingSpan + `DESCRIPTION</span></div>` +
		`Requestor: Abby Miller<br>` +
		`Date Request: 06/05/2025<br>` +
		`Name of BU Help Article: Reading Log<br>` +
		`URL of BU Help Article: <a href="https://help.benchmarkuniverse.com/a/1" target="_blank">help.benchmarkuniverse.com/a/1</a><br>`

	if diff := cmp.Diff(want, GenerateDescription(tpl, values)); diff != "" {
		t.Errorf("description mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateDescriptionEmptyValues(t *testing.T) {
	tpl := loadTemplate(t, "help-article")

	want := `<div style="color: #000000;">` + headingSpan + `DESCRIPTION</span></div>` +
		`Requestor: <br>` +
		`Name of BU Help Article: <br>`
	assert.Equal(t, want, GenerateDescription(tpl, nil))
}

func TestGenerateDescriptionBURCLink(t *testing.T) {
	tpl := loadTemplate(t, "sim-orr")
	out := GenerateDescription(tpl, domain.FieldValues{
		"BURCLink": "onboarding-production.benchmarkuniverse.com/123",
	})
	assert.Contains(t, out,
		`BURC Link: <a href="https://onboarding-production.benchmarkuniverse.com/123" target="_blank">onboarding-production.benchmarkuniverse.com/123</a>`)
}

func TestGenerateDescriptionHAR(t *testing.T) {
	tpl := loadTemplate(t, "sim-orr")

	missing := GenerateDescription(tpl, domain.FieldValues{
		"harFileAttached": "No",
		"harFileReason":   "camera broken",
	})
	assert.Contains(t, missing, "HAR file attached: No (camera broken)<br>")

	attached := GenerateDescription(tpl, domain.FieldValues{
		"harFileAttached": "Yes",
		"harFileReason":   "camera broken",
	})
	assert.Contains(t, attached, "HAR file attached: Yes<br>")
	assert.NotContains(t, attached, "camera broken")

	noReason := GenerateDescription(tpl, domain.FieldValues{"harFileAttached": "No"})
	assert.Contains(t, noReason, "HAR file attached: No<br>")

	assert.NotContains(t, GenerateDescription(tpl, nil), "HAR file attached")
}

func TestGenerateDescriptionEscapesPlainText(t *testing.T) {
	tpl := loadTemplate(t, "help-article")
	out := GenerateDescription(tpl, domain.FieldValues{"requester": `<b>Abby</b> & "Co"`})
	assert.Contains(t, out, "Requestor: &lt;b&gt;Abby&lt;/b&gt; &amp; &#34;Co&#34;<br>")
}

func TestGenerateDescriptionSanitizesRichText(t *testing.T) {
	tpl := loadTemplate(t, "help-article")
	out := GenerateDescription(tpl, domain.FieldValues{
		"summaryContent": `<p style="color: red">ok</p><script>alert(1)</script><img src="x" onerror="alert(2)">`,
	})
	assert.Contains(t, out, "ok</p>")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "onerror")
}

func TestGenerateDescriptionProgram(t *testing.T) {
	tpl := loadTemplate(t, "feature-request")
	out := GenerateDescription(tpl, domain.FieldValues{
		"application":   "Advance -c2022",
		"version":       "Other",
		"customVersion": "3.1",
		"versionState":  "Texas",
	})
	assert.Contains(t, out, "<div><strong>Program Name:</strong></div><div>Advance -c2022 • 3.1 Texas</div>")
}

// filled returns a value for every declared field.
func filled(tpl *domain.Template) domain.FieldValues {
	values := domain.FieldValues{}
	for _, f := range tpl.Fields() {
		switch f.Type {
		case domain.FieldDate:
			values[f.ID] = "2025-01-02"
		case domain.FieldCheckbox:
			values[f.ID] = "true"
		case domain.FieldRichText:
			values[f.ID] = "<p>rich " + f.ID + "</p>"
		case domain.FieldSelect, domain.FieldCheckboxes:
			values[f.ID] = "value-" + f.ID
			for _, o := range f.Options {
				if o.ID != "" {
					values[f.ID] = o.ID
					break
				}
			}
		default:
			values[f.ID] = "value-" + f.ID
		}
	}
	return values
}

func TestGenerateDescriptionTotalAndDeterministic(t *testing.T) {
	reg, err := templates.Load()
	require.NoError(t, err)

	for _, tpl := range reg.List() {
		t.Run(tpl.Key, func(t *testing.T) {
			for name, values := range map[string]domain.FieldValues{
				"nil":    nil,
				"empty":  {},
				"filled": filled(tpl),
			} {
				first := GenerateDescription(tpl, values)
				assert.Equal(t, first, GenerateDescription(tpl, values), name)
				assert.NotContains(t, first, "undefined", name)
				assert.NotContains(t, first, "<nil>", name)
			}

			full := GenerateDescription(tpl, filled(tpl))
			assert.Contains(t, full, headingSpan)
			assert.NotEmpty(t, SubjectFor(tpl, filled(tpl), nil))
		})
	}
}

func TestGenerateDescriptionEditorSentinelIsAbsent(t *testing.T) {
	reg, err := templates.Load()
	require.NoError(t, err)

	for _, tpl := range reg.List() {
		base := GenerateDescription(tpl, domain.FieldValues{})
		for _, f := range tpl.Fields() {
			if f.Type != domain.FieldRichText {
				continue
			}
			for _, blank := range []string{domain.EmptyEditorHTML, "   ", ""} {
				got := GenerateDescription(tpl, domain.FieldValues{f.ID: blank})
				assert.Equal(t, base, got, "%s/%s with %q", tpl.Key, f.ID, blank)
			}
		}
	}
}

func TestGenerateDescriptionRendersReferencedRichText(t *testing.T) {
	reg, err := templates.Load()
	require.NoError(t, err)

	for _, tpl := range reg.List() {
		referenced := map[string]bool{}
		tpl.Body.Walk(func(b domain.Block) {
			if b.Kind == domain.BlockDiv {
				referenced[b.Field] = true
			}
		})
		for _, f := range tpl.Fields() {
			if f.Type != domain.FieldRichText || !referenced[f.ID] {
				continue
			}
			got := GenerateDescription(tpl, domain.FieldValues{f.ID: "<p>marker</p>"})
			assert.True(t, strings.Contains(got, "<p>marker</p>"), "%s/%s not rendered", tpl.Key, f.ID)
		}
	}
}

func TestSpacer(t *testing.T) {
	assert.Equal(t, `<div style="margin-bottom: 20px;"></div>`, Spacer(0, false))
	assert.Equal(t, `<div style="margin-top: 10px;"></div>`, Spacer(10, true))
}
