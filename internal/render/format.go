package render

import (
	"html"
	"strconv"
	"strings"

	"github.com/spec-kit/tracker-central/internal/domain"
)

// FormatDate rewrites YYYY-MM-DD as MM/DD/YYYY. Anything else is returned as is.
func FormatDate(value string) string {
	if value == "" {
		return ""
	}
	parts := strings.Split(value, "-")
	if len(parts) != 3 {
		return value
	}
	year := parts[0]
	if len(year) != 4 {
		return value
	}
	if _, err := strconv.Atoi(year); err != nil {
		return value
	}
	return parts[1] + "/" + parts[2] + "/" + parts[0]
}

// NormalizeLink prepends https:// when the value carries no http(s) scheme.
func NormalizeLink(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	lower := strings.ToLower(v)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return v
	}
	return "https://" + v
}

// LinkHTML renders value as an anchor that opens in a new tab. The anchor text
// is the value as typed.
func LinkHTML(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	return `<a href="` + html.EscapeString(NormalizeLink(v)) + `" target="_blank">` + html.EscapeString(v) + `</a>`
}

// IsEmptyRichText reports whether an editor value is blank or the untouched
// editor sentinel.
func IsEmptyRichText(value string) bool {
	return !domain.IsPresent(value)
}

// ResolveVersion returns the version and version state, replacing "Other"
// with the matching custom entry.
func ResolveVersion(values domain.FieldValues) (version, state string) {
	version = resolveOther(values, "version", "customVersion")
	state = resolveOther(values, "versionState", "customVersionState")
	return version, state
}

// ProgramName renders "app[ • version][ versionState]". The state is only
// appended when a version is present.
func ProgramName(app string, values domain.FieldValues) string {
	app = strings.TrimSpace(app)
	if app == "" {
		return ""
	}
	version, state := ResolveVersion(values)
	if version == "" {
		return app
	}
	out := app + " • " + version
	if state != "" {
		out += " " + state
	}
	return out
}

func resolveOther(values domain.FieldValues, field, custom string) string {
	v := values.Trimmed(field)
	if v != "Other" {
		return v
	}
	if c := values.Trimmed(custom); c != "" {
		return c
	}
	return "Other"
}
