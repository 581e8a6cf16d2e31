package domain

import (
	"sort"
	"strings"
)

// EmptyEditorHTML is what the rich-text editor holds before anyone types in it.
const EmptyEditorHTML = "<p><br></p>"

// FieldValues maps field ids to their current string value. Checkbox groups
// hold the checked option ids joined by commas; single checkboxes hold "true".
type FieldValues map[string]string

// Get returns the raw value, or "" when absent.
func (v FieldValues) Get(id string) string {
	if v == nil {
		return ""
	}
	return v[id]
}

// Trimmed returns the value with surrounding whitespace removed.
func (v FieldValues) Trimmed(id string) string {
	return strings.TrimSpace(v.Get(id))
}

// Has reports whether id holds a meaningful value. The untouched editor
// sentinel counts as absent.
func (v FieldValues) Has(id string) bool {
	return IsPresent(v.Get(id))
}

// First returns the first present value among ids.
func (v FieldValues) First(ids ...string) string {
	for _, id := range ids {
		if v.Has(id) {
			return v.Get(id)
		}
	}
	return ""
}

// Checked reports whether a single checkbox is ticked.
func (v FieldValues) Checked(id string) bool {
	switch strings.ToLower(v.Trimmed(id)) {
	case "true", "on", "yes", "1", "checked":
		return true
	}
	return false
}

// List splits a checkbox-group value into its option ids.
func (v FieldValues) List(id string) []string {
	raw := v.Trimmed(id)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns an independent copy.
func (v FieldValues) Clone() FieldValues {
	out := make(FieldValues, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Keys returns the field ids in sorted order.
func (v FieldValues) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsPresent applies the emptiness rule used everywhere: blank strings and the
// editor sentinel are absent.
func IsPresent(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed != "" && trimmed != EmptyEditorHTML
}
