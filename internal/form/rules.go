package form

import (
	"fmt"

	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/render"
)

// IsVisible reports whether a conditional field is shown for values.
func IsVisible(f domain.FieldDescriptor, values domain.FieldValues) bool {
	if f.Condition == nil {
		return true
	}
	return values.Trimmed(f.Condition.Field) == f.Condition.Value
}

// IsRequired reports whether f must hold a value before submission. Hidden
// fields are never required.
func IsRequired(tpl *domain.Template, f domain.FieldDescriptor, values domain.FieldValues) bool {
	if !IsVisible(f, values) {
		return false
	}
	required := f.Required || (f.Condition != nil && f.RequiredWhenVisible)
	if !required {
		return false
	}
	if xu := tpl.XcodeUnknown; xu != nil && xu.Field == f.ID && values.Checked(xu.Checkbox) {
		return false
	}
	for _, cr := range tpl.ConditionalRequired {
		if cr.Field == f.ID && values.Trimmed(cr.UnlessField) == cr.Equals {
			return false
		}
	}
	return true
}

// Validate returns every submission problem in field order, followed by the
// subject rule violations. An empty result means the values can be submitted.
func Validate(tpl *domain.Template, values domain.FieldValues) []string {
	var errs []string
	seen := map[string]bool{}
	for _, s := range tpl.Sections {
		for _, f := range s.Fields {
			if seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			if !IsRequired(tpl, f, values) || filled(f, values) {
				continue
			}
			errs = append(errs, fmt.Sprintf("%s is required", label(f, s)))
		}
	}
	if subject := values.Trimmed(tpl.SubjectTarget()); subject != "" {
		errs = append(errs, render.ValidateSubject(subject, tpl.Subject.Rules)...)
	}
	return errs
}

func filled(f domain.FieldDescriptor, values domain.FieldValues) bool {
	switch f.Type {
	case domain.FieldCheckbox:
		return values.Checked(f.ID)
	case domain.FieldCheckboxes, domain.FieldMultiselect:
		return len(values.List(f.ID)) > 0
	case domain.FieldInfo, domain.FieldFile:
		return true
	}
	return values.Has(f.ID)
}

func label(f domain.FieldDescriptor, s domain.Section) string {
	switch {
	case f.Label != "":
		return f.Label
	case s.Title != "":
		return s.Title
	}
	return f.ID
}
