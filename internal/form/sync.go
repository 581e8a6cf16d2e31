package form

import (
	"strings"

	"github.com/samber/lo"

	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/render"
)

var versionInputs = []string{"version", "versionState", "customVersion", "customVersionState"}

// inputs lists the fields whose change re-runs rule. A rule never fires on
// unrelated edits so a manually adjusted target survives.
func inputs(tpl *domain.Template, rule domain.SyncRule) []string {
	switch rule.Kind {
	case domain.SyncProgram:
		return append([]string{rule.Source}, versionInputs...)
	case domain.SyncResourcePath:
		return []string{"application", "resource", "path"}
	case domain.SyncXcodeInfo:
		ids := []string{lo.CoalesceOrEmpty(rule.Source, "xcode")}
		if tpl.XcodeUnknown != nil {
			ids = append(ids, tpl.XcodeUnknown.Checkbox)
		}
		return ids
	}
	return []string{rule.Source}
}

// derive computes a rule's target value. ok is false when the rule leaves
// the target alone.
func derive(tpl *domain.Template, rule domain.SyncRule, values domain.FieldValues) (string, bool) {
	switch rule.Kind {
	case domain.SyncCopy:
		return values.Get(rule.Source), true
	case domain.SyncProgram:
		return render.ProgramName(values.Get(rule.Source), values), true
	case domain.SyncResourcePath:
		return ResourcePath(values.Trimmed("application"), values.Trimmed("resource"), values.Trimmed("path")), true
	case domain.SyncXcodeInfo:
		if tpl.XcodeUnknown != nil && values.Checked(tpl.XcodeUnknown.Checkbox) {
			return render.XcodeUnknownText, true
		}
		return values.Get(lo.CoalesceOrEmpty(rule.Source, "xcode")), true
	case domain.SyncReportName:
		return ReportName(values.Get(rule.Source))
	}
	return "", false
}

// ResourcePath renders "app > resource: path" and its partial forms.
func ResourcePath(app, resource, path string) string {
	var tail string
	switch {
	case resource != "" && path != "":
		tail = resource + ": " + path
	case resource != "":
		tail = resource
	default:
		tail = path
	}
	if app == "" {
		return tail
	}
	if tail == "" {
		return app
	}
	return app + " > " + tail
}

// ReportName extracts the report from an "ORR: X" or "Reports: X" resource.
// Other resources leave the report name editable.
func ReportName(resource string) (string, bool) {
	if !strings.HasPrefix(resource, "ORR:") && !strings.HasPrefix(resource, "Reports:") {
		return "", false
	}
	i := strings.Index(resource, ": ")
	if i < 0 || i >= len(resource)-2 {
		return "", false
	}
	return resource[i+2:], true
}

// Sync runs the template's rules whose inputs intersect changed, in
// declaration order, and returns the targets it rewrote. A nil changed runs
// every rule. Running Sync twice yields the same values.
func Sync(tpl *domain.Template, values domain.FieldValues, changed []string) []string {
	dirty := lo.SliceToMap(changed, func(id string) (string, bool) { return id, true })
	var rewritten []string
	for _, rule := range tpl.Sync {
		if changed != nil && !lo.SomeBy(inputs(tpl, rule), func(id string) bool { return dirty[id] }) {
			continue
		}
		next, ok := derive(tpl, rule, values)
		if !ok || values.Get(rule.Target) == next {
			continue
		}
		values[rule.Target] = next
		dirty[rule.Target] = true
		rewritten = append(rewritten, rule.Target)
	}
	return rewritten
}

// ClearHidden empties clearWhenHidden fields whose condition no longer holds,
// cascading until stable, and returns the cleared ids.
func ClearHidden(tpl *domain.Template, values domain.FieldValues) []string {
	var cleared []string
	for {
		progress := false
		for _, f := range tpl.Fields() {
			if !f.ClearWhenHidden || IsVisible(f, values) || values.Get(f.ID) == "" {
				continue
			}
			values[f.ID] = ""
			cleared = append(cleared, f.ID)
			progress = true
		}
		if !progress {
			return cleared
		}
	}
}

// UpdateSubject recomputes the subject target and reports whether it changed.
func UpdateSubject(tpl *domain.Template, values domain.FieldValues, tc *domain.TicketContext) bool {
	target := tpl.SubjectTarget()
	next := render.SubjectFor(tpl, values, tc)
	if values.Get(target) == next {
		return false
	}
	values[target] = next
	return true
}

// Prepare brings raw values to the state a session would hold for them:
// hidden fields cleared, every sync rule run and the subject recomputed.
// values is modified in place.
func Prepare(tpl *domain.Template, values domain.FieldValues, tc *domain.TicketContext) {
	ClearHidden(tpl, values)
	Sync(tpl, values, nil)
	UpdateSubject(tpl, values, tc)
}
