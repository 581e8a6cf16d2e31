package render

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/spec-kit/tracker-central/internal/domain"
)

const (
	partSeparator = " | "
	dot           = " • "

	// XcodeUnknownText replaces the xcode when the agent marks it unknown.
	XcodeUnknownText = "Xcode Unknown"

	allUsersID    = "allUsers"
	allUsersLabel = "All Users"
)

// SubjectOptions carries what the formatter needs beyond field values.
type SubjectOptions struct {
	// Roles are the role checkbox options in declaration order.
	Roles []domain.Option
	// RoleField holds the checked role ids.
	RoleField string
	// XcodeUnknown is the checkbox that overrides the xcode.
	XcodeUnknown string
	// TicketVIP is the VIP flag of the originating ticket, for formats
	// without a VIP field.
	TicketVIP bool
}

// SubjectFor formats the subject of tpl from values.
func SubjectFor(tpl *domain.Template, values domain.FieldValues, tc *domain.TicketContext) string {
	return FormatSubject(tpl.Subject.Format, values, SubjectOptionsFor(tpl, tc))
}

// SubjectOptionsFor derives formatter options from a template definition.
func SubjectOptionsFor(tpl *domain.Template, tc *domain.TicketContext) SubjectOptions {
	opts := SubjectOptions{RoleField: "userRole"}
	if f, ok := tpl.Field("userRole"); ok && f.Type == domain.FieldCheckboxes {
		opts.Roles = f.Options
	}
	if tpl.XcodeUnknown != nil {
		opts.XcodeUnknown = tpl.XcodeUnknown.Checkbox
	}
	if tc != nil {
		opts.TicketVIP = tc.IsVIP
	}
	return opts
}

// FormatSubject renders a subject line. It never fails: missing components
// shorten the result without leaving separators behind.
func FormatSubject(format domain.SubjectFormat, values domain.FieldValues, opts SubjectOptions) string {
	v := subjectValues{values: values}
	switch format {
	case domain.SubjectSIM, domain.SubjectSIMDashboard:
		return joinParts(partSeparator,
			v.district("VIP * "),
			v.application(),
			v.resourceIssue(format, "resource", "specificIssue", opts),
		)
	case domain.SubjectFeatureRequest:
		return joinParts(partSeparator,
			v.district("VIP * "),
			v.application(),
			v.resourceIssue(format, "resourceName", "shortDescription", opts),
		)
	case domain.SubjectSEDCUST:
		return joinParts(partSeparator,
			v.xcode(opts),
			lo.Ternary(v.vip(), "VIP", ""),
			v.application(),
			pathResource(v.get("resource"), v.get("path"), v.get("specificIssue")),
		)
	case domain.SubjectAssembly:
		xcode := v.xcode(opts)
		if xcode != "" && v.get("hasMultipleXcodes") == "Yes" {
			xcode += " (Multiple Xcodes)"
		}
		issue := v.get("specificIssue")
		if issue != "" && v.get("gradesImpacted") != "" {
			issue += ": " + v.get("gradesImpacted")
		}
		return joinParts(partSeparator, xcode, lo.Ternary(v.vip(), "VIP", ""), v.application(), issue)
	case domain.SubjectAssemblyRollover:
		return joinParts(partSeparator, v.district("VIP "), "Assembly Rollover")
	case domain.SubjectDPT:
		const suffix = "DPT • Customized eAssessments - District Admin"
		name := v.get("districtName")
		if name == "" {
			return suffix
		}
		return joinParts(partSeparator, v.namedDistrict(lo.Ternary(v.vip(), "VIP * ", "")), suffix)
	case domain.SubjectTimeoutExtension:
		issue := lo.CoalesceOrEmpty(v.get("issue"), "Timeout Extension")
		if v.get("districtName") == "" {
			return issue
		}
		return joinParts(partSeparator, v.namedDistrict(lo.Ternary(v.vip(), "VIP * ", "Standard ")), issue)
	case domain.SubjectHelpArticle:
		return joinParts(partSeparator, "BU Help Article Update", v.get("helpArticleName"))
	case domain.SubjectAchievementLevels:
		const suffix = "Custom Achievement Levels"
		if v.get("districtName") == "" {
			return suffix
		}
		return joinParts(partSeparator, v.namedDistrict(lo.Ternary(opts.TicketVIP, "VIP* ", "")), suffix)
	default:
		district := joinParts(dot, v.get("districtName"), v.get("districtState"))
		return joinParts(partSeparator, district, v.get("issue"))
	}
}

// RoleText aggregates checked role labels in declaration order. "All Users"
// wins over every other choice.
func RoleText(values domain.FieldValues, field string, roles []domain.Option) string {
	checked := values.List(field)
	if len(checked) == 0 {
		return ""
	}
	if lo.Contains(checked, allUsersID) || lo.Contains(checked, allUsersLabel) {
		return allUsersLabel
	}
	if len(roles) == 0 {
		return strings.Join(checked, ", ")
	}
	selected := lo.Filter(roles, func(o domain.Option, _ int) bool {
		return lo.Contains(checked, o.ID) || lo.Contains(checked, o.Label)
	})
	return strings.Join(lo.Map(selected, func(o domain.Option, _ int) string { return o.Label }), ", ")
}

// ValidateSubject applies soft subject rules and returns one message per broken rule.
func ValidateSubject(subject string, rules domain.SubjectRules) []string {
	var errs []string
	length := len([]rune(subject))
	if rules.MinLength > 0 && length < rules.MinLength {
		errs = append(errs, fmt.Sprintf("Subject line must be at least %d characters", rules.MinLength))
	}
	if rules.MaxLength > 0 && length > rules.MaxLength {
		errs = append(errs, fmt.Sprintf("Subject line must not exceed %d characters", rules.MaxLength))
	}
	for _, part := range rules.RequiredParts {
		if !strings.Contains(strings.ToLower(subject), strings.ToLower(part)) {
			errs = append(errs, fmt.Sprintf("Subject line must contain %q", part))
		}
	}
	if rules.Separator != "" && !strings.Contains(subject, rules.Separator) {
		errs = append(errs, fmt.Sprintf("Subject line must use %q as separator", rules.Separator))
	}
	return errs
}

type subjectValues struct {
	values domain.FieldValues
}

func (v subjectValues) get(id string) string {
	return v.values.Trimmed(id)
}

func (v subjectValues) vip() bool {
	return v.get("isVIP") == "Yes"
}

// district renders "name • state", either alone, with prefix when VIP.
func (v subjectValues) district(vipPrefix string) string {
	part := joinParts(dot, v.get("districtName"), v.get("districtState"))
	if part == "" || !v.vip() {
		return part
	}
	return vipPrefix + part
}

// namedDistrict assumes a district name is present and always applies prefix.
func (v subjectValues) namedDistrict(prefix string) string {
	return prefix + joinParts(dot, v.get("districtName"), v.get("districtState"))
}

func (v subjectValues) application() string {
	app := v.get("application")
	if app == "" {
		return ""
	}
	version, state := ResolveVersion(v.values)
	if detail := joinParts(" ", version, state); detail != "" {
		return app + dot + detail
	}
	return app
}

func (v subjectValues) resourceIssue(format domain.SubjectFormat, resourceField, issueField string, opts SubjectOptions) string {
	resource := v.get(resourceField)
	if format == domain.SubjectSIMDashboard && resource == "Placeholder" {
		resource = ""
	}
	part := joinParts(dot, resource, v.get(issueField))
	if part == "" {
		return ""
	}
	if roles := RoleText(v.values, opts.RoleField, opts.Roles); roles != "" {
		part += " for " + roles
	}
	return part
}

func (v subjectValues) xcode(opts SubjectOptions) string {
	if opts.XcodeUnknown != "" && v.values.Checked(opts.XcodeUnknown) {
		return XcodeUnknownText
	}
	return v.get("xcode")
}

// pathResource renders "resource: path - issue" and its partial forms.
func pathResource(resource, path, issue string) string {
	head := joinParts(": ", resource, path)
	return joinParts(" - ", head, issue)
}

func joinParts(sep string, parts ...string) string {
	kept := lo.Filter(parts, func(p string, _ int) bool { return strings.TrimSpace(p) != "" })
	return strings.Join(kept, sep)
}
