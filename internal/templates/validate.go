package templates

import (
	"fmt"
	"strings"

	"github.com/spec-kit/tracker-central/internal/domain"
)

var subjectFormats = map[domain.SubjectFormat]bool{
	domain.SubjectSIM:               true,
	domain.SubjectSIMDashboard:      true,
	domain.SubjectFeatureRequest:    true,
	domain.SubjectSEDCUST:           true,
	domain.SubjectAssembly:          true,
	domain.SubjectAssemblyRollover:  true,
	domain.SubjectDPT:               true,
	domain.SubjectTimeoutExtension:  true,
	domain.SubjectHelpArticle:       true,
	domain.SubjectAchievementLevels: true,
	domain.SubjectDefault:           true,
}

var syncKinds = map[domain.SyncKind]bool{
	domain.SyncCopy:         true,
	domain.SyncProgram:      true,
	domain.SyncResourcePath: true,
	domain.SyncXcodeInfo:    true,
	domain.SyncReportName:   true,
}

var populators = map[domain.Populator]bool{
	domain.PopulateApplication:   true,
	domain.PopulateDistrictName:  true,
	domain.PopulateDistrictState: true,
	domain.PopulateVIP:           true,
}

var blockKinds = map[domain.BlockKind]bool{
	domain.BlockHeading: true,
	domain.BlockSpacer:  true,
	domain.BlockDiv:     true,
	domain.BlockLine:    true,
	domain.BlockText:    true,
	domain.BlockHAR:     true,
	domain.BlockGroup:   true,
}

// Validate checks the structural rules every template must satisfy and
// reports all violations together.
func Validate(tpl *domain.Template) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if tpl.Key == "" {
		add("missing key")
	}
	if tpl.Title == "" {
		add("missing title")
	}
	if len(tpl.Sections) == 0 {
		add("no sections")
	}

	types := map[string]domain.FieldType{}
	for _, s := range tpl.Sections {
		inSection := map[string]bool{}
		for _, f := range s.Fields {
			if f.ID == "" {
				add("section %s: field without id", s.ID)
				continue
			}
			if !f.Type.Valid() {
				add("field %s: unknown type %q", f.ID, f.Type)
			}
			if inSection[f.ID] {
				add("section %s: duplicate field %s", s.ID, f.ID)
			}
			inSection[f.ID] = true
			if prev, seen := types[f.ID]; seen && prev != f.Type {
				add("field %s: redeclared as %s, was %s", f.ID, f.Type, prev)
			}
			if f.Condition != nil {
				// The controlling field has to be declared before this one.
				if _, ok := types[f.Condition.Field]; !ok {
					add("field %s: condition references %s before it is declared", f.ID, f.Condition.Field)
				}
			}
			if f.OptionsFrom != "" && f.OptionsFrom != ResourceOptionsSource {
				add("field %s: unknown optionsFrom %q", f.ID, f.OptionsFrom)
			}
			if f.Type == domain.FieldCheckboxes && len(f.Options) == 0 {
				add("field %s: checkbox group without options", f.ID)
			}
			types[f.ID] = f.Type
		}
	}
	declared := func(id string) bool {
		_, ok := types[id]
		return ok
	}

	if !subjectFormats[tpl.Subject.Format] {
		add("unknown subject format %q", tpl.Subject.Format)
	}
	if !declared(tpl.SubjectTarget()) {
		add("subject target %s is not declared", tpl.SubjectTarget())
	}

	for _, rule := range tpl.Sync {
		if !syncKinds[rule.Kind] {
			add("sync: unknown kind %q", rule.Kind)
		}
		if !declared(rule.Target) {
			add("sync %s: target %s is not declared", rule.Kind, rule.Target)
		}
		if rule.Source != "" && !declared(rule.Source) {
			add("sync %s: source %s is not declared", rule.Kind, rule.Source)
		}
	}
	for _, p := range tpl.Populate {
		if !populators[p] {
			add("unknown populator %q", p)
		}
	}
	if xu := tpl.XcodeUnknown; xu != nil {
		if types[xu.Checkbox] != domain.FieldCheckbox {
			add("xcodeUnknown: %s is not a checkbox", xu.Checkbox)
		}
		if !declared(xu.Field) {
			add("xcodeUnknown: field %s is not declared", xu.Field)
		}
	}
	for _, cr := range tpl.ConditionalRequired {
		if !declared(cr.Field) || !declared(cr.UnlessField) {
			add("conditionalRequired %s/%s references an undeclared field", cr.Field, cr.UnlessField)
		}
	}
	if tpl.OriginTag != nil && tpl.OriginTag.Tag == "" {
		add("originTag without tag")
	}

	if len(tpl.Body.Blocks) == 0 {
		add("empty description body")
	}
	tpl.Body.Walk(func(b domain.Block) {
		if !blockKinds[b.Kind] {
			add("body: unknown block kind %q", b.Kind)
			return
		}
		refs := append([]string{}, b.Fallback...)
		refs = append(refs, b.AnyOf...)
		if b.Field != "" {
			refs = append(refs, b.Field)
		}
		if b.Reason != "" {
			refs = append(refs, b.Reason)
		}
		for _, id := range refs {
			if !declared(id) {
				add("body %s: field %s is not declared", b.Kind, id)
			}
		}
		switch b.Kind {
		case domain.BlockHeading:
			if b.Text == "" {
				add("body: heading without text")
			}
		case domain.BlockDiv, domain.BlockLine, domain.BlockHAR:
			if b.Field == "" {
				add("body %s: missing field", b.Kind)
			}
		case domain.BlockGroup:
			if len(b.AnyOf) == 0 {
				add("body: group without anyOf")
			}
		}
	})

	if len(problems) > 0 {
		return fmt.Errorf("template %s: %s", tpl.Key, strings.Join(problems, "; "))
	}
	return nil
}
