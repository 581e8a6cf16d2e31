package domain

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FieldType enumerates the input kinds a tracker form can declare.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldTextarea    FieldType = "textarea"
	FieldSelect      FieldType = "select"
	FieldMultiselect FieldType = "multiselect"
	FieldCheckbox    FieldType = "checkbox"
	FieldCheckboxes  FieldType = "checkboxes"
	FieldDate        FieldType = "date"
	FieldEmail       FieldType = "email"
	FieldRichText    FieldType = "richtext"
	FieldFile        FieldType = "file"
	FieldInfo        FieldType = "info"
	FieldHidden      FieldType = "hidden"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldTextarea, FieldSelect, FieldMultiselect, FieldCheckbox, FieldCheckboxes,
		FieldDate, FieldEmail, FieldRichText, FieldFile, FieldInfo, FieldHidden:
		return true
	}
	return false
}

// Option is a select or checkbox choice. In YAML it is either a bare string,
// in which case id and label are the same, or an {id, label} mapping.
type Option struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		o.ID = node.Value
		o.Label = node.Value
		return nil
	case yaml.MappingNode:
		type plain Option
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		if p.Label == "" {
			p.Label = p.ID
		}
		*o = Option(p)
		return nil
	}
	return fmt.Errorf("line %d: option must be a string or {id, label}", node.Line)
}

// Condition shows a field only while another field holds Value.
type Condition struct {
	Field string `yaml:"field" json:"field"`
	Value string `yaml:"value" json:"value"`
}

// FieldDescriptor declares one form input.
type FieldDescriptor struct {
	ID                  string     `yaml:"id" json:"id"`
	Type                FieldType  `yaml:"type" json:"type"`
	Label               string     `yaml:"label" json:"label"`
	Required            bool       `yaml:"required" json:"required"`
	Options             []Option   `yaml:"options,omitempty" json:"options,omitempty"`
	OptionsFrom         string     `yaml:"optionsFrom,omitempty" json:"optionsFrom,omitempty"`
	Placeholder         string     `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Hint                string     `yaml:"hint,omitempty" json:"hint,omitempty"`
	ReadOnly            bool       `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	Default             string     `yaml:"default,omitempty" json:"default,omitempty"`
	DefaultToday        bool       `yaml:"defaultToday,omitempty" json:"defaultToday,omitempty"`
	Condition           *Condition `yaml:"condition,omitempty" json:"condition,omitempty"`
	RequiredWhenVisible bool       `yaml:"requiredWhenVisible,omitempty" json:"requiredWhenVisible,omitempty"`
	ClearWhenHidden     bool       `yaml:"clearWhenHidden,omitempty" json:"clearWhenHidden,omitempty"`
}

// OptionLabel returns the label for an option id, or the id itself.
func (f FieldDescriptor) OptionLabel(id string) string {
	for _, o := range f.Options {
		if o.ID == id {
			return o.Label
		}
	}
	return id
}

// Section groups fields under one heading. Order is significant.
type Section struct {
	ID     string            `yaml:"id" json:"id"`
	Title  string            `yaml:"title" json:"title"`
	Icon   string            `yaml:"icon" json:"icon"`
	Fields []FieldDescriptor `yaml:"fields" json:"fields"`
}

// SubjectFormat selects one of the subject-line naming conventions.
type SubjectFormat string

const (
	SubjectSIM               SubjectFormat = "sim"
	SubjectSIMDashboard      SubjectFormat = "sim-dashboard"
	SubjectFeatureRequest    SubjectFormat = "feature-request"
	SubjectSEDCUST           SubjectFormat = "sedcust"
	SubjectAssembly          SubjectFormat = "assembly"
	SubjectAssemblyRollover  SubjectFormat = "assembly-rollover"
	SubjectDPT               SubjectFormat = "dpt"
	SubjectTimeoutExtension  SubjectFormat = "timeout-extension"
	SubjectHelpArticle       SubjectFormat = "help-article"
	SubjectAchievementLevels SubjectFormat = "sim-achievement-levels"
	SubjectDefault           SubjectFormat = "default"
)

// SubjectRules are soft checks applied to a formatted subject before submit.
type SubjectRules struct {
	MinLength     int      `yaml:"minLength,omitempty" json:"minLength,omitempty"`
	MaxLength     int      `yaml:"maxLength,omitempty" json:"maxLength,omitempty"`
	Separator     string   `yaml:"separator,omitempty" json:"separator,omitempty"`
	RequiredParts []string `yaml:"requiredParts,omitempty" json:"requiredParts,omitempty"`
}

// SubjectSpec binds a template to its subject format and the field that shows it.
type SubjectSpec struct {
	Format SubjectFormat `yaml:"format" json:"format"`
	Target string        `yaml:"target" json:"target"`
	Rules  SubjectRules  `yaml:"rules" json:"rules"`
}

// SyncKind names a derived-field rule.
type SyncKind string

const (
	SyncCopy         SyncKind = "copy"
	SyncProgram      SyncKind = "program"
	SyncResourcePath SyncKind = "resourcePath"
	SyncXcodeInfo    SyncKind = "xcodeInfo"
	SyncReportName   SyncKind = "reportName"
)

// SyncRule keeps Target derived from other fields.
type SyncRule struct {
	Kind   SyncKind `yaml:"kind" json:"kind"`
	Target string   `yaml:"target" json:"target"`
	Source string   `yaml:"source,omitempty" json:"source,omitempty"`
}

// Populator names a ticket-context prefill.
type Populator string

const (
	PopulateApplication   Populator = "application"
	PopulateDistrictName  Populator = "districtName"
	PopulateDistrictState Populator = "districtState"
	PopulateVIP           Populator = "vip"
)

// XcodeUnknown wires the checkbox that replaces the xcode with a literal.
type XcodeUnknown struct {
	Checkbox string `yaml:"checkbox" json:"checkbox"`
	Field    string `yaml:"field" json:"field"`
	Confirm  string `yaml:"confirm" json:"confirm"`
}

// ConditionalRequirement drops Field's requirement while UnlessField equals Equals.
type ConditionalRequirement struct {
	Field       string `yaml:"field" json:"field"`
	UnlessField string `yaml:"unlessField" json:"unlessField"`
	Equals      string `yaml:"equals" json:"equals"`
}

// OriginTag describes what happens to the originating ticket after creation.
type OriginTag struct {
	Tag          string `yaml:"tag" json:"tag"`
	Note         string `yaml:"note" json:"note"`
	FallbackNote string `yaml:"fallbackNote" json:"fallbackNote"`
}

// Template is one tracker type. Loaded once and never mutated.
type Template struct {
	Key                 string                   `yaml:"key" json:"key"`
	Title               string                   `yaml:"title" json:"title"`
	Icon                string                   `yaml:"icon" json:"icon"`
	Description         string                   `yaml:"description" json:"description"`
	Type                string                   `yaml:"type" json:"type"`
	Sections            []Section                `yaml:"sections" json:"sections"`
	Subject             SubjectSpec              `yaml:"subject" json:"subject"`
	Sync                []SyncRule               `yaml:"sync,omitempty" json:"sync,omitempty"`
	Populate            []Populator              `yaml:"populate,omitempty" json:"populate,omitempty"`
	XcodeUnknown        *XcodeUnknown            `yaml:"xcodeUnknown,omitempty" json:"xcodeUnknown,omitempty"`
	ConditionalRequired []ConditionalRequirement `yaml:"conditionalRequired,omitempty" json:"conditionalRequired,omitempty"`
	OriginTag           *OriginTag               `yaml:"originTag,omitempty" json:"originTag,omitempty"`
	PriorityWhenVIP     int                      `yaml:"priorityWhenVIP,omitempty" json:"priorityWhenVIP,omitempty"`
	Body                DescriptionSpec          `yaml:"body" json:"-"`
}

// Fields returns every field in declaration order. A field id repeated in a
// later section appears once per section.
func (t *Template) Fields() []FieldDescriptor {
	var out []FieldDescriptor
	for _, s := range t.Sections {
		out = append(out, s.Fields...)
	}
	return out
}

// Field returns the first declaration of id.
func (t *Template) Field(id string) (FieldDescriptor, bool) {
	for _, s := range t.Sections {
		for _, f := range s.Fields {
			if f.ID == id {
				return f, true
			}
		}
	}
	return FieldDescriptor{}, false
}

// HasField reports whether id is declared anywhere in the template.
func (t *Template) HasField(id string) bool {
	_, ok := t.Field(id)
	return ok
}

// SubjectTarget returns the field that displays the formatted subject.
func (t *Template) SubjectTarget() string {
	if t.Subject.Target != "" {
		return t.Subject.Target
	}
	return "formattedSubject"
}
