package domain

// BlockKind selects how a description block renders.
type BlockKind string

const (
	BlockHeading BlockKind = "heading"
	BlockSpacer  BlockKind = "spacer"
	BlockDiv     BlockKind = "div"
	BlockLine    BlockKind = "line"
	BlockText    BlockKind = "text"
	BlockHAR     BlockKind = "har"
	BlockGroup   BlockKind = "group"
)

// EmptyPolicy decides what a div block emits when its value is absent.
type EmptyPolicy string

const (
	EmptyOmit        EmptyPolicy = "omit"
	EmptyPlaceholder EmptyPolicy = "placeholder"
	EmptyDefault     EmptyPolicy = "default"
	EmptyBlank       EmptyPolicy = "blank"
)

// ValueFormat transforms a value before it is written.
type ValueFormat string

const (
	FormatText    ValueFormat = "text"
	FormatDate    ValueFormat = "date"
	FormatLink    ValueFormat = "link"
	FormatProgram ValueFormat = "program"
)

// Block is one node of a description body. Which attributes apply depends on Kind.
type Block struct {
	Kind BlockKind `yaml:"kind"`

	// heading, text
	Text  string `yaml:"text,omitempty"`
	Style string `yaml:"style,omitempty"`

	// spacer
	Px  int  `yaml:"px,omitempty"`
	Top bool `yaml:"top,omitempty"`

	// div, line, har
	Field    string      `yaml:"field,omitempty"`
	Fallback []string    `yaml:"fallback,omitempty"`
	Format   ValueFormat `yaml:"format,omitempty"`
	Label    string      `yaml:"label,omitempty"`

	// div
	Empty  EmptyPolicy `yaml:"empty,omitempty"`
	Prefix string      `yaml:"prefix,omitempty"`

	// line
	Always  bool    `yaml:"always,omitempty"`
	Sep     *string `yaml:"sep,omitempty"`
	Suffix  *string `yaml:"suffix,omitempty"`
	Default string  `yaml:"default,omitempty"`

	// har
	Reason  string `yaml:"reason,omitempty"`
	Trigger string `yaml:"trigger,omitempty"`

	// group
	AnyOf  []string `yaml:"anyOf,omitempty"`
	Blocks []Block  `yaml:"blocks,omitempty"`
	Else   []Block  `yaml:"else,omitempty"`
}

// DescriptionSpec is the ordered body layout of a template's ticket description.
type DescriptionSpec struct {
	HeadingStyle string  `yaml:"headingStyle,omitempty"`
	Blocks       []Block `yaml:"blocks"`
}

// Walk visits every block depth first, including group children.
func (d DescriptionSpec) Walk(fn func(Block)) {
	walkBlocks(d.Blocks, fn)
}

func walkBlocks(blocks []Block, fn func(Block)) {
	for _, b := range blocks {
		fn(b)
		walkBlocks(b.Blocks, fn)
		walkBlocks(b.Else, fn)
	}
}
