package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/tracker-central/internal/domain"
)

//go:embed defs/*.yaml
var embedded embed.FS

// ResourceOptionsSource is the optionsFrom value filled from configuration.
const ResourceOptionsSource = "resources"

// ErrTemplateNotFound is returned for an unknown template key.
var ErrTemplateNotFound = errors.New("template not found")

// Registry holds every tracker template keyed by its key. It is read-only
// after construction.
type Registry struct {
	templates map[string]*domain.Template
	keys      []string
	resources []domain.Option
}

// Option customizes a Registry.
type Option func(*Registry)

// WithResourceOptions sets the choices of selects declared with optionsFrom: resources.
func WithResourceOptions(values []string) Option {
	return func(r *Registry) {
		r.resources = make([]domain.Option, 0, len(values)+1)
		r.resources = append(r.resources, domain.Option{})
		for _, v := range values {
			r.resources = append(r.resources, domain.Option{ID: v, Label: v})
		}
	}
}

// Load reads the built-in template definitions.
func Load(opts ...Option) (*Registry, error) {
	return LoadFS(embedded, "defs", opts...)
}

// LoadFS reads every *.yaml file of dir in fsys and validates it.
func LoadFS(fsys fs.FS, dir string, opts ...Option) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read template dir: %w", err)
	}

	r := &Registry{templates: make(map[string]*domain.Template)}
	for _, opt := range opts {
		opt(r)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}
		tpl, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode template %s: %w", entry.Name(), err)
		}
		if want := strings.TrimSuffix(entry.Name(), ".yaml"); tpl.Key != want {
			return nil, fmt.Errorf("template %s: key %q does not match file name", entry.Name(), tpl.Key)
		}
		if _, dup := r.templates[tpl.Key]; dup {
			return nil, fmt.Errorf("template %s: duplicate key", tpl.Key)
		}
		if err := Validate(tpl); err != nil {
			return nil, err
		}
		r.templates[tpl.Key] = tpl
		r.keys = append(r.keys, tpl.Key)
	}
	if len(r.keys) == 0 {
		return nil, fmt.Errorf("no templates found in %s", dir)
	}
	sort.Strings(r.keys)
	return r, nil
}

func decode(raw []byte) (*domain.Template, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var tpl domain.Template
	if err := dec.Decode(&tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Keys returns the template keys in sorted order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}

// List returns every template in key order.
func (r *Registry) List() []*domain.Template {
	out := make([]*domain.Template, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.templates[k])
	}
	return out
}

// Get returns the template for key. The result must not be modified.
func (r *Registry) Get(key string) (*domain.Template, error) {
	tpl, ok := r.templates[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, key)
	}
	return tpl, nil
}

// Resolved returns a copy of the template whose optionsFrom selects carry
// their configured choices.
func (r *Registry) Resolved(key string) (*domain.Template, error) {
	tpl, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	cp := *tpl
	cp.Sections = make([]domain.Section, len(tpl.Sections))
	for i, s := range tpl.Sections {
		cp.Sections[i] = s
		cp.Sections[i].Fields = make([]domain.FieldDescriptor, len(s.Fields))
		for j, f := range s.Fields {
			if f.OptionsFrom == ResourceOptionsSource {
				f.Options = append([]domain.Option(nil), r.resources...)
			}
			cp.Sections[i].Fields[j] = f
		}
	}
	return &cp, nil
}
