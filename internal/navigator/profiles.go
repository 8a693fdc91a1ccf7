package navigator

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Names of the built-in explorers.
const (
	ProfileOrganization = "organization"
	ProfileEmployee     = "employee"
	ProfileEmbedded     = "embedded"
)

//go:embed profiles.yaml
var builtinProfiles []byte

type levelSpec struct {
	Type  SegmentType `yaml:"type"`
	Group string      `yaml:"group"`
	Next  SegmentType `yaml:"next"`
}

type profileSpec struct {
	RootName    string      `yaml:"root_name"`
	Priority    []string    `yaml:"priority"`
	Hidden      []string    `yaml:"hidden"`
	DefaultType string      `yaml:"default_type"`
	NewestFirst bool        `yaml:"newest_first"`
	SmartJump   bool        `yaml:"smart_jump"`
	SmartBack   bool        `yaml:"smart_back"`
	Reconcile   bool        `yaml:"reconcile"`
	Levels      []levelSpec `yaml:"levels"`
}

// Profiles maps explorer names to grammars.
type Profiles map[string]*Grammar

// Get returns the named grammar.
func (p Profiles) Get(name string) (*Grammar, error) {
	g, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("unknown explorer %q", name)
	}
	return g, nil
}

// Names returns the profile names, sorted.
func (p Profiles) Names() []string {
	out := make([]string, 0, len(p))
	for n := range p {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// DefaultProfiles returns the built-in explorers.
func DefaultProfiles() Profiles {
	p, err := ParseProfiles(builtinProfiles)
	if err != nil {
		panic("navigator: built-in profiles: " + err.Error())
	}
	return p
}

// LoadProfiles reads the built-in explorers, then overlays profiles from
// the YAML file at path if path is not empty.
func LoadProfiles(path string) (Profiles, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	extra, err := ParseProfiles(data)
	if err != nil {
		return nil, err
	}
	for name, g := range extra {
		profiles[name] = g
	}
	return profiles, nil
}

// ParseProfiles decodes a YAML profile document.
func ParseProfiles(data []byte) (Profiles, error) {
	var specs map[string]profileSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	out := make(Profiles, len(specs))
	for name, spec := range specs {
		g, err := spec.grammar(name)
		if err != nil {
			return nil, err
		}
		out[name] = g
	}
	return out, nil
}

func (s profileSpec) grammar(name string) (*Grammar, error) {
	g := &Grammar{
		Name:        name,
		RootName:    s.RootName,
		Priority:    s.Priority,
		Hidden:      s.Hidden,
		DefaultType: s.DefaultType,
		NewestFirst: s.NewestFirst,
		SmartJump:   s.SmartJump,
		SmartBack:   s.SmartBack,
		Reconcile:   s.Reconcile,
	}
	for _, l := range s.Levels {
		fn, ok := Groups[l.Group]
		if !ok {
			return nil, fmt.Errorf("profile %q: level %q: unknown group %q", name, l.Type, l.Group)
		}
		g.Levels = append(g.Levels, Level{Type: l.Type, Group: fn, Next: l.Next})
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
