package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Vec2 is a YAML-friendly pair.
type Vec2 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// EntityTemplate describes the components of one kind of entity.
type EntityTemplate struct {
	Name      string        `yaml:"name"`
	Transform *Vec2         `yaml:"transform,omitempty"`
	Velocity  *Vec2         `yaml:"velocity,omitempty"`
	Lifetime  time.Duration `yaml:"lifetime,omitempty"` // 0 = immortal
	Script    string        `yaml:"script,omitempty"`   // Lua behaviour table
}

// Placement instantiates a template Count times when the scene loads.
type Placement struct {
	Template string `yaml:"template"`
	Count    int    `yaml:"count"`
}

// SpawnerEntry attaches a wave spawner producing Template entities.
type SpawnerEntry struct {
	Template string        `yaml:"template"`
	Interval time.Duration `yaml:"interval"`
	PerWave  int           `yaml:"per_wave"`
	Waves    int           `yaml:"waves"` // 0 = unlimited
}

type sceneFile struct {
	Templates []EntityTemplate `yaml:"templates"`
	Place     []Placement      `yaml:"place"`
	Spawners  []SpawnerEntry   `yaml:"spawners"`
}

// Scene holds templates indexed by name plus the initial placements.
type Scene struct {
	templates map[string]*EntityTemplate
	Place     []Placement
	Spawners  []SpawnerEntry
}

// LoadScene loads a scene from a YAML file.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return ParseScene(raw)
}

// ParseScene decodes and validates scene YAML.
func ParseScene(raw []byte) (*Scene, error) {
	var f sceneFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	s := &Scene{
		templates: make(map[string]*EntityTemplate, len(f.Templates)),
		Place:     f.Place,
		Spawners:  f.Spawners,
	}
	for i := range f.Templates {
		t := &f.Templates[i]
		if t.Name == "" {
			return nil, fmt.Errorf("scene: template %d has no name", i)
		}
		if _, dup := s.templates[t.Name]; dup {
			return nil, fmt.Errorf("scene: duplicate template %q", t.Name)
		}
		s.templates[t.Name] = t
	}
	for _, p := range s.Place {
		if s.templates[p.Template] == nil {
			return nil, fmt.Errorf("scene: placement references unknown template %q", p.Template)
		}
	}
	for _, sp := range s.Spawners {
		if s.templates[sp.Template] == nil {
			return nil, fmt.Errorf("scene: spawner references unknown template %q", sp.Template)
		}
		if sp.Interval <= 0 {
			return nil, fmt.Errorf("scene: spawner for %q needs a positive interval", sp.Template)
		}
	}
	return s, nil
}

// Template returns a template by name, or nil if not found.
func (s *Scene) Template(name string) *EntityTemplate {
	return s.templates[name]
}

// Count returns the number of loaded templates.
func (s *Scene) Count() int {
	return len(s.templates)
}
