// Package catalog holds the static list of states, districts and court
// complexes offered to callers.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type District struct {
	Name      string   `yaml:"name" json:"name"`
	Complexes []string `yaml:"complexes" json:"complexes"`
}

type State struct {
	Name      string     `yaml:"name" json:"name"`
	Districts []District `yaml:"districts" json:"districts"`
}

type Catalog struct {
	States []State `yaml:"states" json:"states"`
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, s := range c.States {
		if s.Name == "" {
			return nil, errors.New("parse catalog: state without a name")
		}
	}
	return &c, nil
}

// Default is the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads path, falling back to Default when the file does not exist.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func (c *Catalog) StateNames() []string {
	out := make([]string, 0, len(c.States))
	for _, s := range c.States {
		out = append(out, s.Name)
	}
	return out
}

func (c *Catalog) Districts(state string) []string {
	for _, s := range c.States {
		if s.Name == state {
			out := make([]string, 0, len(s.Districts))
			for _, d := range s.Districts {
				out = append(out, d.Name)
			}
			return out
		}
	}
	return nil
}

func (c *Catalog) Complexes(state, district string) []string {
	for _, s := range c.States {
		if s.Name != state {
			continue
		}
		for _, d := range s.Districts {
			if d.Name == district {
				return append([]string(nil), d.Complexes...)
			}
		}
	}
	return nil
}
