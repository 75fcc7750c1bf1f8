package blueprint

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Grid is the bounding box of a distributed body.
type Grid struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Description is the textual form of a blueprint together with the name of
// the parameter mapping used to decode genotypes for it.
type Description struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`
	Mapper     string   `yaml:"mapper"`
	Sensors    []string `yaml:"sensors"`
	Hidden     []int    `yaml:"hidden,omitempty"`
	Activation string   `yaml:"activation,omitempty"`
	Grid       Grid     `yaml:"grid,omitempty"`
	Cells      []Cell   `yaml:"cells,omitempty"`
}

func ParseDescription(data []byte) (Description, error) {
	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return Description{}, fmt.Errorf("parse blueprint description: %w", err)
	}
	return desc, nil
}

func LoadDescription(path string) (Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Description{}, err
	}
	desc, err := ParseDescription(data)
	if err != nil {
		return Description{}, fmt.Errorf("%s: %w", path, err)
	}
	return desc, nil
}

func (d Description) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// FromDescription builds the blueprint named by desc.Kind.
func FromDescription(desc Description) (Blueprint, error) {
	switch Shape(strings.ToLower(strings.TrimSpace(desc.Kind))) {
	case ShapeCentralized:
		return NewCentralized(desc.Name, desc.Sensors, desc.Hidden, desc.Activation)
	case ShapeDistributed:
		return NewDistributed(desc.Name, desc.Grid.Width, desc.Grid.Height, desc.Cells, desc.Sensors, desc.Hidden, desc.Activation)
	case "":
		return nil, fmt.Errorf("blueprint kind is required")
	default:
		return nil, fmt.Errorf("unsupported blueprint kind: %s", desc.Kind)
	}
}
