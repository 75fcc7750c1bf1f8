// Package config loads the tournament configuration from YAML, merged over
// embedded defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"crossmatch/internal/blueprint"
	"crossmatch/internal/results"
	"crossmatch/internal/tournament"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Run         RunConfig             `yaml:"run"`
	Engine      EngineConfig          `yaml:"engine"`
	Schedule    ScheduleConfig        `yaml:"schedule"`
	Aggregation AggregationConfig     `yaml:"aggregation"`
	Blueprint   blueprint.Description `yaml:"blueprint"`
	Teams       []TeamConfig          `yaml:"teams"`
	Output      OutputConfig          `yaml:"output"`
	Store       StoreConfig           `yaml:"store"`
	Logging     LoggingConfig         `yaml:"logging"`

	// BaseDir anchors relative paths; it is the directory of the loaded file.
	BaseDir string `yaml:"-"`
}

type RunConfig struct {
	Name    string `yaml:"name"`
	Workers int    `yaml:"workers"`
}

type EngineConfig struct {
	Name    string             `yaml:"name"`
	Observe bool               `yaml:"observe"` // log intermediate snapshots at debug level
	Params  map[string]float64 `yaml:"params"`
}

type ScheduleConfig struct {
	Policy string `yaml:"policy"` // full_cross, single_direction or self_play
}

type AggregationConfig struct {
	Policy string `yaml:"policy"` // total or average
}

// TeamConfig names a directory of genotype files. BlueprintFile overrides
// the top-level blueprint for this team only.
type TeamConfig struct {
	Name          string `yaml:"name"`
	Dir           string `yaml:"dir"`
	BlueprintFile string `yaml:"blueprint_file,omitempty"`
}

type OutputConfig struct {
	Dir          string `yaml:"dir"`
	ResumeMatrix string `yaml:"resume_matrix"`
}

type StoreConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := cfg.merge(data); err != nil {
		return nil, err
	}
	cfg.BaseDir = filepath.Dir(path)
	return cfg, nil
}

// Parse merges data over the embedded defaults without touching the
// filesystem.
func Parse(data []byte) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}
	if err := cfg.merge(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return cfg, nil
}

func (c *Config) merge(data []byte) error {
	// Only overwrites fields present in data. Blueprint replaces the default
	// wholesale so that default sensors never leak into a distributed body.
	var peek struct {
		Blueprint *yaml.Node `yaml:"blueprint"`
	}
	if err := yaml.Unmarshal(data, &peek); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	if peek.Blueprint != nil {
		c.Blueprint = blueprint.Description{}
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	for i := range c.Teams {
		if c.Teams[i].Name == "" && c.Teams[i].Dir != "" {
			c.Teams[i].Name = filepath.Base(filepath.Clean(c.Teams[i].Dir))
		}
	}
	return nil
}

// Validate checks every enumerated option and the team list. It does not
// touch the filesystem.
func (c *Config) Validate() error {
	var errs []error
	if c.Run.Workers < 0 {
		errs = append(errs, fmt.Errorf("run.workers must be >= 0, got %d", c.Run.Workers))
	}
	if strings.TrimSpace(c.Engine.Name) == "" {
		errs = append(errs, errors.New("engine.name is required"))
	}
	if _, err := tournament.ParsePolicy(c.Schedule.Policy); err != nil {
		errs = append(errs, fmt.Errorf("schedule.policy: %w", err))
	}
	if _, err := results.ParsePolicy(c.Aggregation.Policy); err != nil {
		errs = append(errs, fmt.Errorf("aggregation.policy: %w", err))
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Kind {
	case "", "memory":
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store backend: %s", c.Store.Kind))
	}

	if len(c.Teams) == 0 {
		errs = append(errs, errors.New("at least one team is required"))
	}
	seen := make(map[string]struct{}, len(c.Teams))
	for i, team := range c.Teams {
		if team.Dir == "" {
			errs = append(errs, fmt.Errorf("teams[%d].dir is required", i))
		}
		if team.Name == "" {
			errs = append(errs, fmt.Errorf("teams[%d].name is required", i))
			continue
		}
		if _, dup := seen[team.Name]; dup {
			errs = append(errs, fmt.Errorf("teams[%d]: duplicate team name %s", i, team.Name))
		}
		seen[team.Name] = struct{}{}
	}
	return errors.Join(errs...)
}

// Path resolves p against BaseDir when it is relative.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// TeamBlueprint returns the blueprint description a team decodes with.
func (c *Config) TeamBlueprint(team TeamConfig) (blueprint.Description, error) {
	if team.BlueprintFile == "" {
		return c.Blueprint, nil
	}
	return blueprint.LoadDescription(c.Path(team.BlueprintFile))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
