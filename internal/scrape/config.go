package scrape

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/callmeahab/pharma-search-sub001/pkg/config"
)

// Duration parses "15m"-style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// SourceSpec is one entry in the sources file.
type SourceSpec struct {
	Name    string   `yaml:"name" validate:"required"`
	Vendor  string   `yaml:"vendor" validate:"required"`
	Command string   `yaml:"command" validate:"required"`
	Args    []string `yaml:"args"`
	Dir     string   `yaml:"dir"`
	// Timeout overrides the run-wide source timeout when set.
	Timeout Duration `yaml:"timeout"`
}

type sourcesFile struct {
	Sources []SourceSpec `yaml:"sources" validate:"min=1,dive"`
}

// LoadSources reads and validates the sources file, returning one ExecSource
// per entry. Source names must be unique: the run report is keyed by them.
func LoadSources(path string, cfg config.ScrapeConfig) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing sources file: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid sources file: %w", err)
	}

	seen := make(map[string]bool, len(file.Sources))
	sources := make([]Source, 0, len(file.Sources))
	for _, spec := range file.Sources {
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate source name %q", spec.Name)
		}
		seen[spec.Name] = true

		timeout := time.Duration(spec.Timeout)
		if timeout == 0 {
			timeout = cfg.SourceTimeout
		}
		sources = append(sources, NewExecSource(spec.Name, spec.Vendor, spec.Command, spec.Args, spec.Dir, timeout))
	}
	return sources, nil
}
