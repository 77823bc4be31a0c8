package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes one registered scrape source. Scraper selects
// the site adapter by kind; URL overrides the adapter's default base.
type SourceConfig struct {
	Name    string `yaml:"name"`
	Scraper string `yaml:"scraper"`
	URL     string `yaml:"url"`
	City    string `yaml:"city"`
	Enabled bool   `yaml:"enabled"`
}

type sourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadSources reads the YAML source registry at path and returns the
// enabled sources in file order.
func LoadSources(path string) ([]SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing sources file: %w", err)
	}

	seen := make(map[string]bool, len(file.Sources))
	enabled := make([]SourceConfig, 0, len(file.Sources))
	for i, src := range file.Sources {
		if src.Name == "" {
			return nil, fmt.Errorf("source %d: name is required", i)
		}
		if src.Scraper == "" {
			return nil, fmt.Errorf("source %q: scraper is required", src.Name)
		}
		if seen[src.Name] {
			return nil, fmt.Errorf("source %q: duplicate name", src.Name)
		}
		seen[src.Name] = true
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}
	return enabled, nil
}
