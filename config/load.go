package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads YAML-encoded RenderEngineOptions from path, starting from
// DefaultRenderEngineOptions so unspecified fields keep sane values.
func Load(path string) (RenderEngineOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RenderEngineOptions{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML-encoded RenderEngineOptions from data.
func Parse(data []byte) (RenderEngineOptions, error) {
	opts := DefaultRenderEngineOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return RenderEngineOptions{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return RenderEngineOptions{}, err
	}
	return opts, nil
}
