package targets

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of targets.yaml
type Loader struct {
	filePath string
}

// NewLoader creates a new targets loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the targets.yaml file
func (l *Loader) Load() (TargetsConfig, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}

	var config TargetsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse targets yaml: %w", err)
	}

	return config, nil
}
