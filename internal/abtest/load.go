package abtest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// experimentsFile is the on-disk shape of an experiments definition.
type experimentsFile struct {
	Tests []Test `yaml:"tests"`
}

// LoadExperiments reads experiment definitions from a YAML file and
// registers each one. Registration stops at the first invalid test so a
// bad config file is caught at startup, not at assignment time.
func (e *Engine) LoadExperiments(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read experiments file: %w", err)
	}

	var file experimentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse experiments file: %w", err)
	}

	for _, t := range file.Tests {
		if err := e.RegisterTest(t); err != nil {
			return fmt.Errorf("invalid experiment in %s: %w", path, err)
		}
	}

	return nil
}
