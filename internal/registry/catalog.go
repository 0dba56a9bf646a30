package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// catalogFile is the on-disk shape of a tool catalog.
type catalogFile struct {
	Tools []Tool `json:"tools"`
}

// LoadCatalog reads a JSON tool catalog and registers every entry.
func (r *BleveRegistry) LoadCatalog(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse catalog file: %w", err)
	}

	if err := r.RegisterTools(file.Tools); err != nil {
		return fmt.Errorf("failed to register catalog tools: %w", err)
	}

	return nil
}
