package storage

import (
	"encoding/json"
	"fmt"
	"os"
)

// loadSnapshot reads a whole JSON snapshot file into dst. A missing or empty
// file is not an error; the store just starts empty.
func loadSnapshot(path string, dst interface{}) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return nil
}

// saveSnapshot rewrites the whole file on every mutation. Last writer wins;
// there is no cross-process locking.
func saveSnapshot(path string, src interface{}) error {
	data, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
