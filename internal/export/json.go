package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

// FormatJSON renders h as indented JSON.
func FormatJSON(h *FileHistory) ([]byte, error) {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding history of %s: %w", h.File, err)
	}
	return append(data, '\n'), nil
}

// WriteJSONFile writes h to dir as <file>.history.json and returns the path.
func WriteJSONFile(h *FileHistory, dir string) (string, error) {
	data, err := FormatJSON(h)
	if err != nil {
		return "", err
	}
	return writeFile(filepath.Join(dir, h.File+".history.json"), data)
}
