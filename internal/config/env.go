package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadEnvFile applies KEY=VALUE lines from path to the process environment.
// Variables that are already set keep their value. A missing file is not an
// error. It returns the keys it set.
func LoadEnvFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening env file %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // read-only

	var set []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := parseEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return set, fmt.Errorf("setting %s from %s: %w", key, path, err)
		}
		set = append(set, key)
	}
	if err := scanner.Err(); err != nil {
		return set, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return set, nil
}

// LoadEnvFiles applies .env.local and .env from workDir, then the global
// <Dir>/env file. Earlier files win because existing variables are never replaced.
func LoadEnvFiles(workDir string) error {
	paths := []string{
		filepath.Join(workDir, ".env.local"),
		filepath.Join(workDir, ".env"),
	}
	if dir := Dir(); dir != "" {
		paths = append(paths, filepath.Join(dir, "env"))
	}
	var errs []error
	for _, path := range paths {
		if _, err := LoadEnvFile(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// parseEnvLine extracts KEY=VALUE, skipping blanks and # comments.
// An "export " prefix is dropped and one pair of matching quotes is stripped.
func parseEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(key), "export "))
	if key == "" {
		return "", "", false
	}
	value = strings.TrimSpace(value)
	if n := len(value); n >= 2 && (value[0] == '"' || value[0] == '\'') && value[n-1] == value[0] {
		value = value[1 : n-1]
	}
	return key, value, true
}
