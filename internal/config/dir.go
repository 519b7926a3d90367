// Package config resolves rings configuration: the global configuration
// directory, settings files, and environment overrides.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "rings"

// Dir returns the global rings configuration directory.
//
// Resolution:
//   - $RINGS_CONFIG_HOME if set
//   - $XDG_CONFIG_HOME/rings if set (on any platform)
//   - %AppData%/rings on Windows
//   - ~/.config/rings elsewhere
//
// Returns "" when no home directory can be determined.
func Dir() string {
	if dir := os.Getenv("RINGS_CONFIG_HOME"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName)
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}
