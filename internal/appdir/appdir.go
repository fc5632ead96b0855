// Package appdir provides platform-native directory management for Halyard.
// It locates the data directory that stores the device identity, the
// configuration file and log files.
package appdir

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	// DirEnv is the environment variable overriding the Halyard directory.
	DirEnv = "HALYARD_DIR"

	// ConfigFileName is the name of the YAML configuration file.
	ConfigFileName = "config.yaml"

	// DeviceFileName is the name of the durable device identity file.
	DeviceFileName = "device.json"

	// LogsDirName is the name of the logs subdirectory.
	LogsDirName = "logs"
)

var (
	// cachedDir stores the resolved directory to avoid repeated lookups.
	cachedDir string
	mu        sync.RWMutex
)

// Dir returns the Halyard data directory path, resolved in order from the
// HALYARD_DIR environment variable, then the platform default:
//
//   - macOS: ~/Library/Application Support/Halyard
//   - Linux: $XDG_DATA_HOME/halyard or ~/.local/share/halyard
//   - Windows: %APPDATA%\Halyard
//
// This only returns the path; use EnsureDir to create it.
func Dir() (string, error) {
	mu.RLock()
	if cachedDir != "" {
		dir := cachedDir
		mu.RUnlock()
		return dir, nil
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if cachedDir != "" {
		return cachedDir, nil
	}

	dir, err := resolveDir()
	if err != nil {
		return "", err
	}
	cachedDir = dir
	return dir, nil
}

// resolveDir calculates the data directory path.
func resolveDir() (string, error) {
	if envDir := os.Getenv(DirEnv); envDir != "" {
		return envDir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "Halyard"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Halyard"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "halyard"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		return filepath.Join(home, ".local", "share", "halyard"), nil
	}
}

// EnsureDir returns the data directory, creating it if necessary.
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// ConfigFile returns the path to the configuration file.
func ConfigFile() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// DeviceFile returns the path to the device identity file.
func DeviceFile() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DeviceFileName), nil
}

// LogsDir returns the logs directory, creating it if necessary.
func LogsDir() (string, error) {
	dir, err := EnsureDir()
	if err != nil {
		return "", err
	}
	logs := filepath.Join(dir, LogsDirName)
	if err := os.MkdirAll(logs, 0755); err != nil {
		return "", fmt.Errorf("failed to create logs directory: %w", err)
	}
	return logs, nil
}

// Reset clears the cached directory. Intended for tests that change
// HALYARD_DIR between runs.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cachedDir = ""
}
