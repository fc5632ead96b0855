package appdir

import (
	"os"
	"path/filepath"
	"testing"
)

func withDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(DirEnv, dir)
	Reset()
	t.Cleanup(Reset)
	return dir
}

func TestDir_EnvOverride(t *testing.T) {
	want := withDir(t)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	if got != want {
		t.Errorf("Dir = %q, want %q", got, want)
	}
}

func TestFilePaths(t *testing.T) {
	dir := withDir(t)

	cfg, err := ConfigFile()
	if err != nil {
		t.Fatalf("ConfigFile failed: %v", err)
	}
	if cfg != filepath.Join(dir, ConfigFileName) {
		t.Errorf("ConfigFile = %q", cfg)
	}

	dev, err := DeviceFile()
	if err != nil {
		t.Fatalf("DeviceFile failed: %v", err)
	}
	if dev != filepath.Join(dir, DeviceFileName) {
		t.Errorf("DeviceFile = %q", dev)
	}
}

func TestLogsDir_Creates(t *testing.T) {
	dir := withDir(t)

	logs, err := LogsDir()
	if err != nil {
		t.Fatalf("LogsDir failed: %v", err)
	}
	if logs != filepath.Join(dir, LogsDirName) {
		t.Errorf("LogsDir = %q", logs)
	}
	info, err := os.Stat(logs)
	if err != nil || !info.IsDir() {
		t.Errorf("logs directory not created: %v", err)
	}
}
