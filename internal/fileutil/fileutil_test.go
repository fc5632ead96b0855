package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteThenReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.json")
	want := sample{Name: "demo", Count: 3}

	if err := WriteJSONAtomic(path, want, 0600); err != nil {
		t.Fatalf("WriteJSONAtomic failed: %v", err)
	}

	var got sample
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}

	// No temp file left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file not cleaned up")
	}
}

func TestReadJSON_MissingFile(t *testing.T) {
	var got sample
	err := ReadJSON(filepath.Join(t.TempDir(), "nope.json"), &got)
	if !os.IsNotExist(err) {
		t.Errorf("error = %v, want not-exist", err)
	}
}

func TestReadJSON_InvalidContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{{nope"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got sample
	if err := ReadJSON(path, &got); err == nil {
		t.Error("expected error for invalid JSON, got nil")
	}
}

func TestWriteJSONAtomic_PreservesExistingOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.json")
	if err := WriteJSONAtomic(path, sample{Name: "original"}, 0600); err != nil {
		t.Fatalf("WriteJSONAtomic failed: %v", err)
	}

	// Channels cannot marshal; the original file must survive.
	if err := WriteJSONAtomic(path, make(chan int), 0600); err == nil {
		t.Fatal("expected marshal error, got nil")
	}

	var got sample
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got.Name != "original" {
		t.Errorf("name = %q, want original", got.Name)
	}
}
