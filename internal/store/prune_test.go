package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPruneOldFiles_KeepsNewest(t *testing.T) {
	dir := t.TempDir()

	base := time.Now().Add(-time.Hour)
	names := []string{"recording_a.wav", "recording_b.wav", "recording_c.wav", "recording_d.wav"}
	for i, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		stamp := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatal(err)
		}
	}

	PruneOldFiles(dir, "recording_*.wav", 2)

	remaining, err := filepath.Glob(filepath.Join(dir, "recording_*.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 2 {
		t.Fatalf("Expected 2 files to remain, got %d: %v", len(remaining), remaining)
	}
	for _, path := range remaining {
		name := filepath.Base(path)
		if name != "recording_c.wav" && name != "recording_d.wav" {
			t.Errorf("Expected the newest files to survive, found %s", name)
		}
	}
}

func TestPruneOldFiles_UnderLimitIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording_only.wav")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	PruneOldFiles(dir, "recording_*.wav", 10)

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected the file to survive, got %v", err)
	}
}

func TestPruneOldFiles_IgnoresOtherPatterns(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, "recording_"+string(rune('a'+i))+".wav")
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	PruneOldFiles(dir, "recording_*.wav", 1)

	if _, err := os.Stat(other); err != nil {
		t.Errorf("Expected unrelated files to survive, got %v", err)
	}
}

func TestPruneOldFiles_ZeroKeepIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording_x.wav")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	PruneOldFiles(dir, "recording_*.wav", 0)

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected keep=0 to prune nothing, got %v", err)
	}
}
