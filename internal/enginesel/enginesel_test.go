package enginesel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"kvs/internal/kverrors"
)

func TestDetectDefaultsToLog(t *testing.T) {
	kind, err := Detect(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if kind != KindLog {
		t.Errorf("Detect() = %v, want %v", kind, KindLog)
	}
}

func TestDetectHonorsExistingLogDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, logDirName), 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	kind, err := Detect(dir, "")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if kind != KindLog {
		t.Errorf("Detect() = %v, want %v", kind, KindLog)
	}
}

func TestDetectMismatchIsBadEngine(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, boltDirName), 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	_, err := Detect(dir, "kvs")
	if e, ok := err.(*kverrors.Error); !ok || e.Kind != kverrors.KindBadEngine {
		t.Fatalf("Detect() error = %v, want a KindBadEngine error", err)
	}
}

func TestDetectTwoDataDirsIsBadEngine(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, logDirName), 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, boltDirName), 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	_, err := Detect(dir, "")
	if err == nil {
		t.Fatal("Detect() with two data dirs returned nil error")
	}
	if e, ok := err.(*kverrors.Error); !ok || e.Kind != kverrors.KindBadEngine {
		t.Errorf("Detect() with two data dirs error = %v, want a KindBadEngine error", err)
	}
}

func TestDetectUnknownEngine(t *testing.T) {
	_, err := Detect(t.TempDir(), "rocksdb")
	if err == nil {
		t.Fatal("Detect() with unknown engine name returned nil error")
	}
}

func TestOpenCreatesDataDir(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, "kvs", 4096, time.Second)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer e.Close()

	if _, err := os.Stat(filepath.Join(dir, logDirName)); err != nil {
		t.Errorf("Open() did not create %s: %v", logDirName, err)
	}
}
