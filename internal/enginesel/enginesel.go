// Package enginesel selects and opens the active storage engine,
// detecting a mismatch between a requested engine name and whatever
// engine's data directory is already present in the working directory.
package enginesel

import (
	"os"
	"path/filepath"
	"time"

	"kvs/internal/boltengine"
	"kvs/internal/engine"
	"kvs/internal/kverrors"
	"kvs/internal/logengine"
)

// Kind names one of the two recognized engines.
type Kind string

const (
	KindLog  Kind = "kvs"
	KindBolt Kind = "sled"

	logDirName  = "pna-kvs"
	boltDirName = "pna-sled"
)

// Detect scans workDir for an existing engine data directory and
// resolves the engine to use, honoring requested as an override when
// given. It returns kverrors BadEngine if two data directories are
// present, or if requested contradicts the on-disk data directory.
func Detect(workDir string, requested string) (Kind, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", kverrors.IO(err)
	}

	var found Kind
	for _, entry := range entries {
		var dirKind Kind
		switch entry.Name() {
		case logDirName:
			dirKind = KindLog
		case boltDirName:
			dirKind = KindBolt
		default:
			continue
		}
		if found != "" {
			return "", kverrors.BadEngine()
		}
		found = dirKind
	}

	if requested == "" {
		if found != "" {
			return found, nil
		}
		return KindLog, nil
	}

	requestedKind := Kind(requested)
	if requestedKind != KindLog && requestedKind != KindBolt {
		return "", kverrors.UnknownEngine()
	}
	if found != "" && requestedKind != found {
		return "", kverrors.BadEngine()
	}
	return requestedKind, nil
}

// Open resolves the engine to use and opens it, creating its data
// directory under workDir if needed.
func Open(workDir string, requested string, batchSize uint32, syncInterval time.Duration) (engine.Engine, error) {
	kind, err := Detect(workDir, requested)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindLog:
		dir := filepath.Join(workDir, logDirName)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, kverrors.IO(err)
		}
		return logengine.Open(dir, batchSize, syncInterval)
	case KindBolt:
		dir := filepath.Join(workDir, boltDirName)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, kverrors.IO(err)
		}
		return boltengine.Open(dir)
	default:
		return nil, kverrors.UnknownEngine()
	}
}
