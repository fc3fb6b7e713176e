// Package logengine implements the built-in log-structured key-value
// engine: an append-only on-disk log, an in-memory offset index, a dead-
// entry counter, and threshold-triggered compaction.
package logengine

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"kvs/internal/engine"
	"kvs/internal/format"
	"kvs/internal/kverrors"
	"kvs/internal/storage"
)

// compactionThreshold is the number of dead (superseded or removed)
// entries the log can accumulate before the next mutating call triggers
// compaction.
const compactionThreshold = 64

const logFileName = "kv.db"

var _ engine.Engine = (*Engine)(nil)

// indexEntry locates a Set record's value line on disk.
type indexEntry struct {
	offset int64
	size   uint32
}

// Engine is the log-structured implementation of engine.Engine.
type Engine struct {
	dir          string
	store        *storage.File
	batchSize    uint32
	syncInterval time.Duration

	mu          sync.RWMutex
	index       map[string]indexEntry
	deadEntries uint64

	writeMu sync.Mutex
}

// Open replays the log at dir/kv.db (creating it if absent) and
// returns a ready-to-use Engine.
func Open(dir string, batchSize uint32, syncInterval time.Duration) (*Engine, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, kverrors.IO(fmt.Errorf("logengine: create dir %s: %w", dir, err))
	}

	path := filepath.Join(dir, logFileName)
	store, err := storage.NewFile(path, batchSize, syncInterval)
	if err != nil {
		return nil, kverrors.IO(err)
	}

	e := &Engine{
		dir:          dir,
		store:        store,
		batchSize:    batchSize,
		syncInterval: syncInterval,
		index:        make(map[string]indexEntry),
	}
	if err := e.recover(); err != nil {
		store.Close()
		return nil, err
	}
	return e, nil
}

// recover replays the log from offset 0, rebuilding the index and dead-
// entry counter. A short read on the final record (EOF mid-line) is
// treated as the expected tail of an interrupted writer, not an error.
func (e *Engine) recover() error {
	rd, closeFn, err := e.store.Reader(0)
	if err != nil {
		return kverrors.IO(err)
	}
	defer closeFn()

	br := bufio.NewReader(rd)
	var offset int64
	for {
		rec, err := format.Scan(br, offset)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			slog.Warn("logengine: stopped recovery at truncated trailing record", "dir", e.dir, "offset", offset)
			break
		}
		if err != nil {
			return kverrors.Serde(err)
		}

		switch rec.Header.Tag {
		case format.TagSet:
			if _, existed := e.index[rec.Header.Key]; existed {
				e.deadEntries++
			}
			e.index[rec.Header.Key] = indexEntry{offset: rec.ValueOffset, size: uint32(rec.Header.ValueSize)}
		case format.TagRm:
			if _, existed := e.index[rec.Header.Key]; existed {
				delete(e.index, rec.Header.Key)
				e.deadEntries++
			}
		}
		offset = rec.NextOffset
	}

	slog.Info("logengine: recovered", "dir", e.dir, "keys", len(e.index), "dead_entries", e.deadEntries)
	return nil
}

// Set appends a Set record and updates the index, compacting first if
// the dead-entry threshold has already been crossed.
func (e *Engine) Set(key, value string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.maybeCompactLocked(); err != nil {
		return err
	}

	headerLine, valueLine, err := format.EncodeSet(key, value)
	if err != nil {
		return kverrors.Serde(err)
	}

	if _, err := e.store.Append(headerLine); err != nil {
		return kverrors.IO(err)
	}
	valueOffset, err := e.store.Append(valueLine)
	if err != nil {
		return kverrors.IO(err)
	}
	if err := e.store.Flush(); err != nil {
		return kverrors.IO(err)
	}

	e.mu.Lock()
	if _, existed := e.index[key]; existed {
		e.deadEntries++
	}
	e.index[key] = indexEntry{offset: valueOffset, size: uint32(len(valueLine))}
	e.mu.Unlock()

	return nil
}

// Get returns the value last Set for key, or (_, false, nil) if absent.
// It holds mu for the whole lookup, including the disk read, because
// Storage.ReadAt reopens the log by path rather than by file handle: if
// the index lookup and the read were split across two critical
// sections, a compaction's rename could land in the gap and the read
// would silently hit the new file at a stale offset.
func (e *Engine) Get(key string) (string, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entry, ok := e.index[key]
	if !ok {
		return "", false, nil
	}

	data, err := e.store.ReadAt(entry.offset, entry.size)
	if err != nil {
		return "", false, kverrors.IO(err)
	}
	value, err := format.DecodeValueLine(data)
	if err != nil {
		return "", false, kverrors.Serde(err)
	}
	return value, true, nil
}

// Remove appends a Rm record for key. Returns a KindKeyNotFound error if
// key has no entry.
func (e *Engine) Remove(key string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	e.mu.RLock()
	_, ok := e.index[key]
	e.mu.RUnlock()
	if !ok {
		return kverrors.KeyNotFound(key)
	}

	if err := e.maybeCompactLocked(); err != nil {
		return err
	}

	headerLine, err := format.EncodeRm(key)
	if err != nil {
		return kverrors.Serde(err)
	}
	if _, err := e.store.Append(headerLine); err != nil {
		return kverrors.IO(err)
	}
	if err := e.store.Flush(); err != nil {
		return kverrors.IO(err)
	}

	e.mu.Lock()
	delete(e.index, key)
	e.deadEntries++
	e.mu.Unlock()

	return nil
}

// Clone returns e itself: a *Engine is already safe to share across
// goroutines via its own locks, so no reference counting is needed.
func (e *Engine) Clone() engine.Engine { return e }

// Close flushes and closes the underlying log file.
func (e *Engine) Close() error {
	if err := e.store.Close(); err != nil {
		return kverrors.IO(err)
	}
	return nil
}

// maybeCompactLocked triggers compaction when the dead-entry count has
// reached compactionThreshold. Callers must hold writeMu.
func (e *Engine) maybeCompactLocked() error {
	e.mu.RLock()
	dead := e.deadEntries
	e.mu.RUnlock()
	if dead < compactionThreshold {
		return nil
	}
	return e.compactLocked()
}

// compactLocked rewrites the log with only the live entries, via a
// temp-file-then-rename-then-directory-fsync sequence so a crash mid-
// compaction never leaves the store without a readable log. Callers must
// hold writeMu.
func (e *Engine) compactLocked() error {
	path := filepath.Join(e.dir, logFileName)
	tmpPath := path + ".compact"

	tmpFile, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return kverrors.IO(fmt.Errorf("logengine: create compaction file: %w", err))
	}

	e.mu.RLock()
	keys := make([]string, 0, len(e.index))
	for k := range e.index {
		keys = append(keys, k)
	}
	e.mu.RUnlock()

	newIndex := make(map[string]indexEntry, len(keys))
	var written int64
	for _, key := range keys {
		value, ok, err := e.Get(key)
		if err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return err
		}
		if !ok {
			continue
		}
		headerLine, valueLine, err := format.EncodeSet(key, value)
		if err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return kverrors.Serde(err)
		}
		if _, err := tmpFile.Write(headerLine); err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return kverrors.IO(err)
		}
		valueOffset := written + int64(len(headerLine))
		if _, err := tmpFile.Write(valueLine); err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return kverrors.IO(err)
		}
		newIndex[key] = indexEntry{offset: valueOffset, size: uint32(len(valueLine))}
		written = valueOffset + int64(len(valueLine))
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return kverrors.IO(err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return kverrors.IO(err)
	}

	// From here on, closing the old store, renaming the compacted file
	// over it, and swapping in the new store and index must happen as
	// one critical section: Get reopens the log by path, so a reader
	// that read the old index after the rename but before the index
	// swap would read the new file's bytes at a stale offset. Holding mu
	// across the whole sequence excludes readers and writers for
	// compaction's (brief) duration.
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Close(); err != nil {
		return kverrors.IO(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return kverrors.IO(fmt.Errorf("logengine: rename compacted log: %w", err))
	}
	if err := fsyncDir(e.dir); err != nil {
		return kverrors.IO(err)
	}

	store, err := storage.NewFile(path, e.batchSize, e.syncInterval)
	if err != nil {
		return kverrors.IO(err)
	}

	e.store = store
	e.index = newIndex
	e.deadEntries = 0

	slog.Info("logengine: compacted", "dir", e.dir, "keys", len(newIndex))
	return nil
}

// fsyncDir fsyncs a directory so a preceding rename is durable even if
// the process crashes immediately after.
func fsyncDir(dir string) error {
	df, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("logengine: open dir for fsync: %w", err)
	}
	defer df.Close()
	if err := df.Sync(); err != nil {
		return fmt.Errorf("logengine: fsync dir: %w", err)
	}
	return nil
}
