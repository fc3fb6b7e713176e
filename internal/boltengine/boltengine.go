// Package boltengine adapts go.etcd.io/bbolt, an embedded B-tree store,
// to the engine.Engine contract as the alternative to the built-in log
// engine.
package boltengine

import (
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"kvs/internal/engine"
	"kvs/internal/kverrors"
)

const dbFileName = "kvs.bolt"

var bucketName = []byte("kvs")

// Engine is the bbolt-backed implementation of engine.Engine.
type Engine struct {
	db *bolt.DB
}

var _ engine.Engine = (*Engine)(nil)

// Open opens (creating if absent) a bbolt database at dir/kvs.bolt with
// the store's single bucket.
func Open(dir string) (*Engine, error) {
	path := filepath.Join(dir, dbFileName)
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, kverrors.IO(err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, kverrors.IO(err)
	}

	return &Engine{db: db}, nil
}

// Set stores value under key. bbolt fsyncs on commit by default, so a
// successful return means the write is durable.
func (e *Engine) Set(key, value string) error {
	err := e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return kverrors.IO(err)
	}
	return nil
}

// Get returns the value stored under key. bbolt values are returned as a
// byte slice valid only for the life of the transaction, so it is copied
// and lossily decoded to UTF-8 (mirroring String::from_utf8_lossy) before
// the transaction closes.
func (e *Engine) Get(key string) (string, bool, error) {
	var value string
	var found bool
	err := e.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		value = strings.ToValidUTF8(string(raw), "�")
		return nil
	})
	if err != nil {
		return "", false, kverrors.IO(err)
	}
	return value, found, nil
}

// Remove deletes key, or returns a KindKeyNotFound error if it is absent.
func (e *Engine) Remove(key string) error {
	err := e.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket.Get([]byte(key)) == nil {
			return kverrors.KeyNotFound(key)
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		if _, ok := kverrors.KeyOf(err); ok {
			return err
		}
		return kverrors.IO(err)
	}
	return nil
}

// Clone returns e itself; bbolt's *DB is already safe for concurrent use.
func (e *Engine) Clone() engine.Engine { return e }

// Close closes the underlying bbolt database.
func (e *Engine) Close() error {
	if err := e.db.Close(); err != nil {
		return kverrors.IO(err)
	}
	return nil
}
