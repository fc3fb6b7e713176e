// Package kverrors defines the unified error taxonomy carried across the
// engine, server, and client boundaries.
package kverrors

import "fmt"

// Kind classifies a failure the way callers need to branch on it: by
// category, not by which package raised it.
type Kind int

const (
	// KindIO covers underlying file or socket failures.
	KindIO Kind = iota
	// KindSerde covers malformed JSON in the log or on the wire.
	KindSerde
	// KindKeyNotFound covers remove/get semantics on an absent key.
	KindKeyNotFound
	// KindBadEngine covers an engine name that contradicts on-disk data,
	// or two data directories present at once.
	KindBadEngine
	// KindUnknownEngine covers an engine name outside the recognized set.
	KindUnknownEngine
	// KindServer covers an error forwarded from the server as a string.
	KindServer
	// KindOther covers address parsing, pool build failures, and the like.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindSerde:
		return "serde"
	case KindKeyNotFound:
		return "key not found"
	case KindBadEngine:
		return "bad engine"
	case KindUnknownEngine:
		return "unknown engine"
	case KindServer:
		return "server"
	default:
		return "other"
	}
}

// Error is the concrete error type carried by every package in this
// module. It always has a Kind; Key is set only for KindKeyNotFound.
type Error struct {
	Kind Kind
	Key  string
	Msg  string
	Err  error
}

// Error renders only this node's message, deliberately not the wrapped
// cause's text — callers that want the full chain use Chain, mirroring
// the original source's Display impl (which never inlines err.source()).
func (e *Error) Error() string {
	switch e.Kind {
	case KindIO:
		return "I/O error"
	case KindSerde:
		return "serialization error"
	case KindKeyNotFound:
		return fmt.Sprintf("Key not found: %s", e.Key)
	case KindBadEngine:
		return "selected engine does not support data stored on disk"
	case KindUnknownEngine:
		return "unknown engine"
	case KindServer:
		return fmt.Sprintf("Server error: %s", e.Msg)
	default:
		return e.Msg
	}
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

// IO wraps an I/O failure.
func IO(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindIO, Err: err}
}

// Serde wraps a (de)serialization failure.
func Serde(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindSerde, Err: err}
}

// KeyNotFound reports that key has no entry in the index.
func KeyNotFound(key string) error {
	return &Error{Kind: KindKeyNotFound, Key: key}
}

// BadEngine reports a mismatch between a requested engine and on-disk data,
// or the presence of two engines' data directories at once.
func BadEngine() error {
	return &Error{Kind: KindBadEngine}
}

// UnknownEngine reports an engine name outside {kvs, sled}.
func UnknownEngine() error {
	return &Error{Kind: KindUnknownEngine}
}

// Server wraps an error message forwarded by the server in a reply.
func Server(msg string) error {
	return &Error{Kind: KindServer, Msg: msg}
}

// Other wraps address parsing errors, pool build failures, and similar
// miscellany that doesn't warrant its own Kind.
func Other(msg string, err error) error {
	return &Error{Kind: KindOther, Msg: msg, Err: err}
}

// IsKeyNotFoundText reports whether msg is exactly the rendering
// KeyNotFound(key) would produce. The server only ever forwards errors
// as plain strings (see internal/server), so a client reconstructing a
// KindKeyNotFound error from a Server(msg) reply has to pattern-match
// the rendered text against the key it asked about, mirroring how the
// original kvs-client matched the server's stringified error.
func IsKeyNotFoundText(key, msg string) bool {
	return msg == (&Error{Kind: KindKeyNotFound, Key: key}).Error()
}

// KeyOf returns (key, true) if err is a KindKeyNotFound error, matching
// original source's KvError::KeyNotFound(key) match arm.
func KeyOf(err error) (string, bool) {
	var e *Error
	if As(err, &e) && e.Kind == KindKeyNotFound {
		return e.Key, true
	}
	return "", false
}

// As reports whether err or any cause reached through its single-error
// Unwrap chain is an *Error, storing the first one in *target. Unlike
// errors.As it does not follow Unwrap() []error or call As methods.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Chain renders err followed by each wrapped cause, one per line, the way
// the original kvs-client/-server binaries printed an error's source
// chain.
func Chain(err error) []string {
	var lines []string
	for err != nil {
		lines = append(lines, err.Error())
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return lines
}
