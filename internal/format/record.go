// Package format encodes and decodes the log engine's on-disk records. A
// record is two text lines: a JSON header line, followed (for Set) by a
// JSON value line — never a single binary blob — so that the log file
// stays inspectable with ordinary line-oriented tools.
package format

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	json "github.com/goccy/go-json"
)

// Tag names the kind of record appended to the log.
type Tag string

const (
	// TagSet records a live key/value pair.
	TagSet Tag = "Set"
	// TagRm records a tombstone for a previously-set key.
	TagRm Tag = "Rm"
)

// Header is the first line of a record.
type Header struct {
	Tag       Tag    `json:"tag"`
	Key       string `json:"key"`
	ValueSize uint64 `json:"value_size"`
}

// EncodeSet renders a Set record as (header line, value line), each
// including its trailing '\n'. ValueSize is the exact byte length of the
// value line including its terminator, per the on-disk invariant.
func EncodeSet(key, value string) (headerLine, valueLine []byte, err error) {
	valueLine, err = json.Marshal(value)
	if err != nil {
		return nil, nil, fmt.Errorf("format: encode value: %w", err)
	}
	valueLine = append(valueLine, '\n')

	hdr := Header{Tag: TagSet, Key: key, ValueSize: uint64(len(valueLine))}
	headerLine, err = json.Marshal(hdr)
	if err != nil {
		return nil, nil, fmt.Errorf("format: encode header: %w", err)
	}
	headerLine = append(headerLine, '\n')
	return headerLine, valueLine, nil
}

// EncodeRm renders a Rm record: a header line only, value_size 0.
func EncodeRm(key string) (headerLine []byte, err error) {
	hdr := Header{Tag: TagRm, Key: key, ValueSize: 0}
	headerLine, err = json.Marshal(hdr)
	if err != nil {
		return nil, fmt.Errorf("format: encode header: %w", err)
	}
	return append(headerLine, '\n'), nil
}

// DecodeValueLine JSON-decodes a single value line (including or
// excluding its trailing newline) back into its string.
func DecodeValueLine(line []byte) (string, error) {
	trimmed := strings.TrimRight(string(line), "\n")
	var value string
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return "", fmt.Errorf("format: decode value: %w", err)
	}
	return value, nil
}

// ScannedRecord is one record recovered while replaying the log, along
// with the byte offset of its own header line, of its value line (the
// index entry for Set), and of the start of the next record (for
// sequential scanning).
type ScannedRecord struct {
	Header       Header
	ValueOffset  int64 // first byte of the value line, meaningful for Set
	HeaderOffset int64 // first byte of this record's header line
	NextOffset   int64 // first byte of the following record
}

// Scan reads one record from rd, which must be positioned at a header
// line boundary starting at headerOffset. It returns io.EOF when rd is
// exhausted with no partial record pending, and io.ErrUnexpectedEOF (with
// a logged warning) when a header or value line is cut short — the
// signal recovery uses to stop at the last complete record instead of
// failing outright.
func Scan(rd *bufio.Reader, headerOffset int64) (ScannedRecord, error) {
	headerLine, err := readLine(rd)
	if err != nil {
		if err == io.EOF && len(headerLine) == 0 {
			return ScannedRecord{}, io.EOF
		}
		slog.Warn("format: truncated header line at end of log, stopping recovery", "offset", headerOffset)
		return ScannedRecord{}, io.ErrUnexpectedEOF
	}

	var hdr Header
	if jsonErr := json.Unmarshal([]byte(strings.TrimRight(headerLine, "\n")), &hdr); jsonErr != nil {
		slog.Warn("format: malformed header line, stopping recovery", "offset", headerOffset, "error", jsonErr)
		return ScannedRecord{}, io.ErrUnexpectedEOF
	}

	valueOffset := headerOffset + int64(len(headerLine))
	next := valueOffset
	if hdr.Tag == TagSet {
		if _, err := rd.Discard(int(hdr.ValueSize)); err != nil {
			slog.Warn("format: truncated value line at end of log, stopping recovery", "offset", valueOffset)
			return ScannedRecord{}, io.ErrUnexpectedEOF
		}
		next = valueOffset + int64(hdr.ValueSize)
	}

	return ScannedRecord{
		Header:       hdr,
		ValueOffset:  valueOffset,
		HeaderOffset: headerOffset,
		NextOffset:   next,
	}, nil
}

// readLine reads up to and including the next '\n', returning what was
// read (without trimming) plus io.EOF if the stream ended exactly on a
// line boundary, or io.ErrUnexpectedEOF if it ended mid-line.
func readLine(rd *bufio.Reader) (string, error) {
	line, err := rd.ReadString('\n')
	if err == nil {
		return line, nil
	}
	if err == io.EOF {
		if line == "" {
			return "", io.EOF
		}
		return line, io.ErrUnexpectedEOF
	}
	return line, err
}
