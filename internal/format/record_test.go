package format

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	json "github.com/goccy/go-json"
)

func TestEncodeSetDecodeValueLine(t *testing.T) {
	headerLine, valueLine, err := EncodeSet("key", "value")
	if err != nil {
		t.Fatalf("EncodeSet() error = %v", err)
	}

	var hdr Header
	if err := jsonUnmarshalHeader(headerLine, &hdr); err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if hdr.Tag != TagSet || hdr.Key != "key" {
		t.Errorf("header = %+v, want tag Set key %q", hdr, "key")
	}
	if hdr.ValueSize != uint64(len(valueLine)) {
		t.Errorf("ValueSize = %d, want %d (len of value line incl. terminator)", hdr.ValueSize, len(valueLine))
	}

	value, err := DecodeValueLine(valueLine)
	if err != nil {
		t.Fatalf("DecodeValueLine() error = %v", err)
	}
	if value != "value" {
		t.Errorf("DecodeValueLine() = %q, want %q", value, "value")
	}
}

func TestEncodeRm(t *testing.T) {
	headerLine, err := EncodeRm("key")
	if err != nil {
		t.Fatalf("EncodeRm() error = %v", err)
	}
	var hdr Header
	if err := jsonUnmarshalHeader(headerLine, &hdr); err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if hdr.Tag != TagRm || hdr.Key != "key" || hdr.ValueSize != 0 {
		t.Errorf("header = %+v, want {Rm key 0}", hdr)
	}
}

func TestScan(t *testing.T) {
	var buf bytes.Buffer
	setHeader, setValue, _ := EncodeSet("k1", "v1")
	buf.Write(setHeader)
	buf.Write(setValue)
	rmHeader, _ := EncodeRm("k1")
	buf.Write(rmHeader)

	rd := bufio.NewReader(bytes.NewReader(buf.Bytes()))

	rec, err := Scan(rd, 0)
	if err != nil {
		t.Fatalf("Scan() first record error = %v", err)
	}
	if rec.Header.Tag != TagSet || rec.Header.Key != "k1" {
		t.Errorf("first record header = %+v", rec.Header)
	}
	if rec.ValueOffset != int64(len(setHeader)) {
		t.Errorf("ValueOffset = %d, want %d", rec.ValueOffset, len(setHeader))
	}
	if rec.NextOffset != int64(len(setHeader)+len(setValue)) {
		t.Errorf("NextOffset = %d, want %d", rec.NextOffset, len(setHeader)+len(setValue))
	}

	rec2, err := Scan(rd, rec.NextOffset)
	if err != nil {
		t.Fatalf("Scan() second record error = %v", err)
	}
	if rec2.Header.Tag != TagRm || rec2.Header.Key != "k1" {
		t.Errorf("second record header = %+v", rec2.Header)
	}

	_, err = Scan(rd, rec2.NextOffset)
	if err != io.EOF {
		t.Errorf("Scan() at end = %v, want io.EOF", err)
	}
}

func TestScanTruncatedValue(t *testing.T) {
	headerLine, valueLine, _ := EncodeSet("k1", "a long value that gets cut short")
	var buf bytes.Buffer
	buf.Write(headerLine)
	buf.Write(valueLine[:len(valueLine)/2])

	rd := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	_, err := Scan(rd, 0)
	if err != io.ErrUnexpectedEOF {
		t.Errorf("Scan() on truncated value = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestScanTruncatedHeader(t *testing.T) {
	headerLine, _, _ := EncodeSet("k1", "v1")
	rd := bufio.NewReader(bytes.NewReader(headerLine[:len(headerLine)/2]))
	_, err := Scan(rd, 0)
	if err != io.ErrUnexpectedEOF {
		t.Errorf("Scan() on truncated header = %v, want io.ErrUnexpectedEOF", err)
	}
}

func jsonUnmarshalHeader(line []byte, hdr *Header) error {
	return json.Unmarshal(trimNewline(line), hdr)
}

func trimNewline(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\n' {
		return b[:len(b)-1]
	}
	return b
}
