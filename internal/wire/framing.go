package wire

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
)

// ReadRequest reads one newline-terminated line from rd and decodes it as
// a Request.
func ReadRequest(rd *bufio.Reader) (Request, error) {
	line, err := readLine(rd)
	if err != nil {
		return Request{}, err
	}
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// WriteRequest encodes req as one JSON line and writes it to wr.
func WriteRequest(wr io.Writer, req Request) error {
	return writeLine(wr, req)
}

// ReadReply reads one newline-terminated line from rd and decodes it as a
// Reply.
func ReadReply(rd *bufio.Reader) (Reply, error) {
	line, err := readLine(rd)
	if err != nil {
		return Reply{}, err
	}
	var rep Reply
	if err := json.Unmarshal([]byte(line), &rep); err != nil {
		return Reply{}, err
	}
	return rep, nil
}

// WriteReply encodes rep as one JSON line and writes it to wr.
func WriteReply(wr io.Writer, rep Reply) error {
	return writeLine(wr, rep)
}

func readLine(rd *bufio.Reader) (string, error) {
	line, err := rd.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" && err == io.EOF {
		return "", io.EOF
	}
	return line, nil
}

func writeLine(wr io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: encode: %w", err)
	}
	data = append(data, '\n')
	_, err = wr.Write(data)
	return err
}
