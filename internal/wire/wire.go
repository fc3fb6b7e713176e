// Package wire defines the request/reply line protocol that fronts the
// engine: one UTF-8 JSON value per line, newline terminated, over TCP.
package wire

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Op names one of the four request variants. The string values match the
// externally-tagged JSON keys used on the wire.
type Op string

const (
	OpGet      Op = "Get"
	OpSet      Op = "Set"
	OpRm       Op = "Rm"
	OpShutdown Op = "Shutdown"
)

// Request is the tagged sum {Get(key), Set(key,value), Rm(key), Shutdown}.
// Its JSON form is externally tagged with the variant name as key and a
// positional payload: {"Get":"k"}, {"Set":["k","v"]}, {"Rm":"k"}, or the
// bare string "Shutdown".
type Request struct {
	Op    Op
	Key   string
	Value string
}

// Get builds a Get(key) request.
func Get(key string) Request { return Request{Op: OpGet, Key: key} }

// Set builds a Set(key,value) request.
func Set(key, value string) Request { return Request{Op: OpSet, Key: key, Value: value} }

// Rm builds a Rm(key) request.
func Rm(key string) Request { return Request{Op: OpRm, Key: key} }

// Shutdown builds the control request that drains and stops the server.
func Shutdown() Request { return Request{Op: OpShutdown} }

// MarshalJSON encodes r in serde's externally-tagged enum form.
func (r Request) MarshalJSON() ([]byte, error) {
	switch r.Op {
	case OpGet:
		return json.Marshal(map[string]string{"Get": r.Key})
	case OpSet:
		return json.Marshal(map[string][2]string{"Set": {r.Key, r.Value}})
	case OpRm:
		return json.Marshal(map[string]string{"Rm": r.Key})
	case OpShutdown:
		return json.Marshal("Shutdown")
	default:
		return nil, fmt.Errorf("wire: unknown request op %q", r.Op)
	}
}

// UnmarshalJSON decodes r from either the bare "Shutdown" string or one of
// the {"Get":...}/{"Set":...}/{"Rm":...} object forms.
func (r *Request) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if asString != string(OpShutdown) {
			return fmt.Errorf("wire: unknown request variant %q", asString)
		}
		*r = Shutdown()
		return nil
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("wire: malformed request: %w", err)
	}
	if len(asObject) != 1 {
		return fmt.Errorf("wire: request object must have exactly one variant key, got %d", len(asObject))
	}

	for key, payload := range asObject {
		switch Op(key) {
		case OpGet:
			var k string
			if err := json.Unmarshal(payload, &k); err != nil {
				return fmt.Errorf("wire: malformed Get payload: %w", err)
			}
			*r = Get(k)
		case OpRm:
			var k string
			if err := json.Unmarshal(payload, &k); err != nil {
				return fmt.Errorf("wire: malformed Rm payload: %w", err)
			}
			*r = Rm(k)
		case OpSet:
			var kv [2]string
			if err := json.Unmarshal(payload, &kv); err != nil {
				return fmt.Errorf("wire: malformed Set payload: %w", err)
			}
			*r = Set(kv[0], kv[1])
		default:
			return fmt.Errorf("wire: unknown request variant %q", key)
		}
	}
	return nil
}

// Reply wraps a Result<Option<string>, string>-shaped value: either
// {"Ok": <optional string>} on success or {"Err": <string>} on failure.
type Reply struct {
	Ok      bool
	Value   *string
	ErrText string
}

// OkReply builds a successful reply carrying an optional string result.
func OkReply(value *string) Reply { return Reply{Ok: true, Value: value} }

// ErrReply builds a failed reply carrying a display-formatted message.
func ErrReply(msg string) Reply { return Reply{Ok: false, ErrText: msg} }

type replyWire struct {
	Ok  *string `json:"Ok,omitempty"`
	Err *string `json:"Err,omitempty"`
}

// MarshalJSON encodes r as {"Ok":...} or {"Err":...}.
func (r Reply) MarshalJSON() ([]byte, error) {
	if r.Ok {
		return json.Marshal(map[string]*string{"Ok": r.Value})
	}
	errText := r.ErrText
	return json.Marshal(map[string]*string{"Err": &errText})
}

// UnmarshalJSON decodes r from {"Ok":...} or {"Err":...}.
func (r *Reply) UnmarshalJSON(data []byte) error {
	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("wire: malformed reply: %w", err)
	}
	if raw, ok := asObject["Ok"]; ok {
		var value *string
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("wire: malformed Ok payload: %w", err)
		}
		*r = OkReply(value)
		return nil
	}
	if raw, ok := asObject["Err"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("wire: malformed Err payload: %w", err)
		}
		*r = ErrReply(msg)
		return nil
	}
	return fmt.Errorf("wire: reply object must have an Ok or Err key")
}
