// Package turn converts raw interpreter output into structured
// responses, one per command/reply exchange.
package turn

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Operation tags a response with the kind of command that produced it.
type Operation string

const (
	OpAction  Operation = "action"
	OpStart   Operation = "start"
	OpSave    Operation = "save"
	OpRestore Operation = "restore"
	OpScore   Operation = "score"
	OpQuit    Operation = "quit"
)

// Detail is one extracted key/value pair. Details keep the order they
// were extracted in.
type Detail struct {
	Key   string
	Value any
}

// Response is the structured result of one turn. Output is always the
// full cleaned reply, even when no details were recognized; Details
// never contains fabricated values. A Response is immutable once
// produced.
type Response struct {
	Input     string
	Output    string
	Operation Operation
	Success   bool
	Message   string
	Details   []Detail
}

// Detail returns the value extracted under key, if any.
func (r *Response) Detail(key string) (any, bool) {
	for _, d := range r.Details {
		if d.Key == key {
			return d.Value, true
		}
	}
	return nil, false
}

// IsAction reports whether this response came from a plain game action
// rather than a session-level operation.
func (r *Response) IsAction() bool {
	return r.Operation == OpAction || r.Operation == OpStart
}

// MarshalJSON writes the response as a flat record, preserving detail
// order.
func (r *Response) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := writeField("input", r.Input); err != nil {
		return nil, err
	}
	if err := writeField("raw_output", r.Output); err != nil {
		return nil, err
	}
	if err := writeField("operation", string(r.Operation)); err != nil {
		return nil, err
	}
	if err := writeField("success", r.Success); err != nil {
		return nil, err
	}
	if r.Message != "" {
		if err := writeField("message", r.Message); err != nil {
			return nil, err
		}
	}
	for _, d := range r.Details {
		if err := writeField(d.Key, d.Value); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
