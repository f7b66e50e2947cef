package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CodeSuccess is the envelope code the backend uses for a successful call
const CodeSuccess = "1"

// Code is the envelope status sentinel. The backend sends it as a string,
// but a bare JSON number is accepted too.
type Code string

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("envelope code must be a string or number: %w", err)
	}
	*c = Code(n.String())
	return nil
}

// Envelope is the wrapper every endpoint responds with
type Envelope struct {
	Code    Code            `json:"code"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// OK reports whether the envelope carries the success code
func (e *Envelope) OK() bool {
	return e != nil && e.Code == CodeSuccess
}

// Err returns nil for a successful envelope and an *EnvelopeError otherwise
func (e *Envelope) Err() error {
	if e.OK() {
		return nil
	}
	if e == nil {
		return &EnvelopeError{}
	}
	return &EnvelopeError{Code: string(e.Code), Message: e.Message}
}

// HasData reports whether data is present and not JSON null
func (e *Envelope) HasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeData unmarshals the data payload into v
func (e *Envelope) DecodeData(v any) error {
	if !e.HasData() {
		return fmt.Errorf("envelope has no data")
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode envelope data: %w", err)
	}
	return nil
}

// DataString returns data as a string. Scalars other than strings are
// rendered as their JSON text, which covers numeric ids.
func (e *Envelope) DataString() (string, error) {
	if !e.HasData() {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil {
		return s, nil
	}
	trimmed := bytes.TrimSpace(e.Data)
	switch trimmed[0] {
	case '{', '[':
		return "", fmt.Errorf("envelope data is not a scalar")
	}
	return string(trimmed), nil
}
