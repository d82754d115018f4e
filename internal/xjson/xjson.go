// Package xjson is the single JSON codec import site for the module.
package xjson

import (
	stdjson "encoding/json"
	"io"

	gjson "github.com/goccy/go-json"
)

// Wrappers around goccy/go-json so callers never import a codec directly.

func Marshal(v any) ([]byte, error) {
	return gjson.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return gjson.Unmarshal(data, v)
}

// NewDecoder returns a streaming decoder reading from r.
func NewDecoder(r io.Reader) *gjson.Decoder {
	return gjson.NewDecoder(r)
}

// NewEncoder returns a streaming encoder writing to w.
func NewEncoder(w io.Writer) *gjson.Encoder {
	return gjson.NewEncoder(w)
}

// RawMessage is kept compatible with encoding/json's RawMessage type.
type RawMessage = stdjson.RawMessage

// Number is kept compatible with encoding/json's Number type.
type Number = stdjson.Number
