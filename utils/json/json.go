// Package json wraps encoding/json with the encoder settings used across the module.
package json

import (
	"bytes"
	"encoding/json"
	"io"
)

// Marshal marshals the value to json data without escaping &, <, and >.
func Marshal(v interface{}) ([]byte, error) {
	return Marshal2(v, false)
}

// Marshal2 marshals the value, optionally escaping HTML characters as \u0026, \u003c and \u003e.
func Marshal2(v interface{}, escapeHTML bool) ([]byte, error) {
	var byteBuf bytes.Buffer
	encoder := json.NewEncoder(&byteBuf)
	encoder.SetEscapeHTML(escapeHTML)
	err := encoder.Encode(v)
	if err == nil && byteBuf.Len() > 0 {
		return byteBuf.Bytes()[:byteBuf.Len()-1], err
	}
	return byteBuf.Bytes(), err
}

// Unmarshal json data to struct
func Unmarshal(b []byte, m interface{}) error {
	return json.Unmarshal(b, m)
}

// DecodeArgs decodes a json array into raw values, keeping numbers as json.Number
// so they can be converted to the exact parameter type later.
func DecodeArgs(r io.Reader) ([]interface{}, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	var args []interface{}
	if err := decoder.Decode(&args); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	return args, nil
}
