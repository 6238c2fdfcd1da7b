// Package marshal provides request/response codecs for the common payload
// encodings. Every function matches the unary.EncodeFunc / unary.DecodeFunc
// shape once instantiated, e.g. marshal.EncodeJSON[EntityRequest].
package marshal

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// EncodeJSON serializes v as JSON.
func EncodeJSON[T any](v T) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeJSON deserializes JSON into a T. Zero bytes decode to the zero T,
// which lets intentionally empty responses through.
func DecodeJSON[T any](data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("invalid JSON payload: %w", err)
	}
	return v, nil
}

// EncodeProto serializes a protobuf message in binary wire format.
func EncodeProto[T proto.Message](m T) ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeProto returns a decoder that unmarshals into a fresh message
// from newMessage.
func DecodeProto[T proto.Message](newMessage func() T) func([]byte) (T, error) {
	return func(data []byte) (T, error) {
		m := newMessage()
		if err := proto.Unmarshal(data, m); err != nil {
			return m, fmt.Errorf("invalid protobuf payload: %w", err)
		}
		return m, nil
	}
}
