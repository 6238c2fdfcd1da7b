package codec

import (
	"strings"
)

// Trailer keys carrying call status.
const (
	KeyStatus  = "grpc-status"
	KeyMessage = "grpc-message"
)

// lineTerminator separates trailer lines.
const lineTerminator = "\r\n"

// Trailer is an ordered, case-insensitive key/value block parsed from a
// trailer frame. Keys are stored lower-cased in first-seen order; setting
// an existing key replaces its value in place.
//
// The zero value is an empty trailer ready to use.
type Trailer struct {
	keys   []string
	values map[string]string
}

// NewTrailer builds a trailer from alternating key, value arguments.
// A trailing key without a value is ignored.
func NewTrailer(pairs ...string) Trailer {
	var t Trailer
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Set(pairs[i], pairs[i+1])
	}
	return t
}

// Set stores value under the lower-cased key.
func (t *Trailer) Set(key, value string) {
	key = strings.ToLower(key)
	if t.values == nil {
		t.values = make(map[string]string)
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// Get looks up key case-insensitively.
func (t Trailer) Get(key string) (string, bool) {
	v, ok := t.values[strings.ToLower(key)]
	return v, ok
}

// Value returns the value for key, or "" when absent.
func (t Trailer) Value(key string) string {
	v, _ := t.Get(key)
	return v
}

// Len returns the number of distinct keys.
func (t Trailer) Len() int {
	return len(t.keys)
}

// Keys returns the keys in first-seen order.
func (t Trailer) Keys() []string {
	keys := make([]string, len(t.keys))
	copy(keys, t.keys)
	return keys
}

// Merge copies every entry of other into t; other wins on conflicts.
func (t *Trailer) Merge(other Trailer) {
	for _, key := range other.keys {
		t.Set(key, other.values[key])
	}
}

// Map returns a copy of the trailer as a plain map.
func (t Trailer) Map() map[string]string {
	m := make(map[string]string, len(t.keys))
	for _, key := range t.keys {
		m[key] = t.values[key]
	}
	return m
}

// Encode renders the trailer as "key: value\r\n" lines in key order.
func (t Trailer) Encode() []byte {
	var sb strings.Builder
	for _, key := range t.keys {
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(t.values[key])
		sb.WriteString(lineTerminator)
	}
	return []byte(sb.String())
}

// ParseTrailers parses trailer frame data.
// Expects HTTP/1.1 header format: "key1: value1\r\nkey2: value2\r\n".
// Lines without a colon are skipped; the last duplicate key wins.
func ParseTrailers(data []byte) Trailer {
	var trailer Trailer

	for _, line := range strings.Split(string(data), lineTerminator) {
		if strings.TrimSpace(line) == "" {
			continue
		}

		colonIndex := strings.Index(line, ":")
		if colonIndex == -1 {
			continue
		}

		key := strings.TrimSpace(line[:colonIndex])
		value := strings.TrimSpace(line[colonIndex+1:])

		trailer.Set(key, value)
	}

	return trailer
}
