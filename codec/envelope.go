package codec

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// Envelopes carry a gRPC-Web exchange over a message-oriented channel
// (a WebRTC DataChannel) where there is no HTTP request line or headers.
//
// Request format:
//   - 4 bytes: path length (big-endian)
//   - N bytes: path string (UTF-8)
//   - 4 bytes: headers length (big-endian)
//   - M bytes: headers as JSON object
//   - Rest: gRPC-Web frames (one message frame)
//
// Response format:
//   - 4 bytes: headers length (big-endian)
//   - N bytes: headers as JSON object
//   - Rest: gRPC-Web frames (message frames + trailer frame)

// lengthSize is the size of an envelope length prefix.
const lengthSize = 4

var (
	ErrShortEnvelope   = errors.New("codec: envelope too short")
	ErrMissingPath     = errors.New("codec: envelope missing path")
	ErrMissingHeaders  = errors.New("codec: envelope missing headers")
	ErrUnexpectedFrame = errors.New("codec: unexpected frame in request")
)

// RequestEnvelope is sent from client to server
type RequestEnvelope struct {
	Path    string            // Full method path, e.g., "/package.Service/Method"
	Headers map[string]string // Request headers (metadata)
	Body    []byte            // gRPC-Web framed request body
}

// ResponseEnvelope is received from server
type ResponseEnvelope struct {
	Headers map[string]string // Response headers
	Body    []byte            // gRPC-Web frames: message frames then a trailer frame
}

// EncodeRequest encodes a request envelope.
func EncodeRequest(envelope RequestEnvelope) ([]byte, error) {
	headersJSON, err := marshalHeaders(envelope.Headers)
	if err != nil {
		return nil, err
	}

	path := []byte(envelope.Path)
	buffer := make([]byte, 0, 2*lengthSize+len(path)+len(headersJSON)+len(envelope.Body))
	buffer = appendPrefixed(buffer, path)
	buffer = appendPrefixed(buffer, headersJSON)
	buffer = append(buffer, envelope.Body...)

	return buffer, nil
}

// DecodeRequest decodes a request envelope. The body must consist of
// exactly one complete message frame.
func DecodeRequest(data []byte) (*RequestEnvelope, error) {
	if len(data) < 2*lengthSize {
		return nil, ErrShortEnvelope
	}

	path, rest, ok := readPrefixed(data)
	if !ok {
		return nil, ErrMissingPath
	}

	headersJSON, body, ok := readPrefixed(rest)
	if !ok {
		return nil, ErrMissingHeaders
	}

	headers, err := unmarshalHeaders(headersJSON)
	if err != nil {
		return nil, err
	}

	result := DecodeFrames(body)
	if len(result.Remaining) > 0 {
		return nil, fmt.Errorf("codec: partial frame in request (%d bytes)", len(result.Remaining))
	}
	if len(result.Frames) != 1 || result.Frames[0].IsTrailer() {
		return nil, ErrUnexpectedFrame
	}

	return &RequestEnvelope{
		Path:    string(path),
		Headers: headers,
		Body:    body,
	}, nil
}

// EncodeResponse encodes a response envelope.
func EncodeResponse(envelope ResponseEnvelope) ([]byte, error) {
	headersJSON, err := marshalHeaders(envelope.Headers)
	if err != nil {
		return nil, err
	}

	buffer := make([]byte, 0, lengthSize+len(headersJSON)+len(envelope.Body))
	buffer = appendPrefixed(buffer, headersJSON)
	buffer = append(buffer, envelope.Body...)

	return buffer, nil
}

// DecodeResponse decodes a response envelope. Frame contents are not
// inspected; use Decode on the body.
func DecodeResponse(data []byte) (*ResponseEnvelope, error) {
	if len(data) < lengthSize {
		return nil, ErrShortEnvelope
	}

	headersJSON, body, ok := readPrefixed(data)
	if !ok {
		return nil, ErrMissingHeaders
	}

	headers, err := unmarshalHeaders(headersJSON)
	if err != nil {
		return nil, err
	}

	return &ResponseEnvelope{
		Headers: headers,
		Body:    body,
	}, nil
}

func appendPrefixed(buffer, data []byte) []byte {
	buffer = binary.BigEndian.AppendUint32(buffer, uint32(len(data)))
	return append(buffer, data...)
}

func readPrefixed(data []byte) (field, rest []byte, ok bool) {
	if len(data) < lengthSize {
		return nil, nil, false
	}
	n := binary.BigEndian.Uint32(data[:lengthSize])
	if uint64(n) > uint64(len(data)-lengthSize) {
		return nil, nil, false
	}
	end := lengthSize + int(n)
	return data[lengthSize:end], data[end:], true
}

func marshalHeaders(headers map[string]string) ([]byte, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	data, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal headers: %w", err)
	}
	return data, nil
}

func unmarshalHeaders(data []byte) (map[string]string, error) {
	headers := map[string]string{}
	if err := json.Unmarshal(data, &headers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
	}
	return headers, nil
}
