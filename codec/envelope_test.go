package codec

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestDecodeRequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name:    "too short",
			data:    []byte{0x00, 0x00},
			wantErr: ErrShortEnvelope,
		},
		{
			name:    "missing path",
			data:    []byte{0x00, 0x00, 0x00, 0x0A, 0x00, 0x00, 0x00, 0x00}, // path length = 10
			wantErr: ErrMissingPath,
		},
		{
			name:    "missing headers",
			data:    []byte{0x00, 0x00, 0x00, 0x01, '/', 0x00, 0x00, 0x00, 0x09, '{'},
			wantErr: ErrMissingHeaders,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeRequest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeRequestFrameChecks(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "no frames", body: nil},
		{name: "trailer instead of message", body: EncodeFrame(CreateTrailerFrame(NewTrailer(KeyStatus, "0")))},
		{name: "two messages", body: append(EncodeMessage([]byte("a")), EncodeMessage([]byte("b"))...)},
		{name: "partial frame", body: EncodeMessage([]byte("abc"))[:6]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeRequest(RequestEnvelope{Path: "/a.B/C", Body: tt.body})
			if err != nil {
				t.Fatalf("EncodeRequest() error = %v", err)
			}
			if _, err := DecodeRequest(data); err == nil {
				t.Error("DecodeRequest() error = nil, want error")
			}
		})
	}
}

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		envelope RequestEnvelope
	}{
		{
			name: "basic request",
			envelope: RequestEnvelope{
				Path:    "/test.Service/Method",
				Headers: map[string]string{"content-type": "application/grpc-web"},
				Body:    EncodeMessage([]byte("test message")),
			},
		},
		{
			name: "empty headers",
			envelope: RequestEnvelope{
				Path:    "/package.Service/Method",
				Headers: map[string]string{},
				Body:    EncodeMessage([]byte("data")),
			},
		},
		{
			name: "multiple headers",
			envelope: RequestEnvelope{
				Path: "/api.v1.Service/Create",
				Headers: map[string]string{
					"authorization": "Bearer xyz",
					"content-type":  "application/grpc-web+proto",
					"x-request-id":  "abc",
				},
				Body: EncodeMessage([]byte{0x01, 0x02, 0x03, 0x04}),
			},
		},
		{
			name: "unicode path",
			envelope: RequestEnvelope{
				Path:    "/テスト.Service/メソッド",
				Headers: map[string]string{"key": "value"},
				Body:    EncodeMessage([]byte("test")),
			},
		},
		{
			name: "large message",
			envelope: RequestEnvelope{
				Path:    "/test.Service/Method",
				Headers: map[string]string{"key": "value"},
				Body:    EncodeMessage(make([]byte, 10000)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeRequest(tt.envelope)
			if err != nil {
				t.Fatalf("EncodeRequest() error = %v", err)
			}

			decoded, err := DecodeRequest(encoded)
			if err != nil {
				t.Fatalf("DecodeRequest() error = %v", err)
			}

			if decoded.Path != tt.envelope.Path {
				t.Errorf("Path mismatch: got %v, want %v", decoded.Path, tt.envelope.Path)
			}
			if !reflect.DeepEqual(decoded.Headers, tt.envelope.Headers) {
				t.Errorf("Headers mismatch: got %v, want %v", decoded.Headers, tt.envelope.Headers)
			}
			if !bytes.Equal(decoded.Body, tt.envelope.Body) {
				t.Errorf("Body mismatch: got %v, want %v", decoded.Body, tt.envelope.Body)
			}
		})
	}
}

func TestRequestNilHeaders(t *testing.T) {
	encoded, err := EncodeRequest(RequestEnvelope{Path: "/a.B/C", Body: EncodeMessage(nil)})
	if err != nil {
		t.Fatalf("EncodeRequest() error = %v", err)
	}

	decoded, err := DecodeRequest(encoded)
	if err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}
	if decoded.Headers == nil || len(decoded.Headers) != 0 {
		t.Errorf("Headers = %v, want empty map", decoded.Headers)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	body := append(
		EncodeMessage([]byte("response message")),
		EncodeFrame(CreateTrailerFrame(StatusTrailer(StatusOK, "")))...,
	)
	envelope := ResponseEnvelope{
		Headers: map[string]string{"x-request-id": "req-1"},
		Body:    body,
	}

	encoded, err := EncodeResponse(envelope)
	if err != nil {
		t.Fatalf("EncodeResponse() error = %v", err)
	}

	decoded, err := DecodeResponse(encoded)
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if decoded.Headers["x-request-id"] != "req-1" {
		t.Errorf("Headers = %v", decoded.Headers)
	}

	message, trailer := Decode(decoded.Body)
	if string(message) != "response message" {
		t.Errorf("message = %q", message)
	}
	if !Evaluate(trailer).OK {
		t.Errorf("trailer = %v, want OK", trailer.Map())
	}
}

func TestDecodeResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "too short", data: []byte{0x00}},
		{name: "missing headers", data: []byte{0x00, 0x00, 0x00, 0x05, '{'}},
		{name: "bad json", data: []byte{0x00, 0x00, 0x00, 0x01, '['}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeResponse(tt.data); err == nil {
				t.Error("DecodeResponse() error = nil, want error")
			}
		})
	}
}
