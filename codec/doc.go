// Package codec implements gRPC-Web frame encoding and decoding.
//
// The gRPC-Web protocol uses a simple framing format to transport messages:
//   - 1 byte: flags (bit 7 set = trailer frame, bit 0 = compressed)
//   - 4 bytes: big-endian message length
//   - N bytes: message payload
//
// A unary response body is zero or more message frames followed by one
// trailer frame. The trailer payload is an HTTP/1.1 style header block
// ("key: value\r\n" lines) carrying grpc-status and grpc-message.
//
// Example usage:
//
//	// Encoding a request body
//	body := codec.EncodeMessage(payload)
//
//	// Decoding a response body
//	message, trailer := codec.Decode(body)
//	if outcome := codec.Evaluate(trailer); !outcome.OK {
//	    return outcome.Err()
//	}
//
// DecodeFrames is the lower-level primitive: it returns every complete
// frame in a buffer plus any trailing bytes that do not form a complete frame.
package codec
