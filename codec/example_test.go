package codec_test

import (
	"fmt"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
)

func ExampleEncodeMessage() {
	encoded := codec.EncodeMessage([]byte("Hello, gRPC-Web!"))

	fmt.Printf("Encoded frame size: %d bytes\n", len(encoded))
	fmt.Printf("Frame header size: %d bytes\n", codec.HeaderSize)
	// Output:
	// Encoded frame size: 21 bytes
	// Frame header size: 5 bytes
}

func ExampleDecodeFrames() {
	data := []byte{0x00, 0x00, 0x00, 0x00, 0x05, 'h', 'e', 'l', 'l', 'o'}

	result := codec.DecodeFrames(data)

	fmt.Printf("Decoded %d frame(s)\n", len(result.Frames))
	if len(result.Frames) > 0 {
		fmt.Printf("First frame data: %s\n", string(result.Frames[0].Data))
	}
	fmt.Printf("Remaining bytes: %d\n", len(result.Remaining))
	// Output:
	// Decoded 1 frame(s)
	// First frame data: hello
	// Remaining bytes: 0
}

func ExampleDecodeFrames_partial() {
	partialData := []byte{0x00, 0x00, 0x00}

	result := codec.DecodeFrames(partialData)

	fmt.Printf("Decoded %d frame(s)\n", len(result.Frames))
	fmt.Printf("Remaining bytes: %d\n", len(result.Remaining))
	// Output:
	// Decoded 0 frame(s)
	// Remaining bytes: 3
}

func ExampleCreateTrailerFrame() {
	frame := codec.CreateTrailerFrame(codec.NewTrailer("grpc-status", "0", "grpc-message", "OK"))

	fmt.Printf("Trailer frame flags: 0x%02x\n", frame.Flags)
	fmt.Printf("Trailer text: %q\n", frame.Data)
	// Output:
	// Trailer frame flags: 0x80
	// Trailer text: "grpc-status: 0\r\ngrpc-message: OK\r\n"
}

func ExampleParseTrailers() {
	trailerData := []byte("grpc-status: 0\r\nGrpc-Message: Success\r\n")

	trailers := codec.ParseTrailers(trailerData)

	fmt.Printf("grpc-status: %s\n", trailers.Value("grpc-status"))
	fmt.Printf("grpc-message: %s\n", trailers.Value("grpc-message"))
	// Output:
	// grpc-status: 0
	// grpc-message: Success
}

func ExampleDecode() {
	body := append(
		codec.EncodeMessage([]byte("payload")),
		codec.EncodeFrame(codec.CreateTrailerFrame(codec.StatusTrailer(codec.StatusNotFound, "Not Found")))...,
	)

	message, trailer := codec.Decode(body)
	outcome := codec.Evaluate(trailer)

	fmt.Printf("message: %s\n", message)
	fmt.Printf("ok: %t code: %d message: %s\n", outcome.OK, outcome.Code, outcome.Message)
	// Output:
	// message: payload
	// ok: false code: 5 message: Not Found
}

func Example_streamProcessing() {
	// Data that arrives in chunks
	var buffer []byte

	buffer = append(buffer, 0x00, 0x00)
	result := codec.DecodeFrames(buffer)
	fmt.Printf("After chunk 1: %d frames, %d remaining\n", len(result.Frames), len(result.Remaining))
	buffer = result.Remaining

	buffer = append(buffer, 0x00, 0x00, 0x05, 'h', 'e')
	result = codec.DecodeFrames(buffer)
	fmt.Printf("After chunk 2: %d frames, %d remaining\n", len(result.Frames), len(result.Remaining))
	buffer = result.Remaining

	buffer = append(buffer, 'l', 'l', 'o')
	result = codec.DecodeFrames(buffer)
	fmt.Printf("After chunk 3: %d frames, %d remaining\n", len(result.Frames), len(result.Remaining))
	if len(result.Frames) > 0 {
		fmt.Printf("Message: %s\n", string(result.Frames[0].Data))
	}

	// Output:
	// After chunk 1: 0 frames, 2 remaining
	// After chunk 2: 0 frames, 7 remaining
	// After chunk 3: 1 frames, 0 remaining
	// Message: hello
}
