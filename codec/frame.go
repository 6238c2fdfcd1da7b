package codec

import (
	"encoding/binary"
)

const (
	// FlagData marks an uncompressed message frame
	FlagData byte = 0x00
	// FlagCompressed marks a compressed message frame. Compression is not
	// negotiated by this package; the bit is carried through untouched.
	FlagCompressed byte = 0x01
	// FlagTrailer marks a trailer frame (bit 7)
	FlagTrailer byte = 0x80
	// HeaderSize is the size of the frame header (1 byte flags + 4 bytes length)
	HeaderSize = 5
)

// Frame represents a gRPC-Web frame
type Frame struct {
	Flags byte
	Data  []byte
}

// IsTrailer reports whether bit 7 of the flags is set.
func (f Frame) IsTrailer() bool {
	return f.Flags&FlagTrailer != 0
}

// EncodeFrame encodes a single frame into gRPC-Web format
func EncodeFrame(frame Frame) []byte {
	messageLength := len(frame.Data)
	buffer := make([]byte, HeaderSize+messageLength)

	buffer[0] = frame.Flags
	binary.BigEndian.PutUint32(buffer[1:5], uint32(messageLength))
	copy(buffer[HeaderSize:], frame.Data)

	return buffer
}

// EncodeMessage frames a serialized message as a single uncompressed
// message frame. This is the request body of a unary call.
func EncodeMessage(payload []byte) []byte {
	return EncodeFrame(CreateDataFrame(payload))
}

// DecodeResult contains the result of decoding frames
type DecodeResult struct {
	Frames    []Frame
	Remaining []byte
}

// DecodeFrames decodes frames from buffer (may contain multiple frames or partial frames).
// Returns decoded frames and any remaining bytes that don't form a complete frame.
func DecodeFrames(buffer []byte) DecodeResult {
	frames := []Frame{}
	offset := 0
	bufferLen := len(buffer)

	for offset < bufferLen {
		if offset+HeaderSize > bufferLen {
			return DecodeResult{
				Frames:    frames,
				Remaining: buffer[offset:],
			}
		}

		flags := buffer[offset]
		messageLength := binary.BigEndian.Uint32(buffer[offset+1 : offset+5])

		// Compare in uint64 so a huge declared length cannot overflow int.
		if uint64(messageLength) > uint64(bufferLen-offset-HeaderSize) {
			return DecodeResult{
				Frames:    frames,
				Remaining: buffer[offset:],
			}
		}
		frameEnd := offset + HeaderSize + int(messageLength)

		// Copy so frames never alias the caller's buffer
		data := make([]byte, messageLength)
		copy(data, buffer[offset+HeaderSize:frameEnd])

		frames = append(frames, Frame{
			Flags: flags,
			Data:  data,
		})

		offset = frameEnd
	}

	return DecodeResult{
		Frames:    frames,
		Remaining: []byte{},
	}
}

// Decode splits a unary response body into its message payload and trailer.
//
// Scanning stops silently at the first truncated frame. Trailer frames are
// merged in order, so the last occurrence of a key wins. If more than one
// message frame is present the last one is returned. The returned message
// is nil when the body carried no message frame at all, and a non-nil empty
// slice when it carried a zero-length one.
func Decode(buffer []byte) ([]byte, Trailer) {
	var (
		message []byte
		trailer Trailer
	)

	for _, frame := range DecodeFrames(buffer).Frames {
		if frame.IsTrailer() {
			trailer.Merge(ParseTrailers(frame.Data))
			continue
		}
		message = frame.Data
	}

	return message, trailer
}

// CreateDataFrame creates a data frame
func CreateDataFrame(data []byte) Frame {
	return Frame{
		Flags: FlagData,
		Data:  data,
	}
}

// CreateTrailerFrame creates a trailer frame from trailer metadata.
// Trailers are encoded as HTTP/1.1 headers format:
// "key1: value1\r\nkey2: value2\r\n"
func CreateTrailerFrame(trailer Trailer) Frame {
	return Frame{
		Flags: FlagTrailer,
		Data:  trailer.Encode(),
	}
}
