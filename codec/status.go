package codec

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// StatusCode represents gRPC status codes
const (
	StatusOK                 = 0
	StatusCancelled          = 1
	StatusUnknown            = 2
	StatusInvalidArgument    = 3
	StatusDeadlineExceeded   = 4
	StatusNotFound           = 5
	StatusAlreadyExists      = 6
	StatusPermissionDenied   = 7
	StatusResourceExhausted  = 8
	StatusFailedPrecondition = 9
	StatusAborted            = 10
	StatusOutOfRange         = 11
	StatusUnimplemented      = 12
	StatusInternal           = 13
	StatusUnavailable        = 14
	StatusDataLoss           = 15
	StatusUnauthenticated    = 16
)

// statusOKValue is the grpc-status value that means success.
const statusOKValue = "0"

// GRPCError represents a gRPC error with code and message
type GRPCError struct {
	Code    int
	Message string
}

// Error implements the error interface
func (e *GRPCError) Error() string {
	return fmt.Sprintf("gRPC error %d (%s): %s", e.Code, StatusName(e.Code), e.Message)
}

// NewError returns a *GRPCError with a formatted message.
func NewError(code int, format string, args ...any) *GRPCError {
	return &GRPCError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ToGRPCError converts err to a *GRPCError. Errors that are not already
// gRPC errors become INTERNAL.
func ToGRPCError(err error) *GRPCError {
	if err == nil {
		return nil
	}
	var grpcErr *GRPCError
	if errors.As(err, &grpcErr) {
		return grpcErr
	}
	return &GRPCError{Code: StatusInternal, Message: err.Error()}
}

// Outcome is the status decision taken from a trailer.
type Outcome struct {
	OK      bool
	Code    int
	Message string
}

// Err returns the outcome as a *GRPCError, or nil on success.
func (o Outcome) Err() error {
	if o.OK {
		return nil
	}
	return &GRPCError{Code: o.Code, Message: o.Message}
}

// Evaluate decides the call status from a trailer. A missing grpc-status,
// or one equal to "0", is success. Any other value is a failure; a value
// that is not an integer is reported as UNKNOWN. The grpc-message value is
// percent-decoded when it is valid percent-encoding and kept verbatim
// otherwise.
func Evaluate(trailer Trailer) Outcome {
	status, ok := trailer.Get(KeyStatus)
	if !ok || status == statusOKValue {
		return Outcome{OK: true, Code: StatusOK}
	}

	code, err := strconv.Atoi(status)
	if err != nil {
		code = StatusUnknown
	}

	return Outcome{
		Code:    code,
		Message: DecodeStatusMessage(trailer.Value(KeyMessage)),
	}
}

// DecodeStatusMessage percent-decodes a grpc-message value.
func DecodeStatusMessage(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// EncodeStatusMessage percent-encodes a grpc-message value.
func EncodeStatusMessage(message string) string {
	return url.PathEscape(message)
}

// StatusTrailer builds the trailer a server emits for the given status.
func StatusTrailer(code int, message string) Trailer {
	trailer := NewTrailer(KeyStatus, strconv.Itoa(code))
	if message != "" {
		trailer.Set(KeyMessage, EncodeStatusMessage(message))
	}
	return trailer
}

// StatusName returns the canonical name for a status code
func StatusName(code int) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusCancelled:
		return "CANCELLED"
	case StatusUnknown:
		return "UNKNOWN"
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusDeadlineExceeded:
		return "DEADLINE_EXCEEDED"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusAlreadyExists:
		return "ALREADY_EXISTS"
	case StatusPermissionDenied:
		return "PERMISSION_DENIED"
	case StatusResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case StatusFailedPrecondition:
		return "FAILED_PRECONDITION"
	case StatusAborted:
		return "ABORTED"
	case StatusOutOfRange:
		return "OUT_OF_RANGE"
	case StatusUnimplemented:
		return "UNIMPLEMENTED"
	case StatusInternal:
		return "INTERNAL"
	case StatusUnavailable:
		return "UNAVAILABLE"
	case StatusDataLoss:
		return "DATA_LOSS"
	case StatusUnauthenticated:
		return "UNAUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}
