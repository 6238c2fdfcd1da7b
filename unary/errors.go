package unary

import (
	"errors"
	"fmt"
)

// Framing failures. The server answered, but not with usable data.
var (
	// ErrEmptyResponse means the response body had zero bytes. Servers
	// always emit at least a trailer frame.
	ErrEmptyResponse = errors.New("unary: empty response")
	// ErrNoMessage means the call succeeded but carried no message frame.
	ErrNoMessage = errors.New("unary: no message data in response")
)

// TransportError means the exchange itself did not complete with a 2xx
// outcome. Either StatusCode/Status are set (the peer answered with a
// non-success status) or Err is set (the round trip failed).
type TransportError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error: HTTP %d %s", e.StatusCode, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsFraming reports whether err is ErrEmptyResponse or ErrNoMessage.
func IsFraming(err error) bool {
	return errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrNoMessage)
}
