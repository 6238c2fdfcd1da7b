package unary

import "time"

// Result classifies how a call ended.
type Result string

const (
	ResultOK             Result = "ok"
	ResultEncodeError    Result = "encode_error"
	ResultTransportError Result = "transport_error"
	ResultEmptyResponse  Result = "empty_response"
	ResultStatusError    Result = "status_error"
	ResultNoMessage      Result = "no_message"
	ResultDecodeError    Result = "decode_error"
)

// Observer is told about every finished call.
type Observer interface {
	ObserveCall(method string, result Result, elapsed time.Duration)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(method string, result Result, elapsed time.Duration)

// ObserveCall calls f.
func (f ObserverFunc) ObserveCall(method string, result Result, elapsed time.Duration) {
	f(method, result, elapsed)
}

type nopObserver struct{}

func (nopObserver) ObserveCall(string, Result, time.Duration) {}
