package trading

import "strconv"

// ReturnCode is the immediate status of a request handed to the native API.
type ReturnCode int

const (
	ReturnNotConnected   ReturnCode = -1
	ReturnTooManyPending ReturnCode = -2
	ReturnRateExceeded   ReturnCode = -3
)

var returnCodeMapping = map[ReturnCode]string{
	ReturnNotConnected:   "network connection failed",
	ReturnTooManyPending: "unanswered requests exceed the permitted number",
	ReturnRateExceeded:   "requests per second exceed the permitted number",
}

func (rc ReturnCode) String() string {
	if msg, ok := returnCodeMapping[rc]; ok {
		return msg
	}
	panic("invalid return code string conversion: " + strconv.Itoa(int(rc)))
}

// ImmediateRejectionError is a request refused synchronously by the native API.
type ImmediateRejectionError struct {
	Code ReturnCode
}

func (e *ImmediateRejectionError) Error() string {
	return e.Code.String()
}

// translateReturnCode maps the status returned by a request call.
// Codes outside the known set break the API contract and panic.
func translateReturnCode(code int) error {
	if code == 0 {
		return nil
	}
	rc := ReturnCode(code)
	if _, ok := returnCodeMapping[rc]; !ok {
		panic(&ProtocolViolationError{Callback: "request", Detail: "unexpected return code " + strconv.Itoa(code)})
	}
	return &ImmediateRejectionError{Code: rc}
}
