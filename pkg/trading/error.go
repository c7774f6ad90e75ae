package trading

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

var (
	ErrOperationInProgress    = errors.New("another operation is in progress on this session")
	ErrSessionNotReady        = errors.New("session is not ready")
	ErrReconnected            = errors.New("session reconnected, operation abandoned")
	ErrDisconnected           = errors.New("session disconnected, operation abandoned")
	ErrZeroVolume             = errors.New("volume must be a non-zero integer")
	ErrInvalidPrice           = errors.New("price must be positive")
	ErrMinVolumeExceedsVolume = errors.New("min volume exceeds order volume")
)

// RemoteError is a non-zero error code carried by a response or a push.
type RemoteError struct {
	ID  int
	Msg string
}

func (e *RemoteError) Error() string {
	if e.ID == 0 {
		return "remote rejection: " + e.Msg
	}
	return "remote error " + strconv.Itoa(e.ID) + ": " + e.Msg
}

// remoteError returns nil when info carries no error.
func remoteError(info *RspInfoField) error {
	if info == nil || info.ErrorID == 0 {
		return nil
	}
	return &RemoteError{ID: info.ErrorID, Msg: info.ErrorMsg}
}

// TimeoutError reports an operation that got no terminal signal in time.
type TimeoutError struct {
	Label string
}

func (e *TimeoutError) Error() string {
	return e.Label + ": timeout"
}

func (e *TimeoutError) Timeout() bool {
	return true
}

// ValidationError rejects a call locally, before anything is sent.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + " <" + e.Value + ">: " + e.Reason
}

type UnknownInstrumentError struct {
	Code string
}

func (e *UnknownInstrumentError) Error() string {
	return "instrument <" + e.Code + "> does not exist"
}

// ProtocolViolationError means the transport broke its contract. It is raised with panic.
type ProtocolViolationError struct {
	Callback string
	Detail   string
}

func (e *ProtocolViolationError) Error() string {
	return "protocol violation in " + e.Callback + ": " + e.Detail
}

func violation(callback string, format string, args ...interface{}) {
	panic(&ProtocolViolationError{Callback: callback, Detail: fmt.Sprintf(format, args...)})
}
