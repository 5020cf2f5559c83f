package model

import (
	"errors"
	"fmt"
)

// Well-known native transport status codes (original_source/wyzecam/tutk/tutk.py).
const (
	AVErTimeout           = -20011
	AVErDataNoready       = -20012
	AVErIncompleteFrame   = -20013
	AVErLosedThisFrame    = -20014
	AVErSessionCloseByRemote = -20015
	AVErFailSetupRelay    = -42
)

var transportCodeNames = map[int]string{
	AVErTimeout:              "AV_ER_TIMEOUT",
	AVErDataNoready:          "AV_ER_DATA_NOREADY",
	AVErIncompleteFrame:      "AV_ER_INCOMPLETE_FRAME",
	AVErLosedThisFrame:       "AV_ER_LOSED_THIS_FRAME",
	AVErSessionCloseByRemote: "AV_ER_SESSION_CLOSE_BY_REMOTE",
	AVErFailSetupRelay:       "AV_ER_FAIL_SETUP_RELAY",
}

// TransportError wraps any negative status code returned by the native
// transport surface (spec §7 "Transport(code)").
type TransportError struct {
	Code int
}

func (e *TransportError) Error() string {
	if name, ok := transportCodeNames[e.Code]; ok {
		return fmt.Sprintf("transport error %d (%s)", e.Code, name)
	}
	return fmt.Sprintf("transport error %d", e.Code)
}

// NewTransportError constructs a TransportError for the given negative code.
func NewTransportError(code int) *TransportError {
	return &TransportError{Code: code}
}

// IsRecoverableFrameError reports whether code is one of the transient
// per-frame conditions the streaming loop recovers from locally instead
// of propagating.
func IsRecoverableFrameError(code int) bool {
	switch code {
	case AVErDataNoready, AVErTimeout, AVErIncompleteFrame, AVErLosedThisFrame:
		return true
	default:
		return false
	}
}

// ProtocolError signals a malformed IOCtrl frame (bad magic, truncated
// header) or an unexpected, non-ignorable response code.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Msg }

// Sentinel errors for kinds that carry no payload (spec §7).
var (
	ErrAuthBadEnr            = errors.New("camiotc: wrong ENR")
	ErrAuthRejected          = errors.New("camiotc: authentication rejected")
	ErrTimeout               = errors.New("camiotc: await exceeded its budget")
	ErrChannelClosed         = errors.New("camiotc: mux drained during outstanding await")
	ErrRuntimeNotInitialized = errors.New("camiotc: runtime not initialized")
)
