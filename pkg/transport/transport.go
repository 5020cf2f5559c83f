// Package transport defines the narrow capability surface the core engine
// consumes over the native P2P transport library. The core never links the
// native library directly; it is satisfied either by a real cgo binding
// (not part of this module — see doc.go for the ABI it would wrap) or, in
// every test in this repository, by the in-memory fake under
// transport/faketransport.
package transport

import "github.com/ethan/camiotc/pkg/model"

// Transport is the abstract surface over the native P2P library described
// in spec.md §4.A. All operations are blocking; a negative native status
// code is surfaced as a *model.TransportError.
type Transport interface {
	// Init brings up the process-global transport state. udpPort of 0
	// lets the transport pick an ephemeral port.
	Init(udpPort int) error
	Deinit() error

	GetVersion() (uint32, error)

	// GetSessionID reserves a free session slot.
	GetSessionID() (int, error)

	// ConnectByUIDParallel attempts to reach the camera identified by
	// uid using the session slot sessionID. Returns the same sessionID
	// on success or a *model.TransportError on failure.
	ConnectByUIDParallel(uid string, sessionID int) (int, error)

	SessionCheck(sessionID int) (model.SessionInfo, error)
	SessionClose(sessionID int) error

	// AVInit brings up the AV subsystem for up to maxChannels
	// concurrent channels and returns the number actually available.
	AVInit(maxChannels int) (int, error)
	AVDeinit() error

	// AVClientStart starts an AV channel on sessionID using the fixed
	// device-family credentials, returning the channel id and the
	// transport's reported service type.
	AVClientStart(sessionID int, user, pass string, timeoutS int, channel int) (avChanID int, serviceType int, err error)
	AVClientSetMaxBufSize(bytes int) error
	AVClientStop(avChanID int) error

	AVSendIOCtrl(avChanID int, ctrlType uint16, payload []byte) error

	// AVRecvIOCtrl blocks up to timeoutMS for the next inbound IOCtrl
	// frame. A *model.TransportError with code model.AVErTimeout is
	// expected on every ordinary poll timeout, not a failure.
	AVRecvIOCtrl(avChanID int, timeoutMS int) (ctrlType uint16, payload []byte, err error)

	// AVRecvFrameData returns the next available frame. Errors carrying
	// model.IsRecoverableFrameError(code) are transient (see
	// pkg/session); on success len(payload) == info.FrameLen.
	AVRecvFrameData(avChanID int) (payload []byte, info model.FrameInfo, frameIndex int, err error)
}
