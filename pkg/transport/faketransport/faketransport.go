// Package faketransport is an in-memory stand-in for the native P2P
// transport, grounded on original_source's
// wyzecam/mock/mock_tutk_library.py: it lets tests script per-code
// responders and inject failure return codes without touching any real
// hardware or native library.
package faketransport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethan/camiotc/pkg/model"
	"github.com/ethan/camiotc/pkg/transport"
	"github.com/ethan/camiotc/pkg/wire"
)

// Responder produces a response IOCtrl code + payload for a given request
// payload. ok=false means "do not respond" (used to script S4's silent
// camera).
type Responder func(requestPayload []byte) (respCode uint16, respPayload []byte, ok bool)

// frameEntry is one scripted entry in the AVRecvFrameData queue: either a
// frame (err == nil) or a terminal/transient error code.
type frameEntry struct {
	payload []byte
	info    model.FrameInfo
	index   int
	err     error
}

// FakeTransport implements transport.Transport entirely in memory.
type FakeTransport struct {
	mu sync.Mutex

	initialized  bool
	nextSession  int
	connectErr   error // overrides ConnectByUIDParallel's result when set
	responders   map[uint16]Responder
	pendingQueue [][]byte // encoded response frames waiting to be received

	frameQueue []frameEntry

	sessionCloseCalls atomic.Int32
	avClientStopCalls atomic.Int32

	// RecvTimeoutScale divides every AVRecvIOCtrl timeoutMS sleep, the
	// way the Python mock sleeps 10x faster than requested so tests
	// stay fast. Defaults to 10000 if zero.
	RecvTimeoutScale time.Duration
}

// New returns a FakeTransport with no responders registered; callers
// typically follow with RegisterDefaultResponders.
func New() *FakeTransport {
	return &FakeTransport{
		responders: make(map[uint16]Responder),
	}
}

func (f *FakeTransport) scale() time.Duration {
	if f.RecvTimeoutScale == 0 {
		return 10000
	}
	return f.RecvTimeoutScale
}

// SetConnectByUIDReturn scripts ConnectByUIDParallel to fail with the
// given native status code (e.g. -42 for S3's connect-fail scenario).
func (f *FakeTransport) SetConnectByUIDReturn(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr = model.NewTransportError(code)
}

// SetResponder registers (or replaces) the responder for an inbound
// request code.
func (f *FakeTransport) SetResponder(requestCode uint16, r Responder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responders[requestCode] = r
}

// QueueFrame appends a scripted successful frame to the AVRecvFrameData
// queue.
func (f *FakeTransport) QueueFrame(payload []byte, info model.FrameInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info.FrameLen = len(payload)
	f.frameQueue = append(f.frameQueue, frameEntry{
		payload: payload,
		info:    info,
		index:   len(f.frameQueue),
	})
}

// QueueFrameError appends a scripted AVRecvFrameData failure (e.g.
// model.AVErSessionCloseByRemote to end a stream cleanly).
func (f *FakeTransport) QueueFrameError(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frameQueue = append(f.frameQueue, frameEntry{err: model.NewTransportError(code)})
}

// PushResponse directly enqueues an encoded response frame, bypassing the
// responder table. Tests use this to control response arrival order
// independently of request submission order (spec.md §8 invariant 7).
func (f *FakeTransport) PushResponse(code uint16, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingQueue = append(f.pendingQueue, wire.Encode(code, payload, 0))
}

// SessionCloseCalls reports how many times SessionClose has been invoked
// (spec.md §8 invariant 1).
func (f *FakeTransport) SessionCloseCalls() int32 { return f.sessionCloseCalls.Load() }

// AVClientStopCalls reports how many times AVClientStop has been invoked.
func (f *FakeTransport) AVClientStopCalls() int32 { return f.avClientStopCalls.Load() }

func (f *FakeTransport) Init(udpPort int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = true
	return nil
}

func (f *FakeTransport) Deinit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = false
	return nil
}

func (f *FakeTransport) GetVersion() (uint32, error) {
	return 0xDEADBEEF, nil
}

func (f *FakeTransport) GetSessionID() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSession
	f.nextSession++
	return id, nil
}

func (f *FakeTransport) ConnectByUIDParallel(uid string, sessionID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return 0, f.connectErr
	}
	return sessionID, nil
}

func (f *FakeTransport) SessionCheck(sessionID int) (model.SessionInfo, error) {
	return model.SessionInfo{
		Mode: model.SessionModeP2P,
		UID:  fmt.Sprintf("session-%d", sessionID),
	}, nil
}

func (f *FakeTransport) SessionClose(sessionID int) error {
	f.sessionCloseCalls.Add(1)
	return nil
}

func (f *FakeTransport) AVInit(maxChannels int) (int, error) {
	return maxChannels, nil
}

func (f *FakeTransport) AVDeinit() error { return nil }

func (f *FakeTransport) AVClientStart(sessionID int, user, pass string, timeoutS int, channel int) (int, int, error) {
	return channel, 0, nil
}

func (f *FakeTransport) AVClientSetMaxBufSize(bytes int) error { return nil }

func (f *FakeTransport) AVClientStop(avChanID int) error {
	f.avClientStopCalls.Add(1)
	return nil
}

// AVSendIOCtrl decodes the outgoing frame to find its request code (the
// same way mock_tutk_library.py's avSendIOCtrl decodes the raw bytes
// instead of trusting ctrlType alone) and, if a responder is registered
// for that code, enqueues the encoded response for the next AVRecvIOCtrl.
func (f *FakeTransport) AVSendIOCtrl(avChanID int, ctrlType uint16, payload []byte) error {
	header, body, err := wire.Decode(payload)
	if err != nil {
		return err
	}

	f.mu.Lock()
	responder, ok := f.responders[header.Code]
	f.mu.Unlock()
	if !ok {
		return nil // no responder registered; caller's await will time out
	}

	respCode, respPayload, respond := responder(body)
	if !respond {
		return nil
	}

	encoded := wire.Encode(respCode, respPayload, 0)
	f.mu.Lock()
	f.pendingQueue = append(f.pendingQueue, encoded)
	f.mu.Unlock()
	return nil
}

func (f *FakeTransport) AVRecvIOCtrl(avChanID int, timeoutMS int) (uint16, []byte, error) {
	f.mu.Lock()
	if len(f.pendingQueue) > 0 {
		next := f.pendingQueue[0]
		f.pendingQueue = f.pendingQueue[1:]
		f.mu.Unlock()

		header, body, err := wire.Decode(next)
		if err != nil {
			return 0, nil, err
		}
		return header.Code, body, nil
	}
	f.mu.Unlock()

	time.Sleep(time.Duration(timeoutMS) * time.Millisecond / f.scale())
	return 0, nil, model.NewTransportError(model.AVErTimeout)
}

func (f *FakeTransport) AVRecvFrameData(avChanID int) ([]byte, model.FrameInfo, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.frameQueue) == 0 {
		return nil, model.FrameInfo{}, 0, model.NewTransportError(model.AVErDataNoready)
	}
	next := f.frameQueue[0]
	f.frameQueue = f.frameQueue[1:]
	if next.err != nil {
		return nil, model.FrameInfo{}, next.index, next.err
	}
	return next.payload, next.info, next.index, nil
}

var _ transport.Transport = (*FakeTransport)(nil)
