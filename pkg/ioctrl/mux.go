// Package ioctrl implements the IOCtrl multiplexer: it turns the native
// transport's single-stream AVSendIOCtrl/AVRecvIOCtrl pair into a
// concurrent request/response RPC layer (spec.md §4.C), the way the
// teacher's pkg/nest/queue.go turns a single Nest command channel into a
// ticketed request/response queue — generalized here from a priority heap
// to a plain FIFO-per-expected-code pending list, since the protocol
// requires strict submission-order fulfillment, not priority scheduling.
package ioctrl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ethan/camiotc/pkg/logger"
	"github.com/ethan/camiotc/pkg/model"
	"github.com/ethan/camiotc/pkg/transport"
	"github.com/ethan/camiotc/pkg/wire"
)

// pollTimeoutMS is the bounded AVRecvIOCtrl poll interval the listener
// uses (spec.md §4.C).
const pollTimeoutMS = 500

// DefaultSendRate is the default cap on outbound AVSendIOCtrl calls per
// Mux, protecting the native channel from caller-side request storms
// (grounded on the teacher's CommandQueue rate limiter in
// pkg/nest/queue.go).
const DefaultSendRate = 50 // requests/sec

// Handle is a pending request awaiting its matching response.
type Handle struct {
	requestCode  uint16
	expectedCode uint16
	version      uint8
	result       chan result
}

type result struct {
	payload []byte
	err     error
}

// Mux is the background listener + pending-handle table for one
// Session's AV channel.
type Mux struct {
	t        transport.Transport
	avChanID int
	limiter  *rate.Limiter
	logger   *logger.Logger

	mu      sync.Mutex
	pending map[uint16][]*Handle // FIFO per expected response code
	version uint8                // per-session monotonic protocol-version counter
	drained bool
	drainErr error

	stop chan struct{}
	done chan struct{}
}

// New constructs a Mux over an already-started AV channel. It does not
// start listening; call StartListening explicitly. lg may be nil, in
// which case the package default logger is used.
func New(t transport.Transport, avChanID int, lg *logger.Logger) *Mux {
	if lg == nil {
		lg = logger.Default()
	}
	return &Mux{
		t:        t,
		avChanID: avChanID,
		limiter:  rate.NewLimiter(rate.Limit(DefaultSendRate), DefaultSendRate),
		logger:   lg,
		pending:  make(map[uint16][]*Handle),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// StartListening spawns the single background listener goroutine. At
// most one listener may run per Mux (spec.md invariant: "at most one
// background listener per Session").
func (m *Mux) StartListening() {
	go m.listen()
}

// StopListening cooperatively cancels the listener and waits for it to
// exit, then drains any remaining pending handles with ErrChannelClosed.
func (m *Mux) StopListening() {
	select {
	case <-m.stop:
		// already stopped
	default:
		close(m.stop)
	}
	<-m.done
}

func (m *Mux) listen() {
	defer close(m.done)
	for {
		select {
		case <-m.stop:
			m.drain(model.ErrChannelClosed)
			return
		default:
		}

		ctrlType, payload, err := m.t.AVRecvIOCtrl(m.avChanID, pollTimeoutMS)
		if err != nil {
			var te *model.TransportError
			if asTransportError(err, &te) {
				if te.Code == model.AVErTimeout {
					continue
				}
				if te.Code == model.AVErSessionCloseByRemote {
					m.logger.DebugIOCtrl("listener draining: session closed by remote")
					m.drain(model.ErrChannelClosed)
					return
				}
			}
			m.logger.DebugIOCtrl("listener draining on error", "error", err)
			m.drain(err)
			return
		}

		m.logger.DebugIOCtrl("received ioctrl frame", "code", ctrlType, "len", len(payload))
		m.fulfill(ctrlType, payload)
	}
}

func asTransportError(err error, out **model.TransportError) bool {
	te, ok := err.(*model.TransportError)
	if ok {
		*out = te
	}
	return ok
}

// fulfill resolves the first pending handle registered for responseCode,
// in FIFO submission order. A response for which no handle is pending is
// silently dropped (it may belong to a handle that already timed out).
func (m *Mux) fulfill(responseCode uint16, payload []byte) {
	m.mu.Lock()
	queue := m.pending[responseCode]
	if len(queue) == 0 {
		m.mu.Unlock()
		m.logger.DebugIOCtrl("dropping unmatched ioctrl response", "code", responseCode)
		return
	}
	h := queue[0]
	m.pending[responseCode] = queue[1:]
	m.mu.Unlock()

	select {
	case h.result <- result{payload: payload}:
		m.logger.DebugIOCtrl("fulfilled ioctrl request", "request_code", h.requestCode, "response_code", responseCode)
	default:
		// handle already timed out and nobody is reading; drop it.
		m.logger.DebugIOCtrl("fulfilled handle already timed out", "request_code", h.requestCode, "response_code", responseCode)
	}
}

func (m *Mux) drain(cause error) {
	m.mu.Lock()
	if m.drained {
		m.mu.Unlock()
		return
	}
	m.drained = true
	m.drainErr = cause
	pending := m.pending
	m.pending = make(map[uint16][]*Handle)
	m.mu.Unlock()

	for _, queue := range pending {
		for _, h := range queue {
			select {
			case h.result <- result{err: cause}:
			default:
			}
		}
	}
}

// Send registers a fresh handle keyed by expectedCode, encodes and
// transmits the request, and returns the handle. The version counter is
// a per-session monotonic uint8 that wraps (spec.md invariant 3).
func (m *Mux) Send(requestCode, expectedCode uint16, payload []byte) (*Handle, error) {
	if err := m.limiter.Wait(context.Background()); err != nil {
		return nil, fmt.Errorf("ioctrl: rate limit wait: %w", err)
	}

	m.mu.Lock()
	if m.drained {
		err := m.drainErr
		m.mu.Unlock()
		return nil, err
	}
	v := m.version
	m.version++
	h := &Handle{
		requestCode:  requestCode,
		expectedCode: expectedCode,
		version:      v,
		result:       make(chan result, 1),
	}
	m.pending[expectedCode] = append(m.pending[expectedCode], h)
	m.mu.Unlock()

	frame := wire.Encode(requestCode, payload, v)
	if err := m.t.AVSendIOCtrl(m.avChanID, requestCode, frame); err != nil {
		m.removePending(h)
		return nil, err
	}
	m.logger.DebugIOCtrl("submitted ioctrl request", "request_code", requestCode, "expected_code", expectedCode, "version", v)
	return h, nil
}

func (m *Mux) removePending(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	queue := m.pending[h.expectedCode]
	for i, candidate := range queue {
		if candidate == h {
			m.pending[h.expectedCode] = append(queue[:i], queue[i+1:]...)
			break
		}
	}
}

// Await blocks until h resolves or ctx is done, returning the response
// payload.
func (m *Mux) Await(ctx context.Context, h *Handle) ([]byte, error) {
	select {
	case r := <-h.result:
		if r.err != nil {
			return nil, r.err
		}
		return r.payload, nil
	case <-ctx.Done():
		m.removePending(h)
		return nil, model.ErrTimeout
	}
}

// AwaitMany waits for every handle in hs, in the order given, each
// against the same deadline.
func (m *Mux) AwaitMany(ctx context.Context, hs []*Handle) ([][]byte, error) {
	out := make([][]byte, len(hs))
	for i, h := range hs {
		payload, err := m.Await(ctx, h)
		if err != nil {
			return nil, err
		}
		out[i] = payload
	}
	return out, nil
}

// AwaitTimeout is a convenience wrapper around Await using a fixed
// duration budget (spec.md §4.C: "default reasonably long, e.g. 10s").
func (m *Mux) AwaitTimeout(h *Handle, d time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return m.Await(ctx, h)
}
