// Package runtime is the process-global capability wrapping transport
// init/deinit (spec.md §4.F). The native transport library has
// process-global state, so Runtime is a singleton capability passed
// explicitly to callers rather than relied on ambiently (spec.md §9),
// grounded on the teacher's pkg/nest/client.go double-checked-locking
// token cache, generalized here from token caching to init/deinit
// refcounting.
package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethan/camiotc/pkg/logger"
	"github.com/ethan/camiotc/pkg/model"
	"github.com/ethan/camiotc/pkg/session"
	"github.com/ethan/camiotc/pkg/transport"
)

// Runtime is the process-wide transport capability. Construction is
// idempotent: Open on an already-open Runtime for the same transport
// bumps a reference count instead of reinitializing.
type Runtime struct {
	t      transport.Transport
	logger *logger.Logger

	mu         sync.Mutex
	refCount   int
	version    uint32
	closed     bool
	connectMu  sync.Mutex // serializes concurrent session construction
}

// Open acquires the global transport. udpPort of 0 lets the transport
// choose an ephemeral port. Each Open must be matched with a Close; the
// underlying transport is only deinitialized once the reference count
// reaches zero. lg may be nil, in which case the package default logger
// is used.
func Open(t transport.Transport, udpPort int, lg *logger.Logger) (*Runtime, error) {
	if lg == nil {
		lg = logger.Default()
	}
	r := &Runtime{t: t, logger: lg}

	if err := t.Init(udpPort); err != nil {
		return nil, fmt.Errorf("runtime: transport init: %w", err)
	}
	version, err := t.GetVersion()
	if err != nil {
		_ = t.Deinit()
		return nil, fmt.Errorf("runtime: get version: %w", err)
	}
	r.version = version
	r.refCount = 1
	return r, nil
}

// Acquire increments the reference count for a nested scope sharing this
// Runtime; each Acquire must be matched by a Close.
func (r *Runtime) Acquire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refCount++
}

// Close releases one reference. Only when the reference count reaches
// zero does it call av_deinit and transport.deinit.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.refCount--
	if r.refCount > 0 {
		return nil
	}

	r.closed = true
	if err := r.t.AVDeinit(); err != nil {
		r.logger.Warn("av deinit failed", "error", err)
	}
	if err := r.t.Deinit(); err != nil {
		return fmt.Errorf("runtime: transport deinit: %w", err)
	}
	return nil
}

// Version returns the cached transport version from the initial Open.
func (r *Runtime) Version() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

func (r *Runtime) isOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

// Connect drives a full Session construction (spec.md §4.E) against this
// Runtime's transport. Concurrent calls are serialized: the source
// protocol reserves session slots one at a time. A Runtime that has been
// fully closed refuses new sessions with ErrRuntimeNotInitialized.
func (r *Runtime) Connect(ctx context.Context, account model.Account, camera model.Camera) (*session.Session, error) {
	if !r.isOpen() {
		return nil, model.ErrRuntimeNotInitialized
	}
	r.connectMu.Lock()
	defer r.connectMu.Unlock()
	return session.Connect(ctx, r.t, r.logger, account, camera)
}
