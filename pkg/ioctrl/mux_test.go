package ioctrl

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethan/camiotc/pkg/model"
	"github.com/ethan/camiotc/pkg/transport/faketransport"
	"github.com/ethan/camiotc/pkg/wire"
)

func TestMuxSendAwaitRoundTrip(t *testing.T) {
	ft := faketransport.New()
	ft.SetResponder(wire.CodeCheckCameraInfo, func([]byte) (uint16, []byte, bool) {
		return wire.ExpectedResponseCode(wire.CodeCheckCameraInfo), []byte("ack"), true
	})

	mux := New(ft, 0, nil)
	mux.StartListening()
	defer mux.StopListening()

	h, err := mux.Send(wire.CodeCheckCameraInfo, wire.ExpectedResponseCode(wire.CodeCheckCameraInfo), nil)
	require.NoError(t, err)

	payload, err := mux.AwaitTimeout(h, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("ack"), payload)
}

func TestMuxResolvesConcurrentRequestsRegardlessOfResponseOrder(t *testing.T) {
	// Invariant 7: N concurrent distinct requests with distinct expected
	// codes all resolve correctly even if the fake answers them in a
	// different order than they were submitted.
	ft := faketransport.New()
	mux := New(ft, 0, nil)
	mux.StartListening()
	defer mux.StopListening()

	const n = 8
	handles := make([]*Handle, n)
	for i := 0; i < n; i++ {
		code := uint16(20000 + i)
		h, err := mux.Send(code, code+1, []byte(fmt.Sprintf("req-%d", i)))
		require.NoError(t, err)
		handles[i] = h
	}

	// Respond in reverse order.
	for i := n - 1; i >= 0; i-- {
		code := uint16(20000 + i)
		ft.PushResponse(code+1, []byte(fmt.Sprintf("resp-%d", i)))
	}

	for i := 0; i < n; i++ {
		payload, err := mux.AwaitTimeout(handles[i], time.Second)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("resp-%d", i), string(payload))
	}
}

func TestMuxFIFOPerExpectedCode(t *testing.T) {
	// Two in-flight requests share the same expected response code; the
	// first submitted must be fulfilled by the first response received.
	ft := faketransport.New()
	mux := New(ft, 0, nil)
	mux.StartListening()
	defer mux.StopListening()

	const sharedCode = uint16(30001)
	h1, err := mux.Send(30000, sharedCode, []byte("first"))
	require.NoError(t, err)
	h2, err := mux.Send(30000, sharedCode, []byte("second"))
	require.NoError(t, err)

	ft.PushResponse(sharedCode, []byte("resp-A"))
	ft.PushResponse(sharedCode, []byte("resp-B"))

	p1, err := mux.AwaitTimeout(h1, time.Second)
	require.NoError(t, err)
	p2, err := mux.AwaitTimeout(h2, time.Second)
	require.NoError(t, err)

	assert.Equal(t, "resp-A", string(p1))
	assert.Equal(t, "resp-B", string(p2))
}

func TestMuxAwaitTimesOutWhenNoResponse(t *testing.T) {
	ft := faketransport.New()
	ft.RecvTimeoutScale = 200 // keep the poll loop fast for this test
	mux := New(ft, 0, nil)
	mux.StartListening()
	defer mux.StopListening()

	h, err := mux.Send(40000, 40001, nil)
	require.NoError(t, err)

	_, err = mux.AwaitTimeout(h, 50*time.Millisecond)
	assert.ErrorIs(t, err, model.ErrTimeout)
}

func TestMuxStopListeningDrainsPendingHandles(t *testing.T) {
	ft := faketransport.New()
	ft.RecvTimeoutScale = 200
	mux := New(ft, 0, nil)
	mux.StartListening()

	h, err := mux.Send(50000, 50001, nil)
	require.NoError(t, err)

	mux.StopListening()

	_, err = mux.Await(context.Background(), h)
	assert.ErrorIs(t, err, model.ErrChannelClosed)
}

func TestMuxVersionCounterIsMonotonic(t *testing.T) {
	ft := faketransport.New()
	mux := New(ft, 0, nil)
	mux.StartListening()
	defer mux.StopListening()

	var mu sync.Mutex
	var versions []uint8
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(code uint16) {
			defer wg.Done()
			h, err := mux.Send(code, code+1, nil)
			require.NoError(t, err)
			mu.Lock()
			versions = append(versions, h.version)
			mu.Unlock()
		}(uint16(60000 + i))
	}
	wg.Wait()

	seen := make(map[uint8]bool)
	for _, v := range versions {
		assert.False(t, seen[v], "version %d reused", v)
		seen[v] = true
	}
}
