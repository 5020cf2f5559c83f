package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethan/camiotc/pkg/model"
	"github.com/ethan/camiotc/pkg/transport/faketransport"
)

func s1Account() model.Account {
	return model.Account{PhoneID: "phone_id", OpenUserID: "open_user_id"}
}

func s1Camera() model.Camera {
	return model.Camera{
		UID:          "p2p_id",
		ENR:          "AbCdEfGh/JkLmN0p",
		MAC:          "2CAABBCCDDEE",
		ProductModel: "WYZECP1_JEF",
	}
}

func TestConnectHappyPath(t *testing.T) {
	// S1
	ft := faketransport.New()
	ft.RegisterHappyPathResponders(3, "AAAAAAAAAAAAAAAA")

	s, err := Connect(context.Background(), ft, nil, s1Account(), s1Camera())
	require.NoError(t, err)
	assert.Equal(t, AuthenticationSucceeded, s.State())

	s.Close()
	assert.EqualValues(t, 1, ft.SessionCloseCalls())
	assert.EqualValues(t, 1, ft.AVClientStopCalls())
}

func TestConnectDoorbellBranch(t *testing.T) {
	// S2
	ft := faketransport.New()
	ft.RegisterDoorbellResponders(3, "AAAAAAAAAAAAAAAA")

	camera := s1Camera()
	camera.ProductModel = model.ProductModelDoorbell

	s, err := Connect(context.Background(), ft, nil, s1Account(), camera)
	require.NoError(t, err)
	assert.Equal(t, AuthenticationSucceeded, s.State())

	s.Close()
	assert.EqualValues(t, 1, ft.SessionCloseCalls())
	assert.EqualValues(t, 1, ft.AVClientStopCalls())
}

func TestConnectFailsOnConnectByUID(t *testing.T) {
	// S3
	ft := faketransport.New()
	ft.SetConnectByUIDReturn(-42)

	s, err := Connect(context.Background(), ft, nil, s1Account(), s1Camera())
	require.Error(t, err)
	assert.Nil(t, s)

	var te *model.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, -42, te.Code)

	assert.EqualValues(t, 1, ft.SessionCloseCalls())
	assert.EqualValues(t, 0, ft.AVClientStopCalls())
}

func TestConnectFailsOnAuthTimeout(t *testing.T) {
	// S4: fake never responds to 10000 at all.
	ft := faketransport.New()
	ft.RecvTimeoutScale = 500 // keep the listener's poll loop fast

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	s, err := Connect(ctx, ft, nil, s1Account(), s1Camera())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, model.ErrTimeout)

	assert.EqualValues(t, 1, ft.SessionCloseCalls())
	assert.EqualValues(t, 0, ft.AVClientStopCalls())
}

func TestConnectFailsOnWrongENR(t *testing.T) {
	// S5
	ft := faketransport.New()
	ft.RegisterHappyPathResponders(2, "AAAAAAAAAAAAAAAA")

	s, err := Connect(context.Background(), ft, nil, s1Account(), s1Camera())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, model.ErrAuthBadEnr)

	assert.EqualValues(t, 1, ft.SessionCloseCalls())
	assert.EqualValues(t, 0, ft.AVClientStopCalls())
}

func TestFramesSuppressesLeading360PAndEndsOnRemoteClose(t *testing.T) {
	// S6
	ft := faketransport.New()
	ft.RegisterHappyPathResponders(3, "AAAAAAAAAAAAAAAA")

	s, err := Connect(context.Background(), ft, nil, s1Account(), s1Camera())
	require.NoError(t, err)
	defer s.Close()

	ft.QueueFrame([]byte("preamble"), model.FrameInfo{FrameSize: model.FrameSize360P, TimestampS: 1})
	for i := 0; i < 10; i++ {
		ft.QueueFrame([]byte("frame-data"), model.FrameInfo{
			FrameSize:  model.FrameSize1080P,
			TimestampS: int64(2 + i),
			FrameNo:    uint32(i),
		})
	}
	ft.QueueFrameError(model.AVErSessionCloseByRemote)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var frames []Frame
	for f := range s.Frames(ctx) {
		frames = append(frames, f)
	}

	require.Len(t, frames, 10)
	for _, f := range frames {
		assert.Equal(t, model.FrameSize1080P, f.Info.FrameSize)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ft := faketransport.New()
	ft.RegisterHappyPathResponders(3, "AAAAAAAAAAAAAAAA")

	s, err := Connect(context.Background(), ft, nil, s1Account(), s1Camera())
	require.NoError(t, err)

	s.Close()
	s.Close()
	s.Close()

	assert.EqualValues(t, 1, ft.SessionCloseCalls())
	assert.EqualValues(t, 1, ft.AVClientStopCalls())
	assert.Equal(t, Disconnected, s.State())
}
