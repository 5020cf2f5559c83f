package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethan/camiotc/pkg/model"
	"github.com/ethan/camiotc/pkg/session"
	"github.com/ethan/camiotc/pkg/transport/faketransport"
)

func TestOpenCloseRefcount(t *testing.T) {
	ft := faketransport.New()
	r, err := Open(ft, 0, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0xDEADBEEF, r.Version())

	r.Acquire() // nested scope

	require.NoError(t, r.Close()) // refcount 2 -> 1, transport stays up
	assert.True(t, r.isOpen())

	require.NoError(t, r.Close()) // refcount 1 -> 0, transport torn down
	assert.False(t, r.isOpen())
}

func TestConnectAfterCloseFailsWithRuntimeNotInitialized(t *testing.T) {
	ft := faketransport.New()
	r, err := Open(ft, 0, nil)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Connect(context.Background(), model.Account{}, model.Camera{})
	assert.ErrorIs(t, err, model.ErrRuntimeNotInitialized)
}

func TestConnectDrivesSessionConstruction(t *testing.T) {
	ft := faketransport.New()
	ft.RegisterHappyPathResponders(3, "AAAAAAAAAAAAAAAA")

	r, err := Open(ft, 0, nil)
	require.NoError(t, err)
	defer r.Close()

	s, err := r.Connect(context.Background(), model.Account{PhoneID: "phone_id", OpenUserID: "open_user_id"}, model.Camera{
		UID: "p2p_id", ENR: "AbCdEfGh/JkLmN0p", MAC: "2CAABBCCDDEE", ProductModel: "WYZECP1_JEF",
	})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, session.AuthenticationSucceeded, s.State())
}
