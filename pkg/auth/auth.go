// Package auth implements the camera authentication handshake: a
// challenge/response exchange keyed on the camera's ENR secret, branching
// on product model (spec.md §4.D).
package auth

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"time"

	"github.com/ethan/camiotc/pkg/ioctrl"
	"github.com/ethan/camiotc/pkg/logger"
	"github.com/ethan/camiotc/pkg/model"
	"github.com/ethan/camiotc/pkg/wire"
)

// AwaitBudget is the default timeout for each auth step's await (spec.md
// §4.C: "default reasonably long, e.g. 10 s").
const AwaitBudget = 10 * time.Second

// Result is what the auth exchange retains on the Session once it
// completes successfully.
type Result struct {
	CameraInfo []byte // raw JSON cameraInfo object, opaque to this package
}

// deriveKey computes md5(enr)[:16] XOR nonce, the shared secret block
// both branches of the auth exchange send back to the camera.
//
// TODO(auth): the full wire layout of the identity fields following this
// key block is not derivable from the available reference slice (spec.md
// §9); phone_id/open_user_id/mac/product_model are appended here as
// length-prefixed fields, which is this codebase's best reconstruction
// pending a captured byte-layout test or a real device to interoperate
// against.
func deriveKey(enr, nonce string) [16]byte {
	sum := md5.Sum([]byte(enr))
	var key [16]byte
	n := []byte(nonce)
	for i := range key {
		if i < len(n) {
			key[i] = sum[i] ^ n[i]
		} else {
			key[i] = sum[i]
		}
	}
	return key
}

func appendField(buf []byte, s string) []byte {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

func buildStandardAuthPayload(key [16]byte, account model.Account) []byte {
	buf := make([]byte, 0, 16+64)
	buf = append(buf, key[:]...)
	buf = appendField(buf, account.PhoneID)
	buf = appendField(buf, account.OpenUserID)
	return buf
}

func buildDoorbellAuthPayload(key [16]byte, account model.Account, camera model.Camera) []byte {
	buf := make([]byte, 0, 16+96)
	buf = append(buf, key[:]...)
	buf = appendField(buf, account.PhoneID)
	buf = appendField(buf, account.OpenUserID)
	buf = appendField(buf, camera.MAC)
	buf = appendField(buf, camera.ProductModel)
	return buf
}

// Authenticate drives the seven-step exchange in spec.md §4.D over mux,
// which must already be listening on the session's AV channel. lg may be
// nil, in which case the package default logger is used.
func Authenticate(ctx context.Context, mux *ioctrl.Mux, account model.Account, camera model.Camera, lg *logger.Logger) (*Result, error) {
	if lg == nil {
		lg = logger.Default()
	}

	lg.DebugAuth("sending connect request", "code", wire.CodeConnectRequest)
	helloHandle, err := mux.Send(wire.CodeConnectRequest, wire.CodeChallenge, (wire.ConnectRequest{}).MarshalPayload())
	if err != nil {
		return nil, err
	}
	challengePayload, err := mux.Await(ctx, helloHandle)
	if err != nil {
		return nil, err
	}
	challenge, err := wire.DecodeChallenge(challengePayload)
	if err != nil {
		return nil, err
	}
	lg.DebugAuth("received challenge", "camera_status", challenge.CameraStatus)
	if challenge.CameraStatus == 2 {
		return nil, model.ErrAuthBadEnr
	}

	key := deriveKey(camera.ENR, challenge.ChallengeNonce)

	var authReqCode, authRespCode uint16
	var authPayload []byte
	if camera.IsDoorbell() {
		authReqCode, authRespCode = wire.CodeConnectUserAuthDoorbell, wire.CodeConnectUserAuthDoorbellResp
		authPayload = buildDoorbellAuthPayload(key, account, camera)
	} else {
		authReqCode, authRespCode = wire.CodeConnectUserAuth, wire.CodeConnectUserAuthResp
		authPayload = buildStandardAuthPayload(key, account)
	}

	lg.DebugAuth("sending auth response", "code", authReqCode, "doorbell", camera.IsDoorbell())
	authHandle, err := mux.Send(authReqCode, authRespCode, authPayload)
	if err != nil {
		return nil, err
	}
	authRespPayload, err := mux.Await(ctx, authHandle)
	if err != nil {
		return nil, err
	}
	authResp, err := wire.DecodeConnectUserAuthResp(authRespPayload)
	if err != nil {
		return nil, err
	}
	lg.DebugAuth("received auth result", "connection_res", authResp.ConnectionRes)
	switch authResp.ConnectionRes {
	case "1":
		// accepted, fall through
	case "2":
		return nil, model.ErrAuthBadEnr
	default:
		return nil, model.ErrAuthRejected
	}

	camInfoHandle, err := mux.Send(wire.CodeCheckCameraInfo, wire.ExpectedResponseCode(wire.CodeCheckCameraInfo), (wire.CheckCameraInfo{}).MarshalPayload())
	if err != nil {
		return nil, err
	}

	var resolveReqCode, resolveRespCode uint16
	if camera.IsDoorbell() {
		resolveReqCode, resolveRespCode = wire.CodeSetResolvingBitDoorbell, wire.CodeSetResolvingBitDoorbellResp
	} else {
		resolveReqCode, resolveRespCode = wire.CodeSetResolvingBit, wire.CodeSetResolvingBitResp
	}
	resolveHandle, err := mux.Send(resolveReqCode, resolveRespCode, wire.SetResolvingBit{
		FrameSize: wire.FrameSize1080P,
		Bitrate:   wire.BitrateSuperSuperHD,
	}.MarshalPayload())
	if err != nil {
		return nil, err
	}

	if _, err := mux.AwaitMany(ctx, []*ioctrl.Handle{camInfoHandle, resolveHandle}); err != nil {
		return nil, err
	}

	lg.DebugAuth("authentication sequence complete")
	return &Result{CameraInfo: authResp.CameraInfo}, nil
}
