package faketransport

import (
	"github.com/ethan/camiotc/pkg/wire"
)

// RegisterHappyPathResponders wires the standard (non-doorbell) sequence
// from original_source's mock_tutk_library.py: 10000->10001 with the
// given camera status and nonce, 10002->10003 with connectionRes "1", and
// 10056->10057 with a 1-byte body.
func (f *FakeTransport) RegisterHappyPathResponders(cameraStatus uint8, nonce string) {
	f.SetResponder(wire.CodeConnectRequest, func([]byte) (uint16, []byte, bool) {
		payload := append([]byte{cameraStatus}, []byte(nonce)...)
		return wire.CodeChallenge, payload, true
	})
	f.SetResponder(wire.CodeConnectUserAuth, func([]byte) (uint16, []byte, bool) {
		return wire.CodeConnectUserAuthResp, []byte(`{"connectionRes":"1","cameraInfo":{}}`), true
	})
	f.SetResponder(wire.CodeSetResolvingBit, func([]byte) (uint16, []byte, bool) {
		return wire.CodeSetResolvingBitResp, make([]byte, 1), true
	})
	f.SetResponder(wire.CodeCheckCameraInfo, func([]byte) (uint16, []byte, bool) {
		return wire.ExpectedResponseCode(wire.CodeCheckCameraInfo), nil, true
	})
}

// RegisterDoorbellResponders is RegisterHappyPathResponders's doorbell
// counterpart: 10008->10009 and 10052->10053 instead of 10002/10056.
func (f *FakeTransport) RegisterDoorbellResponders(cameraStatus uint8, nonce string) {
	f.SetResponder(wire.CodeConnectRequest, func([]byte) (uint16, []byte, bool) {
		payload := append([]byte{cameraStatus}, []byte(nonce)...)
		return wire.CodeChallenge, payload, true
	})
	f.SetResponder(wire.CodeConnectUserAuthDoorbell, func([]byte) (uint16, []byte, bool) {
		return wire.CodeConnectUserAuthDoorbellResp, []byte(`{"connectionRes":"1","cameraInfo":{}}`), true
	})
	f.SetResponder(wire.CodeSetResolvingBitDoorbell, func([]byte) (uint16, []byte, bool) {
		return wire.CodeSetResolvingBitDoorbellResp, make([]byte, 1), true
	})
	f.SetResponder(wire.CodeCheckCameraInfo, func([]byte) (uint16, []byte, bool) {
		return wire.ExpectedResponseCode(wire.CodeCheckCameraInfo), nil, true
	})
}
