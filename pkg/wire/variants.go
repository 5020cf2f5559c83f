package wire

import (
	"encoding/json"
	"fmt"
)

// IOCtrl codes used by the authentication and resolution exchange
// (spec.md §4.B).
const (
	CodeConnectRequest             uint16 = 10000
	CodeChallenge                  uint16 = 10001
	CodeConnectUserAuth            uint16 = 10002
	CodeConnectUserAuthResp        uint16 = 10003
	CodeConnectUserAuthDoorbell    uint16 = 10008
	CodeConnectUserAuthDoorbellResp uint16 = 10009
	CodeCheckCameraInfo            uint16 = 10020
	CodeSetResolvingBit            uint16 = 10056
	CodeSetResolvingBitResp        uint16 = 10057
	CodeSetResolvingBitDoorbell    uint16 = 10052
	CodeSetResolvingBitDoorbellResp uint16 = 10053
)

// ConnectRequest (10000) carries no payload.
type ConnectRequest struct{}

func (ConnectRequest) MarshalPayload() []byte { return nil }

// Challenge (10001) is the camera's response to ConnectRequest.
// CameraStatus == 2 means the ENR the caller will respond with is wrong.
type Challenge struct {
	CameraStatus  uint8
	ChallengeNonce string // 16 ASCII bytes
}

func DecodeChallenge(payload []byte) (Challenge, error) {
	if len(payload) < 17 {
		return Challenge{}, fmt.Errorf("wire: challenge payload too short: %d bytes", len(payload))
	}
	return Challenge{
		CameraStatus:   payload[0],
		ChallengeNonce: string(payload[1:17]),
	}, nil
}

// ConnectUserAuth (10002/10008) carries the MD5-derived auth block built
// by pkg/auth; wire treats it as an opaque byte blob.
type ConnectUserAuth struct {
	Payload []byte
}

func (c ConnectUserAuth) MarshalPayload() []byte { return c.Payload }

// ConnectUserAuthResp (10003/10009) is the JSON auth result.
type ConnectUserAuthResp struct {
	ConnectionRes string          `json:"connectionRes"`
	CameraInfo    json.RawMessage `json:"cameraInfo"`
}

func DecodeConnectUserAuthResp(payload []byte) (ConnectUserAuthResp, error) {
	var r ConnectUserAuthResp
	if err := json.Unmarshal(payload, &r); err != nil {
		return ConnectUserAuthResp{}, fmt.Errorf("wire: decode auth response: %w", err)
	}
	return r, nil
}

// CheckCameraInfo (10020) carries no request payload.
type CheckCameraInfo struct{}

func (CheckCameraInfo) MarshalPayload() []byte { return nil }

// SetResolvingBit (10056/10052) requests a frame size + bitrate.
type SetResolvingBit struct {
	FrameSize int32
	Bitrate   int32
}

func (s SetResolvingBit) MarshalPayload() []byte {
	buf := make([]byte, 8)
	putLE32(buf[0:4], uint32(s.FrameSize))
	putLE32(buf[4:8], uint32(s.Bitrate))
	return buf
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// Bitrate presets used when requesting a resolution (original_source's
// tutk.py BITRATE_* constants).
const (
	BitrateSuperSuperHD int32 = 3072
	FrameSize1080P      int32 = 0
)
