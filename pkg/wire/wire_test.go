package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		code    uint16
		payload []byte
		version uint8
	}{
		{"empty payload", CodeConnectRequest, nil, 0},
		{"challenge payload", CodeChallenge, append([]byte{3}, []byte("AAAAAAAAAAAAAAAA")...), 7},
		{"max version", CodeCheckCameraInfo, []byte("hello"), 255},
		{"large payload", CodeSetResolvingBit, make([]byte, 0xFFFF), 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := Encode(tc.code, tc.payload, tc.version)
			require.Len(t, encoded, HeaderLen+len(tc.payload))

			header, payload, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.code, header.Code)
			assert.Equal(t, uint16(len(tc.payload)), header.TxtLen)
			assert.Equal(t, tc.version, header.Version)
			assert.Equal(t, uint8(Magic), header.Magic)
			assert.Equal(t, tc.payload, payload)
		})
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	encoded := Encode(CodeConnectRequest, nil, 0)
	encoded[0] = 0xFF

	_, _, err := Decode(encoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad magic")
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	_, _, err := Decode(make([]byte, HeaderLen-1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	encoded := Encode(CodeChallenge, []byte("0123456789"), 0)
	truncated := encoded[:len(encoded)-3]

	_, _, err := Decode(truncated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	encoded := Encode(CodeCheckCameraInfo, []byte("abc"), 0)
	padded := append(encoded, 0, 0, 0, 0)

	header, payload, err := Decode(padded)
	require.NoError(t, err)
	assert.Equal(t, CodeCheckCameraInfo, header.Code)
	assert.Equal(t, []byte("abc"), payload)
}

func TestDecodeChallenge(t *testing.T) {
	nonce := "AbCdEfGh12345678"
	payload := append([]byte{3}, []byte(nonce)...)

	c, err := DecodeChallenge(payload)
	require.NoError(t, err)
	assert.EqualValues(t, 3, c.CameraStatus)
	assert.Equal(t, nonce, c.ChallengeNonce)
}

func TestDecodeConnectUserAuthResp(t *testing.T) {
	resp, err := DecodeConnectUserAuthResp([]byte(`{"connectionRes":"1","cameraInfo":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "1", resp.ConnectionRes)
}
