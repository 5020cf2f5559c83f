// Package model holds the data types shared across the camera session
// engine: account identity, camera descriptors, session/frame metadata and
// the error taxonomy raised by the transport, wire and auth layers.
package model

import (
	"encoding/hex"
	"fmt"

	"github.com/sigurn/crc8"
)

// Account is the immutable identity presented to the camera during the
// auth handshake.
type Account struct {
	PhoneID     string
	OpenUserID  string
	Email       string // display-only
	Nickname    string // display-only
}

// ProductModelDoorbell is the product model string that selects the
// doorbell auth/resolution opcodes instead of the standard ones.
const ProductModelDoorbell = "WYZEDB3"

// Camera is the immutable descriptor of a single device, as returned by
// the account API's camera-list call.
type Camera struct {
	UID          string // P2P UID, <=20 ASCII
	P2PType      int
	IP           string
	ENR          string // 16-char per-device secret
	MAC          string // 12 hex chars
	ProductModel string
	Nickname     string
	TimezoneName string
}

// IsDoorbell reports whether this camera uses the doorbell auth branch.
func (c Camera) IsDoorbell() bool {
	return c.ProductModel == ProductModelDoorbell
}

var crc8Table = crc8.MakeTable(crc8.CRC8)

// ValidateMAC checks that MAC decodes as 6 bytes of hex and returns its
// CRC-8 checksum, used as a cheap descriptor-sanity check at construction
// time. It does not validate any manufacturer OUI.
func (c Camera) ValidateMAC() (checksum uint8, err error) {
	raw, err := hex.DecodeString(c.MAC)
	if err != nil {
		return 0, fmt.Errorf("camera %q: invalid mac %q: %w", c.UID, c.MAC, err)
	}
	if len(raw) != 6 {
		return 0, fmt.Errorf("camera %q: mac %q must decode to 6 bytes, got %d", c.UID, c.MAC, len(raw))
	}
	return crc8.Checksum(raw, crc8Table), nil
}

// SessionMode describes how the transport routed the connection.
type SessionMode int

const (
	SessionModeP2P SessionMode = iota
	SessionModeRelay
	SessionModeLAN
)

func (m SessionMode) String() string {
	switch m {
	case SessionModeP2P:
		return "p2p"
	case SessionModeRelay:
		return "relay"
	case SessionModeLAN:
		return "lan"
	default:
		return "unknown"
	}
}

// SessionInfo is a read-only snapshot populated by the transport right
// after a successful connect.
type SessionInfo struct {
	Mode           SessionMode
	Role           int
	UID            string
	RemoteIP       string
	RemotePort     int
	TXPacketCount  uint32
	RXPacketCount  uint32
	NATType        int
	IsSecure       bool
}

// FrameSize enumerates the resolution classes reported by the transport.
type FrameSize int

const (
	FrameSize1080P     FrameSize = 0
	FrameSize360P      FrameSize = 1
	FrameSizeDoorbelHD FrameSize = 3
	FrameSizeSD        FrameSize = 4
)

// FaceBox is the optional face-detection bounding box carried by the
// larger of the two FrameInfo wire variants.
type FaceBox struct {
	X, Y, Width, Height int
}

// FrameInfo is the per-frame metadata returned alongside a frame payload.
// Face is nil unless the transport returned the larger struct variant.
type FrameInfo struct {
	CodecID     int // 78 = H.264, 80 = H.265
	IsKeyframe  bool
	CamIndex    int
	FrameRate   int
	FrameSize   FrameSize
	Bitrate     int
	TimestampS  int64
	TimestampUS int64
	FrameLen    int
	FrameNo     uint32
	SourceMAC   string
	PlayToken   int
	Face        *FaceBox
}

// Seconds returns the frame timestamp as a fractional-second float, used
// for the rolling rate-estimate window.
func (f FrameInfo) Seconds() float64 {
	return float64(f.TimestampS) + float64(f.TimestampUS)/1_000_000
}

// CodecName returns a textual codec name for display/logging.
func (f FrameInfo) CodecName() string {
	switch f.CodecID {
	case 78:
		return "h264"
	case 80:
		return "hevc"
	default:
		return "h264" // transport has not been observed to emit anything else
	}
}

// Stats is the rate estimate computed over the rolling frame window in
// Session.Frames.
type Stats struct {
	BytesPerSecond int
	FramesPerSecond int
}
