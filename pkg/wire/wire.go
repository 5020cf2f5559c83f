// Package wire implements the IOCtrl binary framing: a fixed 16-byte
// header followed by a code-specific payload (spec.md §3, §4.B).
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/ethan/camiotc/pkg/model"
)

// HeaderLen is the fixed size of an IOCtrl frame header.
const HeaderLen = 16

// Magic is the required first header byte.
const Magic = 0xA

// Header is the decoded fixed portion of an IOCtrl frame.
type Header struct {
	Magic   uint8
	Version uint8
	Code    uint16
	TxtLen  uint16
}

// Encode emits a 16-byte little-endian header followed by payload. version
// is the caller's per-session monotonic protocol-version counter.
func Encode(code uint16, payload []byte, version uint8) []byte {
	buf := make([]byte, HeaderLen+len(payload))
	buf[0] = Magic
	buf[1] = version
	binary.LittleEndian.PutUint16(buf[2:4], 0) // reserved pad
	binary.LittleEndian.PutUint16(buf[4:6], code)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(len(payload)))
	// buf[8:16] reserved, left zero
	copy(buf[HeaderLen:], payload)
	return buf
}

// Decode parses the fixed header and slices out exactly txt_len payload
// bytes. Trailing bytes beyond the payload are ignored (the transport may
// pad the buffer it hands back).
func Decode(b []byte) (Header, []byte, error) {
	if len(b) < HeaderLen {
		return Header{}, nil, &model.ProtocolError{Msg: fmt.Sprintf("frame too short: %d bytes", len(b))}
	}
	h := Header{
		Magic:   b[0],
		Version: b[1],
		Code:    binary.LittleEndian.Uint16(b[4:6]),
		TxtLen:  binary.LittleEndian.Uint16(b[6:8]),
	}
	if h.Magic != Magic {
		return Header{}, nil, &model.ProtocolError{Msg: fmt.Sprintf("bad magic byte 0x%X", h.Magic)}
	}
	end := HeaderLen + int(h.TxtLen)
	if len(b) < end {
		return Header{}, nil, &model.ProtocolError{Msg: fmt.Sprintf("truncated payload: want %d have %d", h.TxtLen, len(b)-HeaderLen)}
	}
	return h, b[HeaderLen:end], nil
}

// ExpectedResponseCode returns the response code a request of code
// normally expects. The multiplexer never assumes +1 on its own — callers
// must register handles with an explicit expected code — but this table
// lets the request-building helpers below stay terse.
func ExpectedResponseCode(requestCode uint16) uint16 {
	return requestCode + 1
}
