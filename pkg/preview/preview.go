// Package preview repacketizes frames pulled from a session.Session.Frames
// channel into RTP and forwards them over a local UDP socket, with an SDP
// description a local player (ffplay, VLC) can use to open the stream.
// There is no remote peer and no ICE/DTLS negotiation here: it is a
// loopback convenience for watching a stream while developing against this
// package, scaled down from the teacher's pkg/bridge WebRTC forwarder to a
// plain RTP/UDP sender (spec.md's WebRTC-delivery non-goal).
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/sdp/v3"

	"github.com/ethan/camiotc/pkg/model"
	"github.com/ethan/camiotc/pkg/session"
)

// PayloadTypeH264 is the dynamic RTP payload type this package announces
// for H.264 video, matching the teacher's bridge convention.
const PayloadTypeH264 = 96

const rtpMTU = 1200

// Bridge forwards session.Frame values as RTP packets to a fixed UDP
// destination. It is not safe for concurrent use by more than one
// producer goroutine.
type Bridge struct {
	conn   *net.UDPConn
	logger *slog.Logger

	payloader *codecs.H264Payloader
	mu        sync.Mutex
	seq       uint16
	ssrc      uint32
}

// New dials a UDP socket toward addr (host:port) that frames will be sent
// to, and returns a Bridge ready to accept WriteFrame calls.
func New(addr string, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("preview: resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("preview: dial %s: %w", addr, err)
	}
	return &Bridge{
		conn:      conn,
		logger:    logger,
		payloader: &codecs.H264Payloader{},
		seq:       uint16(time.Now().UnixNano() & 0xFFFF),
		ssrc:      uint32(time.Now().UnixNano()),
	}, nil
}

// Close releases the underlying UDP socket.
func (b *Bridge) Close() error {
	return b.conn.Close()
}

// LocalAddr returns the local UDP endpoint the Bridge is sending from.
func (b *Bridge) LocalAddr() net.Addr {
	return b.conn.LocalAddr()
}

// ReadReceiverReports blocks reading off the same socket frames are sent
// from, parsing anything that looks like an RTCP receiver report for this
// Bridge's SSRC via ParseReceiverReports and logging the reported loss,
// until ctx is done or the socket errors. A player capable of sending
// RTCP feedback back to this loopback address is what makes this useful;
// most won't, in which case this simply idles.
func (b *Bridge) ReadReceiverReports(ctx context.Context) error {
	buf := make([]byte, 1500)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		b.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, err := b.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return fmt.Errorf("preview: read rtcp socket: %w", err)
		}

		fractionLost, cumulativeLost, found, err := ParseReceiverReports(buf[:n], b.ssrc)
		if err != nil {
			b.logger.Warn("preview: failed to parse rtcp packet", "error", err)
			continue
		}
		if found {
			b.logger.Info("preview: receiver report", "fraction_lost", fractionLost, "cumulative_lost", cumulativeLost)
		}
	}
}

// Run drains frames and forwards each as RTP until the channel closes or
// ctx is done.
func (b *Bridge) Run(ctx context.Context, frames <-chan session.Frame) error {
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if err := b.WriteFrame(f.Payload, f.Info); err != nil {
				b.logger.Warn("preview: dropping frame after write error", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WriteFrame extracts the AVC-framed NAL units in payload, repacketizes
// them into MTU-sized RTP packets carrying info's timestamp, and writes
// them to the destination socket.
func (b *Bridge) WriteFrame(payload []byte, info model.FrameInfo) error {
	nalus, err := extractNALUs(payload)
	if err != nil {
		return fmt.Errorf("preview: extract nal units: %w", err)
	}

	timestamp := uint32(info.TimestampUS / 1000 * 90) // 90kHz clock, matching h264 RTP convention

	b.mu.Lock()
	seq := b.seq
	b.mu.Unlock()

	for naluIdx, nalu := range nalus {
		payloads := b.payloader.Payload(rtpMTU, nalu)
		for i, chunk := range payloads {
			pkt := &rtp.Packet{
				Header: rtp.Header{
					Version:        2,
					PayloadType:    PayloadTypeH264,
					SequenceNumber: seq,
					Timestamp:      timestamp,
					SSRC:           b.ssrc,
					Marker:         naluIdx == len(nalus)-1 && i == len(payloads)-1,
				},
				Payload: chunk,
			}
			raw, err := pkt.Marshal()
			if err != nil {
				return fmt.Errorf("preview: marshal rtp packet: %w", err)
			}
			if _, err := b.conn.Write(raw); err != nil {
				return fmt.Errorf("preview: write rtp packet: %w", err)
			}
			seq++
		}
	}

	b.mu.Lock()
	b.seq = seq
	b.mu.Unlock()
	return nil
}

// extractNALUs splits AVC-format data (4-byte big-endian length prefix per
// NAL unit) into individual NAL units.
func extractNALUs(data []byte) ([][]byte, error) {
	var nalus [][]byte
	offset := 0
	for offset < len(data) {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("incomplete nal unit at offset %d", offset)
		}
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 | int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4
		if naluLen < 0 || offset+naluLen > len(data) {
			return nil, fmt.Errorf("invalid nal unit length %d at offset %d", naluLen, offset-4)
		}
		nalus = append(nalus, data[offset:offset+naluLen])
		offset += naluLen
	}
	return nalus, nil
}

// GenerateSDP builds the session description a local player needs to open
// the stream this Bridge sends to addr.
func GenerateSDP(host string, port int) ([]byte, error) {
	desc := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      uint64(time.Now().UnixNano()),
			SessionVersion: 1,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: host,
		},
		SessionName: "camiotc-preview",
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: host},
		},
		TimeDescriptions: []sdp.TimeDescription{{Timing: sdp.Timing{StartTime: 0, StopTime: 0}}},
		MediaDescriptions: []*sdp.MediaDescription{
			{
				MediaName: sdp.MediaName{
					Media:   "video",
					Port:    sdp.RangedPort{Value: port},
					Protos:  []string{"RTP", "AVP"},
					Formats: []string{fmt.Sprintf("%d", PayloadTypeH264)},
				},
				Attributes: []sdp.Attribute{
					{Key: "rtpmap", Value: fmt.Sprintf("%d H264/90000", PayloadTypeH264)},
					{Key: "fmtp", Value: fmt.Sprintf("%d packetization-mode=1", PayloadTypeH264)},
				},
			},
		},
	}
	return desc.Marshal()
}

// ParseReceiverReports decodes RTCP packets carrying receiver reports and
// returns the fraction-lost and cumulative-lost fields for the given SSRC,
// used by cmd/stream to surface remote playout health alongside the
// session's own frame-drop counters.
func ParseReceiverReports(raw []byte, ssrc uint32) (fractionLost uint8, cumulativeLost uint32, found bool, err error) {
	packets, err := rtcp.Unmarshal(raw)
	if err != nil {
		return 0, 0, false, fmt.Errorf("preview: unmarshal rtcp: %w", err)
	}
	for _, p := range packets {
		rr, ok := p.(*rtcp.ReceiverReport)
		if !ok {
			continue
		}
		for _, block := range rr.Reports {
			if block.SSRC == ssrc {
				return block.FractionLost, block.TotalLost, true, nil
			}
		}
	}
	return 0, 0, false, nil
}
