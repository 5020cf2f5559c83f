package session

import (
	"context"
	"time"

	"github.com/sigurn/crc16"

	"github.com/ethan/camiotc/pkg/model"
)

// frameCRCTable is used for the frame payload-integrity probe: not a
// protocol requirement (the wire header's reserved bytes stay zero on
// send, spec.md §3/§6), just an ambient diagnostic that flags when a
// repeated payload body unexpectedly changes shape across a run.
var frameCRCTable = crc16.MakeTable(crc16.CRC16)

// statsWindowSize is the rolling frame window used to estimate
// bytes/sec and fps (spec.md §4.E; original_source's
// examples/streaming_video_low_level.py uses the same 210-frame window).
const statsWindowSize = 210

// dataNoreadySleep is how long the read loop backs off when the
// transport has nothing ready yet (spec.md §4.E: "sleep ≈ 25 ms").
const dataNoreadySleep = 25 * time.Millisecond

// Frame is one item yielded by Session.Frames: a decoded-ready payload,
// its metadata, and the current rolling rate estimate.
type Frame struct {
	Payload []byte
	Info    model.FrameInfo
	Stats   model.Stats
}

// Frames returns a channel producing a lazy, single-consumer sequence of
// Frame values. It is legal to call only in state AuthenticationSucceeded
// (spec.md invariant). The channel closes when the transport reports
// session-close-by-remote, when ctx is done, or when Close is called; in
// every case no more frames are produced afterward (spec.md §8 invariant 4).
func (s *Session) Frames(ctx context.Context) <-chan Frame {
	out := make(chan Frame)
	go s.readLoop(ctx, out)
	return out
}

func (s *Session) readLoop(ctx context.Context, out chan<- Frame) {
	defer close(out)

	window := make([]model.FrameInfo, 0, statsWindowSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, info, _, err := s.t.AVRecvFrameData(s.avChanID)
		if err != nil {
			te, ok := err.(*model.TransportError)
			if !ok {
				s.logger.Warn("frame receive failed", "error", err)
				return
			}
			switch te.Code {
			case model.AVErDataNoready:
				time.Sleep(dataNoreadySleep)
				continue
			case model.AVErTimeout, model.AVErIncompleteFrame, model.AVErLosedThisFrame:
				s.droppedFrames.Add(1)
				continue
			case model.AVErSessionCloseByRemote:
				return
			default:
				s.logger.Warn("transport error in frame loop", "error", te)
				return
			}
		}

		if info.FrameSize == model.FrameSize360P && s.emittedFrames.Load() == 0 {
			continue // low-res preamble frame emitted briefly at stream start
		}

		sum := crc16.Checksum(payload, frameCRCTable)
		if !s.haveLastFrameCRC || sum != s.lastFrameCRC {
			s.logger.DebugFrame("frame payload crc16 changed", "crc16", sum, "frame_no", info.FrameNo, "frame_len", info.FrameLen)
			s.lastFrameCRC = sum
			s.haveLastFrameCRC = true
		}

		window = appendWindow(window, info)
		stats := computeStats(window)

		s.logger.DebugFrame("received frame", "frame_no", info.FrameNo, "keyframe", info.IsKeyframe, "codec", info.CodecName(), "bytes_per_sec", stats.BytesPerSecond, "fps", stats.FramesPerSecond)

		select {
		case out <- Frame{Payload: payload, Info: info, Stats: stats}:
			s.emittedFrames.Add(1)
		case <-ctx.Done():
			return
		}
	}
}

func appendWindow(window []model.FrameInfo, info model.FrameInfo) []model.FrameInfo {
	window = append(window, info)
	if len(window) > statsWindowSize {
		window = window[len(window)-statsWindowSize:]
	}
	return window
}

// computeStats mirrors streaming_video_low_level.py's rate estimate:
// bytes/sec from summed frame_len over all but the last buffered frame,
// divided by the timestamp delta across the window; fps from frame count
// over the same delta. Zeroed when the window is too small or time did
// not advance.
func computeStats(window []model.FrameInfo) model.Stats {
	if len(window) < 2 {
		return model.Stats{}
	}
	start := window[0].Seconds()
	end := window[len(window)-1].Seconds()
	duration := end - start
	if duration <= 0 {
		return model.Stats{}
	}

	var totalLen int
	for _, info := range window[:len(window)-1] {
		totalLen += info.FrameLen
	}

	return model.Stats{
		BytesPerSecond:  int(float64(totalLen) / duration),
		FramesPerSecond: int(float64(len(window)) / duration),
	}
}
