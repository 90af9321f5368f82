// Package interceptor provides a Pion WebRTC interceptor that drives a
// delta.Controller from real RTCP feedback: round-trip time derived from
// Sender/Receiver Report LSR+DLSR arithmetic (RFC 3550 §A.8), and loss
// fraction read directly off each reception report.
package interceptor

import (
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtcp"

	"github.com/wavry/delta/pkg/delta"
)

// DeltaInterceptor is a Pion interceptor that feeds a delta.Controller
// from the sender side: it snoops outgoing Sender Reports only to learn
// the local SSRC, and parses every inbound compound RTCP packet for the
// reception report addressed to that SSRC, converting it into one
// delta.Controller.ProcessSample call.
//
// DELTA's outputs are advisory (spec.md §1 Non-goals: no encoder
// reconfiguration happens here) — callers read Controller()'s getters or
// Snapshot() and apply them to their own encoder/pacer.
type DeltaInterceptor struct {
	interceptor.NoOp

	controller *delta.Controller
	clock      Clock
	identity   senderIdentity

	mu       sync.Mutex
	lastNow  uint64
	haveLast bool
}

// Option configures a DeltaInterceptor.
type Option func(*DeltaInterceptor)

// WithClock overrides the default MonotonicClock, primarily for tests.
func WithClock(c Clock) Option {
	return func(i *DeltaInterceptor) {
		i.clock = c
	}
}

// NewDeltaInterceptor wraps an already-constructed delta.Controller.
// Controller construction (and its InvalidConfig failure mode) happens
// independently, before the interceptor is built.
func NewDeltaInterceptor(controller *delta.Controller, opts ...Option) *DeltaInterceptor {
	i := &DeltaInterceptor{
		controller: controller,
		clock:      MonotonicClock{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Controller returns the underlying controller so callers can read its
// advisory bitrate/fps/fec_ratio/state after each RTCP packet is
// processed.
func (i *DeltaInterceptor) Controller() *delta.Controller {
	return i.controller
}

// BindRTCPWriter snoops outgoing RTCP packets to learn the local sender
// SSRC from our own Sender Reports, then passes the write through
// unchanged — DELTA never originates RTCP traffic itself.
func (i *DeltaInterceptor) BindRTCPWriter(writer interceptor.RTCPWriter) interceptor.RTCPWriter {
	return interceptor.RTCPWriterFunc(func(pkts []rtcp.Packet, a interceptor.Attributes) (int, error) {
		for _, pkt := range pkts {
			if sr, ok := pkt.(*rtcp.SenderReport); ok {
				i.identity.learn(sr.SSRC)
			}
		}
		return writer.Write(pkts, a)
	})
}

// BindRTCPReader wraps the inbound RTCP reader: each read is parsed for
// Sender/Receiver Reports carrying a reception report addressed to our
// learned SSRC, which is turned into exactly one ProcessSample call.
func (i *DeltaInterceptor) BindRTCPReader(reader interceptor.RTCPReader) interceptor.RTCPReader {
	return interceptor.RTCPReaderFunc(func(b []byte, a interceptor.Attributes) (int, interceptor.Attributes, error) {
		n, a, err := reader.Read(b, a)
		if err != nil || n == 0 {
			return n, a, err
		}

		ssrc, known := i.identity.known()
		if !known {
			return n, a, err
		}

		pkts, unmarshalErr := rtcp.Unmarshal(b[:n])
		if unmarshalErr != nil {
			return n, a, err
		}

		now := i.clock.Now()
		nowMiddle32 := toNTPMiddle32(now)
		nowUs := i.monotonicUs(now)

		for _, pkt := range pkts {
			var reports []rtcp.ReceptionReport
			switch p := pkt.(type) {
			case *rtcp.SenderReport:
				reports = p.Reports
			case *rtcp.ReceiverReport:
				reports = p.Reports
			default:
				continue
			}

			report, found := findReport(reports, ssrc)
			if !found {
				continue
			}

			rttUs, ok := rttFromReceptionReport(nowMiddle32, report)
			if !ok {
				continue
			}

			i.controller.ProcessSample(nowUs, rttUs, lossFraction(report))
		}

		return n, a, err
	})
}

// monotonicUs maps wall-clock reads onto a strictly non-decreasing
// microsecond counter. process_sample rejects non-monotonic now_us
// outright (spec.md §5), so a clock that jumps backward — an NTP step,
// a mocked clock misused across goroutines — must not corrupt the
// sequence; this clamps to the last value instead of passing a
// regression through.
func (i *DeltaInterceptor) monotonicUs(t time.Time) uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()

	us := uint64(t.UnixMicro())
	if i.haveLast && us < i.lastNow {
		us = i.lastNow
	}
	i.lastNow = us
	i.haveLast = true
	return us
}
