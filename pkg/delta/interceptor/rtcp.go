package interceptor

import (
	"time"

	"github.com/pion/rtcp"
)

// ntpEpochOffset is the number of seconds between the NTP epoch (1900-01-01)
// and the Unix epoch (1970-01-01), per RFC 5905.
const ntpEpochOffset = 2208988800

// toNTPMiddle32 converts a wall-clock time into the 32-bit "middle" NTP
// timestamp format used by RTCP's LSR/DLSR fields: the low 16 bits of the
// 32-bit NTP seconds field concatenated with the high 16 bits of the
// 32-bit NTP fraction field (RFC 3550 §4, §A.8).
func toNTPMiddle32(t time.Time) uint32 {
	secs := uint64(t.Unix()) + ntpEpochOffset
	frac := uint64(t.Nanosecond()) << 32 / 1e9
	return uint32(secs<<16) | uint32(frac>>16)
}

// rttFromReceptionReport computes the round-trip time implied by a single
// RTCP reception report, per RFC 3550 §A.8:
//
//	RTT = now_middle32 - report.LastSenderReport - report.Delay
//
// All three quantities are in NTP middle-32 units (1/65536 s), and the
// subtraction is carried out as unsigned 32-bit arithmetic the same way
// abs-send-time deltas wrap in the teacher's 24-bit 6.18 fixed-point
// arithmetic — here over a 32-bit field instead of 24. LastSenderReport
// of 0 means no SR has been exchanged yet with this peer; per the RFC,
// that case must be skipped rather than produce a bogus RTT.
func rttFromReceptionReport(nowMiddle32 uint32, report rtcp.ReceptionReport) (rttUs uint64, ok bool) {
	if report.LastSenderReport == 0 {
		return 0, false
	}

	delayMiddle32 := nowMiddle32 - report.LastSenderReport - report.Delay

	// A well-formed report should never produce a delay spanning more
	// than half the 32-bit range (~9.1 hours); treat that as corrupt
	// or stale input rather than report a nonsensical RTT.
	if delayMiddle32 > 1<<31 {
		return 0, false
	}

	// middle32 units are 1/65536 s; scale to microseconds.
	rttUs = uint64(delayMiddle32) * 1_000_000 / 65536
	return rttUs, true
}

// lossFraction converts a reception report's FractionLost (an 8-bit
// fixed-point fraction, 0-255 representing 0/256 .. 255/256) into the
// [0,1] float delta.Controller.ProcessSample expects.
func lossFraction(report rtcp.ReceptionReport) float64 {
	return float64(report.FractionLost) / 256.0
}

// findReport locates the reception report addressed to ssrc within a
// compound RTCP packet's Sender/Receiver report list. Compound packets can
// carry reports about several sources; only the one matching our own
// sender SSRC is relevant to this stream's RTT.
func findReport(reports []rtcp.ReceptionReport, ssrc uint32) (rtcp.ReceptionReport, bool) {
	for _, r := range reports {
		if r.SSRC == ssrc {
			return r, true
		}
	}
	return rtcp.ReceptionReport{}, false
}
