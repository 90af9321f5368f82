package interceptor

import (
	"testing"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavry/delta/pkg/delta"
)

type fakeRTCPWriter struct {
	written []rtcp.Packet
}

func (w *fakeRTCPWriter) Write(pkts []rtcp.Packet, _ interceptor.Attributes) (int, error) {
	w.written = append(w.written, pkts...)
	return len(pkts), nil
}

type fakeRTCPReader struct {
	payload []byte
	err     error
}

func (r *fakeRTCPReader) Read(b []byte, a interceptor.Attributes) (int, interceptor.Attributes, error) {
	if r.err != nil {
		return 0, a, r.err
	}
	n := copy(b, r.payload)
	return n, a, nil
}

func newTestInterceptor(t *testing.T, clock Clock) *DeltaInterceptor {
	t.Helper()
	c, err := delta.NewController(delta.DefaultConfig())
	require.NoError(t, err)
	return NewDeltaInterceptor(c, WithClock(clock))
}

func TestDeltaInterceptor_BindRTCPWriterLearnsSSRCAndPassesThrough(t *testing.T) {
	i := newTestInterceptor(t, MonotonicClock{})
	fw := &fakeRTCPWriter{}
	writer := i.BindRTCPWriter(fw)

	sr := &rtcp.SenderReport{SSRC: 4242}
	n, err := writer.Write([]rtcp.Packet{sr}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, fw.written, 1)

	ssrc, known := i.identity.known()
	assert.True(t, known)
	assert.Equal(t, uint32(4242), ssrc)
}

func TestDeltaInterceptor_BindRTCPReaderIgnoresReportsBeforeSSRCLearned(t *testing.T) {
	i := newTestInterceptor(t, MonotonicClock{})

	rr := &rtcp.ReceiverReport{
		SSRC: 1,
		Reports: []rtcp.ReceptionReport{
			{SSRC: 4242, LastSenderReport: 100, Delay: 10, FractionLost: 0},
		},
	}
	raw, err := rtcp.Marshal([]rtcp.Packet{rr})
	require.NoError(t, err)

	fr := &fakeRTCPReader{payload: raw}
	reader := i.BindRTCPReader(fr)

	buf := make([]byte, 1500)
	n, _, err := reader.Read(buf, nil)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	// no SSRC learned yet, so no sample should have reached the controller
	assert.Equal(t, uint64(0), i.controller.Snapshot().RTTSmoothUs)
	assert.Equal(t, delta.Stable, i.controller.State())
}

func TestDeltaInterceptor_BindRTCPReaderFeedsControllerOnMatchingSSRC(t *testing.T) {
	clock := NewMockClock(time.Unix(1_700_000_000, 0))
	i := newTestInterceptor(t, clock)

	fw := &fakeRTCPWriter{}
	writer := i.BindRTCPWriter(fw)
	_, err := writer.Write([]rtcp.Packet{&rtcp.SenderReport{SSRC: 77}}, nil)
	require.NoError(t, err)

	lsr := toNTPMiddle32(clock.Now())
	clock.Advance(20 * time.Millisecond)

	rr := &rtcp.ReceiverReport{
		SSRC: 1,
		Reports: []rtcp.ReceptionReport{
			{SSRC: 77, LastSenderReport: lsr, Delay: 0, FractionLost: 0},
		},
	}
	raw, err := rtcp.Marshal([]rtcp.Packet{rr})
	require.NoError(t, err)

	fr := &fakeRTCPReader{payload: raw}
	reader := i.BindRTCPReader(fr)

	buf := make([]byte, 1500)
	_, _, err = reader.Read(buf, nil)
	require.NoError(t, err)

	snap := i.controller.Snapshot()
	assert.InDelta(t, 20_000, float64(snap.RTTSmoothUs), 2000, "RTT derived from LSR/DLSR should be close to the 20ms elapsed")
}

func TestDeltaInterceptor_IgnoresUnrelatedReports(t *testing.T) {
	clock := NewMockClock(time.Unix(1_700_000_000, 0))
	i := newTestInterceptor(t, clock)

	fw := &fakeRTCPWriter{}
	writer := i.BindRTCPWriter(fw)
	_, _ = writer.Write([]rtcp.Packet{&rtcp.SenderReport{SSRC: 77}}, nil)

	rr := &rtcp.ReceiverReport{
		SSRC: 1,
		Reports: []rtcp.ReceptionReport{
			{SSRC: 999, LastSenderReport: 1, Delay: 0, FractionLost: 0}, // not our SSRC
		},
	}
	raw, err := rtcp.Marshal([]rtcp.Packet{rr})
	require.NoError(t, err)

	fr := &fakeRTCPReader{payload: raw}
	reader := i.BindRTCPReader(fr)

	buf := make([]byte, 1500)
	_, _, err = reader.Read(buf, nil)
	require.NoError(t, err)

	assert.Equal(t, delta.Stable, i.controller.State())
	assert.Equal(t, uint64(0), i.controller.Snapshot().RTTSmoothUs)
}
