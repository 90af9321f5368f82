package server

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	deltainterceptor "github.com/wavry/delta/pkg/delta/interceptor"

	"github.com/wavry/delta/pkg/delta"
)

const (
	sampleFrameRate = 30
	sampleInterval  = time.Second / sampleFrameRate
)

// loopbackSession wires a sender PeerConnection (instrumented with
// deltainterceptor.DeltaInterceptorFactory) to a receiver PeerConnection
// entirely within this process: a synthetic H264 track flows
// sender->receiver, RTCP Sender/Receiver Reports flow back, and
// delta.Controller.ProcessSample is driven from the real RTT/loss that
// round trip produces — exactly the adapter pkg/delta/interceptor
// implements, exercised end to end without a browser in the loop.
type loopbackSession struct {
	sender     *webrtc.PeerConnection
	receiver   *webrtc.PeerConnection
	controller *delta.Controller

	stop chan struct{}
	done chan struct{}
}

func startLoopbackSession() (*loopbackSession, error) {
	var controller *delta.Controller
	factory, err := deltainterceptor.NewDeltaInterceptorFactory(
		deltainterceptor.WithOnController(func(c *delta.Controller) { controller = c }),
	)
	if err != nil {
		return nil, fmt.Errorf("delta interceptor factory: %w", err)
	}

	senderRegistry := &interceptor.Registry{}
	senderRegistry.Add(factory)
	if err := webrtc.ConfigureRTCPReports(senderRegistry); err != nil {
		return nil, fmt.Errorf("configure sender rtcp reports: %w", err)
	}

	sender, err := newPeerConnection(senderRegistry)
	if err != nil {
		return nil, fmt.Errorf("sender peer connection: %w", err)
	}

	receiverRegistry := &interceptor.Registry{}
	if err := webrtc.ConfigureRTCPReports(receiverRegistry); err != nil {
		sender.Close()
		return nil, fmt.Errorf("configure receiver rtcp reports: %w", err)
	}
	receiver, err := newPeerConnection(receiverRegistry)
	if err != nil {
		sender.Close()
		return nil, fmt.Errorf("receiver peer connection: %w", err)
	}

	videoTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264, ClockRate: 90000},
		"video",
		"delta-demo",
	)
	if err != nil {
		sender.Close()
		receiver.Close()
		return nil, fmt.Errorf("create video track: %w", err)
	}
	if _, err := sender.AddTrack(videoTrack); err != nil {
		sender.Close()
		receiver.Close()
		return nil, fmt.Errorf("add track: %w", err)
	}

	if _, err := receiver.AddTransceiverFromKind(
		webrtc.RTPCodecTypeVideo,
		webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly},
	); err != nil {
		sender.Close()
		receiver.Close()
		return nil, fmt.Errorf("add transceiver: %w", err)
	}
	receiver.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		buf := make([]byte, 1500)
		for {
			if _, _, err := track.Read(buf); err != nil {
				return
			}
		}
	})

	if err := negotiate(sender, receiver); err != nil {
		sender.Close()
		receiver.Close()
		return nil, fmt.Errorf("negotiate: %w", err)
	}

	s := &loopbackSession{
		sender:     sender,
		receiver:   receiver,
		controller: controller,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.writeSamples(videoTrack)
	return s, nil
}

func newPeerConnection(registry *interceptor.Registry) (*webrtc.PeerConnection, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(registry))
	return api.NewPeerConnection(webrtc.Configuration{})
}

// negotiate performs a vanilla (non-trickle) SDP exchange entirely inside
// this process: gathering completes before each SetLocalDescription is
// handed to the other side, the same pattern the Chrome interop demo
// used for its browser<->server handshake, applied twice here since both
// ends are local PeerConnections.
func negotiate(sender, receiver *webrtc.PeerConnection) error {
	offer, err := sender.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	senderGatherComplete := webrtc.GatheringCompletePromise(sender)
	if err := sender.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set sender local description: %w", err)
	}
	<-senderGatherComplete

	if err := receiver.SetRemoteDescription(*sender.LocalDescription()); err != nil {
		return fmt.Errorf("set receiver remote description: %w", err)
	}

	answer, err := receiver.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	receiverGatherComplete := webrtc.GatheringCompletePromise(receiver)
	if err := receiver.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set receiver local description: %w", err)
	}
	<-receiverGatherComplete

	return sender.SetRemoteDescription(*receiver.LocalDescription())
}

// writeSamples feeds a synthetic Annex-B H264 frame into track at
// sampleFrameRate until the session is closed. DELTA's outputs are
// advisory only (spec.md §1 Non-goals: no encoder reconfiguration), so
// this cadence is deliberately fixed rather than driven by
// Controller.FPS() — a real caller would apply that advice to its own
// encoder, which this demo does not have.
func (s *loopbackSession) writeSamples(track *webrtc.TrackLocalStaticSample) {
	defer close(s.done)

	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	var counter atomic.Uint32
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			nal := syntheticAnnexBFrame(counter.Add(1))
			_ = track.WriteSample(media.Sample{Data: nal, Duration: sampleInterval})
		}
	}
}

func (s *loopbackSession) close() {
	close(s.stop)
	<-s.done
	s.sender.Close()
	s.receiver.Close()
}

// syntheticAnnexBFrame builds a minimal Annex-B H264 NAL unit (IDR slice
// type) carrying deterministic filler content. Pion's H264 payloader only
// needs a valid start code and NAL header to packetize; it does not
// decode the bitstream, so the filler never needs to be a real frame.
func syntheticAnnexBFrame(seq uint32) []byte {
	const payloadLen = 512
	frame := make([]byte, 0, 5+payloadLen)
	frame = append(frame, 0x00, 0x00, 0x00, 0x01, 0x65) // start code + IDR NAL header
	for i := 0; i < payloadLen; i++ {
		// Avoid runs of zero bytes that would look like a start code.
		frame = append(frame, byte((seq+uint32(i))%250)+1)
	}
	return frame
}
