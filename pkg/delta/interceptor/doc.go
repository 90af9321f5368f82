// Package interceptor wires delta.Controller into a Pion WebRTC
// PeerConnection as the sender.
//
// # Quick Start
//
//	factory, err := interceptor.NewDeltaInterceptorFactory()
//	if err != nil {
//	    return err
//	}
//
//	i := &pioninterceptor.Registry{}
//	i.Add(factory)
//
//	api := webrtc.NewAPI(
//	    webrtc.WithMediaEngine(m),
//	    webrtc.WithInterceptorRegistry(i),
//	)
//
// # How It Works
//
// Each PeerConnection gets its own DeltaInterceptor and delta.Controller
// (NewInterceptor is called once per connection by the registry).
// BindRTCPWriter snoops our own outgoing Sender Reports to learn the
// local SSRC. BindRTCPReader then parses every inbound compound RTCP
// packet for the reception report addressed to that SSRC, computes RTT
// via RFC 3550 §A.8's LSR+DLSR arithmetic and loss from FractionLost,
// and feeds both into Controller.ProcessSample.
//
// DELTA itself never writes to the wire: its bitrate/fps/fec_ratio
// outputs are advisory, read via Controller()'s getters and applied by
// the caller to its own encoder and FEC pacing.
package interceptor
