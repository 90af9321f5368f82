package interceptor

import "sync/atomic"

// senderIdentity tracks the local sender SSRC this interceptor is bound
// to. It is learned by snooping our own outgoing Sender Reports rather
// than configured up front, since Pion assigns SSRCs during negotiation.
// atomic.Uint32 matches the teacher's atomic-extension-ID pattern: one
// writer (BindRTCPWriter's wrapped writer) publishes it, one reader
// (BindRTCPReader's wrapped reader) consumes it, both on hot paths.
type senderIdentity struct {
	ssrc atomic.Uint32
}

// learn records ssrc the first time it's observed. Subsequent calls with
// a different value are ignored: a single interceptor instance binds to
// exactly one local sender stream for its lifetime.
func (s *senderIdentity) learn(ssrc uint32) {
	s.ssrc.CompareAndSwap(0, ssrc)
}

// known reports the learned SSRC and whether one has been observed yet.
func (s *senderIdentity) known() (uint32, bool) {
	v := s.ssrc.Load()
	return v, v != 0
}
