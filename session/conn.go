/*
@Description: smux-multiplexed Conn over a FEC-protected Session
@Language: Go 1.23.4
*/

package session

import (
	"net"
	"time"

	"github.com/xtaci/smux"
)

// muxFrameOverhead is smux's per-frame header size; MaxFrameSize must leave
// this much room inside a session's data_mss so one mux frame always fits
// in one FEC-protected datagram.
const muxFrameOverhead = 8

func muxConfig(dataMSS int) *smux.Config {
	cfg := smux.DefaultConfig()
	cfg.MaxFrameSize = dataMSS - muxFrameOverhead
	return cfg
}

// sessionStream adapts a Session's datagram Read/Write into the ordered
// byte stream smux expects underneath it. smux's own framing reads exact
// byte counts across possibly several Read calls, so a datagram that isn't
// fully consumed by one Read is held in pending for the next call.
type sessionStream struct {
	sess    *Session
	scratch []byte
	pending []byte
}

func newSessionStream(sess *Session, dataMSS int) *sessionStream {
	return &sessionStream{sess: sess, scratch: make([]byte, dataMSS)}
}

func (s *sessionStream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		n, err := s.sess.ReadDatagram(s.scratch)
		if err != nil {
			return 0, err
		}
		s.pending = s.scratch[:n]
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *sessionStream) Write(p []byte) (int, error) {
	if err := s.sess.SendDatagram(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *sessionStream) Close() error {
	return s.sess.Close()
}

// Conn is a net.Conn backed by one smux stream multiplexed over a Session.
type Conn struct {
	stream *smux.Stream
	sess   *smux.Session
}

func (c *Conn) Read(b []byte) (int, error) {
	return c.stream.Read(b)
}

func (c *Conn) Write(b []byte) (int, error) {
	return c.stream.Write(b)
}

func (c *Conn) Close() error {
	return c.stream.Close()
}

func (c *Conn) LocalAddr() net.Addr {
	return c.sess.LocalAddr()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.sess.RemoteAddr()
}

func (c *Conn) SetDeadline(t time.Time) error {
	return c.stream.SetDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.stream.SetReadDeadline(t)
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.stream.SetWriteDeadline(t)
}
