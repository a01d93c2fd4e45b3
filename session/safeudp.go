/*
@Description: Dial / Listen entry points for FEC-protected, smux-multiplexed connections
@Language: Go 1.23.4
*/

package session

import (
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/xtaci/smux"

	"fecudp/fec"
	"fecudp/stats"
)

// Dial opens a FEC-protected connection to addr and returns its one
// smux-multiplexed stream.
func Dial(addr string, cfg *Config) (*Conn, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	sess, err := NewSession(conn, conn.RemoteAddr(), cfg)
	if err != nil {
		return nil, err
	}
	atomic.AddUint64(&stats.Default.ActiveOpens, 1)

	dataMSS, err := fec.DataMSS(cfg.MSS)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	stream := newSessionStream(sess, dataMSS)
	muxSess, err := smux.Client(stream, muxConfig(dataMSS))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	muxStream, err := muxSess.OpenStream()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Conn{stream: muxStream, sess: muxSess}, nil
}

// Listen accepts FEC-protected, smux-multiplexed connections on addr, one
// per distinct source address seen on the shared socket.
func Listen(addr string, cfg *Config) (*Listener, error) {
	return newListener(addr, cfg)
}
