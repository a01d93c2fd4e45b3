/*
@Description: accept loop demultiplexing one shared UDP socket into per-peer Sessions
@Language: Go 1.23.4
*/

package session

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/xtaci/smux"

	"fecudp/fec"
	"fecudp/stats"
)

// inboundQueueDepth bounds how many not-yet-consumed packets a newly
// discovered peer can have buffered before the shared read loop starts
// dropping its packets rather than blocking on a slow accept.
const inboundQueueDepth = 128

// demuxPacketConn presents one peer's slice of a shared net.PacketConn as
// its own net.PacketConn, so each peer gets an independent Session without
// a dedicated socket. Reads are fed by the Listener's single read loop;
// writes go straight to the shared socket addressed at the peer.
type demuxPacketConn struct {
	shared net.PacketConn
	remote net.Addr
	in     chan []byte
	die    chan struct{}
	once   sync.Once
}

func newDemuxPacketConn(shared net.PacketConn, remote net.Addr) *demuxPacketConn {
	return &demuxPacketConn{
		shared: shared,
		remote: remote,
		in:     make(chan []byte, inboundQueueDepth),
		die:    make(chan struct{}),
	}
}

func (c *demuxPacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	select {
	case b := <-c.in:
		return copy(p, b), c.remote, nil
	case <-c.die:
		return 0, nil, net.ErrClosed
	}
}

func (c *demuxPacketConn) WriteTo(p []byte, _ net.Addr) (int, error) {
	return c.shared.WriteTo(p, c.remote)
}

func (c *demuxPacketConn) Close() error {
	c.once.Do(func() { close(c.die) })
	return nil
}

func (c *demuxPacketConn) LocalAddr() net.Addr { return c.shared.LocalAddr() }

// Deadlines are not meaningful on a facade fed by the shared read loop;
// Session never calls these today.
func (c *demuxPacketConn) SetDeadline(time.Time) error      { return nil }
func (c *demuxPacketConn) SetReadDeadline(time.Time) error  { return nil }
func (c *demuxPacketConn) SetWriteDeadline(time.Time) error { return nil }

type acceptResult struct {
	conn *Conn
	err  error
}

// Listener accepts smux-multiplexed Conns, one per distinct source address
// seen on a shared UDP socket, grounded on the same sessions-by-address
// demultiplexing a KCP listener uses over raw UDP.
type Listener struct {
	conn    net.PacketConn
	sessCfg *Config
	muxCfg  *smux.Config

	mu      sync.Mutex
	clients map[string]*demuxPacketConn

	chAccept chan acceptResult
	die      chan struct{}
	closeOnce sync.Once
}

func newListener(addr string, cfg *Config) (*Listener, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dataMSS, err := fec.DataMSS(cfg.MSS)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	l := &Listener{
		conn:     pc,
		sessCfg:  cfg,
		muxCfg:   muxConfig(dataMSS),
		clients:  make(map[string]*demuxPacketConn),
		chAccept: make(chan acceptResult, 16),
		die:      make(chan struct{}),
	}
	go l.readLoop()
	return l, nil
}

func (l *Listener) readLoop() {
	buf := make([]byte, l.sessCfg.MSS+cryptoOverhead)
	for {
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			select {
			case l.chAccept <- acceptResult{err: errors.WithStack(err)}:
			case <-l.die:
			}
			return
		}
		pkt := append([]byte(nil), buf[:n]...)
		l.dispatch(from, pkt)
	}
}

func (l *Listener) dispatch(from net.Addr, pkt []byte) {
	key := from.String()

	l.mu.Lock()
	dc, known := l.clients[key]
	if !known {
		dc = newDemuxPacketConn(l.conn, from)
		l.clients[key] = dc
	}
	l.mu.Unlock()

	if !known {
		go l.accept(dc)
	}

	select {
	case dc.in <- pkt:
	case <-dc.die:
	default:
		// peer's queue is full; drop rather than stall the shared socket
	}
}

func (l *Listener) accept(dc *demuxPacketConn) {
	sess, err := NewSession(dc, dc.remote, l.sessCfg)
	if err != nil {
		l.chAccept <- acceptResult{err: err}
		return
	}
	atomic.AddUint64(&stats.Default.PassiveOpens, 1)

	dataMSS := l.muxCfg.MaxFrameSize + muxFrameOverhead
	stream := newSessionStream(sess, dataMSS)
	muxSess, err := smux.Server(stream, l.muxCfg)
	if err != nil {
		l.chAccept <- acceptResult{err: errors.WithStack(err)}
		return
	}

	muxStream, err := muxSess.AcceptStream()
	if err != nil {
		l.chAccept <- acceptResult{err: errors.WithStack(err)}
		return
	}

	l.chAccept <- acceptResult{conn: &Conn{stream: muxStream, sess: muxSess}}
}

// Accept returns the next multiplexed connection from a newly seen peer.
func (l *Listener) Accept() (net.Conn, error) {
	select {
	case r := <-l.chAccept:
		if r.err != nil {
			return nil, r.err
		}
		return r.conn, nil
	case <-l.die:
		return nil, net.ErrClosed
	}
}

func (l *Listener) Close() error {
	l.closeOnce.Do(func() { close(l.die) })
	return l.conn.Close()
}

func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}
