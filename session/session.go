/*
@Description: Session wires the FEC codec to a real net.PacketConn
@Language: Go 1.23.4
*/

package session

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/ipv4"

	cryptpkg "fecudp/crypto"
	"fecudp/fec"
	"fecudp/ringbuffer"
	"fecudp/stats"
)

// Session is the external collaborator the codec spec assumes: it owns the
// socket, the cipher, and the send/flush policy, and drives fec.FecEncoder
// and fec.FecDecoder across packet boundaries. The codec itself never
// imports net.
type Session struct {
	conn   net.PacketConn
	xconn  batchConn
	remote net.Addr
	block  cryptpkg.BlockCrypt
	cfg    *Config
	snmp   *stats.Snmp

	mu          sync.Mutex
	enc         *fec.FecEncoder
	dec         *fec.FecDecoder
	recovered   *ringbuffer.RingBuffer[[]byte]
	flushArmed  bool
	loss        lossTracker

	rawBuf []byte // reused scratch buffer for inbound decryption

	closeOnce sync.Once
	die       chan struct{}
}

// cryptoOverhead is a generous upper bound on crypto framing (salt/nonce/tag)
// added on top of an MSS-sized plaintext packet.
const cryptoOverhead = 64

// NewSession builds a Session over conn talking to remote, validating cfg
// and constructing the matching FecEncoder/FecDecoder pair.
func NewSession(conn net.PacketConn, remote net.Addr, cfg *Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	symbolSize, err := fec.SymbolSize(cfg.MSS)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	dec, err := fec.NewFecDecoder(symbolSize, cfg.MaxGroupSize, cfg.WindowSize)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s := &Session{
		conn:      conn,
		remote:    remote,
		cfg:       cfg,
		snmp:      stats.Default,
		enc:       fec.NewFecEncoder(symbolSize),
		dec:       dec,
		recovered: ringbuffer.New[[]byte](cfg.MaxGroupSize),
		rawBuf:    make([]byte, cfg.MSS+cryptoOverhead),
		die:       make(chan struct{}),
	}

	if cfg.Cipher != "" {
		block, name := cryptpkg.Select(cfg.Cipher, cfg.Key)
		if block == nil {
			return nil, errors.New("session: no usable cipher for configured key")
		}
		s.block = block
		cfg.Cipher = name
	}

	if udpConn, ok := conn.(*net.UDPConn); ok {
		s.xconn = ipv4.NewPacketConn(udpConn)
	}

	atomic.AddUint64(&s.snmp.CurrEstab, 1)
	return s, nil
}

// SendDatagram frames data as a FEC data packet, seals and transmits it, and
// arms a bounded-latency parity flush for the group it belongs to.
func (s *Session) SendDatagram(data []byte) error {
	s.mu.Lock()

	buf := make([]byte, s.cfg.MSS)
	n, err := s.enc.EncodeData(data, buf)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	pkt := buf[:n]

	first := s.enc.GroupDataCount() == 1
	full := s.enc.GroupDataCount()+int(s.cfg.ParityCount) >= s.cfg.MaxGroupSize
	s.mu.Unlock()

	if err := s.sealAndSend(pkt); err != nil {
		return err
	}

	switch {
	case full:
		return s.Flush()
	case first:
		s.armFlushTimer()
	}
	return nil
}

// Flush seals the current group's parities (if any are pending) and
// transmits them. It is safe to call when no data is pending.
func (s *Session) Flush() error {
	s.mu.Lock()
	if s.enc.GroupDataCount() == 0 {
		s.flushArmed = false
		s.mu.Unlock()
		return nil
	}
	parityEnc, err := s.enc.FlushParities(s.cfg.ParityCount)
	s.flushArmed = false
	s.mu.Unlock()
	if err != nil {
		return err
	}

	for {
		buf := make([]byte, s.cfg.MSS)
		n, ok := parityEnc.EncodeParity(buf)
		if !ok {
			break
		}
		if err := s.sealAndSend(buf[:n]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) armFlushTimer() {
	s.mu.Lock()
	if s.flushArmed {
		s.mu.Unlock()
		return
	}
	s.flushArmed = true
	s.mu.Unlock()

	SystemTimer.Put(func() {
		select {
		case <-s.die:
			return
		default:
		}
		_ = s.Flush()
	}, time.Now().Add(s.cfg.FlushInterval))
}

func (s *Session) sealAndSend(pkt []byte) error {
	wire := pkt
	if s.block != nil {
		sealed, err := s.block.Encrypt(pkt)
		if err != nil {
			return errors.WithStack(err)
		}
		wire = sealed
	}
	return send(s.conn, s.xconn, s.remote, [][]byte{wire}, s.snmp)
}

// ReadDatagram blocks until either a directly-delivered data packet or a
// previously FEC-recovered datagram is available, copying it into buf.
func (s *Session) ReadDatagram(buf []byte) (int, error) {
	s.mu.Lock()
	if v, ok := s.recovered.Pop(); ok {
		s.mu.Unlock()
		return copy(buf, v), nil
	}
	s.mu.Unlock()

	for {
		n, _, err := s.conn.ReadFrom(s.rawBuf)
		if err != nil {
			return 0, err
		}
		atomic.AddUint64(&s.snmp.InPkts, 1)
		atomic.AddUint64(&s.snmp.BytesReceived, uint64(n))

		raw := s.rawBuf[:n]
		if s.block != nil {
			plain, err := s.block.Decrypt(raw)
			if err != nil {
				atomic.AddUint64(&s.snmp.InErrs, 1)
				continue
			}
			raw = plain
		}

		s.mu.Lock()
		hdrLen, ok := s.dec.Decode(raw, func(b []byte) {
			cp := append([]byte(nil), b...)
			s.recovered.Push(cp)
		})
		var popped []byte
		var havePopped bool
		if !ok {
			popped, havePopped = s.recovered.Pop()
		}
		s.loss.Sample(!ok && havePopped)
		s.mu.Unlock()

		if ok {
			return copy(buf, raw[hdrLen:]), nil
		}
		if havePopped {
			return copy(buf, popped), nil
		}
		// neither a data packet nor a fresh recovery: loop for the next one
	}
}

// Close releases the scheduled flush timer's reference to this session; the
// underlying net.PacketConn is owned by the caller (Dial/Listen), not here.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.die)
		atomic.AddUint64(&s.snmp.CurrEstab, ^uint64(0))
	})
	return nil
}

// Stats returns the shared statistics block this session reports into.
func (s *Session) Stats() *stats.Snmp { return s.snmp }

// RecoveryPeriod reports the length, in samples, of the first run of
// recovered datagrams (rising edge to falling edge) found scanning the
// sample buffer from its first slot, or -1 if no such complete run is
// present in the current sample window. A short, stable
// period suggests a periodic upstream loss source rather than noise.
func (s *Session) RecoveryPeriod() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loss.FindPeriod(true)
}
