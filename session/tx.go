/*
@Description: packet transmission, batched where the platform allows it
@Language: Go 1.23.4
*/

package session

import (
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/net/ipv4"

	"fecudp/stats"
)

// send writes pkts to remote, preferring the batched ipv4 path when xconn is
// available and falling back to one WriteTo syscall per packet otherwise.
// batchSend issues one WriteBatch per chunk, so a failure partway through
// pkts may leave a prefix already sent; only the unsent remainder is
// retried through defaultSend, never the whole queue.
func send(conn net.PacketConn, xconn batchConn, remote net.Addr, pkts [][]byte, snmp *stats.Snmp) error {
	if xconn != nil && len(pkts) > 0 {
		sent, err := batchSend(xconn, remote, pkts, snmp)
		if err == nil {
			return nil
		}
		pkts = pkts[sent:]
	}
	return defaultSend(conn, remote, pkts, snmp)
}

func defaultSend(conn net.PacketConn, remote net.Addr, pkts [][]byte, snmp *stats.Snmp) error {
	nbytes, npkts := 0, 0
	for _, pkt := range pkts {
		n, err := conn.WriteTo(pkt, remote)
		if err != nil {
			return errors.WithStack(err)
		}
		nbytes += n
		npkts++
	}
	atomic.AddUint64(&snmp.OutPkts, uint64(npkts))
	atomic.AddUint64(&snmp.BytesSent, uint64(nbytes))
	return nil
}

// batchSend returns the number of leading packets of pkts it successfully
// handed to WriteBatch before any error, so the caller can resend only the
// remainder rather than the whole queue.
func batchSend(xconn batchConn, remote net.Addr, pkts [][]byte, snmp *stats.Snmp) (int, error) {
	sent := 0
	for i := 0; i < len(pkts); i += batchSize {
		end := min(i+batchSize, len(pkts))

		chunk := make([]ipv4.Message, 0, end-i)
		nbytes := 0
		for _, pkt := range pkts[i:end] {
			chunk = append(chunk, ipv4.Message{Buffers: [][]byte{pkt}, Addr: remote})
			nbytes += len(pkt)
		}

		if _, err := xconn.WriteBatch(chunk, 0); err != nil {
			return sent, errors.WithStack(err)
		}
		sent = end
		atomic.AddUint64(&snmp.OutPkts, uint64(end-i))
		atomic.AddUint64(&snmp.BytesSent, uint64(nbytes))
	}
	return sent, nil
}
