/*
@Description: batched PacketConn interface for platforms that support recvmmsg/sendmmsg
@Language: Go 1.23.4
*/

package session

import "golang.org/x/net/ipv4"

// batchSize caps how many wire packets one WriteBatch call attempts.
const batchSize = 16

// batchConn is implemented by *ipv4.PacketConn on platforms where the
// kernel exposes batched datagram I/O; a plain net.PacketConn falls back
// to one syscall per packet in tx.go.
type batchConn interface {
	WriteBatch(ms []ipv4.Message, flags int) (int, error)
	ReadBatch(ms []ipv4.Message, flags int) (int, error)
}
