/*
@Description: wire framing for the FEC codec: fixed 11-byte packet header
@Language: Go 1.23.4
*/

package fec

import "encoding/binary"

const (
	// HdrSize is the fixed on-wire header length, padded to a uniform size
	// so MSS arithmetic has a closed form even for data packets, which only
	// need 10 of the 11 bytes.
	HdrSize = 11

	// DataSymbolHdrSize is the length prefix stored inside every symbol
	// (not on the wire for data packets, see symbol.go).
	DataSymbolHdrSize = 2
)

// ParityHeader carries the metadata that only a parity packet needs.
// DataCount is always > 0; on the wire, DataCount == 0 is what distinguishes
// a data packet from a parity packet.
type ParityHeader struct {
	DataCount   uint8
	ParityCount uint8
}

// Header is the parsed, tagged form of the 11-byte wire header. Parity is nil
// for data packets and non-nil for parity packets, collapsing to the
// DataCount==0 sentinel only at the wire boundary in EncodeHeader/DecodeHeader.
type Header struct {
	GroupID  uint64
	SymbolID uint8
	Parity   *ParityHeader
}

// SymbolSize returns the fixed symbol size implied by mss, or ErrMssTooSmall
// if mss cannot even hold a header.
func SymbolSize(mss int) (int, error) {
	if mss < HdrSize {
		return 0, ErrMssTooSmall
	}
	return mss - HdrSize, nil
}

// DataMSS returns the largest application datagram the encoder may accept
// for the given mss.
func DataMSS(mss int) (int, error) {
	sz, err := SymbolSize(mss)
	if err != nil {
		return 0, err
	}
	if sz < DataSymbolHdrSize {
		return 0, ErrMssTooSmall
	}
	return sz - DataSymbolHdrSize, nil
}

// EncodeHeader writes the 11-byte header into buf and returns HdrSize.
// buf must be at least HdrSize long; like the teacher's sealData/sealParity,
// this indexes directly into a pre-sized buffer rather than re-validating a
// length the caller already guaranteed.
func EncodeHeader(h Header, buf []byte) int {
	binary.BigEndian.PutUint64(buf[0:8], h.GroupID)
	buf[8] = h.SymbolID
	if h.Parity == nil {
		buf[9] = 0
		buf[10] = 0
		return HdrSize
	}
	buf[9] = h.Parity.DataCount
	buf[10] = h.Parity.ParityCount
	return HdrSize
}

// DecodeHeader parses the 11-byte header from buf, returning the header and
// the number of bytes consumed (always HdrSize on success).
func DecodeHeader(buf []byte) (Header, int, error) {
	if len(buf) < HdrSize {
		return Header{}, 0, ErrShortPacket
	}
	h := Header{
		GroupID:  binary.BigEndian.Uint64(buf[0:8]),
		SymbolID: buf[8],
	}
	dataCount := buf[9]
	if dataCount != 0 {
		h.Parity = &ParityHeader{
			DataCount:   dataCount,
			ParityCount: buf[10],
		}
	}
	return h, HdrSize, nil
}
