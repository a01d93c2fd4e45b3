/*
@Description: FEC encoder: accumulates data symbols for a group, seals parities on demand
@Language: Go 1.23.4
*/

package fec

import (
	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"
)

// FecEncoder accumulates data symbols for the current group and, on demand,
// computes parity symbols with a systematic Reed-Solomon code over GF(2^8).
type FecEncoder struct {
	groupID    uint64
	groupData  [][]byte // padded symbols, one per accepted data packet
	symbolSize int
}

// NewFecEncoder builds an encoder for symbols of the given size. symbolSize
// is normally obtained from SymbolSize(mss) and agreed out of band with the
// peer decoder.
func NewFecEncoder(symbolSize int) *FecEncoder {
	return &FecEncoder{symbolSize: symbolSize}
}

// GroupDataCount reports how many data symbols have been accumulated in the
// current (not yet flushed) group.
func (e *FecEncoder) GroupDataCount() int {
	return len(e.groupData)
}

// EncodeData writes a framed data packet into buf and appends the
// corresponding full-size symbol to the group buffer. It returns the number
// of bytes written, or an error if buf cannot hold the header plus all of
// data, or if data is longer than symbolSize-DataSymbolHdrSize and so would
// not fit in one symbol (the Open Question in spec.md §9 is resolved here in
// favor of rejection, so the wire-delivered and recovered paths can never
// disagree).
func (e *FecEncoder) EncodeData(data []byte, buf []byte) (int, error) {
	if len(buf) < HdrSize+len(data) {
		return 0, ErrBufferTooSmall
	}
	if len(data) > e.symbolSize-DataSymbolHdrSize {
		return 0, errors.New("fec: data larger than symbol_size minus data-symbol header")
	}

	hdr := Header{
		GroupID:  e.groupID,
		SymbolID: uint8(e.GroupDataCount()),
	}
	hdrLen := EncodeHeader(hdr, buf)
	n := copy(buf[hdrLen:], data)

	e.groupData = append(e.groupData, DataToSymbol(data, e.symbolSize))

	return hdrLen + n, nil
}

// FlushParities seals the current group: it computes parityCount parity
// symbols over the accumulated data symbols, clears the group, advances
// groupID, and returns a ParityEncoder that emits them one at a time.
func (e *FecEncoder) FlushParities(parityCount uint8) (*ParityEncoder, error) {
	if parityCount == 0 {
		return nil, errors.WithStack(errors.New("fec: flush_parities requires parity_count > 0"))
	}
	dataCount := e.GroupDataCount()
	if dataCount == 0 {
		return nil, errors.WithStack(ErrEmptyGroup)
	}

	codec, err := reedsolomon.New(dataCount, int(parityCount))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	shards := make([][]byte, dataCount+int(parityCount))
	copy(shards, e.groupData)
	for i := dataCount; i < len(shards); i++ {
		shards[i] = make([]byte, e.symbolSize)
	}
	if err := codec.Encode(shards); err != nil {
		return nil, errors.WithStack(err)
	}

	groupID := e.groupID
	e.groupData = nil
	e.groupID++

	return &ParityEncoder{
		groupID:      groupID,
		dataCount:    uint8(dataCount),
		parityCount:  parityCount,
		leftParities: shards[dataCount:],
	}, nil
}

// ParityEncoder emits the parity symbols of one sealed group, one framed
// packet per EncodeParity call, in no particular guaranteed order beyond
// "each of parityCount is emitted exactly once with the correct header".
type ParityEncoder struct {
	groupID      uint64
	dataCount    uint8
	parityCount  uint8
	leftParities [][]byte
}

// EncodeParity pops and frames one remaining parity symbol, returning false
// once all parityCount parities have been emitted.
func (p *ParityEncoder) EncodeParity(buf []byte) (int, bool) {
	n := len(p.leftParities)
	if n == 0 {
		return 0, false
	}
	parity := p.leftParities[n-1]
	p.leftParities = p.leftParities[:n-1]

	i := len(p.leftParities)
	hdr := Header{
		GroupID:  p.groupID,
		SymbolID: p.dataCount + uint8(i),
		Parity: &ParityHeader{
			DataCount:   p.dataCount,
			ParityCount: p.parityCount,
		},
	}
	hdrLen := EncodeHeader(hdr, buf)
	written := copy(buf[hdrLen:], parity)
	return hdrLen + written, true
}
