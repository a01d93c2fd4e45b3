/*
@Description: FEC decoder: bounded sliding window over groups, erasure recovery on parity arrival
@Language: Go 1.23.4
*/

package fec

import (
	"container/heap"
	"sync/atomic"

	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"

	"fecudp/stats"
)

// group is the decoder-side accumulator for one encoding group: a sparse
// vector of received symbols indexed by symbol_id. It carries no stored
// data_count; that is only learned when a parity symbol for the group
// arrives.
type group struct {
	symbols [][]byte
}

func (g *group) push(symbolID int, symbol []byte) {
	for len(g.symbols) <= symbolID {
		g.symbols = append(g.symbols, nil)
	}
	g.symbols[symbolID] = symbol
}

// recover grows the slot vector to cover the full (dataCount+parityCount)
// shard set, attempts Reed-Solomon reconstruction of any missing data
// slots, and returns the recovered data-symbol bytes for slots that were
// missing before this call. A nil return (possibly empty) means
// reconstruction did not run or did not add anything new; it is never an
// error the caller needs to react to.
func (g *group) recover(dataCount, parityCount int) [][]byte {
	total := dataCount + parityCount
	for len(g.symbols) < total {
		g.symbols = append(g.symbols, nil)
	}

	missing := make([]int, 0, dataCount)
	for i := 0; i < dataCount; i++ {
		if g.symbols[i] == nil {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		atomic.AddUint64(&stats.Default.FECFullShardSet, 1)
		return nil
	}

	codec, err := reedsolomon.New(dataCount, parityCount)
	if err != nil {
		atomic.AddUint64(&stats.Default.FECErrs, 1)
		return nil
	}

	shards := make([][]byte, total)
	copy(shards, g.symbols[:total])
	if err := codec.ReconstructData(shards); err != nil {
		// RsUnderdetermined or similar: fewer than dataCount shards present.
		atomic.AddUint64(&stats.Default.FECErrs, 1)
		return nil
	}

	recovered := make([][]byte, 0, len(missing))
	for _, i := range missing {
		g.symbols[i] = shards[i]
		recovered = append(recovered, shards[i])
	}
	atomic.AddUint64(&stats.Default.FECRecovered, uint64(len(recovered)))
	return recovered
}

// groupIDHeap is a min-heap of resident group IDs, giving the decoder O(log n)
// access to the numerically smallest group regardless of the order groups
// arrived in.
type groupIDHeap []uint64

func (h groupIDHeap) Len() int            { return len(h) }
func (h groupIDHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h groupIDHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *groupIDHeap) Push(x any)         { *h = append(*h, x.(uint64)) }
func (h *groupIDHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// FecDecoder maintains a bounded sliding window of groups, admits received
// symbols, runs erasure recovery when a parity arrives, and exposes
// recovered datagrams through the recoverCb passed to Decode.
type FecDecoder struct {
	windowSize   uint64
	window       map[uint64]*group
	order        groupIDHeap // resident group_ids, smallest first
	symbolSize   int
	maxGroupSize int
}

// NewFecDecoder builds a decoder. windowSize must be > 0; symbolSize must
// agree with the peer encoder's SymbolSize(mss); maxGroupSize bounds
// symbol_id to reject out-of-policy or garbage packets before allocating.
func NewFecDecoder(symbolSize, maxGroupSize int, windowSize uint64) (*FecDecoder, error) {
	if windowSize == 0 {
		return nil, errors.WithStack(ErrConfigInvalid)
	}
	return &FecDecoder{
		windowSize:   windowSize,
		window:       make(map[uint64]*group),
		symbolSize:   symbolSize,
		maxGroupSize: maxGroupSize,
	}, nil
}

// Decode parses and admits one packet. For an admitted data packet it
// returns (headerLen, true) so the caller can slice buf[headerLen:] in
// place as the delivered datagram. For a parity packet, or any rejected
// packet, it returns (0, false); recovered datagrams (if any) were already
// delivered synchronously via recoverCb before Decode returns.
func (d *FecDecoder) Decode(buf []byte, recoverCb func([]byte)) (int, bool) {
	hdr, hdrLen, err := DecodeHeader(buf)
	if err != nil {
		if err == ErrShortPacket {
			atomic.AddUint64(&stats.Default.ShortPackets, 1)
		}
		return 0, false
	}
	if int(hdr.SymbolID) >= d.maxGroupSize {
		return 0, false
	}

	payload := buf[hdrLen:]
	var symbol []byte
	if hdr.Parity != nil {
		symbol = payload
	} else {
		symbol = DataToSymbol(payload, d.symbolSize)
	}

	d.evict(hdr.GroupID)

	g, present := d.window[hdr.GroupID]
	if !present {
		if uint64(len(d.window)) >= d.windowSize {
			return 0, false
		}
		g = &group{}
		d.window[hdr.GroupID] = g
		heap.Push(&d.order, hdr.GroupID)
		atomic.StoreUint64(&stats.Default.FECGroupsActive, uint64(len(d.window)))
	}

	g.push(int(hdr.SymbolID), symbol)

	if hdr.Parity != nil {
		atomic.AddUint64(&stats.Default.FECParitySeen, 1)
		for _, recoveredSymbol := range g.recover(int(hdr.Parity.DataCount), int(hdr.Parity.ParityCount)) {
			out := make([]byte, len(recoveredSymbol))
			n, err := SymbolToData(recoveredSymbol, out)
			if err != nil {
				continue
			}
			recoverCb(out[:n])
		}
		return 0, false
	}

	return hdrLen, true
}

// evict drops every resident group numerically smaller than
// newGroupID - windowSize, regardless of the order those groups were
// admitted in: d.order is a min-heap over actual group_id values, not an
// arrival-order queue, so a numerically small group admitted after a
// numerically large one is still evicted as soon as it falls outside the
// window.
func (d *FecDecoder) evict(newGroupID uint64) {
	if newGroupID < d.windowSize {
		return // saturating subtraction: nothing to evict yet
	}
	minGroupID := newGroupID - d.windowSize

	for d.order.Len() > 0 && d.order[0] < minGroupID {
		groupID := heap.Pop(&d.order).(uint64)
		delete(d.window, groupID)
		atomic.AddUint64(&stats.Default.FECGroupsEvicted, 1)
	}
	atomic.StoreUint64(&stats.Default.FECGroupsActive, uint64(len(d.window)))
}
