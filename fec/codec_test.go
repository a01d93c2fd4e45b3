/*
@Description: encoder/decoder scenario tests mirroring the seed test suite
@Language: Go 1.23.4
*/

package fec

import (
	"bytes"
	"math/rand"
	"testing"
)

// Scenario 1: data pass-through.
func TestDataPassThrough(t *testing.T) {
	const mss = 16
	symbolSize, err := SymbolSize(mss)
	if err != nil {
		t.Fatal(err)
	}
	enc := NewFecEncoder(symbolSize)
	dec, err := NewFecDecoder(symbolSize, 20, 32)
	if err != nil {
		t.Fatal(err)
	}

	data := []byte{0, 1, 2}
	buf := make([]byte, 14)
	n, err := enc.EncodeData(data, buf)
	if err != nil {
		t.Fatalf("EncodeData: %v", err)
	}
	pkt := buf[:n]

	hdrLen, ok := dec.Decode(pkt, func([]byte) { t.Fatal("unexpected recovery callback") })
	if !ok {
		t.Fatal("expected Decode to admit the data packet")
	}
	if hdrLen != HdrSize {
		t.Fatalf("hdrLen = %d, want %d", hdrLen, HdrSize)
	}
	if !bytes.Equal(pkt[hdrLen:], data) {
		t.Fatalf("payload = %v, want %v", pkt[hdrLen:], data)
	}
}

// Scenario 2: single-loss recovery with one parity.
func TestSingleLossRecoveryWithOneParity(t *testing.T) {
	const mss = 16
	symbolSize, err := SymbolSize(mss)
	if err != nil {
		t.Fatal(err)
	}
	enc := NewFecEncoder(symbolSize)
	dec, err := NewFecDecoder(symbolSize, 20, 32)
	if err != nil {
		t.Fatal(err)
	}

	data := []byte{0, 1, 2}
	buf := make([]byte, mss)
	if _, err := enc.EncodeData(data, buf); err != nil {
		t.Fatalf("EncodeData: %v", err)
	}
	if enc.GroupDataCount() != 1 {
		t.Fatalf("GroupDataCount = %d, want 1", enc.GroupDataCount())
	}

	parityEnc, err := enc.FlushParities(1)
	if err != nil {
		t.Fatalf("FlushParities: %v", err)
	}
	n, ok := parityEnc.EncodeParity(buf)
	if !ok {
		t.Fatal("expected one parity packet")
	}
	pkt := buf[:n]

	var recovered [][]byte
	_, ok = dec.Decode(pkt, func(b []byte) {
		cp := append([]byte(nil), b...)
		recovered = append(recovered, cp)
	})
	if ok {
		t.Fatal("Decode on a parity packet must return ok=false")
	}
	if len(recovered) != 1 {
		t.Fatalf("expected exactly 1 recovered datagram, got %d", len(recovered))
	}
	if !bytes.Equal(recovered[0], data) {
		t.Fatalf("recovered = %v, want %v", recovered[0], data)
	}
}

// Scenario 3: oversize symbol_id rejection.
func TestOversizeSymbolIDRejected(t *testing.T) {
	const mss = 64
	symbolSize, err := SymbolSize(mss)
	if err != nil {
		t.Fatal(err)
	}
	const maxGroupSize = 4
	dec, err := NewFecDecoder(symbolSize, maxGroupSize, 8)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, mss)
	hdr := Header{GroupID: 0, SymbolID: maxGroupSize}
	n := EncodeHeader(hdr, buf)
	pkt := buf[:n]

	_, ok := dec.Decode(pkt, func([]byte) { t.Fatal("unexpected recovery callback") })
	if ok {
		t.Fatal("expected Decode to reject oversize symbol_id")
	}
}

// Scenario 4: window eviction.
func TestWindowEviction(t *testing.T) {
	const mss = 64
	symbolSize, err := SymbolSize(mss)
	if err != nil {
		t.Fatal(err)
	}
	const maxGroupSize = 4
	const windowSize = 2
	dec, err := NewFecDecoder(symbolSize, maxGroupSize, windowSize)
	if err != nil {
		t.Fatal(err)
	}

	dataPacket := func(groupID uint64) []byte {
		buf := make([]byte, mss)
		hdr := Header{GroupID: groupID, SymbolID: 0}
		n := EncodeHeader(hdr, buf)
		n += copy(buf[n:], []byte{7, 7, 7})
		return buf[:n]
	}

	if _, ok := dec.Decode(dataPacket(0), nil); !ok {
		t.Fatal("group 0 data packet should be admitted")
	}
	if _, ok := dec.Decode(dataPacket(1), nil); !ok {
		t.Fatal("group 1 data packet should be admitted")
	}
	// Admitting group 3 must evict group 0 (3 - windowSize == 1 > 0).
	if _, ok := dec.Decode(dataPacket(3), nil); !ok {
		t.Fatal("group 3 data packet should be admitted")
	}

	parityPkt := func(groupID uint64, dataCount, parityCount uint8) []byte {
		buf := make([]byte, mss)
		hdr := Header{GroupID: groupID, SymbolID: dataCount, Parity: &ParityHeader{DataCount: dataCount, ParityCount: parityCount}}
		n := EncodeHeader(hdr, buf)
		return buf[:n+symbolSize]
	}

	recoveredAny := false
	dec.Decode(parityPkt(0, 1, 1), func([]byte) { recoveredAny = true })
	if recoveredAny {
		t.Fatal("group 0 was evicted; a late parity for it must not recover anything")
	}
}

// Eviction must be keyed by numeric group_id, not arrival order: the spec
// explicitly allows the decoder to see groups out of order, so a smaller
// group_id admitted after a larger one still has to be evicted once it
// falls behind the window.
func TestWindowEvictionIsOrderedByGroupIDNotArrival(t *testing.T) {
	const mss = 64
	symbolSize, err := SymbolSize(mss)
	if err != nil {
		t.Fatal(err)
	}
	const maxGroupSize = 4
	const windowSize = 2
	dec, err := NewFecDecoder(symbolSize, maxGroupSize, windowSize)
	if err != nil {
		t.Fatal(err)
	}

	dataPacket := func(groupID uint64) []byte {
		buf := make([]byte, mss)
		hdr := Header{GroupID: groupID, SymbolID: 0}
		n := EncodeHeader(hdr, buf)
		n += copy(buf[n:], []byte{7, 7, 7})
		return buf[:n]
	}

	// Arrival order is [10, 1], not numeric order: group 1 arrives after
	// group 10 even though its group_id is far smaller.
	if _, ok := dec.Decode(dataPacket(10), nil); !ok {
		t.Fatal("group 10 data packet should be admitted")
	}
	if _, ok := dec.Decode(dataPacket(1), nil); !ok {
		t.Fatal("group 1 data packet should be admitted")
	}
	if len(dec.window) != 2 {
		t.Fatalf("expected both groups resident, got %d", len(dec.window))
	}

	// Admitting group 12 must evict every group_id < 12 - windowSize == 10,
	// which includes the stale group 1 even though it arrived most recently.
	if _, ok := dec.Decode(dataPacket(12), nil); !ok {
		t.Fatal("group 12 data packet should be admitted")
	}
	if _, present := dec.window[1]; present {
		t.Fatal("group 1 should have been evicted despite arriving after group 10")
	}
	if _, present := dec.window[10]; !present {
		t.Fatal("group 10 should still be resident: 10 is not < minGroupID 10")
	}
	if _, present := dec.window[12]; !present {
		t.Fatal("group 12 should have been admitted")
	}
}

// Scenario 5: header-format negative test.
func TestTruncatedHeaderRejected(t *testing.T) {
	buf := make([]byte, HdrSize-1)
	if _, _, err := DecodeHeader(buf); err == nil {
		t.Fatal("expected decode error for truncated header")
	}
}

// Scenario 6: parity-only group is non-decodable.
func TestParityOnlyGroupNonDecodable(t *testing.T) {
	const mss = 64
	symbolSize, err := SymbolSize(mss)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := NewFecDecoder(symbolSize, 20, 32)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, mss)
	hdr := Header{GroupID: 0, SymbolID: 3, Parity: &ParityHeader{DataCount: 3, ParityCount: 1}}
	n := EncodeHeader(hdr, buf)
	pkt := buf[:n+symbolSize]

	called := false
	_, ok := dec.Decode(pkt, func([]byte) { called = true })
	if ok || called {
		t.Fatal("a lone parity packet must not trigger recovery")
	}
}

// Erasure recovery property: losing up to m of k+m packets is always
// recoverable, regardless of arrival order.
func TestErasureRecoveryProperty(t *testing.T) {
	const mss = 64
	symbolSize, err := SymbolSize(mss)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 20; trial++ {
		k := 2 + rng.Intn(5)
		m := 1 + rng.Intn(3)

		enc := NewFecEncoder(symbolSize)
		dec, err := NewFecDecoder(symbolSize, 64, 32)
		if err != nil {
			t.Fatal(err)
		}

		original := make([][]byte, k)
		packets := make([][]byte, 0, k+m)
		for i := 0; i < k; i++ {
			data := make([]byte, 1+rng.Intn(symbolSize-DataSymbolHdrSize))
			rng.Read(data)
			original[i] = data

			buf := make([]byte, mss)
			n, err := enc.EncodeData(data, buf)
			if err != nil {
				t.Fatal(err)
			}
			packets = append(packets, append([]byte(nil), buf[:n]...))
		}

		parityEnc, err := enc.FlushParities(uint8(m))
		if err != nil {
			t.Fatal(err)
		}
		for {
			buf := make([]byte, mss)
			n, ok := parityEnc.EncodeParity(buf)
			if !ok {
				break
			}
			packets = append(packets, append([]byte(nil), buf[:n]...))
		}

		// Drop up to m arbitrary packets from the combined k+m set.
		loss := rng.Intn(m + 1)
		lostIdx := make(map[int]bool)
		for len(lostIdx) < loss {
			lostIdx[rng.Intn(len(packets))] = true
		}
		var survivors [][]byte
		lostData := make(map[int]bool)
		for i, pkt := range packets {
			if lostIdx[i] {
				if i < k {
					lostData[i] = true
				}
				continue
			}
			survivors = append(survivors, pkt)
		}
		rng.Shuffle(len(survivors), func(i, j int) { survivors[i], survivors[j] = survivors[j], survivors[i] })

		recovered := make(map[string][]byte)
		for _, pkt := range survivors {
			dec.Decode(pkt, func(b []byte) {
				recovered[string(append([]byte(nil), b...))] = append([]byte(nil), b...)
			})
		}

		for i := range lostData {
			if _, ok := recovered[string(original[i])]; !ok {
				t.Fatalf("trial %d: lost data packet %d (k=%d m=%d loss=%d) was not recovered", trial, i, k, m, loss)
			}
		}
	}
}

// Idempotence: feeding the same packet twice yields the same recoveries as once.
func TestDuplicatePacketsAreIdempotent(t *testing.T) {
	const mss = 16
	symbolSize, err := SymbolSize(mss)
	if err != nil {
		t.Fatal(err)
	}
	enc := NewFecEncoder(symbolSize)
	dec, err := NewFecDecoder(symbolSize, 20, 32)
	if err != nil {
		t.Fatal(err)
	}

	data := []byte{9, 9, 9}
	buf := make([]byte, mss)
	n, err := enc.EncodeData(data, buf)
	if err != nil {
		t.Fatal(err)
	}
	dataPkt := append([]byte(nil), buf[:n]...)

	parityEnc, err := enc.FlushParities(1)
	if err != nil {
		t.Fatal(err)
	}
	n, ok := parityEnc.EncodeParity(buf)
	if !ok {
		t.Fatal("expected a parity packet")
	}
	parityPkt := append([]byte(nil), buf[:n]...)

	// Deliver data, then parity twice: second parity delivery is a no-op
	// recovery because the data slot is already present.
	dec.Decode(dataPkt, func([]byte) { t.Fatal("no recovery expected when data already present") })

	var firstRecovered, secondRecovered int
	dec.Decode(parityPkt, func([]byte) { firstRecovered++ })
	dec.Decode(parityPkt, func([]byte) { secondRecovered++ })

	if firstRecovered != 0 || secondRecovered != 0 {
		t.Fatalf("expected no recoveries once data is present, got %d then %d", firstRecovered, secondRecovered)
	}
}

// Window bound: resident group count never exceeds window_size.
func TestWindowBound(t *testing.T) {
	const mss = 32
	symbolSize, err := SymbolSize(mss)
	if err != nil {
		t.Fatal(err)
	}
	const windowSize = 3
	dec, err := NewFecDecoder(symbolSize, 8, windowSize)
	if err != nil {
		t.Fatal(err)
	}

	for gid := uint64(0); gid < 50; gid++ {
		buf := make([]byte, mss)
		hdr := Header{GroupID: gid, SymbolID: 0}
		n := EncodeHeader(hdr, buf)
		n += copy(buf[n:], []byte{1, 2, 3})
		dec.Decode(buf[:n], nil)

		if uint64(len(dec.window)) > windowSize {
			t.Fatalf("window grew to %d entries, want <= %d", len(dec.window), windowSize)
		}
	}
}

func TestFlushParitiesOnEmptyGroup(t *testing.T) {
	enc := NewFecEncoder(32)
	if _, err := enc.FlushParities(1); err == nil {
		t.Fatal("expected an error flushing an empty group")
	}
}

func TestEncodeDataRejectsUndersizedBuffer(t *testing.T) {
	enc := NewFecEncoder(32)
	buf := make([]byte, HdrSize)
	if _, err := enc.EncodeData([]byte{1, 2, 3}, buf); err != ErrBufferTooSmall {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
}
