/*
@Description: SNMP-style statistics collection for the FEC codec and session layer
@Language: Go 1.23.4
*/

package stats

import (
	"fmt"
	"sync/atomic"
)

// Snmp contains all statistical counters for the codec and session. Every
// field is read and written with sync/atomic, so a hot packet path never
// needs a mutex to bump a counter.
type Snmp struct {
	// Traffic
	BytesSent     uint64
	BytesReceived uint64
	InPkts        uint64
	OutPkts       uint64

	// Session
	ActiveOpens  uint64
	PassiveOpens uint64
	CurrEstab    uint64

	// Errors
	InErrs       uint64
	ShortPackets uint64

	// FEC
	FECFullShardSet uint64 // groups where every data symbol arrived, no recovery needed
	FECRecovered    uint64 // datagrams recovered via erasure decoding
	FECErrs         uint64 // RS failures during decoder recovery
	FECParitySeen   uint64 // parity packets admitted
	FECGroupsActive uint64 // groups currently resident in the decoder window
	FECGroupsEvicted uint64 // groups dropped by window eviction, recovered or not

	// Ring-buffer occupancy, sampled by callers that embed one
	RingBufferSndQueue uint64
	RingBufferRcvQueue uint64
}

// New returns a zeroed statistics block.
func New() *Snmp {
	return new(Snmp)
}

// Header returns column headers in the same order as ToSlice.
func (s *Snmp) Header() []string {
	return []string{
		"BytesSent", "BytesReceived", "InPkts", "OutPkts",
		"ActiveOpens", "PassiveOpens", "CurrEstab",
		"InErrs", "ShortPackets",
		"FECFullShardSet", "FECRecovered", "FECErrs", "FECParitySeen",
		"FECGroupsActive", "FECGroupsEvicted",
		"RingBufferSndQueue", "RingBufferRcvQueue",
	}
}

// ToSlice renders a thread-safe snapshot as strings, in Header order.
func (s *Snmp) ToSlice() []string {
	d := s.Copy()
	return []string{
		fmt.Sprint(d.BytesSent), fmt.Sprint(d.BytesReceived), fmt.Sprint(d.InPkts), fmt.Sprint(d.OutPkts),
		fmt.Sprint(d.ActiveOpens), fmt.Sprint(d.PassiveOpens), fmt.Sprint(d.CurrEstab),
		fmt.Sprint(d.InErrs), fmt.Sprint(d.ShortPackets),
		fmt.Sprint(d.FECFullShardSet), fmt.Sprint(d.FECRecovered), fmt.Sprint(d.FECErrs), fmt.Sprint(d.FECParitySeen),
		fmt.Sprint(d.FECGroupsActive), fmt.Sprint(d.FECGroupsEvicted),
		fmt.Sprint(d.RingBufferSndQueue), fmt.Sprint(d.RingBufferRcvQueue),
	}
}

// Copy takes an atomic snapshot of every counter.
func (s *Snmp) Copy() *Snmp {
	d := New()
	d.BytesSent = atomic.LoadUint64(&s.BytesSent)
	d.BytesReceived = atomic.LoadUint64(&s.BytesReceived)
	d.InPkts = atomic.LoadUint64(&s.InPkts)
	d.OutPkts = atomic.LoadUint64(&s.OutPkts)
	d.ActiveOpens = atomic.LoadUint64(&s.ActiveOpens)
	d.PassiveOpens = atomic.LoadUint64(&s.PassiveOpens)
	d.CurrEstab = atomic.LoadUint64(&s.CurrEstab)
	d.InErrs = atomic.LoadUint64(&s.InErrs)
	d.ShortPackets = atomic.LoadUint64(&s.ShortPackets)
	d.FECFullShardSet = atomic.LoadUint64(&s.FECFullShardSet)
	d.FECRecovered = atomic.LoadUint64(&s.FECRecovered)
	d.FECErrs = atomic.LoadUint64(&s.FECErrs)
	d.FECParitySeen = atomic.LoadUint64(&s.FECParitySeen)
	d.FECGroupsActive = atomic.LoadUint64(&s.FECGroupsActive)
	d.FECGroupsEvicted = atomic.LoadUint64(&s.FECGroupsEvicted)
	d.RingBufferSndQueue = atomic.LoadUint64(&s.RingBufferSndQueue)
	d.RingBufferRcvQueue = atomic.LoadUint64(&s.RingBufferRcvQueue)
	return d
}

// Reset atomically zeroes every counter.
func (s *Snmp) Reset() {
	atomic.StoreUint64(&s.BytesSent, 0)
	atomic.StoreUint64(&s.BytesReceived, 0)
	atomic.StoreUint64(&s.InPkts, 0)
	atomic.StoreUint64(&s.OutPkts, 0)
	atomic.StoreUint64(&s.ActiveOpens, 0)
	atomic.StoreUint64(&s.PassiveOpens, 0)
	atomic.StoreUint64(&s.CurrEstab, 0)
	atomic.StoreUint64(&s.InErrs, 0)
	atomic.StoreUint64(&s.ShortPackets, 0)
	atomic.StoreUint64(&s.FECFullShardSet, 0)
	atomic.StoreUint64(&s.FECRecovered, 0)
	atomic.StoreUint64(&s.FECErrs, 0)
	atomic.StoreUint64(&s.FECParitySeen, 0)
	atomic.StoreUint64(&s.FECGroupsActive, 0)
	atomic.StoreUint64(&s.FECGroupsEvicted, 0)
	atomic.StoreUint64(&s.RingBufferSndQueue, 0)
	atomic.StoreUint64(&s.RingBufferRcvQueue, 0)
}

// Default is the package-wide statistics instance, analogous to a global
// SNMP MIB instance shared by every session in the process.
var Default *Snmp

func init() {
	Default = New()
}
