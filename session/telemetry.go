/*
@Description: loss-pattern sampling used to detect periodic burst loss on a session
@Language: Go 1.23.4
*/

package session

// maxLossSamples bounds the circular buffer of recovery-outcome samples
// kept per session for burst-pattern detection.
const maxLossSamples = 256

// lossPulse is a single sample: whether the datagram at seq was delivered
// only via FEC recovery (bit == true) or arrived directly (bit == false).
type lossPulse struct {
	bit bool
	seq uint32
}

// lossTracker keeps a circular buffer of recent recovery outcomes and looks
// for a periodic recovery pattern, which is a symptom of a regularly
// repeating loss burst (e.g. a fixed-period scheduler or link flap)
// upstream of this session rather than independent random loss.
type lossTracker struct {
	pulses [maxLossSamples]lossPulse
	seq    uint32
}

// Sample records whether the next inbound datagram was FEC-recovered.
func (lt *lossTracker) Sample(recovered bool) {
	lt.pulses[lt.seq%maxLossSamples] = lossPulse{bit: recovered, seq: lt.seq}
	lt.seq++
}

// FindPeriod returns the sample distance between a rising and falling edge
// of bit within the buffer, or -1 if no complete edge pair is present.
// A small, stable period across repeated calls indicates periodic loss.
func (lt *lossTracker) FindPeriod(bit bool) int {
	last := lt.pulses[0]
	idx := 1

	var leftEdge int
	found := false
	for ; idx < len(lt.pulses); idx++ {
		if last.bit != bit && lt.pulses[idx].bit == bit {
			leftEdge = idx
			found = true
			break
		}
		last = lt.pulses[idx]
	}
	if !found {
		return -1
	}

	last = lt.pulses[leftEdge]
	for idx = leftEdge + 1; idx < len(lt.pulses); idx++ {
		if last.seq+1 != lt.pulses[idx].seq {
			return -1
		}
		if last.bit == bit && lt.pulses[idx].bit != bit {
			return idx - leftEdge
		}
		last = lt.pulses[idx]
	}
	return -1
}
