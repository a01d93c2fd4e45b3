package session

import "testing"

func TestLossTrackerFindsPeriod(t *testing.T) {
	var lt lossTracker
	for i := 0; i < maxLossSamples; i++ {
		recovered := i%4 == 0
		lt.Sample(recovered)
	}
	// Each run of recovered samples is one sample long: rising edge at
	// slot 4, falling edge at slot 5.
	if p := lt.FindPeriod(true); p != 1 {
		t.Fatalf("expected period 1, got %d", p)
	}
}

func TestLossTrackerNoPeriodWhenNeverRecovered(t *testing.T) {
	var lt lossTracker
	for i := 0; i < maxLossSamples; i++ {
		lt.Sample(false)
	}
	if p := lt.FindPeriod(true); p != -1 {
		t.Fatalf("expected -1, got %d", p)
	}
}
