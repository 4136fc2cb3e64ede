package overtake

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestProbabilityClampedToRange(t *testing.T) {
	worst := Attempt{
		OvertakerTyreWear: 100, DefenderTyreWear: 0,
		OvertakerSpeedFactor: 0.8, DefenderSpeedFactor: 1.2,
		OvertakerSkill: 0, DefenderSkill: 1,
		Gap: 10 * time.Second,
	}
	if p := Probability(worst); p < minProbability || p > maxProbability {
		t.Fatalf("Probability = %v, want within [%v, %v]", p, minProbability, maxProbability)
	}

	best := Attempt{
		OvertakerTyreWear: 0, DefenderTyreWear: 100,
		OvertakerSpeedFactor: 1.2, DefenderSpeedFactor: 0.8,
		OvertakerSkill: 1, DefenderSkill: 0,
		DRSZone: true, Gap: 0,
	}
	if p := Probability(best); p != maxProbability {
		t.Fatalf("Probability(best case) = %v, want the clamp ceiling %v", p, maxProbability)
	}
}

func TestSlipstreamBonusFade(t *testing.T) {
	if slipstreamBonus(500*time.Millisecond) != 1 {
		t.Fatal("gap below 1s should give full bonus")
	}
	if slipstreamBonus(2*time.Second) != 0 {
		t.Fatal("gap at/above 2s should give no bonus")
	}
	mid := slipstreamBonus(1500 * time.Millisecond)
	if mid <= 0 || mid >= 1 {
		t.Fatalf("gap of 1.5s should give a partial bonus, got %v", mid)
	}
}

// TestStatsConsistencyUnderConcurrency is scenario S6 / property 4: 20
// concurrent attempts against one arbiter while readers poll at a tight
// interval; every observed snapshot satisfies attempts == successes +
// failures.
func TestStatsConsistencyUnderConcurrency(t *testing.T) {
	stats := &Stats{}
	arb := NewArbiter(stats, 42)

	stopReaders := make(chan struct{})
	var badSnapshot atomic.Bool
	var readerWG sync.WaitGroup
	for i := 0; i < 2; i++ {
		readerWG.Add(1)
		go func() {
			defer readerWG.Done()
			ticker := time.NewTicker(2 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-stopReaders:
					return
				case <-ticker.C:
					snap := stats.Snapshot()
					if snap.Attempts != snap.Successes+snap.Failures {
						badSnapshot.Store(true)
					}
				}
			}
		}()
	}

	var writerWG sync.WaitGroup
	for i := 0; i < 20; i++ {
		writerWG.Add(1)
		go func(i int) {
			defer writerWG.Done()
			arb.Attempt(Attempt{Gap: time.Duration(i) * 100 * time.Millisecond}, 0.5, 0.05)
		}(i)
	}
	writerWG.Wait()
	close(stopReaders)
	readerWG.Wait()

	if badSnapshot.Load() {
		t.Fatal("observed a snapshot where attempts != successes + failures")
	}
	final := stats.Snapshot()
	if final.Attempts != 20 {
		t.Fatalf("Attempts = %d, want 20", final.Attempts)
	}
	if final.Attempts != final.Successes+final.Failures {
		t.Fatal("final snapshot violates attempts == successes + failures")
	}
}
