// Package overtake implements the overtake arbiter of spec.md section
// 4.9: a probability computed from a weighted sum of signed differences,
// and aggregate statistics guarded by a read/write lock.
package overtake

import (
	"math/rand"
	"sync"
	"time"
)

const (
	weightTyreWear     = 0.25
	weightBaseSpeed    = 0.15
	drsBonus           = 0.20
	weightSlipstream   = 0.15
	weightDriverSkill  = 0.10
	baseline           = 0.30
	minProbability     = 0.05
	maxProbability     = 0.85
	progressBonusCap   = 0.99
	slipstreamFullGap  = time.Second
	slipstreamFadedGap = 2 * time.Second
)

// Attempt describes one overtake roll's inputs, translated from the car
// and segment state by the caller.
type Attempt struct {
	OvertakerTyreWear  float64 // 0..100
	DefenderTyreWear   float64
	OvertakerSpeedFactor float64
	DefenderSpeedFactor  float64
	DRSZone            bool
	Gap                time.Duration
	OvertakerSkill     float64 // 0..1
	DefenderSkill      float64
	// VehicleDamageDiff is reserved per spec.md section 9's open question:
	// the weighting table allocates 15% to vehicle damage but the source
	// never contributes a non-zero value. Always 0 until a future
	// extension wires real damage data in.
	VehicleDamageDiff float64
}

// slipstreamBonus implements "full bonus at gap < 1s, linearly fading to 0
// at 2s" from spec.md section 4.9.
func slipstreamBonus(gap time.Duration) float64 {
	switch {
	case gap <= slipstreamFullGap:
		return 1
	case gap >= slipstreamFadedGap:
		return 0
	default:
		span := slipstreamFadedGap - slipstreamFullGap
		return float64(slipstreamFadedGap-gap) / float64(span)
	}
}

// Probability computes the clamped success probability for an attempt.
func Probability(a Attempt) float64 {
	p := baseline
	p += weightTyreWear * (a.DefenderTyreWear - a.OvertakerTyreWear) / 100
	p += weightBaseSpeed * (a.OvertakerSpeedFactor - a.DefenderSpeedFactor)
	if a.DRSZone {
		p += drsBonus
	}
	p += weightSlipstream * slipstreamBonus(a.Gap)
	p += weightDriverSkill * (a.OvertakerSkill - a.DefenderSkill)
	// VehicleDamageDiff is always 0 today; kept for forward compatibility
	// with spec.md section 9's reserved weight slot.
	_ = a.VehicleDamageDiff

	if p < minProbability {
		return minProbability
	}
	if p > maxProbability {
		return maxProbability
	}
	return p
}

// Stats is the RWMutex-guarded counter set of spec.md section 4.9:
// overtake writes take the exclusive lock, readers take the shared lock.
type Stats struct {
	mu         sync.RWMutex
	attempts   int
	successes  int
	failures   int
}

func (s *Stats) record(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if success {
		s.successes++
	} else {
		s.failures++
	}
}

// Snapshot is a point-in-time read of the counters, taken under the
// shared lock.
type Snapshot struct {
	Attempts, Successes, Failures int
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Attempts: s.attempts, Successes: s.successes, Failures: s.failures}
}

// Arbiter rolls overtake attempts against a shared Stats instance. rng is
// injectable so tests (and deterministic replays) can fix the seed, per
// spec.md section 9's note on randomised grid/overtake seeding.
type Arbiter struct {
	stats *Stats
	rng   *rand.Rand
	mu    sync.Mutex // serialises rng.Float64 calls; rand.Rand is not goroutine-safe
}

// NewArbiter builds an arbiter sharing stats across however many car
// workers are wired to it, seeded from seed.
func NewArbiter(stats *Stats, seed int64) *Arbiter {
	return &Arbiter{stats: stats, rng: rand.New(rand.NewSource(seed))}
}

// Attempt rolls one overtake attempt: computes the probability, draws a
// uniform value, records the outcome in Stats, and reports success plus
// the new progress value the overtaker should jump to if it succeeded
// (spec.md section 4.9: "progress jumps to defender.progress + bonus,
// capped at 0.99").
func (a *Arbiter) Attempt(attempt Attempt, defenderProgress, progressBonus float64) (success bool, newProgress float64) {
	p := Probability(attempt)

	a.mu.Lock()
	draw := a.rng.Float64()
	a.mu.Unlock()

	success = draw < p
	a.stats.record(success)

	if !success {
		return false, 0
	}
	newProgress = defenderProgress + progressBonus
	if newProgress > progressBonusCap {
		newProgress = progressBonusCap
	}
	return true, newProgress
}

// Stats exposes the shared statistics for a view to poll.
func (a *Arbiter) Stats() *Stats { return a.stats }
