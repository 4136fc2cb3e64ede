// Package config centralises every tunable constant named in the race
// simulation's configuration table. It mirrors the teacher's
// functional-options pattern (see f1livetiming.ClientOption) instead of the
// original Java Konfiguration class's static fields.
package config

import (
	"math"
	"sync/atomic"
	"time"
)

// Config is the single record a controller builds once and hands, by
// reference, to every primitive and worker that needs a time-scaled
// constant. All durations are at 1x; callers divide by SimSpeed at the
// point of use.
type Config struct {
	BaseSegmentTime     time.Duration
	PitServiceDurMin    time.Duration
	PitServiceDurMax    time.Duration
	GUIUpdateInterval   time.Duration
	StrategistInterval  time.Duration
	CriticalTyreWear    float64
	OpportunisticTyreWear float64
	MandatoryPitEarliest int
	MandatoryPitLapsBeforeEnd int
	StartLightInterval  time.Duration
	StartReleaseJitterMin time.Duration
	StartReleaseJitterMax time.Duration
	OvertakeGapThreshold time.Duration
	OvertakeProgressBonus float64

	SegmentSubSteps int
	StartQuorumFraction float64
	SettlingPeriod time.Duration

	// simSpeed is the live simulation speed multiplier every worker's
	// Scaled call reads on every sleep. set_simulation_speed can fire
	// concurrently with a running race (spec.md section 6), so this is
	// an atomic float64 (boxed as its bit pattern) rather than a plain
	// field guarded by nothing.
	simSpeed atomic.Int64
}

// Default returns the configuration table from spec.md section 6.
func Default() *Config {
	c := &Config{
		BaseSegmentTime:           1300 * time.Millisecond,
		PitServiceDurMin:          2000 * time.Millisecond,
		PitServiceDurMax:          4000 * time.Millisecond,
		GUIUpdateInterval:         100 * time.Millisecond,
		StrategistInterval:        1000 * time.Millisecond,
		CriticalTyreWear:          80,
		OpportunisticTyreWear:     60,
		MandatoryPitEarliest:      8,
		MandatoryPitLapsBeforeEnd: 5,
		StartLightInterval:        1000 * time.Millisecond,
		StartReleaseJitterMin:     500 * time.Millisecond,
		StartReleaseJitterMax:     3000 * time.Millisecond,
		OvertakeGapThreshold:      1000 * time.Millisecond,
		OvertakeProgressBonus:     0.05,

		SegmentSubSteps:     10,
		StartQuorumFraction: 0.5,
		SettlingPeriod:      150 * time.Millisecond,
	}
	c.SetSimSpeed(1)
	return c
}

// Option mutates a Config at construction time, the way the teacher's
// ClientOption mutates a f1livetiming.Client.
type Option func(*Config)

// New builds a Config from the defaults with the given overrides applied.
func New(opts ...Option) *Config {
	c := Default()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithSimSpeed(factor float64) Option {
	return func(c *Config) { c.SetSimSpeed(factor) }
}

func WithBaseSegmentTime(d time.Duration) Option {
	return func(c *Config) { c.BaseSegmentTime = d }
}

func WithStrategistInterval(d time.Duration) Option {
	return func(c *Config) { c.StrategistInterval = d }
}

// SimSpeed returns the current simulation speed multiplier.
func (c *Config) SimSpeed() float64 {
	return math.Float64frombits(uint64(c.simSpeed.Load()))
}

// SetSimSpeed updates the simulation speed multiplier. Safe to call
// concurrently with any worker's Scaled call.
func (c *Config) SetSimSpeed(factor float64) {
	c.simSpeed.Store(int64(math.Float64bits(factor)))
}

// Scaled returns d divided by the simulation speed multiplier, floored at
// 1ms the way spec.md section 6 requires.
func (c *Config) Scaled(d time.Duration) time.Duration {
	speed := c.SimSpeed()
	if speed <= 0 {
		speed = 1
	}
	scaled := time.Duration(float64(d) / speed)
	if scaled < time.Millisecond {
		return time.Millisecond
	}
	return scaled
}
