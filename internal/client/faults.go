package client

import (
	"math/rand"
	"os"
	"strconv"
)

// FaultInjector simulates a lossy channel at the client for testing: it can
// drop an inbound response (surfaced to the caller as a timeout) or flip all
// bits of one uniformly chosen octet before the caller decodes it. A nil
// *FaultInjector is always a no-op, so production code paths never need a
// nil check beyond the one embedded in its own methods.
type FaultInjector struct {
	rng         *rand.Rand
	dropRate    float64
	corruptRate float64
}

// NewFaultInjector builds an injector with the given deterministic seed and
// rates in [0, 1].
func NewFaultInjector(seed int64, dropRate, corruptRate float64) *FaultInjector {
	return &FaultInjector{
		rng:         rand.New(rand.NewSource(seed)),
		dropRate:    dropRate,
		corruptRate: corruptRate,
	}
}

// FaultInjectorFromEnv builds an injector from TEST_MODE/TEST_DROP_RATE/
// TEST_CORRUPT_RATE, or returns nil if TEST_MODE isn't "true".
func FaultInjectorFromEnv(seed int64) *FaultInjector {
	if os.Getenv("TEST_MODE") != "true" {
		return nil
	}
	drop, _ := strconv.ParseFloat(os.Getenv("TEST_DROP_RATE"), 64)
	corrupt, _ := strconv.ParseFloat(os.Getenv("TEST_CORRUPT_RATE"), 64)
	return NewFaultInjector(seed, drop, corrupt)
}

// ShouldDrop reports whether the current response should be treated as lost.
func (f *FaultInjector) ShouldDrop() bool {
	if f == nil {
		return false
	}
	return f.rng.Float64() < f.dropRate
}

// MaybeCorrupt returns data unchanged, or a copy with one randomly chosen
// octet bit-flipped, depending on the configured corruption rate.
func (f *FaultInjector) MaybeCorrupt(data []byte) []byte {
	if f == nil || len(data) == 0 || f.rng.Float64() >= f.corruptRate {
		return data
	}
	corrupted := make([]byte, len(data))
	copy(corrupted, data)
	idx := f.rng.Intn(len(corrupted))
	corrupted[idx] = ^corrupted[idx]
	return corrupted
}
