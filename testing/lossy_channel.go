package testing

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"
)

// LossStats counts what a LossyChannel did to the datagrams it carried.
type LossStats struct {
	Sent       uint64
	Dropped    uint64
	Duplicated uint64
	Delivered  uint64
}

// LossyChannel simulates an unreliable datagram path. Drops and duplicates
// are drawn from a seeded generator so a given seed always damages a
// sequence of datagrams the same way. Order is preserved; duplicates follow
// their original immediately.
type LossyChannel struct {
	mu            sync.Mutex
	rng           *rand.Rand
	dropRate      float64
	duplicateRate float64
	stats         LossStats
}

// NewLossyChannel creates a channel dropping dropRate and duplicating
// duplicateRate of the datagrams, both in [0, 1].
func NewLossyChannel(seed int64, dropRate, duplicateRate float64) (*LossyChannel, error) {
	if dropRate < 0 || dropRate > 1 {
		return nil, fmt.Errorf("drop rate %v out of range [0, 1]", dropRate)
	}
	if duplicateRate < 0 || duplicateRate > 1 {
		return nil, fmt.Errorf("duplicate rate %v out of range [0, 1]", duplicateRate)
	}

	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function":       "NewLossyChannel",
		"seed":           seed,
		"drop_rate":      dropRate,
		"duplicate_rate": duplicateRate,
	}).Info("Creating lossy channel simulation")

	return &LossyChannel{
		rng:           rand.New(rand.NewSource(seed)),
		dropRate:      dropRate,
		duplicateRate: duplicateRate,
	}, nil
}

// Transmit passes datagrams through the channel and returns what arrives.
func (c *LossyChannel) Transmit(datagrams [][]byte) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]byte, 0, len(datagrams))
	for _, d := range datagrams {
		c.stats.Sent++
		if c.rng.Float64() < c.dropRate {
			c.stats.Dropped++
			continue
		}
		out = append(out, d)
		if c.rng.Float64() < c.duplicateRate {
			c.stats.Duplicated++
			out = append(out, append([]byte(nil), d...))
		}
	}
	c.stats.Delivered += uint64(len(out))

	logrus.WithFields(logrus.Fields{
		"function":  "LossyChannel.Transmit",
		"sent":      len(datagrams),
		"delivered": len(out),
	}).Debug("Simulated lossy transmission")

	return out
}

// Stats returns a snapshot of the channel counters.
func (c *LossyChannel) Stats() LossStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
