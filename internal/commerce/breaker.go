package commerce

import (
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
)

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ConsecutiveFails uint32
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MaxRequests == 0 {
		c.MaxRequests = 3
	}
	if c.Interval == 0 {
		c.Interval = time.Minute
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ConsecutiveFails == 0 {
		c.ConsecutiveFails = 5
	}
	return c
}

// newBreaker trips after a run of consecutive transport failures or 5xx
// answers. 4xx answers never count against the platform.
func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker[*response] {
	cfg = cfg.withDefaults()
	return gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}
