// Package warn provides a throttled warning sink (spec.md §9): the Jog
// Core just emits by topic, never formats rate logic itself.
package warn

import (
	"sync"
	"time"

	"go.viam.com/rdk/logging"
	"golang.org/x/time/rate"
)

// Sink emits Warnf once per topic at most once per period; calls within a
// topic's period are dropped silently.
type Sink struct {
	logger  logging.Logger
	period  time.Duration
	mu      sync.Mutex
	limiter map[string]*rate.Limiter
}

// New constructs a Sink that logs through logger, allowing at most one
// message per topic every period.
func New(logger logging.Logger, period time.Duration) *Sink {
	return &Sink{
		logger:  logger,
		period:  period,
		limiter: make(map[string]*rate.Limiter),
	}
}

func (s *Sink) limiterFor(topic string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiter[topic]
	if !ok {
		l = rate.NewLimiter(rate.Every(s.period), 1)
		s.limiter[topic] = l
	}
	return l
}

// Warnf emits a warning on topic if that topic's limiter allows it this
// instant.
func (s *Sink) Warnf(topic, format string, args ...interface{}) {
	if !s.limiterFor(topic).Allow() {
		return
	}
	s.logger.Warnf(format, args...)
}
