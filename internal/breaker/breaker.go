// Package breaker is a small fail-fast guard for the console's refetch path.
// When the store is down, drift-resolving refetches should fail immediately
// instead of stacking up behind a dead connection. The breaker never retries
// anything; every rejection is an explicit error the caller sees.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrOpen = errors.New("breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

func (s state) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	logger      *logrus.Logger

	mu       sync.Mutex
	state    state
	failures int
	openedAt time.Time
}

func New(name string, maxFailures int, cooldown time.Duration, logger *logrus.Logger) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		logger:      logger,
	}
}

// Execute runs fn unless the breaker is open. After the cooldown a single
// probe call is let through; its outcome closes or reopens the breaker.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case stateOpen:
		if time.Since(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.setState(stateHalfOpen)
	case stateHalfOpen:
		// One probe at a time.
		b.mu.Unlock()
		return ErrOpen
	}
	probing := b.state == stateHalfOpen
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.openedAt = time.Now()
		if probing || b.failures >= b.maxFailures {
			b.setState(stateOpen)
		}
		return err
	}

	b.failures = 0
	if b.state != stateClosed {
		b.setState(stateClosed)
	}
	return nil
}

func (b *Breaker) setState(next state) {
	if b.state == next {
		return
	}
	b.logger.WithFields(logrus.Fields{
		"breaker": b.name,
		"from":    b.state.String(),
		"to":      next.String(),
	}).Info("Breaker state changed")
	b.state = next
}
