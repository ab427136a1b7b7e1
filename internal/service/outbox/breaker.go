package outbox

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 30 * time.Second
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// circuitBreaker останавливает публикацию, когда брокер подряд отказывает
// threshold сообщениям. Пока он открыт, сообщения остаются pending.
type circuitBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	openedAt  time.Time
	state     breakerState
	now       func() time.Time
	logger    *log.Entry
}

func newCircuitBreaker(threshold int, cooldown time.Duration, now func() time.Time, logger *log.Entry) *circuitBreaker {
	return &circuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
		logger:    logger,
	}
}

// allow сообщает, можно ли сейчас публиковать. После cooldown пропускает
// пробную попытку (half-open).
func (b *circuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != breakerOpen {
		return true
	}
	if b.now().Sub(b.openedAt) < b.cooldown {
		return false
	}
	b.setState(breakerHalfOpen)
	return true
}

func (b *circuitBreaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != breakerClosed {
		b.setState(breakerClosed)
	}
}

// failure учитывает отказ и возвращает true, если цепь разомкнулась.
func (b *circuitBreaker) failure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.threshold {
		b.openedAt = b.now()
		if b.state != breakerOpen {
			b.setState(breakerOpen)
		}
	}
	return b.state == breakerOpen
}

func (b *circuitBreaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *circuitBreaker) setState(s breakerState) {
	b.state = s
	if s == breakerOpen {
		breakerOpenGauge.Set(1)
	} else {
		breakerOpenGauge.Set(0)
	}
	b.logger.WithFields(log.Fields{
		"state":    s.String(),
		"failures": b.failures,
	}).Warn("outbox circuit breaker state changed")
}
