package circuitbreaker

import "time"

// SetClock replaces the breaker's time source in tests.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}
