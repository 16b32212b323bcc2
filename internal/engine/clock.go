package engine

import "time"

// Clock abstracts wall-clock reads so cooldown expiry and trade stamps are
// testable without waiting.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real-time clock used outside tests.
func SystemClock() Clock { return systemClock{} }
