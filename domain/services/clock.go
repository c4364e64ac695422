package services

import (
	"time"

	"bankroll/domain/interfaces"
)

// utcClock reads the wall clock in UTC. All domain timestamps are UTC.
type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

// NewClock returns the production clock.
func NewClock() interfaces.Clock {
	return utcClock{}
}
