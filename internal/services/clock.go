package services

import "time"

// Clock is the external wall clock. Every lifecycle decision reads time
// through it exactly once per operation, so tests can pin the window.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func NewSystemClock() Clock { return systemClock{} }
