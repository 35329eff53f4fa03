package model

import "time"

// Clock supplies the current time to map mutations
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock, truncated to seconds so persisted timestamps stay stable
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// FixedClock always returns the same instant
type FixedClock time.Time

func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
