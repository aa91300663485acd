package clock

import "time"

// Clock supplies timestamps to the services so tests can pin time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func System() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }

type fixedClock struct{ t time.Time }

// Fixed returns a clock frozen at t.
func Fixed(t time.Time) Clock { return fixedClock{t: t.UTC()} }

func (f fixedClock) Now() time.Time { return f.t }
