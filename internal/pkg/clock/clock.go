// Package clock injects the current time into services so window
// boundaries can be tested exactly.
package clock

import "time"

// Func returns the current time.
type Func func() time.Time

// Real is the wall clock in UTC.
func Real() time.Time { return time.Now().UTC() }

// OrReal returns c, or Real when c is nil.
func OrReal(c Func) Func {
	if c == nil {
		return Real
	}
	return c
}

// Fake is a settable clock for tests.
type Fake struct {
	t time.Time
}

// NewFake returns a Fake starting at t.
func NewFake(t time.Time) *Fake { return &Fake{t: t} }

// Now returns the fake's current time.
func (f *Fake) Now() time.Time { return f.t }

// Advance moves the fake forward by d.
func (f *Fake) Advance(d time.Duration) { f.t = f.t.Add(d) }
