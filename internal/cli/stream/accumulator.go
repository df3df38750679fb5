// Package stream holds the client-side streaming accumulator: the mutable
// buffer an in-progress assistant reply grows into before finalization.
package stream

import "strings"

// Accumulator collects content deltas for one in-flight reply. It is not
// safe for concurrent use; the consumer loop owns it.
type Accumulator struct {
	b strings.Builder
}

// Append adds a content delta.
func (a *Accumulator) Append(delta string) {
	a.b.WriteString(delta)
}

// Current returns the partial reply accumulated so far.
func (a *Accumulator) Current() string {
	return a.b.String()
}

// Empty reports whether nothing has been accumulated.
func (a *Accumulator) Empty() bool {
	return a.b.Len() == 0
}

// Finalize returns the accumulated reply and resets the buffer. Called on
// the Done sentinel or implicit stream end; an empty result means no
// assistant message should be appended.
func (a *Accumulator) Finalize() string {
	out := a.b.String()
	a.b.Reset()
	return out
}

// Discard drops any partial content, for cancellation.
func (a *Accumulator) Discard() {
	a.b.Reset()
}
