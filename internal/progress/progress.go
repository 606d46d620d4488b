// Package progress throttles progress messages emitted by long-running loops
// so slow consumers see roughly one update per interval.
package progress

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is used when New is given a non-positive interval.
const DefaultInterval = time.Second

// Reporter forwards formatted messages to a sink at a bounded rate.
// A nil *Reporter discards everything.
type Reporter struct {
	sink func(string)
	s    rate.Sometimes
}

// New returns a Reporter writing to sink. A nil sink yields a nil Reporter.
func New(sink func(string), interval time.Duration) *Reporter {
	if sink == nil {
		return nil
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{sink: sink, s: rate.Sometimes{Interval: interval}}
}

// Report emits the message if the interval has elapsed since the last one.
// The first call always emits. Formatting only happens when emitting.
func (r *Reporter) Report(format string, args ...any) {
	if r == nil {
		return
	}
	r.s.Do(func() { r.sink(fmt.Sprintf(format, args...)) })
}

// Percent reports done/total as a percentage with the given prefix.
func (r *Reporter) Percent(prefix string, done, total int) {
	if r == nil || total <= 0 {
		return
	}
	r.Report("%s: %d%%", prefix, done*100/total)
}

// Force emits the message unconditionally.
func (r *Reporter) Force(format string, args ...any) {
	if r == nil {
		return
	}
	r.sink(fmt.Sprintf(format, args...))
}
