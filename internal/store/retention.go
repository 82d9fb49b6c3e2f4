package store

import "time"

// DefaultRetentionWindow is how long a record is kept when no window is configured.
const DefaultRetentionWindow = 48 * time.Hour

// RetentionPolicy decides whether a record survives a prune.
type RetentionPolicy struct {
	Window time.Duration
}

// NewRetentionPolicy returns a policy for window, falling back to
// DefaultRetentionWindow when window is not positive.
func NewRetentionPolicy(window time.Duration) RetentionPolicy {
	if window <= 0 {
		window = DefaultRetentionWindow
	}
	return RetentionPolicy{Window: window}
}

// IsFresh reports whether a record stamped at ts is younger than the window
// as of now. Both values are Unix seconds. A record dated after now has age
// zero and is always fresh. A window with a fractional second is rounded up
// to whole seconds.
func (p RetentionPolicy) IsFresh(now, ts uint64) bool {
	if ts >= now {
		return true
	}
	return now-ts < p.windowSeconds()
}

func (p RetentionPolicy) windowSeconds() uint64 {
	w := p.Window
	if w <= 0 {
		w = DefaultRetentionWindow
	}
	secs := uint64(w / time.Second)
	if w%time.Second != 0 {
		secs++
	}
	return secs
}

// CurrentTimestamp returns the wall clock as Unix seconds.
func CurrentTimestamp() uint64 {
	return TimestampOf(time.Now())
}

// TimestampOf converts t to Unix seconds, clamping instants before the epoch to 0.
func TimestampOf(t time.Time) uint64 {
	s := t.Unix()
	if s < 0 {
		return 0
	}
	return uint64(s)
}
