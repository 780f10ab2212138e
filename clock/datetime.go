package clock

import "time"

// DateTime is a human readable wrapper around a UnixInstant. It exists
// for display only; all arithmetic happens on the instant types.
type DateTime struct {
	t time.Time
}

// DateTimeNow returns the current moment as a DateTime.
func DateTimeNow() DateTime {
	return DateTimeFromUnix(UnixNow())
}

// DateTimeFromUnix converts a UnixInstant to a DateTime.
func DateTimeFromUnix(u UnixInstant) DateTime {
	return DateTime{t: time.Unix(0, int64(u)).UTC()}
}

// Unix converts back to a UnixInstant. Moments before the epoch clamp
// to the epoch.
func (d DateTime) Unix() UnixInstant {
	ns := d.t.UnixNano()
	if ns < 0 {
		return Epoch
	}
	return UnixInstant(ns)
}

// String formats with millisecond precision in UTC, for example
// 2020-01-02T03:04:05.006+00:00.
func (d DateTime) String() string {
	return d.t.Format("2006-01-02T15:04:05.000") + "+00:00"
}
