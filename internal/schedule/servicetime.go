package schedule

import (
	"fmt"
	"strings"
	"time"
)

// ServiceTime is a time of the service day in seconds since midnight.
// Values past 24:00:00 belong to the same service day (late-night running).
type ServiceTime int

// MaxServiceHour is the last hour a service day can run into
const MaxServiceHour = 47

// Unreached is the conventional label of a station no search has reached.
// The planner tracks reachability by label presence and never compares against it.
const Unreached ServiceTime = 24*3600 + 59*60 + 59

// ParseServiceTime converts "HH:MM:SS" (or "HH:MM") to a ServiceTime.
// Hours run past 24 for services after midnight, up to MaxServiceHour.
// Every field is one or two plain digits; signs are rejected.
func ParseServiceTime(s string) (ServiceTime, error) {
	if s == "" {
		return 0, fmt.Errorf("empty time string")
	}

	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format %q: expected HH:MM:SS", s)
	}

	h, ok := field(parts[0], 1)
	if !ok || h > MaxServiceHour {
		return 0, fmt.Errorf("invalid hours in %q", s)
	}
	m, ok := field(parts[1], 2)
	if !ok || m >= 60 {
		return 0, fmt.Errorf("invalid minutes in %q", s)
	}

	sec := 0
	if len(parts) == 3 {
		sec, ok = field(parts[2], 2)
		if !ok || sec >= 60 {
			return 0, fmt.Errorf("invalid seconds in %q", s)
		}
	}

	return ServiceTime(h*3600 + m*60 + sec), nil
}

// field parses a time field of minLen to two ASCII digits
func field(s string, minLen int) (int, bool) {
	if len(s) < minLen || len(s) > 2 {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// MustParseServiceTime is ParseServiceTime for constants and fixtures
func MustParseServiceTime(s string) ServiceTime {
	t, err := ParseServiceTime(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ServiceTimeOf returns the wall-clock time of ts as a ServiceTime
func ServiceTimeOf(ts time.Time) ServiceTime {
	return ServiceTime(ts.Hour()*3600 + ts.Minute()*60 + ts.Second())
}

func (t ServiceTime) String() string {
	secs := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// Add returns t shifted by the given number of seconds
func (t ServiceTime) Add(seconds int) ServiceTime {
	return t + ServiceTime(seconds)
}

// Sub returns t - u in seconds
func (t ServiceTime) Sub(u ServiceTime) int {
	return int(t - u)
}
