package gamification

import (
	"fmt"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
)

// PagesPerPoint is how many pages earn one reading point.
const PagesPerPoint = 10

var ErrNegativePages = apierr.Validation("Pages read must not be negative")

type StreakState struct {
	Current         int        `json:"current"`
	Longest         int        `json:"longest"`
	LastReadingDate *time.Time `json:"lastReadingDate"`
}

type InvalidTimestampError struct {
	Last time.Time
	Now  time.Time
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("Reading event at %s is before the last recorded reading day %s",
		e.Now.UTC().Format(time.DateOnly), e.Last.UTC().Format(time.DateOnly))
}

func (e *InvalidTimestampError) Kind() apierr.Kind { return apierr.KindInvalidTimestamp }

// CalendarDay truncates t to midnight UTC.
func CalendarDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween is the whole number of UTC calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(CalendarDay(b).Sub(CalendarDay(a)) / (24 * time.Hour))
}

// Advance applies one reading event at now. It returns the new state and the
// reading points earned. On error the input state is returned untouched.
//
// Repeats within the same calendar day keep the streak flat but still earn points.
func Advance(state StreakState, now time.Time, pagesRead int) (StreakState, int, error) {
	if pagesRead < 0 {
		return state, 0, ErrNegativePages
	}

	next := state
	if state.LastReadingDate == nil {
		next.Current = 1
	} else {
		switch d := DaysBetween(*state.LastReadingDate, now); {
		case d < 0:
			return state, 0, &InvalidTimestampError{Last: *state.LastReadingDate, Now: now}
		case d == 0:
		case d == 1:
			next.Current++
		default:
			next.Current = 1
		}
	}

	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	day := CalendarDay(now)
	next.LastReadingDate = &day

	return next, pagesRead / PagesPerPoint, nil
}
