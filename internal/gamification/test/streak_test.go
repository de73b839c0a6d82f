package gamification_test

import (
	"testing"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/internal/gamification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var d0 = time.Date(2024, 3, 10, 21, 30, 0, 0, time.UTC)

func TestAdvance_WorkedExample(t *testing.T) {
	state := gamification.StreakState{}

	state, pts, err := gamification.Advance(state, d0, 25)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Current)
	assert.Equal(t, 1, state.Longest)
	assert.Equal(t, 2, pts)
	assert.Equal(t, gamification.CalendarDay(d0), *state.LastReadingDate)

	state, _, err = gamification.Advance(state, d0.Add(24*time.Hour), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Current)
	assert.Equal(t, 2, state.Longest)

	state, _, err = gamification.Advance(state, d0.Add(3*24*time.Hour), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Current)
	assert.Equal(t, 2, state.Longest)
}

func TestAdvance_SameDayKeepsStreakAndAwardsPoints(t *testing.T) {
	state, _, err := gamification.Advance(gamification.StreakState{}, d0, 0)
	require.NoError(t, err)

	next, pts, err := gamification.Advance(state, d0.Add(2*time.Hour), 40)
	require.NoError(t, err)
	assert.Equal(t, state.Current, next.Current)
	assert.Equal(t, 4, pts)
}

func TestAdvance_CalendarDayNotElapsedHours(t *testing.T) {
	late := time.Date(2024, 3, 10, 23, 55, 0, 0, time.UTC)
	state, _, err := gamification.Advance(gamification.StreakState{}, late, 0)
	require.NoError(t, err)

	next, _, err := gamification.Advance(state, late.Add(10*time.Minute), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, next.Current)
}

func TestAdvance_OutOfOrderEventRejected(t *testing.T) {
	state, _, err := gamification.Advance(gamification.StreakState{}, d0, 0)
	require.NoError(t, err)

	next, pts, err := gamification.Advance(state, d0.Add(-48*time.Hour), 100)
	require.Error(t, err)
	var ite *gamification.InvalidTimestampError
	assert.ErrorAs(t, err, &ite)
	assert.Equal(t, apierr.KindInvalidTimestamp, apierr.KindOf(err))
	assert.Equal(t, state, next)
	assert.Zero(t, pts)
}

func TestAdvance_NegativePages(t *testing.T) {
	_, _, err := gamification.Advance(gamification.StreakState{}, d0, -1)
	assert.ErrorIs(t, err, gamification.ErrNegativePages)
}

func TestProperty_ConsecutiveDays(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 60).Draw(t, "n")
		state, _, err := gamification.Advance(gamification.StreakState{}, d0, 0)
		if err != nil {
			t.Fatal(err)
		}
		for i := 1; i <= n; i++ {
			state, _, err = gamification.Advance(state, d0.AddDate(0, 0, i), 0)
			if err != nil {
				t.Fatal(err)
			}
		}
		if state.Current != n+1 || state.Longest != n+1 {
			t.Fatalf("after %d consecutive days: %+v", n, state)
		}
	})
}

func TestProperty_GapResetsAndLongestNeverDrops(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gaps := rapid.SliceOfN(rapid.IntRange(0, 5), 1, 40).Draw(t, "gaps")
		state := gamification.StreakState{}
		now := d0
		for _, gap := range gaps {
			prevLongest := state.Longest
			now = now.AddDate(0, 0, gap)
			next, _, err := gamification.Advance(state, now, 0)
			if err != nil {
				t.Fatal(err)
			}
			if state.LastReadingDate != nil && gap > 1 && next.Current != 1 {
				t.Fatalf("gap %d did not reset streak: %+v", gap, next)
			}
			if next.Longest < prevLongest || next.Longest < next.Current {
				t.Fatalf("longest invariant broken: %+v -> %+v", state, next)
			}
			state = next
		}
	})
}

func TestProperty_PointsNeverDecrease(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ledger := gamification.Ledger{}
		pages := rapid.SliceOfN(rapid.IntRange(0, 2000), 1, 30).Draw(t, "pages")
		state := gamification.StreakState{}
		for i, p := range pages {
			before := ledger.Total()
			var pts int
			var err error
			state, pts, err = gamification.Advance(state, d0.AddDate(0, 0, i), p)
			if err != nil {
				t.Fatal(err)
			}
			if pts != p/10 {
				t.Fatalf("pages %d earned %d points", p, pts)
			}
			ledger.Award(gamification.CategoryReading, pts)
			if ledger.Total() < before {
				t.Fatalf("total dropped from %d to %d", before, ledger.Total())
			}
		}
	})
}

func TestLedger_Redeem(t *testing.T) {
	l := gamification.Ledger{Reading: 150, Social: 25}
	assert.ErrorIs(t, l.Redeem(50), gamification.ErrRedemptionTooSmall)
	assert.ErrorIs(t, l.Redeem(200), gamification.ErrInsufficientPoints)
	require.NoError(t, l.Redeem(100))
	assert.Equal(t, 75, l.Total())
	assert.Equal(t, 100, l.Redeemed)
}

func TestLevelFor(t *testing.T) {
	cases := map[int]gamification.Level{
		0:     {Level: 1, Title: "Novice Reader"},
		999:   {Level: 1, Title: "Novice Reader"},
		1000:  {Level: 2, Title: "Book Explorer"},
		4500:  {Level: 5, Title: "Literary Adventurer"},
		9000:  {Level: 10, Title: "Legendary Bibliophile"},
		50000: {Level: 10, Title: "Legendary Bibliophile"},
	}
	for points, want := range cases {
		assert.Equal(t, want, gamification.LevelFor(points), "points=%d", points)
	}
}

func TestNewBadges_SkipsOwned(t *testing.T) {
	p := gamification.Progress{BooksRead: 1, PagesRead: 1200}
	got := gamification.NewBadges(p, map[string]bool{"First Book": true})
	require.Len(t, got, 1)
	assert.Equal(t, "Page Turner", got[0].Name)
}
