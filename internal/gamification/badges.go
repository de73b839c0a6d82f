package gamification

import "time"

type BadgeDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Points      int    `json:"points"`
	earned      func(Progress) bool
}

type Badge struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	EarnedAt    time.Time `json:"earnedAt"`
}

// Progress is the reader state badge thresholds are checked against.
type Progress struct {
	BooksRead      int
	PagesRead      int
	CurrentStreak  int
	LongestStreak  int
	DistinctGenres int
}

var Catalogue = []BadgeDefinition{
	{
		ID: "first-book", Name: "First Book", Description: "Complete your first book", Icon: "📚", Points: BadgeBonus,
		earned: func(p Progress) bool { return p.BooksRead >= 1 },
	},
	{
		ID: "page-turner", Name: "Page Turner", Description: "Read 1000 pages", Icon: "📖", Points: BadgeBonus,
		earned: func(p Progress) bool { return p.PagesRead >= 1000 },
	},
	{
		ID: "streak-master", Name: "Streak Master", Description: "Maintain a 7-day reading streak", Icon: "🔥", Points: BadgeBonus,
		earned: func(p Progress) bool { return p.LongestStreak >= 7 },
	},
	{
		ID: "genre-explorer", Name: "Genre Explorer", Description: "Read books from 5 different genres", Icon: "🗺️", Points: BadgeBonus,
		earned: func(p Progress) bool { return p.DistinctGenres >= 5 },
	},
}

// NewBadges returns the catalogue entries p qualifies for that are not already in owned.
func NewBadges(p Progress, owned map[string]bool) []BadgeDefinition {
	var out []BadgeDefinition
	for _, def := range Catalogue {
		if owned[def.Name] || !def.earned(p) {
			continue
		}
		out = append(out, def)
	}
	return out
}
