package gamification

import (
	"github.com/binhbb2204/litverse/internal/apierr"
)

const (
	MinRedemption = 100
	BadgeBonus    = 100
	ClubJoinBonus = 25
)

var (
	ErrInsufficientPoints = apierr.Validation("Insufficient points")
	ErrRedemptionTooSmall = apierr.Validation("Minimum redemption is 100 points")
)

type Category string

const (
	CategoryReading   Category = "reading"
	CategorySocial    Category = "social"
	CategoryChallenge Category = "challenges"
)

// Ledger keeps per-category awards. Total is derived, so it can only drop through Redeem.
type Ledger struct {
	Reading   int
	Social    int
	Challenge int
	Redeemed  int
}

func (l Ledger) Total() int {
	return l.Reading + l.Social + l.Challenge - l.Redeemed
}

// Award adds points to a category. Non-positive amounts are ignored.
func (l *Ledger) Award(cat Category, points int) {
	if points <= 0 {
		return
	}
	switch cat {
	case CategoryReading:
		l.Reading += points
	case CategorySocial:
		l.Social += points
	case CategoryChallenge:
		l.Challenge += points
	}
}

func (l *Ledger) Redeem(amount int) error {
	if amount < MinRedemption {
		return ErrRedemptionTooSmall
	}
	if amount > l.Total() {
		return ErrInsufficientPoints
	}
	l.Redeemed += amount
	return nil
}

type Points struct {
	Total      int `json:"total"`
	Reading    int `json:"reading"`
	Social     int `json:"social"`
	Challenges int `json:"challenges"`
	Redeemed   int `json:"redeemed"`
}

func (l Ledger) Points() Points {
	return Points{
		Total:      l.Total(),
		Reading:    l.Reading,
		Social:     l.Social,
		Challenges: l.Challenge,
		Redeemed:   l.Redeemed,
	}
}

var levelTitles = []string{
	"Novice Reader", "Book Explorer", "Page Turner", "Story Seeker",
	"Literary Adventurer", "Word Wanderer", "Tale Traveler", "Narrative Navigator",
	"Epic Reader", "Legendary Bibliophile",
}

type Level struct {
	Level int    `json:"level"`
	Title string `json:"title"`
}

// LevelFor maps a point total to one of ten levels, a new level every 1000 points.
func LevelFor(totalPoints int) Level {
	if totalPoints < 0 {
		totalPoints = 0
	}
	lvl := totalPoints/1000 + 1
	if lvl > len(levelTitles) {
		lvl = len(levelTitles)
	}
	return Level{Level: lvl, Title: levelTitles[lvl-1]}
}
