package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	MatchStatusUpcoming  MatchStatus = "upcoming"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusFinished  MatchStatus = "finished"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// Outcome is a predicted or resolved match outcome.
type Outcome string

const (
	OutcomeHome Outcome = "home"
	OutcomeDraw Outcome = "draw"
	OutcomeAway Outcome = "away"
)

// Match is a wagerable event. Odds are snapshotted onto wagers at placement
// time, so later edits to these fields never affect open wagers.
type Match struct {
	ID        int64           `db:"id"`
	HomeTeam  string          `db:"home_team"`
	AwayTeam  string          `db:"away_team"`
	HomeOdds  decimal.Decimal `db:"home_odds"`
	DrawOdds  decimal.Decimal `db:"draw_odds"`
	AwayOdds  decimal.Decimal `db:"away_odds"`
	Status    MatchStatus     `db:"status"`
	Result    *Outcome        `db:"result"`
	StartsAt  time.Time       `db:"starts_at"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// OpenForWagering reports whether new wagers may be placed on the match.
func (m *Match) OpenForWagering(now time.Time) bool {
	return m.Status == MatchStatusUpcoming && now.Before(m.StartsAt)
}

// OddsFor resolves the snapshotted odds for a predicted outcome.
func (m *Match) OddsFor(outcome Outcome) (decimal.Decimal, error) {
	switch outcome {
	case OutcomeHome:
		return m.HomeOdds, nil
	case OutcomeDraw:
		return m.DrawOdds, nil
	case OutcomeAway:
		return m.AwayOdds, nil
	default:
		return decimal.Zero, ErrInvalidOutcome
	}
}
