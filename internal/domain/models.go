package domain

import (
	"time"
)

const (
	DefaultMu    = 1500.0
	DefaultSigma = 350.0

	// DivisionsPerTier splits every tier into equal LP slices. Division 1 is
	// the top slice, so a fresh player sits in the last one.
	DivisionsPerTier = 4
)

type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
)

func (r Result) Valid() bool {
	switch r {
	case ResultWin, ResultLoss, ResultDraw:
		return true
	}
	return false
}

// Invert returns the result as seen from the opponent's side.
func (r Result) Invert() Result {
	switch r {
	case ResultWin:
		return ResultLoss
	case ResultLoss:
		return ResultWin
	}
	return r
}

type PointTotals struct {
	Global     int            `json:"global"`
	ByRegion   map[string]int `json:"byRegion,omitempty"`
	ByFormat   map[string]int `json:"byFormat,omitempty"`
	LastUpdate time.Time      `json:"lastUpdate"`
	// LastWinAt is the latest win credited, used for the first-win-of-day bonus.
	LastWinAt  time.Time      `json:"lastWinAt"`
}

func (p PointTotals) Clone() PointTotals {
	out := PointTotals{Global: p.Global, LastUpdate: p.LastUpdate, LastWinAt: p.LastWinAt}
	if len(p.ByRegion) > 0 {
		out.ByRegion = make(map[string]int, len(p.ByRegion))
		for k, v := range p.ByRegion {
			out.ByRegion[k] = v
		}
	}
	if len(p.ByFormat) > 0 {
		out.ByFormat = make(map[string]int, len(p.ByFormat))
		for k, v := range p.ByFormat {
			out.ByFormat[k] = v
		}
	}
	return out
}

type PlayerRating struct {
	PlayerID      string    `json:"playerId"`
	Mu            float64   `json:"mu"`
	Sigma         float64   `json:"sigma"`
	MatchesPlayed int       `json:"matchesPlayed"`
	Version       int64     `json:"version"`
	LastUpdated   time.Time `json:"lastUpdated"`

	// displayed ladder position, kept so demotion protection survives between matches
	Tier     string         `json:"tier"`
	Division int            `json:"division"`
	Band     ConfidenceBand `json:"band"`
	LP       float64        `json:"lp"`

	Wins          int         `json:"wins"`
	Losses        int         `json:"losses"`
	Draws         int         `json:"draws"`
	CurrentStreak int         `json:"currentStreak"`
	BestStreak    int         `json:"bestStreak"`
	PeakTier      string      `json:"peakTier"`
	Points        PointTotals `json:"points"`
}

// NewPlayerRating returns the rating of a player who has never been persisted.
func NewPlayerRating(playerID, lowestTier string) PlayerRating {
	return PlayerRating{
		PlayerID: playerID,
		Mu:       DefaultMu,
		Sigma:    DefaultSigma,
		Tier:     lowestTier,
		Division: DivisionsPerTier,
		Band:     BandUncertain,
		PeakTier: lowestTier,
	}
}

// Clone copies the rating including its point maps.
func (r PlayerRating) Clone() PlayerRating {
	r.Points = r.Points.Clone()
	return r
}

type RatingSnapshot struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

type MatchOutcome struct {
	ID         string          `json:"id"`
	PlayerID   string          `json:"playerId"`
	OpponentID string          `json:"opponentId"`
	Opponent   *RatingSnapshot `json:"opponent"`
	Result     Result          `json:"result"`
	Timestamp  time.Time       `json:"timestamp"`
	Region     string          `json:"region,omitempty"`
	Format     string          `json:"format,omitempty"`
}

// MatchReport describes a finished match between two players. Result is from PlayerA's side.
type MatchReport struct {
	ID        string    `json:"id"`
	PlayerA   string    `json:"playerA"`
	PlayerB   string    `json:"playerB"`
	Result    Result    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
	Region    string    `json:"region,omitempty"`
	Format    string    `json:"format,omitempty"`
}

type EventType string

const (
	EventPromotion     EventType = "promotion"
	EventDemotion      EventType = "demotion"
	EventBandPromotion EventType = "band_promotion"
	EventBandDemotion  EventType = "band_demotion"
)

type ProgressionEvent struct {
	ID        string         `json:"id"`
	OutcomeID string         `json:"outcomeId"`
	PlayerID  string         `json:"playerId"`
	Type      EventType      `json:"type"`
	FromTier  string         `json:"fromTier"`
	ToTier    string         `json:"toTier"`
	FromBand  ConfidenceBand `json:"fromBand"`
	ToBand    ConfidenceBand `json:"toBand"`
	Timestamp time.Time      `json:"timestamp"`
}

type RatingDelta struct {
	Mu       float64 `json:"mu"`
	Sigma    float64 `json:"sigma"`
	Expected float64 `json:"expected"`
	Score    float64 `json:"score"`
	K        float64 `json:"k"`
}

type ProgressionResult struct {
	OutcomeID     string             `json:"outcomeId"`
	PlayerID      string             `json:"playerId"`
	Previous      RatingSnapshot     `json:"previous"`
	Rating        PlayerRating       `json:"rating"`
	Delta         RatingDelta        `json:"delta"`
	Tier          string             `json:"tier"`
	Division      int                `json:"division"`
	Band          ConfidenceBand     `json:"band"`
	LP            float64            `json:"lp"`
	Events        []ProgressionEvent `json:"events"`
	PointsAwarded int                `json:"pointsAwarded"`
	Replayed      bool               `json:"replayed"`
}

type PairedResult struct {
	MatchID string            `json:"matchId"`
	PlayerA ProgressionResult `json:"playerA"`
	PlayerB ProgressionResult `json:"playerB"`
}

type LeaderboardEntry struct {
	Rank               int            `json:"rank"`
	PlayerID           string         `json:"playerId"`
	ConservativeRating float64        `json:"conservativeRating"`
	Mu                 float64        `json:"mu"`
	Sigma              float64        `json:"sigma"`
	Tier               string         `json:"tier"`
	Division           int            `json:"division"`
	Band               ConfidenceBand `json:"band"`
	LP                 float64        `json:"lp"`
	MatchesPlayed      int            `json:"matchesPlayed"`
}

type TierCount struct {
	Tier       string  `json:"tier"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}
