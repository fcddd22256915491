package domain

import (
	"math"
	"strings"
)

// Normalized returns the outcome with surrounding whitespace stripped from
// its identifiers, so receipts and ratings are keyed the same on every backend.
func (o MatchOutcome) Normalized() MatchOutcome {
	o.ID = strings.TrimSpace(o.ID)
	o.PlayerID = strings.TrimSpace(o.PlayerID)
	o.OpponentID = strings.TrimSpace(o.OpponentID)
	return o
}

func (o MatchOutcome) Validate() error {
	switch {
	case strings.TrimSpace(o.ID) == "":
		return NewValidationError("id", "outcome id is required")
	case strings.TrimSpace(o.PlayerID) == "":
		return NewValidationError("playerId", "player id is required")
	case strings.TrimSpace(o.OpponentID) == "":
		return NewValidationError("opponentId", "opponent id is required")
	case o.OpponentID == o.PlayerID:
		return NewValidationError("opponentId", "player cannot face themselves")
	case o.Opponent == nil:
		return NewValidationError("opponent", "opponent rating snapshot is required")
	case !finite(o.Opponent.Mu):
		return NewValidationError("opponent.mu", "must be a finite number")
	case !finite(o.Opponent.Sigma) || o.Opponent.Sigma <= 0:
		return NewValidationError("opponent.sigma", "must be a positive finite number")
	case !o.Result.Valid():
		return NewValidationError("result", "must be one of win, loss, draw")
	case o.Timestamp.IsZero():
		return NewValidationError("timestamp", "timestamp is required")
	}
	return nil
}

func (m MatchReport) Normalized() MatchReport {
	m.ID = strings.TrimSpace(m.ID)
	m.PlayerA = strings.TrimSpace(m.PlayerA)
	m.PlayerB = strings.TrimSpace(m.PlayerB)
	return m
}

func (m MatchReport) Validate() error {
	switch {
	case strings.TrimSpace(m.ID) == "":
		return NewValidationError("id", "match id is required")
	case strings.TrimSpace(m.PlayerA) == "":
		return NewValidationError("playerA", "player id is required")
	case strings.TrimSpace(m.PlayerB) == "":
		return NewValidationError("playerB", "player id is required")
	case m.PlayerA == m.PlayerB:
		return NewValidationError("playerB", "player cannot face themselves")
	case !m.Result.Valid():
		return NewValidationError("result", "must be one of win, loss, draw")
	case m.Timestamp.IsZero():
		return NewValidationError("timestamp", "timestamp is required")
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
