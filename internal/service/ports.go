package service

import (
	"context"

	"ranked-ladder/internal/domain"
	"ranked-ladder/internal/repository"
)

// RatingStore is the single source of truth for player ratings.
type RatingStore interface {
	// Get returns the stored rating, or a version-0 default for unknown players.
	Get(ctx context.Context, playerID string) (domain.PlayerRating, error)
	// CompareAndSet persists rating and its receipt atomically when the stored
	// version still equals expectedVersion; otherwise it returns a *domain.ConcurrencyError.
	CompareAndSet(ctx context.Context, expectedVersion int64, rating domain.PlayerRating, result domain.ProgressionResult) error
	GetReceipt(ctx context.Context, outcomeID, playerID string) (domain.ProgressionResult, bool, error)
}

type LadderReader interface {
	ListLeaderboard(ctx context.Context, q repository.LeaderboardQuery) ([]domain.LeaderboardEntry, error)
	TierCounts(ctx context.Context) (map[string]int, error)
	ListEvents(ctx context.Context, playerID string, limit int) ([]domain.ProgressionEvent, error)
}

type PreferenceStore interface {
	GetPreferences(ctx context.Context, playerID string) (domain.Preferences, bool, error)
	SavePreferences(ctx context.Context, playerID string, prefs domain.Preferences) error
}

// Store is everything the services need from persistence.
type Store interface {
	RatingStore
	LadderReader
	PreferenceStore
	Ping(ctx context.Context) error
}

// RewardService issues rewards for progression events. Delivery is best effort.
type RewardService interface {
	Award(ctx context.Context, playerID string, event domain.ProgressionEvent) error
}

// OpponentProposer suggests a next opponent for a player. Matchmaking lives
// outside this service; the port exists so callers can plug one in.
type OpponentProposer interface {
	ProposeOpponent(ctx context.Context, playerID string) (string, error)
}
