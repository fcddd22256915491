package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ranked-ladder/internal/domain"

	"github.com/rs/zerolog"
)

type LeaderboardQuery struct {
	Tier   string
	Limit  int
	Offset int
	// Z weights sigma in the conservative rating used for ordering.
	Z float64
}

type RatingRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRatingRepository(sqlDB *sql.DB, logger zerolog.Logger) *RatingRepository {
	return &RatingRepository{
		db:     sqlDB,
		logger: logger,
	}
}

const ratingColumns = `player_id, mu, sigma, matches_played, version, tier, division, band, lp,
	wins, losses, draws, current_streak, best_streak, peak_tier, points, last_updated`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRating(row rowScanner) (domain.PlayerRating, error) {
	var (
		r      domain.PlayerRating
		band   string
		points string
	)
	err := row.Scan(
		&r.PlayerID, &r.Mu, &r.Sigma, &r.MatchesPlayed, &r.Version, &r.Tier, &r.Division, &band, &r.LP,
		&r.Wins, &r.Losses, &r.Draws, &r.CurrentStreak, &r.BestStreak, &r.PeakTier, &points, &r.LastUpdated,
	)
	if err != nil {
		return domain.PlayerRating{}, err
	}
	r.Band = domain.ConfidenceBand(band)
	if err := json.Unmarshal([]byte(points), &r.Points); err != nil {
		return domain.PlayerRating{}, fmt.Errorf("failed to decode points for %s: %w", r.PlayerID, err)
	}
	return r, nil
}

func (r *RatingRepository) Get(ctx context.Context, playerID string) (domain.PlayerRating, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ratingColumns+` FROM player_ratings WHERE player_id = ?`, playerID)
	rating, err := scanRating(row)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Debug().Str("player_id", playerID).Msg("player not rated yet, using defaults")
		return domain.NewPlayerRating(playerID, ""), nil
	}
	if err != nil {
		r.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to get rating")
		return domain.PlayerRating{}, fmt.Errorf("failed to get rating: %w", err)
	}
	return rating, nil
}

// CompareAndSet writes rating as version expectedVersion+1 together with the
// outcome receipt and its progression events. Nothing is written when the
// stored version differs or the outcome was already applied for this player.
func (r *RatingRepository) CompareAndSet(ctx context.Context, expectedVersion int64, rating domain.PlayerRating, result domain.ProgressionResult) error {
	points, err := json.Marshal(rating.Points)
	if err != nil {
		return fmt.Errorf("failed to encode points: %w", err)
	}
	receipt, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var res sql.Result
	if expectedVersion == 0 {
		res, err = tx.ExecContext(ctx, `
			INSERT INTO player_ratings (`+ratingColumns+`, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(player_id) DO NOTHING`,
			rating.PlayerID, rating.Mu, rating.Sigma, rating.MatchesPlayed, expectedVersion+1,
			rating.Tier, rating.Division, string(rating.Band), rating.LP,
			rating.Wins, rating.Losses, rating.Draws, rating.CurrentStreak, rating.BestStreak,
			rating.PeakTier, string(points), rating.LastUpdated, now,
		)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE player_ratings SET
				mu = ?, sigma = ?, matches_played = ?, version = ?, tier = ?, division = ?, band = ?, lp = ?,
				wins = ?, losses = ?, draws = ?, current_streak = ?, best_streak = ?,
				peak_tier = ?, points = ?, last_updated = ?
			WHERE player_id = ? AND version = ?`,
			rating.Mu, rating.Sigma, rating.MatchesPlayed, expectedVersion+1,
			rating.Tier, rating.Division, string(rating.Band), rating.LP,
			rating.Wins, rating.Losses, rating.Draws, rating.CurrentStreak, rating.BestStreak,
			rating.PeakTier, string(points), rating.LastUpdated,
			rating.PlayerID, expectedVersion,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to write rating: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to write rating: %w", err)
	} else if n == 0 {
		return r.conflict(ctx, tx, rating.PlayerID, expectedVersion)
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO applied_outcomes (outcome_id, player_id, result, applied_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		result.OutcomeID, rating.PlayerID, string(receipt), now,
	)
	if err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	} else if n == 0 {
		r.logger.Debug().Str("player_id", rating.PlayerID).Str("outcome_id", result.OutcomeID).Msg("outcome already applied")
		return &domain.ConcurrencyError{PlayerID: rating.PlayerID, Expected: expectedVersion, Actual: expectedVersion}
	}

	if err := insertEvents(ctx, tx, result.Events, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rating: %w", err)
	}
	return nil
}

func (r *RatingRepository) conflict(ctx context.Context, tx *sql.Tx, playerID string, expected int64) error {
	var actual int64
	err := tx.QueryRowContext(ctx, `SELECT version FROM player_ratings WHERE player_id = ?`, playerID).Scan(&actual)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read version: %w", err)
	}
	r.logger.Debug().
		Str("player_id", playerID).
		Int64("expected_version", expected).
		Int64("actual_version", actual).
		Msg("rating version conflict")
	return &domain.ConcurrencyError{PlayerID: playerID, Expected: expected, Actual: actual}
}

func (r *RatingRepository) GetReceipt(ctx context.Context, outcomeID, playerID string) (domain.ProgressionResult, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT result FROM applied_outcomes WHERE outcome_id = ? AND player_id = ?`,
		outcomeID, playerID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProgressionResult{}, false, nil
	}
	if err != nil {
		return domain.ProgressionResult{}, false, fmt.Errorf("failed to get receipt: %w", err)
	}

	var result domain.ProgressionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return domain.ProgressionResult{}, false, fmt.Errorf("failed to decode receipt: %w", err)
	}
	return result, true, nil
}

func (r *RatingRepository) ListLeaderboard(ctx context.Context, q LeaderboardQuery) ([]domain.LeaderboardEntry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT player_id, mu - ? * sigma AS conservative, mu, sigma, tier, division, band, lp, matches_played
		FROM player_ratings
		WHERE (? = '' OR tier = ?)
		ORDER BY conservative DESC, player_id ASC
		LIMIT ? OFFSET ?`,
		q.Z, q.Tier, q.Tier, limit, q.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []domain.LeaderboardEntry{}
	for rows.Next() {
		var (
			e    domain.LeaderboardEntry
			band string
		)
		if err := rows.Scan(&e.PlayerID, &e.ConservativeRating, &e.Mu, &e.Sigma, &e.Tier, &e.Division, &band, &e.LP, &e.MatchesPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		e.Band = domain.ConfidenceBand(band)
		e.Rank = q.Offset + len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *RatingRepository) TierCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tier, COUNT(*) FROM player_ratings GROUP BY tier`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tiers: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			tier  string
			count int
		)
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("failed to scan tier count: %w", err)
		}
		counts[tier] = count
	}
	return counts, rows.Err()
}

func (r *RatingRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}
