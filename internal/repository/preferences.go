package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ranked-ladder/internal/domain"
)

func (r *RatingRepository) GetPreferences(ctx context.Context, playerID string) (domain.Preferences, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM player_preferences WHERE player_id = ?`, playerID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Preferences{}, false, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to get preferences")
		return domain.Preferences{}, false, fmt.Errorf("failed to get preferences: %w", err)
	}

	var prefs domain.Preferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return domain.Preferences{}, false, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return prefs, true, nil
}

func (r *RatingRepository) SavePreferences(ctx context.Context, playerID string, prefs domain.Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO player_preferences (player_id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		playerID, string(raw), time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to save preferences")
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
