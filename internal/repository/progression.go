package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ranked-ladder/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

func insertEvents(ctx context.Context, tx *sql.Tx, events []domain.ProgressionEvent, now time.Time) error {
	for _, ev := range events {
		id := ev.ID
		if id == "" {
			var err error
			id, err = gonanoid.New()
			if err != nil {
				return fmt.Errorf("failed to generate nanoid: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO progression_events
			(id, outcome_id, player_id, type, from_tier, to_tier, from_band, to_band, occurred_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, ev.OutcomeID, ev.PlayerID, string(ev.Type),
			ev.FromTier, ev.ToTier, string(ev.FromBand), string(ev.ToBand),
			ev.Timestamp, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert progression event: %w", err)
		}
	}
	return nil
}

// ListEvents returns a player's progression events, newest first.
func (r *RatingRepository) ListEvents(ctx context.Context, playerID string, limit int) ([]domain.ProgressionEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, outcome_id, player_id, type, from_tier, to_tier, from_band, to_band, occurred_at
		FROM progression_events
		WHERE player_id = ?
		ORDER BY rowid DESC
		LIMIT ?`,
		playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list progression events: %w", err)
	}
	defer rows.Close()

	events := []domain.ProgressionEvent{}
	for rows.Next() {
		var (
			ev                    domain.ProgressionEvent
			typ, fromBand, toBand string
		)
		if err := rows.Scan(&ev.ID, &ev.OutcomeID, &ev.PlayerID, &typ, &ev.FromTier, &ev.ToTier, &fromBand, &toBand, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan progression event: %w", err)
		}
		ev.Type = domain.EventType(typ)
		ev.FromBand = domain.ConfidenceBand(fromBand)
		ev.ToBand = domain.ConfidenceBand(toBand)
		events = append(events, ev)
	}
	return events, rows.Err()
}
