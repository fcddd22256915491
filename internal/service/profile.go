package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"ranked-ladder/internal/constants"
	"ranked-ladder/internal/domain"
	"ranked-ladder/internal/rating"
	"ranked-ladder/internal/repository"
	"ranked-ladder/internal/tier"

	"github.com/rs/zerolog"
)

// ProfileService serves read views over the ladder and owns player preferences.
// It never touches ratings.
type ProfileService struct {
	store             Store
	engine            *rating.Engine
	table             *tier.Table
	qualificationTier int
	logger            zerolog.Logger
	now               func() time.Time
}

func NewProfileService(store Store, engine *rating.Engine, table *tier.Table, qualificationTier string, logger zerolog.Logger) (*ProfileService, error) {
	idx, ok := table.Index(qualificationTier)
	if !ok {
		return nil, fmt.Errorf("%w: qualification tier %q is not in the tier table", domain.ErrConfig, qualificationTier)
	}
	return &ProfileService{
		store:             store,
		engine:            engine,
		table:             table,
		qualificationTier: idx,
		logger:            logger,
		now:               time.Now,
	}, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Profile{}, domain.NewValidationError("userId", "user id is required")
	}

	r, err := s.store.Get(ctx, userID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to load rating: %w", err)
	}
	prefs, found, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	if r.Version == 0 && !found {
		return domain.Profile{}, fmt.Errorf("%w: player %s", domain.ErrNotFound, userID)
	}
	if !found {
		prefs = domain.DefaultPreferences()
	}
	return s.buildProfile(r, prefs), nil
}

// UpdatePreferences merges patch into the stored preferences and returns the
// refreshed profile.
func (s *ProfileService) UpdatePreferences(ctx context.Context, userID string, patch domain.PreferencesPatch) (domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Profile{}, domain.NewValidationError("userId", "user id is required")
	}
	if err := patch.Validate(); err != nil {
		return domain.Profile{}, err
	}

	prefs, found, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	if !found {
		prefs = domain.DefaultPreferences()
	}
	prefs = patch.Merge(prefs)
	prefs.UpdatedAt = s.now().UTC()
	if err := s.store.SavePreferences(ctx, userID, prefs); err != nil {
		return domain.Profile{}, fmt.Errorf("failed to save preferences: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Msg("preferences updated")

	r, err := s.store.Get(ctx, userID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to load rating: %w", err)
	}
	return s.buildProfile(r, prefs), nil
}

func (s *ProfileService) buildProfile(r domain.PlayerRating, prefs domain.Preferences) domain.Profile {
	tierName, band := r.Tier, r.Band
	if tierName == "" {
		tierName = s.table.Lowest().Name
	}
	if !band.Valid() {
		band = tier.BandFor(r.Sigma)
	}

	p := domain.Profile{
		UserID:               r.PlayerID,
		CurrentPoints:        int(math.Floor(r.LP)),
		Tier:                 tierName,
		Division:             r.Division,
		Band:                 band,
		GlobalPoints:         r.Points.Global,
		FormatSpecificPoints: map[string]int{},
		QualificationStatus:  s.qualification(r.MatchesPlayed, tierName),
		Preferences:          prefs,
	}
	if p.Division == 0 {
		p.Division = tier.DivisionFor(r.LP)
	}
	if prefs.Region != "" {
		p.RegionalPoints = r.Points.ByRegion[prefs.Region]
	}
	for format, pts := range r.Points.ByFormat {
		p.FormatSpecificPoints[format] = pts
	}
	if !r.Points.LastUpdate.IsZero() {
		ts := r.Points.LastUpdate
		p.LastPointUpdate = &ts
	}
	return p
}

func (s *ProfileService) qualification(matchesPlayed int, tierName string) domain.QualificationStatus {
	if matchesPlayed < constants.PlacementMatches {
		return domain.QualificationProvisional
	}
	if idx, ok := s.table.Index(tierName); ok && idx >= s.qualificationTier {
		return domain.QualificationQualified
	}
	return domain.QualificationUnqualified
}

// Leaderboard ranks players by conservative rating, optionally within one tier.
func (s *ProfileService) Leaderboard(ctx context.Context, tierName string, limit, offset int) ([]domain.LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	tierName = strings.TrimSpace(tierName)
	if tierName != "" {
		if _, ok := s.table.Index(tierName); !ok {
			return nil, domain.NewValidationError("tier", fmt.Sprintf("unknown tier %q", tierName))
		}
	}
	if offset < 0 {
		return nil, domain.NewValidationError("offset", "must not be negative")
	}
	switch {
	case limit <= 0:
		limit = constants.DefaultLeaderboardLimit
	case limit > constants.MaxLeaderboardLimit:
		limit = constants.MaxLeaderboardLimit
	}

	return s.store.ListLeaderboard(ctx, repository.LeaderboardQuery{
		Tier:   tierName,
		Limit:  limit,
		Offset: offset,
		Z:      s.engine.Params().Z,
	})
}

// Distribution counts players per displayed tier. Every tier in the table is
// listed, in ladder order, even when empty.
func (s *ProfileService) Distribution(ctx context.Context) ([]domain.TierCount, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	counts, err := s.store.TierCounts(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, c := range counts {
		total += c
	}

	out := make([]domain.TierCount, 0, s.table.Len())
	for _, def := range s.table.Tiers() {
		tc := domain.TierCount{Tier: def.Name, Count: counts[def.Name]}
		if total > 0 {
			tc.Percentage = math.Round(float64(tc.Count)/float64(total)*10000) / 100
		}
		out = append(out, tc)
	}
	return out, nil
}

// History returns a player's most recent progression events, newest first.
func (s *ProfileService) History(ctx context.Context, userID string, limit int) ([]domain.ProgressionEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.NewValidationError("userId", "user id is required")
	}
	if limit <= 0 || limit > constants.DefaultHistoryLimit {
		limit = constants.DefaultHistoryLimit
	}
	return s.store.ListEvents(ctx, userID, limit)
}

// Ready reports whether the backing store can serve requests.
func (s *ProfileService) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.store.Ping(ctx)
}
