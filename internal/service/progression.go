package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ranked-ladder/internal/constants"
	"ranked-ladder/internal/domain"
	"ranked-ladder/internal/metrics"
	"ranked-ladder/internal/rating"
	"ranked-ladder/internal/tier"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

type ProgressionOptions struct {
	DemotionMargin float64
	BandMargin     float64
	MaxRetries     int
	RetryBaseDelay time.Duration
}

func DefaultProgressionOptions() ProgressionOptions {
	return ProgressionOptions{
		DemotionMargin: 10,
		BandMargin:     10,
		MaxRetries:     constants.MaxApplyRetries,
		RetryBaseDelay: constants.DefaultRetryBaseWait,
	}
}

type ProgressionService struct {
	store   RatingStore
	engine  *rating.Engine
	mapper  *tier.Mapper
	rewards RewardService
	metrics *metrics.Metrics
	opts    ProgressionOptions
	logger  zerolog.Logger

	tiers ladder
	bands ladder
	newID func() (string, error)

	// reward deliveries still running
	inflight sync.WaitGroup
}

func NewProgressionService(
	store RatingStore,
	engine *rating.Engine,
	mapper *tier.Mapper,
	rewards RewardService,
	m *metrics.Metrics,
	opts ProgressionOptions,
	logger zerolog.Logger,
) *ProgressionService {
	return &ProgressionService{
		store:   store,
		engine:  engine,
		mapper:  mapper,
		rewards: rewards,
		metrics: m,
		opts:    opts,
		logger:  logger,
		tiers:   tierLadder(mapper.Table()),
		bands:   bandLadder(),
		newID:   func() (string, error) { return gonanoid.New() },
	}
}

// ApplyMatchResult folds one outcome into the player's rating. Version
// conflicts rerun the whole pipeline against fresh state; once the retry budget
// is spent the error wraps domain.ErrStaleState and the caller should resubmit.
func (s *ProgressionService) ApplyMatchResult(ctx context.Context, outcome domain.MatchOutcome) (domain.ProgressionResult, error) {
	outcome = outcome.Normalized()
	if err := outcome.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("outcome_id", outcome.ID).Msg("rejected match outcome")
		return domain.ProgressionResult{}, err
	}

	log := s.logger.With().
		Str("outcome_id", outcome.ID).
		Str("player_id", outcome.PlayerID).
		Str("result", string(outcome.Result)).
		Logger()

	var (
		result   domain.ProgressionResult
		attempts int
	)
	backoff := retry.WithMaxRetries(uint64(s.opts.MaxRetries), retry.NewExponential(s.opts.RetryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		res, err := s.apply(ctx, outcome)
		if errors.Is(err, domain.ErrConcurrency) {
			s.metrics.VersionConflicts.Inc()
			log.Debug().Err(err).Int("attempt", attempts).Msg("version conflict, retrying")
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConcurrency) {
			s.metrics.StaleFailures.Inc()
			log.Warn().Err(err).Int("attempts", attempts).Msg("giving up on outcome after version conflicts")
			return domain.ProgressionResult{}, fmt.Errorf("%w: outcome %s for player %s after %d attempts: %w",
				domain.ErrStaleState, outcome.ID, outcome.PlayerID, attempts, err)
		}
		log.Error().Err(err).Msg("failed to apply outcome")
		return domain.ProgressionResult{}, err
	}

	if result.Replayed {
		s.metrics.OutcomesReplayed.Inc()
		log.Info().Msg("outcome already applied, returning stored result")
		return result, nil
	}

	s.metrics.OutcomesApplied.WithLabelValues(string(outcome.Result)).Inc()
	for _, ev := range result.Events {
		s.metrics.ProgressionEvents.WithLabelValues(string(ev.Type)).Inc()
	}
	log.Info().
		Float64("mu", result.Rating.Mu).
		Float64("sigma", result.Rating.Sigma).
		Float64("delta_mu", result.Delta.Mu).
		Str("tier", result.Tier).
		Str("band", string(result.Band)).
		Float64("lp", result.LP).
		Int("events", len(result.Events)).
		Int64("version", result.Rating.Version).
		Int("attempts", attempts).
		Msg("outcome applied")

	s.dispatchRewards(outcome.PlayerID, result.Events)
	return result, nil
}

// apply runs one pass of load, update, map, settle and persist.
func (s *ProgressionService) apply(ctx context.Context, outcome domain.MatchOutcome) (domain.ProgressionResult, error) {
	if prior, found, err := s.store.GetReceipt(ctx, outcome.ID, outcome.PlayerID); err != nil {
		return domain.ProgressionResult{}, err
	} else if found {
		prior.Replayed = true
		return prior, nil
	}

	current, err := s.store.Get(ctx, outcome.PlayerID)
	if err != nil {
		return domain.ProgressionResult{}, err
	}
	oldTier, oldBand, err := s.displayed(&current)
	if err != nil {
		return domain.ProgressionResult{}, err
	}

	next, delta, err := s.engine.Update(current, *outcome.Opponent, outcome.Result)
	if err != nil {
		return domain.ProgressionResult{}, err
	}
	conservative := s.engine.Conservative(next.Mu, next.Sigma)
	candidate, err := s.mapper.Map(conservative, next.Sigma)
	if err != nil {
		return domain.ProgressionResult{}, err
	}

	table := s.mapper.Table()
	newTier := s.tiers.settle(oldTier, candidate.Index, conservative, s.opts.DemotionMargin)
	newBand := s.bands.settle(oldBand, candidate.Band.Rank(), -next.Sigma, s.opts.BandMargin)

	lp := candidate.LP
	if newTier != candidate.Index {
		// displayed tier is protected; progress inside it floors at zero
		lp = 0
	}

	next.Tier = table.At(newTier).Name
	next.Band = domain.Bands[newBand]
	next.LP = lp
	next.Division = tier.DivisionFor(lp)
	next.LastUpdated = outcome.Timestamp
	next.Version = current.Version + 1
	if peak, ok := table.Index(next.PeakTier); !ok || newTier > peak {
		next.PeakTier = next.Tier
	}

	recordResult(&next, outcome.Result)
	won := outcome.Result == domain.ResultWin
	firstWin := won && isFirstWinOfDay(next.Points.LastWinAt, outcome.Timestamp)
	points := matchPoints(outcome.Result, table.At(oldTier).PointsMultiplier, next.CurrentStreak, firstWin)
	creditPoints(&next.Points, points, outcome.Region, outcome.Format)
	next.Points.LastUpdate = outcome.Timestamp
	if won && outcome.Timestamp.After(next.Points.LastWinAt) {
		next.Points.LastWinAt = outcome.Timestamp
	}

	events := append(
		tierEvents(table, oldTier, newTier, domain.Bands[oldBand], next.Band),
		bandEvents(next.Tier, oldBand, newBand)...,
	)
	for i := range events {
		id, err := s.newID()
		if err != nil {
			return domain.ProgressionResult{}, fmt.Errorf("failed to generate event id: %w", err)
		}
		events[i].ID = id
		events[i].OutcomeID = outcome.ID
		events[i].PlayerID = outcome.PlayerID
		events[i].Timestamp = outcome.Timestamp
	}

	result := domain.ProgressionResult{
		OutcomeID:     outcome.ID,
		PlayerID:      outcome.PlayerID,
		Previous:      domain.RatingSnapshot{Mu: current.Mu, Sigma: current.Sigma},
		Rating:        next,
		Delta:         delta,
		Tier:          next.Tier,
		Division:      next.Division,
		Band:          next.Band,
		LP:            lp,
		Events:        events,
		PointsAwarded: points,
	}
	if err := s.store.CompareAndSet(ctx, current.Version, next, result); err != nil {
		return domain.ProgressionResult{}, err
	}
	return result, nil
}

// displayed resolves the tier and band the player currently sees. Fresh
// players start at the bottom of the ladder; a tier name the table no longer
// knows falls back to the rating's natural placement.
func (s *ProgressionService) displayed(r *domain.PlayerRating) (int, int, error) {
	table := s.mapper.Table()
	if r.Version == 0 || r.Tier == "" {
		r.Tier = table.Lowest().Name
		r.Band = domain.BandUncertain
	}
	if r.PeakTier == "" {
		r.PeakTier = r.Tier
	}

	tierIdx, ok := table.Index(r.Tier)
	if !ok {
		p, err := s.mapper.Map(s.engine.Conservative(r.Mu, r.Sigma), r.Sigma)
		if err != nil {
			return 0, 0, err
		}
		tierIdx = p.Index
	}
	bandIdx := r.Band.Rank()
	if bandIdx < 0 {
		bandIdx = tier.BandFor(r.Sigma).Rank()
	}
	return tierIdx, bandIdx, nil
}

// ApplyMatch applies both sides of a match. Each side is committed on its own;
// resubmitting the same report only applies whichever side is still missing.
func (s *ProgressionService) ApplyMatch(ctx context.Context, report domain.MatchReport) (domain.PairedResult, error) {
	report = report.Normalized()
	if err := report.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("match_id", report.ID).Msg("rejected match report")
		return domain.PairedResult{}, err
	}

	var snapA, snapB domain.RatingSnapshot
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapA, err = s.preMatchSnapshot(gCtx, report.ID, report.PlayerA)
		return err
	})
	g.Go(func() error {
		var err error
		snapB, err = s.preMatchSnapshot(gCtx, report.ID, report.PlayerB)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("match_id", report.ID).Msg("failed to load match participants")
		return domain.PairedResult{}, fmt.Errorf("failed to load match participants: %w", err)
	}

	outcomeA := domain.MatchOutcome{
		ID: report.ID, PlayerID: report.PlayerA, OpponentID: report.PlayerB, Opponent: &snapB,
		Result: report.Result, Timestamp: report.Timestamp, Region: report.Region, Format: report.Format,
	}
	outcomeB := domain.MatchOutcome{
		ID: report.ID, PlayerID: report.PlayerB, OpponentID: report.PlayerA, Opponent: &snapA,
		Result: report.Result.Invert(), Timestamp: report.Timestamp, Region: report.Region, Format: report.Format,
	}

	paired := domain.PairedResult{MatchID: report.ID}
	g, gCtx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		paired.PlayerA, err = s.ApplyMatchResult(gCtx, outcomeA)
		return err
	})
	g.Go(func() error {
		var err error
		paired.PlayerB, err = s.ApplyMatchResult(gCtx, outcomeB)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.PairedResult{}, err
	}
	return paired, nil
}

// preMatchSnapshot returns the player's rating as it was before this match,
// taken from the receipt when that side has already been applied.
func (s *ProgressionService) preMatchSnapshot(ctx context.Context, matchID, playerID string) (domain.RatingSnapshot, error) {
	if prior, found, err := s.store.GetReceipt(ctx, matchID, playerID); err != nil {
		return domain.RatingSnapshot{}, err
	} else if found {
		return prior.Previous, nil
	}
	r, err := s.store.Get(ctx, playerID)
	if err != nil {
		return domain.RatingSnapshot{}, err
	}
	return domain.RatingSnapshot{Mu: r.Mu, Sigma: r.Sigma}, nil
}

// dispatchRewards hands events to the reward service in the background.
// Delivery failures are logged and counted; the rating commit stands.
func (s *ProgressionService) dispatchRewards(playerID string, events []domain.ProgressionEvent) {
	if len(events) == 0 || s.rewards == nil {
		return
	}

	s.inflight.Add(1)
	g := new(errgroup.Group)
	for _, ev := range events {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), constants.ExternalAPITimeout)
			defer cancel()
			if err := s.rewards.Award(ctx, playerID, ev); err != nil {
				s.metrics.RewardFailures.Inc()
				return fmt.Errorf("award %s for %s: %w", ev.ID, playerID, err)
			}
			return nil
		})
	}

	go func() {
		defer s.inflight.Done()
		if err := g.Wait(); err != nil {
			s.logger.Error().Err(err).Str("player_id", playerID).Msg("reward dispatch failed")
		}
	}()
}

// WaitForRewards blocks until background reward deliveries finish.
func (s *ProgressionService) WaitForRewards() {
	s.inflight.Wait()
}
