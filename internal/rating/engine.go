// Package rating implements the per-match skill update. Everything here is pure:
// the same inputs always produce the same outputs, so a retried submission
// recomputes exactly what the first attempt computed.
package rating

import (
	"fmt"
	"math"

	"ranked-ladder/internal/domain"
)

type Params struct {
	// K0 is the update rate at SigmaRef; K scales linearly with the player's sigma.
	K0         float64
	SigmaRef   float64
	SigmaDecay float64
	MinSigma   float64
	MaxSigma   float64
	MaxRating  float64
	// Z is the number of standard deviations subtracted for the conservative rating.
	Z float64
}

func DefaultParams() Params {
	return Params{
		K0:         60,
		SigmaRef:   350,
		SigmaDecay: 0.94,
		MinSigma:   25,
		MaxSigma:   350,
		MaxRating:  4000,
		Z:          3,
	}
}

func (p Params) Validate() error {
	for _, v := range []float64{p.K0, p.SigmaRef, p.SigmaDecay, p.MinSigma, p.MaxSigma, p.MaxRating, p.Z} {
		if !finite(v) {
			return fmt.Errorf("%w: rating parameters must be finite numbers", domain.ErrConfig)
		}
	}
	switch {
	case p.K0 <= 0:
		return fmt.Errorf("%w: K0 must be positive", domain.ErrConfig)
	case p.SigmaRef <= 0:
		return fmt.Errorf("%w: sigma reference must be positive", domain.ErrConfig)
	case p.SigmaDecay <= 0 || p.SigmaDecay > 1:
		return fmt.Errorf("%w: sigma decay must be in (0, 1]", domain.ErrConfig)
	case p.MinSigma <= 0 || p.MinSigma > p.MaxSigma:
		return fmt.Errorf("%w: sigma bounds must satisfy 0 < min <= max", domain.ErrConfig)
	case p.MaxRating <= 0:
		return fmt.Errorf("%w: max rating must be positive", domain.ErrConfig)
	case p.Z < 0:
		return fmt.Errorf("%w: Z must not be negative", domain.ErrConfig)
	}
	return nil
}

type Engine struct {
	params Params
}

func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: params}, nil
}

func (e *Engine) Params() Params {
	return e.params
}

// Conservative returns mu - Z*sigma.
func (e *Engine) Conservative(mu, sigma float64) float64 {
	return mu - e.params.Z*sigma
}

// ExpectedScore is the probability that a player rated muA beats one rated muB.
func ExpectedScore(muA, muB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (muB-muA)/400.0))
}

func Score(r domain.Result) (float64, error) {
	switch r {
	case domain.ResultWin:
		return 1.0, nil
	case domain.ResultDraw:
		return 0.5, nil
	case domain.ResultLoss:
		return 0.0, nil
	}
	return 0, domain.NewValidationError("result", fmt.Sprintf("unknown result %q", r))
}

// KFactor returns the update rate for a player with the given uncertainty.
func (e *Engine) KFactor(sigma float64) float64 {
	return e.params.K0 * (e.clampSigma(sigma) / e.params.SigmaRef)
}

// Update computes the player's rating after one match against opponent.
// Only Mu, Sigma and MatchesPlayed change on the returned copy.
func (e *Engine) Update(player domain.PlayerRating, opponent domain.RatingSnapshot, result domain.Result) (domain.PlayerRating, domain.RatingDelta, error) {
	if !finite(player.Mu) {
		return player, domain.RatingDelta{}, domain.NewValidationError("mu", "must be a finite number")
	}
	if !finite(player.Sigma) || player.Sigma <= 0 {
		return player, domain.RatingDelta{}, domain.NewValidationError("sigma", "must be a positive finite number")
	}
	if !finite(opponent.Mu) {
		return player, domain.RatingDelta{}, domain.NewValidationError("opponent.mu", "must be a finite number")
	}
	s, err := Score(result)
	if err != nil {
		return player, domain.RatingDelta{}, err
	}

	expected := ExpectedScore(player.Mu, opponent.Mu)
	k := e.KFactor(player.Sigma)

	next := player.Clone()
	next.Mu = clamp(player.Mu+k*(s-expected), 0, e.params.MaxRating)
	next.Sigma = e.shrinkSigma(player.Sigma)
	next.MatchesPlayed = player.MatchesPlayed + 1

	return next, domain.RatingDelta{
		Mu:       next.Mu - player.Mu,
		Sigma:    next.Sigma - player.Sigma,
		Expected: expected,
		Score:    s,
		K:        k,
	}, nil
}

// shrinkSigma decays sigma toward MinSigma. A sigma already below the floor
// is left where it is.
func (e *Engine) shrinkSigma(sigma float64) float64 {
	return math.Min(sigma, math.Max(e.params.MinSigma, math.Min(sigma, e.params.MaxSigma)*e.params.SigmaDecay))
}

func (e *Engine) clampSigma(sigma float64) float64 {
	return clamp(sigma, e.params.MinSigma, e.params.MaxSigma)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
