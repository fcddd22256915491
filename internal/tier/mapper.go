package tier

import (
	"math"

	"ranked-ladder/internal/domain"
)

// Band thresholds on sigma: anything below the limit qualifies for the band.
const (
	ProvenSigma      = 50.0
	EstablishedSigma = 100.0
	DevelopingSigma  = 200.0
)

// BandFor derives the confidence band from sigma alone.
func BandFor(sigma float64) domain.ConfidenceBand {
	switch {
	case sigma < ProvenSigma:
		return domain.BandProven
	case sigma < EstablishedSigma:
		return domain.BandEstablished
	case sigma < DevelopingSigma:
		return domain.BandDeveloping
	default:
		return domain.BandUncertain
	}
}

// BandCeiling is the sigma a player must stay under to hold band b.
// The lowest band has no ceiling.
func BandCeiling(b domain.ConfidenceBand) float64 {
	switch b {
	case domain.BandProven:
		return ProvenSigma
	case domain.BandEstablished:
		return EstablishedSigma
	case domain.BandDeveloping:
		return DevelopingSigma
	}
	return math.Inf(1)
}

type Placement struct {
	Tier     Definition            `json:"tier"`
	Index    int                   `json:"index"`
	Division int                   `json:"division"`
	Band     domain.ConfidenceBand `json:"band"`
	LP       float64               `json:"lp"`
}

// DivisionFor places LP inside its tier. Each division covers an equal share
// of the 0-100 LP range; LP past 100 in the top tier stays in division 1.
func DivisionFor(lp float64) int {
	if !(lp > 0) {
		return domain.DivisionsPerTier
	}
	d := domain.DivisionsPerTier - int(lp/(100.0/domain.DivisionsPerTier))
	return max(1, min(domain.DivisionsPerTier, d))
}

type Mapper struct {
	table *Table
}

func NewMapper(table *Table) *Mapper {
	return &Mapper{table: table}
}

func (m *Mapper) Table() *Table { return m.table }

// Map places a conservative rating and sigma on the ladder. It has no side effects.
func (m *Mapper) Map(conservative, sigma float64) (Placement, error) {
	if math.IsNaN(conservative) || math.IsInf(conservative, 0) {
		return Placement{}, domain.NewValidationError("conservativeRating", "must be a finite number")
	}
	if math.IsNaN(sigma) || math.IsInf(sigma, 0) || sigma <= 0 {
		return Placement{}, domain.NewValidationError("sigma", "must be a positive finite number")
	}

	idx := m.IndexFor(conservative)
	lp := m.LPIn(idx, conservative)
	return Placement{
		Tier:     m.table.At(idx),
		Index:    idx,
		Division: DivisionFor(lp),
		Band:     BandFor(sigma),
		LP:       lp,
	}, nil
}

// IndexFor returns the ladder position containing rating. Ratings under the
// bottom bound land in the bottom tier and ratings past the top tier's nominal
// upper bound stay in the top tier.
func (m *Mapper) IndexFor(rating float64) int {
	last := m.table.Len() - 1
	for i := last; i > 0; i-- {
		if rating >= m.table.At(i).LowerBound {
			return i
		}
	}
	return 0
}

// LPIn returns the league points rating would have inside tier idx.
func (m *Mapper) LPIn(idx int, rating float64) float64 {
	def := m.table.At(idx)
	lp := 100 * (rating - def.LowerBound) / def.Width()
	if lp < 0 {
		return 0
	}
	if idx == m.table.Len()-1 {
		return lp
	}
	if lp >= 100 {
		return math.Nextafter(100, 0)
	}
	return lp
}
