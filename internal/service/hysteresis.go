package service

import (
	"math"

	"ranked-ladder/internal/domain"
	"ranked-ladder/internal/tier"
)

// ladder is an ascending list of lower bounds on some value. Position i is held
// while value >= lowers[i].
type ladder []float64

func tierLadder(table *tier.Table) ladder {
	l := make(ladder, table.Len())
	for i := range l {
		l[i] = table.At(i).LowerBound
	}
	return l
}

// bandLadder ranks bands on -sigma so that more certainty sorts higher.
func bandLadder() ladder {
	l := make(ladder, len(domain.Bands))
	for i, b := range domain.Bands {
		l[i] = -tier.BandCeiling(b)
	}
	l[0] = math.Inf(-1)
	return l
}

// settle decides which position to display. Promotions take the candidate
// straight away. Demotions walk down from displayed; every boundary except the
// last is crossed freely, the last only when value sits more than margin below it.
func (l ladder) settle(displayed, candidate int, value, margin float64) int {
	if displayed < 0 || displayed >= len(l) || candidate >= displayed {
		return candidate
	}
	if value < l[candidate+1]-margin {
		return candidate
	}
	return candidate + 1
}

func tierEvents(table *tier.Table, from, to int, fromBand, toBand domain.ConfidenceBand) []domain.ProgressionEvent {
	var events []domain.ProgressionEvent
	for i := from; i < to; i++ {
		events = append(events, domain.ProgressionEvent{
			Type:     domain.EventPromotion,
			FromTier: table.At(i).Name,
			ToTier:   table.At(i + 1).Name,
			FromBand: fromBand,
			ToBand:   toBand,
		})
	}
	for i := from; i > to; i-- {
		events = append(events, domain.ProgressionEvent{
			Type:     domain.EventDemotion,
			FromTier: table.At(i).Name,
			ToTier:   table.At(i - 1).Name,
			FromBand: fromBand,
			ToBand:   toBand,
		})
	}
	return events
}

func bandEvents(tierName string, from, to int) []domain.ProgressionEvent {
	var events []domain.ProgressionEvent
	for i := from; i < to; i++ {
		events = append(events, domain.ProgressionEvent{
			Type:     domain.EventBandPromotion,
			FromTier: tierName,
			ToTier:   tierName,
			FromBand: domain.Bands[i],
			ToBand:   domain.Bands[i+1],
		})
	}
	for i := from; i > to; i-- {
		events = append(events, domain.ProgressionEvent{
			Type:     domain.EventBandDemotion,
			FromTier: tierName,
			ToTier:   tierName,
			FromBand: domain.Bands[i],
			ToBand:   domain.Bands[i-1],
		})
	}
	return events
}
