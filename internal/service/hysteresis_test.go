package service

import (
	"testing"
	"time"

	"ranked-ladder/internal/domain"
	"ranked-ladder/internal/tier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLadderSettle(t *testing.T) {
	l := tierLadder(tier.Default())

	tests := []struct {
		name      string
		displayed int
		candidate int
		value     float64
		want      int
	}{
		{"promotion is immediate", 1, 3, 1850, 3},
		{"unchanged", 2, 2, 1600, 2},
		{"one point below boundary holds", 2, 1, 1499, 2},
		{"exactly at margin holds", 2, 1, 1490, 2},
		{"beyond margin demotes", 2, 1, 1489.99, 1},
		{"multi-tier drop crosses intermediate boundaries", 3, 0, 1100, 0},
		{"multi-tier drop protected at final boundary", 3, 0, 1195, 1},
		{"unknown displayed takes candidate", -1, 1, 1300, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.settle(tt.displayed, tt.candidate, tt.value, 10))
		})
	}
}

func TestBandLadderSettle(t *testing.T) {
	l := bandLadder()
	proven := domain.BandProven.Rank()
	established := domain.BandEstablished.Rank()

	assert.Equal(t, proven, l.settle(established, proven, -45, 10), "band promotion is immediate")
	assert.Equal(t, proven, l.settle(proven, established, -55, 10), "sigma just over the proven ceiling keeps the band")
	assert.Equal(t, established, l.settle(proven, established, -61, 10))
	assert.Equal(t, 0, l.settle(1, 0, -400, 10), "bottom band has no floor")
}

func TestTierEvents(t *testing.T) {
	table := tier.Default()

	up := tierEvents(table, 0, 2, domain.BandProven, domain.BandProven)
	require.Len(t, up, 2)
	assert.Equal(t, domain.EventPromotion, up[0].Type)
	assert.Equal(t, "bronze", up[0].FromTier)
	assert.Equal(t, "silver", up[0].ToTier)
	assert.Equal(t, "silver", up[1].FromTier)
	assert.Equal(t, "gold", up[1].ToTier)

	down := tierEvents(table, 3, 1, domain.BandProven, domain.BandProven)
	require.Len(t, down, 2)
	assert.Equal(t, domain.EventDemotion, down[0].Type)
	assert.Equal(t, "platinum", down[0].FromTier)
	assert.Equal(t, "silver", down[1].ToTier)

	assert.Empty(t, tierEvents(table, 2, 2, domain.BandProven, domain.BandProven))
}

func TestBandEvents(t *testing.T) {
	evs := bandEvents("gold", 0, 2)
	require.Len(t, evs, 2)
	assert.Equal(t, domain.EventBandPromotion, evs[0].Type)
	assert.Equal(t, domain.BandUncertain, evs[0].FromBand)
	assert.Equal(t, domain.BandEstablished, evs[1].ToBand)
	assert.Equal(t, "gold", evs[1].ToTier)

	evs = bandEvents("gold", 3, 2)
	require.Len(t, evs, 1)
	assert.Equal(t, domain.EventBandDemotion, evs[0].Type)
}

func TestMatchPoints(t *testing.T) {
	tests := []struct {
		name       string
		result     domain.Result
		multiplier float64
		streak     int
		firstWin   bool
		want       int
	}{
		{"plain win", domain.ResultWin, 1, 1, false, 100},
		{"win on a streak of two has no bonus", domain.ResultWin, 1, 2, false, 100},
		{"win on a streak of three", domain.ResultWin, 1.5, 3, false, 180},
		{"streak bonus caps at fifty", domain.ResultWin, 3, 10, false, 350},
		{"first win of the day", domain.ResultWin, 1.2, 1, true, 270},
		{"first win of the day on a streak", domain.ResultWin, 1, 4, true, 290},
		{"draw", domain.ResultDraw, 1.2, 0, false, 60},
		{"draw never earns the daily bonus", domain.ResultDraw, 1, 0, true, 50},
		{"loss", domain.ResultLoss, 1.8, -4, false, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchPoints(tt.result, tt.multiplier, tt.streak, tt.firstWin))
		})
	}
}

func TestIsFirstWinOfDay(t *testing.T) {
	noon := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, isFirstWinOfDay(time.Time{}, noon))
	assert.False(t, isFirstWinOfDay(noon, noon.Add(11*time.Hour)))
	assert.True(t, isFirstWinOfDay(noon, noon.Add(12*time.Hour)))
	assert.False(t, isFirstWinOfDay(noon, noon.Add(-36*time.Hour)), "backdated win")
	// days are UTC days regardless of the timestamp's zone
	east := time.FixedZone("UTC+9", 9*3600)
	assert.False(t, isFirstWinOfDay(noon, time.Date(2026, 5, 2, 8, 0, 0, 0, east)))
}

func TestRecordResult(t *testing.T) {
	var r domain.PlayerRating
	var streaks []int
	for _, res := range []domain.Result{domain.ResultWin, domain.ResultWin, domain.ResultLoss, domain.ResultLoss, domain.ResultDraw, domain.ResultWin} {
		recordResult(&r, res)
		streaks = append(streaks, r.CurrentStreak)
	}
	assert.Equal(t, []int{1, 2, -1, -2, 0, 1}, streaks)
	assert.Equal(t, 3, r.Wins)
	assert.Equal(t, 2, r.Losses)
	assert.Equal(t, 1, r.Draws)
	assert.Equal(t, 2, r.BestStreak)
}

func TestCreditPoints(t *testing.T) {
	var p domain.PointTotals
	creditPoints(&p, 100, "eu", "1v1")
	creditPoints(&p, 50, "na", "")
	creditPoints(&p, 25, "", "1v1")

	assert.Equal(t, 175, p.Global)
	assert.Equal(t, map[string]int{"eu": 100, "na": 50}, p.ByRegion)
	assert.Equal(t, map[string]int{"1v1": 125}, p.ByFormat)
}
