package service

import (
	"math"
	"time"

	"ranked-ladder/internal/domain"
)

const (
	winPoints  = 100
	drawPoints = 50
	lossPoints = 25

	streakBonusStep = 10
	streakBonusCap  = 50
	streakBonusFrom = 3

	firstWinBonus = 150
)

// matchPoints is the reward-point credit for one match. streak is the player's
// streak after the match; wins on a streak of three or more earn a bonus, and
// so does the first win of a day.
func matchPoints(result domain.Result, multiplier float64, streak int, firstWinOfDay bool) int {
	base := lossPoints
	switch result {
	case domain.ResultWin:
		base = winPoints
	case domain.ResultDraw:
		base = drawPoints
	}
	bonus := 0
	if result == domain.ResultWin && streak >= streakBonusFrom {
		bonus = min(streakBonusCap, streak*streakBonusStep)
	}
	if result == domain.ResultWin && firstWinOfDay {
		bonus += firstWinBonus
	}
	return int(math.Round(float64(base)*multiplier)) + bonus
}

// isFirstWinOfDay reports whether a win at ts falls on a later UTC day than the
// last credited win. Backdated wins never earn the bonus twice.
func isFirstWinOfDay(lastWin, ts time.Time) bool {
	if lastWin.IsZero() {
		return true
	}
	return utcDay(ts).After(utcDay(lastWin))
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// recordResult updates win/loss/draw counts and streaks in place.
// Positive streaks count wins, negative streaks count losses, draws reset.
func recordResult(r *domain.PlayerRating, result domain.Result) {
	switch result {
	case domain.ResultWin:
		r.Wins++
		r.CurrentStreak = max(0, r.CurrentStreak) + 1
	case domain.ResultLoss:
		r.Losses++
		r.CurrentStreak = min(0, r.CurrentStreak) - 1
	case domain.ResultDraw:
		r.Draws++
		r.CurrentStreak = 0
	}
	r.BestStreak = max(r.BestStreak, r.CurrentStreak)
}

func creditPoints(p *domain.PointTotals, points int, region, format string) {
	p.Global += points
	if region != "" {
		if p.ByRegion == nil {
			p.ByRegion = make(map[string]int)
		}
		p.ByRegion[region] += points
	}
	if format != "" {
		if p.ByFormat == nil {
			p.ByFormat = make(map[string]int)
		}
		p.ByFormat[format] += points
	}
}
