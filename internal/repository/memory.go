package repository

import (
	"context"
	"sort"
	"sync"

	"ranked-ladder/internal/domain"
)

type receiptKey struct {
	outcomeID string
	playerID  string
}

// MemoryStore keeps every table in maps behind one lock. It backs tests and
// STORE_BACKEND=memory.
type MemoryStore struct {
	mu sync.RWMutex

	ratings     map[string]domain.PlayerRating
	receipts    map[receiptKey]domain.ProgressionResult
	events      map[string][]domain.ProgressionEvent
	preferences map[string]domain.Preferences
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ratings:     make(map[string]domain.PlayerRating),
		receipts:    make(map[receiptKey]domain.ProgressionResult),
		events:      make(map[string][]domain.ProgressionEvent),
		preferences: make(map[string]domain.Preferences),
	}
}

func (s *MemoryStore) Get(_ context.Context, playerID string) (domain.PlayerRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.ratings[playerID]
	if !ok {
		return domain.NewPlayerRating(playerID, ""), nil
	}
	return r.Clone(), nil
}

func (s *MemoryStore) CompareAndSet(_ context.Context, expectedVersion int64, rating domain.PlayerRating, result domain.ProgressionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.ratings[rating.PlayerID]
	if current.Version != expectedVersion {
		return &domain.ConcurrencyError{PlayerID: rating.PlayerID, Expected: expectedVersion, Actual: current.Version}
	}
	key := receiptKey{outcomeID: result.OutcomeID, playerID: rating.PlayerID}
	if _, dup := s.receipts[key]; dup {
		return &domain.ConcurrencyError{PlayerID: rating.PlayerID, Expected: expectedVersion, Actual: current.Version}
	}

	rating.Version = expectedVersion + 1
	s.ratings[rating.PlayerID] = rating.Clone()
	s.receipts[key] = result
	s.events[rating.PlayerID] = append(s.events[rating.PlayerID], result.Events...)
	return nil
}

func (s *MemoryStore) GetReceipt(_ context.Context, outcomeID, playerID string) (domain.ProgressionResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.receipts[receiptKey{outcomeID: outcomeID, playerID: playerID}]
	return res, ok, nil
}

func (s *MemoryStore) ListLeaderboard(_ context.Context, q LeaderboardQuery) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.LeaderboardEntry, 0, len(s.ratings))
	for _, r := range s.ratings {
		if q.Tier != "" && r.Tier != q.Tier {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:           r.PlayerID,
			ConservativeRating: r.Mu - q.Z*r.Sigma,
			Mu:                 r.Mu,
			Sigma:              r.Sigma,
			Tier:               r.Tier,
			Division:           r.Division,
			Band:               r.Band,
			LP:                 r.LP,
			MatchesPlayed:      r.MatchesPlayed,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ConservativeRating != entries[j].ConservativeRating {
			return entries[i].ConservativeRating > entries[j].ConservativeRating
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})

	if q.Offset >= len(entries) {
		return []domain.LeaderboardEntry{}, nil
	}
	end := len(entries)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	page := entries[q.Offset:end]
	for i := range page {
		page[i].Rank = q.Offset + i + 1
	}
	return page, nil
}

func (s *MemoryStore) TierCounts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, r := range s.ratings {
		counts[r.Tier]++
	}
	return counts, nil
}

func (s *MemoryStore) ListEvents(_ context.Context, playerID string, limit int) ([]domain.ProgressionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.events[playerID]
	out := make([]domain.ProgressionEvent, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, all[i])
	}
	return out, nil
}

func (s *MemoryStore) GetPreferences(_ context.Context, playerID string) (domain.Preferences, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.preferences[playerID]
	if !ok {
		return domain.Preferences{}, false, nil
	}
	p.PreferredFormats = append([]string{}, p.PreferredFormats...)
	return p, true, nil
}

func (s *MemoryStore) SavePreferences(_ context.Context, playerID string, prefs domain.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs.PreferredFormats = append([]string{}, prefs.PreferredFormats...)
	s.preferences[playerID] = prefs
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
