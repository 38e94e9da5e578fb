package services

import (
	"context"
	"sort"

	"kabbalah-code-system/store"
)

type LeaderboardService struct {
	Ledger store.Ledger
}

func NewLeaderboardService(ledger store.Ledger) *LeaderboardService {
	return &LeaderboardService{Ledger: ledger}
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Handle   string `json:"handle,omitempty"`
	Level    int    `json:"level"`
	Points   int64  `json:"points"`
}

// TopUsers ranks a snapshot of all accounts by points, descending. The sort
// is stable, so tied users keep their snapshot order; ranks are dense and
// 1-based. limit <= 0 yields an empty list.
func (s *LeaderboardService) TopUsers(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		return []LeaderboardEntry{}, nil
	}
	accs, err := s.Ledger.AllAccounts(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(accs, func(i, j int) bool {
		return accs[i].Points > accs[j].Points
	})
	if len(accs) > limit {
		accs = accs[:limit]
	}
	entries := make([]LeaderboardEntry, len(accs))
	for i, acc := range accs {
		entries[i] = LeaderboardEntry{
			Rank:     i + 1,
			Username: acc.Username,
			Handle:   acc.Handle,
			Level:    acc.Level,
			Points:   acc.Points,
		}
	}
	return entries, nil
}

type ReferralStats struct {
	Tier1Count  int   `json:"level1_count"`
	Tier2Count  int   `json:"level2_count"`
	Tier3Count  int   `json:"level3_count"`
	TotalEarned int64 `json:"total_earned"`
}

// Stats aggregates the user's referral tree, bounded at three tiers. The
// snapshot is indexed by referrer once, then walked breadth-first — no
// per-tier rescan of the full user set. TotalEarned reports the tier-1 share
// (10%) of what direct referrals have accumulated.
func (s *LeaderboardService) Stats(ctx context.Context, userID string) (*ReferralStats, error) {
	if _, err := s.Ledger.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	accs, err := s.Ledger.AllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	children := make(map[string][]int, len(accs))
	for i, acc := range accs {
		if acc.ReferrerID != nil {
			children[*acc.ReferrerID] = append(children[*acc.ReferrerID], i)
		}
	}

	stats := &ReferralStats{}
	frontier := []string{userID}
	for tier := 1; tier <= 3; tier++ {
		var next []string
		for _, id := range frontier {
			for _, idx := range children[id] {
				switch tier {
				case 1:
					stats.Tier1Count++
					stats.TotalEarned += accs[idx].Points * referralTiers[0] / 100
				case 2:
					stats.Tier2Count++
				case 3:
					stats.Tier3Count++
				}
				next = append(next, accs[idx].TelegramID)
			}
		}
		frontier = next
	}
	return stats, nil
}

// DirectReferralCount reports how many accounts name the user as referrer.
func (s *LeaderboardService) DirectReferralCount(ctx context.Context, userID string) (int, error) {
	accs, err := s.Ledger.AllAccounts(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, acc := range accs {
		if acc.ReferrerID != nil && *acc.ReferrerID == userID {
			count++
		}
	}
	return count, nil
}
