package services_test

import (
	"context"
	"errors"
	"testing"

	"kabbalah-code-system/models"
	"kabbalah-code-system/services"
	"kabbalah-code-system/store"
)

func seedWithPoints(t *testing.T, mem *store.Memory, id string, points int64, referrerID *string) {
	t.Helper()
	acc := &models.Account{
		TelegramID: id,
		Username:   "user-" + id,
		Level:      1,
		Points:     points,
		ReferrerID: referrerID,
	}
	if err := mem.PutAccount(context.Background(), acc); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestTopUsersRankingAndTieOrder(t *testing.T) {
	mem := store.NewMemory()
	svc := services.NewLeaderboardService(mem)

	seedWithPoints(t, mem, "a", 300, nil)
	seedWithPoints(t, mem, "b", 300, nil)
	seedWithPoints(t, mem, "c", 500, nil)

	entries, err := svc.TopUsers(context.Background(), 10)
	if err != nil {
		t.Fatalf("top users: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	wantOrder := []string{"user-c", "user-a", "user-b"} // stable: a before b
	for i, want := range wantOrder {
		if entries[i].Username != want {
			t.Errorf("entry %d = %s, want %s", i, entries[i].Username, want)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("entry %d rank = %d, want %d", i, entries[i].Rank, i+1)
		}
	}
}

func TestTopUsersLimit(t *testing.T) {
	mem := store.NewMemory()
	svc := services.NewLeaderboardService(mem)

	seedWithPoints(t, mem, "a", 1, nil)
	seedWithPoints(t, mem, "b", 2, nil)

	entries, err := svc.TopUsers(context.Background(), 1)
	if err != nil {
		t.Fatalf("top users: %v", err)
	}
	if len(entries) != 1 || entries[0].Username != "user-b" {
		t.Fatalf("limit 1 = %+v, want single user-b entry", entries)
	}

	for _, limit := range []int{0, -3} {
		entries, err := svc.TopUsers(context.Background(), limit)
		if err != nil {
			t.Fatalf("top users limit %d: %v", limit, err)
		}
		if len(entries) != 0 {
			t.Errorf("limit %d yielded %d entries, want 0", limit, len(entries))
		}
	}
}

func TestReferralStats(t *testing.T) {
	mem := store.NewMemory()
	svc := services.NewLeaderboardService(mem)

	// root ← {c1, c2}; c1 ← g1; g1 ← gg1; gg1 ← deep (tier 4, not counted)
	seedWithPoints(t, mem, "root", 0, nil)
	seedWithPoints(t, mem, "c1", 100, ref("root"))
	seedWithPoints(t, mem, "c2", 200, ref("root"))
	seedWithPoints(t, mem, "g1", 50, ref("c1"))
	seedWithPoints(t, mem, "gg1", 25, ref("g1"))
	seedWithPoints(t, mem, "deep", 10, ref("gg1"))

	stats, err := svc.Stats(context.Background(), "root")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Tier1Count != 2 || stats.Tier2Count != 1 || stats.Tier3Count != 1 {
		t.Errorf("tier counts = %d/%d/%d, want 2/1/1",
			stats.Tier1Count, stats.Tier2Count, stats.Tier3Count)
	}
	// 10% of the direct referrals' accumulated points: (100+200)/10.
	if stats.TotalEarned != 30 {
		t.Errorf("total earned = %d, want 30", stats.TotalEarned)
	}

	if _, err := svc.Stats(context.Background(), "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("stats for unknown user err = %v, want ErrNotFound", err)
	}
}

func TestDirectReferralCount(t *testing.T) {
	mem := store.NewMemory()
	svc := services.NewLeaderboardService(mem)

	seedWithPoints(t, mem, "root", 0, nil)
	seedWithPoints(t, mem, "c1", 0, ref("root"))
	seedWithPoints(t, mem, "c2", 0, ref("root"))
	seedWithPoints(t, mem, "g1", 0, ref("c1"))

	count, err := svc.DirectReferralCount(context.Background(), "root")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
