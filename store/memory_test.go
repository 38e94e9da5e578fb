package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"kabbalah-code-system/models"
	"kabbalah-code-system/store"
)

func put(t *testing.T, mem *store.Memory, id string, points int64) {
	t.Helper()
	err := mem.PutAccount(context.Background(), &models.Account{
		TelegramID: id,
		Username:   "user-" + id,
		Level:      1,
		Points:     points,
	})
	if err != nil {
		t.Fatalf("put %s: %v", id, err)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	mem := store.NewMemory()
	if _, err := mem.GetAccount(context.Background(), "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAllAccountsKeepsInsertionOrder(t *testing.T) {
	mem := store.NewMemory()
	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		put(t, mem, id, 0)
	}
	accs, err := mem.AllAccounts(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	for i, id := range ids {
		if accs[i].TelegramID != id {
			t.Errorf("snapshot[%d] = %s, want %s", i, accs[i].TelegramID, id)
		}
	}
}

func TestUpdateAccountsCommitsAllOrNothing(t *testing.T) {
	mem := store.NewMemory()
	put(t, mem, "a", 10)
	put(t, mem, "b", 20)

	boom := errors.New("boom")
	err := mem.UpdateAccounts(context.Background(), []string{"a", "b"}, func(accs map[string]*models.Account) error {
		accs["a"].Points = 999
		accs["b"].Points = 999
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	// Nothing written on failure.
	a, _ := mem.GetAccount(context.Background(), "a")
	b, _ := mem.GetAccount(context.Background(), "b")
	if a.Points != 10 || b.Points != 20 {
		t.Fatalf("points = %d/%d, want 10/20 after rollback", a.Points, b.Points)
	}
}

func TestUpdateAccountsSkipsMissingIDs(t *testing.T) {
	mem := store.NewMemory()
	put(t, mem, "a", 0)

	var sawGhost bool
	err := mem.UpdateAccounts(context.Background(), []string{"a", "ghost"}, func(accs map[string]*models.Account) error {
		_, sawGhost = accs["ghost"]
		accs["a"].Points = 7
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if sawGhost {
		t.Error("missing id handed to fn")
	}
	a, _ := mem.GetAccount(context.Background(), "a")
	if a.Points != 7 {
		t.Fatalf("points = %d, want 7", a.Points)
	}
}

func TestUpdateAccountsConcurrentOverlappingSets(t *testing.T) {
	mem := store.NewMemory()
	put(t, mem, "a", 0)
	put(t, mem, "b", 0)

	// Opposite declaration orders exercise the ascending lock ordering.
	const rounds = 200
	var wg sync.WaitGroup
	wg.Add(2)
	inc := func(ids []string) {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_ = mem.UpdateAccounts(context.Background(), ids, func(accs map[string]*models.Account) error {
				for _, acc := range accs {
					acc.Points++
				}
				return nil
			})
		}
	}
	go inc([]string{"a", "b"})
	go inc([]string{"b", "a"})
	wg.Wait()

	a, _ := mem.GetAccount(context.Background(), "a")
	b, _ := mem.GetAccount(context.Background(), "b")
	if a.Points != 2*rounds || b.Points != 2*rounds {
		t.Fatalf("points = %d/%d, want %d/%d", a.Points, b.Points, 2*rounds, 2*rounds)
	}
}

func TestSpinGate(t *testing.T) {
	mem := store.NewMemory()

	spun, err := mem.HasSpun(context.Background(), "u", "2025-09-01")
	if err != nil || spun {
		t.Fatalf("HasSpun = %v, %v; want false, nil", spun, err)
	}

	if err := mem.RecordSpin(context.Background(), "u", "2025-09-01", 50); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := mem.RecordSpin(context.Background(), "u", "2025-09-01", 50); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second record err = %v, want ErrConflict", err)
	}

	spun, _ = mem.HasSpun(context.Background(), "u", "2025-09-01")
	if !spun {
		t.Error("HasSpun = false after record")
	}

	// Different day, different gate.
	if err := mem.RecordSpin(context.Background(), "u", "2025-09-02", 100); err != nil {
		t.Fatalf("next-day record: %v", err)
	}
}

func TestPredictionLifecycle(t *testing.T) {
	mem := store.NewMemory()

	if err := mem.MarkPredictionVerified(context.Background(), "u", "2025-09-01"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("verify without record err = %v, want ErrNotFound", err)
	}

	p := &models.DailyPrediction{ID: "p1", UserID: "u", Day: "2025-09-01", Text: "t", Code: "KCAAAAAA"}
	if err := mem.CreateDailyPrediction(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mem.CreateDailyPrediction(context.Background(), p); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate create err = %v, want ErrConflict", err)
	}

	if err := mem.MarkPredictionVerified(context.Background(), "u", "2025-09-01"); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if err := mem.MarkPredictionVerified(context.Background(), "u", "2025-09-01"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second verify err = %v, want ErrConflict", err)
	}

	got, err := mem.GetDailyPrediction(context.Background(), "u", "2025-09-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Verified {
		t.Error("record not marked verified")
	}
}
