package services_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"kabbalah-code-system/services"
	"kabbalah-code-system/store"
)

const testDay = "2025-09-01"

func newPredictionService(t *testing.T) (*services.PredictionService, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	rewards := services.NewRewardService(mem)
	return services.NewPredictionService(mem, rewards), mem
}

func TestGetOrCreateDailyIssuesOnce(t *testing.T) {
	svc, mem := newPredictionService(t)
	seedAccount(t, mem, "u", nil)

	first, err := svc.GetOrCreateDaily(context.Background(), "u", testDay)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if matched := regexp.MustCompile(`^KC[A-Z0-9]{6}$`).MatchString(first.Code); !matched {
		t.Errorf("code %q does not match KC + 6 uppercase alphanumerics", first.Code)
	}
	if len(first.MysticalHash) != 16 {
		t.Errorf("hash %q length = %d, want 16", first.MysticalHash, len(first.MysticalHash))
	}
	if first.Text == "" || first.ImageURL == "" {
		t.Errorf("prediction missing text or image: %+v", first)
	}
	if first.Verified {
		t.Error("fresh prediction already verified")
	}

	// Re-fetch the same day returns the stored record unchanged.
	second, err := svc.GetOrCreateDaily(context.Background(), "u", testDay)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if second.ID != first.ID || second.Code != first.Code || second.Text != first.Text {
		t.Errorf("second fetch differs: %+v vs %+v", second, first)
	}
}

func TestGetOrCreateDailyUnknownUser(t *testing.T) {
	svc, _ := newPredictionService(t)
	if _, err := svc.GetOrCreateDaily(context.Background(), "nobody", testDay); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestVerifyGrantsPointsExactlyOnce(t *testing.T) {
	svc, mem := newPredictionService(t)
	seedAccount(t, mem, "u", nil)

	p, err := svc.GetOrCreateDaily(context.Background(), "u", testDay)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	acc, err := svc.Verify(context.Background(), "u", testDay, p.Code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if acc.Points != 100 || acc.XP != 100 {
		t.Fatalf("points/xp = %d/%d, want 100/100", acc.Points, acc.XP)
	}

	// Second verify with the correct code is terminal.
	if _, err := svc.Verify(context.Background(), "u", testDay, p.Code); !errors.Is(err, services.ErrAlreadyVerified) {
		t.Fatalf("second verify err = %v, want ErrAlreadyVerified", err)
	}
	if got := mustGet(t, mem, "u").Points; got != 100 {
		t.Errorf("points = %d after double verify, want 100", got)
	}
}

func TestVerifyWrongCode(t *testing.T) {
	svc, mem := newPredictionService(t)
	seedAccount(t, mem, "u", nil)

	if _, err := svc.GetOrCreateDaily(context.Background(), "u", testDay); err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Issued codes always start with "KC", so this can never collide.
	if _, err := svc.Verify(context.Background(), "u", testDay, "XX000000"); !errors.Is(err, services.ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode", err)
	}
	if got := mustGet(t, mem, "u").Points; got != 0 {
		t.Errorf("points = %d after failed verify, want 0", got)
	}
}

func TestVerifyWithoutPrediction(t *testing.T) {
	svc, mem := newPredictionService(t)
	seedAccount(t, mem, "u", nil)

	if _, err := svc.Verify(context.Background(), "u", testDay, "KCAAAAAA"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestVerifyCascadesReferralBonus(t *testing.T) {
	svc, mem := newPredictionService(t)
	seedAccount(t, mem, "r", nil)
	seedAccount(t, mem, "u", ref("r"))

	p, err := svc.GetOrCreateDaily(context.Background(), "u", testDay)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(context.Background(), "u", testDay, p.Code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got := mustGet(t, mem, "r").Points; got != 10 {
		t.Errorf("referrer points = %d, want 10", got)
	}
}
