package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"kabbalah-code-system/models"
	"kabbalah-code-system/store"
)

// referralTiers are the cascade percentages per referrer hop. Each tier's
// bonus is floor(amount * pct / 100) of the *original* award — never
// compounded from the upstream recipient's own bonus, and cascade bonuses do
// not themselves re-cascade.
var referralTiers = [3]int64{10, 5, 2}

type RewardService struct {
	Ledger store.Ledger
}

func NewRewardService(ledger store.Ledger) *RewardService {
	return &RewardService{Ledger: ledger}
}

// AwardPoints credits amount to the user's points and XP (same rate, leveling
// applied eagerly), then cascades the referral bonuses up to three hops. All
// touched accounts (recipient + up to three ancestors) commit together or not
// at all. Returns the updated recipient.
func (s *RewardService) AwardPoints(ctx context.Context, userID string, amount int64) (*models.Account, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("award amount must be positive, got %d", amount)
	}

	chain, err := s.referralChain(ctx, userID)
	if err != nil {
		return nil, err
	}

	var updated *models.Account
	err = s.Ledger.UpdateAccounts(ctx, append([]string{userID}, chain...), func(accs map[string]*models.Account) error {
		acc, ok := accs[userID]
		if !ok {
			return store.ErrNotFound
		}
		acc.Points += amount
		ApplyXP(acc, amount)

		for i, ancestorID := range chain {
			up, ok := accs[ancestorID]
			if !ok {
				break // dangling link truncates the cascade, not an error
			}
			up.Points += amount * referralTiers[i] / 100
		}

		cp := *acc
		updated = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🎮 Points awarded: %s +%d → points=%d, lvl=%d, xp=%d (%d referral tier(s))",
		userID, amount, updated.Points, updated.Level, updated.XP, len(chain))
	return updated, nil
}

// AdminAdjustPoints applies a direct balance correction. Delta may be
// negative; points never drop below zero. No XP, no leveling, no referral
// cascade.
func (s *RewardService) AdminAdjustPoints(ctx context.Context, userID string, delta int64) (*models.Account, error) {
	var updated *models.Account
	err := s.Ledger.UpdateAccounts(ctx, []string{userID}, func(accs map[string]*models.Account) error {
		acc, ok := accs[userID]
		if !ok {
			return store.ErrNotFound
		}
		acc.Points += delta
		if acc.Points < 0 {
			acc.Points = 0
		}
		cp := *acc
		updated = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🛠️ Admin adjustment: %s %+d → points=%d", userID, delta, updated.Points)
	return updated, nil
}

// referralChain walks ReferrerID links upward, at most three hops, and
// returns the ancestor IDs in hop order. A missing referrer account truncates
// the walk; a repeated ID (cycle) stops it. Links never change after
// onboarding, so reading them outside the account locks is safe.
func (s *RewardService) referralChain(ctx context.Context, userID string) ([]string, error) {
	acc, err := s.Ledger.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{userID: {}}
	chain := make([]string, 0, len(referralTiers))
	ref := acc.ReferrerID
	for hop := 0; hop < len(referralTiers) && ref != nil; hop++ {
		if _, ok := seen[*ref]; ok {
			break
		}
		up, err := s.Ledger.GetAccount(ctx, *ref)
		if errors.Is(err, store.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		seen[up.TelegramID] = struct{}{}
		chain = append(chain, up.TelegramID)
		ref = up.ReferrerID
	}
	return chain, nil
}
