package services

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"kabbalah-code-system/models"
	"kabbalah-code-system/store"
)

// Fortune spin prize table with draw weights (out of the weight sum).
var (
	fortunePrizes  = []int64{50, 100, 150, 200, 500, 1000}
	fortuneWeights = []int{30, 25, 20, 15, 8, 2}
)

type FortuneService struct {
	Ledger  store.Ledger
	Rewards *RewardService
}

func NewFortuneService(ledger store.Ledger, rewards *RewardService) *FortuneService {
	return &FortuneService{Ledger: ledger, Rewards: rewards}
}

// Spin draws a weighted prize and awards it, at most once per calendar day.
// The spin record is written before the award so that of two concurrent spins
// exactly one passes the gate; the follow-up award cascades referral bonuses
// like any other reward.
func (s *FortuneService) Spin(ctx context.Context, userID, day string) (int64, *models.Account, error) {
	if _, err := s.Ledger.GetAccount(ctx, userID); err != nil {
		return 0, nil, err
	}

	points := drawFortunePrize()
	if err := s.Ledger.RecordSpin(ctx, userID, day, points); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return 0, nil, ErrAlreadySpun
		}
		return 0, nil, err
	}

	acc, err := s.Rewards.AwardPoints(ctx, userID, points)
	if err != nil {
		return 0, nil, err
	}

	now := time.Now()
	_ = s.Ledger.UpdateAccounts(ctx, []string{userID}, func(accs map[string]*models.Account) error {
		if a, ok := accs[userID]; ok {
			a.LastSpin = &now
		}
		return nil
	})

	log.Printf("🎡 Fortune spin: %s won %d (%s)", userID, points, day)
	return points, acc, nil
}

func drawFortunePrize() int64 {
	total := 0
	for _, w := range fortuneWeights {
		total += w
	}
	r := rand.Intn(total)
	for i, w := range fortuneWeights {
		if r < w {
			return fortunePrizes[i]
		}
		r -= w
	}
	return fortunePrizes[0]
}
