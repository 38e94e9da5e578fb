package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"kabbalah-code-system/models"
	"kabbalah-code-system/store"

	"github.com/google/uuid"
)

// PredictionReward is the fixed amount granted for a verified daily prediction.
const PredictionReward = 100

var predictionPool = []string{
	"Today the gates of ancient wisdom open. Sephira Chokmah illuminates your path through digital realms.",
	"Energies of Binah protect your journey. Time for deep meditation on blockchain mysteries.",
	"Malkuth grants material abundance in the metaverse. Act boldly with your transactions!",
	"Tiferet harmonizes your endeavors. A day for important decisions in the Web3 space.",
	"Netzach empowers your creative vision. Share your wisdom with the community.",
	"Hod brings clarity to complex protocols. Study the ancient codes carefully today.",
	"Yesod connects you to the foundation. Your network grows stronger.",
	"Gevurah demands discipline. Review your security and strengthen your defenses.",
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type PredictionService struct {
	Ledger  store.Ledger
	Rewards *RewardService
}

func NewPredictionService(ledger store.Ledger, rewards *RewardService) *PredictionService {
	return &PredictionService{Ledger: ledger, Rewards: rewards}
}

// GetOrCreateDaily returns the user's prediction for the given day, issuing a
// new one on the first request. Re-fetches within the same day (app reloads)
// return the stored record unchanged — the code never regenerates.
func (s *PredictionService) GetOrCreateDaily(ctx context.Context, userID, day string) (*models.DailyPrediction, error) {
	if _, err := s.Ledger.GetAccount(ctx, userID); err != nil {
		return nil, err
	}

	p, err := s.Ledger.GetDailyPrediction(ctx, userID, day)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	p = &models.DailyPrediction{
		ID:           uuid.NewString(),
		UserID:       userID,
		Day:          day,
		Text:         predictionPool[rand.Intn(len(predictionPool))],
		ImageURL:     fmt.Sprintf("https://api.dicebear.com/7.x/shapes/svg?seed=%d", 1000+rand.Intn(9000)),
		Code:         generateMysticalCode(),
		MysticalHash: mysticalHash(now),
	}
	if err := s.Ledger.CreateDailyPrediction(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// A concurrent first fetch won the race; its record is the one.
			return s.Ledger.GetDailyPrediction(ctx, userID, day)
		}
		return nil, err
	}

	// Stamp the account; the prediction record, not this timestamp, is the gate.
	_ = s.Ledger.UpdateAccounts(ctx, []string{userID}, func(accs map[string]*models.Account) error {
		if acc, ok := accs[userID]; ok {
			acc.LastPrediction = &now
		}
		return nil
	})

	log.Printf("🔮 Prediction issued: %s (%s)", userID, day)
	return p, nil
}

// Verify checks the submitted code against today's prediction and releases
// the reward. Verified is terminal: a second verify always fails and the
// points are granted exactly once.
func (s *PredictionService) Verify(ctx context.Context, userID, day, submittedCode string) (*models.Account, error) {
	p, err := s.Ledger.GetDailyPrediction(ctx, userID, day)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("no prediction for today: %w", store.ErrNotFound)
		}
		return nil, err
	}
	if p.Verified {
		return nil, ErrAlreadyVerified
	}
	if submittedCode != p.Code {
		return nil, ErrInvalidCode
	}

	if err := s.Ledger.MarkPredictionVerified(ctx, userID, day); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrAlreadyVerified
		}
		return nil, err
	}

	return s.Rewards.AwardPoints(ctx, userID, PredictionReward)
}

// generateMysticalCode returns a "KC" prefix plus six random uppercase
// alphanumerics. Not globally unique — collision-safe within a day for
// practical user counts.
func generateMysticalCode() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return "KC" + string(b)
}

func mysticalHash(t time.Time) string {
	sum := sha256.Sum256([]byte(t.String()))
	return hex.EncodeToString(sum[:])[:16]
}
