package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"kabbalah-code-system/models"

	"github.com/google/uuid"
)

// dailyKey is the composite key for per-day records. A struct key avoids the
// "userID_date" string concatenation and its parsing ambiguity.
type dailyKey struct {
	userID string
	day    string
}

type accountEntry struct {
	mu  sync.Mutex
	acc models.Account
}

// Memory is the in-process Ledger used when no DATABASE_URL is configured,
// and as the backend for service tests. Accounts are guarded by per-account
// mutexes behind an outer map lock; cross-account updates take the per-account
// locks in ascending userID order.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*accountEntry
	order    []string // insertion order, keeps AllAccounts snapshots stable

	predMu sync.Mutex
	preds  map[dailyKey]*models.DailyPrediction

	spinMu sync.Mutex
	spins  map[dailyKey]*models.SpinRecord
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]*accountEntry),
		preds:    make(map[dailyKey]*models.DailyPrediction),
		spins:    make(map[dailyKey]*models.SpinRecord),
	}
}

func (s *Memory) GetAccount(_ context.Context, userID string) (*models.Account, error) {
	s.mu.RLock()
	e, ok := s.accounts[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	cp := e.acc
	e.mu.Unlock()
	return &cp, nil
}

func (s *Memory) PutAccount(_ context.Context, acc *models.Account) error {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.accounts[acc.TelegramID]; ok {
		e.mu.Lock()
		cp := *acc
		cp.UpdatedAt = now
		e.acc = cp
		e.mu.Unlock()
		return nil
	}
	cp := *acc
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.accounts[acc.TelegramID] = &accountEntry{acc: cp}
	s.order = append(s.order, acc.TelegramID)
	return nil
}

func (s *Memory) AllAccounts(_ context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.order))
	for _, id := range s.order {
		e := s.accounts[id]
		e.mu.Lock()
		out = append(out, e.acc)
		e.mu.Unlock()
	}
	return out, nil
}

func (s *Memory) UpdateAccounts(_ context.Context, ids []string, fn func(accs map[string]*models.Account) error) error {
	sorted := uniqueSorted(ids)

	s.mu.RLock()
	present := make([]string, 0, len(sorted))
	entries := make([]*accountEntry, 0, len(sorted))
	for _, id := range sorted {
		if e, ok := s.accounts[id]; ok {
			present = append(present, id)
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	// Ascending-ID lock order: overlapping cascades always agree on it.
	for _, e := range entries {
		e.mu.Lock()
	}
	defer func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
	}()

	work := make(map[string]*models.Account, len(entries))
	for i, e := range entries {
		cp := e.acc
		work[present[i]] = &cp
	}

	if err := fn(work); err != nil {
		return err // nothing written
	}

	now := time.Now()
	for i, e := range entries {
		acc := work[present[i]]
		acc.UpdatedAt = now
		e.acc = *acc
	}
	return nil
}

func (s *Memory) GetDailyPrediction(_ context.Context, userID, day string) (*models.DailyPrediction, error) {
	s.predMu.Lock()
	defer s.predMu.Unlock()
	p, ok := s.preds[dailyKey{userID, day}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Memory) CreateDailyPrediction(_ context.Context, p *models.DailyPrediction) error {
	s.predMu.Lock()
	defer s.predMu.Unlock()
	key := dailyKey{p.UserID, p.Day}
	if _, ok := s.preds[key]; ok {
		return ErrConflict
	}
	cp := *p
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.preds[key] = &cp
	return nil
}

func (s *Memory) MarkPredictionVerified(_ context.Context, userID, day string) error {
	s.predMu.Lock()
	defer s.predMu.Unlock()
	p, ok := s.preds[dailyKey{userID, day}]
	if !ok {
		return ErrNotFound
	}
	if p.Verified {
		return ErrConflict
	}
	p.Verified = true
	p.UpdatedAt = time.Now()
	return nil
}

func (s *Memory) HasSpun(_ context.Context, userID, day string) (bool, error) {
	s.spinMu.Lock()
	defer s.spinMu.Unlock()
	_, ok := s.spins[dailyKey{userID, day}]
	return ok, nil
}

func (s *Memory) RecordSpin(_ context.Context, userID, day string, points int64) error {
	s.spinMu.Lock()
	defer s.spinMu.Unlock()
	key := dailyKey{userID, day}
	if _, ok := s.spins[key]; ok {
		return ErrConflict
	}
	now := time.Now()
	s.spins[key] = &models.SpinRecord{
		ID:     uuid.NewString(),
		UserID: userID,
		Day:    day,
		Points: points,
		Timestamps: models.Timestamps{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	return nil
}

func uniqueSorted(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
