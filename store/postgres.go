package store

import (
	"context"
	"errors"

	"kabbalah-code-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres is the durable Ledger backed by GORM. The DB must be opened with
// TranslateError so duplicate-key violations surface as gorm.ErrDuplicatedKey.
type Postgres struct {
	DB *gorm.DB
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{DB: db}
}

func (s *Postgres) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.Account{},
		&models.DailyPrediction{},
		&models.SpinRecord{},
	)
}

func (s *Postgres) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	var acc models.Account
	if err := s.DB.WithContext(ctx).Where("telegram_id = ?", userID).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (s *Postgres) PutAccount(ctx context.Context, acc *models.Account) error {
	return s.DB.WithContext(ctx).Save(acc).Error
}

func (s *Postgres) AllAccounts(ctx context.Context) ([]models.Account, error) {
	var accs []models.Account
	err := s.DB.WithContext(ctx).
		Order("created_at ASC, telegram_id ASC").
		Find(&accs).Error
	return accs, err
}

func (s *Postgres) UpdateAccounts(ctx context.Context, ids []string, fn func(accs map[string]*models.Account) error) error {
	sorted := uniqueSorted(ids)
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.Account
		// Row locks taken in ascending telegram_id order, same as the
		// in-memory store's mutex order.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("telegram_id IN ?", sorted).
			Order("telegram_id ASC").
			Find(&rows).Error; err != nil {
			return err
		}
		accs := make(map[string]*models.Account, len(rows))
		for i := range rows {
			accs[rows[i].TelegramID] = &rows[i]
		}
		if err := fn(accs); err != nil {
			return err // transaction rolls back
		}
		for _, acc := range accs {
			if err := tx.Save(acc).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Postgres) GetDailyPrediction(ctx context.Context, userID, day string) (*models.DailyPrediction, error) {
	var p models.DailyPrediction
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) CreateDailyPrediction(ctx context.Context, p *models.DailyPrediction) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *Postgres) MarkPredictionVerified(ctx context.Context, userID, day string) error {
	res := s.DB.WithContext(ctx).
		Model(&models.DailyPrediction{}).
		Where("user_id = ? AND day = ? AND verified = ?", userID, day, false).
		Update("verified", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish missing record from already-verified.
		var count int64
		if err := s.DB.WithContext(ctx).
			Model(&models.DailyPrediction{}).
			Where("user_id = ? AND day = ?", userID, day).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func (s *Postgres) HasSpun(ctx context.Context, userID, day string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&models.SpinRecord{}).
		Where("user_id = ? AND day = ?", userID, day).
		Count(&count).Error
	return count > 0, err
}

func (s *Postgres) RecordSpin(ctx context.Context, userID, day string, points int64) error {
	rec := models.SpinRecord{
		ID:     uuid.NewString(),
		UserID: userID,
		Day:    day,
		Points: points,
	}
	if err := s.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return err
	}
	return nil
}
