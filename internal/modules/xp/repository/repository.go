package repository

import (
	"context"
	"time"

	"devsocial.app/backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type XPRepository interface {
	// CreateWithPoints appends the ledger row and applies its amount to the
	// user's point total and derived level in one database transaction.
	// Returns the user as persisted after the award.
	CreateWithPoints(ctx context.Context, xp *entity.XPTransaction) (*entity.User, error)
	HasTransaction(ctx context.Context, userID uuid.UUID, txType string) (bool, error)
	HasTransactionSince(ctx context.Context, userID uuid.UUID, txType string, since time.Time) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.XPTransaction, error)
	SumByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type xpRepository struct {
	db *gorm.DB
}

func NewXPRepository(db *gorm.DB) XPRepository {
	return &xpRepository{db: db}
}

func (r *xpRepository) CreateWithPoints(ctx context.Context, xp *entity.XPTransaction) (*entity.User, error) {
	var user entity.User

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(xp).Error; err != nil {
			return err
		}

		if err := tx.Model(&entity.User{}).
			Where("id = ?", xp.UserID).
			Update("points", gorm.Expr("points + ?", xp.Amount)).Error; err != nil {
			return err
		}

		if err := tx.Where("id = ?", xp.UserID).First(&user).Error; err != nil {
			return err
		}

		level := entity.LevelForPoints(user.Points)
		if level != user.Level {
			if err := tx.Model(&entity.User{}).
				Where("id = ?", xp.UserID).
				Update("level", level).Error; err != nil {
				return err
			}
			user.Level = level
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *xpRepository) HasTransaction(ctx context.Context, userID uuid.UUID, txType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.XPTransaction{}).
		Where("user_id = ? AND type = ?", userID, txType).
		Count(&count).Error
	return count > 0, err
}

func (r *xpRepository) HasTransactionSince(ctx context.Context, userID uuid.UUID, txType string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.XPTransaction{}).
		Where("user_id = ? AND type = ? AND created_at >= ?", userID, txType, since).
		Count(&count).Error
	return count > 0, err
}

func (r *xpRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.XPTransaction, error) {
	var txs []entity.XPTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *xpRepository) SumByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&entity.XPTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}
