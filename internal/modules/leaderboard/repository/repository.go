package repository

import (
	"context"

	"devsocial.app/backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatsRepository interface {
	// Increment* upsert the per-user counter row, creating it when absent.
	IncrementReferrals(ctx context.Context, userID uuid.UUID) error
	IncrementPosts(ctx context.Context, userID uuid.UUID) error
	IncrementComments(ctx context.Context, userID uuid.UUID) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserStats, error)
	TopUsersByPoints(ctx context.Context, limit int) ([]entity.User, error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) increment(ctx context.Context, userID uuid.UUID, column string, seed entity.UserStats) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:            gorm.Expr("user_stats."+column+" + 1"),
			"last_updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&seed).Error
}

func (r *statsRepository) IncrementReferrals(ctx context.Context, userID uuid.UUID) error {
	return r.increment(ctx, userID, "total_referrals", entity.UserStats{UserID: userID, TotalReferrals: 1})
}

func (r *statsRepository) IncrementPosts(ctx context.Context, userID uuid.UUID) error {
	return r.increment(ctx, userID, "total_posts", entity.UserStats{UserID: userID, TotalPosts: 1})
}

func (r *statsRepository) IncrementComments(ctx context.Context, userID uuid.UUID) error {
	return r.increment(ctx, userID, "total_comments", entity.UserStats{UserID: userID, TotalComments: 1})
}

func (r *statsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserStats, error) {
	var stats entity.UserStats
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *statsRepository) TopUsersByPoints(ctx context.Context, limit int) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Order("points desc").
		Limit(limit).
		Find(&users).Error
	return users, err
}
