package repository

import (
	"context"
	"time"

	"devsocial.app/backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusAggregate is one row of the per-status rollup for a referrer.
type StatusAggregate struct {
	Status  entity.ReferralStatus `json:"status"`
	Count   int64                 `json:"count"`
	Rewards int                   `json:"rewards"`
}

type ReferralRepository interface {
	Create(ctx context.Context, referral *entity.Referral) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Referral, error)
	ExistsByReferredID(ctx context.Context, referredID uuid.UUID) (bool, error)
	// FindPendingByReferred returns pending, not-yet-expired referrals for the
	// referred user. Expired-but-unswept rows are left to the sweep.
	FindPendingByReferred(ctx context.Context, referredID uuid.UUID, now time.Time) ([]entity.Referral, error)
	FindPendingByReferrer(ctx context.Context, referrerID uuid.UUID, now time.Time) ([]entity.Referral, error)
	// MarkCompleted transitions pending -> completed under a status guard and
	// reports whether this call performed the transition.
	MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// ExpirePending bulk-transitions pending referrals past their expiry.
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
	AggregateByReferrer(ctx context.Context, referrerID uuid.UUID) ([]StatusAggregate, error)
	RecentByReferrer(ctx context.Context, referrerID uuid.UUID, limit int) ([]entity.Referral, error)
	CountByStatus(ctx context.Context) ([]StatusAggregate, error)
}

type referralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) Create(ctx context.Context, referral *entity.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *referralRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Referral, error) {
	var referral entity.Referral
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&referral).Error; err != nil {
		return nil, err
	}
	return &referral, nil
}

func (r *referralRepository) ExistsByReferredID(ctx context.Context, referredID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Referral{}).
		Where("referred_id = ?", referredID).
		Count(&count).Error
	return count > 0, err
}

func (r *referralRepository) FindPendingByReferred(ctx context.Context, referredID uuid.UUID, now time.Time) ([]entity.Referral, error) {
	var referrals []entity.Referral
	err := r.db.WithContext(ctx).
		Where("referred_id = ? AND status = ? AND expires_at > ?",
			referredID, entity.ReferralStatusPending, now).
		Find(&referrals).Error
	return referrals, err
}

func (r *referralRepository) FindPendingByReferrer(ctx context.Context, referrerID uuid.UUID, now time.Time) ([]entity.Referral, error) {
	var referrals []entity.Referral
	err := r.db.WithContext(ctx).
		Where("referrer_id = ? AND status = ? AND expires_at > ?",
			referrerID, entity.ReferralStatusPending, now).
		Find(&referrals).Error
	return referrals, err
}

func (r *referralRepository) MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Referral{}).
		Where("id = ? AND status = ?", id, entity.ReferralStatusPending).
		Updates(map[string]interface{}{
			"status":          entity.ReferralStatusCompleted,
			"completed_at":    now,
			"rewards_claimed": true,
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected == 1, nil
}

func (r *referralRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Referral{}).
		Where("status = ? AND expires_at < ?", entity.ReferralStatusPending, now).
		Update("status", entity.ReferralStatusExpired)
	return res.RowsAffected, res.Error
}

func (r *referralRepository) AggregateByReferrer(ctx context.Context, referrerID uuid.UUID) ([]StatusAggregate, error) {
	var aggs []StatusAggregate
	err := r.db.WithContext(ctx).
		Model(&entity.Referral{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(referrer_reward), 0) as rewards").
		Where("referrer_id = ?", referrerID).
		Group("status").
		Scan(&aggs).Error
	return aggs, err
}

func (r *referralRepository) RecentByReferrer(ctx context.Context, referrerID uuid.UUID, limit int) ([]entity.Referral, error) {
	var referrals []entity.Referral
	err := r.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("created_at desc").
		Limit(limit).
		Preload("Referred", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url")
		}).
		Preload("Referred.Profile").
		Find(&referrals).Error
	return referrals, err
}

func (r *referralRepository) CountByStatus(ctx context.Context) ([]StatusAggregate, error) {
	var aggs []StatusAggregate
	err := r.db.WithContext(ctx).
		Model(&entity.Referral{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(referrer_reward), 0) as rewards").
		Group("status").
		Scan(&aggs).Error
	return aggs, err
}
