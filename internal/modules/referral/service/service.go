package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"devsocial.app/backend/internal/entity"
	statsRepo "devsocial.app/backend/internal/modules/leaderboard/repository"
	notifService "devsocial.app/backend/internal/modules/notification/service"
	referralDto "devsocial.app/backend/internal/modules/referral/dto"
	referralRepo "devsocial.app/backend/internal/modules/referral/repository"
	userRepo "devsocial.app/backend/internal/modules/user/repository"
	xp "devsocial.app/backend/internal/modules/xp/service"
	"devsocial.app/backend/pkg/apperror"
	pkgDto "devsocial.app/backend/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// ReferralWindowDays is how long a pending referral stays eligible.
	ReferralWindowDays = 30

	// CompletionMinPoints is the activity threshold the referred user must
	// reach for a pending referral to convert to completed.
	CompletionMinPoints = 25

	// RecentReferralsLimit caps the recent list returned with stats.
	RecentReferralsLimit = 10

	codeGenAttempts = 3
)

type ReferralService interface {
	// GetOrCreateReferralCode returns the user's code, generating and
	// persisting one on first access. Safe under concurrent first calls.
	GetOrCreateReferralCode(ctx context.Context, userID uuid.UUID) (string, error)
	// ValidateReferralCode is a pure lookup; unknown codes yield valid=false.
	ValidateReferralCode(ctx context.Context, code string) (*referralDto.ValidateReferralResponse, error)
	CreateReferral(ctx context.Context, referrerID, referredID uuid.UUID, explicitCode string) (*entity.Referral, error)
	// CheckCompletion converts the referred user's pending referrals when the
	// completion threshold is met. Idempotent; per-item failures are logged
	// and never abort the batch or propagate to the caller.
	CheckCompletion(ctx context.Context, referredUserID uuid.UUID)
	// RecheckReferrerReferrals is the referrer-side lazy self-heal.
	RecheckReferrerReferrals(ctx context.Context, referrerID uuid.UUID)
	ExpireOldReferrals(ctx context.Context) (int64, error)
	GetReferralStats(ctx context.Context, referrerID uuid.UUID) (*referralDto.ReferralStatsResponse, error)
	GetGlobalOverview(ctx context.Context) (map[string]referralDto.StatusStats, error)
}

type referralService struct {
	repo                referralRepo.ReferralRepository
	userRepo            userRepo.UserRepository
	statsRepo           statsRepo.StatsRepository
	xpService           xp.XPService
	notificationService notifService.NotificationService
}

func NewReferralService(
	repo referralRepo.ReferralRepository,
	userRepo userRepo.UserRepository,
	statsRepo statsRepo.StatsRepository,
	xpService xp.XPService,
	notificationService notifService.NotificationService,
) ReferralService {
	return &referralService{
		repo:                repo,
		userRepo:            userRepo,
		statsRepo:           statsRepo,
		xpService:           xpService,
		notificationService: notificationService,
	}
}

func (s *referralService) GetOrCreateReferralCode(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperror.ErrNotFound
		}
		return "", err
	}

	if user.ReferralCode != nil && *user.ReferralCode != "" {
		return *user.ReferralCode, nil
	}

	// Two concurrent first calls may both try to write; whichever loses the
	// conditional update (or hits the unique index) re-reads the winner's
	// code instead of erroring.
	for attempt := 0; attempt < codeGenAttempts; attempt++ {
		code := generateCode(user.Username)

		won, err := s.userRepo.SetReferralCodeIfEmpty(ctx, userID.String(), code)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue // code collision with another user, regenerate
			}
			return "", err
		}
		if won {
			return code, nil
		}

		fresh, err := s.userRepo.FindByID(ctx, userID.String())
		if err != nil {
			return "", err
		}
		if fresh.ReferralCode != nil && *fresh.ReferralCode != "" {
			return *fresh.ReferralCode, nil
		}
	}

	return "", apperror.ErrInternal
}

func (s *referralService) ValidateReferralCode(ctx context.Context, code string) (*referralDto.ValidateReferralResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return &referralDto.ValidateReferralResponse{Valid: false}, nil
	}

	referrer, err := s.userRepo.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &referralDto.ValidateReferralResponse{Valid: false}, nil
		}
		return nil, err
	}

	return &referralDto.ValidateReferralResponse{
		Valid: true,
		Referrer: &referralDto.ReferrerInfo{
			ID:       referrer.ID,
			Username: referrer.Username,
		},
	}, nil
}

func (s *referralService) CreateReferral(ctx context.Context, referrerID, referredID uuid.UUID, explicitCode string) (*entity.Referral, error) {
	if referrerID == referredID {
		return nil, apperror.ErrSelfReferral
	}

	// A user can be referred once, ever, regardless of referrer. The unique
	// index on referred_id backs this check against concurrent signups.
	exists, err := s.repo.ExistsByReferredID(ctx, referredID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ErrDuplicateReferral
	}

	// Record the code the referred user actually typed; fall back to the
	// referrer's resolved code. Immutable after creation either way.
	code := strings.TrimSpace(explicitCode)
	if code == "" {
		code, err = s.GetOrCreateReferralCode(ctx, referrerID)
		if err != nil {
			return nil, err
		}
	}

	referral := &entity.Referral{
		ReferrerID:     referrerID,
		ReferredID:     referredID,
		ReferralCode:   code,
		Status:         entity.ReferralStatusPending,
		ExpiresAt:      time.Now().AddDate(0, 0, ReferralWindowDays),
		RewardsClaimed: false,
		ReferrerReward: xp.Amount(xp.ActionReferralSuccess),
		ReferredReward: xp.Amount(xp.ActionReferralBonus),
	}

	if err := s.repo.Create(ctx, referral); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.ErrDuplicateReferral
		}
		return nil, err
	}

	// The referred account may already satisfy the completion criteria
	// (backfill), so check right away and return the post-check state.
	s.CheckCompletion(ctx, referredID)

	fresh, err := s.repo.FindByID(ctx, referral.ID)
	if err != nil {
		return referral, nil
	}
	return fresh, nil
}

func (s *referralService) CheckCompletion(ctx context.Context, referredUserID uuid.UUID) {
	pending, err := s.repo.FindPendingByReferred(ctx, referredUserID, time.Now())
	if err != nil {
		log.Printf("Failed to load pending referrals for referred user %s: %v", referredUserID, err)
		return
	}
	if len(pending) == 0 {
		return
	}

	referred, err := s.userRepo.FindByID(ctx, referredUserID.String())
	if err != nil {
		log.Printf("Failed to load referred user %s for completion check: %v", referredUserID, err)
		return
	}
	if !meetsCompletionCriteria(referred) {
		return
	}

	for _, referral := range pending {
		s.completeReferral(ctx, referral, referred)
	}
}

func (s *referralService) RecheckReferrerReferrals(ctx context.Context, referrerID uuid.UUID) {
	pending, err := s.repo.FindPendingByReferrer(ctx, referrerID, time.Now())
	if err != nil {
		log.Printf("Failed to load pending referrals for referrer %s: %v", referrerID, err)
		return
	}

	for _, referral := range pending {
		referred, err := s.userRepo.FindByID(ctx, referral.ReferredID.String())
		if err != nil {
			// One broken referral must never block the rest of the batch.
			log.Printf("Failed to load referred user %s for referral %s: %v", referral.ReferredID, referral.ID, err)
			continue
		}
		if !meetsCompletionCriteria(referred) {
			continue
		}

		s.completeReferral(ctx, referral, referred)
	}
}

// meetsCompletionCriteria is the completion predicate: the referred user's
// point total has reached the threshold. Points are the single source, no
// secondary post-count read.
func meetsCompletionCriteria(referred *entity.User) bool {
	return referred.Points >= CompletionMinPoints
}

// completeReferral performs the pending -> completed transition and its side
// effects. The status-guarded update makes concurrent attempts collapse to a
// single completion; only the winner grants rewards.
func (s *referralService) completeReferral(ctx context.Context, referral entity.Referral, referred *entity.User) {
	won, err := s.repo.MarkCompleted(ctx, referral.ID, time.Now())
	if err != nil {
		log.Printf("Failed to complete referral %s: %v", referral.ID, err)
		return
	}
	if !won {
		return // already completed or expired by a concurrent caller
	}

	if err := s.xpService.AwardXP(ctx, referral.ReferrerID, xp.ActionReferralSuccess, referral.ID.String()); err != nil {
		log.Printf("Failed to award referral success XP to referrer %s: %v", referral.ReferrerID, err)
	}
	if err := s.xpService.AwardXP(ctx, referral.ReferredID, xp.ActionReferralBonus, referral.ID.String()); err != nil {
		log.Printf("Failed to award referral bonus XP to referred user %s: %v", referral.ReferredID, err)
	}

	if err := s.statsRepo.IncrementReferrals(ctx, referral.ReferrerID); err != nil {
		log.Printf("Failed to increment referral count for referrer %s: %v", referral.ReferrerID, err)
	}

	s.notifyCompletion(ctx, referral, referred)
}

func (s *referralService) notifyCompletion(ctx context.Context, referral entity.Referral, referred *entity.User) {
	if s.notificationService == nil {
		return
	}

	toReferrer := &entity.Notification{
		UserID:     referral.ReferrerID,
		ActorID:    referral.ReferredID,
		EntityID:   referral.ID,
		EntityType: "referral",
		Type:       "referral_completed",
		Message:    fmt.Sprintf("Your referral of %s is complete! +%d XP", referred.Username, referral.ReferrerReward),
	}
	if err := s.notificationService.CreateNotification(ctx, toReferrer); err != nil {
		log.Printf("Failed to notify referrer %s: %v", referral.ReferrerID, err)
	}

	toReferred := &entity.Notification{
		UserID:     referral.ReferredID,
		ActorID:    referral.ReferrerID,
		EntityID:   referral.ID,
		EntityType: "referral",
		Type:       "referral_completed",
		Message:    fmt.Sprintf("Welcome bonus unlocked! +%d XP", referral.ReferredReward),
	}
	if err := s.notificationService.CreateNotification(ctx, toReferred); err != nil {
		log.Printf("Failed to notify referred user %s: %v", referral.ReferredID, err)
	}
}

func (s *referralService) ExpireOldReferrals(ctx context.Context) (int64, error) {
	return s.repo.ExpirePending(ctx, time.Now())
}

func (s *referralService) GetReferralStats(ctx context.Context, referrerID uuid.UUID) (*referralDto.ReferralStatsResponse, error) {
	// Lazy self-heal: stale pending referrals complete when the referrer
	// views their stats, not only on the sweep schedule.
	s.RecheckReferrerReferrals(ctx, referrerID)

	aggs, err := s.repo.AggregateByReferrer(ctx, referrerID)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]referralDto.StatusStats, len(aggs))
	for _, agg := range aggs {
		stats[string(agg.Status)] = referralDto.StatusStats{
			Count:   agg.Count,
			Rewards: agg.Rewards,
		}
	}

	recent, err := s.repo.RecentByReferrer(ctx, referrerID, RecentReferralsLimit)
	if err != nil {
		return nil, err
	}

	items := make([]referralDto.ReferralItem, 0, len(recent))
	for _, referral := range recent {
		author := pkgDto.AuthorResponse{
			Username:  referral.Referred.Username,
			AvatarURL: referral.Referred.AvatarURL,
		}
		if referral.Referred.Profile != nil {
			author.DisplayName = referral.Referred.Profile.DisplayName
		}

		items = append(items, referralDto.ReferralItem{
			ID:          referral.ID,
			Status:      string(referral.Status),
			Reward:      referral.ReferrerReward,
			CreatedAt:   referral.CreatedAt,
			CompletedAt: referral.CompletedAt,
			ExpiresAt:   referral.ExpiresAt,
			Referred:    author,
		})
	}

	return &referralDto.ReferralStatsResponse{
		Stats:           stats,
		RecentReferrals: items,
	}, nil
}

func (s *referralService) GetGlobalOverview(ctx context.Context) (map[string]referralDto.StatusStats, error) {
	aggs, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	overview := make(map[string]referralDto.StatusStats, len(aggs))
	for _, agg := range aggs {
		overview[string(agg.Status)] = referralDto.StatusStats{
			Count:   agg.Count,
			Rewards: agg.Rewards,
		}
	}
	return overview, nil
}
