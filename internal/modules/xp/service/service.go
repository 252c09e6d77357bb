package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"devsocial.app/backend/internal/entity"
	notifService "devsocial.app/backend/internal/modules/notification/service"
	"devsocial.app/backend/internal/modules/xp/repository"
	"github.com/google/uuid"
)

const (
	ActionSignup          = "signup"
	ActionDailyLogin      = "daily_login"
	ActionCreatePost      = "post_created"
	ActionFirstPost       = "first_post"
	ActionCreateComment   = "comment_created"
	ActionFirstComment    = "first_comment"
	ActionLevelUp         = "level_up"
	ActionReferralSuccess = "referral_success"
	ActionReferralBonus   = "referral_bonus"
)

var xpAmounts = map[string]int{
	ActionSignup:          10,
	ActionDailyLogin:      5,
	ActionCreatePost:      10,
	ActionFirstPost:       20,
	ActionCreateComment:   5,
	ActionFirstComment:    10,
	ActionLevelUp:         50,
	ActionReferralSuccess: 25,
	ActionReferralBonus:   15,
}

// CompletionChecker is implemented by the referral engine. Keeping only the
// interface here breaks the dependency cycle: referral -> xp for rewards,
// xp -> referral for the post-award completion check.
type CompletionChecker interface {
	CheckCompletion(ctx context.Context, referredUserID uuid.UUID)
}

type XPService interface {
	// AwardXP appends a ledger entry, bumps the user's points/level, and
	// re-runs the referral completion check for the user. Awards of the two
	// referral reward types never re-trigger the check.
	AwardXP(ctx context.Context, userID uuid.UUID, actionType string, relatedID string) error
	AwardDailyLoginXP(ctx context.Context, userID uuid.UUID) error
	HasEarned(ctx context.Context, userID uuid.UUID, actionType string) (bool, error)
	GetLedger(ctx context.Context, userID uuid.UUID, limit int) ([]entity.XPTransaction, error)
	SetCompletionChecker(checker CompletionChecker)
}

type xpService struct {
	repo                repository.XPRepository
	notificationService notifService.NotificationService
	completionChecker   CompletionChecker
}

func NewXPService(repo repository.XPRepository, notificationService notifService.NotificationService) XPService {
	return &xpService{
		repo:                repo,
		notificationService: notificationService,
	}
}

// SetCompletionChecker is called once during wiring, before the server
// starts handling requests.
func (s *xpService) SetCompletionChecker(checker CompletionChecker) {
	s.completionChecker = checker
}

func (s *xpService) AwardXP(ctx context.Context, userID uuid.UUID, actionType string, relatedID string) error {
	amount, ok := xpAmounts[actionType]
	if !ok {
		return fmt.Errorf("unknown xp action type: %s", actionType)
	}

	user, err := s.repo.CreateWithPoints(ctx, &entity.XPTransaction{
		UserID:    userID,
		Type:      actionType,
		Amount:    amount,
		RelatedID: relatedID,
	})
	if err != nil {
		return err
	}

	previousLevel := entity.LevelForPoints(user.Points - amount)
	if user.Level > previousLevel && actionType != ActionLevelUp {
		s.grantLevelUpBonus(ctx, user)
	}

	// Any XP gain can push a referred user over the completion threshold.
	// The engine's own reward types are excluded so the loop terminates.
	if s.completionChecker != nil &&
		actionType != ActionReferralSuccess && actionType != ActionReferralBonus {
		s.completionChecker.CheckCompletion(ctx, userID)
	}

	return nil
}

// grantLevelUpBonus awards the one-time bonus for reaching a new level. The
// bonus itself goes through the ledger but never grants another bonus, even
// if it crosses the next boundary.
func (s *xpService) grantLevelUpBonus(ctx context.Context, user *entity.User) {
	if _, err := s.repo.CreateWithPoints(ctx, &entity.XPTransaction{
		UserID:    user.ID,
		Type:      ActionLevelUp,
		Amount:    xpAmounts[ActionLevelUp],
		RelatedID: user.ID.String(),
	}); err != nil {
		log.Printf("Failed to grant level up bonus for user %s: %v", user.ID, err)
		return
	}

	if s.notificationService != nil {
		notif := &entity.Notification{
			UserID:     user.ID,
			ActorID:    user.ID, // self-triggered
			EntityID:   user.ID,
			EntityType: "gamification",
			Type:       "level_up",
			Message:    fmt.Sprintf("You reached level %d! +%d XP bonus", user.Level, xpAmounts[ActionLevelUp]),
		}
		if err := s.notificationService.CreateNotification(ctx, notif); err != nil {
			log.Printf("Failed to send level up notification to user %s: %v", user.ID, err)
		}
	}
}

func (s *xpService) AwardDailyLoginXP(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	earned, err := s.repo.HasTransactionSince(ctx, userID, ActionDailyLogin, startOfDay)
	if err != nil {
		return err
	}
	if earned {
		return nil
	}

	return s.AwardXP(ctx, userID, ActionDailyLogin, "")
}

func (s *xpService) HasEarned(ctx context.Context, userID uuid.UUID, actionType string) (bool, error) {
	return s.repo.HasTransaction(ctx, userID, actionType)
}

func (s *xpService) GetLedger(ctx context.Context, userID uuid.UUID, limit int) ([]entity.XPTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// Amount reports the fixed XP value of an action type.
func Amount(actionType string) int {
	return xpAmounts[actionType]
}
