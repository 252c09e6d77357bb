package service

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"devsocial.app/backend/internal/entity"
	statsRepo "devsocial.app/backend/internal/modules/leaderboard/repository"
	referralRepo "devsocial.app/backend/internal/modules/referral/repository"
	userRepo "devsocial.app/backend/internal/modules/user/repository"
	xpRepo "devsocial.app/backend/internal/modules/xp/repository"
	xp "devsocial.app/backend/internal/modules/xp/service"
	"devsocial.app/backend/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db          *gorm.DB
	referrals   referralRepo.ReferralRepository
	users       userRepo.UserRepository
	stats       statsRepo.StatsRepository
	xpService   xp.XPService
	service     ReferralService
	userCounter int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A second pool connection would see its own empty in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&entity.Role{},
		&entity.User{},
		&entity.Profile{},
		&entity.XPTransaction{},
		&entity.Referral{},
		&entity.UserStats{},
		&entity.Notification{},
	))

	f := &fixture{
		db:        db,
		referrals: referralRepo.NewReferralRepository(db),
		users:     userRepo.NewUserRepository(db),
		stats:     statsRepo.NewStatsRepository(db),
	}

	f.xpService = xp.NewXPService(xpRepo.NewXPRepository(db), nil)
	f.service = NewReferralService(f.referrals, f.users, f.stats, f.xpService, nil)
	f.xpService.SetCompletionChecker(f.service)

	return f
}

func (f *fixture) createUser(t *testing.T, points int) *entity.User {
	t.Helper()

	f.userCounter++
	user := &entity.User{
		Username: fmt.Sprintf("user%d", f.userCounter),
		Email:    fmt.Sprintf("user%d@example.com", f.userCounter),
		Points:   points,
		Level:    entity.LevelForPoints(points),
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) createReferral(t *testing.T, referrerID, referredID uuid.UUID) *entity.Referral {
	t.Helper()

	referral, err := f.service.CreateReferral(context.Background(), referrerID, referredID, "TESTCODE")
	require.NoError(t, err)
	return referral
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *entity.Referral {
	t.Helper()

	referral, err := f.referrals.FindByID(context.Background(), id)
	require.NoError(t, err)
	return referral
}

func (f *fixture) xpByType(t *testing.T, userID uuid.UUID, txType string) []entity.XPTransaction {
	t.Helper()

	var txs []entity.XPTransaction
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", userID, txType).Find(&txs).Error)
	return txs
}

func TestCreateReferralRejectsSelfReferral(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, 0)

	_, err := f.service.CreateReferral(context.Background(), user.ID, user.ID, "CODE")
	require.ErrorIs(t, err, apperror.ErrSelfReferral)
}

func TestCreateReferralRejectsSecondReferralForSameUser(t *testing.T) {
	f := newFixture(t)
	referrerA := f.createUser(t, 0)
	referrerB := f.createUser(t, 0)
	referred := f.createUser(t, 0)

	f.createReferral(t, referrerA.ID, referred.ID)

	_, err := f.service.CreateReferral(context.Background(), referrerB.ID, referred.ID, "OTHER")
	require.ErrorIs(t, err, apperror.ErrDuplicateReferral)
}

func TestCreateReferralStartsPendingWithWindow(t *testing.T) {
	f := newFixture(t)
	referrer := f.createUser(t, 0)
	referred := f.createUser(t, 0)

	referral := f.createReferral(t, referrer.ID, referred.ID)

	require.Equal(t, entity.ReferralStatusPending, referral.Status)
	require.Equal(t, "TESTCODE", referral.ReferralCode)
	require.False(t, referral.RewardsClaimed)
	require.Nil(t, referral.CompletedAt)

	wantExpiry := time.Now().AddDate(0, 0, ReferralWindowDays)
	require.WithinDuration(t, wantExpiry, referral.ExpiresAt, time.Minute)
}

func TestCreateReferralCompletesImmediatelyForActiveUser(t *testing.T) {
	f := newFixture(t)
	referrer := f.createUser(t, 0)
	referred := f.createUser(t, CompletionMinPoints)

	referral := f.createReferral(t, referrer.ID, referred.ID)

	require.Equal(t, entity.ReferralStatusCompleted, referral.Status)
	require.NotNil(t, referral.CompletedAt)
	require.True(t, referral.RewardsClaimed)
}

func TestCompletionThresholdBoundary(t *testing.T) {
	f := newFixture(t)
	referrer := f.createUser(t, 0)
	below := f.createUser(t, CompletionMinPoints-1)

	referral := f.createReferral(t, referrer.ID, below.ID)
	require.Equal(t, entity.ReferralStatusPending, referral.Status)

	// One more point crosses the threshold; the award itself triggers the
	// completion check.
	require.NoError(t, f.db.Model(&entity.User{}).
		Where("id = ?", below.ID).
		Update("points", CompletionMinPoints-5).Error)
	require.NoError(t, f.xpService.AwardXP(context.Background(), below.ID, xp.ActionDailyLogin, ""))

	require.Equal(t, entity.ReferralStatusCompleted, f.reload(t, referral.ID).Status)
}

func TestCompletionGrantsRewardsToBothParties(t *testing.T) {
	f := newFixture(t)
	referrer := f.createUser(t, 0)
	referred := f.createUser(t, CompletionMinPoints)

	referral := f.createReferral(t, referrer.ID, referred.ID)
	require.Equal(t, entity.ReferralStatusCompleted, referral.Status)

	successTxs := f.xpByType(t, referrer.ID, xp.ActionReferralSuccess)
	require.Len(t, successTxs, 1)
	require.Equal(t, xp.Amount(xp.ActionReferralSuccess), successTxs[0].Amount)
	require.Equal(t, referral.ID.String(), successTxs[0].RelatedID)

	bonusTxs := f.xpByType(t, referred.ID, xp.ActionReferralBonus)
	require.Len(t, bonusTxs, 1)
	require.Equal(t, xp.Amount(xp.ActionReferralBonus), bonusTxs[0].Amount)

	stats, err := f.stats.GetByUserID(context.Background(), referrer.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalReferrals)
}

func TestCompletionPointDeltas(t *testing.T) {
	f := newFixture(t)
	referrer := f.createUser(t, 100)
	referred := f.createUser(t, 10)

	referral := f.createReferral(t, referrer.ID, referred.ID)
	require.Equal(t, entity.ReferralStatusPending, referral.Status)

	// Earning 15 more points (10 + 5 + 10 = 25) crosses the threshold.
	require.NoError(t, f.xpService.AwardXP(context.Background(), referred.ID, xp.ActionDailyLogin, ""))
	require.NoError(t, f.xpService.AwardXP(context.Background(), referred.ID, xp.ActionCreatePost, ""))

	require.Equal(t, entity.ReferralStatusCompleted, f.reload(t, referral.ID).Status)

	var freshReferrer, freshReferred entity.User
	require.NoError(t, f.db.Where("id = ?", referrer.ID).First(&freshReferrer).Error)
	require.NoError(t, f.db.Where("id = ?", referred.ID).First(&freshReferred).Error)

	require.Equal(t, 100+xp.Amount(xp.ActionReferralSuccess), freshReferrer.Points)
	require.Equal(t, 25+xp.Amount(xp.ActionReferralBonus), freshReferred.Points)

	stats, err := f.stats.GetByUserID(context.Background(), referrer.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalReferrals)
}

func TestCheckCompletionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	referrer := f.createUser(t, 0)
	referred := f.createUser(t, CompletionMinPoints)

	referral := f.createReferral(t, referrer.ID, referred.ID)
	require.Equal(t, entity.ReferralStatusCompleted, referral.Status)

	// Re-running the check against an already completed referral must not
	// grant a second reward pair.
	f.service.CheckCompletion(context.Background(), referred.ID)
	f.service.RecheckReferrerReferrals(context.Background(), referrer.ID)

	require.Len(t, f.xpByType(t, referrer.ID, xp.ActionReferralSuccess), 1)
	require.Len(t, f.xpByType(t, referred.ID, xp.ActionReferralBonus), 1)

	stats, err := f.stats.GetByUserID(context.Background(), referrer.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalReferrals)
}

func TestExpireOldReferrals(t *testing.T) {
	f := newFixture(t)
	referrer := f.createUser(t, 0)
	staleUser := f.createUser(t, 0)
	freshUser := f.createUser(t, 0)
	doneUser := f.createUser(t, CompletionMinPoints)

	stale := f.createReferral(t, referrer.ID, staleUser.ID)
	fresh := f.createReferral(t, referrer.ID, freshUser.ID)
	done := f.createReferral(t, referrer.ID, doneUser.ID)
	require.Equal(t, entity.ReferralStatusCompleted, done.Status)

	require.NoError(t, f.db.Model(&entity.Referral{}).
		Where("id = ?", stale.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	count, err := f.service.ExpireOldReferrals(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	require.Equal(t, entity.ReferralStatusExpired, f.reload(t, stale.ID).Status)
	require.Equal(t, entity.ReferralStatusPending, f.reload(t, fresh.ID).Status)
	require.Equal(t, entity.ReferralStatusCompleted, f.reload(t, done.ID).Status)

	// The sweep is idempotent.
	count, err = f.service.ExpireOldReferrals(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestExpiredReferralNeverCompletes(t *testing.T) {
	f := newFixture(t)
	referrer := f.createUser(t, 0)
	referred := f.createUser(t, 0)

	referral := f.createReferral(t, referrer.ID, referred.ID)

	require.NoError(t, f.db.Model(&entity.Referral{}).
		Where("id = ?", referral.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err := f.service.ExpireOldReferrals(context.Background())
	require.NoError(t, err)

	// Activity after expiration must not resurrect the referral.
	require.NoError(t, f.xpService.AwardXP(context.Background(), referred.ID, xp.ActionSignup, ""))
	require.NoError(t, f.xpService.AwardXP(context.Background(), referred.ID, xp.ActionCreatePost, ""))
	require.NoError(t, f.xpService.AwardXP(context.Background(), referred.ID, xp.ActionFirstPost, ""))

	require.Equal(t, entity.ReferralStatusExpired, f.reload(t, referral.ID).Status)
	require.Empty(t, f.xpByType(t, referrer.ID, xp.ActionReferralSuccess))
}

func TestGetReferralStats(t *testing.T) {
	f := newFixture(t)
	referrer := f.createUser(t, 0)
	completedUser := f.createUser(t, CompletionMinPoints)
	pendingUser := f.createUser(t, 0)

	f.createReferral(t, referrer.ID, completedUser.ID)
	f.createReferral(t, referrer.ID, pendingUser.ID)

	stats, err := f.service.GetReferralStats(context.Background(), referrer.ID)
	require.NoError(t, err)

	require.Len(t, stats.Stats, 2)
	require.Equal(t, int64(1), stats.Stats[string(entity.ReferralStatusCompleted)].Count)
	require.Equal(t, xp.Amount(xp.ActionReferralSuccess), stats.Stats[string(entity.ReferralStatusCompleted)].Rewards)
	require.Equal(t, int64(1), stats.Stats[string(entity.ReferralStatusPending)].Count)

	require.Len(t, stats.RecentReferrals, 2)
	for _, item := range stats.RecentReferrals {
		require.NotEmpty(t, item.Referred.Username)
	}
}

func TestGetReferralStatsSelfHealsStalePending(t *testing.T) {
	f := newFixture(t)
	referrer := f.createUser(t, 0)
	referred := f.createUser(t, 0)

	referral := f.createReferral(t, referrer.ID, referred.ID)
	require.Equal(t, entity.ReferralStatusPending, referral.Status)

	// The referred user becomes active through a path that bypassed the
	// completion check (e.g. a direct points backfill).
	require.NoError(t, f.db.Model(&entity.User{}).
		Where("id = ?", referred.ID).
		Update("points", CompletionMinPoints).Error)

	stats, err := f.service.GetReferralStats(context.Background(), referrer.ID)
	require.NoError(t, err)

	require.Equal(t, int64(1), stats.Stats[string(entity.ReferralStatusCompleted)].Count)
	require.NotContains(t, stats.Stats, string(entity.ReferralStatusPending))
	require.Equal(t, entity.ReferralStatusCompleted, f.reload(t, referral.ID).Status)
}

func TestGetReferralStatsEmpty(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, 0)

	stats, err := f.service.GetReferralStats(context.Background(), user.ID)
	require.NoError(t, err)

	require.Empty(t, stats.Stats)
	require.NotNil(t, stats.RecentReferrals)
	require.Empty(t, stats.RecentReferrals)
}

func TestGetOrCreateReferralCode(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, 0)

	code, err := f.service.GetOrCreateReferralCode(context.Background(), user.ID)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^[A-Z0-9]+$`), code)

	// Stable on repeat calls.
	again, err := f.service.GetOrCreateReferralCode(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, code, again)

	result, err := f.service.ValidateReferralCode(context.Background(), code)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, user.ID, result.Referrer.ID)
	require.Equal(t, user.Username, result.Referrer.Username)
}

func TestValidateReferralCodeUnknown(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.ValidateReferralCode(context.Background(), "NOSUCHCODE")
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Nil(t, result.Referrer)

	result, err = f.service.ValidateReferralCode(context.Background(), "   ")
	require.NoError(t, err)
	require.False(t, result.Valid)
}

func TestCreateReferralResolvesReferrerCodeWhenNoneGiven(t *testing.T) {
	f := newFixture(t)
	referrer := f.createUser(t, 0)
	referred := f.createUser(t, 0)

	referral, err := f.service.CreateReferral(context.Background(), referrer.ID, referred.ID, "")
	require.NoError(t, err)

	code, err := f.service.GetOrCreateReferralCode(context.Background(), referrer.ID)
	require.NoError(t, err)
	require.Equal(t, code, referral.ReferralCode)
}

func TestGetGlobalOverview(t *testing.T) {
	f := newFixture(t)
	referrer := f.createUser(t, 0)
	completedUser := f.createUser(t, CompletionMinPoints)
	pendingUser := f.createUser(t, 0)

	f.createReferral(t, referrer.ID, completedUser.ID)
	f.createReferral(t, referrer.ID, pendingUser.ID)

	overview, err := f.service.GetGlobalOverview(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(1), overview[string(entity.ReferralStatusCompleted)].Count)
	require.Equal(t, int64(1), overview[string(entity.ReferralStatusPending)].Count)
}
