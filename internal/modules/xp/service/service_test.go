package service

import (
	"context"
	"fmt"
	"testing"

	"devsocial.app/backend/internal/entity"
	xpRepo "devsocial.app/backend/internal/modules/xp/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type countingChecker struct {
	calls []uuid.UUID
}

func (c *countingChecker) CheckCompletion(ctx context.Context, referredUserID uuid.UUID) {
	c.calls = append(c.calls, referredUserID)
}

func newTestService(t *testing.T) (*gorm.DB, XPService) {
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
		&entity.XPTransaction{},
		&entity.Notification{},
	))

	return db, NewXPService(xpRepo.NewXPRepository(db), nil)
}

func createUser(t *testing.T, db *gorm.DB, points int) *entity.User {
	t.Helper()

	user := &entity.User{
		Username: fmt.Sprintf("user-%s", uuid.NewString()[:8]),
		Email:    fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Points:   points,
		Level:    entity.LevelForPoints(points),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func reloadUser(t *testing.T, db *gorm.DB, id uuid.UUID) *entity.User {
	t.Helper()

	var user entity.User
	require.NoError(t, db.Where("id = ?", id).First(&user).Error)
	return &user
}

func ledgerByType(t *testing.T, db *gorm.DB, userID uuid.UUID, txType string) []entity.XPTransaction {
	t.Helper()

	var txs []entity.XPTransaction
	require.NoError(t, db.Where("user_id = ? AND type = ?", userID, txType).Find(&txs).Error)
	return txs
}

func TestAwardXPAppendsLedgerAndUpdatesPoints(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, 0)

	require.NoError(t, svc.AwardXP(context.Background(), user.ID, ActionSignup, ""))
	require.NoError(t, svc.AwardXP(context.Background(), user.ID, ActionCreatePost, "post-1"))

	fresh := reloadUser(t, db, user.ID)
	require.Equal(t, Amount(ActionSignup)+Amount(ActionCreatePost), fresh.Points)
	require.Equal(t, 1, fresh.Level)

	ledger, err := svc.GetLedger(context.Background(), user.ID, 10)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
}

func TestAwardXPRejectsUnknownAction(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, 0)

	require.Error(t, svc.AwardXP(context.Background(), user.ID, "no_such_action", ""))
}

func TestLevelUpGrantsOneBonus(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, entity.PointsPerLevel-5)

	// +10 crosses the level boundary; +50 bonus follows but must not cascade.
	require.NoError(t, svc.AwardXP(context.Background(), user.ID, ActionCreatePost, ""))

	bonuses := ledgerByType(t, db, user.ID, ActionLevelUp)
	require.Len(t, bonuses, 1)

	fresh := reloadUser(t, db, user.ID)
	require.Equal(t, entity.PointsPerLevel+5+Amount(ActionLevelUp), fresh.Points)
	require.Equal(t, 2, fresh.Level)
}

func TestLevelDerivedFromPoints(t *testing.T) {
	require.Equal(t, 1, entity.LevelForPoints(0))
	require.Equal(t, 1, entity.LevelForPoints(entity.PointsPerLevel-1))
	require.Equal(t, 2, entity.LevelForPoints(entity.PointsPerLevel))
	require.Equal(t, 4, entity.LevelForPoints(3*entity.PointsPerLevel))
	require.Equal(t, 1, entity.LevelForPoints(-10))
}

func TestCompletionCheckerTriggering(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, 0)

	checker := &countingChecker{}
	svc.SetCompletionChecker(checker)

	require.NoError(t, svc.AwardXP(context.Background(), user.ID, ActionSignup, ""))
	require.NoError(t, svc.AwardXP(context.Background(), user.ID, ActionCreateComment, ""))
	require.Len(t, checker.calls, 2)

	// The referral engine's own rewards never re-enter the engine.
	require.NoError(t, svc.AwardXP(context.Background(), user.ID, ActionReferralSuccess, ""))
	require.NoError(t, svc.AwardXP(context.Background(), user.ID, ActionReferralBonus, ""))
	require.Len(t, checker.calls, 2)
}

func TestAwardDailyLoginXPOncePerDay(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, 0)

	require.NoError(t, svc.AwardDailyLoginXP(context.Background(), user.ID))
	require.NoError(t, svc.AwardDailyLoginXP(context.Background(), user.ID))

	require.Len(t, ledgerByType(t, db, user.ID, ActionDailyLogin), 1)
	require.Equal(t, Amount(ActionDailyLogin), reloadUser(t, db, user.ID).Points)
}

func TestHasEarned(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, 0)

	earned, err := svc.HasEarned(context.Background(), user.ID, ActionFirstPost)
	require.NoError(t, err)
	require.False(t, earned)

	require.NoError(t, svc.AwardXP(context.Background(), user.ID, ActionFirstPost, "post-1"))

	earned, err = svc.HasEarned(context.Background(), user.ID, ActionFirstPost)
	require.NoError(t, err)
	require.True(t, earned)
}
