package service

import (
	"context"
	"net/http"
	"testing"

	"devsocial.app/backend/internal/entity"
	statsRepo "devsocial.app/backend/internal/modules/leaderboard/repository"
	referralRepo "devsocial.app/backend/internal/modules/referral/repository"
	referralService "devsocial.app/backend/internal/modules/referral/service"
	userDto "devsocial.app/backend/internal/modules/user/dto"
	userRepo "devsocial.app/backend/internal/modules/user/repository"
	xpRepo "devsocial.app/backend/internal/modules/xp/repository"
	xp "devsocial.app/backend/internal/modules/xp/service"
	"devsocial.app/backend/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func newTestAuth(t *testing.T) (*gorm.DB, AuthService, referralService.ReferralService) {
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
	require.NoError(t, db.Create(&entity.Role{Name: entity.RoleMember}).Error)

	users := userRepo.NewUserRepository(db)
	stats := statsRepo.NewStatsRepository(db)
	xpSvc := xp.NewXPService(xpRepo.NewXPRepository(db), nil)
	referralSvc := referralService.NewReferralService(referralRepo.NewReferralRepository(db), users, stats, xpSvc, nil)
	xpSvc.SetCompletionChecker(referralSvc)

	return db, NewAuthService(users, referralSvc, xpSvc, nil, testSecret), referralSvc
}

func registerInput(username string) userDto.RegisterInput {
	return userDto.RegisterInput{
		Username:    username,
		Email:       username + "@example.com",
		Password:    "password123",
		DisplayName: "Test " + username,
	}
}

func TestRegisterCreatesAccountAndAwardsSignupXP(t *testing.T) {
	db, auth, _ := newTestAuth(t)

	result, err := auth.Register(context.Background(), registerInput("jane"))
	require.NoError(t, err)

	require.NotEmpty(t, result.Token)
	require.Equal(t, "jane", result.User.Username)
	require.Equal(t, "Test jane", result.User.DisplayName)
	require.Equal(t, xp.Amount(xp.ActionSignup), result.User.Points)
	require.Equal(t, 1, result.User.Level)

	token, err := jwt.ParseWithClaims(result.Token, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(*jwt.RegisteredClaims)
	require.Equal(t, result.User.ID.String(), claims.Subject)

	var count int64
	require.NoError(t, db.Model(&entity.XPTransaction{}).
		Where("user_id = ? AND type = ?", result.User.ID, xp.ActionSignup).
		Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	_, auth, _ := newTestAuth(t)

	_, err := auth.Register(context.Background(), registerInput("jane"))
	require.NoError(t, err)

	input := registerInput("jane")
	input.Email = "other@example.com"
	_, err = auth.Register(context.Background(), input)
	require.Error(t, err)
	require.Equal(t, http.StatusConflict, apperror.MapErrorToStatus(err))
}

func TestRegisterWithReferralCodeCreatesPendingReferral(t *testing.T) {
	db, auth, referralSvc := newTestAuth(t)

	referrer, err := auth.Register(context.Background(), registerInput("referrer"))
	require.NoError(t, err)

	code, err := referralSvc.GetOrCreateReferralCode(context.Background(), referrer.User.ID)
	require.NoError(t, err)

	input := registerInput("newbie")
	input.ReferralCode = code
	referred, err := auth.Register(context.Background(), input)
	require.NoError(t, err)

	var referral entity.Referral
	require.NoError(t, db.Where("referred_id = ?", referred.User.ID).First(&referral).Error)
	require.Equal(t, referrer.User.ID, referral.ReferrerID)
	require.Equal(t, code, referral.ReferralCode)
	require.Equal(t, entity.ReferralStatusPending, referral.Status)
}

func TestRegisterIgnoresUnknownReferralCode(t *testing.T) {
	db, auth, _ := newTestAuth(t)

	input := registerInput("jane")
	input.ReferralCode = "NOSUCHCODE"

	result, err := auth.Register(context.Background(), input)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&entity.Referral{}).
		Where("referred_id = ?", result.User.ID).
		Count(&count).Error)
	require.Zero(t, count)
}

func TestLogin(t *testing.T) {
	db, auth, _ := newTestAuth(t)

	_, err := auth.Register(context.Background(), registerInput("jane"))
	require.NoError(t, err)

	result, err := auth.Login(context.Background(), userDto.LoginInput{
		Email:    "jane@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)

	// First login of the day adds the daily bonus on top of signup XP.
	require.Equal(t, xp.Amount(xp.ActionSignup)+xp.Amount(xp.ActionDailyLogin), result.User.Points)

	var count int64
	require.NoError(t, db.Model(&entity.XPTransaction{}).
		Where("user_id = ? AND type = ?", result.User.ID, xp.ActionDailyLogin).
		Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	_, auth, _ := newTestAuth(t)

	_, err := auth.Register(context.Background(), registerInput("jane"))
	require.NoError(t, err)

	_, err = auth.Login(context.Background(), userDto.LoginInput{
		Email:    "jane@example.com",
		Password: "wrong-password",
	})
	require.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = auth.Login(context.Background(), userDto.LoginInput{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	require.ErrorIs(t, err, apperror.ErrUnauthorized)
}
