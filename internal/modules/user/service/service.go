package service

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"devsocial.app/backend/internal/entity"
	referral "devsocial.app/backend/internal/modules/referral/service"
	search "devsocial.app/backend/internal/modules/search/service"
	userDto "devsocial.app/backend/internal/modules/user/dto"
	userRepo "devsocial.app/backend/internal/modules/user/repository"
	xp "devsocial.app/backend/internal/modules/xp/service"
	"devsocial.app/backend/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 7 * 24 * time.Hour

type AuthService interface {
	Register(ctx context.Context, input userDto.RegisterInput) (*userDto.AuthResponse, error)
	Login(ctx context.Context, input userDto.LoginInput) (*userDto.AuthResponse, error)
	GetMe(ctx context.Context, userID uuid.UUID) (*userDto.UserResponse, error)
}

type authService struct {
	userRepo        userRepo.UserRepository
	referralService referral.ReferralService
	xpService       xp.XPService
	searchService   search.SearchService
	jwtSecret       string
}

func NewAuthService(
	userRepo userRepo.UserRepository,
	referralService referral.ReferralService,
	xpService xp.XPService,
	searchService search.SearchService,
	jwtSecret string,
) AuthService {
	return &authService{
		userRepo:        userRepo,
		referralService: referralService,
		xpService:       xpService,
		searchService:   searchService,
		jwtSecret:       jwtSecret,
	}
}

func (s *authService) Register(ctx context.Context, input userDto.RegisterInput) (*userDto.AuthResponse, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, apperror.New(http.StatusConflict, "username is already taken", nil)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, apperror.New(http.StatusConflict, "email is already registered", nil)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Resolve the referral code before creating the account so a bad code is
	// just ignored, never a failed signup.
	var referrerID uuid.UUID
	code := strings.TrimSpace(input.ReferralCode)
	if code != "" {
		validation, err := s.referralService.ValidateReferralCode(ctx, code)
		if err != nil {
			log.Printf("Failed to validate referral code %q at signup: %v", code, err)
		} else if validation.Valid {
			referrerID = validation.Referrer.ID
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role, err := s.userRepo.FindRoleByName(ctx, entity.RoleMember)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       &role.ID,
		Level:        1,
	}
	profile := &entity.Profile{
		DisplayName: strings.TrimSpace(input.DisplayName),
	}

	if err := s.userRepo.Create(ctx, user, profile); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.New(http.StatusConflict, "username or email is already taken", nil)
		}
		return nil, err
	}

	// Everything past this point is best-effort: the account exists, so XP,
	// search indexing, and referral processing failures only get logged.
	if err := s.xpService.AwardXP(ctx, user.ID, xp.ActionSignup, ""); err != nil {
		log.Printf("Failed to award signup XP to user %s: %v", user.ID, err)
	}

	if s.searchService != nil {
		indexed := *user
		indexed.Profile = profile
		if err := s.searchService.IndexUser(&indexed); err != nil {
			log.Printf("Failed to index user %s in search: %v", user.ID, err)
		}
	}

	if referrerID != uuid.Nil {
		if _, err := s.referralService.CreateReferral(ctx, referrerID, user.ID, code); err != nil {
			log.Printf("Failed to create referral for user %s with code %q: %v", user.ID, code, err)
		}
	}

	return s.buildAuthResponse(ctx, user.ID)
}

func (s *authService) Login(ctx context.Context, input userDto.LoginInput) (*userDto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(http.StatusUnauthorized, "invalid email or password", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperror.New(http.StatusUnauthorized, "invalid email or password", apperror.ErrUnauthorized)
	}

	if err := s.xpService.AwardDailyLoginXP(ctx, user.ID); err != nil {
		log.Printf("Failed to award daily login XP to user %s: %v", user.ID, err)
	}

	return s.buildAuthResponse(ctx, user.ID)
}

func (s *authService) GetMe(ctx context.Context, userID uuid.UUID) (*userDto.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	resp := userDto.ToUserResponse(user)
	return &resp, nil
}

func (s *authService) buildAuthResponse(ctx context.Context, userID uuid.UUID) (*userDto.AuthResponse, error) {
	// Re-read so the response reflects XP and level granted during the flow.
	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		return nil, err
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &userDto.AuthResponse{
		Token: token,
		User:  userDto.ToUserResponse(user),
	}, nil
}

func (s *authService) generateToken(user *entity.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
