package service

import (
	"context"
	"errors"
	"log"

	referralDto "devsocial.app/backend/internal/modules/referral/dto"
	referral "devsocial.app/backend/internal/modules/referral/service"
	search "devsocial.app/backend/internal/modules/search/service"
	userDto "devsocial.app/backend/internal/modules/user/dto"
	userRepo "devsocial.app/backend/internal/modules/user/repository"
	"devsocial.app/backend/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlatformOverview struct {
	TotalUsers int64                              `json:"total_users"`
	Referrals  map[string]referralDto.StatusStats `json:"referrals"`
}

type AdminService interface {
	ListUsers(ctx context.Context) ([]userDto.UserResponse, error)
	DeleteUser(ctx context.Context, actorID, targetID uuid.UUID) error
	// GetOverview reports platform-wide totals, including the global referral
	// breakdown by status.
	GetOverview(ctx context.Context) (*PlatformOverview, error)
}

type adminService struct {
	userRepo        userRepo.UserRepository
	referralService referral.ReferralService
	searchService   search.SearchService
}

func NewAdminService(
	userRepo userRepo.UserRepository,
	referralService referral.ReferralService,
	searchService search.SearchService,
) AdminService {
	return &adminService{
		userRepo:        userRepo,
		referralService: referralService,
		searchService:   searchService,
	}
}

func (s *adminService) ListUsers(ctx context.Context) ([]userDto.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]userDto.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, userDto.ToUserResponse(user))
	}
	return out, nil
}

func (s *adminService) DeleteUser(ctx context.Context, actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return apperror.ErrBadRequest
	}

	if _, err := s.userRepo.FindByID(ctx, targetID.String()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}

	if err := s.userRepo.Delete(ctx, targetID.String()); err != nil {
		return err
	}

	if s.searchService != nil {
		if err := s.searchService.DeleteUser(targetID.String()); err != nil {
			log.Printf("Failed to remove user %s from search index: %v", targetID, err)
		}
	}

	return nil
}

func (s *adminService) GetOverview(ctx context.Context) (*PlatformOverview, error) {
	total, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	referrals, err := s.referralService.GetGlobalOverview(ctx)
	if err != nil {
		return nil, err
	}

	return &PlatformOverview{
		TotalUsers: total,
		Referrals:  referrals,
	}, nil
}
