package service

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"devsocial.app/backend/internal/entity"
	statsRepo "devsocial.app/backend/internal/modules/leaderboard/repository"
	leaderboard "devsocial.app/backend/internal/modules/leaderboard/service"
	profileDto "devsocial.app/backend/internal/modules/profile/dto"
	search "devsocial.app/backend/internal/modules/search/service"
	userRepo "devsocial.app/backend/internal/modules/user/repository"
	"devsocial.app/backend/pkg/apperror"
	"devsocial.app/backend/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const avatarFolder = "avatars"

type ProfileService interface {
	GetProfileByUsername(ctx context.Context, username string) (*profileDto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput) (*profileDto.ProfileResponse, error)
	// UpdateAvatar replaces the stored avatar; the previous image is deleted
	// from storage on a best-effort basis.
	UpdateAvatar(ctx context.Context, userID uuid.UUID, file io.Reader, fileName string) (string, error)
}

type profileService struct {
	userRepo      userRepo.UserRepository
	statsRepo     statsRepo.StatsRepository
	searchService search.SearchService
	imageStorage  storage.ImageStorage
}

func NewProfileService(
	userRepo userRepo.UserRepository,
	statsRepo statsRepo.StatsRepository,
	searchService search.SearchService,
	imageStorage storage.ImageStorage,
) ProfileService {
	return &profileService{
		userRepo:      userRepo,
		statsRepo:     statsRepo,
		searchService: searchService,
		imageStorage:  imageStorage,
	}
}

func (s *profileService) GetProfileByUsername(ctx context.Context, username string) (*profileDto.ProfileResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	return s.buildProfile(ctx, user), nil
}

func (s *profileService) buildProfile(ctx context.Context, user *entity.User) *profileDto.ProfileResponse {
	resp := &profileDto.ProfileResponse{
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		Points:    user.Points,
		Level:     user.Level,
		Rank:      leaderboard.GetRankStatus(user.Points),
		JoinedAt:  user.CreatedAt,
	}
	if user.Profile != nil {
		resp.DisplayName = user.Profile.DisplayName
		resp.Bio = user.Profile.Bio
		resp.Location = user.Profile.Location
	}

	// A missing stats row just means no tracked activity yet.
	stats, err := s.statsRepo.GetByUserID(ctx, user.ID)
	if err == nil {
		resp.Stats = profileDto.ActivityStats{
			TotalReferrals: stats.TotalReferrals,
			TotalPosts:     stats.TotalPosts,
			TotalComments:  stats.TotalComments,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Failed to load stats for user %s: %v", user.ID, err)
	}

	return resp
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput) (*profileDto.ProfileResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	profile := user.Profile
	if profile == nil {
		profile = &entity.Profile{UserID: user.ID}
	}

	if input.DisplayName != nil {
		profile.DisplayName = *input.DisplayName
	}
	if input.Bio != nil {
		profile.Bio = input.Bio
	}
	if input.Location != nil {
		profile.Location = input.Location
	}

	if err := s.userRepo.Update(ctx, user, profile); err != nil {
		return nil, err
	}
	user.Profile = profile

	s.reindex(user)

	return s.buildProfile(ctx, user), nil
}

func (s *profileService) UpdateAvatar(ctx context.Context, userID uuid.UUID, file io.Reader, fileName string) (string, error) {
	if s.imageStorage == nil {
		return "", apperror.New(http.StatusServiceUnavailable, "avatar storage is not configured", nil)
	}

	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperror.ErrNotFound
		}
		return "", err
	}

	url, err := s.imageStorage.UploadImage(ctx, file, avatarFolder, fileName)
	if err != nil {
		return "", err
	}

	oldURL := user.AvatarURL
	user.AvatarURL = &url
	if err := s.userRepo.Update(ctx, user, nil); err != nil {
		return "", err
	}

	if oldURL != nil && *oldURL != "" {
		if err := s.imageStorage.DeleteImage(ctx, *oldURL); err != nil {
			log.Printf("Failed to delete previous avatar for user %s: %v", userID, err)
		}
	}

	s.reindex(user)

	return url, nil
}

func (s *profileService) reindex(user *entity.User) {
	if s.searchService == nil {
		return
	}
	if err := s.searchService.IndexUser(user); err != nil {
		log.Printf("Failed to reindex user %s in search: %v", user.ID, err)
	}
}
