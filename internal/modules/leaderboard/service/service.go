package service

import (
	"context"

	"devsocial.app/backend/internal/modules/leaderboard/dto"
	"devsocial.app/backend/internal/modules/leaderboard/repository"
)

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error)
}

type leaderboardService struct {
	repo repository.StatsRepository
}

func NewLeaderboardService(repo repository.StatsRepository) LeaderboardService {
	return &leaderboardService{repo: repo}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	users, err := s.repo.TopUsersByPoints(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.LeaderboardEntry, 0, len(users))
	for i, user := range users {
		entries = append(entries, dto.LeaderboardEntry{
			Username:  user.Username,
			AvatarURL: user.AvatarURL,
			Points:    user.Points,
			Level:     user.Level,
			Position:  i + 1,
			RankName:  GetRankStatus(user.Points).RankName,
		})
	}

	return entries, nil
}
