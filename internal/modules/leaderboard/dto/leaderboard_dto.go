package dto

type LeaderboardEntry struct {
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
	Points    int     `json:"points"`
	Level     int     `json:"level"`
	Position  int     `json:"position"` // 1-based
	RankName  string  `json:"rank_name"`
}
