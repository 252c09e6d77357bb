package service

// RankStatus describes where a user sits on the all-time rank ladder. The
// rank never demotes: it is always derived from total accumulated points.
type RankStatus struct {
	RankName      string  `json:"rank_name"`
	NextRank      string  `json:"next_rank"`
	CurrentPoints int     `json:"current_points"`
	TargetPoints  int     `json:"target_points"`
	Progress      float64 `json:"progress"` // 0-100 toward next rank
}

// Rank thresholds (all-time points)
const (
	PointsLegend      = 20000
	PointsVeteran     = 8000
	PointsExpert      = 3000
	PointsContributor = 600
	PointsRegular     = 100
	PointsNewcomer    = 0
)

func GetRankStatus(allTimePoints int) RankStatus {
	var status RankStatus
	status.CurrentPoints = allTimePoints

	switch {
	case allTimePoints >= PointsLegend:
		status.RankName = "Legend"
		status.NextRank = "Max Level"
		status.TargetPoints = PointsLegend
		status.Progress = 100

	case allTimePoints >= PointsVeteran:
		status.RankName = "Veteran"
		status.NextRank = "Legend"
		status.TargetPoints = PointsLegend
		status.Progress = (float64(allTimePoints) / float64(PointsLegend)) * 100

	case allTimePoints >= PointsExpert:
		status.RankName = "Expert"
		status.NextRank = "Veteran"
		status.TargetPoints = PointsVeteran
		status.Progress = (float64(allTimePoints) / float64(PointsVeteran)) * 100

	case allTimePoints >= PointsContributor:
		status.RankName = "Contributor"
		status.NextRank = "Expert"
		status.TargetPoints = PointsExpert
		status.Progress = (float64(allTimePoints) / float64(PointsExpert)) * 100

	case allTimePoints >= PointsRegular:
		status.RankName = "Regular"
		status.NextRank = "Contributor"
		status.TargetPoints = PointsContributor
		status.Progress = (float64(allTimePoints) / float64(PointsContributor)) * 100

	default:
		status.RankName = "Newcomer"
		status.NextRank = "Regular"
		status.TargetPoints = PointsRegular
		status.Progress = (float64(allTimePoints) / float64(PointsRegular)) * 100
	}

	return status
}
