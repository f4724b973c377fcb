package predictions

import (
	"time"

	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/features"
)

// starAbsenceBoosts finds the team's stars currently ruled Out and collects
// the recorded production shifts for their dependent teammates. The returned
// map keys teammate ids to the points/rebounds/assists deltas to add.
func (s *Service) starAbsenceBoosts(teamID int64, season string, date time.Time) (map[int64]domain.StatLine, error) {
	stars, err := s.logs.TeamStars(teamID, season, date, 0,
		features.StarMinutesFloor, features.StarPPGThreshold)
	if err != nil {
		return nil, err
	}

	boosts := make(map[int64]domain.StatLine)
	for _, star := range stars {
		out, err := s.injuries.IsOut(star.PlayerID, date)
		if err != nil {
			return nil, err
		}
		if !out {
			continue
		}

		deps, err := s.dependencies.ForStar(star.PlayerID, season)
		if err != nil {
			return nil, err
		}
		for playerID, dep := range deps {
			b := boosts[playerID]
			b.Points += dep.PPGBoost
			b.Rebounds += dep.RPGBoost
			b.Assists += dep.APGBoost
			boosts[playerID] = b
		}
	}
	return boosts, nil
}
