// Package roster tracks availability dynamics: how players produce when a
// star teammate sits, and when injured players are back on the floor.
package roster

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/features"
	"github.com/hoopsight/hoopsight/internal/modules/history"
)

// Materiality thresholds for recording a dependency. Small samples and small
// deltas are noise, not signal.
const (
	MinGamesWithoutStar = 3
	MinPointsBoost      = 2.0
)

// Analyzer derives teammate dependency records from a season's game lines.
type Analyzer struct {
	logs *history.GameLogRepository
	deps *history.DependencyRepository
	log  zerolog.Logger
}

// NewAnalyzer creates a dependency analyzer
func NewAnalyzer(logs *history.GameLogRepository, deps *history.DependencyRepository, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		logs: logs,
		deps: deps,
		log:  log.With().Str("component", "dependency_analyzer").Logger(),
	}
}

// playerAgg accumulates one player's meaningful-minutes games for a team.
type playerAgg struct {
	games            map[int64]struct{}
	points, rebounds float64
	assists          float64
}

// ComputeSeason rebuilds dependency records for one season, returning how
// many records were written. Only splits with enough star-less games and a
// material scoring delta persist.
func (a *Analyzer) ComputeSeason(season string) (int, error) {
	lines, err := a.logs.SeasonCompleted(season)
	if err != nil {
		return 0, fmt.Errorf("failed to load season lines: %w", err)
	}

	// Meaningful-minutes aggregates per team.
	byTeam := make(map[int64]map[int64]*playerAgg)
	linesByPlayer := make(map[int64][]domain.PlayerGameLog)
	for _, l := range lines {
		if l.MinutesPlayed < features.StarMinutesFloor {
			continue
		}
		byPlayer, ok := byTeam[l.TeamID]
		if !ok {
			byPlayer = make(map[int64]*playerAgg)
			byTeam[l.TeamID] = byPlayer
		}
		agg, ok := byPlayer[l.PlayerID]
		if !ok {
			agg = &playerAgg{games: make(map[int64]struct{})}
			byPlayer[l.PlayerID] = agg
		}
		agg.games[l.GameID] = struct{}{}
		agg.points += l.Points
		agg.rebounds += l.Rebounds
		agg.assists += l.Assists

		linesByPlayer[l.PlayerID] = append(linesByPlayer[l.PlayerID], l)
	}

	written := 0
	for teamID, byPlayer := range byTeam {
		for starID, starAgg := range byPlayer {
			if len(starAgg.games) == 0 {
				continue
			}
			if starAgg.points/float64(len(starAgg.games)) < features.StarPPGThreshold {
				continue
			}

			for teammateID := range byPlayer {
				if teammateID == starID {
					continue
				}
				dep, ok := a.splitForTeammate(teammateID, teamID, season, starAgg.games, linesByPlayer)
				if !ok {
					continue
				}
				dep.TeammateID = starID
				if err := a.deps.Upsert(dep); err != nil {
					return written, err
				}
				written++
			}
		}
	}

	a.log.Info().Str("season", season).Int("records", written).Msg("Dependency records rebuilt")
	return written, nil
}

// splitForTeammate partitions a teammate's meaningful-minutes games by the
// star's presence and keeps the split only when it is material.
func (a *Analyzer) splitForTeammate(teammateID, teamID int64, season string,
	starGames map[int64]struct{}, linesByPlayer map[int64][]domain.PlayerGameLog) (domain.TeammateDependency, bool) {

	var with, without struct {
		games                     int
		points, rebounds, assists float64
	}

	for _, l := range linesByPlayer[teammateID] {
		if l.TeamID != teamID {
			continue
		}
		if _, present := starGames[l.GameID]; present {
			with.games++
			with.points += l.Points
			with.rebounds += l.Rebounds
			with.assists += l.Assists
		} else {
			without.games++
			without.points += l.Points
			without.rebounds += l.Rebounds
			without.assists += l.Assists
		}
	}

	if without.games < MinGamesWithoutStar || with.games == 0 {
		return domain.TeammateDependency{}, false
	}

	ppgWith := with.points / float64(with.games)
	ppgWithout := without.points / float64(without.games)
	if math.Abs(ppgWithout-ppgWith) < MinPointsBoost {
		return domain.TeammateDependency{}, false
	}

	rpgWith := with.rebounds / float64(with.games)
	rpgWithout := without.rebounds / float64(without.games)
	apgWith := with.assists / float64(with.games)
	apgWithout := without.assists / float64(without.games)

	return domain.TeammateDependency{
		PlayerID:     teammateID,
		Season:       season,
		GamesWith:    with.games,
		GamesWithout: without.games,
		PPGWith:      ppgWith,
		PPGAway:      ppgWithout,
		PPGBoost:     ppgWithout - ppgWith,
		RPGWith:      rpgWith,
		RPGAway:      rpgWithout,
		RPGBoost:     rpgWithout - rpgWith,
		APGWith:      apgWith,
		APGAway:      apgWithout,
		APGBoost:     apgWithout - apgWith,
	}, true
}
