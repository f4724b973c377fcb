package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/history"
)

// MinSeasonGames is the minimum prior season games a player needs before a
// feature vector is produced. Below this the rolling windows are too thin to
// say anything.
const MinSeasonGames = 5

// Star teammate thresholds.
const (
	StarMinutesFloor = 15.0
	StarPPGThreshold = 20.0
)

// TrainingRow is one featurized historical player-game.
type TrainingRow struct {
	PlayerID int64
	GameID   int64
	GameDate time.Time
	Season   string
	Features []float64 // schema order
	Targets  domain.StatLine
}

// BatchBuilder featurizes the full history into a training table. Games fold
// into running team and player state in date order, so every row sees only
// what preceded it.
type BatchBuilder struct {
	logs    *history.GameLogRepository
	games   *history.GameRepository
	players *history.PlayerRepository
	teams   *history.TeamRepository
	log     zerolog.Logger
}

// NewBatchBuilder creates a batch feature builder
func NewBatchBuilder(logs *history.GameLogRepository, games *history.GameRepository,
	players *history.PlayerRepository, teams *history.TeamRepository, log zerolog.Logger) *BatchBuilder {
	return &BatchBuilder{
		logs:    logs,
		games:   games,
		players: players,
		teams:   teams,
		log:     log.With().Str("component", "feature_batch").Logger(),
	}
}

// playerState is one player's accumulated history while sweeping dates.
type playerState struct {
	seasonLogs   map[string][]domain.PlayerGameLog // chronological per season
	careerDates  []time.Time                       // ascending, all seasons
	careerGames  int
	playoffGames int
	playoffPts   float64
	regularPts   float64
	regularGames int
	withoutStar  map[string]int // season -> games played with star sidelined
}

func newPlayerState() *playerState {
	return &playerState{
		seasonLogs:  make(map[string][]domain.PlayerGameLog),
		withoutStar: make(map[string]int),
	}
}

// starInfo is one star-level teammate and the games they materially played.
type starInfo struct {
	playerID int64
	ppg      float64
	played   map[int64]struct{} // game ids with >= StarMinutesFloor minutes
}

// Build featurizes every completed player-game with enough prior history and
// derives the league means the online path will fall back to.
func (b *BatchBuilder) Build() ([]TrainingRow, *Means, error) {
	allLogs, err := b.logs.AllCompleted()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load game logs: %w", err)
	}
	allGames, err := b.games.AllCompleted()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load games: %w", err)
	}
	playersByID, err := b.players.All()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load players: %w", err)
	}
	teamsByID, err := b.teams.All()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load teams: %w", err)
	}

	positionOf := func(playerID int64) domain.Position {
		return domain.ClassifyPosition(playersByID[playerID].Position)
	}

	logsByGame := make(map[int64][]domain.PlayerGameLog)
	for _, l := range allLogs {
		logsByGame[l.GameID] = append(logsByGame[l.GameID], l)
	}

	seasonStarts := seasonStartDates(allGames)
	stars := findStars(allLogs)

	teamState := make(map[string]map[int64]*teamAccum) // season -> team -> accum
	teamOf := func(season string, teamID int64) *teamAccum {
		byTeam, ok := teamState[season]
		if !ok {
			byTeam = make(map[int64]*teamAccum)
			teamState[season] = byTeam
		}
		a, ok := byTeam[teamID]
		if !ok {
			a = newTeamAccum()
			byTeam[teamID] = a
		}
		return a
	}

	states := make(map[int64]*playerState)
	stateOf := func(playerID int64) *playerState {
		s, ok := states[playerID]
		if !ok {
			s = newPlayerState()
			states[playerID] = s
		}
		return s
	}

	var rows []TrainingRow

	// Sweep completed games date by date: featurize everything on the date
	// from prior state, then fold the date's games in.
	for start := 0; start < len(allGames); {
		end := start
		for end < len(allGames) && allGames[end].GameDate.Equal(allGames[start].GameDate) {
			end++
		}
		dateGames := allGames[start:end]

		for _, game := range dateGames {
			for _, line := range logsByGame[game.GameID] {
				row, ok := b.buildRow(line, game, stateOf(line.PlayerID), teamOf,
					playersByID, teamsByID, stars, seasonStarts)
				if ok {
					rows = append(rows, row)
				}
			}
		}

		for _, game := range dateGames {
			b.foldGame(game, logsByGame[game.GameID], stateOf, teamOf, positionOf, stars)
		}

		start = end
	}

	means := imputeAndSummarize(rows)
	b.log.Info().
		Int("rows", len(rows)).
		Int("columns", len(Schema())).
		Msg("Training table built")
	return rows, means, nil
}

func (b *BatchBuilder) buildRow(line domain.PlayerGameLog, game domain.Game, state *playerState,
	teamOf func(string, int64) *teamAccum, playersByID map[int64]domain.Player,
	teamsByID map[int64]domain.Team, stars map[string][]starInfo,
	seasonStarts map[string]time.Time) (TrainingRow, bool) {

	seasonLogs := state.seasonLogs[game.Season]
	if len(seasonLogs) < MinSeasonGames {
		return TrainingRow{}, false
	}

	v := NewVector()

	prior := make([]domain.PlayerGameLog, len(seasonLogs))
	for i, l := range seasonLogs {
		prior[len(seasonLogs)-1-i] = l
	}
	computeRolling(v, prior)

	guard, forward, center := domain.ClassifyPosition(playersByID[line.PlayerID].Position).OneHot()
	v.Set("position_guard", guard)
	v.Set("position_forward", forward)
	v.Set("position_center", center)

	isHome := game.HomeTeamID == line.TeamID
	v.SetFlag("is_home", isHome)

	opponentID := game.HomeTeamID
	if isHome {
		opponentID = game.AwayTeamID
	}

	pos := domain.ClassifyPosition(playersByID[line.PlayerID].Position)
	setTeamContext(v, teamOf(game.Season, line.TeamID), teamOf(game.Season, opponentID), pos)

	b.setStarFeatures(v, line, game, state, stars)
	setPlayoffFeatures(v, game, state)
	setScheduleFeatures(v, game.GameDate, state.careerDates)
	setSeasonFeatures(v, game, len(seasonLogs), teamOf(game.Season, line.TeamID).games, seasonStarts)
	setTravelFeatures(v, teamsByID[line.TeamID], teamsByID[opponentID], isHome)
	setBreakFeatures(v, game.GameDate, game.Season)
	setVenueFeatures(v, teamsByID[opponentID], isHome)

	return TrainingRow{
		PlayerID: line.PlayerID,
		GameID:   line.GameID,
		GameDate: game.GameDate,
		Season:   game.Season,
		Features: v.OrderedOrNaN(),
		Targets: domain.StatLine{
			Points:            line.Points,
			Rebounds:          line.Rebounds,
			Assists:           line.Assists,
			Steals:            line.Steals,
			Blocks:            line.Blocks,
			Turnovers:         line.Turnovers,
			ThreePointersMade: line.ThreePointersMade,
		},
	}, true
}

func (b *BatchBuilder) setStarFeatures(v *Vector, line domain.PlayerGameLog, game domain.Game,
	state *playerState, stars map[string][]starInfo) {

	v.SetFlag("star_teammate_out", false)
	v.Set("star_teammate_ppg", 0)
	v.Set("games_without_star", float64(state.withoutStar[game.Season]))

	for _, star := range stars[starKey(game.Season, line.TeamID)] {
		if star.playerID == line.PlayerID {
			continue
		}
		if _, played := star.played[game.GameID]; !played {
			v.SetFlag("star_teammate_out", true)
			v.Set("star_teammate_ppg", star.ppg)
			break
		}
	}
}

// foldGame advances player and team state past one completed game.
func (b *BatchBuilder) foldGame(game domain.Game, lines []domain.PlayerGameLog,
	stateOf func(int64) *playerState, teamOf func(string, int64) *teamAccum,
	positionOf func(int64) domain.Position, stars map[string][]starInfo) {

	var home, away []domain.PlayerGameLog
	for _, l := range lines {
		if l.TeamID == game.HomeTeamID {
			home = append(home, l)
		} else {
			away = append(away, l)
		}
	}
	teamOf(game.Season, game.HomeTeamID).addGame(home, away, positionOf)
	teamOf(game.Season, game.AwayTeamID).addGame(away, home, positionOf)

	for _, l := range lines {
		s := stateOf(l.PlayerID)
		s.seasonLogs[game.Season] = append(s.seasonLogs[game.Season], l)
		s.careerDates = append(s.careerDates, game.GameDate)
		s.careerGames++
		if game.GameType == domain.GameTypePlayoff {
			s.playoffGames++
			s.playoffPts += l.Points
		} else {
			s.regularGames++
			s.regularPts += l.Points
		}

		for _, star := range stars[starKey(game.Season, l.TeamID)] {
			if star.playerID == l.PlayerID {
				continue
			}
			if _, played := star.played[game.GameID]; !played {
				s.withoutStar[game.Season]++
				break
			}
		}
	}
}

// findStars identifies star-level players per team-season: at least
// StarPPGThreshold points averaged over games with StarMinutesFloor minutes.
func findStars(allLogs []domain.PlayerGameLog) map[string][]starInfo {
	type agg struct {
		points float64
		played map[int64]struct{}
	}
	byKey := make(map[string]map[int64]*agg)
	for _, l := range allLogs {
		if l.MinutesPlayed < StarMinutesFloor {
			continue
		}
		key := starKey(l.Season, l.TeamID)
		byPlayer, ok := byKey[key]
		if !ok {
			byPlayer = make(map[int64]*agg)
			byKey[key] = byPlayer
		}
		a, ok := byPlayer[l.PlayerID]
		if !ok {
			a = &agg{played: make(map[int64]struct{})}
			byPlayer[l.PlayerID] = a
		}
		a.points += l.Points
		a.played[l.GameID] = struct{}{}
	}

	stars := make(map[string][]starInfo)
	for key, byPlayer := range byKey {
		for playerID, a := range byPlayer {
			games := len(a.played)
			if games == 0 {
				continue
			}
			ppg := a.points / float64(games)
			if ppg >= StarPPGThreshold {
				stars[key] = append(stars[key], starInfo{playerID: playerID, ppg: ppg, played: a.played})
			}
		}
		sort.Slice(stars[key], func(i, j int) bool {
			return stars[key][i].ppg > stars[key][j].ppg
		})
	}
	return stars
}

func starKey(season string, teamID int64) string {
	return fmt.Sprintf("%s/%d", season, teamID)
}

func seasonStartDates(games []domain.Game) map[string]time.Time {
	starts := make(map[string]time.Time)
	for _, g := range games {
		if cur, ok := starts[g.Season]; !ok || g.GameDate.Before(cur) {
			starts[g.Season] = g.GameDate
		}
	}
	return starts
}

// setTeamContext fills the team, opponent, and positional matchup columns
// from accumulated state. Teams with no prior games leave their columns unset
// for downstream imputation.
func setTeamContext(v *Vector, team, opp *teamAccum, pos domain.Position) {
	if r, ok := team.ratings(); ok {
		v.Set("team_off_rating", r.OffensiveRating)
		v.Set("team_def_rating", r.DefensiveRating)
		v.Set("team_pace", r.Pace)
	}
	if r, ok := opp.ratings(); ok {
		v.Set("opp_off_rating", r.OffensiveRating)
		v.Set("opp_def_rating", r.DefensiveRating)
		v.Set("opp_pace", r.Pace)
	}

	if opp.games > 0 {
		d := opp.defense()
		v.Set("opp_fg_pct_allowed", d.OppFieldGoalPct)
		v.Set("opp_three_pct_allowed", d.OppThreePointPct)
		v.Set("opp_turnovers_per_game", d.TurnoversPerGame)
		v.Set("opp_steals_per_game", d.StealsPerGame)
	}

	if pd, ok := opp.versusPosition(pos); ok {
		v.Set("opp_pts_allowed_to_position", pd.PointsAllowed)
		v.Set("opp_reb_allowed_to_position", pd.ReboundsAllowed)
		v.Set("opp_ast_allowed_to_position", pd.AssistsAllowed)
		v.Set("opp_blk_allowed_to_position", pd.BlocksAllowed)
		v.Set("opp_three_allowed_to_position", pd.ThreePointersAllowed)
		v.Set("opp_tov_forced_from_position", pd.TurnoversForced)
		v.Set("opp_stl_allowed_to_position", pd.StealsAllowed)
	}

	if pp, ok := team.ownPosition(pos); ok {
		v.Set("team_position_turnovers", pp.TurnoversPerGame)
		v.Set("team_position_steals", pp.StealsPerGame)
	}
}

func setPlayoffFeatures(v *Vector, game domain.Game, state *playerState) {
	v.SetFlag("is_playoff", game.GameType == domain.GameTypePlayoff)
	v.Set("playoff_games_career", float64(state.playoffGames))

	var boost float64
	if state.playoffGames > 0 && state.regularGames > 0 {
		boost = state.playoffPts/float64(state.playoffGames) - state.regularPts/float64(state.regularGames)
	}
	v.Set("playoff_performance_boost", boost)
}

func setScheduleFeatures(v *Vector, gameDate time.Time, priorDates []time.Time) {
	rest := DaysRest(gameDate, priorDates)
	v.Set("days_rest", rest)
	v.SetFlag("is_back_to_back", rest == 1)

	games7 := GamesWithinDays(gameDate, priorDates, 7)
	v.Set("games_in_last_3_days", GamesWithinDays(gameDate, priorDates, 3))
	v.Set("games_in_last_7_days", games7)
	v.SetFlag("is_heavy_schedule", games7 >= 4)
	v.SetFlag("is_well_rested", rest >= 3)
	v.Set("consecutive_games", ConsecutiveGames(gameDate, priorDates))
}

func setSeasonFeatures(v *Vector, game domain.Game, playerSeasonGames, teamSeasonGames int,
	seasonStarts map[string]time.Time) {

	if start, ok := seasonStarts[game.Season]; ok {
		v.Set("season_progress", SeasonProgress(game.GameDate, start))
	} else {
		v.Set("season_progress", 0)
	}
	v.Set("games_played_season", float64(playerSeasonGames))

	early, mid, late := SeasonPhase(playerSeasonGames)
	v.SetFlag("is_early_season", early)
	v.SetFlag("is_mid_season", mid)
	v.SetFlag("is_late_season", late)

	v.Set("games_remaining", GamesRemaining(teamSeasonGames))
}

func setTravelFeatures(v *Vector, team, opp domain.Team, isHome bool) {
	diff := TimezoneOffset(opp.Timezone) - TimezoneOffset(team.Timezone)
	v.Set("tz_difference", diff)
	v.SetFlag("west_to_east_travel", !isHome && diff > 0)
	v.SetFlag("east_to_west_travel", !isHome && diff < 0)
}

func setBreakFeatures(v *Vector, gameDate time.Time, season string) {
	days := DaysSinceAllStarBreak(gameDate, season)
	v.Set("days_since_allstar_break", days)
	v.SetFlag("post_allstar_bounce", PostAllStarBounce(days))
}

func setVenueFeatures(v *Vector, opp domain.Team, isHome bool) {
	var altitude float64
	if opp.ArenaAltitude != nil {
		altitude = *opp.ArenaAltitude
	}
	v.Set("arena_altitude", altitude)
	v.SetFlag("altitude_away_game", !isHome && altitude > 3000)
}

// imputeAndSummarize replaces unset (NaN) cells with their column mean over
// the observed rows, then captures league means for serving-time fallbacks.
func imputeAndSummarize(rows []TrainingRow) *Means {
	cols := Schema()

	colMeans := make([]float64, len(cols))
	for i := range cols {
		var sum float64
		var n int
		for _, row := range rows {
			if !math.IsNaN(row.Features[i]) {
				sum += row.Features[i]
				n++
			}
		}
		if n > 0 {
			colMeans[i] = sum / float64(n)
		}
	}

	for _, row := range rows {
		for i := range cols {
			if math.IsNaN(row.Features[i]) {
				row.Features[i] = colMeans[i]
			}
		}
	}

	featureRows := make([][]float64, len(rows))
	for i, row := range rows {
		featureRows[i] = row.Features
	}
	return ComputeMeans(featureRows)
}
