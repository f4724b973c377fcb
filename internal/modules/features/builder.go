package features

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/history"
	"github.com/hoopsight/hoopsight/internal/modules/teamcontext"
)

// recentWindow is how many recent games the online path loads; it covers the
// largest rolling window.
const recentWindow = 20

// Builder assembles one feature vector for an upcoming player-game, from
// stored history strictly before the game date. It mirrors the batch builder
// column for column.
type Builder struct {
	logs     *history.GameLogRepository
	games    *history.GameRepository
	players  *history.PlayerRepository
	teams    *history.TeamRepository
	injuries *history.InjuryRepository
	context  *teamcontext.Calculator
	log      zerolog.Logger
}

// NewBuilder creates an online feature builder
func NewBuilder(logs *history.GameLogRepository, games *history.GameRepository,
	players *history.PlayerRepository, teams *history.TeamRepository,
	injuries *history.InjuryRepository, context *teamcontext.Calculator,
	log zerolog.Logger) *Builder {
	return &Builder{
		logs:     logs,
		games:    games,
		players:  players,
		teams:    teams,
		injuries: injuries,
		context:  context,
		log:      log.With().Str("component", "feature_builder").Logger(),
	}
}

// Result carries a built vector plus the recent games behind it, which the
// fallback layer and confidence scoring reuse.
type Result struct {
	Vector *Vector
	Recent []domain.PlayerGameLog // newest first
}

// Build produces the feature vector for a player in an upcoming game. It
// returns (nil, nil) when the player lacks the minimum prior season games;
// such players are skipped rather than predicted from thin air.
func (b *Builder) Build(playerID int64, game domain.Game) (*Result, error) {
	player, err := b.players.Get(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load player %d: %w", playerID, err)
	}
	if player == nil {
		return nil, fmt.Errorf("unknown player %d", playerID)
	}

	recent, err := b.logs.RecentLogs(playerID, game.Season, game.GameDate, recentWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent games: %w", err)
	}
	if len(recent) < MinSeasonGames {
		return nil, nil
	}

	teamID := recent[0].TeamID
	if player.TeamID != 0 {
		teamID = player.TeamID
	}
	isHome := game.HomeTeamID == teamID
	opponentID := game.HomeTeamID
	if isHome {
		opponentID = game.AwayTeamID
	}

	v := NewVector()
	computeRolling(v, recent)

	pos := domain.ClassifyPosition(player.Position)
	guard, forward, center := pos.OneHot()
	v.Set("position_guard", guard)
	v.Set("position_forward", forward)
	v.Set("position_center", center)
	v.SetFlag("is_home", isHome)

	if err := b.setTeamContext(v, teamID, opponentID, pos, game); err != nil {
		return nil, err
	}
	if err := b.setStarFeatures(v, playerID, teamID, game); err != nil {
		return nil, err
	}
	if err := b.setPlayoffFeatures(v, playerID, game); err != nil {
		return nil, err
	}

	priorDates, err := b.logs.SeasonGameDates(playerID, game.Season, game.GameDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load season game dates: %w", err)
	}
	setScheduleFeatures(v, game.GameDate, priorDates)

	if err := b.setSeasonFeatures(v, teamID, len(priorDates), game); err != nil {
		return nil, err
	}
	if err := b.setTravelAndVenue(v, teamID, opponentID, isHome); err != nil {
		return nil, err
	}
	setBreakFeatures(v, game.GameDate, game.Season)

	return &Result{Vector: v, Recent: recent}, nil
}

func (b *Builder) setTeamContext(v *Vector, teamID, opponentID int64, pos domain.Position, game domain.Game) error {
	if r, ok, err := b.context.Ratings(teamID, game.Season, game.GameDate); err != nil {
		return err
	} else if ok {
		v.Set("team_off_rating", r.OffensiveRating)
		v.Set("team_def_rating", r.DefensiveRating)
		v.Set("team_pace", r.Pace)
	}
	if r, ok, err := b.context.Ratings(opponentID, game.Season, game.GameDate); err != nil {
		return err
	} else if ok {
		v.Set("opp_off_rating", r.OffensiveRating)
		v.Set("opp_def_rating", r.DefensiveRating)
		v.Set("opp_pace", r.Pace)
	}

	d, err := b.context.Defense(opponentID, game.Season, game.GameDate)
	if err != nil {
		return err
	}
	// Per-game rates carry defaults even without games; the percentage
	// columns stay unset so league means fill them.
	v.Set("opp_turnovers_per_game", d.TurnoversPerGame)
	v.Set("opp_steals_per_game", d.StealsPerGame)
	if d.Games > 0 {
		v.Set("opp_fg_pct_allowed", d.OppFieldGoalPct)
		v.Set("opp_three_pct_allowed", d.OppThreePointPct)
	}

	pd, err := b.context.VersusPosition(opponentID, pos, game.Season, game.GameDate)
	if err != nil {
		return err
	}
	if pd.Games > 0 {
		v.Set("opp_pts_allowed_to_position", pd.PointsAllowed)
		v.Set("opp_reb_allowed_to_position", pd.ReboundsAllowed)
		v.Set("opp_ast_allowed_to_position", pd.AssistsAllowed)
		v.Set("opp_blk_allowed_to_position", pd.BlocksAllowed)
		v.Set("opp_three_allowed_to_position", pd.ThreePointersAllowed)
		v.Set("opp_tov_forced_from_position", pd.TurnoversForced)
		v.Set("opp_stl_allowed_to_position", pd.StealsAllowed)
	}

	pp, err := b.context.OwnPosition(teamID, pos, game.Season, game.GameDate)
	if err != nil {
		return err
	}
	if pp.Games > 0 {
		v.Set("team_position_turnovers", pp.TurnoversPerGame)
		v.Set("team_position_steals", pp.StealsPerGame)
	}
	return nil
}

func (b *Builder) setStarFeatures(v *Vector, playerID, teamID int64, game domain.Game) error {
	v.SetFlag("star_teammate_out", false)
	v.Set("star_teammate_ppg", 0)
	v.Set("games_without_star", 0)

	stars, err := b.logs.TeamStars(teamID, game.Season, game.GameDate, playerID, StarMinutesFloor, StarPPGThreshold)
	if err != nil {
		return fmt.Errorf("failed to load team stars: %w", err)
	}

	for _, star := range stars {
		out, err := b.injuries.IsOut(star.PlayerID, game.GameDate)
		if err != nil {
			return fmt.Errorf("failed to check star availability: %w", err)
		}
		if !out {
			continue
		}
		without, err := b.logs.GamesWithoutStar(playerID, teamID, star.PlayerID, game.Season, game.GameDate, StarMinutesFloor)
		if err != nil {
			return fmt.Errorf("failed to count games without star: %w", err)
		}
		v.SetFlag("star_teammate_out", true)
		v.Set("star_teammate_ppg", star.PPG)
		v.Set("games_without_star", float64(without))
		break
	}
	return nil
}

func (b *Builder) setPlayoffFeatures(v *Vector, playerID int64, game domain.Game) error {
	v.SetFlag("is_playoff", game.GameType == domain.GameTypePlayoff)
	v.Set("playoff_performance_boost", 0)

	playoffAvg, playoffGames, err := b.logs.GameTypeAverages(playerID, domain.GameTypePlayoff, game.GameDate)
	if err != nil {
		return fmt.Errorf("failed to load playoff averages: %w", err)
	}
	regularAvg, regularGames, err := b.logs.GameTypeAverages(playerID, domain.GameTypeRegularSeason, game.GameDate)
	if err != nil {
		return fmt.Errorf("failed to load regular season averages: %w", err)
	}

	v.Set("playoff_games_career", float64(playoffGames))
	if playoffGames > 0 && regularGames > 0 {
		v.Set("playoff_performance_boost", playoffAvg-regularAvg)
	}
	return nil
}

func (b *Builder) setSeasonFeatures(v *Vector, teamID int64, playerSeasonGames int, game domain.Game) error {
	start, ok, err := b.games.SeasonStart(game.Season)
	if err != nil {
		return err
	}
	if ok {
		v.Set("season_progress", SeasonProgress(game.GameDate, start))
	} else {
		v.Set("season_progress", 0)
	}

	v.Set("games_played_season", float64(playerSeasonGames))
	early, mid, late := SeasonPhase(playerSeasonGames)
	v.SetFlag("is_early_season", early)
	v.SetFlag("is_mid_season", mid)
	v.SetFlag("is_late_season", late)

	teamGames, err := b.games.TeamGamesPlayed(teamID, game.Season, game.GameDate)
	if err != nil {
		return err
	}
	v.Set("games_remaining", GamesRemaining(teamGames))
	return nil
}

func (b *Builder) setTravelAndVenue(v *Vector, teamID, opponentID int64, isHome bool) error {
	team, err := b.teams.Get(teamID)
	if err != nil {
		return err
	}
	opp, err := b.teams.Get(opponentID)
	if err != nil {
		return err
	}

	var teamMeta, oppMeta domain.Team
	if team != nil {
		teamMeta = *team
	}
	if opp != nil {
		oppMeta = *opp
	}
	setTravelFeatures(v, teamMeta, oppMeta, isHome)
	setVenueFeatures(v, oppMeta, isHome)
	return nil
}

// FallbackFunc returns per-column fallback values for the serving path:
// rolling columns fall back to the player's recent mean of the base stat,
// flags and trends to zero, and everything else to the training-time league
// mean. Unknown column names resolve to the league mean map.
func FallbackFunc(recent []domain.PlayerGameLog, means *Means) func(name string) float64 {
	idx := ColumnIndex()
	return func(name string) float64 {
		i, ok := idx[name]
		if !ok {
			return means.Value(name)
		}
		col := schema[i]
		switch col.Kind {
		case KindFlag, KindTrend:
			return 0
		case KindRolling:
			if col.BaseStat != "" && len(recent) > 0 {
				return windowMean(recent, col.BaseStat)
			}
			return means.Value(name)
		default:
			return means.Value(name)
		}
	}
}
