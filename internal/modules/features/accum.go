package features

import (
	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/teamcontext"
)

// bucketTotals accumulates production attributed to one position bucket.
type bucketTotals struct {
	points, rebounds, assists, blocks float64
	threes, turnovers, steals         float64
}

// teamAccum accumulates one team's season to date. The batch builder folds
// completed games in date order, so reads always reflect games strictly
// before the date being featurized.
type teamAccum struct {
	games int

	points, possessions       float64
	oppPoints, oppPossessions float64
	paceSum                   float64

	oppFGM, oppFGA float64
	opp3PM, opp3PA float64
	ownTurnovers   float64
	ownSteals      float64

	allowed map[domain.Position]*bucketTotals // by opposing players' bucket
	own     map[domain.Position]*bucketTotals // by own players' bucket
}

func newTeamAccum() *teamAccum {
	return &teamAccum{
		allowed: make(map[domain.Position]*bucketTotals),
		own:     make(map[domain.Position]*bucketTotals),
	}
}

func (a *teamAccum) bucket(m map[domain.Position]*bucketTotals, pos domain.Position) *bucketTotals {
	b, ok := m[pos]
	if !ok {
		b = &bucketTotals{}
		m[pos] = b
	}
	return b
}

// addGame folds one completed game into the accumulator. own and opp are the
// team's and opponent's player lines for the game; positionOf resolves a
// player's bucket.
func (a *teamAccum) addGame(own, opp []domain.PlayerGameLog, positionOf func(int64) domain.Position) {
	var ownPts, ownPoss, oppPts, oppPoss float64

	for _, l := range own {
		ownPts += l.Points
		ownPoss += l.FieldGoalsAttempted + 0.44*l.FreeThrowsAttempted + l.Turnovers
		a.ownTurnovers += l.Turnovers
		a.ownSteals += l.Steals

		b := a.bucket(a.own, positionOf(l.PlayerID))
		b.turnovers += l.Turnovers
		b.steals += l.Steals
	}

	for _, l := range opp {
		oppPts += l.Points
		oppPoss += l.FieldGoalsAttempted + 0.44*l.FreeThrowsAttempted + l.Turnovers
		a.oppFGM += l.FieldGoalsMade
		a.oppFGA += l.FieldGoalsAttempted
		a.opp3PM += l.ThreePointersMade
		a.opp3PA += l.ThreePointersAttempted

		b := a.bucket(a.allowed, positionOf(l.PlayerID))
		b.points += l.Points
		b.rebounds += l.Rebounds
		b.assists += l.Assists
		b.blocks += l.Blocks
		b.threes += l.ThreePointersMade
		b.turnovers += l.Turnovers
		b.steals += l.Steals
	}

	a.points += ownPts
	a.possessions += ownPoss
	a.oppPoints += oppPts
	a.oppPossessions += oppPoss
	a.paceSum += (ownPoss + oppPoss) / 2
	a.games++
}

func (a *teamAccum) ratings() (teamcontext.Ratings, bool) {
	if a.games == 0 {
		return teamcontext.Ratings{}, false
	}
	r := teamcontext.Ratings{Pace: a.paceSum / float64(a.games), Games: a.games}
	if a.possessions > 0 {
		r.OffensiveRating = 100 * a.points / a.possessions
	}
	if a.oppPossessions > 0 {
		r.DefensiveRating = 100 * a.oppPoints / a.oppPossessions
	}
	return r, true
}

func (a *teamAccum) defense() teamcontext.Defense {
	d := teamcontext.Defense{
		TurnoversPerGame: teamcontext.DefaultTurnoversPerGame,
		StealsPerGame:    teamcontext.DefaultStealsPerGame,
		Games:            a.games,
	}
	if a.games == 0 {
		return d
	}
	if a.oppFGA > 0 {
		d.OppFieldGoalPct = a.oppFGM / a.oppFGA
	}
	if a.opp3PA > 0 {
		d.OppThreePointPct = a.opp3PM / a.opp3PA
	}
	d.TurnoversPerGame = a.ownTurnovers / float64(a.games)
	d.StealsPerGame = a.ownSteals / float64(a.games)
	return d
}

func (a *teamAccum) versusPosition(pos domain.Position) (teamcontext.PositionDefense, bool) {
	if a.games == 0 {
		return teamcontext.PositionDefense{}, false
	}
	n := float64(a.games)
	b, ok := a.allowed[pos]
	if !ok {
		b = &bucketTotals{}
	}
	return teamcontext.PositionDefense{
		PointsAllowed:        b.points / n,
		ReboundsAllowed:      b.rebounds / n,
		AssistsAllowed:       b.assists / n,
		BlocksAllowed:        b.blocks / n,
		ThreePointersAllowed: b.threes / n,
		TurnoversForced:      b.turnovers / n,
		StealsAllowed:        b.steals / n,
		Games:                a.games,
	}, true
}

func (a *teamAccum) ownPosition(pos domain.Position) (teamcontext.PositionProfile, bool) {
	if a.games == 0 {
		return teamcontext.PositionProfile{}, false
	}
	n := float64(a.games)
	b, ok := a.own[pos]
	if !ok {
		b = &bucketTotals{}
	}
	return teamcontext.PositionProfile{
		TurnoversPerGame: b.turnovers / n,
		StealsPerGame:    b.steals / n,
		Games:            a.games,
	}, true
}
