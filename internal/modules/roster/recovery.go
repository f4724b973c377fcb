package roster

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/modules/history"
)

// RecoverySweeper transitions open injury reports to Healthy once the player
// is observed back in a completed game.
type RecoverySweeper struct {
	injuries *history.InjuryRepository
	logs     *history.GameLogRepository
	games    *history.GameRepository
	log      zerolog.Logger
}

// NewRecoverySweeper creates an injury recovery sweeper
func NewRecoverySweeper(injuries *history.InjuryRepository, logs *history.GameLogRepository,
	games *history.GameRepository, log zerolog.Logger) *RecoverySweeper {
	return &RecoverySweeper{
		injuries: injuries,
		logs:     logs,
		games:    games,
		log:      log.With().Str("component", "recovery_sweeper").Logger(),
	}
}

// Sweep checks every open report against the date's completed game logs.
// A player with a completed line on the date is healthy again; the report is
// closed with the count of distinct league game dates they sat out between
// the report and the return. Returns the number of reports closed.
func (s *RecoverySweeper) Sweep(date time.Time) (int, error) {
	open, err := s.injuries.OpenReports()
	if err != nil {
		return 0, fmt.Errorf("failed to load open injury reports: %w", err)
	}

	closed := 0
	for _, report := range open {
		played, err := s.logs.PlayedOn(report.PlayerID, date)
		if err != nil {
			return closed, err
		}
		if !played {
			continue
		}

		missed, err := s.games.CompletedLeagueDatesBetween(report.ReportDate, date)
		if err != nil {
			return closed, err
		}
		if err := s.injuries.MarkRecovered(report.InjuryID, date, missed); err != nil {
			return closed, err
		}
		closed++
	}

	if closed > 0 {
		s.log.Info().Int("reports", closed).Str("date", date.Format(history.DateLayout)).Msg("Recovery sweep complete")
	}
	return closed, nil
}
