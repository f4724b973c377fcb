package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/domain"
)

// InjuryRepository reads and transitions injury reports.
type InjuryRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewInjuryRepository creates an injury repository
func NewInjuryRepository(db *database.DB, log zerolog.Logger) *InjuryRepository {
	return &InjuryRepository{
		db:  db,
		log: log.With().Str("component", "injury_repo").Logger(),
	}
}

// IsOut reports whether the player is currently ruled Out as of the date:
// an Out report on or before the date with no return, or a return still in
// the future.
func (r *InjuryRepository) IsOut(playerID int64, asOf time.Time) (bool, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM injuries
		WHERE player_id = ?
		  AND injury_status = 'Out'
		  AND report_date <= ?
		  AND (return_date IS NULL OR return_date > ?)`,
		playerID, asOf.Format(DateLayout), asOf.Format(DateLayout)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check injury status: %w", err)
	}
	return count > 0, nil
}

// LatestReturn returns the most recent recorded return from injury for the
// player with a return date on or before asOf, or nil when none exists.
func (r *InjuryRepository) LatestReturn(playerID int64, asOf time.Time) (*domain.InjuryRecord, error) {
	rows, err := r.db.Query(`
		SELECT injury_id, player_id, injury_status, report_date, return_date, games_missed
		FROM injuries
		WHERE player_id = ?
		  AND return_date IS NOT NULL
		  AND return_date <= ?
		ORDER BY return_date DESC
		LIMIT 1`, playerID, asOf.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query latest return: %w", err)
	}
	defer rows.Close()

	records, err := scanInjuries(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// OpenReports returns the latest report per player whose latest report status
// is still open (Out, Day-To-Day, or Questionable). These are the recovery
// sweep candidates.
func (r *InjuryRepository) OpenReports() ([]domain.InjuryRecord, error) {
	rows, err := r.db.Query(`
		SELECT i.injury_id, i.player_id, i.injury_status, i.report_date, i.return_date, i.games_missed
		FROM injuries i
		JOIN (
			SELECT player_id, MAX(report_date) AS max_report
			FROM injuries
			GROUP BY player_id
		) latest ON latest.player_id = i.player_id AND latest.max_report = i.report_date
		WHERE i.injury_status IN ('Out', 'Day-To-Day', 'Questionable')`)
	if err != nil {
		return nil, fmt.Errorf("failed to query open injury reports: %w", err)
	}
	defer rows.Close()

	return scanInjuries(rows)
}

// MarkRecovered transitions a report to Healthy with the observed return date
// and the count of league game dates the player sat out.
func (r *InjuryRepository) MarkRecovered(injuryID int64, returnDate time.Time, gamesMissed int) error {
	_, err := r.db.Exec(`
		UPDATE injuries
		SET injury_status = 'Healthy', return_date = ?, games_missed = ?
		WHERE injury_id = ?`,
		returnDate.Format(DateLayout), gamesMissed, injuryID)
	if err != nil {
		return fmt.Errorf("failed to mark injury recovered: %w", err)
	}
	r.log.Info().
		Int64("injury_id", injuryID).
		Str("return_date", returnDate.Format(DateLayout)).
		Int("games_missed", gamesMissed).
		Msg("Injury marked recovered")
	return nil
}

func scanInjuries(rows *sql.Rows) ([]domain.InjuryRecord, error) {
	var records []domain.InjuryRecord
	for rows.Next() {
		var (
			rec         domain.InjuryRecord
			status      string
			rawReport   string
			rawReturn   sql.NullString
			gamesMissed sql.NullInt64
		)
		if err := rows.Scan(&rec.InjuryID, &rec.PlayerID, &status, &rawReport, &rawReturn, &gamesMissed); err != nil {
			return nil, fmt.Errorf("failed to scan injury record: %w", err)
		}
		rec.Status = domain.InjuryStatus(status)

		var err error
		rec.ReportDate, err = time.Parse(DateLayout, rawReport)
		if err != nil {
			return nil, fmt.Errorf("malformed report date %q: %w", rawReport, err)
		}
		if rawReturn.Valid {
			ret, err := time.Parse(DateLayout, rawReturn.String)
			if err != nil {
				return nil, fmt.Errorf("malformed return date %q: %w", rawReturn.String, err)
			}
			rec.ReturnDate = &ret
		}
		if gamesMissed.Valid {
			n := int(gamesMissed.Int64)
			rec.GamesMissed = &n
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
