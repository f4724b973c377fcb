package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/domain"
)

// TransactionRepository reads roster moves.
type TransactionRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a transaction repository
func NewTransactionRepository(db *database.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("component", "transaction_repo").Logger(),
	}
}

// LatestWithin returns the player's most recent transaction dated within
// [asOf - windowDays, asOf], or nil when none exists.
func (r *TransactionRepository) LatestWithin(playerID int64, asOf time.Time, windowDays int) (*domain.Transaction, error) {
	earliest := asOf.AddDate(0, 0, -windowDays)

	var (
		tx       domain.Transaction
		txType   string
		rawDate  string
		fromTeam sql.NullInt64
		toTeam   sql.NullInt64
	)
	err := r.db.QueryRow(`
		SELECT transaction_id, player_id, transaction_type, transaction_date, from_team_id, to_team_id
		FROM player_transactions
		WHERE player_id = ?
		  AND transaction_date >= ?
		  AND transaction_date <= ?
		ORDER BY transaction_date DESC
		LIMIT 1`,
		playerID, earliest.Format(DateLayout), asOf.Format(DateLayout)).
		Scan(&tx.TransactionID, &tx.PlayerID, &txType, &rawDate, &fromTeam, &toTeam)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest transaction: %w", err)
	}

	tx.Type = domain.TransactionType(txType)
	tx.Date, err = time.Parse(DateLayout, rawDate)
	if err != nil {
		return nil, fmt.Errorf("malformed transaction date %q: %w", rawDate, err)
	}
	if fromTeam.Valid {
		tx.FromTeamID = &fromTeam.Int64
	}
	if toTeam.Valid {
		tx.ToTeamID = &toTeam.Int64
	}
	return &tx, nil
}
