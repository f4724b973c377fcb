package history

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/domain"
)

// DependencyRepository persists teammate dependency records.
type DependencyRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewDependencyRepository creates a dependency repository
func NewDependencyRepository(db *database.DB, log zerolog.Logger) *DependencyRepository {
	return &DependencyRepository{
		db:  db,
		log: log.With().Str("component", "dependency_repo").Logger(),
	}
}

// Upsert writes one dependency record, replacing any existing record for the
// same (player, star, season).
func (r *DependencyRepository) Upsert(dep domain.TeammateDependency) error {
	_, err := r.db.Exec(`
		INSERT INTO teammate_dependency (
			player_id, teammate_id, season,
			games_with_teammate, games_without_teammate,
			ppg_with, ppg_without, ppg_boost,
			rpg_with, rpg_without, rpg_boost,
			apg_with, apg_without, apg_boost
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_id, teammate_id, season) DO UPDATE SET
			games_with_teammate = excluded.games_with_teammate,
			games_without_teammate = excluded.games_without_teammate,
			ppg_with = excluded.ppg_with,
			ppg_without = excluded.ppg_without,
			ppg_boost = excluded.ppg_boost,
			rpg_with = excluded.rpg_with,
			rpg_without = excluded.rpg_without,
			rpg_boost = excluded.rpg_boost,
			apg_with = excluded.apg_with,
			apg_without = excluded.apg_without,
			apg_boost = excluded.apg_boost`,
		dep.PlayerID, dep.TeammateID, dep.Season,
		dep.GamesWith, dep.GamesWithout,
		dep.PPGWith, dep.PPGAway, dep.PPGBoost,
		dep.RPGWith, dep.RPGAway, dep.RPGBoost,
		dep.APGWith, dep.APGAway, dep.APGBoost)
	if err != nil {
		return fmt.Errorf("failed to upsert teammate dependency: %w", err)
	}
	return nil
}

// ForStar returns the dependency records keyed by dependent player for one
// star in a season.
func (r *DependencyRepository) ForStar(starID int64, season string) (map[int64]domain.TeammateDependency, error) {
	rows, err := r.db.Query(`
		SELECT player_id, teammate_id, season,
			games_with_teammate, games_without_teammate,
			ppg_with, ppg_without, ppg_boost,
			rpg_with, rpg_without, rpg_boost,
			apg_with, apg_without, apg_boost
		FROM teammate_dependency
		WHERE teammate_id = ? AND season = ?`, starID, season)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies for star: %w", err)
	}
	defer rows.Close()

	deps := make(map[int64]domain.TeammateDependency)
	for rows.Next() {
		var d domain.TeammateDependency
		err := rows.Scan(&d.PlayerID, &d.TeammateID, &d.Season,
			&d.GamesWith, &d.GamesWithout,
			&d.PPGWith, &d.PPGAway, &d.PPGBoost,
			&d.RPGWith, &d.RPGAway, &d.RPGBoost,
			&d.APGWith, &d.APGAway, &d.APGBoost)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dependency record: %w", err)
		}
		deps[d.PlayerID] = d
	}
	return deps, rows.Err()
}
