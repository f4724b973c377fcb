package server

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatusResponse reports process and data health for monitoring.
type SystemStatusResponse struct {
	Status          string  `json:"status"`
	UptimeHours     float64 `json:"uptime_hours"`
	CPUPercent      float64 `json:"cpu_percent"`
	RAMPercent      float64 `json:"ram_percent"`
	DatabaseSizeMB  float64 `json:"database_size_mb"`
	LoadedModels    int     `json:"loaded_models"`
	PlayerCount     int     `json:"player_count"`
	CompletedGames  int     `json:"completed_games"`
	StoredForecasts int     `json:"stored_forecasts"`
	LastGameDate    string  `json:"last_game_date,omitempty"`
}

// handleSystemStatus returns process stats plus row counts of the core tables.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := s.getSystemStats()

	response := SystemStatusResponse{
		Status:       "healthy",
		UptimeHours:  time.Since(s.startupTime).Hours(),
		CPUPercent:   cpuPercent,
		RAMPercent:   ramPercent,
		LoadedModels: len(s.bank.MAE()),
	}

	if info, err := os.Stat(s.db.Path()); err == nil {
		response.DatabaseSizeMB = float64(info.Size()) / 1024 / 1024
	}

	if err := s.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM players WHERE is_active = 1`).Scan(&response.PlayerCount); err != nil {
		s.log.Warn().Err(err).Msg("Failed to count players")
		response.Status = "degraded"
	}
	if err := s.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM games WHERE game_status = 'completed'`).Scan(&response.CompletedGames); err != nil {
		s.log.Warn().Err(err).Msg("Failed to count games")
		response.Status = "degraded"
	}
	if err := s.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM predictions`).Scan(&response.StoredForecasts); err != nil {
		s.log.Warn().Err(err).Msg("Failed to count predictions")
		response.Status = "degraded"
	}

	var lastDate sql.NullString
	if err := s.db.QueryRowContext(r.Context(), `SELECT MAX(game_date) FROM games WHERE game_status = 'completed'`).Scan(&lastDate); err == nil && lastDate.Valid {
		response.LastGameDate = lastDate.String
	}

	s.writeJSON(w, http.StatusOK, response)
}

// getSystemStats samples CPU over 100ms to keep the endpoint responsive.
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
