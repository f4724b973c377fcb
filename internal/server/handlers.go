package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hoopsight/hoopsight/internal/modules/history"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.HealthCheck(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unhealthy")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "hoopsight",
	})
}

// handlePredictionsForDate returns stored predictions for a date. An
// optional ?model= query filters to one model version.
func (s *Server) handlePredictionsForDate(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(history.DateLayout, chi.URLParam(r, "date"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	preds, err := s.repo.ForDate(date, r.URL.Query().Get("model"))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load predictions")
		s.writeError(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":        date.Format(history.DateLayout),
		"count":       len(preds),
		"predictions": preds,
	})
}

// handleRunPredictions triggers a prediction run for a date.
func (s *Server) handleRunPredictions(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(history.DateLayout, chi.URLParam(r, "date"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	count, err := s.predictions.PredictDate(date)
	if err != nil {
		s.log.Error().Err(err).Msg("Prediction run failed")
		s.writeError(w, http.StatusInternalServerError, "prediction run failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":      date.Format(history.DateLayout),
		"predicted": count,
	})
}

// handlePredictionsForGame returns stored predictions for one game.
func (s *Server) handlePredictionsForGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := strconv.ParseInt(chi.URLParam(r, "gameID"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}

	preds, err := s.repo.ForGame(gameID)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load game predictions")
		s.writeError(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"game_id":     gameID,
		"count":       len(preds),
		"predictions": preds,
	})
}

// handleAccuracy returns per-model error aggregates.
func (s *Server) handleAccuracy(w http.ResponseWriter, r *http.Request) {
	summary, err := s.repo.Accuracy()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load accuracy")
		s.writeError(w, http.StatusInternalServerError, "failed to load accuracy")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"models": summary})
}

// handleEvaluate triggers an evaluation sweep.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	evaluated, err := s.evaluator.EvaluateCompleted()
	if err != nil {
		s.log.Error().Err(err).Msg("Evaluation sweep failed")
		s.writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"evaluated": evaluated})
}

// handleRecoverySweep triggers an injury recovery sweep for today.
func (s *Server) handleRecoverySweep(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	closed, err := s.sweeper.Sweep(date)
	if err != nil {
		s.log.Error().Err(err).Msg("Recovery sweep failed")
		s.writeError(w, http.StatusInternalServerError, "recovery sweep failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"closed": closed})
}

// confidenceSummary aggregates stored confidence scores for one model version.
type confidenceSummary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
}

// handleConfidence breaks down stored confidence by model version for a date.
func (s *Server) handleConfidence(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(history.DateLayout, chi.URLParam(r, "date"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	preds, err := s.repo.ForDate(date, "")
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load predictions")
		s.writeError(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}

	byModel := make(map[string]*confidenceSummary)
	for _, p := range preds {
		sum, ok := byModel[p.ModelVersion]
		if !ok {
			sum = &confidenceSummary{Min: p.Confidence, Max: p.Confidence}
			byModel[p.ModelVersion] = sum
		}
		sum.Count++
		sum.Average += float64(p.Confidence)
		if p.Confidence < sum.Min {
			sum.Min = p.Confidence
		}
		if p.Confidence > sum.Max {
			sum.Max = p.Confidence
		}
	}
	for _, sum := range byModel {
		sum.Average /= float64(sum.Count)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":   date.Format(history.DateLayout),
		"models": byModel,
	})
}

// handleModels reports the loaded model inventory with validation error.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"models": s.bank.MAE()})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
