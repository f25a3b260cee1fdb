package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/spx-greeks-api/internal/exposure"
	"github.com/dgnsrekt/spx-greeks-api/internal/pipeline"
	"github.com/dgnsrekt/spx-greeks-api/internal/regime"
	"github.com/dgnsrekt/spx-greeks-api/internal/tradier"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Symbol    string `json:"symbol"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Symbol:    s.config.Market.Symbol,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pipeline.ConfigResponse{
		NeutralThresholdMethod: "max(0.05, 0.05 * median(|values|)) per greek",
		CacheTTLSeconds:        s.config.Cache.TTLSec,
		DefaultVIXRegime:       s.config.Market.DefaultVIXRegime,
	})
}

func (s *Server) handleSpot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.pipeline.Spot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExpirations(w http.ResponseWriter, r *http.Request) {
	resp, err := s.pipeline.Expirations(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExposures(w http.ResponseWriter, r *http.Request) {
	vix, err := parseVIXParam(r.URL.Query().Get("vix_regime"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	expiration := r.URL.Query().Get("expiration")
	if expiration == "" {
		// Default to the nearest expiration
		dates, err := s.pipeline.Expirations(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		if len(dates.Expirations) == 0 {
			s.writeError(w, pipeline.ErrNoData)
			return
		}
		expiration = dates.Expirations[0]
	}

	resp, err := s.pipeline.Exposures(r.Context(), expiration, vix)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExposuresMatrix(w http.ResponseWriter, r *http.Request) {
	vix, err := parseVIXParam(r.URL.Query().Get("vix_regime"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	// The matrix always spans expirations
	if exp := r.URL.Query().Get("expiration"); exp != "" && exp != pipeline.ExpirationAll {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "expiration must be ALL for the matrix endpoint",
		})
		return
	}

	metricParam := r.URL.Query().Get("metric")
	if metricParam == "" {
		metricParam = "GEX"
	}
	metric, err := exposure.ParseMetric(metricParam)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	resp, err := s.pipeline.Matrix(r.Context(), metric, vix)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseVIXParam parses the vix_regime query parameter, defaulting to AUTO.
func parseVIXParam(raw string) (regime.VIXRegime, error) {
	if raw == "" {
		return regime.VIXAuto, nil
	}
	return regime.ParseVIXRegime(raw)
}

// writeError maps pipeline and upstream errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrNoData):
		status = http.StatusServiceUnavailable
	case errors.Is(err, tradier.ErrUpstream),
		errors.Is(err, tradier.ErrRateLimited),
		errors.Is(err, tradier.ErrMalformed):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	} else {
		s.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
