package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ranked-ladder/internal/constants"
	"ranked-ladder/internal/domain"
	"ranked-ladder/internal/metrics"
	"ranked-ladder/internal/service"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type LadderServer struct {
	progressionSvc *service.ProgressionService
	profileSvc     *service.ProfileService
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

func NewLadderServer(progressionSvc *service.ProgressionService, profileSvc *service.ProfileService, m *metrics.Metrics, logger zerolog.Logger) *LadderServer {
	return &LadderServer{progressionSvc: progressionSvc, profileSvc: profileSvc, metrics: m, logger: logger}
}

func (s *LadderServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /profile/{userId}", s.GetProfile)
	mux.HandleFunc("PUT /profile/{userId}/preferences", s.UpdatePreferences)
	mux.HandleFunc("POST /matches", s.ApplyMatchResult)
	mux.HandleFunc("POST /matches/paired", s.ApplyMatch)
	mux.HandleFunc("GET /leaderboard", s.Leaderboard)
	mux.HandleFunc("GET /leaderboard/distribution", s.Distribution)
	mux.HandleFunc("GET /players/{userId}/progression", s.History)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", s.Health)
	return mux
}

func (s *LadderServer) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profileSvc.GetProfile(r.Context(), r.PathValue("userId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *LadderServer) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var patch domain.PreferencesPatch
	if err := decodeBody(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	profile, err := s.profileSvc.UpdatePreferences(r.Context(), r.PathValue("userId"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *LadderServer) ApplyMatchResult(w http.ResponseWriter, r *http.Request) {
	var outcome domain.MatchOutcome
	if err := decodeBody(w, r, &outcome); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.progressionSvc.ApplyMatchResult(r.Context(), outcome)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *LadderServer) ApplyMatch(w http.ResponseWriter, r *http.Request) {
	var report domain.MatchReport
	if err := decodeBody(w, r, &report); err != nil {
		s.writeError(w, r, err)
		return
	}
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	result, err := s.progressionSvc.ApplyMatch(r.Context(), report)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *LadderServer) Leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.profileSvc.Leaderboard(r.Context(), q.Get("tier"), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *LadderServer) Distribution(w http.ResponseWriter, r *http.Request) {
	dist, err := s.profileSvc.Distribution(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tiers": dist})
}

func (s *LadderServer) History(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	events, err := s.profileSvc.History(r.Context(), r.PathValue("userId"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *LadderServer) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.profileSvc.Ready(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *LadderServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := map[string]any{"error": err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
	}

	log := zerolog.Ctx(r.Context())
	if log.GetLevel() == zerolog.Disabled {
		log = &s.logger
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request rejected")
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStaleState):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("body", fmt.Sprintf("malformed JSON: %v", err))
	}
	return nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
