// Package httpapi serves the game over JSON HTTP for the student and admin
// frontends.
package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xtding233/carbon-crafts/internal/round"
	"github.com/xtding233/carbon-crafts/internal/storage"
)

// AdminTokenHeader carries the admin token when one is configured.
const AdminTokenHeader = "X-Admin-Token"

type Server struct {
	svc        *round.Service
	adminToken string
	logger     *log.Logger
}

// New returns a Server. An empty adminToken leaves admin routes open, which
// is how classroom sessions on a trusted network usually run.
func New(svc *round.Service, adminToken string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{svc: svc, adminToken: adminToken, logger: logger}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/catalog", s.handleCatalog)
	r.Get("/events", s.handleEvents)
	r.Get("/state", s.handleState)
	r.Get("/leaderboard", s.handleLeaderboard)
	r.Get("/teams/{id}", s.handleTeam)
	r.Post("/teams/{id}/choice", s.handleChoice)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.adminOnly)
		r.Post("/event", s.handleSetEvent)
		r.Delete("/event", s.handleClearEvent)
		r.Post("/event/draw", s.handleDrawEvent)
		r.Post("/settle", s.handleSettle)
		r.Post("/next-round", s.handleNextRound)
		r.Post("/teams", s.handleAddTeam)
		r.Delete("/teams/{id}", s.handleRemoveTeam)
		r.Post("/teams/{id}/lock", s.handleToggleLock)
		r.Post("/teams/{id}/adjust", s.handleAdjust)
		r.Put("/teams/{id}/stats", s.handleOverride)
		r.Post("/teams/{id}/reset", s.handleResetTeam)
		r.Post("/lock-all", s.handleLockAll)
		r.Post("/unlock-all", s.handleUnlockAll)
		r.Post("/bonus", s.handleBonus)
		r.Post("/broadcast", s.handleBroadcast)
		r.Post("/reset", s.handleResetGame)
		r.Get("/logs", s.handleLogs)
	})
	return r
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken != "" {
			got := r.Header.Get(AdminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminToken)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+AdminTokenHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResp struct {
	Err string `json:"err"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResp{Err: msg})
}

// writeServiceError maps domain errors to status codes. Anything unknown is
// logged and reported as 500.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrAlreadyExists),
		errors.Is(err, round.ErrAlreadySettled),
		errors.Is(err, round.ErrTeamLocked):
		status = http.StatusConflict
	case errors.Is(err, round.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, round.ErrInvalidTier),
		errors.Is(err, round.ErrUnknownEvent),
		errors.Is(err, round.ErrInvalidTeamID),
		errors.Is(err, round.ErrInvalidAmount),
		errors.Is(err, round.ErrEmptyMessage):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Printf("http: %v", err)
	}
	writeError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

// decodeOptional is decode for endpoints whose body may be empty, whether
// sent with Content-Length 0 or as an empty chunked stream.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

func teamID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}
