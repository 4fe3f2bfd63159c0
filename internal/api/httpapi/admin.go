package httpapi

import (
	"net/http"

	"github.com/xtding233/carbon-crafts/internal/round"
)

type eventReq struct {
	Event string `json:"event"`
}

type eventResp struct {
	Event string `json:"event"`
}

func (s *Server) handleSetEvent(w http.ResponseWriter, r *http.Request) {
	var req eventReq
	if !decode(w, r, &req) {
		return
	}
	ev, err := s.svc.SetEvent(r.Context(), req.Event)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResp{Event: ev.String()})
}

func (s *Server) handleClearEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearEvent(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDrawEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.svc.DrawEvent(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResp{Event: ev.String()})
}

type settleResp struct {
	Report round.Report `json:"report"`
	Err    string       `json:"err,omitempty"`
}

// handleSettle returns the report even when some teams failed, so the admin
// sees what did settle next to the error.
func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.SettleRound(r.Context())
	if err != nil {
		s.logger.Printf("http: settle: %v", err)
		writeJSON(w, http.StatusInternalServerError, settleResp{Report: rep, Err: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, settleResp{Report: rep})
}

type roundResp struct {
	Round int `json:"round"`
}

func (s *Server) handleNextRound(w http.ResponseWriter, r *http.Request) {
	next, err := s.svc.StartNextRound(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roundResp{Round: next})
}

type addTeamReq struct {
	ID string `json:"id"`
}

func (s *Server) handleAddTeam(w http.ResponseWriter, r *http.Request) {
	var req addTeamReq
	if !decode(w, r, &req) {
		return
	}
	team, err := s.svc.AddTeam(r.Context(), req.ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *Server) handleRemoveTeam(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveTeam(r.Context(), teamID(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleLock(w http.ResponseWriter, r *http.Request) {
	team, err := s.svc.ToggleLock(r.Context(), teamID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

type adjustReq struct {
	Cash int `json:"cash"`
	Debt int `json:"debt"`
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustReq
	if !decode(w, r, &req) {
		return
	}
	team, err := s.svc.AdjustTeam(r.Context(), teamID(r), req.Cash, req.Debt)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req adjustReq
	if !decode(w, r, &req) {
		return
	}
	team, err := s.svc.OverrideTeam(r.Context(), teamID(r), req.Cash, req.Debt)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Server) handleResetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := s.svc.ResetTeam(r.Context(), teamID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

type countResp struct {
	Teams int `json:"teams"`
}

func (s *Server) handleLockAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.LockAll(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResp{Teams: n})
}

func (s *Server) handleUnlockAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.UnlockAll(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResp{Teams: n})
}

type bonusReq struct {
	Amount int `json:"amount"` // 0 pays the scenario stimulus
}

func (s *Server) handleBonus(w http.ResponseWriter, r *http.Request) {
	var req bonusReq
	if !decodeOptional(w, r, &req) {
		return
	}
	n, err := s.svc.GlobalBonus(r.Context(), req.Amount)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResp{Teams: n})
}

type broadcastReq struct {
	Message string `json:"message"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastReq
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.Broadcast(r.Context(), req.Message); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetGame(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResetGame(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Journal().Entries())
}
