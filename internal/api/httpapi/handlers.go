package httpapi

import (
	"net/http"

	"github.com/xtding233/carbon-crafts/internal/market"
)

type supplierView struct {
	ID          string `json:"id"`
	UnitCost    int    `json:"unit_cost"`
	DebtDelta   int    `json:"debt_delta"`
	BaseRevenue int    `json:"base_revenue"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := market.Catalog()
	out := make([]supplierView, len(catalog))
	for i, sup := range catalog {
		out[i] = supplierView{ID: sup.ID, UnitCost: sup.UnitCost, DebtDelta: sup.DebtDelta, BaseRevenue: sup.BaseRevenue}
	}
	writeJSON(w, http.StatusOK, out)
}

type eventsResp struct {
	Events []market.Event `json:"events"`
	Pool   []string       `json:"pool"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, eventsResp{Events: market.Events(), Pool: s.svc.Settings().EventPool})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.svc.State(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.svc.Leaderboard(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Standing(r.Context(), teamID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type choiceReq struct {
	Choice string `json:"choice"`
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceReq
	if !decode(w, r, &req) {
		return
	}
	team, err := s.svc.SubmitChoice(r.Context(), teamID(r), req.Choice)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}
