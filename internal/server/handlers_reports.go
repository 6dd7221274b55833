package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"salesdw/internal/warehouse"
)

func (s *Server) handleListDimension(w http.ResponseWriter, r *http.Request) {
	dim, err := warehouse.ParseDimension(mux.Vars(r)["dim"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	members, err := s.repo.ListDimension(r.Context(), dim)
	if err != nil {
		s.internalError(w, err, "list dimension")
		return
	}
	if members == nil {
		members = []warehouse.DimMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	entity, ok := warehouse.ParseRankEntity(mux.Vars(r)["entity"])
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid entity type")
		return
	}

	limit := queryInt(r, "limit", 5)
	rankings, err := s.repo.Rankings(r.Context(), entity, limit)
	if err != nil {
		s.internalError(w, err, "rankings")
		return
	}
	if rankings == nil {
		rankings = []warehouse.Ranking{}
	}
	writeJSON(w, http.StatusOK, rankings)
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d1, ok1 := warehouse.ParseAggregateAxis(q.Get("dimension1"))
	d2, ok2 := warehouse.ParseAggregateAxis(q.Get("dimension2"))
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "Invalid dimension")
		return
	}

	cells, err := s.repo.Aggregate(r.Context(), d1, d2)
	if err != nil {
		s.internalError(w, err, "aggregate")
		return
	}
	if cells == nil {
		cells = []warehouse.AggregateCell{}
	}
	writeJSON(w, http.StatusOK, cells)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.repo.DashboardMetrics(r.Context())
	if err != nil {
		s.internalError(w, err, "dashboard metrics")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
