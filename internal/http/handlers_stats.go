package http

import (
	"net/http"

	applog "ledger/internal/log"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := s.deps.Transactions.ParseFilter(parseFilterParams(q))

	report, err := s.deps.Stats.Report(r.Context(), f, parsePage(q))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(report))
}

func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	f := s.deps.Transactions.ParseFilter(parseFilterParams(r.URL.Query()))

	data, err := s.deps.Stats.ChartData(r.Context(), f)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toChartDataDTO(data))
}
