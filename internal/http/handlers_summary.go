package http

import (
	"net/http"

	"ledger/internal/log"
)

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		writeError(r.Context(), w, log.OpSummary, err)
		return
	}

	summary, err := s.deps.Aggregates.MonthlySummary(r.Context(), year, month)
	if err != nil {
		writeError(r.Context(), w, log.OpSummary, err)
		return
	}
	DataResponse(http.StatusOK, "monthly summary retrieved", summary).Write(w)
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		writeError(r.Context(), w, log.OpBreakdown, err)
		return
	}

	rows, err := s.deps.Aggregates.CategoryBreakdown(r.Context(), year, month)
	if err != nil {
		writeError(r.Context(), w, log.OpBreakdown, err)
		return
	}
	DataResponse(http.StatusOK, "category breakdown retrieved", rows).Write(w)
}

func (s *Server) handleMonthlyTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := s.deps.Aggregates.MonthlyTrends(r.Context())
	if err != nil {
		writeError(r.Context(), w, log.OpTrends, err)
		return
	}
	DataResponse(http.StatusOK, "monthly trends retrieved", trends).Write(w)
}
