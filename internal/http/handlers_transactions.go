package http

import (
	"net/http"
	"strconv"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := core.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, log.OpList, err)
		return
	}

	txs, err := s.deps.Queries.List(r.Context(), q)
	if err != nil {
		writeError(r.Context(), w, log.OpList, err)
		return
	}
	DataResponse(http.StatusOK, "transactions retrieved", txs).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, log.OpRead, err)
		return
	}

	tx, err := s.deps.Ledger.Get(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, log.OpRead, err)
		return
	}
	DataResponse(http.StatusOK, "transaction retrieved", tx).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.parseTransaction(w, r)
	if err != nil {
		writeError(r.Context(), w, log.OpCreate, err)
		return
	}

	created, err := s.deps.Ledger.Create(r.Context(), tx)
	if err != nil {
		writeError(r.Context(), w, log.OpCreate, err)
		return
	}
	s.appMetrics.record(&s.appMetrics.created)
	DataResponse(http.StatusCreated, "transaction created", created).
		Header("Location", "/transactions/"+strconv.FormatInt(created.ID, 10)).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, log.OpUpdate, err)
		return
	}
	tx, err := s.parseTransaction(w, r)
	if err != nil {
		writeError(r.Context(), w, log.OpUpdate, err)
		return
	}

	updated, err := s.deps.Ledger.Update(r.Context(), id, tx)
	if err != nil {
		writeError(r.Context(), w, log.OpUpdate, err)
		return
	}
	s.appMetrics.record(&s.appMetrics.updated)
	DataResponse(http.StatusOK, "transaction updated", updated).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, log.OpDelete, err)
		return
	}

	removed, err := s.deps.Ledger.Delete(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, log.OpDelete, err)
		return
	}
	s.appMetrics.record(&s.appMetrics.deleted)
	DataResponse(http.StatusOK, "transaction deleted", removed).Write(w)
}

// handleExportCSV renders the filtered ledger as a CSV attachment. The
// document is built in memory first so failures still produce a JSON error.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	scope, err := services.ParseExportScope(values.Get("year"), values.Get("month"))
	if err != nil {
		writeError(r.Context(), w, log.OpExport, err)
		return
	}
	q, err := core.ParseQuery(values)
	if err != nil {
		writeError(r.Context(), w, log.OpExport, err)
		return
	}

	doc, err := s.deps.Export.Export(r.Context(), q, scope)
	if err != nil {
		writeError(r.Context(), w, log.OpExport, err)
		return
	}
	s.appMetrics.record(&s.appMetrics.exports)

	log.FromContext(r.Context()).InfoContext(r.Context(), "Ledger exported",
		log.FieldOperation, log.OpExport,
		"filename", doc.Filename,
		"rows", doc.Rows)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", doc.ContentDisposition())
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

// parseTransaction reads a loosely typed body and validates it against the
// server clock.
func (s *Server) parseTransaction(w http.ResponseWriter, r *http.Request) (core.Transaction, error) {
	in, err := NewRequestBodyParser(w, r).TransactionInput()
	if err != nil {
		return core.Transaction{}, err
	}
	return in.Parse(s.now())
}
