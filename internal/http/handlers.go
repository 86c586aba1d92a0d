package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"conti/internal/log"
)

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.svc.Members(r.Context())
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, buildMembers(members))
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := s.svc.AddMember(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, memberResponse{ID: m.ID, Name: m.Name})
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveMember(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.Groups(r.Context())
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, buildGroups(groups))
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := s.svc.CreateGroup(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupResponse{ID: g.ID, Name: g.Name})
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteGroup(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.Transactions(r.Context(), scopeParam(r))
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, buildTransactions(txs))
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := s.svc.AddExpense(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, buildTransaction(tx))
}

func (s *Server) handleRecordSettlement(w http.ResponseWriter, r *http.Request) {
	var req settlementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := s.svc.RecordSettlement(r.Context(),
		strings.TrimSpace(req.GroupID),
		strings.TrimSpace(req.PayerID),
		strings.TrimSpace(req.ReceiverID),
		float64(req.Amount))
	if err != nil {
		writeServiceError(w, r, log.OpSettle, err)
		return
	}
	writeJSON(w, http.StatusCreated, buildTransaction(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransaction(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.svc.Balances(r.Context(), scopeParam(r))
	if err != nil {
		writeServiceError(w, r, log.OpBalances, err)
		return
	}
	writeJSON(w, http.StatusOK, buildBalances(balances))
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.svc.Plan(r.Context(), scopeParam(r))
	if err != nil {
		writeServiceError(w, r, log.OpPlan, err)
		return
	}
	writeJSON(w, http.StatusOK, buildPlan(plan))
}

func (s *Server) handleSettleAll(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.SettleAll(r.Context(), scopeParam(r))
	if err != nil {
		writeServiceError(w, r, log.OpSettle, err)
		return
	}
	writeJSON(w, http.StatusOK, buildTransactions(txs))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.svc.Report(r.Context(), year, month)
	if err != nil {
		writeServiceError(w, r, "report", err)
		return
	}
	writeJSON(w, http.StatusOK, buildReport(report))
}

func scopeParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("scope"))
}
