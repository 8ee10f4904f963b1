package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"eduplatform-backend/entity"
	"eduplatform-backend/service"
)

func (h *Handler) transactionRoutes(r *mux.Router) {
	payers := []entity.Role{entity.RoleSuperAdmin, entity.RoleSchoolAdmin, entity.RoleParent}

	handle(r, http.MethodPost, "/transactions", h.createTransaction, payers...)
	handle(r, http.MethodGet, "/transactions", h.listTransactions, payers...)
	handle(r, http.MethodGet, "/transactions/"+idPattern, h.getTransaction, payers...)
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.CreateTransactionInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := h.svc.Transactions.Create(r.Context(), a, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := page(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	txs, err := h.svc.Transactions.List(r.Context(), a, service.TransactionQuery{
		Type:     q.Get("type"),
		SchoolID: q.Get("school_id"),
		Page:     p,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := h.svc.Transactions.Get(r.Context(), a, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
