package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"eduplatform-backend/entity"
	"eduplatform-backend/service"
)

func (h *Handler) parentRoutes(r *mux.Router) {
	p := entity.RoleParent

	handle(r, http.MethodPost, "/parents/me/students", h.stageStudent, p)
	handle(r, http.MethodGet, "/parents/me/students/pending", h.pendingStudents, p)
	handle(r, http.MethodDelete, "/parents/me/students/pending/"+idPattern, h.cancelPendingStudent, p)
	handle(r, http.MethodGet, "/parents/me/children", h.children, p)
}

func (h *Handler) stageStudent(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.StageStudentInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	ts, err := h.svc.Students.StageStudent(r.Context(), a, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ts)
}

func (h *Handler) pendingStudents(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pending, err := h.svc.Students.ListPendingStudents(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (h *Handler) cancelPendingStudent(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.Students.CancelPendingStudent(r.Context(), a, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *Handler) children(w http.ResponseWriter, r *http.Request) {
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

	children, err := h.svc.Students.ListChildren(r.Context(), a, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, children)
}
