package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"eduplatform-backend/entity"
	"eduplatform-backend/service"
)

func (h *Handler) superAdminRoutes(r *mux.Router) {
	sa := entity.RoleSuperAdmin

	handle(r, http.MethodPost, "/schools/"+idPattern+"/resend-credentials", h.resendCredentials, sa)
	handle(r, http.MethodPatch, "/users/"+idPattern+"/status", h.setUserStatus, sa)
	handle(r, http.MethodDelete, "/users/"+idPattern, h.deleteUser, sa)
	handle(r, http.MethodGet, "/credentials", h.listCredentials, sa)
	handle(r, http.MethodPost, "/credentials/"+idPattern+"/review", h.reviewCredential, sa)
}

func (h *Handler) resendCredentials(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.Onboarding.ResendCredentials(r.Context(), a, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *Handler) setUserStatus(w http.ResponseWriter, r *http.Request) {
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
	var in struct {
		Active *bool `json:"active"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Active == nil {
		writeError(w, r, requiredField("active"))
		return
	}

	u, err := h.svc.Users.SetActive(r.Context(), a, id, *in.Active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.Users.Delete(r.Context(), a, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *Handler) listCredentials(w http.ResponseWriter, r *http.Request) {
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

	creds, err := h.svc.Mentors.ListCredentials(r.Context(), a, r.URL.Query().Get("status"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func (h *Handler) reviewCredential(w http.ResponseWriter, r *http.Request) {
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
	var in service.ReviewCredentialInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	cred, err := h.svc.Mentors.ReviewCredential(r.Context(), a, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}
