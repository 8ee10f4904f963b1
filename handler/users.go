package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"eduplatform-backend/entity"
	"eduplatform-backend/service"
)

func (h *Handler) userRoutes(r *mux.Router) {
	handle(r, http.MethodGet, "/users/me", h.me)
	handle(r, http.MethodPatch, "/users/me", h.updateProfile)
	handle(r, http.MethodPost, "/users/me/avatar", h.uploadAvatar)
	handle(r, http.MethodGet, "/users", h.listUsers, entity.RoleSuperAdmin, entity.RoleSchoolAdmin)
	handle(r, http.MethodGet, "/users/"+idPattern, h.getUser)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.svc.Users.Me(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.UpdateProfileInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.svc.Users.UpdateProfile(r.Context(), a, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := requireFile(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.svc.Users.UploadAvatar(r.Context(), a, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func userQuery(r *http.Request) (service.UserQuery, error) {
	q := r.URL.Query()
	p, err := page(r)
	if err != nil {
		return service.UserQuery{}, err
	}
	verified, err := queryBool(r, "verified")
	if err != nil {
		return service.UserQuery{}, err
	}
	return service.UserQuery{
		Role:     q.Get("role"),
		SchoolID: q.Get("school_id"),
		Verified: verified,
		Search:   q.Get("search"),
		Page:     p,
	}, nil
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := userQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	users, err := h.svc.Users.List(r.Context(), a, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
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

	u, err := h.svc.Users.Get(r.Context(), a, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
