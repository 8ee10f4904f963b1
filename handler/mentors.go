package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"eduplatform-backend/entity"
	"eduplatform-backend/service"
)

func (h *Handler) mentorRoutes(r *mux.Router) {
	handle(r, http.MethodPost, "/mentors", h.onboardMentor, entity.RoleSuperAdmin, entity.RoleSchoolAdmin)
	handle(r, http.MethodGet, "/mentors", h.listMentors)
	handle(r, http.MethodPost, "/mentors/me/credentials", h.uploadCredential, entity.RoleMentor)
	handle(r, http.MethodGet, "/mentors/me/credentials", h.myCredentials, entity.RoleMentor)
}

func (h *Handler) onboardMentor(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.OnboardMentorInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.Mentors.OnboardMentor(r.Context(), a, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) listMentors(w http.ResponseWriter, r *http.Request) {
	p, err := page(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	verified, err := queryBool(r, "verified")
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	mentors, err := h.svc.Mentors.List(r.Context(), service.MentorQuery{
		Verified: verified,
		SchoolID: q.Get("school_id"),
		Search:   q.Get("search"),
		Page:     p,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mentors)
}

func (h *Handler) uploadCredential(w http.ResponseWriter, r *http.Request) {
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

	cred, err := h.svc.Mentors.UploadCredential(r.Context(), a, r.FormValue("title"), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cred)
}

func (h *Handler) myCredentials(w http.ResponseWriter, r *http.Request) {
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

	creds, err := h.svc.Mentors.ListMyCredentials(r.Context(), a, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}
