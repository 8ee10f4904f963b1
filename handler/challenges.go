package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/service"
)

func (h *Handler) challengeRoutes(r *mux.Router) {
	authors := []entity.Role{entity.RoleSuperAdmin, entity.RoleSchoolAdmin, entity.RoleMentor}

	handle(r, http.MethodGet, "/challenges", h.listChallenges)
	handle(r, http.MethodPost, "/challenges", h.createChallenge, authors...)
	handle(r, http.MethodGet, "/challenges/completions/me", h.myCompletions, entity.RoleStudent)
	handle(r, http.MethodGet, "/challenges/"+idPattern, h.getChallenge)
	handle(r, http.MethodPut, "/challenges/"+idPattern, h.updateChallenge, authors...)
	handle(r, http.MethodDelete, "/challenges/"+idPattern, h.deleteChallenge, authors...)
	handle(r, http.MethodPost, "/challenges/"+idPattern+"/complete", h.completeChallenge, entity.RoleStudent)
	handle(r, http.MethodGet, "/challenges/"+idPattern+"/completions", h.listCompletions, authors...)
	handle(r, http.MethodGet, "/leaderboard", h.leaderboard)
}

func (h *Handler) listChallenges(w http.ResponseWriter, r *http.Request) {
	p, err := page(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	open, err := queryBool(r, "open")
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	cs, err := h.svc.Challenges.List(r.Context(), service.ChallengeQuery{
		CategoryID: q.Get("category_id"),
		Difficulty: q.Get("difficulty"),
		OpenOnly:   open != nil && *open,
		Page:       p,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) createChallenge(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.ChallengeInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Challenges.Create(r.Context(), a, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) getChallenge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Challenges.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) updateChallenge(w http.ResponseWriter, r *http.Request) {
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
	var in service.ChallengeInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Challenges.Update(r.Context(), a, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteChallenge(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.Challenges.Delete(r.Context(), a, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *Handler) completeChallenge(w http.ResponseWriter, r *http.Request) {
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
	var in service.CompleteChallengeInput
	if r.ContentLength != 0 {
		if err := decode(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
	}

	cc, err := h.svc.Challenges.Complete(r.Context(), a, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cc)
}

func (h *Handler) listCompletions(w http.ResponseWriter, r *http.Request) {
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
	p, err := page(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cs, err := h.svc.Challenges.ListCompletions(r.Context(), a, id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) myCompletions(w http.ResponseWriter, r *http.Request) {
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

	cs, err := h.svc.Challenges.MyCompletions(r.Context(), a, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			writeError(w, r, errs.ErrInvalidPage)
			return
		}
		limit = n
	}

	entries, err := h.svc.Challenges.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
