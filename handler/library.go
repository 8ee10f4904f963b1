package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"eduplatform-backend/entity"
	"eduplatform-backend/service"
)

func (h *Handler) libraryRoutes(r *mux.Router) {
	sa := entity.RoleSuperAdmin
	publishers := []entity.Role{entity.RoleSuperAdmin, entity.RoleSchoolAdmin, entity.RoleMentor}

	handle(r, http.MethodGet, "/categories", h.listCategories)
	handle(r, http.MethodPost, "/categories", h.createCategory, sa)
	handle(r, http.MethodGet, "/categories/"+idPattern, h.getCategory)
	handle(r, http.MethodPut, "/categories/"+idPattern, h.updateCategory, sa)
	handle(r, http.MethodDelete, "/categories/"+idPattern, h.deleteCategory, sa)

	handle(r, http.MethodGet, "/contents", h.listContents)
	handle(r, http.MethodPost, "/contents", h.createContent, publishers...)
	handle(r, http.MethodGet, "/contents/"+idPattern, h.getContent)
	handle(r, http.MethodPatch, "/contents/"+idPattern, h.updateContent, publishers...)
	handle(r, http.MethodDelete, "/contents/"+idPattern, h.deleteContent, publishers...)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	p, err := page(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cs, err := h.svc.Categories.List(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.CategoryInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Categories.Create(r.Context(), a, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Categories.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
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
	var in service.CategoryInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Categories.Update(r.Context(), a, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.Categories.Delete(r.Context(), a, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *Handler) listContents(w http.ResponseWriter, r *http.Request) {
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
	cs, err := h.svc.Contents.List(r.Context(), a, service.ContentQuery{
		CategoryID: q.Get("category_id"),
		Type:       q.Get("type"),
		AuthorID:   q.Get("author_id"),
		Search:     q.Get("search"),
		Page:       p,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) createContent(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.CreateContentInput
	f, err := decodeWithFile(w, r, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Contents.Create(r.Context(), a, in, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) getContent(w http.ResponseWriter, r *http.Request) {
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

	c, err := h.svc.Contents.Get(r.Context(), a, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) updateContent(w http.ResponseWriter, r *http.Request) {
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
	var in service.UpdateContentInput
	f, err := decodeWithFile(w, r, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Contents.Update(r.Context(), a, id, in, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteContent(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.Contents.Delete(r.Context(), a, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
