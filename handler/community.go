package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"eduplatform-backend/entity"
	"eduplatform-backend/service"
)

func (h *Handler) communityRoutes(r *mux.Router) {
	handle(r, http.MethodGet, "/communities", h.listCommunities)
	handle(r, http.MethodPost, "/communities", h.createCommunity)
	handle(r, http.MethodGet, "/communities/"+idPattern, h.getCommunity)
	handle(r, http.MethodDelete, "/communities/"+idPattern, h.deleteCommunity)
	handle(r, http.MethodPost, "/communities/"+idPattern+"/join", h.joinCommunity)
	handle(r, http.MethodPost, "/communities/"+idPattern+"/leave", h.leaveCommunity)
	handle(r, http.MethodPost, "/communities/"+idPattern+"/members", h.addCommunityMember)

	handle(r, http.MethodGet, "/posts", h.listPosts)
	handle(r, http.MethodPost, "/posts", h.createPost)
	handle(r, http.MethodGet, "/posts/"+idPattern, h.getPost)
	handle(r, http.MethodPatch, "/posts/"+idPattern, h.updatePost)
	handle(r, http.MethodDelete, "/posts/"+idPattern, h.deletePost)
	handle(r, http.MethodPost, "/posts/"+idPattern+"/like", h.likePost)
	handle(r, http.MethodDelete, "/posts/"+idPattern+"/like", h.unlikePost)
}

func (h *Handler) listCommunities(w http.ResponseWriter, r *http.Request) {
	p, err := page(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cs, err := h.svc.Communities.List(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) createCommunity(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.CommunityInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Communities.Create(r.Context(), a, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) getCommunity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Communities.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCommunity(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.Communities.Delete(r.Context(), a, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *Handler) joinCommunity(w http.ResponseWriter, r *http.Request) {
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

	c, err := h.svc.Communities.Join(r.Context(), a, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) addCommunityMember(w http.ResponseWriter, r *http.Request) {
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
	var in service.AddMemberInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Communities.AddMember(r.Context(), a, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) leaveCommunity(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.Communities.Leave(r.Context(), a, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
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
	posts, err := h.svc.Posts.List(r.Context(), a, service.PostQuery{
		CommunityID: q.Get("community_id"),
		AuthorID:    q.Get("author_id"),
		Page:        p,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.CreatePostInput
	f, err := decodeWithFile(w, r, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.svc.Posts.Create(r.Context(), a, in, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
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

	post, err := h.svc.Posts.Get(r.Context(), a, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
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
	var in service.UpdatePostInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.svc.Posts.Update(r.Context(), a, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.Posts.Delete(r.Context(), a, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *Handler) likePost(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.svc.Posts.Like)
}

func (h *Handler) unlikePost(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.svc.Posts.Unlike)
}

func (h *Handler) react(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, a *service.Actor, id primitive.ObjectID) (*entity.Post, error)) {
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

	post, err := op(r.Context(), a, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}
