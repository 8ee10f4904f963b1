package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"eduplatform-backend/service"
)

func (h *Handler) authRoutes(r *mux.Router) {
	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", h.refresh).Methods(http.MethodPost)
	r.HandleFunc("/auth/forgot-password", h.forgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/auth/reset-password", h.resetPassword).Methods(http.MethodPost)
}

func (h *Handler) privateAuthRoutes(r *mux.Router) {
	handle(r, http.MethodPost, "/auth/change-password", h.changePassword)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.Auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.Auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.Auth.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.Auth.ForgotPassword(r.Context(), in.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "if the account exists, a reset link was sent"})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in service.ResetPasswordInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.Auth.ResetPassword(r.Context(), in); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.ChangePasswordInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.Auth.ChangePassword(r.Context(), a, in); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
