// Package handler exposes the services over REST under /api/v1.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/jwt"
	"eduplatform-backend/metrics"
	"eduplatform-backend/service"
)

const idPattern = "{id:[0-9a-fA-F]{24}}"

type Options struct {
	Services *service.Services
	JWT      *jwt.JWT
	// Ping reports backend health for /healthz.
	Ping func(ctx context.Context) error
	// FilesDir is served under /files/ when blobs are stored locally.
	FilesDir       string
	RateLimitRPS   float64
	RateLimitBurst int
}

type Handler struct {
	svc     *service.Services
	jwt     *jwt.JWT
	ping    func(ctx context.Context) error
	limiter *RateLimiter
	router  *mux.Router
}

func New(o Options) *Handler {
	h := &Handler{
		svc:     o.Services,
		jwt:     o.JWT,
		ping:    o.Ping,
		limiter: NewRateLimiter(o.RateLimitRPS, o.RateLimitBurst),
	}

	r := mux.NewRouter()
	r.Use(requestID, recovery, accessLog, metrics.InstrumentHandler)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errs.ErrNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	if o.FilesDir != "" {
		r.PathPrefix("/files/").Handler(http.StripPrefix("/files/", fileServer(o.FilesDir))).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	public := api.NewRoute().Subrouter()
	public.Use(h.limiter.Handler)
	h.authRoutes(public)
	public.HandleFunc("/schools/register", h.onboardSchool).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(h.Authenticate)
	h.privateAuthRoutes(private)
	h.userRoutes(private)
	h.schoolRoutes(private)
	h.superAdminRoutes(private)
	h.mentorRoutes(private)
	h.parentRoutes(private)
	h.transactionRoutes(private)
	h.libraryRoutes(private)
	h.challengeRoutes(private)
	h.communityRoutes(private)

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// StartCleanup drops idle rate limiter entries until ctx is done.
func (h *Handler) StartCleanup(ctx context.Context, interval time.Duration) {
	h.limiter.StartCleanup(ctx, interval)
}

// handle registers fn on r, restricted to roles when any are given.
func handle(r *mux.Router, method, path string, fn http.HandlerFunc, roles ...entity.Role) {
	var next http.Handler = fn
	if len(roles) > 0 {
		next = RequireRoles(roles...)(next)
	}
	r.Handle(path, next).Methods(method)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fileServer serves local blobs without directory listings.
func fileServer(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
