// Package httpapi serves the session engine over HTTP with chi.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	gsmw "github.com/MrEthical07/goSession/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 10 * time.Second

// Service is the engine surface the routes use. *goSession.Engine satisfies it.
type Service interface {
	Login(ctx context.Context, email, password string) (goSession.TokenPair, error)
	Register(ctx context.Context, p goSession.Profile) (goSession.TokenPair, error)
	Refresh(ctx context.Context, userID, refreshToken string) (goSession.TokenPair, error)
	Logout(ctx context.Context, userID string) (goSession.LogoutResult, error)
	Authenticate(ctx context.Context, accessToken string) (*goSession.Identity, error)
}

type Options struct {
	Log            *zap.Logger
	RequestTimeout time.Duration
	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler
	// Ready backs GET /healthz; nil reports ready.
	Ready func(ctx context.Context) error
}

type API struct {
	svc  Service
	opts Options
	log  *zap.Logger
}

func New(svc Service, opts Options) (*API, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &API{svc: svc, opts: opts, log: log.Named("http")}, nil
}

// Routes builds the chi router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.opts.RequestTimeout))

	r.Get("/healthz", a.handleHealth)
	if a.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.opts.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(gsmw.ClientIP)
		r.Post("/login", a.handleLogin)
		r.Post("/register", a.handleRegister)
		r.Post("/refresh", a.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(gsmw.Guard(a.svc))
			r.Post("/logout", a.handleLogout)
			r.Get("/profile", a.handleProfile)
		})
	})

	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
