package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	loginGuard "github.com/MrEthical07/loginGuard"
	"github.com/MrEthical07/loginGuard/logging"
	"github.com/MrEthical07/loginGuard/middleware"
	"github.com/gorilla/mux"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Config wires the router.
type Config struct {
	Engine  *loginGuard.Engine
	Logger  *slog.Logger
	Version string

	// TrustProxy honours X-Forwarded-For when deriving client IPs.
	TrustProxy bool
	// AuthRateLimit applies per IP to signUp and logIn.
	// Zero uses middleware.AuthLimit.
	AuthRateLimit middleware.RateLimitConfig

	// Checks are run by /readyz in addition to the Redis health check.
	Checks map[string]ReadinessCheck
	// Metrics is mounted on /metrics when non-nil.
	Metrics http.Handler
}

type api struct {
	engine    *loginGuard.Engine
	cookies   cookieJar
	version   string
	startTime time.Time
	checks    map[string]ReadinessCheck
}

// NewRouter builds the HTTP surface. Global middleware order: request
// logging, client fingerprint capture, CSRF.
func NewRouter(cfg Config) *mux.Router {
	engineCfg := cfg.Engine.Config()
	a := &api{
		engine:    cfg.Engine,
		cookies:   newCookieJar(engineCfg),
		version:   cfg.Version,
		startTime: time.Now(),
		checks:    cfg.Checks,
	}

	limit := cfg.AuthRateLimit
	if limit.RequestsPerWindow <= 0 || limit.Window <= 0 {
		limit = middleware.AuthLimit
	}
	rateLimit := middleware.RateLimit(limit, middleware.IPKey(cfg.TrustProxy))
	requireSession := middleware.RequireSession(cfg.Engine)

	r := mux.NewRouter()
	r.Use(
		logging.HTTPMiddleware(cfg.Logger),
		middleware.ClientInfo(cfg.TrustProxy),
		middleware.CSRF(cfg.Engine),
	)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteStatus(w, req, http.StatusNotFound, "Cannot "+req.Method+" "+req.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteStatus(w, req, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	auth := r.PathPrefix("/auth").Subrouter()
	auth.Handle("/signUp", rateLimit(requireSession(http.HandlerFunc(a.signUp)))).Methods(http.MethodPost)
	auth.Handle("/logIn", rateLimit(http.HandlerFunc(a.logIn))).Methods(http.MethodPost)
	auth.Handle("/checkSession", requireSession(http.HandlerFunc(a.checkSession))).Methods(http.MethodGet)
	auth.HandleFunc("/logOut", a.logOut).Methods(http.MethodPost)
	auth.HandleFunc("/changePassword", a.changePassword).Methods(http.MethodPost)
	auth.HandleFunc("/checkVerifyToken", a.checkVerifyToken).Methods(http.MethodGet)

	r.HandleFunc("/livez", a.livez).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyz).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	return r
}
