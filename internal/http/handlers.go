package httpapi

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/roniherschmann/linkgate/internal/config"
	"github.com/roniherschmann/linkgate/internal/core"
	"github.com/roniherschmann/linkgate/internal/metrics"
	"github.com/roniherschmann/linkgate/internal/session"
)

const sessionCookie = "lg_sid"

type Router struct {
	cfg      config.Config
	svc      *core.Service
	admins   *session.Admins
	limiter  *rateLimiter
	spam     *spamGuard
	validate *validator.Validate
}

func NewRouter(cfg config.Config, svc *core.Service, admins *session.Admins) http.Handler {
	r := chi.NewRouter()
	// Logging middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", dur).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	api := &Router{
		cfg:      cfg,
		svc:      svc,
		admins:   admins,
		limiter:  newRateLimiter(cfg.CreateRateRPS, cfg.CreateRateBurst),
		spam:     newSpamGuard(cfg.SpamWindow, cfg.SpamMax),
		validate: validator.New(),
	}

	r.MethodFunc(http.MethodGet, "/healthz", api.handleHealth)
	r.MethodFunc(http.MethodGet, "/readyz", api.handleReady)

	// Metrics
	r.MethodFunc(http.MethodGet, "/metrics", metrics.Handler)

	// Public endpoints
	r.Group(func(r chi.Router) {
		r.MethodFunc(http.MethodPost, "/api/shorten", api.handleShorten)
		r.MethodFunc(http.MethodGet, "/api/public-stats", api.handlePublicStats)
	})

	// Gate, once per configured prefix
	for _, prefix := range cfg.GatePrefixes {
		g := &gate{Router: api, prefix: prefix}
		r.With(api.withSession).Route(prefix, func(r chi.Router) {
			r.Get("/{code}", g.handleEnter)
			r.Get("/{code}/step/{step}", g.handleStep)
		})
	}

	r.With(api.withSession).Route("/admin", api.mountAdmin)

	return r
}

type shortenReq struct {
	URL string `json:"url" validate:"required"`
}

type shortenResp struct {
	ShortCode   string `json:"short_code"`
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
}

func (rt *Router) handleShorten(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if ok, wait := rt.limiter.Allow(ip); !ok {
		metrics.ShortenRejected.WithLabelValues("rate_limited").Inc()
		writeJSON(w, map[string]any{
			"error":       "rate limit exceeded",
			"retry_after": int(math.Ceil(wait.Seconds())),
		}, http.StatusTooManyRequests)
		return
	}

	var req shortenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if err := rt.validate.Struct(req); err != nil {
		metrics.ShortenRejected.WithLabelValues("missing_url").Inc()
		writeError(w, "url is required", http.StatusBadRequest)
		return
	}
	if core.IsAutomatedAgent(r.UserAgent()) {
		metrics.ShortenRejected.WithLabelValues("bot").Inc()
		writeError(w, "automated requests are not accepted", http.StatusForbidden)
		return
	}
	if _, err := rt.svc.CheckURL(req.URL); err != nil {
		metrics.ShortenRejected.WithLabelValues("bad_url").Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !rt.spam.Allow(ip) {
		metrics.ShortenRejected.WithLabelValues("spam").Inc()
		writeError(w, "too many requests in a short time", http.StatusTooManyRequests)
		return
	}

	link, err := rt.svc.Shorten(r.Context(), req.URL)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("shorten")
		writeError(w, "could not create link", http.StatusInternalServerError)
		return
	}
	writeJSON(w, shortenResp{
		ShortCode:   link.ShortCode,
		ShortURL:    rt.cfg.BaseURL + rt.cfg.GatePrefixes[0] + "/" + link.ShortCode,
		OriginalURL: link.OriginalURL,
	}, http.StatusCreated)
	metrics.Shortens.Inc()
}

func (rt *Router) handlePublicStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, rt.svc.Stats(r.Context()), http.StatusOK)
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := rt.svc.Ping(ctx); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("readiness check")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

type ctxKey int

const sessionIDKey ctxKey = iota

// withSession makes sure the browser carries a session id cookie.
func (rt *Router) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(sessionCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				sid = c.Value
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				Secure:   rt.cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionIDKey, sid)))
	})
}

func sessionID(r *http.Request) string {
	sid, _ := r.Context().Value(sessionIDKey).(string)
	return sid
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, map[string]string{"error": msg}, status)
}

func clientIP(r *http.Request) string {
	// Try X-Forwarded-For or Real-IP first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if rip := r.Header.Get("X-Real-Ip"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
