package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
	"github.com/rs/cors"

	"nestlist/internal/auth"
	"nestlist/internal/store"
	"nestlist/internal/tree"
)

type api struct {
	store  *store.Store
	log    *slog.Logger
	bus    *EventBus
	tokens *auth.Issuer
	cfg    Config
	// rate limiting buckets per IP:key
	rlMu sync.Mutex
	rl   map[string]*rateBucket
}

func newAPI(st *store.Store, tokens *auth.Issuer, cfg Config, log *slog.Logger) *api {
	return &api{store: st, log: log, bus: NewEventBus(), tokens: tokens, cfg: cfg, rl: map[string]*rateBucket{}}
}

type rateBucket struct {
	count   int
	resetAt time.Time
}

func (a *api) allow(ip, key string, max int, window time.Duration) bool {
	now := time.Now()
	rk := ip + ":" + key
	a.rlMu.Lock()
	defer a.rlMu.Unlock()
	b, ok := a.rl[rk]
	if !ok || now.After(b.resetAt) {
		b = &rateBucket{resetAt: now.Add(window)}
		a.rl[rk] = b
	}
	if b.count >= max {
		return false
	}
	b.count++
	return true
}

func (a *api) withRateLimit(name string, max int, window time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !a.allow(ip, name, max, window) {
			writeProblem(w, 429, "rate_limited", "too many requests")
			return
		}
		next(w, r)
	}
}

func parseID(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, reason, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg, "reason": reason})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	reason := "internal"
	switch status {
	case 400:
		reason = "validation_error"
	case 401:
		reason = "unauthorized"
	case 403:
		reason = "forbidden"
	case 404:
		reason = "not_found"
	}
	writeProblem(w, status, reason, msg)
}

// errorStatus maps domain errors to a status and reason code. CyclicMove is
// checked before InvalidTarget since a self-move matches both.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, tree.ErrValidation):
		return 400, "validation_error"
	case errors.Is(err, tree.ErrInvalidOrder):
		return 400, "invalid_order"
	case errors.Is(err, tree.ErrCyclicMove):
		return 400, "cyclic_move"
	case errors.Is(err, tree.ErrInvalidTarget):
		return 400, "invalid_target"
	case errors.Is(err, tree.ErrNotFound):
		return 404, "not_found"
	case errors.Is(err, tree.ErrForbidden):
		return 403, "forbidden"
	case errors.Is(err, store.ErrUserExists):
		return 409, "validation_error"
	case errors.Is(err, store.ErrBadCredentials):
		return 401, "unauthorized"
	}
	return 500, "internal"
}

// fail writes err to the client. Only unexpected errors are logged.
func (a *api) fail(w http.ResponseWriter, op string, err error) {
	status, reason := errorStatus(err)
	if status == 500 {
		a.log.Error(op, "err", err)
		writeProblem(w, status, reason, "internal error")
		return
	}
	a.log.Debug(op, "reason", reason, "err", err)
	writeProblem(w, status, reason, err.Error())
}

// cookie/session helpers
func (a *api) sameSite() http.SameSite {
	switch strings.ToLower(a.cfg.Auth.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (a *api) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.Auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cfg.Auth.CookieSecure,
		SameSite: a.sameSite(),
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
	})
}

func (a *api) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.Auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cfg.Auth.CookieSecure,
		SameSite: a.sameSite(),
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// sessionToken reads a bearer token, falling back to the session cookie.
func (a *api) sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(a.cfg.Auth.CookieName); err == nil {
		return c.Value
	}
	return ""
}

type ctxKey int

const actorKey ctxKey = iota

func (a *api) currentUserID(r *http.Request) (int64, error) {
	if id, ok := r.Context().Value(actorKey).(int64); ok {
		return id, nil
	}
	tok := a.sessionToken(r)
	if tok == "" {
		return 0, auth.ErrInvalidToken
	}
	claims, err := a.tokens.Parse(tok)
	if err != nil {
		return 0, err
	}
	return claims.UserID()
}

// requireAuth wraps a handler and enforces a valid session
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := a.currentUserID(r)
		if err != nil {
			writeError(w, 401, "unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), actorKey, id)))
	}
}

// actor is the authenticated user id; only valid behind requireAuth.
func actor(r *http.Request) int64 {
	id, _ := r.Context().Value(actorKey).(int64)
	return id
}

func (a *api) newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: a.cfg.CORS.Origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}

func withLogging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = ulid.Make().String()
		}
		w.Header().Set("X-Request-Id", reqID)
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Info("http", "method", r.Method, "path", r.URL.Path, "status", sw.status,
			"dur_ms", time.Since(start).Milliseconds(), "req_id", reqID)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }

// Implement http.Flusher if underlying writer supports it (needed for SSE)
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack unsupported")
	}
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
