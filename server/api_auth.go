package main

import (
	"net/http"
	"strings"
	"time"
)

func (a *api) issueSession(w http.ResponseWriter, r *http.Request, status int, userID int64, username, email string) {
	token, exp, err := a.tokens.Issue(userID, username)
	if err != nil {
		a.fail(w, "issue token", err)
		return
	}
	a.setSessionCookie(w, token, exp)
	resp := authResponse{OK: true, Token: token}
	resp.User.ID, resp.User.Username, resp.User.Email = userID, username, email
	writeJSON(w, status, resp)
}

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(w, r, &req); err != nil || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, 400, "invalid payload")
		return
	}
	u, err := a.store.CreateUser(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		a.fail(w, "register", err)
		return
	}
	a.log.Info("user registered", "user_id", u.ID)
	a.issueSession(w, r, 201, u.ID, u.Username, u.Email)
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, 400, "invalid payload")
		return
	}
	u, err := a.store.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		a.fail(w, "login", err)
		return
	}
	a.issueSession(w, r, 200, u.ID, u.Username, u.Email)
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.clearSessionCookie(w)
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *api) handleMe(w http.ResponseWriter, r *http.Request) {
	id, err := a.currentUserID(r)
	if err != nil {
		writeJSON(w, 200, map[string]any{"user": nil})
		return
	}
	u, err := a.store.UserByID(r.Context(), id)
	if err != nil {
		writeJSON(w, 200, map[string]any{"user": nil})
		return
	}
	writeJSON(w, 200, map[string]any{"user": u})
}

func (a *api) authRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", a.withRateLimit("auth", 20, time.Minute, a.handleRegister))
	mux.HandleFunc("POST /api/auth/login", a.withRateLimit("auth", 30, time.Minute, a.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	mux.HandleFunc("GET /api/auth/me", a.handleMe)
	mux.HandleFunc("PATCH /api/auth/me", a.requireAuth(a.handleUpdateMe))
	mux.HandleFunc("POST /api/auth/password", a.withRateLimit("auth", 30, time.Minute, a.requireAuth(a.handleChangePassword)))
}
