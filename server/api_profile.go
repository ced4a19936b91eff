package main

import (
	"net/http"
	"strings"
)

// PATCH /api/auth/me { email }
func (a *api) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email *string `json:"email"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	if req.Email == nil {
		writeError(w, 400, "nothing to update")
		return
	}
	if v := strings.TrimSpace(*req.Email); v != "" && !strings.Contains(v, "@") {
		writeError(w, 400, "invalid email")
		return
	}
	u, err := a.store.UpdateEmail(r.Context(), actor(r), *req.Email)
	if err != nil {
		a.fail(w, "update me", err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "user": u})
}

// POST /api/auth/password { current, password }
func (a *api) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current  string `json:"current"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil || req.Current == "" {
		writeError(w, 400, "invalid payload")
		return
	}
	if err := a.store.ChangePassword(r.Context(), actor(r), req.Current, req.Password); err != nil {
		a.fail(w, "change password", err)
		return
	}
	a.log.Info("password changed", "user_id", actor(r))
	writeJSON(w, 200, map[string]any{"ok": true})
}
