package main

import (
	"net/http"

	"nestlist/internal/store"
)

func (a *api) handleListUsers(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	members, err := a.store.Members(r.Context(), actor(r), id)
	if err != nil {
		a.fail(w, "list users", err)
		return
	}
	writeJSON(w, 200, members)
}

func (a *api) handleShare(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	var req shareRequest
	if err := readJSON(w, r, &req); err != nil || req.Username == "" {
		writeError(w, 400, "invalid payload")
		return
	}
	perm, err := store.ParsePermission(req.Permission)
	if err != nil {
		a.fail(w, "share", err)
		return
	}
	m, err := a.store.Share(r.Context(), actor(r), id, req.Username, perm)
	if err != nil {
		a.fail(w, "share", err)
		return
	}
	writeJSON(w, 200, m)
	a.bus.Publish(Event{Type: EventShared, RootID: id, Payload: m})
}

func (a *api) handleUnshare(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	userID, err := parseID(r.PathValue("userId"))
	if err != nil {
		writeError(w, 400, "bad user id")
		return
	}
	if err := a.store.Unshare(r.Context(), actor(r), id, userID); err != nil {
		a.fail(w, "unshare", err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
