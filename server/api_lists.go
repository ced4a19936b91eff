package main

import (
	"net/http"

	"nestlist/internal/tree"
)

func (a *api) handleRoots(w http.ResponseWriter, r *http.Request) {
	lists, err := a.store.Roots(r.Context(), actor(r))
	if err != nil {
		a.fail(w, "roots", err)
		return
	}
	writeJSON(w, 200, lists)
}

func (a *api) handleListDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	d, err := a.store.ListDetail(r.Context(), actor(r), id)
	if err != nil {
		a.fail(w, "list detail", err)
		return
	}
	writeJSON(w, 200, d)
}

func (a *api) handleListTree(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	b, err := a.store.Subtree(r.Context(), actor(r), id)
	if err != nil {
		a.fail(w, "list tree", err)
		return
	}
	writeJSON(w, 200, b)
}

func (a *api) reorder(kind tree.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r.PathValue("id"))
		if err != nil {
			writeError(w, 400, "bad id")
			return
		}
		var req reorderRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, 400, "invalid payload")
			return
		}
		if err := a.store.ReorderSiblings(r.Context(), actor(r), id, kind, req.IDs); err != nil {
			a.fail(w, "reorder", err)
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true})
		a.publish(r.Context(), id, Event{Type: EventReordered, NodeID: &id,
			Payload: map[string]any{"kind": kind, "ids": req.IDs}})
	}
}

// streamRoot checks read access and resolves the root to subscribe to.
func (a *api) streamRoot(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return 0, false
	}
	if err := a.store.CanRead(r.Context(), actor(r), id); err != nil {
		a.fail(w, "events", err)
		return 0, false
	}
	root, err := a.store.RootOf(r.Context(), id)
	if err != nil {
		a.fail(w, "events", err)
		return 0, false
	}
	return root, true
}

func (a *api) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if root, ok := a.streamRoot(w, r); ok {
		a.bus.ServeSSE(w, r, root)
	}
}

func (a *api) handleListWS(w http.ResponseWriter, r *http.Request) {
	if root, ok := a.streamRoot(w, r); ok {
		if err := a.bus.ServeWS(w, r, root); err != nil {
			a.log.Warn("websocket upgrade", "err", err)
		}
	}
}
