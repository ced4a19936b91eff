package main

import (
	"context"
	"net/http"

	"nestlist/internal/store"
	"nestlist/internal/tree"
)

// publish resolves the root above nodeID and fans ev out to its watchers.
// Errors only cost a notification.
func (a *api) publish(ctx context.Context, nodeID int64, ev Event) {
	if ev.RootID == 0 {
		root, err := a.store.RootOf(ctx, nodeID)
		if err != nil {
			a.log.Warn("publish: resolve root", "node_id", nodeID, "err", err)
			return
		}
		ev.RootID = root
	}
	a.bus.Publish(ev)
}

func (a *api) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	kind, err := tree.ParseKind(req.Kind)
	if err != nil {
		a.fail(w, "create node", err)
		return
	}
	n, err := a.store.CreateNode(r.Context(), actor(r), req.ParentID, kind, req.Name)
	if err != nil {
		a.fail(w, "create node", err)
		return
	}
	writeJSON(w, 201, n)
	a.publish(r.Context(), n.ID, Event{Type: EventNodeCreated, NodeID: &n.ID, Payload: n})
}

func (a *api) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	n, err := a.store.GetNode(r.Context(), actor(r), id)
	if err != nil {
		a.fail(w, "get node", err)
		return
	}
	writeJSON(w, 200, n)
}

func (a *api) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	var patch store.NodePatch
	if err := readJSON(w, r, &patch); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	n, err := a.store.UpdateNode(r.Context(), actor(r), id, patch)
	if err != nil {
		a.fail(w, "update node", err)
		return
	}
	writeJSON(w, 200, n)
	a.publish(r.Context(), n.ID, Event{Type: EventNodeUpdated, NodeID: &n.ID, Payload: n})
}

func (a *api) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	// the root has to be known before the node is gone
	root, rootErr := a.store.RootOf(r.Context(), id)
	removed, err := a.store.DeleteNode(r.Context(), actor(r), id)
	if err != nil {
		a.fail(w, "delete node", err)
		return
	}
	writeJSON(w, 200, deleteResponse{OK: true, Removed: removed})
	if rootErr == nil {
		a.bus.Publish(Event{Type: EventNodeDeleted, RootID: root, NodeID: &id, Payload: map[string]any{"removed": removed}})
	}
}

func (a *api) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	var req moveRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	from, fromErr := a.store.RootOf(r.Context(), id)
	var n tree.Node
	if req.Index != nil {
		n, err = a.store.PlaceNode(r.Context(), actor(r), id, req.ParentID, *req.Index)
	} else {
		n, err = a.store.MoveNode(r.Context(), actor(r), id, req.ParentID)
	}
	if err != nil {
		a.fail(w, "move node", err)
		return
	}
	writeJSON(w, 200, n)
	ev := Event{Type: EventNodeMoved, NodeID: &n.ID, Payload: n}
	to, toErr := a.store.RootOf(r.Context(), n.ID)
	if toErr == nil {
		ev.RootID = to
		a.bus.Publish(ev)
	}
	if fromErr == nil && (toErr != nil || from != to) {
		ev.RootID = from
		a.bus.Publish(ev)
	}
}
