package main

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"nestlist/internal/tree"
)

func (a *api) routes(mux *http.ServeMux) {
	a.authRoutes(mux)
	mux.HandleFunc("GET /api/health", a.handleHealth)

	// read routes can return whole subtrees; the event streams stay uncompressed
	mux.Handle("GET /api/lists", gzhttp.GzipHandler(a.requireAuth(a.handleRoots)))
	mux.Handle("GET /api/lists/{id}", gzhttp.GzipHandler(a.requireAuth(a.handleListDetail)))
	mux.Handle("GET /api/lists/{id}/tree", gzhttp.GzipHandler(a.requireAuth(a.handleListTree)))
	mux.HandleFunc("PUT /api/lists/{id}/items/reorder", a.requireAuth(a.reorder(tree.KindItem)))
	mux.HandleFunc("PUT /api/lists/{id}/children/reorder", a.requireAuth(a.reorder(tree.KindList)))
	mux.HandleFunc("GET /api/lists/{id}/events", a.requireAuth(a.handleListEvents))
	mux.HandleFunc("GET /api/lists/{id}/ws", a.requireAuth(a.handleListWS))

	mux.HandleFunc("GET /api/lists/{id}/users", a.requireAuth(a.handleListUsers))
	mux.HandleFunc("POST /api/lists/{id}/share", a.requireAuth(a.handleShare))
	mux.HandleFunc("DELETE /api/lists/{id}/share/{userId}", a.requireAuth(a.handleUnshare))

	mux.HandleFunc("POST /api/nodes", a.requireAuth(a.handleCreateNode))
	mux.HandleFunc("GET /api/nodes/{id}", a.requireAuth(a.handleGetNode))
	mux.HandleFunc("PATCH /api/nodes/{id}", a.requireAuth(a.handleUpdateNode))
	mux.HandleFunc("DELETE /api/nodes/{id}", a.requireAuth(a.handleDeleteNode))
	mux.HandleFunc("PUT /api/nodes/{id}/move", a.requireAuth(a.handleMoveNode))
}

// handler is the full middleware chain around the API.
func (a *api) handler() http.Handler {
	mux := http.NewServeMux()
	a.routes(mux)
	return a.newCORS().Handler(withLogging(a.log, mux))
}
