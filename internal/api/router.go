package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/docs", h.ListDocs)
	r.Get("/docs/*", h.GetDoc)

	// Search and glossary.
	r.Get("/search", h.Search)
	r.Get("/glossary", h.Glossary)

	// Specs.
	r.Get("/specs", h.ListSpecs)
	r.Get("/specs/{specId}", h.GetSpec)

	// Link graph.
	r.Get("/backlinks/*", h.Backlinks)
	r.Post("/backlinks", h.UpdateBacklinks)
	r.Get("/validate", h.ValidateLinks)
	r.Get("/orphans", h.Orphans)

	// Index maintenance.
	r.Post("/rebuild", h.Rebuild)

	// SSE endpoint (protected by same auth middleware).
	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
