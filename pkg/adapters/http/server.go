package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/facet"
	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/registry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds every request body. Fragments are capped far below this.
const maxBodyBytes = 1 << 20

// Engine is the composition core served over HTTP.
type Engine interface {
	ComposeAvatar(ctx context.Context, req domain.LayerRequest) (*domain.CompositeResult, error)
	ComposeRandom(ctx context.Context) (*domain.CompositeResult, error)
}

// Catalog lists attributes for GET /attributes.
type Catalog interface {
	List(ctx context.Context) ([]registry.AttributeView, error)
}

// Admin performs attribute mutations. Its routes are mounted only when set.
type Admin interface {
	CreateAttribute(ctx context.Context, key string, variations []registry.NewVariation, colors []string) (*domain.Category, error)
	AddVariations(ctx context.Context, attributeID string, variations []registry.NewVariation) (*domain.Category, error)
	AddColors(ctx context.Context, attributeID string, colors []string) (*domain.Category, error)
	UpdateVariation(ctx context.Context, attributeID, variationID string, update registry.NewVariation) (*domain.Category, error)
}

// Server holds the handlers of the facet HTTP API.
type Server struct {
	Engine  Engine
	Catalog Catalog
	Streams *StreamManager

	admin   Admin
	metrics http.Handler
	events  <-chan []string
	cors    bool
	logger  *slog.Logger
}

// Option configures the handler built by NewHandler.
type Option func(*Server)

// WithAdmin mounts the attribute mutation routes.
func WithAdmin(admin Admin) Option {
	return func(s *Server) {
		s.admin = admin
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithEventSource feeds /events with invalidation batches, typically from Engine.Watch.
// Without it /events answers 501.
func WithEventSource(events <-chan []string) Option {
	return func(s *Server) {
		s.events = events
	}
}

// WithCORS toggles the permissive CORS headers. Enabled by default.
func WithCORS(enabled bool) Option {
	return func(s *Server) {
		s.cors = enabled
	}
}

// WithLogger sets the logger for request and error logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, catalog Catalog, opts ...Option) http.Handler {
	server := &Server{
		Engine:  engine,
		Catalog: catalog,
		cors:    true,
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.logger == nil {
		server.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	server.Streams = NewStreamManager(server.logger)
	if server.events != nil {
		go server.Streams.Pump(server.events)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(server.logRequests)

	// Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		spec, err := rawSpec()
		if err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			server.logger.Error("Failed to load OpenAPI spec", "err", err)
			return
		}
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/events", server.SubscribeEvents)
	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(trimBodies)
		r.Get("/avatars/create", server.CreateRandomAvatar)
		r.Post("/avatars/create", server.CreateAvatar)
		r.Get("/attributes", server.ListAttributes)

		if server.admin != nil {
			r.Put("/attributes", server.CreateAttribute)
			r.Put("/attributes/{id}/variations", server.AddVariations)
			r.Put("/attributes/{id}/colors", server.AddColors)
			r.Patch("/attributes/{id}/variations/{variationId}", server.UpdateVariation)
		}
	})

	if !server.cors {
		return r
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		w.Header().Set("Access-Control-Expose-Headers", layersHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// trimBodies strips surrounding whitespace from every string in a JSON body.
// Bodies that are not JSON pass through untouched so handlers can report them.
func trimBodies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		var doc any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&doc); err == nil {
			if trimmed, err := json.Marshal(trimStrings(doc)); err == nil {
				raw = trimmed
			}
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))
		r.ContentLength = int64(len(raw))
		next.ServeHTTP(w, r)
	})
}

func trimStrings(v any) any {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for i := range t {
			t[i] = trimStrings(t[i])
		}
	case map[string]any:
		for k := range t {
			t[k] = trimStrings(t[k])
		}
	}
	return v
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>facet API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "facet-http",
		"version":     strings.TrimSpace(facet.Version),
		"api_version": apiVersion,
	})
}

// SubscribeEvents handles the GET /events request (SSE).
// Each event carries the variation ids dropped from the fragment cache.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		s.writeError(w, http.StatusNotImplemented, CodeUnsupported, "catalog change events are not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: invalidate\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
