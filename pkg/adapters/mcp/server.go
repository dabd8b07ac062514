package mcp

import (
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
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CatalogURI is the resource exposing the attribute catalog.
const CatalogURI = "facet://catalog"

// AvatarResponse is the structured output of the compose tools.
type AvatarResponse struct {
	SVG    string              `json:"svg" jsonschema_description:"The composite SVG document"`
	Layers domain.LayerRequest `json:"layers" jsonschema_description:"The drawn layers, bottom-most first"`
}

// ComposeArgs are the arguments of compose_avatar.
type ComposeArgs struct {
	Layers []domain.Layer `json:"layers"`
}

// Engine defines the composition operations exposed as tools.
type Engine interface {
	ComposeAvatar(ctx context.Context, req domain.LayerRequest) (*domain.CompositeResult, error)
	ComposeRandom(ctx context.Context) (*domain.CompositeResult, error)
}

// Catalog lists the attributes exposed by list_catalog and facet://catalog.
type Catalog interface {
	List(ctx context.Context) ([]registry.AttributeView, error)
}

// Server wraps the facet Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	catalog   Catalog
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, catalog Catalog, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		catalog:   catalog,
		mcpServer: server.NewMCPServer("facet-mcp", strings.TrimSpace(facet.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: compose_avatar
	composeTool := mcp.NewTool("compose_avatar",
		mcp.WithDescription("Compose an avatar from variation ids, bottom-most layer first. Each layer may override its color with a #RGB or #RRGGBB hex string."),
		mcp.WithArray("layers",
			mcp.Required(),
			mcp.Description("Layers to draw, bottom-most first"),
			mcp.MinItems(1),
			mcp.Items(map[string]any{
				"type":     "object",
				"required": []string{"variation"},
				"properties": map[string]any{
					"variation": map[string]any{"type": "string", "description": "Variation id"},
					"color":     map[string]any{"type": "string", "description": "Optional hex color override"},
				},
			}),
		),
		mcp.WithOutputSchema[AvatarResponse](),
	)
	s.mcpServer.AddTool(composeTool, mcp.NewStructuredToolHandler(s.handleCompose))

	// TOOL: random_avatar
	randomTool := mcp.NewTool("random_avatar",
		mcp.WithDescription("Compose a random avatar: one variation and one color per attribute. The drawn layers are returned so the avatar can be reproduced with compose_avatar."),
		mcp.WithOutputSchema[AvatarResponse](),
	)
	s.mcpServer.AddTool(randomTool, mcp.NewStructuredToolHandler(s.handleRandom))

	// TOOL: list_catalog
	s.mcpServer.AddTool(mcp.NewTool("list_catalog",
		mcp.WithDescription("List every attribute with its variations and colors."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := s.catalogJSON(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list catalog failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func (s *Server) handleCompose(ctx context.Context, request mcp.CallToolRequest, args ComposeArgs) (AvatarResponse, error) {
	req := make(domain.LayerRequest, len(args.Layers))
	for i, l := range args.Layers {
		req[i] = domain.Layer{
			VariationID: strings.TrimSpace(l.VariationID),
			Color:       strings.TrimSpace(l.Color),
		}
	}

	result, err := s.engine.ComposeAvatar(ctx, req)
	if err != nil {
		s.logger.Warn("MCP compose_avatar failed", "layers", len(req), "err", err)
		return AvatarResponse{}, fmt.Errorf("compose failed: %w", err)
	}
	return AvatarResponse{SVG: result.SVG, Layers: result.Layers}, nil
}

func (s *Server) handleRandom(ctx context.Context, request mcp.CallToolRequest, _ struct{}) (AvatarResponse, error) {
	result, err := s.engine.ComposeRandom(ctx)
	if err != nil {
		s.logger.Error("MCP random_avatar failed", "err", err)
		return AvatarResponse{}, fmt.Errorf("random compose failed: %w", err)
	}
	return AvatarResponse{SVG: result.SVG, Layers: result.Layers}, nil
}

func (s *Server) catalogJSON(ctx context.Context) ([]byte, error) {
	attrs, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	if attrs == nil {
		attrs = []registry.AttributeView{}
	}
	return json.Marshal(attrs)
}

func (s *Server) registerResources() {
	// EXPOSE: facet://catalog
	s.mcpServer.AddResource(mcp.NewResource(CatalogURI, "Attribute Catalog",
		mcp.WithMIMEType("application/json"),
	), s.readCatalog)
}

func (s *Server) readCatalog(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := s.catalogJSON(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CatalogURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
