package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/registry"
	"github.com/aretw0/facet/pkg/schema"
	"github.com/go-chi/chi/v5"
)

// layersHeader carries the drawn layers of a composite as JSON.
const layersHeader = "X-Avatar-Layers"

const emptyLayersMessage = "If you don't want to specify any variations, use the GET method instead"

type layerBody struct {
	Variation string `json:"variation"`
	Color     string `json:"color"`
}

type createAttributeBody struct {
	Key        string                  `json:"key"`
	Variations []registry.NewVariation `json:"variations"`
	Colors     []string                `json:"colors"`
}

// CreateRandomAvatar handles GET /avatars/create.
func (s *Server) CreateRandomAvatar(w http.ResponseWriter, r *http.Request) {
	format, ok := s.format(w, r)
	if !ok {
		return
	}
	result, err := s.Engine.ComposeRandom(r.Context())
	if err != nil {
		s.fail(w, r, err, errorScope{})
		return
	}
	s.writeAvatar(w, format, result)
}

// CreateAvatar handles POST /avatars/create. Layers are listed bottom-most first.
func (s *Server) CreateAvatar(w http.ResponseWriter, r *http.Request) {
	format, ok := s.format(w, r)
	if !ok {
		return
	}

	var body []layerBody
	if fe := decodeBody(r, '[', "an array", &body); fe != nil {
		s.writeFields(w, fe)
		return
	}
	if len(body) == 0 {
		s.writeFields(w, FieldErrors{"body": {Message: emptyLayersMessage, Code: string(schema.CodeInvalidLen)}})
		return
	}

	var c schema.Collector
	req := make(domain.LayerRequest, len(body))
	for i, l := range body {
		key := fmt.Sprintf("body[%d]", i)
		c.Required(key+".variation", l.Variation)
		if l.Color != "" && !domain.IsHexColor(l.Color) {
			c.Add(key+".color", schema.CodeInvalidColor, "color must be a #RGB or #RRGGBB hex string", l.Color)
		}
		req[i] = domain.Layer{VariationID: l.Variation, Color: l.Color}
	}
	if err := c.Err(); err != nil {
		s.fail(w, r, err, errorScope{})
		return
	}

	result, err := s.Engine.ComposeAvatar(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, errorScope{notFound: layersNotFound(req)})
		return
	}
	s.writeAvatar(w, format, result)
}

// layersNotFound reports every layer whose variation did not resolve.
func layersNotFound(req domain.LayerRequest) func(*domain.NotFoundError) FieldErrors {
	return func(nf *domain.NotFoundError) FieldErrors {
		missing := make(map[string]bool, len(nf.IDs))
		for _, id := range nf.IDs {
			missing[id] = true
		}
		fe := FieldErrors{}
		for i, l := range req {
			if missing[l.VariationID] {
				fe[fmt.Sprintf("body[%d].variation", i)] = APIError{
					Message: fmt.Sprintf("variation %q not found", l.VariationID),
					Code:    string(schema.CodeNotFound),
				}
			}
		}
		return fe
	}
}

func (s *Server) format(w http.ResponseWriter, r *http.Request) (string, bool) {
	switch f := r.URL.Query().Get("format"); f {
	case "", "svg":
		return "svg", true
	case "json":
		return f, true
	default:
		s.writeFields(w, FieldErrors{"format": {
			Message: "format must be svg or json",
			Code:    string(schema.CodeInvalidField),
		}})
		return "", false
	}
}

func (s *Server) writeAvatar(w http.ResponseWriter, format string, result *domain.CompositeResult) {
	if format == "json" {
		s.writeJSON(w, http.StatusOK, result)
		return
	}
	if layers, err := json.Marshal(result.Layers); err == nil {
		w.Header().Set(layersHeader, string(layers))
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, result.SVG)
}

// ListAttributes handles GET /attributes.
func (s *Server) ListAttributes(w http.ResponseWriter, r *http.Request) {
	attrs, err := s.Catalog.List(r.Context())
	if err != nil {
		s.fail(w, r, err, errorScope{})
		return
	}
	if attrs == nil {
		attrs = []registry.AttributeView{}
	}
	s.writeJSON(w, http.StatusOK, attrs)
}

// CreateAttribute handles PUT /attributes.
func (s *Server) CreateAttribute(w http.ResponseWriter, r *http.Request) {
	var body createAttributeBody
	if fe := decodeBody(r, '{', "an object", &body); fe != nil {
		s.writeFields(w, fe)
		return
	}
	created, err := s.admin.CreateAttribute(r.Context(), body.Key, body.Variations, body.Colors)
	if err != nil {
		s.fail(w, r, err, errorScope{})
		return
	}
	s.writeJSON(w, http.StatusCreated, registry.View(*created))
}

// AddVariations handles PUT /attributes/{id}/variations.
func (s *Server) AddVariations(w http.ResponseWriter, r *http.Request) {
	var body []registry.NewVariation
	if fe := decodeBody(r, '[', "an array", &body); fe != nil {
		s.writeFields(w, fe)
		return
	}
	updated, err := s.admin.AddVariations(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		s.fail(w, r, err, errorScope{rename: renamePrefix("variations", "body")})
		return
	}
	s.writeJSON(w, http.StatusCreated, registry.View(*updated))
}

// AddColors handles PUT /attributes/{id}/colors.
func (s *Server) AddColors(w http.ResponseWriter, r *http.Request) {
	var body []string
	if fe := decodeBody(r, '[', "an array", &body); fe != nil {
		s.writeFields(w, fe)
		return
	}
	updated, err := s.admin.AddColors(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		s.fail(w, r, err, errorScope{rename: renamePrefix("colors", "body")})
		return
	}
	s.writeJSON(w, http.StatusCreated, registry.View(*updated))
}

// UpdateVariation handles PATCH /attributes/{id}/variations/{variationId}.
func (s *Server) UpdateVariation(w http.ResponseWriter, r *http.Request) {
	var body registry.NewVariation
	if fe := decodeBody(r, '{', "an object", &body); fe != nil {
		s.writeFields(w, fe)
		return
	}
	updated, err := s.admin.UpdateVariation(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "variationId"), body)
	if err != nil {
		s.fail(w, r, err, errorScope{})
		return
	}
	s.writeJSON(w, http.StatusOK, registry.View(*updated))
}

// decodeBody decodes a JSON body whose top level must open with delim.
func decodeBody(r *http.Request, delim byte, want string, dst any) FieldErrors {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return invalidType("body", want)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != delim {
		return invalidType("body", want)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return invalidType(typeErr.Field, "a "+typeErr.Type.String())
		}
		return invalidType("body", want)
	}
	return nil
}
