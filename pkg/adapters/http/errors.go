package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/schema"
)

// Codes used outside field validation.
const (
	CodeReadOnly            = "READ_ONLY"
	CodeRegistryUnavailable = "REGISTRY_UNAVAILABLE"
	CodeInvalidCatalog      = "INVALID_CATALOG"
	CodeUnsupported         = "UNSUPPORTED"
	CodeInternal            = "INTERNAL"
)

// APIError is the body of a single error, or one entry of a field error map.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"error"`
}

// FieldErrors maps a request field path (e.g. "body[0].variation") to its error.
type FieldErrors map[string]APIError

// statusPriority decides the response status when field errors disagree.
var statusPriority = []int{
	http.StatusInternalServerError,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusBadRequest,
	http.StatusConflict,
}

func codeStatus(code string) int {
	switch schema.Code(code) {
	case schema.CodeUniqueField:
		return http.StatusConflict
	case schema.CodeNotFound:
		return http.StatusNotFound
	case schema.CodeMissingField, schema.CodeInvalidField, schema.CodeInvalidType,
		schema.CodeInvalidLen, schema.CodeInvalidColor, schema.CodeInvalidSVG:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Status returns the most important status among the entries.
func (fe FieldErrors) Status() int {
	seen := make(map[int]bool, len(fe))
	for _, e := range fe {
		seen[codeStatus(e.Code)] = true
	}
	for _, s := range statusPriority {
		if seen[s] {
			return s
		}
	}
	return http.StatusTeapot
}

// errorScope adapts domain errors to the field paths of one route.
type errorScope struct {
	// rename rewrites registry field keys into request body paths.
	rename func(key string) string
	// notFound reports unresolved ids against request fields.
	notFound func(nf *domain.NotFoundError) FieldErrors
}

// renamePrefix maps keys like "colors[1]" to "body[1]".
func renamePrefix(from, to string) func(string) string {
	return func(key string) string {
		if key == from || strings.HasPrefix(key, from+"[") || strings.HasPrefix(key, from+".") {
			return to + key[len(from):]
		}
		return key
	}
}

func pathNotFound(nf *domain.NotFoundError) FieldErrors {
	fe := FieldErrors{}
	field := "id"
	if nf.Kind == "variation" {
		field = "variationId"
	}
	fe[field] = APIError{Message: nf.Error(), Code: string(schema.CodeNotFound)}
	return fe
}

func validationFields(err error, rename func(string) string) FieldErrors {
	var errs []error
	if list := schema.ValidationErrors(err); list != nil {
		errs = list
	} else {
		errs = []error{err}
	}

	fe := FieldErrors{}
	for _, e := range errs {
		var ve *schema.ValidationError
		if !errors.As(e, &ve) {
			continue
		}
		key := ve.Key
		if rename != nil {
			key = rename(key)
		}
		if _, dup := fe[key]; dup {
			continue
		}
		fe[key] = APIError{Message: ve.Reason, Code: string(ve.Code)}
	}
	return fe
}

// fail writes err as a JSON error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, scope errorScope) {
	var (
		agg *schema.AggregateError
		ve  *schema.ValidationError
		nf  *domain.NotFoundError
	)

	switch {
	case errors.As(err, &agg), errors.As(err, &ve):
		s.writeFields(w, validationFields(err, scope.rename))
	case errors.As(err, &nf):
		mapper := scope.notFound
		if mapper == nil {
			mapper = pathNotFound
		}
		s.writeFields(w, mapper(nf))
	case errors.Is(err, domain.ErrDuplicateKey):
		s.writeFields(w, FieldErrors{"key": {Message: "key already used", Code: string(schema.CodeUniqueField)}})
	case errors.Is(err, domain.ErrEmptyInput):
		s.writeError(w, http.StatusBadRequest, string(schema.CodeInvalidLen), err.Error())
	case errors.Is(err, domain.ErrInvalidColor):
		s.writeError(w, http.StatusBadRequest, string(schema.CodeInvalidColor), err.Error())
	case errors.Is(err, domain.ErrReadOnly):
		s.writeError(w, http.StatusMethodNotAllowed, CodeReadOnly, err.Error())
	case errors.Is(err, domain.ErrRegistryUnavailable):
		s.logger.Error("registry unavailable", "path", r.URL.Path, "err", err)
		s.writeError(w, http.StatusServiceUnavailable, CodeRegistryUnavailable, "attribute registry unavailable")
	case errors.Is(err, domain.ErrEmptyCatalog), errors.Is(err, domain.ErrEmptyCategory), errors.Is(err, domain.ErrParse), errors.Is(err, domain.ErrLengthMismatch):
		s.logger.Error("catalog cannot be composed", "path", r.URL.Path, "err", err)
		s.writeError(w, http.StatusInternalServerError, CodeInvalidCatalog, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("request aborted", "path", r.URL.Path, "err", err)
		s.writeError(w, http.StatusServiceUnavailable, CodeInternal, err.Error())
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		s.writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

func (s *Server) writeFields(w http.ResponseWriter, fe FieldErrors) {
	s.writeJSON(w, fe.Status(), fe)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, APIError{Message: message, Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func invalidType(field, want string) FieldErrors {
	return FieldErrors{field: {
		Message: fmt.Sprintf("%s must be %s", field, want),
		Code:    string(schema.CodeInvalidType),
	}}
}
