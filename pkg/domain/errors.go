package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/facet/pkg/graphic"
)

// ErrParse is returned when a fragment document is not well-formed or has no single root.
var ErrParse = graphic.ErrParse

// ErrEmptyInput is returned when a composition is requested with zero layers.
var ErrEmptyInput = errors.New("no layers to compose")

// ErrLengthMismatch is returned when the color list and the layer list differ in length.
var ErrLengthMismatch = errors.New("layer and color counts differ")

// ErrInvalidColor is returned when a color override is not a #RGB or #RRGGBB hex string.
var ErrInvalidColor = errors.New("invalid hex color")

// ErrNotFound is returned when a variation or attribute id does not resolve.
var ErrNotFound = errors.New("not found")

// ErrRegistryUnavailable wraps any registry failure that is not a missing id.
var ErrRegistryUnavailable = errors.New("attribute registry unavailable")

// ErrEmptyCategory is returned when a category without variations or colors reaches the selector.
var ErrEmptyCategory = errors.New("category has no variations or no colors")

// ErrEmptyCatalog is returned when a random avatar is requested from a catalog without categories.
var ErrEmptyCatalog = errors.New("catalog has no categories")

// ErrDuplicateKey is returned when an attribute key is already taken.
var ErrDuplicateKey = errors.New("attribute key already exists")

// ErrReadOnly is returned by stores that do not support administrative writes.
var ErrReadOnly = errors.New("attribute store is read-only")

// NotFoundError lists every id of a request that did not resolve.
type NotFoundError struct {
	Kind string // "variation" or "attribute"
	IDs  []string
}

func (e *NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "variation"
	}
	if len(e.IDs) == 1 {
		return fmt.Sprintf("%s %q not found", kind, e.IDs[0])
	}
	return fmt.Sprintf("%ss not found: %s", kind, strings.Join(e.IDs, ", "))
}

// Is makes errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewVariationNotFound builds a NotFoundError for variation ids.
func NewVariationNotFound(ids ...string) *NotFoundError {
	return &NotFoundError{Kind: "variation", IDs: ids}
}

// NewAttributeNotFound builds a NotFoundError for an attribute id.
func NewAttributeNotFound(id string) *NotFoundError {
	return &NotFoundError{Kind: "attribute", IDs: []string{id}}
}
