package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventCompose         EventType = "compose"
	EventFragmentResolve EventType = "fragment_resolve"
	EventCacheInvalidate EventType = "cache_invalidate"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// ComposeEvent is emitted once per composition attempt.
type ComposeEvent struct {
	EventBase
	Random   bool          `json:"random"`
	Layers   int           `json:"layers"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// ResolveEvent is emitted after fragments were looked up.
type ResolveEvent struct {
	EventBase
	Requested int `json:"requested"`
	CacheHits int `json:"cache_hits"`
}

// InvalidateEvent is emitted when cached fragments are dropped.
type InvalidateEvent struct {
	EventBase
	VariationIDs []string `json:"variation_ids"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnCompose    func(context.Context, *ComposeEvent)
	OnResolve    func(context.Context, *ResolveEvent)
	OnInvalidate func(context.Context, *InvalidateEvent)
}
