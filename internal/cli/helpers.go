package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/facet/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// Unlike signal.NotifyContext it remembers which signal arrived.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Context.Done():
		}
		sc.stop.Do(func() {
			signal.Stop(sc.sigCh)
		})
	}()

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// DebugHooks logs every engine event at debug level and then calls next.
func DebugHooks(logger *slog.Logger, next domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCompose: func(ctx context.Context, e *domain.ComposeEvent) {
			if e.Err != nil {
				logger.Debug("Compose (Error)", "random", e.Random, "layers", e.Layers, "duration", e.Duration, "err", e.Err)
			} else {
				logger.Debug("Compose", "random", e.Random, "layers", e.Layers, "duration", e.Duration)
			}
			if next.OnCompose != nil {
				next.OnCompose(ctx, e)
			}
		},
		OnResolve: func(ctx context.Context, e *domain.ResolveEvent) {
			logger.Debug("Resolve", "requested", e.Requested, "cache_hits", e.CacheHits)
			if next.OnResolve != nil {
				next.OnResolve(ctx, e)
			}
		},
		OnInvalidate: func(ctx context.Context, e *domain.InvalidateEvent) {
			logger.Debug("Invalidate", "variations", e.VariationIDs)
			if next.OnInvalidate != nil {
				next.OnInvalidate(ctx, e)
			}
		},
	}
}
