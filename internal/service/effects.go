package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/journeyhub/internal/events"
	"github.com/sakif/journeyhub/internal/middleware"
	"github.com/sakif/journeyhub/internal/model"
)

// ListCache caches the public campground list. cache.CampgroundCache
// implements it.
//
// SetList must refuse the write when Invalidate ran after gen was read from
// Generation.
type ListCache interface {
	GetList(ctx context.Context) ([]model.CampgroundSummary, bool, error)
	Generation(ctx context.Context) (int64, error)
	SetList(ctx context.Context, list []model.CampgroundSummary, gen int64) (bool, error)
	Invalidate(ctx context.Context) error
}

// Option configures the optional collaborators of a service.
type Option func(*effects)

// WithCache enables the campground list cache.
func WithCache(c ListCache) Option {
	return func(e *effects) { e.cache = c }
}

// WithEvents sends domain events to p instead of discarding them.
func WithEvents(p events.Publisher) Option {
	return func(e *effects) { e.events = p }
}

const publishTimeout = 2 * time.Second

// effects holds the side effects a write may trigger after it has been
// persisted. None of them can fail the request.
type effects struct {
	cache  ListCache
	events events.Publisher
	logger *slog.Logger
}

func newEffects(logger *slog.Logger, opts []Option) effects {
	e := effects{events: events.Nop{}, logger: logger}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (e *effects) invalidateList(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx); err != nil {
		e.logger.Warn("campground list cache invalidation failed", slog.String("error", err.Error()))
	}
}

// publish sends ev on a context detached from the request, so a client
// disconnecting right after the write does not drop the event.
func (e *effects) publish(ctx context.Context, ev events.Event) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := e.events.Publish(pctx, ev); err != nil {
		middleware.EventPublishFailures.WithLabelValues(ev.Type).Inc()
		e.logger.Warn("event publish failed",
			slog.String("type", ev.Type),
			slog.String("resource_id", ev.ResourceID),
			slog.String("error", err.Error()),
		)
	}
}
