package view

import (
	"context"
	"time"

	"dashcal/internal/cache"
	"dashcal/internal/model"
)

// EventSource produces a fresh raw event snapshot.
type EventSource interface {
	Events(ctx context.Context) ([]model.RawEvent, error)
}

// Service serves views from a TTL-cached event snapshot.
type Service struct {
	events *cache.TTL[[]model.RawEvent]
	asm    *Assembler
	now    func() time.Time
}

// NewService wires src behind a cache with the given ttl. now defaults to
// time.Now.
func NewService(src EventSource, ttl time.Duration, asm *Assembler, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		events: cache.NewTTL[[]model.RawEvent]("events", ttl, src.Events),
		asm:    asm,
		now:    now,
	}
}

// Current returns the view for the current time, fetching events if the
// cached snapshot expired.
func (s *Service) Current(ctx context.Context) model.View {
	now := s.now()
	raws, stale := s.events.GetOrFetch(ctx, now)
	return s.asm.Build(now, raws, stale)
}

// Refresh forces a new fetch; used by the background scheduler.
func (s *Service) Refresh(ctx context.Context) (events int, stale bool) {
	raws, stale := s.events.Refresh(ctx, s.now())
	return len(raws), stale
}
