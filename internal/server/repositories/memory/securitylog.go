package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
)

type eventRepository struct {
	s *Store
}

func (r *eventRepository) Create(ctx context.Context, event *models.SecurityEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextEventID++
	event.ID = r.s.nextEventID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage("{}")
	}
	row := *event
	r.s.events = append(r.s.events, &row)
	return nil
}

func (r *eventRepository) CountSince(ctx context.Context, ip string, eventType models.EventType, since time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, e := range r.s.events {
		if e.IPAddress == ip && e.EventType == eventType && e.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}
