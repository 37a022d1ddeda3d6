package service_test

import (
	"context"
	"sync"

	"github.com/Baaaki/flavorshare/internal/broker"
	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/Baaaki/flavorshare/internal/policy"
)

// callerFor returns nil, an anonymous caller, for a nil user.
func callerFor(u *models.User) *policy.Caller {
	if u == nil {
		return nil
	}
	return &policy.Caller{UserID: u.ID, Username: u.Username}
}

// recordingBroker keeps every published event in memory.
type recordingBroker struct {
	mu     sync.Mutex
	events []broker.Event
}

func (r *recordingBroker) Publish(_ context.Context, event broker.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingBroker) Subscribe(ctx context.Context) (<-chan broker.Event, error) {
	return broker.NopBroker{}.Subscribe(ctx)
}

func (r *recordingBroker) Close() error { return nil }

func (r *recordingBroker) Types() []broker.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]broker.EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

func (r *recordingBroker) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
