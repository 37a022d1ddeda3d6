package broker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventsChannel is the Redis channel all recipe activity is published on.
const EventsChannel = "flavorshare:events"

type EventType string

const (
	EventRecipeCreated EventType = "recipe.created"
	EventRecipeUpdated EventType = "recipe.updated"
	EventRecipeDeleted EventType = "recipe.deleted"
	EventCommentAdded  EventType = "comment.added"
	EventRecipeLiked   EventType = "recipe.liked"
	EventRecipeUnliked EventType = "recipe.unliked"
)

// Event describes a committed change to a recipe or its engagement.
type Event struct {
	Type     EventType   `json:"type"`
	RecipeID uuid.UUID   `json:"recipeId"`
	UserID   uuid.UUID   `json:"userId"`
	At       time.Time   `json:"at"`
	Payload  interface{} `json:"payload,omitempty"`
}

func NewEvent(eventType EventType, recipeID, userID uuid.UUID, payload interface{}) Event {
	return Event{
		Type:     eventType,
		RecipeID: recipeID,
		UserID:   userID,
		At:       time.Now().UTC(),
		Payload:  payload,
	}
}

// EventBroker fans recipe events out to every API node.
type EventBroker interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe streams events until ctx is cancelled; the channel is then closed.
	Subscribe(ctx context.Context) (<-chan Event, error)
	Close() error
}

// NopBroker drops published events. It is used when Redis is not configured.
type NopBroker struct{}

func (NopBroker) Publish(context.Context, Event) error { return nil }

func (NopBroker) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (NopBroker) Close() error { return nil }
