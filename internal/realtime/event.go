// Package realtime publishes board change events to SSE clients and to
// external buses after the change has been committed.
package realtime

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// Entity names the kind of record an event is about.
type Entity string

const (
	EntityTask    Entity = "task"
	EntityColumn  Entity = "column"
	EntityComment Entity = "comment"
	EntityProject Entity = "project"
)

// Op names the change.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpMove   Op = "move"
)

// SSEEventName is the stream event type every board event is sent under.
const SSEEventName = "board"

// Event describes one committed change to a project board.
type Event struct {
	Entity    Entity    `json:"entity"`
	ProjectID string    `json:"project_id"`
	Op        Op        `json:"op"`
	EntityID  string    `json:"entity_id"`
	ActorID   string    `json:"actor_id"`
	At        time.Time `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(entity Entity, op Op, projectID, entityID, actorID string) Event {
	return Event{
		Entity:    entity,
		ProjectID: projectID,
		Op:        op,
		EntityID:  entityID,
		ActorID:   actorID,
		At:        time.Now().UTC(),
	}
}

// Publisher delivers events. Callers invoke it once per committed change.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// MultiPublisher fans an event out to every publisher and joins their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit publishes and logs a failure. Mutations have already committed when
// events are emitted, so delivery errors never reach the caller.
func Emit(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"entity":  event.Entity,
			"op":      event.Op,
			"project": event.ProjectID,
			"id":      event.EntityID,
		}).WithError(err).Warn("[Realtime] Failed to publish event")
	}
}
