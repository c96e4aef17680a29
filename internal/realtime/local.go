package realtime

import "context"

// ProjectBroadcaster is the SSE side of delivery.
type ProjectBroadcaster interface {
	SendToProject(projectID string, eventType string, payload interface{})
}

// LocalPublisher writes events to the SSE streams of this process.
type LocalPublisher struct {
	streams ProjectBroadcaster
}

func NewLocalPublisher(streams ProjectBroadcaster) *LocalPublisher {
	return &LocalPublisher{streams: streams}
}

func (p *LocalPublisher) Publish(_ context.Context, event Event) error {
	p.streams.SendToProject(event.ProjectID, SSEEventName, event)
	return nil
}
