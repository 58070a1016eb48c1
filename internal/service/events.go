package service

import "time"

const (
	EventAssetCreated         = "asset.created"
	EventAssetUpdated         = "asset.updated"
	EventAssetDeleted         = "asset.deleted"
	EventAssetAllocated       = "asset.allocated"
	EventRequestCreated       = "request.created"
	EventRequestStatusUpdated = "request.status_updated"
)

// EventPublisher fans workflow events out to live subscribers.
type EventPublisher interface {
	Publish(event string, data map[string]interface{})
}

func publish(p EventPublisher, event string, data map[string]interface{}) {
	if p == nil {
		return
	}
	p.Publish(event, data)
}

const timeLayout = time.RFC3339
