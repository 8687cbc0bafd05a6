package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Sender is the part of the websocket hub used for live delivery.
type Sender interface {
	Send(ctx context.Context, recipient string, data []byte) error
}

// HubDispatcher pushes notifications to connected browsers.
type HubDispatcher struct {
	hub Sender
}

// NewHubDispatcher creates a HubDispatcher
func NewHubDispatcher(hub Sender) *HubDispatcher {
	return &HubDispatcher{hub: hub}
}

func (d *HubDispatcher) Dispatch(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return d.hub.Send(ctx, n.Recipient.Key(), data)
}
