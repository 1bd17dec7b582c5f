package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/givemewater/internal/model"
)

// marshalEvent converts an event to canonical JSON TEXT for storage.
func marshalEvent(ev model.HydrationEvent) (string, error) {
	data, err := model.MarshalCanonical(model.EventMap(ev))
	if err != nil {
		return "", fmt.Errorf("marshal event %s: %w", ev.EventID, err)
	}
	return string(data), nil
}

// unmarshalEvent parses a stored payload. The payload keys match the JSON
// tags of model.HydrationEvent.
func unmarshalEvent(data string) (model.HydrationEvent, error) {
	var ev model.HydrationEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return model.HydrationEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}
