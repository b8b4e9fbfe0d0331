package realtime

import (
	"encoding/json"
	"time"
)

// EventType identifies a push event on the wire.
type EventType string

const (
	EventConnection    EventType = "connection"
	EventInit          EventType = "init"
	EventStatusUpdate  EventType = "statusUpdate"
	EventHeartbeat     EventType = "heartbeat"
	EventMetricsUpdate EventType = "metricsUpdate"
	EventLog           EventType = "log"
	EventRefresh       EventType = "refresh"
)

// now is a small indirection to allow test stubbing if needed.
var now = time.Now

// Encode serializes an event as one newline-terminated JSON object with the
// send timestamp injected. Payload keys are merged into the envelope; the
// type and timestamp fields always win.
func Encode(eventType EventType, payload map[string]any) ([]byte, error) {
	envelope := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		envelope[k] = v
	}
	envelope["type"] = eventType
	envelope["timestamp"] = now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
