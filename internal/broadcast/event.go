package broadcast

import (
	"encoding/json"
	"fmt"
)

// Event is the envelope for every frame on the channel.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// IncomingEvent defers decoding of Data until the name is known.
type IncomingEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

func Encode(name string, data interface{}) ([]byte, error) {
	payload, err := json.Marshal(Event{Name: name, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshalling %s event: %w", name, err)
	}
	return payload, nil
}

func Decode(raw []byte) (*IncomingEvent, error) {
	event := &IncomingEvent{}
	if err := json.Unmarshal(raw, event); err != nil {
		return nil, fmt.Errorf("unmarshalling event: %w", err)
	}
	if event.Name == "" {
		return nil, fmt.Errorf("event name missing")
	}
	return event, nil
}
