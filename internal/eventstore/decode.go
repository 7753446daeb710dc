package eventstore

import (
	"encoding/json"
	"fmt"

	"github.com/rootsignal/scout/internal/domain"
)

// Decode unmarshals an event's payload into a concrete payload type, e.g.:
//
//	var p domain.SignalStoredPayload
//	if err := eventstore.Decode(ev, &p); err != nil { ... }
func Decode(ev domain.Event, out any) error {
	if err := json.Unmarshal(ev.Payload, out); err != nil {
		return fmt.Errorf("eventstore: decode %s payload: %w", ev.Type, err)
	}
	return nil
}
