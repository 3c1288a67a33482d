package eventbus

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/amirasaad/cashfake/pkg/eventbus"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DefaultFactories decodes every event the core publishes.
func DefaultFactories() eventbus.Factories {
	return eventbus.Factories{
		ledger.EntryRecordedType: func() eventbus.Event { return &ledger.EntryRecorded{} },
	}
}

func encode(e eventbus.Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.Type(), err)
	}
	return json.Marshal(envelope{Type: e.Type(), Payload: payload})
}

func decode(raw []byte, types eventbus.Factories) (eventbus.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	build, ok := types[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	e := build()
	if err := json.Unmarshal(env.Payload, e); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return e, nil
}

func keyOf(e eventbus.Event) string {
	if k, ok := e.(eventbus.Keyed); ok {
		return k.Key()
	}
	return ""
}

// nameFor turns "Ledger.EntryRecorded" into prefix + sep + "ledger" + sep + "entryrecorded".
func nameFor(prefix, sep, eventType string) string {
	parts := strings.Split(strings.ToLower(eventType), ".")
	return prefix + sep + strings.Join(parts, sep)
}
