package engine

import (
	"encoding/json"

	"github.com/tomikjetu/vpwa26/internal/logger"
	"github.com/tomikjetu/vpwa26/internal/observability"
)

// decode unmarshals one inbound payload. A malformed payload is dropped with
// a warning; it never tears down the connection or panics the read loop.
func decode[T any](log *logger.Logger, domain, event string, data json.RawMessage) (T, bool) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Warnw("malformed event payload", "domain", domain, "event", event, "error", err)
		observability.IncDropped(domain, "malformed")
		return payload, false
	}
	observability.IncEvent(domain, event)
	return payload, true
}

// drop records an event that referenced an unknown entity. Stale references
// are expected around reconnects and are discarded without side effects.
func drop(log *logger.Logger, domain, event string, keysAndValues ...interface{}) {
	log.Debugw("event for unknown entity dropped", append([]interface{}{"domain", domain, "event", event}, keysAndValues...)...)
	observability.IncDropped(domain, "unknown_ref")
}
