package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "ATTEMPT_RECORDED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type codes published on the internal bus.
const (
	TypeAttemptRecorded     = "ATTEMPT_RECORDED"
	TypeHealthStatusChanged = "HEALTH_STATUS_CHANGED"
	TypeHealthHealthy       = "HEALTH_HEALTHY"
	TypeHealthUnhealthy     = "HEALTH_UNHEALTHY"
	TypeQualityCycleDone    = "QUALITY_CYCLE_COMPLETED"
	TypeQualityCycleFailed  = "QUALITY_CYCLE_FAILED"
)

// Types lists every event code subscribers can fan in over.
func Types() []string {
	return []string{
		TypeAttemptRecorded,
		TypeHealthStatusChanged,
		TypeHealthHealthy,
		TypeHealthUnhealthy,
		TypeQualityCycleDone,
		TypeQualityCycleFailed,
	}
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
