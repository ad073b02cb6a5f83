package ws

import (
	"time"
)

type EventType string

const (
	EventFrameProcessed     EventType = "frame.processed"
	EventAttendanceRecorded EventType = "attendance.recorded"
	EventEnrollmentChanged  EventType = "enrollment.changed"
)

// Event is what display clients receive. Station is empty for events that
// concern every station.
type Event struct {
	Type      EventType   `json:"type"`
	Station   string      `json:"station,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
