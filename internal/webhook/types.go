package webhook

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventAttendanceRecorded  = "attendance.recorded"
	EventEnrollmentCreated   = "enrollment.created"
	EventEnrollmentDeleted   = "enrollment.deleted"
	defaultMaxAttempts       = 5
	defaultQueueSize         = 256
	defaultRetryBaseInterval = time.Second
)

type EventPayload struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type job struct {
	payload  []byte
	event    string
	attempts int
}
