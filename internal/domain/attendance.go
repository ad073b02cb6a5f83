package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceRecord representa uma presença registrada (append-only)
type AttendanceRecord struct {
	ID          uuid.UUID `json:"id"`
	IdentityID  string    `json:"identity_id"`
	DisplayName string    `json:"display_name"`
	Timestamp   time.Time `json:"timestamp"`
	Station     string    `json:"station,omitempty"`
}

// AttendanceFilter narrows attendance history queries. Zero values mean
// "no bound".
type AttendanceFilter struct {
	IdentityID string
	From       time.Time
	To         time.Time
	Limit      int
}
