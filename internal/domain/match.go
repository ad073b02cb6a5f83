package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Labels shown when a frame has no accepted match.
const (
	UnknownLabel    = "Unknown"
	UnknownIdentity = "-"
)

// MatchResult is the outcome of comparing one query embedding against the
// gallery. IdentityID and DisplayName are only set when Matched is true.
type MatchResult struct {
	Matched     bool    `json:"matched"`
	IdentityID  string  `json:"identity_id,omitempty"`
	DisplayName string  `json:"display_name,omitempty"`
	Distance    float64 `json:"distance"`
}

// FaceResult is the per-face output of frame processing.
type FaceResult struct {
	MatchResult
	Recorded bool              `json:"recorded"`
	Record   *AttendanceRecord `json:"record,omitempty"`
	Err      error             `json:"-"`
}

// ErrorMessage returns the client-facing failure for this face, if any.
// AppErrors expose only their message, never the wrapped cause.
func (r FaceResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(r.Err, &appErr) {
		return appErr.Message
	}
	return r.Err.Error()
}

// MarshalJSON adds the face's error message as "error".
func (r FaceResult) MarshalJSON() ([]byte, error) {
	type plain FaceResult
	return json.Marshal(struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain(r), r.ErrorMessage()})
}

// Display is the single label a UI shows for a frame.
type Display struct {
	IdentityID  string    `json:"identity_id"`
	DisplayName string    `json:"display_name"`
	Timestamp   time.Time `json:"timestamp"`
	Recorded    bool      `json:"recorded"`
}

// FrameResult groups every face of one processed frame.
type FrameResult struct {
	Station     string       `json:"station,omitempty"`
	Faces       []FaceResult `json:"faces"`
	Display     Display      `json:"display"`
	ProcessedAt time.Time    `json:"processed_at"`
}
