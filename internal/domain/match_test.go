package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestFaceResult_ErrorMessage(t *testing.T) {
	ok := FaceResult{MatchResult: MatchResult{Matched: true, IdentityID: "42"}}
	if got := ok.ErrorMessage(); got != "" {
		t.Errorf("ErrorMessage() = %q, want empty", got)
	}

	failed := FaceResult{Err: ErrLedgerWrite.WithError(errors.New("pq: connection reset"))}
	if got := failed.ErrorMessage(); got != ErrLedgerWrite.Message {
		t.Errorf("ErrorMessage() = %q, want %q", got, ErrLedgerWrite.Message)
	}

	plain := FaceResult{Err: errors.New("boom")}
	if got := plain.ErrorMessage(); got != "boom" {
		t.Errorf("ErrorMessage() = %q, want boom", got)
	}
}

func TestFaceResult_MarshalJSON(t *testing.T) {
	r := FaceResult{
		MatchResult: MatchResult{Matched: true, IdentityID: "42", DisplayName: "Alice", Distance: 0.25},
		Err:         ErrLedgerWrite.WithError(errors.New("pq: connection reset")),
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded["identity_id"] != "42" {
		t.Errorf("identity_id = %v, want 42", decoded["identity_id"])
	}
	if decoded["error"] != ErrLedgerWrite.Message {
		t.Errorf("error = %v, want %q", decoded["error"], ErrLedgerWrite.Message)
	}
	if strings.Contains(string(data), "connection reset") {
		t.Errorf("wrapped cause leaked into JSON: %s", data)
	}

	data, _ = json.Marshal(FaceResult{MatchResult: MatchResult{Distance: 1.2}})
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("error field should be omitted on success: %s", data)
	}
}
