package frame

import (
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

// Policy picks the single label shown for a frame with several faces.
type Policy string

const (
	// PolicyLast shows the last accepted match in processing order.
	PolicyLast Policy = "last"
	// PolicyClosest shows the accepted match with the smallest distance.
	PolicyClosest Policy = "closest"
)

// ParsePolicy maps a config value to a Policy. Empty selects PolicyClosest.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyClosest:
		return PolicyClosest, nil
	case PolicyLast:
		return PolicyLast, nil
	default:
		return "", fmt.Errorf("unknown display policy %q (supported: %s, %s)", s, PolicyClosest, PolicyLast)
	}
}

// Display reduces a frame's results to one label. Frames with no accepted
// match show UnknownLabel.
func Display(results []domain.FaceResult, policy Policy, now time.Time) domain.Display {
	chosen := -1
	for i, r := range results {
		if !r.Matched {
			continue
		}
		switch {
		case chosen < 0:
			chosen = i
		case policy == PolicyLast:
			chosen = i
		case r.Distance < results[chosen].Distance:
			chosen = i
		}
	}

	if chosen < 0 {
		return domain.Display{
			IdentityID:  domain.UnknownIdentity,
			DisplayName: domain.UnknownLabel,
			Timestamp:   now,
		}
	}

	r := results[chosen]
	return domain.Display{
		IdentityID:  r.IdentityID,
		DisplayName: r.DisplayName,
		Timestamp:   now,
		Recorded:    r.Recorded,
	}
}
