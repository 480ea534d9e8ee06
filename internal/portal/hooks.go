package portal

import (
	"github.com/muurk/autoconnect/internal/credential"
	"github.com/muurk/autoconnect/internal/radio"
)

// Hooks are optional callbacks run on the polling goroutine.
type Hooks struct {
	// OnDetect is shown the candidate chosen by the seek. Returning
	// false skips the attempt as if nothing had been found.
	OnDetect func(credential.Candidate) bool

	// OnConnect runs after the station link is established.
	OnConnect func(radio.StationInfo)

	// WhileCaptivePortal runs on every poll in CaptivePortal. Returning
	// false leaves the portal and stops the controller.
	WhileCaptivePortal func() bool

	// OnReset runs once a reset request has stopped everything.
	OnReset func()

	// OnTransition observes every accepted state change.
	OnTransition func(from, to State, reason string)
}
