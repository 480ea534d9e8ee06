package portal

import (
	"errors"
	"fmt"
)

// State is the controller lifecycle state.
type State int

const (
	StateInit State = iota
	StateStartingAP
	StateSeekingSTA
	StateConnected
	StateCaptivePortal
	StateStopping
	StateStopped
	StateFailed
)

var stateNames = map[State]string{
	StateInit:          "init",
	StateStartingAP:    "starting_ap",
	StateSeekingSTA:    "seeking_sta",
	StateConnected:     "connected",
	StateCaptivePortal: "captive_portal",
	StateStopping:      "stopping",
	StateStopped:       "stopped",
	StateFailed:        "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state name for JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrInvalidTransition is returned when a transition is not in the table.
var ErrInvalidTransition = errors.New("invalid portal state transition")

var transitions = map[State][]State{
	StateInit:          {StateStartingAP, StateSeekingSTA, StateStopping, StateFailed},
	StateStartingAP:    {StateCaptivePortal, StateSeekingSTA, StateStopping, StateFailed},
	StateSeekingSTA:    {StateConnected, StateCaptivePortal, StateStopping, StateFailed},
	StateCaptivePortal: {StateSeekingSTA, StateStopping},
	StateConnected:     {StateSeekingSTA, StateStartingAP, StateStopping},
	StateStopping:      {StateStopped, StateStartingAP},
	StateStopped:       {StateSeekingSTA},
}

func allowedTransition(cur, next State) bool {
	for _, s := range transitions[cur] {
		if s == next {
			return true
		}
	}
	return false
}
