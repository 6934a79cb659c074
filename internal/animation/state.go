package animation

import "fmt"

// State is the playback state of the engine.
type State int

const (
	// StateIdle means no route has been generated for the selected option.
	StateIdle State = iota
	// StateGenerating means a route fetch is in flight.
	StateGenerating
	// StateReady means a route exists and playback is stopped.
	StateReady
	// StatePlaying means the timer is live and the cursor is advancing.
	StatePlaying
	// StateFinished means the cursor reached the last point.
	StateFinished
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateGenerating: "generating",
	StateReady:      "ready",
	StatePlaying:    "playing",
	StateFinished:   "finished",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state name so snapshots encode as "playing" rather than 3.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// HasRoute reports whether a drawable route exists in this state.
func (s State) HasRoute() bool {
	return s == StateReady || s == StatePlaying || s == StateFinished
}
