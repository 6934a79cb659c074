package animation

import "time"

// Recorder receives engine events for metrics. Implementations must be safe for
// concurrent use and must not call back into the engine.
type Recorder interface {
	RouteGenerated(option Option, points int, fetch time.Duration)
	RouteFailed(option Option, reason string)
	TickObserved(d time.Duration)
	StateChanged(from, to State)
	SnapshotDropped(n int)
}

// Failure reasons passed to Recorder.RouteFailed.
const (
	ReasonFetch = "fetch"
	ReasonEmpty = "empty"
)

type nopRecorder struct{}

func (nopRecorder) RouteGenerated(Option, int, time.Duration) {}
func (nopRecorder) RouteFailed(Option, string)                {}
func (nopRecorder) TickObserved(time.Duration)                {}
func (nopRecorder) StateChanged(State, State)                 {}
func (nopRecorder) SnapshotDropped(int)                       {}
