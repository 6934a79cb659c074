// Package animation implements the route animation engine: it owns the active route,
// advances a playback cursor on a timer and publishes a snapshot after every change.
//
// All state lives behind one mutex. Provider calls run outside it, guarded by an
// epoch token so a fetch that finishes after a newer select or generate is dropped.
// At most one timer goroutine is live; each receives an id and ticks carrying a stale
// id are ignored.
package animation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vehicletracker/vehicletracker/internal/geo"
	"github.com/vehicletracker/vehicletracker/internal/routing"
)

const (
	// DefaultTickInterval is the playback step interval.
	DefaultTickInterval = 500 * time.Millisecond

	tracerName = "github.com/vehicletracker/vehicletracker/internal/animation"
)

// Config configures an Engine.
type Config struct {
	// Provider supplies route geometry (required).
	Provider routing.Provider

	// Catalog defines the selectable options. Defaults to DefaultCatalog.
	Catalog *Catalog

	// InitialOption is selected on construction. Defaults to the first catalog entry.
	InitialOption Option

	// TickInterval is the time between cursor advances. Defaults to 500ms.
	TickInterval time.Duration

	Clock    Clock
	Logger   zerolog.Logger
	Recorder Recorder
	Tracer   trace.Tracer
}

// Engine is the route animation state machine. It is safe for concurrent use.
type Engine struct {
	provider routing.Provider
	catalog  *Catalog
	interval time.Duration
	clock    Clock
	logger   zerolog.Logger
	recorder Recorder
	tracer   trace.Tracer
	subs     *broadcaster
	wg       sync.WaitGroup

	mu          sync.Mutex
	option      OptionConfig
	state       State
	route       []geo.Coordinate
	cursor      int
	position    geo.Coordinate
	heading     float64
	distanceKm  float64
	minutes     float64
	status      string
	seq         uint64
	epoch       uint64
	cancelFetch context.CancelFunc
	timerID     uint64
	timerDone   chan struct{}
	closed      bool
}

// New creates an engine in the Idle state at the initial option's start coordinate.
func New(cfg Config) (*Engine, error) {
	if cfg.Provider == nil {
		return nil, errors.New("animation: provider is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}

	opt := cfg.Catalog.First()
	if cfg.InitialOption != "" {
		var ok bool
		if opt, ok = cfg.Catalog.Lookup(cfg.InitialOption); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOption, cfg.InitialOption)
		}
	}

	e := &Engine{
		provider: cfg.Provider,
		catalog:  cfg.Catalog,
		interval: cfg.TickInterval,
		clock:    cfg.Clock,
		logger:   cfg.Logger.With().Str("component", "animation").Logger(),
		recorder: cfg.Recorder,
		tracer:   cfg.Tracer,
		subs:     newBroadcaster(),
	}
	e.resetLocked(opt)
	return e, nil
}

// Catalog returns the engine's option catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// TickInterval returns the configured playback interval.
func (e *Engine) TickInterval() time.Duration {
	return e.interval
}

// SelectOption discards any in-flight fetch, timer and route, moves the vehicle to the
// option's start and returns to Idle. It does not fetch.
func (e *Engine) SelectOption(key Option) error {
	opt, ok := e.catalog.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOption, key)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	e.stopTimerLocked()
	e.abortFetchLocked()
	e.resetLocked(opt)
	e.emitLocked()

	e.logger.Info().Str("option", string(key)).Msg("route option selected")
	return nil
}

// GenerateRoute fetches a route for the selected option. It may be called from any
// state; a call made while another generation is in flight supersedes it.
//
// On success the engine is Ready at the route's first point. On failure or an empty
// result the engine is Idle with no route and the vehicle where it was.
func (e *Engine) GenerateRoute(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.stopTimerLocked()
	e.abortFetchLocked()

	e.epoch++
	epoch := e.epoch
	opt := e.option
	fetchCtx, cancel := context.WithCancel(ctx)
	e.cancelFetch = cancel

	e.route = nil
	e.cursor = 0
	e.distanceKm, e.minutes = opt.DistanceKm, opt.EstimatedMinutes
	e.status = StatusGenerating
	e.setStateLocked(StateGenerating)
	e.emitLocked()
	e.mu.Unlock()
	defer cancel()

	fetchCtx, span := e.tracer.Start(fetchCtx, "animation.GenerateRoute",
		trace.WithAttributes(
			attribute.String("option", string(opt.Key)),
			attribute.String("provider", e.provider.Name()),
		))
	defer span.End()

	started := e.clock.Now()
	route, err := e.provider.FetchRoute(fetchCtx, routing.RouteRequest{Start: opt.Start, End: opt.End})
	elapsed := e.clock.Now().Sub(started)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if epoch != e.epoch {
		e.logger.Debug().Str("option", string(opt.Key)).Msg("discarding superseded route fetch")
		span.SetStatus(codes.Error, "superseded")
		return ErrSuperseded
	}
	e.cancelFetch = nil

	if err != nil {
		e.status = StatusUnavailable
		e.setStateLocked(StateIdle)
		e.emitLocked()
		e.recorder.RouteFailed(opt.Key, ReasonFetch)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		e.logger.Error().Err(err).Str("option", string(opt.Key)).Str("provider", e.provider.Name()).Msg("route fetch failed")
		return fmt.Errorf("%w: %w", ErrRouteFetchFailed, err)
	}

	if route.Empty() {
		e.status = StatusNoRoute
		e.setStateLocked(StateIdle)
		e.emitLocked()
		e.recorder.RouteFailed(opt.Key, ReasonEmpty)
		span.SetStatus(codes.Error, "empty route")
		e.logger.Warn().Str("option", string(opt.Key)).Str("provider", e.provider.Name()).Msg("provider returned an empty route")
		return ErrEmptyRoute
	}

	e.route = slices.Clone(route.Coordinates)
	e.cursor = 0
	e.position = e.route[0]
	e.heading = 0
	switch {
	case route.DistanceKm > 0:
		e.distanceKm = route.DistanceKm
	case len(e.route) > 1:
		// No provider figure: measure the geometry, keeping the catalog value for a single point.
		if m := geo.PathLengthMeters(e.route); m > 0 {
			e.distanceKm = m / 1000
		}
	}
	if route.EstimatedMinutes > 0 {
		e.minutes = route.EstimatedMinutes
	}
	e.status = StatusReady
	e.setStateLocked(StateReady)
	e.emitLocked()

	e.recorder.RouteGenerated(opt.Key, len(e.route), elapsed)
	span.SetAttributes(attribute.Int("points", len(e.route)))
	e.logger.Info().
		Str("option", string(opt.Key)).
		Int("points", len(e.route)).
		Float64("distance_km", e.distanceKm).
		Dur("fetch", elapsed).
		Msg("route generated")
	return nil
}

// StartPlayback starts the timer from Ready or Finished. It is a no-op when already
// Playing and returns ErrInvalidTransition, changing nothing, when there is no route.
// Starting from Finished does not rewind; the first tick wraps to the first point.
func (e *Engine) StartPlayback() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.closed:
		return ErrClosed
	case e.state == StatePlaying:
		return nil
	case len(e.route) == 0 || (e.state != StateReady && e.state != StateFinished):
		return fmt.Errorf("%w: cannot start playback from %s", ErrInvalidTransition, e.state)
	}

	e.startTimerLocked()
	e.status = StatusTracking
	e.setStateLocked(StatePlaying)
	e.emitLocked()

	e.logger.Info().Str("option", string(e.option.Key)).Int("cursor", e.cursor).Msg("playback started")
	return nil
}

// StopPlayback stops the timer. It is a no-op unless Playing.
func (e *Engine) StopPlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.state != StatePlaying {
		return
	}

	e.stopTimerLocked()
	e.status = StatusStopped
	if e.cursor < len(e.route)-1 {
		e.setStateLocked(StateReady)
	} else {
		e.setStateLocked(StateFinished)
	}
	e.emitLocked()

	e.logger.Info().Str("option", string(e.option.Key)).Int("cursor", e.cursor).Msg("playback stopped")
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe registers for snapshots. A subscriber whose buffer is full misses
// snapshots rather than stalling the engine. Call cancel to unsubscribe; the channel
// is closed by cancel or by Close.
func (e *Engine) Subscribe(buffer int) (<-chan Snapshot, func()) {
	return e.subs.subscribe(buffer)
}

// Subscribers returns the number of live subscriptions.
func (e *Engine) Subscribers() int {
	return e.subs.len()
}

// Close stops the timer, abandons any in-flight fetch, waits for the timer goroutine and
// closes every subscription. Further calls return ErrClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopTimerLocked()
	e.abortFetchLocked()
	e.epoch++
	e.mu.Unlock()

	e.wg.Wait()
	e.subs.close()
}

// advance is one timer tick. Ticks from a stopped timer are ignored.
func (e *Engine) advance(id uint64) {
	started := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if id != e.timerID || e.state != StatePlaying || len(e.route) == 0 {
		return
	}

	last := len(e.route) - 1
	next := e.cursor + 1
	if next > last {
		next = 0
	}
	moved := next != e.cursor
	if moved {
		e.heading = geo.BearingDegrees(e.route[e.cursor], e.route[next])
		e.cursor = next
		e.position = e.route[next]
	}

	if next == last {
		e.stopTimerLocked()
		e.status = StatusArrived
		e.setStateLocked(StateFinished)
		e.logger.Info().Str("option", string(e.option.Key)).Msg("playback finished")
	}
	e.emitLocked()
	if moved {
		e.recorder.TickObserved(e.clock.Now().Sub(started))
	}
}

func (e *Engine) runTimer(id uint64, t Ticker, done <-chan struct{}) {
	defer e.wg.Done()
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case <-t.C():
			e.advance(id)
		}
	}
}

func (e *Engine) startTimerLocked() {
	e.stopTimerLocked()

	e.timerID++
	done := make(chan struct{})
	e.timerDone = done
	t := e.clock.NewTicker(e.interval)

	e.wg.Add(1)
	go e.runTimer(e.timerID, t, done)
}

// stopTimerLocked is idempotent. Bumping timerID invalidates a tick already waiting on mu.
func (e *Engine) stopTimerLocked() {
	if e.timerDone == nil {
		return
	}
	close(e.timerDone)
	e.timerDone = nil
	e.timerID++
}

func (e *Engine) abortFetchLocked() {
	if e.cancelFetch != nil {
		e.cancelFetch()
		e.cancelFetch = nil
	}
	e.epoch++
}

func (e *Engine) resetLocked(opt OptionConfig) {
	e.option = opt
	e.route = nil
	e.cursor = 0
	e.position = opt.Start
	e.heading = 0
	e.distanceKm = opt.DistanceKm
	e.minutes = opt.EstimatedMinutes
	e.status = StatusSelected
	e.setStateLocked(StateIdle)
}

func (e *Engine) setStateLocked(s State) {
	if e.state == s {
		return
	}
	from := e.state
	e.state = s
	e.recorder.StateChanged(from, s)
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Seq:              e.seq,
		Option:           e.option.Key,
		Label:            e.option.Label,
		State:            e.state,
		Position:         e.position,
		Heading:          e.heading,
		Cursor:           e.cursor,
		Route:            e.route,
		RouteVisible:     e.state.HasRoute() && len(e.route) > 0,
		DistanceKm:       e.distanceKm,
		EstimatedMinutes: e.minutes,
		Status:           e.status,
		At:               e.clock.Now(),
	}
}

func (e *Engine) emitLocked() {
	e.seq++
	if dropped := e.subs.publish(e.snapshotLocked()); dropped > 0 {
		e.recorder.SnapshotDropped(dropped)
	}
}
