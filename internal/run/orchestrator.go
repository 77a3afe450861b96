// Package run drives a search run end to end: route search, sequential
// enrichment of every listing, clustering and progress reporting.
package run

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/klanavo/klanavo/internal/cluster"
	"github.com/klanavo/klanavo/internal/geo"
	"github.com/klanavo/klanavo/internal/model"
	"github.com/klanavo/klanavo/pkg/geocode"
	"github.com/klanavo/klanavo/pkg/proxy"
	"github.com/klanavo/klanavo/pkg/search"
)

// Event is published whenever the current run changes. Listing is set when
// the event announces a newly committed listing.
type Event struct {
	RunID    uuid.UUID
	Epoch    uint64
	State    model.RunState
	Progress int
	Message  string
	Listing  *model.EnrichedListing
}

// Snapshot is a point-in-time copy of the orchestrator's visible state.
type Snapshot struct {
	ID       string                  `json:"id,omitempty" yaml:"id,omitempty"`
	Epoch    uint64                  `json:"epoch" yaml:"epoch"`
	State    model.RunState          `json:"state" yaml:"state"`
	Progress int                     `json:"progress" yaml:"progress"`
	Message  string                  `json:"message" yaml:"message"`
	Total    int                     `json:"total" yaml:"total"`
	Route    [][]float64             `json:"route,omitempty" yaml:"route,omitempty"`
	Listings []model.EnrichedListing `json:"listings" yaml:"listings"`
	Clusters []model.Cluster         `json:"clusters" yaml:"clusters"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClusterRadius sets the clustering radius in metres.
func WithClusterRadius(meters float64) Option {
	return func(o *Orchestrator) {
		if meters > 0 {
			o.clusterRadius = meters
		}
	}
}

// WithListener registers a callback for run events. It is called from the
// run's worker goroutine and must not block.
func WithListener(fn func(Event)) Option {
	return func(o *Orchestrator) { o.listener = fn }
}

// Orchestrator owns at most one active run at a time.
type Orchestrator struct {
	searcher      search.Searcher
	pages         proxy.Fetcher
	geocoder      geocode.Client
	clusterRadius float64
	listener      func(Event)

	epoch Epoch

	// startMu serialises Start, Cancel and Reset.
	startMu sync.Mutex

	mu       sync.Mutex
	session  *Session
	state    model.RunState
	progress int
	message  string
	total    int
	route    [][]float64
	listings []model.EnrichedListing
	clusters *cluster.Set
}

// New creates an Orchestrator.
func New(searcher search.Searcher, pages proxy.Fetcher, geocoder geocode.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		searcher:      searcher,
		pages:         pages,
		geocoder:      geocoder,
		clusterRadius: cluster.DefaultRadiusMeters,
		state:         model.RunIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.clusters = cluster.NewSet(o.clusterRadius)
	return o
}

// Start validates p and launches a new run in the background. An active run
// is cancelled first, and Start waits for its worker to exit. The run lives
// until ctx is cancelled, Cancel is called, or it finishes.
func (o *Orchestrator) Start(ctx context.Context, p Params) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	o.startMu.Lock()
	defer o.startMu.Unlock()

	o.cancelActive()

	epoch := o.epoch.Next()
	runCtx, cancel := context.WithCancel(ctx)
	s := newSession(epoch, p, cancel)

	o.mu.Lock()
	o.session = s
	o.state = model.RunRunning
	o.progress = 0
	o.message = "Searching route"
	o.total = 0
	o.route = nil
	o.listings = nil
	o.clusters = cluster.NewSet(o.clusterRadius)
	o.mu.Unlock()

	o.emit(Event{RunID: s.ID, Epoch: epoch, State: model.RunRunning, Message: "Searching route"})

	go o.execute(runCtx, s)
	return s, nil
}

// Run starts a run and blocks until it ends.
func (o *Orchestrator) Run(ctx context.Context, p Params) (Outcome, error) {
	s, err := o.Start(ctx, p)
	if err != nil {
		return Outcome{}, err
	}
	<-s.Done()
	return s.Outcome(), nil
}

// Cancel aborts the active run, if any, and waits for its worker to exit.
// It is serialised with Start, so a run being started concurrently is either
// cancelled or not yet visible.
func (o *Orchestrator) Cancel() {
	o.startMu.Lock()
	defer o.startMu.Unlock()
	o.cancelActive()
}

// cancelActive stops the current session. Callers hold startMu.
func (o *Orchestrator) cancelActive() {
	o.mu.Lock()
	s := o.session
	o.mu.Unlock()
	if s == nil {
		return
	}
	select {
	case <-s.done:
		return
	default:
	}
	s.stop()
	<-s.done
}

// Reset cancels any active run and returns to Idle with empty results.
// Late results of the cancelled run are discarded.
func (o *Orchestrator) Reset() {
	o.startMu.Lock()
	defer o.startMu.Unlock()

	o.cancelActive()
	o.epoch.Next()

	o.mu.Lock()
	o.session = nil
	o.state = model.RunIdle
	o.progress = 0
	o.message = ""
	o.total = 0
	o.route = nil
	o.listings = nil
	o.clusters = cluster.NewSet(o.clusterRadius)
	o.mu.Unlock()
}

// Snapshot returns a copy of the current run state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		Epoch:    o.epoch.Current(),
		State:    o.state,
		Progress: o.progress,
		Message:  o.message,
		Total:    o.total,
		Route:    o.route,
		Listings: append([]model.EnrichedListing(nil), o.listings...),
		Clusters: o.clusters.Clusters(),
	}
	if o.session != nil {
		snap.ID = o.session.ID.String()
	}
	return snap
}

// State returns the current run state.
func (o *Orchestrator) State() model.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) execute(ctx context.Context, s *Session) {
	defer close(s.done)
	defer s.cancel()

	log := zap.L().With(zap.String("run_id", s.ID.String()), zap.Uint64("epoch", s.Epoch))
	log.Info("run: started",
		zap.String("query", s.Params.Query),
		zap.String("start", s.Params.Start),
		zap.String("end", s.Params.End),
	)

	resp, err := o.searcher.RouteSearch(ctx, s.Params.request())
	if err != nil {
		if ctx.Err() != nil {
			o.finish(log, s, Outcome{State: model.RunAborted, Message: "Aborted"})
			return
		}
		log.Error("run: route search failed", zap.Error(err))
		o.finish(log, s, Outcome{State: model.RunFailed, Message: failureMessage(err)})
		return
	}

	route, err := geo.NewRoute(resp.Route)
	if err != nil {
		log.Debug("run: no usable route geometry", zap.Error(err))
		route = nil
	}

	total := len(resp.Listings)
	if !o.begin(s, total, resp.Route) {
		return
	}
	log.Info("run: route search complete", zap.Int("listings", total), zap.Int("route_points", len(resp.Route)))

	for i, raw := range resp.Listings {
		if ctx.Err() != nil {
			break
		}
		listing, ok := o.enrich(ctx, log, raw, route)
		if !ok {
			break
		}
		o.commit(s, i+1, total, listing)
	}

	if ctx.Err() != nil {
		o.finish(log, s, Outcome{State: model.RunAborted, Count: o.count(s), Message: "Aborted"})
		return
	}
	n := o.count(s)
	o.finish(log, s, Outcome{State: model.RunCompleted, Count: n, Message: fmt.Sprintf("Completed: %d listings", n)})
}

// begin records the search response. It returns false when the session has
// been superseded.
func (o *Orchestrator) begin(s *Session, total int, route [][]float64) bool {
	o.mu.Lock()
	if !o.epoch.IsCurrent(s.Epoch) {
		o.mu.Unlock()
		return false
	}
	o.total = total
	o.route = route
	o.message = fmt.Sprintf("Enriching %d listings", total)
	o.mu.Unlock()

	o.emit(Event{RunID: s.ID, Epoch: s.Epoch, State: model.RunRunning, Message: fmt.Sprintf("Enriching %d listings", total)})
	return true
}

// commit appends a listing and advances progress. Listings from a superseded
// session are dropped.
func (o *Orchestrator) commit(s *Session, processed, total int, listing model.EnrichedListing) {
	o.mu.Lock()
	if !o.epoch.IsCurrent(s.Epoch) {
		o.mu.Unlock()
		return
	}
	if listing.Position != nil {
		c := o.clusters.Assign(listing.Position.Lat, listing.Position.Lon)
		id := c.ID
		listing.ClusterID = &id
	}
	o.listings = append(o.listings, listing)
	o.progress = progressOf(processed, total)
	progress := o.progress
	o.mu.Unlock()

	o.emit(Event{RunID: s.ID, Epoch: s.Epoch, State: model.RunRunning, Progress: progress, Listing: &listing})
}

func (o *Orchestrator) finish(log *zap.Logger, s *Session, out Outcome) {
	s.setOutcome(out)

	o.mu.Lock()
	if !o.epoch.IsCurrent(s.Epoch) {
		o.mu.Unlock()
		log.Debug("run: discarding outcome of superseded run", zap.String("state", string(out.State)))
		return
	}
	o.state = out.State
	o.message = out.Message
	if out.State == model.RunCompleted {
		o.progress = 100
	}
	progress := o.progress
	o.mu.Unlock()

	log.Info("run: finished", zap.String("state", string(out.State)), zap.Int("listings", out.Count))
	o.emit(Event{RunID: s.ID, Epoch: s.Epoch, State: out.State, Progress: progress, Message: out.Message})
}

func (o *Orchestrator) count(s *Session) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.epoch.IsCurrent(s.Epoch) {
		return 0
	}
	return len(o.listings)
}

func (o *Orchestrator) emit(ev Event) {
	if o.listener == nil || !o.epoch.IsCurrent(ev.Epoch) {
		return
	}
	o.listener(ev)
}

// progressOf returns floor(processed/total*100).
func progressOf(processed, total int) int {
	if total <= 0 {
		return 100
	}
	return processed * 100 / total
}

// failureMessage is the user-visible status line of a failed run. Backend
// errors carry their own detail text.
func failureMessage(err error) string {
	var be *search.BackendError
	if errors.As(err, &be) {
		return be.Error()
	}
	return err.Error()
}
