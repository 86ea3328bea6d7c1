// Package replay drives a memory access trace through a pair of caches,
// one with the next-block prefetcher off and one with it on, so that their
// statistics can be compared for the same input stream.
package replay

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cachereplay/datarecording"
	"github.com/sarchlab/cachereplay/mem/cache"
	"github.com/sarchlab/cachereplay/mem/trace"
	"github.com/sarchlab/cachereplay/monitoring"
)

//go:generate mockgen -destination "mock_eventsource_test.go" -package $GOPACKAGE -write_package_comment=false github.com/sarchlab/cachereplay/replay EventSource

// An EventSource yields trace events in input order. Next returns io.EOF
// when the stream is exhausted.
type EventSource interface {
	Next() (trace.Event, error)
}

// A Result is the final counter snapshot of one cache of a run, labeled by
// its prefetch mode.
type Result struct {
	RunID           string
	Label           string
	PrefetchEnabled bool
	Stats           cache.Stats
}

// resultsTable is the table replay results are recorded into.
const resultsTable = "replay_results"

type resultEntry struct {
	RunID         string
	Label         string
	CacheBytes    uint64
	Associativity int
	BlockSize     int
	Policy        string
	Prefetch      bool
	Reads         uint64
	Writes        uint64
	Hits          uint64
	Misses        uint64
}

// A Runner feeds one event stream to two identically configured caches.
// The caches share their configuration but never their state, and both are
// updated deterministically for every event.
type Runner struct {
	runID       string
	geometry    cache.Geometry
	policy      cache.Policy
	demand      *cache.Cache
	prefetching *cache.Cache
	recorder    datarecording.DataRecorder

	mu         sync.Mutex
	eventCount uint64
}

// Builder can build runners.
type Builder struct {
	geometry cache.Geometry
	policy   cache.Policy
	recorder datarecording.DataRecorder
	monitor  *monitoring.Monitor
}

// MakeBuilder creates a builder with the default cache parameters and no
// recorder or monitor attached.
func MakeBuilder() Builder {
	geometry, err := cache.MakeGeometry(16*1024, 4, 64)
	if err != nil {
		panic(err)
	}

	return Builder{
		geometry: geometry,
		policy:   cache.PolicyLRU,
	}
}

// WithGeometry sets the geometry both caches are built with.
func (b Builder) WithGeometry(geometry cache.Geometry) Builder {
	b.geometry = geometry
	return b
}

// WithPolicy sets the replacement policy both caches are built with.
func (b Builder) WithPolicy(policy cache.Policy) Builder {
	b.policy = policy
	return b
}

// WithRecorder makes the runner record its results with the given
// recorder.
func (b Builder) WithRecorder(recorder datarecording.DataRecorder) Builder {
	b.recorder = recorder
	return b
}

// WithMonitor registers the runner with a monitor so that the run can be
// observed while it progresses.
func (b Builder) WithMonitor(monitor *monitoring.Monitor) Builder {
	b.monitor = monitor
	return b
}

// Build builds a runner.
func (b Builder) Build() *Runner {
	r := &Runner{
		runID:    xid.New().String(),
		geometry: b.geometry,
		policy:   b.policy,
		recorder: b.recorder,
		demand: cache.MakeBuilder().
			WithGeometry(b.geometry).
			WithPolicy(b.policy).
			Build("Demand"),
		prefetching: cache.MakeBuilder().
			WithGeometry(b.geometry).
			WithPolicy(b.policy).
			WithPrefetch(true).
			Build("Prefetching"),
	}

	if b.recorder != nil {
		b.recorder.CreateTable(resultsTable, resultEntry{})
	}

	if b.monitor != nil {
		b.monitor.RegisterRun(r)
	}

	return r
}

// Run replays every event of src, strictly in input order, and returns the
// final results of both caches, prefetch off first.
func (r *Runner) Run(src EventSource) ([]Result, error) {
	log := logrus.WithField("run", r.runID)
	log.Infof("Replaying with geometry %d/%d/%d, policy %s",
		r.geometry.CacheByteSize, r.geometry.WayAssociativity,
		r.geometry.BlockSize, r.policy)

	for {
		event, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read trace: %w", err)
		}

		r.apply(event)
	}

	results := r.Results()
	r.record(results)

	log.Infof("Replayed %d events", r.EventCount())

	return results, nil
}

func (r *Runner) apply(event trace.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event.Op {
	case trace.OpRead:
		r.demand.Read(event.Addr)
		r.prefetching.Read(event.Addr)
	case trace.OpWrite:
		r.demand.Write(event.Addr)
		r.prefetching.Write(event.Addr)
	}

	r.eventCount++
}

// Results returns the current counter snapshots of both caches.
func (r *Runner) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	return []Result{
		{
			RunID: r.runID,
			Label: "demand",
			Stats: r.demand.Snapshot(),
		},
		{
			RunID:           r.runID,
			Label:           "prefetch",
			PrefetchEnabled: true,
			Stats:           r.prefetching.Snapshot(),
		},
	}
}

func (r *Runner) record(results []Result) {
	if r.recorder == nil {
		return
	}

	for _, res := range results {
		r.recorder.InsertData(resultsTable, resultEntry{
			RunID:         res.RunID,
			Label:         res.Label,
			CacheBytes:    r.geometry.CacheByteSize,
			Associativity: r.geometry.WayAssociativity,
			BlockSize:     r.geometry.BlockSize,
			Policy:        r.policy.String(),
			Prefetch:      res.PrefetchEnabled,
			Reads:         res.Stats.Reads,
			Writes:        res.Stats.Writes,
			Hits:          res.Stats.Hits,
			Misses:        res.Stats.Misses,
		})
	}

	r.recorder.Flush()
}

// RunID returns the unique ID of this run.
func (r *Runner) RunID() string {
	return r.runID
}

// EventCount returns the number of events replayed so far.
func (r *Runner) EventCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.eventCount
}

// Caches implements monitoring.Source.
func (r *Runner) Caches() []monitoring.CacheStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return []monitoring.CacheStatus{
		{
			Name:  r.demand.Name(),
			Stats: r.demand.Snapshot(),
		},
		{
			Name:            r.prefetching.Name(),
			PrefetchEnabled: true,
			Stats:           r.prefetching.Snapshot(),
		},
	}
}
