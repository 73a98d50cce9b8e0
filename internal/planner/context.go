package planner

import (
	"github.com/passbi/railplanner/internal/graph"
	"github.com/passbi/railplanner/internal/schedule"
)

// hop identifies the (predecessor, station) pair a segment was recorded for
type hop struct {
	from string
	to   string
}

// TraversalContext owns every piece of state of one journey search.
// It is created per query and discarded with the response.
type TraversalContext struct {
	Origin      string
	Destination string
	Departure   schedule.ServiceTime
	Graph       *graph.Adjacency

	strategy    Strategy
	visited     map[string]bool
	arrival     map[string]schedule.ServiceTime
	predecessor map[string]string // absent for roots
	segmentOf   map[hop]schedule.Departure
	roots       map[string]bool
	queue       []string
	expansions  int
}

// newTraversalContext seeds the origin and, when it has one, the origin's transfer partner
func newTraversalContext(origin, destination string, departure schedule.ServiceTime, adj *graph.Adjacency, strategy Strategy) *TraversalContext {
	tc := &TraversalContext{
		Origin:      origin,
		Destination: destination,
		Departure:   departure,
		Graph:       adj,
		strategy:    strategy,
		visited:     make(map[string]bool),
		arrival:     make(map[string]schedule.ServiceTime),
		predecessor: make(map[string]string),
		segmentOf:   make(map[hop]schedule.Departure),
		roots:       make(map[string]bool),
	}

	tc.arrival[origin] = departure
	tc.roots[origin] = true
	tc.enqueue(origin)

	if tr, ok := adj.TransferOf[origin]; ok && tr.StationID != origin {
		tc.arrival[tr.StationID] = departure.Add(tr.Duration)
		tc.roots[tr.StationID] = true
		tc.enqueue(tr.StationID)
	}

	return tc
}

func (tc *TraversalContext) enqueue(station string) {
	tc.queue = append(tc.queue, station)
}

func (tc *TraversalContext) dequeue() string {
	station := tc.queue[0]
	tc.queue = tc.queue[1:]
	return station
}

// Arrival returns the earliest discovered arrival at a station
func (tc *TraversalContext) Arrival(station string) (schedule.ServiceTime, bool) {
	t, ok := tc.arrival[station]
	return t, ok
}

// Predecessor returns the station a label was reached from; roots have none
func (tc *TraversalContext) Predecessor(station string) (string, bool) {
	p, ok := tc.predecessor[station]
	return p, ok
}

// Expansions returns how many stations have been expanded so far
func (tc *TraversalContext) Expansions() int {
	return tc.expansions
}
