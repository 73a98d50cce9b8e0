package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/passbi/railplanner/internal/schedule"
)

// traverse runs the FIFO label-setting walk until the queue drains.
// Neighbors are expanded one at a time in adjacency order; the order decides ties.
func (tc *TraversalContext) traverse(ctx context.Context, provider schedule.Provider, maxExpansions int) error {
	for len(tc.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		s := tc.dequeue()
		if tc.visited[s] {
			continue
		}

		if maxExpansions > 0 && tc.expansions >= maxExpansions {
			return fmt.Errorf("%w: %d stations expanded", ErrSearchBudgetExceeded, tc.expansions)
		}
		tc.visited[s] = true
		tc.expansions++

		// destination is final once expanded unless labels can still improve
		if s == tc.Destination && !tc.strategy.Reopens() {
			return nil
		}

		for _, n := range tc.Graph.RideAdjacent[s] {
			if err := tc.relax(ctx, provider, s, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// relax tries to improve n's label with a ride from s
func (tc *TraversalContext) relax(ctx context.Context, provider schedule.Provider, s, n string) error {
	if tc.visited[n] && !tc.strategy.Reopens() {
		return nil
	}

	dep, err := earliestHop(ctx, provider, s, n, tc.Graph.Shared(s, n), tc.arrival[s])
	if errors.Is(err, schedule.ErrNoDeparture) {
		return nil
	}
	if err != nil {
		return err
	}

	if !tc.improves(n, dep.Arrival) {
		return nil
	}
	tc.label(n, s, dep.Arrival, dep)
	tc.propagateTransfer(n, s, dep)

	return nil
}

// propagateTransfer labels n's transfer partner with the same predecessor and segment.
// A transfer adds walking time but no segment. The walk replaces the partner's
// label only under the same rule as a ride, so an earlier label is never pushed later.
func (tc *TraversalContext) propagateTransfer(n, s string, dep schedule.Departure) {
	tr, ok := tc.Graph.TransferOf[n]
	if !ok {
		return
	}

	at := tc.arrival[n].Add(tr.Duration)
	if !tc.improves(tr.StationID, at) {
		return
	}
	tc.label(tr.StationID, s, at, dep)
}

// improves reports whether arriving at station at t should replace its label.
// Equal times overwrite unexpanded stations; expanded ones need a strictly earlier time.
func (tc *TraversalContext) improves(station string, t schedule.ServiceTime) bool {
	if tc.visited[station] {
		return tc.strategy.Reopens() && t < tc.arrival[station]
	}
	current, ok := tc.arrival[station]
	return !ok || t <= current
}

func (tc *TraversalContext) label(station, from string, t schedule.ServiceTime, dep schedule.Departure) {
	delete(tc.visited, station)
	delete(tc.roots, station)
	tc.arrival[station] = t
	tc.predecessor[station] = from
	tc.segmentOf[hop{from: from, to: station}] = dep
	tc.enqueue(station)
}
