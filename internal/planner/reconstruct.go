package planner

import (
	"fmt"

	"github.com/passbi/railplanner/internal/schedule"
)

// reconstruct walks predecessors back from the destination and returns the rides in travel order
func (tc *TraversalContext) reconstruct() ([]schedule.Departure, error) {
	if _, ok := tc.arrival[tc.Destination]; !ok {
		return nil, &StationError{StationID: tc.Destination, Err: ErrNotReachable}
	}

	delete(tc.predecessor, tc.Origin)
	tc.roots[tc.Origin] = true

	var rides []schedule.Departure
	station := tc.Destination
	for steps := 0; ; steps++ {
		prev, ok := tc.predecessor[station]
		if !ok {
			break
		}
		if steps > len(tc.predecessor) {
			return nil, fmt.Errorf("predecessor cycle through %s", station)
		}

		dep, ok := tc.segmentOf[hop{from: prev, to: station}]
		if !ok {
			return nil, fmt.Errorf("no segment recorded for %s -> %s", prev, station)
		}
		rides = append(rides, dep)
		station = prev
	}

	if !tc.roots[station] {
		return nil, fmt.Errorf("path from %s ends at %s", tc.Destination, station)
	}

	for i, j := 0, len(rides)-1; i < j; i, j = i+1, j-1 {
		rides[i], rides[j] = rides[j], rides[i]
	}
	return rides, nil
}
