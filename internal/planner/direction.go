package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/passbi/railplanner/internal/graph"
	"github.com/passbi/railplanner/internal/schedule"
)

// earliestHop asks the provider for the best ride between two stations.
// Shared sub-routes are grouped by the direction their sequence indices resolve to,
// with one provider call per group; the earliest arrival across groups wins.
func earliestHop(ctx context.Context, provider schedule.Provider, from, to string, shared []graph.SharedSubRoute, notEarlierThan schedule.ServiceTime) (schedule.Departure, error) {
	byDirection := make(map[schedule.Direction][]string)
	for _, s := range shared {
		byDirection[s.Direction()] = append(byDirection[s.Direction()], s.SubRouteID)
	}

	var best schedule.Departure
	found := false

	for _, dir := range []schedule.Direction{schedule.DirectionOutbound, schedule.DirectionInbound} {
		subRoutes := byDirection[dir]
		if len(subRoutes) == 0 {
			continue
		}

		dep, err := provider.EarliestDeparture(ctx, schedule.HopRequest{
			FromStationID:  from,
			ToStationID:    to,
			SubRouteIDs:    subRoutes,
			Direction:      dir,
			NotEarlierThan: notEarlierThan,
		})
		if errors.Is(err, schedule.ErrNoDeparture) {
			continue
		}
		if err != nil {
			return schedule.Departure{}, fmt.Errorf("schedule lookup %s -> %s: %w", from, to, err)
		}
		if dep.Departure < notEarlierThan {
			return schedule.Departure{}, fmt.Errorf("schedule lookup %s -> %s: departure %s before %s",
				from, to, dep.Departure, notEarlierThan)
		}

		if !found || dep.Before(best) {
			best = dep
			found = true
		}
	}

	if !found {
		return schedule.Departure{}, schedule.ErrNoDeparture
	}
	return best, nil
}
