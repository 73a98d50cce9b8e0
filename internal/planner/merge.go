package planner

import (
	"context"
	"errors"

	"github.com/passbi/railplanner/internal/schedule"
	"github.com/rs/zerolog/log"
)

// mergeRouteBoundary collapses the last two rides into one when they carry
// different route IDs but the same sub-route ID. This only happens when a
// sub-route crosses a route boundary in the network data.
func (tc *TraversalContext) mergeRouteBoundary(ctx context.Context, provider schedule.Provider, rides []schedule.Departure) ([]schedule.Departure, error) {
	if len(rides) < 2 {
		return rides, nil
	}

	a, b := rides[len(rides)-2], rides[len(rides)-1]
	if a.RouteID == b.RouteID || a.SubRouteID != b.SubRouteID {
		return rides, nil
	}

	fromSeq, ok := tc.Graph.Sequence(a.FromStationID, a.SubRouteID)
	if !ok {
		return rides, nil
	}
	toSeq, ok := tc.Graph.Sequence(b.ToStationID, a.SubRouteID)
	if !ok {
		return rides, nil
	}

	merged, err := provider.EarliestDeparture(ctx, schedule.HopRequest{
		FromStationID:  a.FromStationID,
		ToStationID:    b.ToStationID,
		SubRouteIDs:    []string{a.SubRouteID},
		Direction:      schedule.DirectionBetween(fromSeq, toSeq),
		NotEarlierThan: a.Departure,
	})
	if errors.Is(err, schedule.ErrNoDeparture) {
		return rides, nil
	}
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("sub_route", a.SubRouteID).
		Str("from", a.FromStationID).
		Str("to", b.ToStationID).
		Msg("merged rides across route boundary")

	out := append([]schedule.Departure(nil), rides[:len(rides)-2]...)
	return append(out, merged), nil
}
