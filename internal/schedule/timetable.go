package schedule

import (
	"context"
	"sort"

	"github.com/passbi/railplanner/internal/models"
)

// Timetable is an in-memory Provider over a fixed set of trips
type Timetable struct {
	trips map[string][]models.Trip // subRouteID -> trips
	count int
}

// NewTimetable indexes trips by sub-route. Calls are ordered by sequence.
func NewTimetable(trips []models.Trip) *Timetable {
	t := &Timetable{trips: make(map[string][]models.Trip)}
	for _, trip := range trips {
		calls := append([]models.Call(nil), trip.Calls...)
		sort.SliceStable(calls, func(i, j int) bool {
			return calls[i].Sequence < calls[j].Sequence
		})
		trip.Calls = calls
		t.trips[trip.SubRouteID] = append(t.trips[trip.SubRouteID], trip)
	}
	for id := range t.trips {
		trips := t.trips[id]
		sort.Slice(trips, func(i, j int) bool { return trips[i].ID < trips[j].ID })
	}
	t.count = len(trips)
	return t
}

// TripCount returns the number of trips in the timetable
func (t *Timetable) TripCount() int {
	return t.count
}

// EarliestDeparture returns the trip call with the earliest departure from the
// origin station that later calls at the destination station.
// Ties are broken by earlier arrival, then trip ID.
func (t *Timetable) EarliestDeparture(ctx context.Context, req HopRequest) (Departure, error) {
	if err := ctx.Err(); err != nil {
		return Departure{}, err
	}

	var best Departure
	found := false

	for _, subRouteID := range req.SubRouteIDs {
		for _, trip := range t.trips[subRouteID] {
			if Direction(trip.Direction) != req.Direction {
				continue
			}
			dep, ok := boardTrip(trip, req)
			if !ok {
				continue
			}
			if !found || boardsEarlier(dep, best) {
				best = dep
				found = true
			}
		}
	}

	if !found {
		return Departure{}, ErrNoDeparture
	}
	return best, nil
}

// boardTrip finds the first boardable call at the origin followed by a call at the destination
func boardTrip(trip models.Trip, req HopRequest) (Departure, bool) {
	for i, from := range trip.Calls {
		if from.StationID != req.FromStationID || ServiceTime(from.Departure) < req.NotEarlierThan {
			continue
		}
		for _, to := range trip.Calls[i+1:] {
			if to.StationID != req.ToStationID {
				continue
			}
			return Departure{
				TripID:        trip.ID,
				RouteID:       trip.RouteID,
				SubRouteID:    trip.SubRouteID,
				FromStationID: req.FromStationID,
				ToStationID:   req.ToStationID,
				Departure:     ServiceTime(from.Departure),
				Arrival:       ServiceTime(to.Arrival),
			}, true
		}
	}
	return Departure{}, false
}

func boardsEarlier(a, b Departure) bool {
	if a.Departure != b.Departure {
		return a.Departure < b.Departure
	}
	if a.Arrival != b.Arrival {
		return a.Arrival < b.Arrival
	}
	return a.TripID < b.TripID
}
