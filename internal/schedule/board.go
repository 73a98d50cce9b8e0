package schedule

import (
	"context"
	"sort"
)

// StationDeparture is one upcoming boardable call at a station
type StationDeparture struct {
	TripID     string      `json:"trip_id"`
	RouteID    string      `json:"route_id"`
	SubRouteID string      `json:"sub_route_id"`
	Direction  Direction   `json:"direction"`
	Departure  ServiceTime `json:"departure"`
	TerminusID string      `json:"terminus_id"`
}

// Board lists departures at a station within a time window
type Board interface {
	DeparturesAt(ctx context.Context, stationID string, notEarlierThan ServiceTime, window, limit int) ([]StationDeparture, error)
}

// DeparturesAt implements Board. Calls at a trip's last station are not boardable.
func (t *Timetable) DeparturesAt(ctx context.Context, stationID string, notEarlierThan ServiceTime, window, limit int) ([]StationDeparture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	until := notEarlierThan.Add(window)
	var out []StationDeparture

	for _, trips := range t.trips {
		for _, trip := range trips {
			last := len(trip.Calls) - 1
			for i, call := range trip.Calls {
				if i == last || call.StationID != stationID {
					continue
				}
				dep := ServiceTime(call.Departure)
				if dep < notEarlierThan || dep >= until {
					continue
				}
				out = append(out, StationDeparture{
					TripID:     trip.ID,
					RouteID:    trip.RouteID,
					SubRouteID: trip.SubRouteID,
					Direction:  Direction(trip.Direction),
					Departure:  dep,
					TerminusID: trip.Calls[last].StationID,
				})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Departure != out[j].Departure {
			return out[i].Departure < out[j].Departure
		}
		return out[i].TripID < out[j].TripID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
