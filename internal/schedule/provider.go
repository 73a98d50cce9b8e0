package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/passbi/railplanner/internal/models"
)

// ErrNoDeparture is returned when no boardable departure exists for a hop
var ErrNoDeparture = errors.New("no departure")

// Direction of travel along a sub-route
type Direction int

const (
	// DirectionOutbound runs in increasing station sequence
	DirectionOutbound Direction = 0
	// DirectionInbound runs in decreasing station sequence
	DirectionInbound Direction = 1
)

// DirectionBetween resolves the direction of a ride from the sequence indices
// of the boarding and alighting stations on the sub-route
func DirectionBetween(fromSeq, toSeq int) Direction {
	if fromSeq < toSeq {
		return DirectionOutbound
	}
	return DirectionInbound
}

// HopRequest asks for the earliest boardable ride between two stations
type HopRequest struct {
	FromStationID  string
	ToStationID    string
	SubRouteIDs    []string
	Direction      Direction
	NotEarlierThan ServiceTime
}

// Key returns a deterministic identifier of the request
func (r HopRequest) Key() string {
	subRoutes := append([]string(nil), r.SubRouteIDs...)
	sort.Strings(subRoutes)
	return fmt.Sprintf("%s>%s:%s:%d:%d", r.FromStationID, r.ToStationID,
		strings.Join(subRoutes, ","), r.Direction, r.NotEarlierThan)
}

// Departure is a concrete ride answered by a Provider
type Departure struct {
	TripID        string      `json:"trip_id"`
	RouteID       string      `json:"route_id"`
	SubRouteID    string      `json:"sub_route_id"`
	FromStationID string      `json:"from_station_id"`
	ToStationID   string      `json:"to_station_id"`
	Departure     ServiceTime `json:"departure"`
	Arrival       ServiceTime `json:"arrival"`
}

// Duration returns the ride time in seconds
func (d Departure) Duration() int {
	return d.Arrival.Sub(d.Departure)
}

// Segment converts the departure into an itinerary segment
func (d Departure) Segment() models.Segment {
	return models.Segment{
		RouteID:       d.RouteID,
		SubRouteID:    d.SubRouteID,
		FromStationID: d.FromStationID,
		ToStationID:   d.ToStationID,
		DepartureTime: d.Departure.String(),
		ArrivalTime:   d.Arrival.String(),
		Duration:      d.Duration(),
	}
}

// Before orders departures by arrival, then departure, then sub-route and trip
func (d Departure) Before(o Departure) bool {
	if d.Arrival != o.Arrival {
		return d.Arrival < o.Arrival
	}
	if d.Departure != o.Departure {
		return d.Departure < o.Departure
	}
	if d.SubRouteID != o.SubRouteID {
		return d.SubRouteID < o.SubRouteID
	}
	return d.TripID < o.TripID
}

// Provider answers "what is the next departure from A toward B no earlier than T".
// Implementations must be deterministic for a fixed timetable and must never
// return a departure earlier than NotEarlierThan.
type Provider interface {
	EarliestDeparture(ctx context.Context, req HopRequest) (Departure, error)
}
