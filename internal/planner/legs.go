package planner

import (
	"context"
	"fmt"

	"github.com/passbi/railplanner/internal/models"
	"github.com/passbi/railplanner/internal/network"
)

// BuildLegs enriches itinerary segments with the display names of their route,
// sub-route and stations. Missing metadata is an error.
func BuildLegs(ctx context.Context, registry network.Registry, itinerary models.Itinerary) ([]models.JourneyLeg, error) {
	names := &nameLookup{
		registry:  registry,
		stations:  make(map[string]models.LocalizedName),
		routes:    make(map[string]models.LocalizedName),
		subRoutes: make(map[string]models.LocalizedName),
	}

	legs := make([]models.JourneyLeg, 0, len(itinerary))
	for _, seg := range itinerary {
		routeName, err := names.route(ctx, seg.RouteID)
		if err != nil {
			return nil, err
		}
		subRouteName, err := names.subRoute(ctx, seg.SubRouteID)
		if err != nil {
			return nil, err
		}
		fromName, err := names.station(ctx, seg.FromStationID)
		if err != nil {
			return nil, err
		}
		toName, err := names.station(ctx, seg.ToStationID)
		if err != nil {
			return nil, err
		}

		legs = append(legs, models.JourneyLeg{
			RouteID:         seg.RouteID,
			RouteName:       routeName,
			SubRouteID:      seg.SubRouteID,
			SubRouteName:    subRouteName,
			FromStationID:   seg.FromStationID,
			FromStationName: fromName,
			ToStationID:     seg.ToStationID,
			ToStationName:   toName,
			Schedule: models.Schedule{
				DepartureTime: seg.DepartureTime,
				ArrivalTime:   seg.ArrivalTime,
				Duration:      seg.Duration,
			},
		})
	}

	return legs, nil
}

type nameLookup struct {
	registry  network.Registry
	stations  map[string]models.LocalizedName
	routes    map[string]models.LocalizedName
	subRoutes map[string]models.LocalizedName
}

func (n *nameLookup) station(ctx context.Context, id string) (models.LocalizedName, error) {
	if name, ok := n.stations[id]; ok {
		return name, nil
	}
	st, err := n.registry.Station(ctx, id)
	if err != nil {
		return models.LocalizedName{}, fmt.Errorf("station %s: %w", id, err)
	}
	n.stations[id] = st.Name
	return st.Name, nil
}

func (n *nameLookup) route(ctx context.Context, id string) (models.LocalizedName, error) {
	if name, ok := n.routes[id]; ok {
		return name, nil
	}
	r, err := n.registry.Route(ctx, id)
	if err != nil {
		return models.LocalizedName{}, fmt.Errorf("route %s: %w", id, err)
	}
	n.routes[id] = r.Name
	return r.Name, nil
}

func (n *nameLookup) subRoute(ctx context.Context, id string) (models.LocalizedName, error) {
	if name, ok := n.subRoutes[id]; ok {
		return name, nil
	}
	sr, err := n.registry.SubRoute(ctx, id)
	if err != nil {
		return models.LocalizedName{}, fmt.Errorf("sub-route %s: %w", id, err)
	}
	n.subRoutes[id] = sr.Name
	return sr.Name, nil
}
