package network

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/passbi/railplanner/internal/models"
)

// Snapshot is an in-memory Registry. Writers replace it wholesale; readers
// see either the old or the new network, never a mix.
type Snapshot struct {
	mu          sync.RWMutex
	stations    map[string]models.Station
	routes      map[string]models.Route
	subRoutes   map[string]models.SubRoute
	memberships map[string][]models.Membership // stationID -> memberships
	transfers   []models.TransferLink
}

// NewSnapshot returns an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		stations:    make(map[string]models.Station),
		routes:      make(map[string]models.Route),
		subRoutes:   make(map[string]models.SubRoute),
		memberships: make(map[string][]models.Membership),
	}
}

// AddStation registers a station
func (s *Snapshot) AddStation(station models.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations[station.ID] = station
}

// AddRoute registers a route
func (s *Snapshot) AddRoute(route models.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[route.ID] = route
}

// AddSubRoute registers a sub-route
func (s *Snapshot) AddSubRoute(subRoute models.SubRoute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subRoutes[subRoute.ID] = subRoute
}

// AddMembership records that a station is served by a sub-route at sequence
func (s *Snapshot) AddMembership(stationID, subRouteID string, sequence int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subRoutes[subRouteID]
	if !ok {
		return fmt.Errorf("sub-route %s: %w", subRouteID, ErrNotFound)
	}

	mems := append(s.memberships[stationID], models.Membership{
		SubRouteID: subRouteID,
		RouteID:    sub.RouteID,
		Sequence:   sequence,
	})
	sort.SliceStable(mems, func(i, j int) bool {
		if mems[i].SubRouteID != mems[j].SubRouteID {
			return mems[i].SubRouteID < mems[j].SubRouteID
		}
		return mems[i].Sequence < mems[j].Sequence
	})
	s.memberships[stationID] = mems
	return nil
}

// AddLine registers a sub-route and its stations in travel order, numbering sequences from 1
func (s *Snapshot) AddLine(subRoute models.SubRoute, stationIDs ...string) error {
	s.AddSubRoute(subRoute)
	for i, id := range stationIDs {
		if err := s.AddMembership(id, subRoute.ID, i+1); err != nil {
			return err
		}
	}
	return nil
}

// AddTransfer records a symmetric transfer link
func (s *Snapshot) AddTransfer(link models.TransferLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = append(s.transfers, link)
}

// Replace swaps in the contents of other
func (s *Snapshot) Replace(other *Snapshot) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stations = other.stations
	s.routes = other.routes
	s.subRoutes = other.subRoutes
	s.memberships = other.memberships
	s.transfers = other.transfers
}

// SubRoutesOf implements Registry
func (s *Snapshot) SubRoutesOf(ctx context.Context, stationID string) ([]models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mems := s.memberships[stationID]
	if len(mems) == 0 {
		return nil, fmt.Errorf("sub-routes of station %s: %w", stationID, ErrNotFound)
	}
	return append([]models.Membership(nil), mems...), nil
}

// Transfers implements Registry
func (s *Snapshot) Transfers(ctx context.Context) ([]models.TransferLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TransferLink(nil), s.transfers...), nil
}

// Stations implements Registry
func (s *Snapshot) Stations(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(s.stations))
	for id := range s.stations {
		seen[id] = true
	}
	for id := range s.memberships {
		seen[id] = true
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Station implements Registry
func (s *Snapshot) Station(ctx context.Context, id string) (models.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	station, ok := s.stations[id]
	if !ok {
		return models.Station{}, fmt.Errorf("station %s: %w", id, ErrNotFound)
	}
	return station, nil
}

// Route implements Registry
func (s *Snapshot) Route(ctx context.Context, id string) (models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	route, ok := s.routes[id]
	if !ok {
		return models.Route{}, fmt.Errorf("route %s: %w", id, ErrNotFound)
	}
	return route, nil
}

// SubRoute implements Registry
func (s *Snapshot) SubRoute(ctx context.Context, id string) (models.SubRoute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subRoutes[id]
	if !ok {
		return models.SubRoute{}, fmt.Errorf("sub-route %s: %w", id, ErrNotFound)
	}
	return sub, nil
}

// Counts returns the number of stations, sub-routes and transfer links
func (s *Snapshot) Counts() (stations, subRoutes, transfers int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stations), len(s.subRoutes), len(s.transfers)
}
