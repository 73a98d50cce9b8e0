package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/passbi/railplanner/internal/models"
	"github.com/passbi/railplanner/internal/network"
	"github.com/passbi/railplanner/internal/schedule"
	"github.com/rs/zerolog/log"
)

// Transfer is a station's walking link to its partner
type Transfer struct {
	StationID string
	Duration  int // seconds
}

// Adjacency is the read-only graph of one journey query.
// Its station universe is the origin, the destination and every transfer station.
type Adjacency struct {
	SubRoutesOf  map[string][]models.Membership // station -> memberships
	StationsOf   map[string][]string            // sub-route -> stations by sequence
	RideAdjacent map[string][]string            // station -> stations sharing a sub-route
	TransferOf   map[string]Transfer            // station -> single transfer partner
}

// Build constructs the adjacency for a query from the registry.
// Origin and destination must have sub-route memberships; transfer stations
// without membership are skipped.
func Build(ctx context.Context, reg network.Registry, origin, destination string) (*Adjacency, error) {
	links, err := reg.Transfers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transfers: %w", err)
	}

	adj := &Adjacency{
		SubRoutesOf:  make(map[string][]models.Membership),
		StationsOf:   make(map[string][]string),
		RideAdjacent: make(map[string][]string),
		TransferOf:   make(map[string]Transfer),
	}

	universe := []string{origin, destination}
	for _, l := range links {
		universe = append(universe, l.StationA, l.StationB)
	}

	for i, station := range universe {
		if _, seen := adj.SubRoutesOf[station]; seen {
			continue
		}
		mems, err := reg.SubRoutesOf(ctx, station)
		if err != nil {
			if i >= 2 && errors.Is(err, network.ErrNotFound) {
				log.Debug().Str("station", station).Msg("transfer station has no sub-routes, skipping")
				adj.SubRoutesOf[station] = nil
				continue
			}
			return nil, err
		}
		adj.SubRoutesOf[station] = mems
	}

	adj.buildStationsOf()
	adj.buildRideAdjacent()
	adj.buildTransfers(links)

	return adj, nil
}

func (a *Adjacency) buildStationsOf() {
	type member struct {
		station  string
		sequence int
	}
	bySubRoute := make(map[string][]member)
	for station, mems := range a.SubRoutesOf {
		for _, m := range mems {
			bySubRoute[m.SubRouteID] = append(bySubRoute[m.SubRouteID], member{station, m.Sequence})
		}
	}

	for subRoute, members := range bySubRoute {
		sort.Slice(members, func(i, j int) bool {
			if members[i].sequence != members[j].sequence {
				return members[i].sequence < members[j].sequence
			}
			return members[i].station < members[j].station
		})
		stations := make([]string, 0, len(members))
		for _, m := range members {
			if len(stations) > 0 && stations[len(stations)-1] == m.station {
				continue
			}
			stations = append(stations, m.station)
		}
		a.StationsOf[subRoute] = stations
	}
}

// buildRideAdjacent connects every pair of stations on each sub-route.
// Neighbor order follows sub-route ID, then sequence, which fixes the traversal's FIFO order.
func (a *Adjacency) buildRideAdjacent() {
	subRoutes := make([]string, 0, len(a.StationsOf))
	for id := range a.StationsOf {
		subRoutes = append(subRoutes, id)
	}
	sort.Strings(subRoutes)

	seen := make(map[[2]string]bool)
	connect := func(x, y string) {
		if x == y || seen[[2]string{x, y}] {
			return
		}
		seen[[2]string{x, y}] = true
		a.RideAdjacent[x] = append(a.RideAdjacent[x], y)
	}

	for _, id := range subRoutes {
		stations := a.StationsOf[id]
		for i := range stations {
			for j := range stations {
				if i != j {
					connect(stations[i], stations[j])
				}
			}
		}
	}
}

// buildTransfers keeps one partner per station; a later link overwrites an earlier one
func (a *Adjacency) buildTransfers(links []models.TransferLink) {
	set := func(station string, t Transfer) {
		if prev, ok := a.TransferOf[station]; ok && prev.StationID != t.StationID {
			log.Warn().
				Str("station", station).
				Str("previous", prev.StationID).
				Str("partner", t.StationID).
				Msg("station has more than one transfer partner, keeping the last")
		}
		a.TransferOf[station] = t
	}

	for _, l := range links {
		if l.StationA == l.StationB {
			continue
		}
		set(l.StationA, Transfer{StationID: l.StationB, Duration: l.Duration})
		set(l.StationB, Transfer{StationID: l.StationA, Duration: l.Duration})
	}
}

// Sequence returns the position of a station on a sub-route
func (a *Adjacency) Sequence(station, subRouteID string) (int, bool) {
	for _, m := range a.SubRoutesOf[station] {
		if m.SubRouteID == subRouteID {
			return m.Sequence, true
		}
	}
	return 0, false
}

// Shared returns the sub-routes serving both stations of the query graph
func (a *Adjacency) Shared(from, to string) []SharedSubRoute {
	return Shared(a.SubRoutesOf[from], a.SubRoutesOf[to])
}

// SharedSubRoute is a sub-route serving both ends of a ride
type SharedSubRoute struct {
	SubRouteID   string
	RouteID      string
	FromSequence int
	ToSequence   int
}

// Direction resolves the direction of travel from the two sequence indices
func (s SharedSubRoute) Direction() schedule.Direction {
	return schedule.DirectionBetween(s.FromSequence, s.ToSequence)
}

// Shared intersects two membership lists by sub-route, ordered by sub-route ID
func Shared(from, to []models.Membership) []SharedSubRoute {
	toSeq := make(map[string]int, len(to))
	for _, m := range to {
		if _, ok := toSeq[m.SubRouteID]; !ok {
			toSeq[m.SubRouteID] = m.Sequence
		}
	}

	var shared []SharedSubRoute
	seen := make(map[string]bool)
	for _, m := range from {
		seq, ok := toSeq[m.SubRouteID]
		if !ok || seen[m.SubRouteID] {
			continue
		}
		seen[m.SubRouteID] = true
		shared = append(shared, SharedSubRoute{
			SubRouteID:   m.SubRouteID,
			RouteID:      m.RouteID,
			FromSequence: m.Sequence,
			ToSequence:   seq,
		})
	}

	sort.Slice(shared, func(i, j int) bool { return shared[i].SubRouteID < shared[j].SubRouteID })
	return shared
}
