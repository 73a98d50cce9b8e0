package network

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/passbi/railplanner/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

type membershipRow struct {
	stationID  string
	subRouteID string
	sequence   int
}

// LoadSnapshot loads the whole network from PostgreSQL into memory
func LoadSnapshot(ctx context.Context, db *pgxpool.Pool) (*Snapshot, error) {
	startTime := time.Now()
	log.Info().Msg("Loading network into memory...")

	var (
		stations    []models.Station
		routes      []models.Route
		subRoutes   []models.SubRoute
		memberships []membershipRow
		transfers   []models.TransferLink
	)

	p := pool.New().WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		rows, err := db.Query(ctx, `SELECT id, name_tc, name_en FROM station ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to load stations: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var st models.Station
			if err := rows.Scan(&st.ID, &st.Name.TC, &st.Name.EN); err != nil {
				log.Warn().Err(err).Msg("failed to scan station")
				continue
			}
			stations = append(stations, st)
		}
		return rows.Err()
	})

	p.Go(func(ctx context.Context) error {
		rows, err := db.Query(ctx, `SELECT id, name_tc, name_en FROM route ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to load routes: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r models.Route
			if err := rows.Scan(&r.ID, &r.Name.TC, &r.Name.EN); err != nil {
				log.Warn().Err(err).Msg("failed to scan route")
				continue
			}
			routes = append(routes, r)
		}
		return rows.Err()
	})

	p.Go(func(ctx context.Context) error {
		rows, err := db.Query(ctx, `SELECT id, route_id, name_tc, name_en FROM sub_route ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to load sub-routes: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var sr models.SubRoute
			if err := rows.Scan(&sr.ID, &sr.RouteID, &sr.Name.TC, &sr.Name.EN); err != nil {
				log.Warn().Err(err).Msg("failed to scan sub-route")
				continue
			}
			subRoutes = append(subRoutes, sr)
		}
		return rows.Err()
	})

	p.Go(func(ctx context.Context) error {
		rows, err := db.Query(ctx, `
			SELECT station_id, sub_route_id, sequence
			FROM sub_route_station
			ORDER BY sub_route_id, sequence
		`)
		if err != nil {
			return fmt.Errorf("failed to load sub-route stations: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var m membershipRow
			if err := rows.Scan(&m.stationID, &m.subRouteID, &m.sequence); err != nil {
				log.Warn().Err(err).Msg("failed to scan sub-route station")
				continue
			}
			memberships = append(memberships, m)
		}
		return rows.Err()
	})

	p.Go(func(ctx context.Context) error {
		rows, err := db.Query(ctx, `
			SELECT station_a, station_b, duration_seconds
			FROM transfer
			ORDER BY station_a, station_b
		`)
		if err != nil {
			return fmt.Errorf("failed to load transfers: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var l models.TransferLink
			if err := rows.Scan(&l.StationA, &l.StationB, &l.Duration); err != nil {
				log.Warn().Err(err).Msg("failed to scan transfer")
				continue
			}
			transfers = append(transfers, l)
		}
		return rows.Err()
	})

	if err := p.Wait(); err != nil {
		return nil, err
	}

	snap := NewSnapshot()
	for _, st := range stations {
		snap.AddStation(st)
	}
	for _, r := range routes {
		snap.AddRoute(r)
	}
	for _, sr := range subRoutes {
		snap.AddSubRoute(sr)
	}
	for _, m := range memberships {
		if err := snap.AddMembership(m.stationID, m.subRouteID, m.sequence); err != nil {
			log.Warn().Err(err).Str("station", m.stationID).Msg("skipping membership")
		}
	}
	for _, l := range transfers {
		snap.AddTransfer(l)
	}

	log.Info().
		Int("stations", len(stations)).
		Int("sub_routes", len(subRoutes)).
		Int("transfers", len(transfers)).
		Dur("duration", time.Since(startTime)).
		Msg("Network loaded")

	return snap, nil
}
