package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/passbi/railplanner/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// PostgresProvider answers hop queries directly from the trip/stop_time tables.
// A trip's route is trip.route_id when set, else its sub-route's route.
type PostgresProvider struct {
	db *pgxpool.Pool
}

// NewPostgresProvider creates a provider backed by the timetable tables
func NewPostgresProvider(db *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{db: db}
}

// EarliestDeparture implements Provider
func (p *PostgresProvider) EarliestDeparture(ctx context.Context, req HopRequest) (Departure, error) {
	query := `
		SELECT t.id, COALESCE(t.route_id, sr.route_id), t.sub_route_id, dep.departure_seconds, arr.arrival_seconds
		FROM trip t
		JOIN sub_route sr ON sr.id = t.sub_route_id
		JOIN stop_time dep ON dep.trip_id = t.id AND dep.station_id = $1
		JOIN stop_time arr ON arr.trip_id = t.id AND arr.station_id = $2 AND arr.sequence > dep.sequence
		WHERE t.sub_route_id = ANY($3)
		  AND t.direction = $4
		  AND dep.departure_seconds >= $5
		ORDER BY dep.departure_seconds, arr.arrival_seconds, t.id
		LIMIT 1
	`

	d := Departure{
		FromStationID: req.FromStationID,
		ToStationID:   req.ToStationID,
	}
	var depSecs, arrSecs int
	err := p.db.QueryRow(ctx, query,
		req.FromStationID, req.ToStationID, req.SubRouteIDs, int(req.Direction), int(req.NotEarlierThan),
	).Scan(&d.TripID, &d.RouteID, &d.SubRouteID, &depSecs, &arrSecs)
	if errors.Is(err, pgx.ErrNoRows) {
		return Departure{}, ErrNoDeparture
	}
	if err != nil {
		return Departure{}, fmt.Errorf("failed to query departure %s: %w", req.Key(), err)
	}

	d.Departure = ServiceTime(depSecs)
	d.Arrival = ServiceTime(arrSecs)
	return d, nil
}

// DeparturesAt implements Board
func (p *PostgresProvider) DeparturesAt(ctx context.Context, stationID string, notEarlierThan ServiceTime, window, limit int) ([]StationDeparture, error) {
	query := `
		SELECT t.id, COALESCE(t.route_id, sr.route_id), t.sub_route_id, t.direction, st.departure_seconds,
			(SELECT term.station_id FROM stop_time term
			 WHERE term.trip_id = t.id ORDER BY term.sequence DESC LIMIT 1) AS terminus_id
		FROM stop_time st
		JOIN trip t ON t.id = st.trip_id
		JOIN sub_route sr ON sr.id = t.sub_route_id
		WHERE st.station_id = $1
		  AND st.departure_seconds >= $2
		  AND st.departure_seconds < $2 + $3
		  AND EXISTS (
			SELECT 1 FROM stop_time nxt
			WHERE nxt.trip_id = t.id AND nxt.sequence > st.sequence
		  )
		ORDER BY st.departure_seconds, t.id
		LIMIT $4
	`

	rows, err := p.db.Query(ctx, query, stationID, int(notEarlierThan), window, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query departures at %s: %w", stationID, err)
	}
	defer rows.Close()

	var out []StationDeparture
	for rows.Next() {
		var d StationDeparture
		var direction, depSecs int
		if err := rows.Scan(&d.TripID, &d.RouteID, &d.SubRouteID, &direction, &depSecs, &d.TerminusID); err != nil {
			log.Warn().Err(err).Str("station", stationID).Msg("failed to scan departure")
			continue
		}
		d.Direction = Direction(direction)
		d.Departure = ServiceTime(depSecs)
		out = append(out, d)
	}
	return out, rows.Err()
}

// LoadTimetable reads every trip and its calls into an in-memory Timetable
func LoadTimetable(ctx context.Context, db *pgxpool.Pool) (*Timetable, error) {
	startTime := time.Now()
	log.Info().Msg("Loading timetable into memory...")

	var trips []models.Trip
	calls := make(map[string][]models.Call)

	p := pool.New().WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		rows, err := db.Query(ctx, `
			SELECT t.id, COALESCE(t.route_id, sr.route_id), t.sub_route_id, t.direction
			FROM trip t
			JOIN sub_route sr ON sr.id = t.sub_route_id
			ORDER BY t.id
		`)
		if err != nil {
			return fmt.Errorf("failed to load trips: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var trip models.Trip
			if err := rows.Scan(&trip.ID, &trip.RouteID, &trip.SubRouteID, &trip.Direction); err != nil {
				log.Warn().Err(err).Msg("failed to scan trip")
				continue
			}
			trips = append(trips, trip)
		}
		return rows.Err()
	})

	p.Go(func(ctx context.Context) error {
		rows, err := db.Query(ctx, `
			SELECT trip_id, station_id, sequence, arrival_seconds, departure_seconds
			FROM stop_time
			ORDER BY trip_id, sequence
		`)
		if err != nil {
			return fmt.Errorf("failed to load stop times: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var tripID string
			var c models.Call
			if err := rows.Scan(&tripID, &c.StationID, &c.Sequence, &c.Arrival, &c.Departure); err != nil {
				log.Warn().Err(err).Msg("failed to scan stop time")
				continue
			}
			calls[tripID] = append(calls[tripID], c)
		}
		return rows.Err()
	})

	if err := p.Wait(); err != nil {
		return nil, err
	}

	for i := range trips {
		trips[i].Calls = calls[trips[i].ID]
	}

	t := NewTimetable(trips)
	log.Info().
		Int("trips", t.TripCount()).
		Dur("duration", time.Since(startTime)).
		Msg("Timetable loaded")

	return t, nil
}
