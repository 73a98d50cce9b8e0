package network

import (
	"context"
	"errors"

	"github.com/passbi/railplanner/internal/models"
)

// ErrNotFound is returned when a registry lookup has no answer
var ErrNotFound = errors.New("not found")

// Registry enumerates the rail network. It is read-only for the planner.
type Registry interface {
	// SubRoutesOf returns the sub-route memberships of a station, ordered by sub-route ID.
	// Fails with ErrNotFound when the station has no membership.
	SubRoutesOf(ctx context.Context, stationID string) ([]models.Membership, error)
	// Transfers returns every transfer link in a stable order
	Transfers(ctx context.Context) ([]models.TransferLink, error)
	// Stations returns every known station ID, sorted
	Stations(ctx context.Context) ([]string, error)

	Station(ctx context.Context, id string) (models.Station, error)
	Route(ctx context.Context, id string) (models.Route, error)
	SubRoute(ctx context.Context, id string) (models.SubRoute, error)
}
