// Package testnet provides a small rail network with a timetable for tests.
//
// Line R (sub-route R-MAIN): R10 - R11 - R12 - R13, 3 minutes between stations,
// trips every 10 minutes from 08:00 (outbound, from R10) and 08:02 (inbound, from R13).
// Line C (sub-route C-MAIN): C24 - C25 - C26, 4 minutes between stations,
// trips every 10 minutes from 08:05 (outbound, from C24) and 08:01 (inbound, from C26).
// R13 and C24 are linked by a 120 second transfer. Z99 exists but is served by nothing.
package testnet

import (
	"fmt"

	"github.com/passbi/railplanner/internal/models"
	"github.com/passbi/railplanner/internal/network"
	"github.com/passbi/railplanner/internal/schedule"
)

// TransferSeconds is the R13 <-> C24 walking time
const TransferSeconds = 120

// TripsPerDirection is how many trips each line runs per direction
const TripsPerDirection = 12

var (
	lineR = []string{"R10", "R11", "R12", "R13"}
	lineC = []string{"C24", "C25", "C26"}
)

// New builds the fixture network and its timetable
func New() (*network.Snapshot, *schedule.Timetable) {
	snap := network.NewSnapshot()

	snap.AddRoute(models.Route{ID: "R", Name: models.LocalizedName{TC: "東鐵綫", EN: "East Rail Line"}})
	snap.AddRoute(models.Route{ID: "C", Name: models.LocalizedName{TC: "屯馬綫", EN: "Tuen Ma Line"}})

	names := map[string]models.LocalizedName{
		"R10": {TC: "大圍", EN: "Tai Wai"},
		"R11": {TC: "沙田", EN: "Sha Tin"},
		"R12": {TC: "火炭", EN: "Fo Tan"},
		"R13": {TC: "大學", EN: "University"},
		"C24": {TC: "大學南", EN: "University South"},
		"C25": {TC: "馬鞍山", EN: "Ma On Shan"},
		"C26": {TC: "烏溪沙", EN: "Wu Kai Sha"},
		"Z99": {TC: "未開通", EN: "Not Yet Open"},
	}
	for id, name := range names {
		snap.AddStation(models.Station{ID: id, Name: name})
	}

	mustAddLine(snap, models.SubRoute{ID: "R-MAIN", RouteID: "R", Name: models.LocalizedName{TC: "東鐵綫主綫", EN: "East Rail Main"}}, lineR...)
	mustAddLine(snap, models.SubRoute{ID: "C-MAIN", RouteID: "C", Name: models.LocalizedName{TC: "屯馬綫主綫", EN: "Tuen Ma Main"}}, lineC...)
	snap.AddTransfer(models.TransferLink{StationA: "R13", StationB: "C24", Duration: TransferSeconds})

	var trips []models.Trip
	trips = append(trips, Trips("R", "R-MAIN", 0, lineR, "08:00:00", 600, 180, TripsPerDirection)...)
	trips = append(trips, Trips("R", "R-MAIN", 1, reversed(lineR), "08:02:00", 600, 180, TripsPerDirection)...)
	trips = append(trips, Trips("C", "C-MAIN", 0, lineC, "08:05:00", 600, 240, TripsPerDirection)...)
	trips = append(trips, Trips("C", "C-MAIN", 1, reversed(lineC), "08:01:00", 600, 240, TripsPerDirection)...)

	return snap, schedule.NewTimetable(trips)
}

// Trips generates count evenly spaced trips calling at stations in the given order
func Trips(routeID, subRouteID string, direction int, stations []string, first string, headway, runTime, count int) []models.Trip {
	start := schedule.MustParseServiceTime(first)
	trips := make([]models.Trip, 0, count)
	for i := 0; i < count; i++ {
		trip := models.Trip{
			ID:         fmt.Sprintf("%s-%d-%02d", subRouteID, direction, i),
			RouteID:    routeID,
			SubRouteID: subRouteID,
			Direction:  direction,
		}
		for j, station := range stations {
			at := int(start) + i*headway + j*runTime
			trip.Calls = append(trip.Calls, models.Call{
				StationID: station,
				Sequence:  j + 1,
				Arrival:   at,
				Departure: at,
			})
		}
		trips = append(trips, trip)
	}
	return trips
}

func mustAddLine(snap *network.Snapshot, sub models.SubRoute, stations ...string) {
	if err := snap.AddLine(sub, stations...); err != nil {
		panic(err)
	}
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}
