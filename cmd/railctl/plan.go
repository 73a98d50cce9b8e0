package main

import (
	"fmt"
	"io"

	"github.com/passbi/railplanner/internal/models"
	"github.com/passbi/railplanner/internal/network"
	"github.com/passbi/railplanner/internal/planner"
	"github.com/passbi/railplanner/internal/schedule"
	"github.com/urfave/cli/v2"
)

func planCommand() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Plan a journey against the database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "from",
				Usage:    "Origin station ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Destination station ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "time",
				Usage: "Departure time HH:MM[:SS], defaults to now",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Search strategy: first_visit or earliest, defaults to the configured one",
			},
			&cli.IntFlag{
				Name:  "max-expansions",
				Usage: "Stations one search may expand, defaults to the configured limit",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, pool, err := connect(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			snap, err := network.LoadSnapshot(c.Context, pool)
			if err != nil {
				return err
			}

			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			maxExpansions := cfg.Planner.MaxExpansions
			if c.IsSet("max-expansions") {
				maxExpansions = c.Int("max-expansions")
			}

			p := planner.NewPlanner(snap, schedule.NewPostgresProvider(pool), planner.Options{
				MaxExpansions: maxExpansions,
				Timeout:       cfg.Planner.Timeout,
				Strategy:      cfg.Planner.Strategy,
				Location:      loc,
			})

			itinerary, err := p.Plan(c.Context, models.JourneyQuery{
				FromStationID: c.String("from"),
				ToStationID:   c.String("to"),
				DepartureTime: c.String("time"),
				Strategy:      c.String("strategy"),
			})
			if err != nil {
				return err
			}

			legs, err := planner.BuildLegs(c.Context, snap, itinerary)
			if err != nil {
				return err
			}

			printLegs(c.App.Writer, legs)
			return nil
		},
	}
}

func printLegs(w io.Writer, legs []models.JourneyLeg) {
	if len(legs) == 0 {
		fmt.Fprintln(w, "walk to the connecting platform, no ride needed")
		return
	}
	for i, leg := range legs {
		fmt.Fprintf(w, "%d. %s  %s %s -> %s %s  [%s / %s]  %dm\n",
			i+1,
			leg.Schedule.DepartureTime,
			leg.FromStationID, leg.FromStationName.EN,
			leg.ToStationID, leg.ToStationName.EN,
			leg.RouteName.EN, leg.SubRouteID,
			leg.Schedule.Duration/60,
		)
	}
}
