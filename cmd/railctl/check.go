package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/passbi/railplanner/internal/network"
	"github.com/urfave/cli/v2"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Check the rail network for transfer data problems",
		Action: func(c *cli.Context) error {
			_, pool, err := connect(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			snap, err := network.LoadSnapshot(c.Context, pool)
			if err != nil {
				return err
			}

			report, err := network.Check(c.Context, snap)
			if err != nil {
				return err
			}

			printReport(c.App.Writer, report)
			if !report.OK() {
				return cli.Exit("network check failed", 1)
			}
			return nil
		},
	}
}

func printReport(w io.Writer, r network.Report) {
	fmt.Fprintf(w, "stations: %d\ntransfers: %d\n", r.Stations, r.Transfers)

	for _, l := range r.SelfTransfers {
		fmt.Fprintf(w, "ERROR self transfer at %s\n", l.StationA)
	}
	for _, c := range r.ConflictingTransfers {
		fmt.Fprintf(w, "ERROR transfer %s <-> %s has durations %v\n", c.StationA, c.StationB, c.Durations)
	}

	stations := make([]string, 0, len(r.MultiplePartners))
	for s := range r.MultiplePartners {
		stations = append(stations, s)
	}
	sort.Strings(stations)
	for _, s := range stations {
		fmt.Fprintf(w, "WARN %s has %d transfer partners %v, only the last is used\n", s, len(r.MultiplePartners[s]), r.MultiplePartners[s])
	}
	for _, s := range r.UnservedTransferStations {
		fmt.Fprintf(w, "WARN transfer station %s has no sub-routes\n", s)
	}

	if r.OK() {
		fmt.Fprintln(w, "OK")
	}
}
