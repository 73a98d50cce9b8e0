package network

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/passbi/railplanner/internal/models"
)

// TransferConflict is a station pair listed with more than one transfer duration
type TransferConflict struct {
	StationA  string
	StationB  string
	Durations []int
}

// Report summarizes data problems the planner is sensitive to
type Report struct {
	Stations                 int
	Transfers                int
	SelfTransfers            []models.TransferLink
	ConflictingTransfers     []TransferConflict
	MultiplePartners         map[string][]string // station -> partners, only stations with more than one
	UnservedTransferStations []string
}

// OK reports whether the network has no symmetry or self-transfer violations.
// Multiple partners and unserved transfer stations are warnings only.
func (r Report) OK() bool {
	return len(r.SelfTransfers) == 0 && len(r.ConflictingTransfers) == 0
}

// Check inspects transfer links for asymmetric durations, self transfers,
// stations with several partners and transfer stations without sub-routes
func Check(ctx context.Context, reg Registry) (Report, error) {
	stations, err := reg.Stations(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list stations: %w", err)
	}
	links, err := reg.Transfers(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list transfers: %w", err)
	}

	report := Report{
		Stations:         len(stations),
		Transfers:        len(links),
		MultiplePartners: make(map[string][]string),
	}

	type pair struct{ a, b string }
	durations := make(map[pair][]int)
	var pairOrder []pair
	partners := make(map[string]map[string]bool)

	for _, l := range links {
		if l.StationA == l.StationB {
			report.SelfTransfers = append(report.SelfTransfers, l)
			continue
		}

		key := pair{l.StationA, l.StationB}
		if key.b < key.a {
			key = pair{l.StationB, l.StationA}
		}
		if _, seen := durations[key]; !seen {
			pairOrder = append(pairOrder, key)
		}
		if !containsInt(durations[key], l.Duration) {
			durations[key] = append(durations[key], l.Duration)
		}

		for _, s := range []string{l.StationA, l.StationB} {
			if partners[s] == nil {
				partners[s] = make(map[string]bool)
			}
			partners[s][l.Other(s)] = true
		}
	}

	for _, key := range pairOrder {
		if d := durations[key]; len(d) > 1 {
			sort.Ints(d)
			report.ConflictingTransfers = append(report.ConflictingTransfers, TransferConflict{
				StationA:  key.a,
				StationB:  key.b,
				Durations: d,
			})
		}
	}

	transferStations := make([]string, 0, len(partners))
	for s := range partners {
		transferStations = append(transferStations, s)
	}
	sort.Strings(transferStations)

	for _, s := range transferStations {
		if len(partners[s]) > 1 {
			list := make([]string, 0, len(partners[s]))
			for p := range partners[s] {
				list = append(list, p)
			}
			sort.Strings(list)
			report.MultiplePartners[s] = list
		}

		if _, err := reg.SubRoutesOf(ctx, s); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return Report{}, err
			}
			report.UnservedTransferStations = append(report.UnservedTransferStations, s)
		}
	}

	return report, nil
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
