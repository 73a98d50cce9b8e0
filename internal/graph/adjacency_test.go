package graph

import (
	"context"
	"testing"

	"github.com/passbi/railplanner/internal/models"
	"github.com/passbi/railplanner/internal/network"
	"github.com/passbi/railplanner/internal/schedule"
	"github.com/passbi/railplanner/internal/testnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	snap, _ := testnet.New()
	adj, err := Build(context.Background(), snap, "R11", "C26")
	require.NoError(t, err)

	t.Run("Universe is origin, destination and transfer stations", func(t *testing.T) {
		assert.Len(t, adj.SubRoutesOf, 4)
		for _, s := range []string{"R11", "C26", "R13", "C24"} {
			assert.Contains(t, adj.SubRoutesOf, s)
		}
	})

	t.Run("Stations of a sub-route follow sequence", func(t *testing.T) {
		assert.Equal(t, []string{"R11", "R13"}, adj.StationsOf["R-MAIN"])
		assert.Equal(t, []string{"C24", "C26"}, adj.StationsOf["C-MAIN"])
	})

	t.Run("Ride adjacency connects co-members both ways", func(t *testing.T) {
		assert.Equal(t, []string{"R13"}, adj.RideAdjacent["R11"])
		assert.Equal(t, []string{"R11"}, adj.RideAdjacent["R13"])
		assert.Equal(t, []string{"C26"}, adj.RideAdjacent["C24"])
		assert.NotContains(t, adj.RideAdjacent["R13"], "C24")
	})

	t.Run("Transfers are symmetric", func(t *testing.T) {
		for station, tr := range adj.TransferOf {
			back, ok := adj.TransferOf[tr.StationID]
			require.True(t, ok, "partner of %s has no transfer", station)
			assert.Equal(t, station, back.StationID)
			assert.Equal(t, tr.Duration, back.Duration)
		}
		assert.Equal(t, Transfer{StationID: "C24", Duration: testnet.TransferSeconds}, adj.TransferOf["R13"])
	})

	t.Run("Sequence lookup", func(t *testing.T) {
		seq, ok := adj.Sequence("R13", "R-MAIN")
		assert.True(t, ok)
		assert.Equal(t, 4, seq)

		_, ok = adj.Sequence("R13", "C-MAIN")
		assert.False(t, ok)
	})
}

func TestBuildIsIdempotent(t *testing.T) {
	snap, _ := testnet.New()
	first, err := Build(context.Background(), snap, "R11", "C26")
	require.NoError(t, err)
	second, err := Build(context.Background(), snap, "R11", "C26")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildUnknownEndpoint(t *testing.T) {
	snap, _ := testnet.New()
	_, err := Build(context.Background(), snap, "R11", "Z99")
	assert.ErrorIs(t, err, network.ErrNotFound)
}

func TestBuildSkipsUnservedTransferStation(t *testing.T) {
	snap := network.NewSnapshot()
	require.NoError(t, snap.AddLine(models.SubRoute{ID: "A-1", RouteID: "A"}, "A1", "A2"))
	snap.AddTransfer(models.TransferLink{StationA: "A2", StationB: "W1", Duration: 60})

	adj, err := Build(context.Background(), snap, "A1", "A2")
	require.NoError(t, err)
	assert.Nil(t, adj.SubRoutesOf["W1"])
	assert.Empty(t, adj.RideAdjacent["W1"])
	assert.Equal(t, "W1", adj.TransferOf["A2"].StationID)
}

func TestBuildLastTransferWins(t *testing.T) {
	snap := network.NewSnapshot()
	require.NoError(t, snap.AddLine(models.SubRoute{ID: "A-1", RouteID: "A"}, "A1", "A2"))
	require.NoError(t, snap.AddLine(models.SubRoute{ID: "B-1", RouteID: "B"}, "B1"))
	require.NoError(t, snap.AddLine(models.SubRoute{ID: "C-1", RouteID: "C"}, "C1"))
	snap.AddTransfer(models.TransferLink{StationA: "A2", StationB: "B1", Duration: 60})
	snap.AddTransfer(models.TransferLink{StationA: "A2", StationB: "C1", Duration: 90})

	adj, err := Build(context.Background(), snap, "A1", "B1")
	require.NoError(t, err)
	assert.Equal(t, Transfer{StationID: "C1", Duration: 90}, adj.TransferOf["A2"])
	assert.Equal(t, Transfer{StationID: "A2", Duration: 60}, adj.TransferOf["B1"])
}

func TestShared(t *testing.T) {
	from := []models.Membership{
		{SubRouteID: "R-BR", RouteID: "R", Sequence: 5},
		{SubRouteID: "R-MAIN", RouteID: "R", Sequence: 2},
	}
	to := []models.Membership{
		{SubRouteID: "C-MAIN", RouteID: "C", Sequence: 1},
		{SubRouteID: "R-MAIN", RouteID: "R", Sequence: 1},
		{SubRouteID: "R-BR", RouteID: "R", Sequence: 9},
	}

	shared := Shared(from, to)
	require.Len(t, shared, 2)
	assert.Equal(t, SharedSubRoute{SubRouteID: "R-BR", RouteID: "R", FromSequence: 5, ToSequence: 9}, shared[0])
	assert.Equal(t, schedule.DirectionOutbound, shared[0].Direction())
	assert.Equal(t, schedule.DirectionInbound, shared[1].Direction())

	assert.Empty(t, Shared(from, nil))
}
