package network

import (
	"context"
	"testing"

	"github.com/passbi/railplanner/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("Clean network", func(t *testing.T) {
		snap := NewSnapshot()
		require.NoError(t, snap.AddLine(models.SubRoute{ID: "R-DN", RouteID: "R"}, "R12", "R13"))
		require.NoError(t, snap.AddLine(models.SubRoute{ID: "C-DN", RouteID: "C"}, "C24", "C25"))
		snap.AddTransfer(models.TransferLink{StationA: "R13", StationB: "C24", Duration: 120})
		// the same link listed from the other side is fine
		snap.AddTransfer(models.TransferLink{StationA: "C24", StationB: "R13", Duration: 120})

		report, err := Check(ctx, snap)
		require.NoError(t, err)
		assert.True(t, report.OK())
		assert.Equal(t, 4, report.Stations)
		assert.Equal(t, 2, report.Transfers)
		assert.Empty(t, report.MultiplePartners)
		assert.Empty(t, report.UnservedTransferStations)
	})

	t.Run("Asymmetric durations", func(t *testing.T) {
		snap := NewSnapshot()
		require.NoError(t, snap.AddLine(models.SubRoute{ID: "R-DN", RouteID: "R"}, "R13"))
		require.NoError(t, snap.AddLine(models.SubRoute{ID: "C-DN", RouteID: "C"}, "C24"))
		snap.AddTransfer(models.TransferLink{StationA: "R13", StationB: "C24", Duration: 120})
		snap.AddTransfer(models.TransferLink{StationA: "C24", StationB: "R13", Duration: 90})

		report, err := Check(ctx, snap)
		require.NoError(t, err)
		assert.False(t, report.OK())
		require.Len(t, report.ConflictingTransfers, 1)
		assert.Equal(t, TransferConflict{StationA: "C24", StationB: "R13", Durations: []int{90, 120}}, report.ConflictingTransfers[0])
	})

	t.Run("Self transfer and warnings", func(t *testing.T) {
		snap := NewSnapshot()
		require.NoError(t, snap.AddLine(models.SubRoute{ID: "A-1", RouteID: "A"}, "A1"))
		snap.AddTransfer(models.TransferLink{StationA: "A1", StationB: "A1", Duration: 30})
		snap.AddTransfer(models.TransferLink{StationA: "A1", StationB: "B1", Duration: 60})
		snap.AddTransfer(models.TransferLink{StationA: "A1", StationB: "C1", Duration: 60})

		report, err := Check(ctx, snap)
		require.NoError(t, err)
		assert.False(t, report.OK())
		assert.Len(t, report.SelfTransfers, 1)
		assert.Equal(t, map[string][]string{"A1": {"B1", "C1"}}, report.MultiplePartners)
		assert.Equal(t, []string{"B1", "C1"}, report.UnservedTransferStations)
	})
}
