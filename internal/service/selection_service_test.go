package service_test

import (
	"context"
	"testing"

	"prodtrace/internal/dto"
	"prodtrace/internal/gs1"
	"prodtrace/internal/selection"
	"prodtrace/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanBoxMatchesAcrossLayouts(t *testing.T) {
	pallets := newStubPalletRepo()
	svc := service.NewSelectionService(pallets)

	pallet := pallets.addPallet("PAL-1", "LOT-1")
	box := pallets.addBox(pallet, "10", "(01)11111111111111(3100)010000(10)LOT-1", "LOT-1")
	pallets.addBox(pallet, "12", "(01)22222222222222(3100)012000(10)LOT-1", "LOT-1")

	// Scanner delivers the bare layout; the stored code is parenthesized.
	resp, err := svc.ScanBox(context.Background(), &dto.ScanRequest{
		PalletID: pallet.ID.String(),
		Code:     "0111111111111111310001000010LOT-1",
	})
	require.NoError(t, err)
	assert.Equal(t, box.ID.String(), resp.ID)
}

func TestScanBoxIgnoresUnavailableBoxes(t *testing.T) {
	pallets := newStubPalletRepo()
	svc := service.NewSelectionService(pallets)

	pallet := pallets.addPallet("PAL-1", "LOT-1")
	box := pallets.addBox(pallet, "10", "(01)11111111111111(3100)010000(10)LOT-1", "LOT-1")
	pallets.boxes[box.ID].Available = false

	_, err := svc.ScanBox(context.Background(), &dto.ScanRequest{
		PalletID: pallet.ID.String(),
		Code:     box.GS1128Code,
	})
	assert.ErrorIs(t, err, gs1.ErrNotFound)
}

func TestScanBoxAmbiguous(t *testing.T) {
	pallets := newStubPalletRepo()
	svc := service.NewSelectionService(pallets)

	pallet := pallets.addPallet("PAL-1", "LOT-1")
	code := "(01)11111111111111(3100)010000(10)LOT-1"
	pallets.addBox(pallet, "10", code, "LOT-1")
	pallets.addBox(pallet, "10", code, "LOT-1")

	_, err := svc.ScanBox(context.Background(), &dto.ScanRequest{
		PalletID: pallet.ID.String(),
		Code:     code,
	})
	assert.ErrorIs(t, err, gs1.ErrAmbiguous)
}

func TestSearchByWeightOrdersByCloseness(t *testing.T) {
	pallets := newStubPalletRepo()
	svc := service.NewSelectionService(pallets)

	pallet := pallets.addPallet("PAL-1", "LOT-1")
	pallets.addBox(pallet, "10.3", "code-a", "LOT-1")
	exact := pallets.addBox(pallet, "10", "code-b", "LOT-1")
	pallets.addBox(pallet, "11.4", "code-c", "LOT-1")

	resp, err := svc.SearchByWeight(context.Background(), &dto.WeightSearchRequest{
		PalletID:    pallet.ID.String(),
		WeightKg:    decimal.RequireFromString("10"),
		ToleranceKg: decimal.RequireFromString("0.5"),
	})
	require.NoError(t, err)
	require.Len(t, resp, 2)
	assert.Equal(t, exact.ID.String(), resp[0].ID)
}

func TestSelectByTargetWeightExcludesBoxes(t *testing.T) {
	pallets := newStubPalletRepo()
	svc := service.NewSelectionService(pallets)

	pallet := pallets.addPallet("PAL-1", "LOT-1")
	big := pallets.addBox(pallet, "12", "code-a", "LOT-1")
	small := pallets.addBox(pallet, "8", "code-b", "LOT-1")

	resp, err := svc.SelectByTargetWeight(context.Background(), &dto.TargetWeightRequest{
		PalletID:      pallet.ID.String(),
		TargetKg:      decimal.RequireFromString("12"),
		ExcludeBoxIDs: []string{big.ID.String()},
	})
	require.NoError(t, err)
	require.Len(t, resp.Boxes, 1)
	assert.Equal(t, small.ID.String(), resp.Boxes[0].ID)
	assert.True(t, resp.TotalWeightKg.Equal(decimal.RequireFromString("8")))
}

func TestSelectByTargetWeightInfeasible(t *testing.T) {
	pallets := newStubPalletRepo()
	svc := service.NewSelectionService(pallets)

	pallet := pallets.addPallet("PAL-1", "LOT-1")
	pallets.addBox(pallet, "20", "code-a", "LOT-1")

	_, err := svc.SelectByTargetWeight(context.Background(), &dto.TargetWeightRequest{
		PalletID: pallet.ID.String(),
		TargetKg: decimal.RequireFromString("5"),
	})
	assert.ErrorIs(t, err, selection.ErrNoFeasibleSelection)
}

func TestGetPalletSummarizesAvailability(t *testing.T) {
	pallets := newStubPalletRepo()
	svc := service.NewSelectionService(pallets)

	pallet := pallets.addPallet("PAL-1", "LOT-1")
	pallets.addBox(pallet, "10", "code-a", "LOT-1")
	consumed := pallets.addBox(pallet, "12", "code-b", "LOT-1")
	pallets.boxes[consumed.ID].Available = false

	resp, err := svc.GetPallet(context.Background(), pallet.ID)
	require.NoError(t, err)
	assert.Len(t, resp.Boxes, 2)
	assert.Equal(t, 1, resp.AvailableBoxes)
	assert.True(t, resp.TotalWeightKg.Equal(decimal.RequireFromString("10")))
}

func TestSearchPalletsByLot(t *testing.T) {
	pallets := newStubPalletRepo()
	svc := service.NewSelectionService(pallets)

	match := pallets.addPallet("PAL-1", "LOT-1")
	pallets.addBox(match, "10", "code-a", "LOT-1")
	other := pallets.addPallet("PAL-2", "LOT-2")
	pallets.addBox(other, "10", "code-b", "LOT-2")

	resp, err := svc.SearchPalletsByLot(context.Background(), "LOT-1")
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, match.ID.String(), resp[0].ID)
}
