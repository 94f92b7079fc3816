package service_test

import (
	"context"
	"testing"

	"prodtrace/internal/dto"
	"prodtrace/internal/model"
	"prodtrace/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type allocationFixture struct {
	svc          service.AllocationService
	pallets      *stubPalletRepo
	inputs       *stubInputRepo
	consumptions *stubConsumptionRepo
	outputs      *stubOutputRepo
	products     *stubProductRepo
}

func newAllocationFixture() *allocationFixture {
	pallets := newStubPalletRepo()
	inputs := newStubInputRepo(pallets)
	consumptions := newStubConsumptionRepo()
	outputs := newStubOutputRepo()
	products := newStubProductRepo()
	return &allocationFixture{
		svc:          service.NewAllocationService(outputs, inputs, consumptions, pallets, products, nil),
		pallets:      pallets,
		inputs:       inputs,
		consumptions: consumptions,
		outputs:      outputs,
		products:     products,
	}
}

// seedInput registers a stock box of the given weight as an input of the
// record and returns the input id (the allocation origin).
func (f *allocationFixture) seedInput(recordID uuid.UUID, weight string) uuid.UUID {
	pallet := f.pallets.addPallet("PAL", "LOT")
	box := f.pallets.addBox(pallet, weight, "code-"+uuid.NewString()[:8], "LOT")
	in := &model.ProductionInput{
		ID:                 uuid.New(),
		ProductionRecordID: recordID,
		StockBoxID:         box.ID,
	}
	f.inputs.inputs[in.ID] = in
	return in.ID
}

func (f *allocationFixture) seedConsumption(recordID uuid.UUID, weight string) uuid.UUID {
	c := &model.ProductionOutputConsumption{
		ID:                 uuid.New(),
		ProductionRecordID: recordID,
		OutputID:           uuid.New(),
		ConsumedWeightKg:   decimal.RequireFromString(weight),
	}
	f.consumptions.consumptions[c.ID] = c
	return c.ID
}

func sourceWeights(t *testing.T, f *allocationFixture, recordID uuid.UUID) map[uuid.UUID]decimal.Decimal {
	t.Helper()
	outputs, err := f.outputs.ListByRecord(context.Background(), recordID)
	require.NoError(t, err)
	byOrigin := make(map[uuid.UUID]decimal.Decimal)
	for _, o := range outputs {
		for _, src := range o.Sources {
			byOrigin[src.OriginID()] = byOrigin[src.OriginID()].Add(src.ContributedWeightKg)
		}
	}
	return byOrigin
}

func TestSyncOutputsExplicitWeights(t *testing.T) {
	f := newAllocationFixture()
	recordID := uuid.New()
	inputID := f.seedInput(recordID, "30")
	w := decimal.RequireFromString("25")
	inputRef := inputID.String()

	resp, err := f.svc.SyncOutputs(context.Background(), recordID, dto.SyncOutputsRequest{
		Items: []dto.OutputItem{{
			ProductID: uuid.NewString(),
			WeightKg:  decimal.RequireFromString("25"),
			Sources: []dto.SourceItem{{
				SourceType:          model.SourceTypeStockBox,
				ProductionInputID:   &inputRef,
				ContributedWeightKg: &w,
			}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Applied)

	byOrigin := sourceWeights(t, f, recordID)
	assert.True(t, byOrigin[inputID].Equal(w))
}

func TestSyncOutputsPercentageBecomesWeight(t *testing.T) {
	f := newAllocationFixture()
	recordID := uuid.New()
	inputID := f.seedInput(recordID, "30")
	pct := decimal.RequireFromString("40")
	inputRef := inputID.String()

	_, err := f.svc.SyncOutputs(context.Background(), recordID, dto.SyncOutputsRequest{
		Items: []dto.OutputItem{{
			ProductID: uuid.NewString(),
			WeightKg:  decimal.RequireFromString("50"),
			Sources: []dto.SourceItem{{
				SourceType:             model.SourceTypeStockBox,
				ProductionInputID:      &inputRef,
				ContributionPercentage: &pct,
			}},
		}},
	})
	require.NoError(t, err)

	// 40% of 50 kg = 20 kg stored as the canonical value.
	byOrigin := sourceWeights(t, f, recordID)
	assert.True(t, byOrigin[inputID].Equal(decimal.RequireFromString("20")))
}

func TestSyncOutputsAutoFillProportional(t *testing.T) {
	f := newAllocationFixture()
	recordID := uuid.New()
	bigInput := f.seedInput(recordID, "30")
	smallInput := f.seedInput(recordID, "10")

	// No sources declared: the 20 kg output draws from both origins in
	// proportion to their totals (30:10 → 15 and 5).
	_, err := f.svc.SyncOutputs(context.Background(), recordID, dto.SyncOutputsRequest{
		Items: []dto.OutputItem{{
			ProductID: uuid.NewString(),
			WeightKg:  decimal.RequireFromString("20"),
		}},
	})
	require.NoError(t, err)

	byOrigin := sourceWeights(t, f, recordID)
	assert.True(t, byOrigin[bigInput].Equal(decimal.RequireFromString("15")), "got %s", byOrigin[bigInput])
	assert.True(t, byOrigin[smallInput].Equal(decimal.RequireFromString("5")), "got %s", byOrigin[smallInput])
}

func TestSyncOutputsAutoFillSumsExactly(t *testing.T) {
	f := newAllocationFixture()
	recordID := uuid.New()
	f.seedInput(recordID, "10")
	f.seedInput(recordID, "10")
	f.seedInput(recordID, "10")

	weight := decimal.RequireFromString("10")
	_, err := f.svc.SyncOutputs(context.Background(), recordID, dto.SyncOutputsRequest{
		Items: []dto.OutputItem{{
			ProductID: uuid.NewString(),
			WeightKg:  weight,
		}},
	})
	require.NoError(t, err)

	// 10/3 rounds per share; the last share absorbs the remainder so the
	// sum still equals the output weight.
	total := decimal.Zero
	for _, w := range sourceWeights(t, f, recordID) {
		total = total.Add(w)
	}
	assert.True(t, total.Equal(weight), "got %s", total)
}

func TestSyncOutputsRejectsOriginOverdraw(t *testing.T) {
	f := newAllocationFixture()
	recordID := uuid.New()
	inputID := f.seedInput(recordID, "10")
	inputRef := inputID.String()
	w := decimal.RequireFromString("8")

	// Two outputs each taking 8 kg from a 10 kg origin: 16 > 10.
	item := func() dto.OutputItem {
		return dto.OutputItem{
			ProductID: uuid.NewString(),
			WeightKg:  decimal.RequireFromString("8"),
			Sources: []dto.SourceItem{{
				SourceType:          model.SourceTypeStockBox,
				ProductionInputID:   &inputRef,
				ContributedWeightKg: &w,
			}},
		}
	}
	_, err := f.svc.SyncOutputs(context.Background(), recordID, dto.SyncOutputsRequest{
		Items: []dto.OutputItem{item(), item()},
	})
	assert.ErrorIs(t, err, service.ErrAllocationExceedsAvailability)

	// Nothing persisted.
	outputs, listErr := f.outputs.ListByRecord(context.Background(), recordID)
	require.NoError(t, listErr)
	assert.Empty(t, outputs)
}

func TestSyncOutputsRejectsSourcesBeyondOutputWeight(t *testing.T) {
	f := newAllocationFixture()
	recordID := uuid.New()
	inputID := f.seedInput(recordID, "30")
	inputRef := inputID.String()
	w := decimal.RequireFromString("25")

	// The 30 kg origin could supply 25 kg, but the output only declares 10:
	// its sources may never sum past its own weight.
	_, err := f.svc.SyncOutputs(context.Background(), recordID, dto.SyncOutputsRequest{
		Items: []dto.OutputItem{{
			ProductID: uuid.NewString(),
			WeightKg:  decimal.RequireFromString("10"),
			Sources: []dto.SourceItem{{
				SourceType:          model.SourceTypeStockBox,
				ProductionInputID:   &inputRef,
				ContributedWeightKg: &w,
			}},
		}},
	})
	assert.ErrorIs(t, err, service.ErrAllocationExceedsAvailability)

	outputs, listErr := f.outputs.ListByRecord(context.Background(), recordID)
	require.NoError(t, listErr)
	assert.Empty(t, outputs)
}

func TestSyncOutputsRejectsPercentagesBeyondOneHundred(t *testing.T) {
	f := newAllocationFixture()
	recordID := uuid.New()
	inputID := f.seedInput(recordID, "30")
	inputRef := inputID.String()
	pct := decimal.RequireFromString("250")

	_, err := f.svc.SyncOutputs(context.Background(), recordID, dto.SyncOutputsRequest{
		Items: []dto.OutputItem{{
			ProductID: uuid.NewString(),
			WeightKg:  decimal.RequireFromString("10"),
			Sources: []dto.SourceItem{{
				SourceType:             model.SourceTypeStockBox,
				ProductionInputID:      &inputRef,
				ContributionPercentage: &pct,
			}},
		}},
	})
	assert.ErrorIs(t, err, service.ErrAllocationExceedsAvailability)
}

func TestSyncOutputsRejectsForeignOrigin(t *testing.T) {
	f := newAllocationFixture()
	recordID := uuid.New()
	foreign := f.seedInput(uuid.New(), "10") // belongs to another record
	foreignRef := foreign.String()
	w := decimal.RequireFromString("5")

	_, err := f.svc.SyncOutputs(context.Background(), recordID, dto.SyncOutputsRequest{
		Items: []dto.OutputItem{{
			ProductID: uuid.NewString(),
			WeightKg:  decimal.RequireFromString("5"),
			Sources: []dto.SourceItem{{
				SourceType:          model.SourceTypeStockBox,
				ProductionInputID:   &foreignRef,
				ContributedWeightKg: &w,
			}},
		}},
	})
	assert.ErrorContains(t, err, "not a ledger entry")
}

func TestSyncOutputsDeleteByOmission(t *testing.T) {
	f := newAllocationFixture()
	recordID := uuid.New()
	f.seedInput(recordID, "10")

	first, err := f.svc.SyncOutputs(context.Background(), recordID, dto.SyncOutputsRequest{
		Items: []dto.OutputItem{{
			ProductID: uuid.NewString(),
			WeightKg:  decimal.RequireFromString("5"),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, first.Applied)

	resp, err := f.svc.SyncOutputs(context.Background(), recordID, dto.SyncOutputsRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "delete", resp.Results[0].Action)

	outputs, err := f.outputs.ListByRecord(context.Background(), recordID)
	require.NoError(t, err)
	assert.Empty(t, outputs)
}

func TestNormalizeSourceClampsToAvailability(t *testing.T) {
	f := newAllocationFixture()
	recordID := uuid.New()
	consumptionID := f.seedConsumption(recordID, "10")
	ref := consumptionID.String()
	pct := decimal.RequireFromString("50")

	// 50% of a 100 kg output asks for 50 kg, but the origin only has 10 kg:
	// the weight clamps to 10 and the percentage is recomputed to 10%.
	resp, err := f.svc.NormalizeSource(context.Background(), dto.NormalizeSourceRequest{
		OutputWeightKg:         decimal.RequireFromString("100"),
		SourceType:             model.SourceTypeParentOutput,
		ConsumptionID:          &ref,
		ContributionPercentage: &pct,
	})
	require.NoError(t, err)
	assert.True(t, resp.ContributedWeightKg.Equal(decimal.RequireFromString("10")))
	require.NotNil(t, resp.ContributionPercentage)
	assert.True(t, resp.ContributionPercentage.Equal(decimal.RequireFromString("10")))
}

func TestNormalizeSourceAccountsForOtherOutputs(t *testing.T) {
	f := newAllocationFixture()
	recordID := uuid.New()
	inputID := f.seedInput(recordID, "10")
	inputRef := inputID.String()
	w := decimal.RequireFromString("6")

	// Another output already takes 6 kg from the origin.
	_, err := f.svc.SyncOutputs(context.Background(), recordID, dto.SyncOutputsRequest{
		Items: []dto.OutputItem{{
			ProductID: uuid.NewString(),
			WeightKg:  decimal.RequireFromString("6"),
			Sources: []dto.SourceItem{{
				SourceType:          model.SourceTypeStockBox,
				ProductionInputID:   &inputRef,
				ContributedWeightKg: &w,
			}},
		}},
	})
	require.NoError(t, err)

	desired := decimal.RequireFromString("8")
	resp, err := f.svc.NormalizeSource(context.Background(), dto.NormalizeSourceRequest{
		OutputWeightKg:      decimal.RequireFromString("8"),
		SourceType:          model.SourceTypeStockBox,
		ProductionInputID:   &inputRef,
		ContributedWeightKg: &desired,
	})
	require.NoError(t, err)
	// Only 4 kg remain.
	assert.True(t, resp.ContributedWeightKg.Equal(decimal.RequireFromString("4")), "got %s", resp.ContributedWeightKg)
}

func TestNormalizeSourceZeroOutputWeightOmitsPercentage(t *testing.T) {
	f := newAllocationFixture()
	consumptionID := f.seedConsumption(uuid.New(), "10")
	ref := consumptionID.String()
	w := decimal.RequireFromString("5")

	resp, err := f.svc.NormalizeSource(context.Background(), dto.NormalizeSourceRequest{
		OutputWeightKg:      decimal.Zero,
		SourceType:          model.SourceTypeParentOutput,
		ConsumptionID:       &ref,
		ContributedWeightKg: &w,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.ContributionPercentage)
}

func TestListOutputsDerivesPercentages(t *testing.T) {
	f := newAllocationFixture()
	recordID := uuid.New()
	inputID := f.seedInput(recordID, "30")
	inputRef := inputID.String()
	w := decimal.RequireFromString("5")

	_, err := f.svc.SyncOutputs(context.Background(), recordID, dto.SyncOutputsRequest{
		Items: []dto.OutputItem{{
			ProductID: uuid.NewString(),
			WeightKg:  decimal.RequireFromString("20"),
			Sources: []dto.SourceItem{{
				SourceType:          model.SourceTypeStockBox,
				ProductionInputID:   &inputRef,
				ContributedWeightKg: &w,
			}},
		}},
	})
	require.NoError(t, err)

	outputs, err := f.svc.ListOutputs(context.Background(), recordID)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	require.Len(t, outputs[0].Sources, 1)
	require.NotNil(t, outputs[0].Sources[0].ContributionPercentage)
	// 5 of 20 kg = 25%.
	assert.True(t, outputs[0].Sources[0].ContributionPercentage.Equal(decimal.RequireFromString("25")))
}
