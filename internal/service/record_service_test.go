package service_test

import (
	"context"
	"testing"
	"time"

	"prodtrace/internal/dto"
	"prodtrace/internal/model"
	"prodtrace/internal/repository"
	"prodtrace/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRecord(repo *stubRecordRepo, parentID *uuid.UUID) *model.ProductionRecord {
	rec := &model.ProductionRecord{
		ID:             uuid.New(),
		ProcessID:      uuid.New(),
		ParentRecordID: parentID,
		StartedAt:      time.Now(),
	}
	repo.records[rec.ID] = rec
	return rec
}

func TestCreateRecord(t *testing.T) {
	repo := newStubRecordRepo()
	svc := service.NewRecordService(repo)

	notes := "first batch"
	resp, err := svc.Create(context.Background(), dto.CreateRecordRequest{
		ProcessID: uuid.NewString(),
		Notes:     &notes,
	})
	require.NoError(t, err)
	assert.True(t, resp.IsRoot)
	assert.Nil(t, resp.ParentRecordID)
	require.NotNil(t, resp.Notes)
	assert.Equal(t, "first batch", *resp.Notes)
}

func TestCreateRecordWithParent(t *testing.T) {
	repo := newStubRecordRepo()
	svc := service.NewRecordService(repo)

	parent := seedRecord(repo, nil)
	parentID := parent.ID.String()

	resp, err := svc.Create(context.Background(), dto.CreateRecordRequest{
		ProcessID:      uuid.NewString(),
		ParentRecordID: &parentID,
	})
	require.NoError(t, err)
	assert.False(t, resp.IsRoot)
	require.NotNil(t, resp.ParentRecordID)
	assert.Equal(t, parentID, *resp.ParentRecordID)
}

func TestSetParentRejectsSelf(t *testing.T) {
	repo := newStubRecordRepo()
	svc := service.NewRecordService(repo)

	rec := seedRecord(repo, nil)
	_, err := svc.SetParent(context.Background(), rec.ID, &rec.ID)
	assert.ErrorIs(t, err, service.ErrParentCycle)
}

func TestSetParentRejectsDescendant(t *testing.T) {
	repo := newStubRecordRepo()
	svc := service.NewRecordService(repo)

	// root → child → grandchild; re-parenting root under grandchild must fail.
	root := seedRecord(repo, nil)
	child := seedRecord(repo, &root.ID)
	grandchild := seedRecord(repo, &child.ID)

	_, err := svc.SetParent(context.Background(), root.ID, &grandchild.ID)
	assert.ErrorIs(t, err, service.ErrParentCycle)

	// The relation is unchanged.
	assert.Nil(t, repo.records[root.ID].ParentRecordID)
}

func TestSetParentReassign(t *testing.T) {
	repo := newStubRecordRepo()
	svc := service.NewRecordService(repo)

	a := seedRecord(repo, nil)
	b := seedRecord(repo, nil)
	child := seedRecord(repo, &a.ID)

	resp, err := svc.SetParent(context.Background(), child.ID, &b.ID)
	require.NoError(t, err)
	require.NotNil(t, resp.ParentRecordID)
	assert.Equal(t, b.ID.String(), *resp.ParentRecordID)
}

func TestSetParentClear(t *testing.T) {
	repo := newStubRecordRepo()
	svc := service.NewRecordService(repo)

	parent := seedRecord(repo, nil)
	child := seedRecord(repo, &parent.ID)

	resp, err := svc.SetParent(context.Background(), child.ID, nil)
	require.NoError(t, err)
	assert.True(t, resp.IsRoot)
	assert.Nil(t, repo.records[child.ID].ParentRecordID)
}

func TestAncestorsWalksToRoot(t *testing.T) {
	repo := newStubRecordRepo()
	svc := service.NewRecordService(repo)

	root := seedRecord(repo, nil)
	mid := seedRecord(repo, &root.ID)
	leaf := seedRecord(repo, &mid.ID)

	chain, err := svc.Ancestors(context.Background(), leaf.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, mid.ID.String(), chain[0].ID)
	assert.Equal(t, root.ID.String(), chain[1].ID)
}

func TestAncestorsDetectsStoredCycle(t *testing.T) {
	repo := newStubRecordRepo()
	svc := service.NewRecordService(repo)

	// Corrupt state: a and b point at each other.
	a := seedRecord(repo, nil)
	b := seedRecord(repo, &a.ID)
	repo.records[a.ID].ParentRecordID = &b.ID

	_, err := svc.Ancestors(context.Background(), a.ID)
	assert.ErrorContains(t, err, "cycle")
}

func TestListRootsOnly(t *testing.T) {
	repo := newStubRecordRepo()
	svc := service.NewRecordService(repo)

	root := seedRecord(repo, nil)
	seedRecord(repo, &root.ID)

	resp, err := svc.List(context.Background(), repository.RecordFilter{RootsOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, root.ID.String(), resp.Data[0].ID)
}

func TestUpdateRecordFinish(t *testing.T) {
	repo := newStubRecordRepo()
	svc := service.NewRecordService(repo)

	rec := seedRecord(repo, nil)
	finished := time.Now().UTC().Format(time.RFC3339)

	resp, err := svc.Update(context.Background(), rec.ID, dto.UpdateRecordRequest{FinishedAt: &finished})
	require.NoError(t, err)
	require.NotNil(t, resp.FinishedAt)
	assert.Equal(t, finished, *resp.FinishedAt)
}
