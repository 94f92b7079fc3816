package service

import (
	"context"
	"fmt"
	"time"

	"prodtrace/internal/dto"
	"prodtrace/internal/model"
	"prodtrace/internal/repository"

	"github.com/google/uuid"
)

// RecordService manages the production record tree: CRUD plus the parent
// relation, which must stay acyclic. All invariants live here, not in the
// callers.
type RecordService interface {
	Create(ctx context.Context, req dto.CreateRecordRequest) (*dto.RecordResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.RecordResponse, error)
	List(ctx context.Context, filter repository.RecordFilter) (*dto.RecordListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateRecordRequest) (*dto.RecordResponse, error)
	SetParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) (*dto.RecordResponse, error)
	// Ancestors walks from the immediate parent up to the root.
	Ancestors(ctx context.Context, id uuid.UUID) ([]dto.RecordResponse, error)
}

type recordService struct {
	repo repository.RecordRepository
}

func NewRecordService(repo repository.RecordRepository) RecordService {
	return &recordService{repo: repo}
}

func (s *recordService) Create(ctx context.Context, req dto.CreateRecordRequest) (*dto.RecordResponse, error) {
	processID, err := uuid.Parse(req.ProcessID)
	if err != nil {
		return nil, fmt.Errorf("invalid process_id: %w", err)
	}

	startedAt := time.Now()
	if req.StartedAt != nil {
		startedAt, err = time.Parse(time.RFC3339, *req.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid started_at: %w", err)
		}
	}

	rec := &model.ProductionRecord{
		ProcessID: processID,
		Notes:     req.Notes,
		StartedAt: startedAt,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	// Parent assignment goes through the same cycle check as later edits.
	if req.ParentRecordID != nil {
		parentID, err := uuid.Parse(*req.ParentRecordID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent_record_id: %w", err)
		}
		return s.SetParent(ctx, rec.ID, &parentID)
	}
	return recordToResponse(rec), nil
}

func (s *recordService) Get(ctx context.Context, id uuid.UUID) (*dto.RecordResponse, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return recordToResponse(rec), nil
}

func (s *recordService) List(ctx context.Context, filter repository.RecordFilter) (*dto.RecordListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.RecordResponse, 0, len(records))
	for i := range records {
		items = append(items, *recordToResponse(&records[i]))
	}
	return &dto.RecordListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *recordService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateRecordRequest) (*dto.RecordResponse, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Notes != nil {
		rec.Notes = req.Notes
	}
	if req.StartedAt != nil {
		t, err := time.Parse(time.RFC3339, *req.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid started_at: %w", err)
		}
		rec.StartedAt = t
	}
	if req.FinishedAt != nil {
		t, err := time.Parse(time.RFC3339, *req.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid finished_at: %w", err)
		}
		rec.FinishedAt = &t
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return recordToResponse(rec), nil
}

// SetParent assigns (or clears) a record's parent. The assignment is
// rejected with ErrParentCycle when the proposed parent is the record
// itself or any of its descendants — checked by walking the proposed
// parent's ancestor chain, which reaches the record exactly when the
// parent sits below it.
func (s *recordService) SetParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) (*dto.RecordResponse, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		if *parentID == id {
			return nil, ErrParentCycle
		}
		if _, err := s.repo.FindByID(ctx, *parentID); err != nil {
			return nil, fmt.Errorf("parent record: %w", err)
		}
		chain, err := s.ancestorChain(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		for _, a := range chain {
			if a.ID == id {
				return nil, ErrParentCycle
			}
		}
	}

	if err := s.repo.UpdateParent(ctx, id, parentID); err != nil {
		return nil, err
	}
	rec.ParentRecordID = parentID
	return recordToResponse(rec), nil
}

func (s *recordService) Ancestors(ctx context.Context, id uuid.UUID) ([]dto.RecordResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	chain, err := s.ancestorChain(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RecordResponse, 0, len(chain))
	for i := range chain {
		out = append(out, *recordToResponse(&chain[i]))
	}
	return out, nil
}

// ancestorChain returns the records from the immediate parent of start up
// to the root. The visited set bounds the walk so a corrupted table
// (cycle already stored) terminates with an error instead of spinning.
func (s *recordService) ancestorChain(ctx context.Context, start uuid.UUID) ([]model.ProductionRecord, error) {
	var chain []model.ProductionRecord
	visited := map[uuid.UUID]bool{start: true}

	current, err := s.repo.FindByID(ctx, start)
	if err != nil {
		return nil, err
	}
	for current.ParentRecordID != nil {
		next := *current.ParentRecordID
		if visited[next] {
			return nil, fmt.Errorf("record %s: ancestor chain contains a cycle", start)
		}
		visited[next] = true

		parent, err := s.repo.FindByID(ctx, next)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *parent)
		current = parent
	}
	return chain, nil
}

func recordToResponse(r *model.ProductionRecord) *dto.RecordResponse {
	resp := &dto.RecordResponse{
		ID:        r.ID.String(),
		ProcessID: r.ProcessID.String(),
		Notes:     r.Notes,
		StartedAt: r.StartedAt.Format(time.RFC3339),
		IsRoot:    r.IsRoot(),
	}
	if r.ParentRecordID != nil {
		p := r.ParentRecordID.String()
		resp.ParentRecordID = &p
	}
	if r.FinishedAt != nil {
		f := r.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &f
	}
	return resp
}
