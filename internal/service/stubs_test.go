package service

import (
	"context"
	"sync"

	"github.com/scoutline/scout-api/internal/core"
	"github.com/scoutline/scout-api/internal/domain/model"
)

// stubJobRepo is a function-field JobRepository stub. Unset functions return
// zero values so each test wires only what it exercises.
type stubJobRepo struct {
	createFn            func(ctx context.Context, ownerID string, req *model.CreateJobRequest) (*model.ResearchJob, error)
	getByIDFn           func(ctx context.Context, id, ownerID string) (*model.ResearchJob, error)
	listFn              func(ctx context.Context, ownerID string, opts *model.JobListOptions) (*model.JobPage, error)
	updateFn            func(ctx context.Context, params core.UpdateJobParams) (*model.ResearchJob, error)
	deleteFn            func(ctx context.Context, id, ownerID string) error
	statsFn             func(ctx context.Context, ownerID string) (*model.JobStats, error)
	markProcessingFn    func(ctx context.Context, id string) (bool, error)
	completeFn          func(ctx context.Context, params core.CompleteJobParams) (bool, error)
	markFailedFn        func(ctx context.Context, id, errMsg string) (bool, error)
	archiveCandidatesFn func(ctx context.Context, params core.ArchiveCandidatesParams) ([]*model.ResearchJob, error)
}

func (s *stubJobRepo) Create(ctx context.Context, ownerID string, req *model.CreateJobRequest) (*model.ResearchJob, error) {
	if s.createFn == nil {
		return nil, nil
	}
	return s.createFn(ctx, ownerID, req)
}

func (s *stubJobRepo) GetByID(ctx context.Context, id, ownerID string) (*model.ResearchJob, error) {
	if s.getByIDFn == nil {
		return nil, nil
	}
	return s.getByIDFn(ctx, id, ownerID)
}

func (s *stubJobRepo) List(ctx context.Context, ownerID string, opts *model.JobListOptions) (*model.JobPage, error) {
	if s.listFn == nil {
		return &model.JobPage{Jobs: []*model.ResearchJob{}}, nil
	}
	return s.listFn(ctx, ownerID, opts)
}

func (s *stubJobRepo) Update(ctx context.Context, params core.UpdateJobParams) (*model.ResearchJob, error) {
	if s.updateFn == nil {
		return nil, nil
	}
	return s.updateFn(ctx, params)
}

func (s *stubJobRepo) Delete(ctx context.Context, id, ownerID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id, ownerID)
}

func (s *stubJobRepo) Stats(ctx context.Context, ownerID string) (*model.JobStats, error) {
	if s.statsFn == nil {
		return &model.JobStats{}, nil
	}
	return s.statsFn(ctx, ownerID)
}

func (s *stubJobRepo) MarkProcessing(ctx context.Context, id string) (bool, error) {
	if s.markProcessingFn == nil {
		return false, nil
	}
	return s.markProcessingFn(ctx, id)
}

func (s *stubJobRepo) CompleteWithResults(ctx context.Context, params core.CompleteJobParams) (bool, error) {
	if s.completeFn == nil {
		return false, nil
	}
	return s.completeFn(ctx, params)
}

func (s *stubJobRepo) MarkFailed(ctx context.Context, id, errMsg string) (bool, error) {
	if s.markFailedFn == nil {
		return false, nil
	}
	return s.markFailedFn(ctx, id, errMsg)
}

func (s *stubJobRepo) ArchiveCandidates(ctx context.Context, params core.ArchiveCandidatesParams) ([]*model.ResearchJob, error) {
	if s.archiveCandidatesFn == nil {
		return nil, nil
	}
	return s.archiveCandidatesFn(ctx, params)
}

var _ core.JobRepository = (*stubJobRepo)(nil)

// stubTrigger records trigger calls and optionally fails them.
type stubTrigger struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (s *stubTrigger) TriggerExecution(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, jobID)
	return s.err
}

func (s *stubTrigger) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

var _ core.ExecutionTrigger = (*stubTrigger)(nil)

// stubLimiter answers Allow from a fixed script of decisions, then allows.
type stubLimiter struct {
	mu        sync.Mutex
	decisions []bool
	err       error
	keys      []string
}

func (s *stubLimiter) Allow(_ context.Context, params core.RateLimitParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, params.Key)
	if s.err != nil {
		return false, s.err
	}
	if len(s.decisions) == 0 {
		return true, nil
	}
	decision := s.decisions[0]
	s.decisions = s.decisions[1:]
	return decision, nil
}

var _ core.RateLimiter = (*stubLimiter)(nil)
