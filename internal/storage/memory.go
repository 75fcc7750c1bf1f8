package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"crossmatch/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	records     map[string][]model.MatchRecord
	cells       map[string][]model.ResultsCell
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.records = make(map[string][]model.MatchRecord)
	s.cells = make(map[string][]model.ResultsCell)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	run.Teams = append([]string(nil), run.Teams...)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	run.Teams = append([]string(nil), run.Teams...)
	return run, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		run.Teams = append([]string(nil), run.Teams...)
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC != runs[j].CreatedAtUTC {
			return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
		}
		return runs[i].ID < runs[j].ID
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *MemoryStore) SaveMatchRecords(_ context.Context, runID string, records []model.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	copied := make([]model.MatchRecord, len(records))
	copy(copied, records)
	s.records[runID] = copied
	return nil
}

func (s *MemoryStore) GetMatchRecords(_ context.Context, runID string) ([]model.MatchRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.records[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.MatchRecord, len(records))
	copy(copied, records)
	return copied, true, nil
}

func (s *MemoryStore) SaveResultsCells(_ context.Context, runID string, cells []model.ResultsCell) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	copied := make([]model.ResultsCell, len(cells))
	copy(copied, cells)
	s.cells[runID] = copied
	return nil
}

func (s *MemoryStore) GetResultsCells(_ context.Context, runID string) ([]model.ResultsCell, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cells, ok := s.cells[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.ResultsCell, len(cells))
	copy(copied, cells)
	return copied, true, nil
}
