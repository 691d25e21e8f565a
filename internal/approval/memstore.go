package approval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store for tests and single-node dev. Transact
// serializes callers; decision validation runs before any write, so a failed
// decision leaves no partial state even without rollback.
type MemStore struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	rules map[string]*Rule
	reqs  map[uint]*Request
	flows map[uint][]Flow
	seq   uint
}

func NewMemStore() *MemStore {
	return &MemStore{
		rules: map[string]*Rule{},
		reqs:  map[uint]*Request{},
		flows: map[uint][]Flow{},
	}
}

func (s *MemStore) GetRule(_ context.Context, activityType string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r := s.rules[activityType]; r != nil {
		cp := *r
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: no approval rule for activity %q", ErrConfiguration, activityType)
}

func (s *MemStore) SaveRule(_ context.Context, r *Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		s.seq++
		r.ID = s.seq
	}
	cp := *r
	s.rules[r.ActivityType] = &cp
	return nil
}

func (s *MemStore) CreateRequest(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	req.ID = s.seq
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	cp := *req
	s.reqs[req.ID] = &cp
	return nil
}

func (s *MemStore) GetRequest(_ context.Context, id uint) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r := s.reqs[id]; r != nil {
		cp := *r
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: request %d", ErrNotFound, id)
}

func (s *MemStore) SaveRequest(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reqs[req.ID] == nil {
		return fmt.Errorf("%w: request %d", ErrNotFound, req.ID)
	}
	req.UpdatedAt = time.Now()
	cp := *req
	s.reqs[req.ID] = &cp
	return nil
}

func (s *MemStore) ListRequests(_ context.Context, status Status, page, size int) ([]*Request, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var arr []*Request
	for _, r := range s.reqs {
		if status != "" && r.Status != status {
			continue
		}
		cp := *r
		arr = append(arr, &cp)
	}
	sort.Slice(arr, func(i, j int) bool { return arr[i].ID > arr[j].ID })
	total := int64(len(arr))
	if size <= 0 {
		size = 20
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(arr) {
		return []*Request{}, total, nil
	}
	end := start + size
	if end > len(arr) {
		end = len(arr)
	}
	return arr[start:end], total, nil
}

func (s *MemStore) AppendFlow(_ context.Context, f *Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	f.ID = s.seq
	f.CreatedAt = time.Now()
	s.flows[f.RequestID] = append(s.flows[f.RequestID], *f)
	return nil
}

func (s *MemStore) Flows(_ context.Context, requestID uint) ([]Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Flow(nil), s.flows[requestID]...), nil
}

func (s *MemStore) ApprovedFlows(_ context.Context, requestID uint) ([]Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Flow
	for _, f := range s.flows[requestID] {
		if f.Status == StatusApproved {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *MemStore) CountApproved(ctx context.Context, requestID uint) (int64, error) {
	flows, err := s.ApprovedFlows(ctx, requestID)
	if err != nil {
		return 0, err
	}
	return int64(len(flows)), nil
}

func (s *MemStore) Transact(_ context.Context, fn func(Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}
