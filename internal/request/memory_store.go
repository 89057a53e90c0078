package request

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*Request
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]*Request)}
}

func (s *MemoryStore) Create(ctx context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *MemoryStore) ConditionalUpdate(ctx context.Context, id string, expected Status, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	if req.Status != expected {
		return ErrStatusConflict
	}

	req.Status = patch.Status
	if patch.ProviderID != nil {
		req.ProviderID = *patch.ProviderID
	}
	if patch.GatewaySessionID != nil {
		req.GatewaySessionID = *patch.GatewaySessionID
	}
	if patch.PaymentIntentID != nil {
		req.PaymentIntentID = *patch.PaymentIntentID
	}
	req.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Request
	for _, req := range s.requests {
		if req.RequesterID == userID || req.ProviderID == userID {
			cp := *req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Request
	for _, req := range s.requests {
		if req.Status == StatusEscrowPending && req.UpdatedAt.Before(cutoff) {
			cp := *req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
