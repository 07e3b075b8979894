package testrequest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
)

// memStore backs all three mock repositories so that consultations and flow
// entries show up on the requests they belong to.
type memStore struct {
	mu       sync.Mutex
	requests map[int64]*TestRequest
	flows    []*TestRequestFlow
	nextID   int64
	failWith error
}

func newMemStore(requests ...*TestRequest) *memStore {
	m := &memStore{requests: make(map[int64]*TestRequest)}
	for _, r := range requests {
		m.requests[r.RequestID] = r
	}
	return m
}

type mockRequestRepo struct{ *memStore }
type mockConsultationRepo struct{ *memStore }
type mockFlowRepo struct{ *memStore }

func (m mockRequestRepo) GetByID(_ context.Context, id int64) (*TestRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	t, ok := m.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (m mockRequestRepo) GetByIDForUpdate(ctx context.Context, id int64) (*TestRequest, error) {
	return m.GetByID(ctx, id)
}

func (m mockRequestRepo) ListByStatus(_ context.Context, status RequestStatus) ([]*TestRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []*TestRequest
	for _, t := range m.requests {
		if t.Status == status {
			out = append(out, t)
		}
	}
	sortByID(out)
	return out, nil
}

func (m mockRequestRepo) ListByDoctor(_ context.Context, doctorID int64) ([]*TestRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []*TestRequest
	for _, t := range m.requests {
		if t.Consultation != nil && t.Consultation.Doctor != nil && t.Consultation.Doctor.ID == doctorID {
			out = append(out, t)
		}
	}
	sortByID(out)
	return out, nil
}

func (m mockRequestRepo) UpdateStatus(_ context.Context, id int64, status RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Status = status
	return nil
}

func (m mockConsultationRepo) Create(_ context.Context, c *Consultation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.requests[c.RequestID]
	if !ok {
		return fmt.Errorf("test request %d does not exist", c.RequestID)
	}
	if t.Consultation != nil {
		return fmt.Errorf("duplicate key value violates unique constraint \"consultation_request_id_key\"")
	}
	m.nextID++
	c.ID = m.nextID
	t.Consultation = c
	return nil
}

func (m mockConsultationRepo) Update(_ context.Context, c *Consultation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.requests[c.RequestID]
	if !ok || t.Consultation == nil || t.Consultation.ID != c.ID {
		return pgx.ErrNoRows
	}
	t.Consultation = c
	return nil
}

func (m mockFlowRepo) Create(_ context.Context, f *TestRequestFlow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	f.ID = m.nextID
	m.flows = append(m.flows, f)
	return nil
}

func (m mockFlowRepo) ListByRequest(_ context.Context, requestID int64) ([]*TestRequestFlow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*TestRequestFlow
	for _, f := range m.flows {
		if f.RequestID == requestID {
			out = append(out, f)
		}
	}
	return out, nil
}

func sortByID(items []*TestRequest) {
	sort.Slice(items, func(i, j int) bool { return items[i].RequestID < items[j].RequestID })
}
