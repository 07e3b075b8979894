package testrequest

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/upstac/consultation/internal/domain/user"
)

// QueryService reads test requests.
type QueryService struct {
	requests TestRequestRepository
}

func NewQueryService(requests TestRequestRepository) *QueryService {
	return &QueryService{requests: requests}
}

func (s *QueryService) FindBy(ctx context.Context, status RequestStatus) ([]*TestRequest, error) {
	if !status.Valid() {
		return nil, NewAppError("Invalid status: %s", status)
	}
	items, err := s.requests.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list test requests by status %s: %w", status, err)
	}
	return items, nil
}

func (s *QueryService) FindByDoctor(ctx context.Context, doctor *user.User) ([]*TestRequest, error) {
	if doctor == nil {
		return nil, NewAppError("Doctor is required")
	}
	items, err := s.requests.ListByDoctor(ctx, doctor.ID)
	if err != nil {
		return nil, fmt.Errorf("list test requests for doctor %d: %w", doctor.ID, err)
	}
	return items, nil
}

func (s *QueryService) GetByID(ctx context.Context, id int64) (*TestRequest, error) {
	t, err := s.requests.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NewAppError("Invalid ID")
	}
	if err != nil {
		return nil, fmt.Errorf("get test request %d: %w", id, err)
	}
	return t, nil
}
