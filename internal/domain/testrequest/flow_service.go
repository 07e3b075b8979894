package testrequest

import (
	"context"
	"fmt"
	"time"

	"github.com/upstac/consultation/internal/domain/user"
)

// FlowService keeps the transition history of test requests.
type FlowService struct {
	flows FlowRepository
	now   func() time.Time
}

func NewFlowService(flows FlowRepository) *FlowService {
	return &FlowService{flows: flows, now: time.Now}
}

// Log records that request moved from one status to another at changedBy's hand.
func (s *FlowService) Log(ctx context.Context, request *TestRequest, from, to RequestStatus, changedBy *user.User) error {
	f := &TestRequestFlow{
		RequestID:  request.RequestID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  changedBy,
		HappenedOn: s.now().UTC(),
	}
	if err := s.flows.Create(ctx, f); err != nil {
		return fmt.Errorf("log flow %s -> %s for request %d: %w", from, to, request.RequestID, err)
	}
	return nil
}

func (s *FlowService) FindByRequest(ctx context.Context, requestID int64) ([]*TestRequestFlow, error) {
	flows, err := s.flows.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("list flow for request %d: %w", requestID, err)
	}
	return flows, nil
}
