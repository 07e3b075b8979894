package testrequest

import (
	"context"
)

type TestRequestRepository interface {
	GetByID(ctx context.Context, id int64) (*TestRequest, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*TestRequest, error)
	ListByStatus(ctx context.Context, status RequestStatus) ([]*TestRequest, error)
	ListByDoctor(ctx context.Context, doctorID int64) ([]*TestRequest, error)
	UpdateStatus(ctx context.Context, id int64, status RequestStatus) error
}

type ConsultationRepository interface {
	Create(ctx context.Context, c *Consultation) error
	Update(ctx context.Context, c *Consultation) error
}

type FlowRepository interface {
	Create(ctx context.Context, f *TestRequestFlow) error
	ListByRequest(ctx context.Context, requestID int64) ([]*TestRequestFlow, error)
}
