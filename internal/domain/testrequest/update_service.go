package testrequest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/upstac/consultation/internal/domain/user"
	"github.com/upstac/consultation/internal/platform/db"
)

// UpdateService moves test requests through the consultation steps. Every
// transition reads the row under lock, checks its status and writes inside
// one transaction, so two doctors cannot both take the same request.
type UpdateService struct {
	requests      TestRequestRepository
	consultations ConsultationRepository
	flow          *FlowService
	txer          db.Beginner
	now           func() time.Time
}

func NewUpdateService(requests TestRequestRepository, consultations ConsultationRepository, flow *FlowService, txer db.Beginner) *UpdateService {
	return &UpdateService{
		requests:      requests,
		consultations: consultations,
		flow:          flow,
		txer:          txer,
		now:           time.Now,
	}
}

func (s *UpdateService) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txer == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.txer, fn)
}

// lockInStatus loads request id under lock and requires it to be in status.
func (s *UpdateService) lockInStatus(ctx context.Context, id int64, status RequestStatus) (*TestRequest, error) {
	t, err := s.requests.GetByIDForUpdate(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NewAppError(msgInvalidIDOrState)
	}
	if err != nil {
		return nil, fmt.Errorf("load test request %d: %w", id, err)
	}
	if t.Status != status {
		return nil, NewAppError(msgInvalidIDOrState)
	}
	return t, nil
}

func (s *UpdateService) transition(ctx context.Context, t *TestRequest, to RequestStatus, by *user.User) error {
	if err := s.requests.UpdateStatus(ctx, t.RequestID, to); err != nil {
		return fmt.Errorf("update status of test request %d: %w", t.RequestID, err)
	}
	from := t.Status
	t.Status = to
	return s.flow.Log(ctx, t, from, to, by)
}

// AssignForConsultation hands a request whose lab test is complete to doctor.
func (s *UpdateService) AssignForConsultation(ctx context.Context, id int64, doctor *user.User) (*TestRequest, error) {
	if doctor == nil {
		return nil, NewAppError("Doctor is required")
	}

	var result *TestRequest
	err := s.inTx(ctx, func(ctx context.Context) error {
		t, err := s.lockInStatus(ctx, id, StatusLabTestCompleted)
		if err != nil {
			return err
		}

		c := &Consultation{RequestID: t.RequestID, Doctor: doctor}
		if err := s.consultations.Create(ctx, c); err != nil {
			return fmt.Errorf("create consultation for test request %d: %w", id, err)
		}
		t.Consultation = c

		if err := s.transition(ctx, t, StatusDiagnosisInProcess, doctor); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateConsultation records the doctor's outcome and completes the request.
// The payload is validated before any row is touched.
func (s *UpdateService) UpdateConsultation(ctx context.Context, id int64, req CreateConsultationRequest, doctor *user.User) (*TestRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, NewAppError("Doctor is required")
	}

	var result *TestRequest
	err := s.inTx(ctx, func(ctx context.Context) error {
		t, err := s.lockInStatus(ctx, id, StatusDiagnosisInProcess)
		if err != nil {
			return err
		}
		if t.Consultation == nil {
			return NewAppError("Invalid Request")
		}
		if !t.AssignedTo(doctor) {
			return NewAppError("Consultation for request %d is assigned to another doctor", id)
		}

		suggestion := req.Suggestion
		comments := req.Comments
		updatedOn := s.now().UTC()
		t.Consultation.Suggestion = &suggestion
		t.Consultation.Comments = &comments
		t.Consultation.UpdatedOn = &updatedOn
		if err := s.consultations.Update(ctx, t.Consultation); err != nil {
			return fmt.Errorf("update consultation for test request %d: %w", id, err)
		}

		if err := s.transition(ctx, t, StatusCompleted, doctor); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
