package testrequest

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/upstac/consultation/internal/domain/user"
)

var (
	doctorD1 = &user.User{ID: 1, UserName: "D1", Roles: []string{user.RoleDoctor}}
	doctorD2 = &user.User{ID: 2, UserName: "D2", Roles: []string{user.RoleDoctor}}
	fixedNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
)

type services struct {
	store  *memStore
	query  *QueryService
	update *UpdateService
	flow   *FlowService
}

func newServices(requests ...*TestRequest) services {
	store := newMemStore(requests...)
	flow := NewFlowService(mockFlowRepo{store})
	flow.now = func() time.Time { return fixedNow }
	update := NewUpdateService(mockRequestRepo{store}, mockConsultationRepo{store}, flow, nil)
	update.now = func() time.Time { return fixedNow }
	return services{
		store:  store,
		query:  NewQueryService(mockRequestRepo{store}),
		update: update,
		flow:   flow,
	}
}

func request(id int64, status RequestStatus) *TestRequest {
	return &TestRequest{RequestID: id, Name: "Patient", Status: status, Created: fixedNow}
}

func validPayload() CreateConsultationRequest {
	return CreateConsultationRequest{Suggestion: SuggestionHomeQuarantine, Comments: "Rest and fluids"}
}

func expectAppError(t *testing.T, err error, msg string) {
	t.Helper()
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	if appErr.Message != msg {
		t.Errorf("expected message %q, got %q", msg, appErr.Message)
	}
}

func storedStatus(t *testing.T, s services, id int64) RequestStatus {
	t.Helper()
	stored, err := mockRequestRepo{s.store}.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load request %d: %v", id, err)
	}
	return stored.Status
}

// -- QueryService --

func TestFindBy_ReturnsMatchingStatus(t *testing.T) {
	s := newServices(
		request(1, StatusLabTestCompleted),
		request(2, StatusInitiated),
		request(3, StatusLabTestCompleted),
	)

	items, err := s.query.FindBy(context.Background(), StatusLabTestCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].RequestID != 1 || items[1].RequestID != 3 {
		t.Errorf("expected requests 1 and 3, got %+v", items)
	}
}

func TestFindBy_InvalidStatus(t *testing.T) {
	s := newServices()
	_, err := s.query.FindBy(context.Background(), RequestStatus("BOGUS"))
	expectAppError(t, err, "Invalid status: BOGUS")
}

func TestFindBy_RepositoryFailureIsNotAppError(t *testing.T) {
	s := newServices()
	s.store.failWith = errors.New("connection refused")

	_, err := s.query.FindBy(context.Background(), StatusLabTestCompleted)
	if err == nil {
		t.Fatal("expected an error")
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		t.Errorf("a database failure must not be an AppError: %v", err)
	}
}

func TestFindByDoctor(t *testing.T) {
	mine := request(1, StatusDiagnosisInProcess)
	mine.Consultation = &Consultation{ID: 10, RequestID: 1, Doctor: doctorD1}
	theirs := request(2, StatusDiagnosisInProcess)
	theirs.Consultation = &Consultation{ID: 11, RequestID: 2, Doctor: doctorD2}
	s := newServices(mine, theirs, request(3, StatusLabTestCompleted))

	items, err := s.query.FindByDoctor(context.Background(), doctorD1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].RequestID != 1 {
		t.Errorf("expected only request 1, got %+v", items)
	}
}

func TestFindByDoctor_NilDoctor(t *testing.T) {
	s := newServices()
	_, err := s.query.FindByDoctor(context.Background(), nil)
	expectAppError(t, err, "Doctor is required")
}

func TestGetByID(t *testing.T) {
	s := newServices(request(5, StatusInitiated))

	got, err := s.query.GetByID(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RequestID != 5 {
		t.Errorf("expected request 5, got %d", got.RequestID)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	s := newServices()
	_, err := s.query.GetByID(context.Background(), 99)
	expectAppError(t, err, "Invalid ID")
}

// -- UpdateService.AssignForConsultation --

func TestAssignForConsultation_Success(t *testing.T) {
	s := newServices(request(5, StatusLabTestCompleted))

	got, err := s.update.AssignForConsultation(context.Background(), 5, doctorD1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusDiagnosisInProcess {
		t.Errorf("expected DIAGNOSIS_IN_PROCESS, got %s", got.Status)
	}
	if got.Consultation == nil || got.Consultation.Doctor.UserName != "D1" {
		t.Fatalf("expected consultation for D1, got %+v", got.Consultation)
	}
	if got.Consultation.Suggestion != nil {
		t.Error("suggestion must be empty until the outcome is recorded")
	}
	if st := storedStatus(t, s, 5); st != StatusDiagnosisInProcess {
		t.Errorf("expected stored DIAGNOSIS_IN_PROCESS, got %s", st)
	}

	flows, err := s.flow.FindByRequest(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flows) != 1 {
		t.Fatalf("expected 1 flow entry, got %d", len(flows))
	}
	f := flows[0]
	if f.FromStatus != StatusLabTestCompleted || f.ToStatus != StatusDiagnosisInProcess {
		t.Errorf("unexpected transition %s -> %s", f.FromStatus, f.ToStatus)
	}
	if f.ChangedBy != doctorD1 || !f.HappenedOn.Equal(fixedNow) {
		t.Errorf("unexpected flow entry: %+v", f)
	}
}

func TestAssignForConsultation_NotFound(t *testing.T) {
	s := newServices()
	_, err := s.update.AssignForConsultation(context.Background(), 404, doctorD1)
	expectAppError(t, err, "Invalid ID or State")
}

func TestAssignForConsultation_WrongState(t *testing.T) {
	for _, status := range []RequestStatus{StatusInitiated, StatusLabTestInProgress, StatusDiagnosisInProcess, StatusCompleted} {
		t.Run(string(status), func(t *testing.T) {
			s := newServices(request(5, status))
			_, err := s.update.AssignForConsultation(context.Background(), 5, doctorD1)
			expectAppError(t, err, "Invalid ID or State")
		})
	}
}

func TestAssignForConsultation_SecondDoctorRejected(t *testing.T) {
	s := newServices(request(5, StatusLabTestCompleted))

	if _, err := s.update.AssignForConsultation(context.Background(), 5, doctorD1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := s.update.AssignForConsultation(context.Background(), 5, doctorD2)
	expectAppError(t, err, "Invalid ID or State")
}

func TestAssignForConsultation_NilDoctor(t *testing.T) {
	s := newServices(request(5, StatusLabTestCompleted))
	_, err := s.update.AssignForConsultation(context.Background(), 5, nil)
	expectAppError(t, err, "Doctor is required")
}

// -- UpdateService.UpdateConsultation --

func assigned(t *testing.T, s services, id int64, doctor *user.User) {
	t.Helper()
	if _, err := s.update.AssignForConsultation(context.Background(), id, doctor); err != nil {
		t.Fatalf("assign %d: %v", id, err)
	}
}

func TestUpdateConsultation_Success(t *testing.T) {
	s := newServices(request(5, StatusLabTestCompleted))
	assigned(t, s, 5, doctorD1)

	got, err := s.update.UpdateConsultation(context.Background(), 5, validPayload(), doctorD1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", got.Status)
	}
	c := got.Consultation
	if c.Suggestion == nil || *c.Suggestion != SuggestionHomeQuarantine {
		t.Errorf("unexpected suggestion %v", c.Suggestion)
	}
	if c.Comments == nil || *c.Comments != "Rest and fluids" {
		t.Errorf("unexpected comments %v", c.Comments)
	}
	if c.UpdatedOn == nil || !c.UpdatedOn.Equal(fixedNow) {
		t.Errorf("unexpected updated_on %v", c.UpdatedOn)
	}

	flows, _ := s.flow.FindByRequest(context.Background(), 5)
	if len(flows) != 2 || flows[1].ToStatus != StatusCompleted {
		t.Errorf("expected second flow entry to COMPLETED, got %+v", flows)
	}
}

func TestUpdateConsultation_ValidationFailsBeforeLookup(t *testing.T) {
	s := newServices()
	s.store.failWith = errors.New("must not be reached")

	_, err := s.update.UpdateConsultation(context.Background(), 5, CreateConsultationRequest{}, doctorD1)
	var cv *ConstraintViolationError
	if !errors.As(err, &cv) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	if len(cv.Violations) != 2 {
		t.Errorf("expected 2 violations, got %+v", cv.Violations)
	}
}

func TestUpdateConsultation_WrongState(t *testing.T) {
	s := newServices(request(5, StatusLabTestCompleted))
	_, err := s.update.UpdateConsultation(context.Background(), 5, validPayload(), doctorD1)
	expectAppError(t, err, "Invalid ID or State")
}

func TestUpdateConsultation_NotFound(t *testing.T) {
	s := newServices()
	_, err := s.update.UpdateConsultation(context.Background(), 5, validPayload(), doctorD1)
	expectAppError(t, err, "Invalid ID or State")
}

func TestUpdateConsultation_OtherDoctor(t *testing.T) {
	s := newServices(request(5, StatusLabTestCompleted))
	assigned(t, s, 5, doctorD1)

	_, err := s.update.UpdateConsultation(context.Background(), 5, validPayload(), doctorD2)
	expectAppError(t, err, "Consultation for request 5 is assigned to another doctor")

	if st := storedStatus(t, s, 5); st != StatusDiagnosisInProcess {
		t.Errorf("expected status unchanged, got %s", st)
	}
}

func TestUpdateConsultation_CompletedCannotBeUpdatedAgain(t *testing.T) {
	s := newServices(request(5, StatusLabTestCompleted))
	assigned(t, s, 5, doctorD1)

	if _, err := s.update.UpdateConsultation(context.Background(), 5, validPayload(), doctorD1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := s.update.UpdateConsultation(context.Background(), 5, validPayload(), doctorD1)
	expectAppError(t, err, "Invalid ID or State")
}

// -- Validation --

func TestCreateConsultationRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		req    CreateConsultationRequest
		fields []string
	}{
		{"valid", validPayload(), nil},
		{"missing suggestion", CreateConsultationRequest{Comments: "ok"}, []string{"suggestion"}},
		{"unknown suggestion", CreateConsultationRequest{Suggestion: "MAYBE", Comments: "ok"}, []string{"suggestion"}},
		{"missing comments", CreateConsultationRequest{Suggestion: SuggestionAdmit}, []string{"comments"}},
		{"blank comments", CreateConsultationRequest{Suggestion: SuggestionAdmit, Comments: "   "}, []string{"comments"}},
		{"long comments", CreateConsultationRequest{Suggestion: SuggestionNoIssues, Comments: strings.Repeat("x", 501)}, []string{"comments"}},
		{"empty", CreateConsultationRequest{}, []string{"suggestion", "comments"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.fields == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var cv *ConstraintViolationError
			if !errors.As(err, &cv) {
				t.Fatalf("expected constraint violation, got %v", err)
			}
			var got []string
			for _, v := range cv.Violations {
				got = append(got, v.Field)
				if v.Message == "" {
					t.Errorf("violation on %s has no message", v.Field)
				}
			}
			if !reflect.DeepEqual(got, tt.fields) {
				t.Errorf("expected fields %v, got %v", tt.fields, got)
			}
		})
	}
}

func TestConstraintViolationError_Message(t *testing.T) {
	err := &ConstraintViolationError{Violations: []Violation{
		{Field: "suggestion", Message: "must not be blank"},
		{Field: "comments", Message: "must not be blank"},
	}}
	want := "constraint violation: suggestion: must not be blank, comments: must not be blank"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestViolationMessage_OneOf(t *testing.T) {
	req := CreateConsultationRequest{Suggestion: "MAYBE", Comments: "ok"}
	var cv *ConstraintViolationError
	if !errors.As(req.Validate(), &cv) {
		t.Fatal("expected constraint violation")
	}
	if want := "must be one of NO_ISSUES, HOME_QUARANTINE, ADMIT"; cv.Violations[0].Message != want {
		t.Errorf("expected %q, got %q", want, cv.Violations[0].Message)
	}
}

func TestRequestStatus_Valid(t *testing.T) {
	if !StatusLabTestCompleted.Valid() {
		t.Error("LAB_TEST_COMPLETED should be valid")
	}
	if RequestStatus("lab test completed").Valid() {
		t.Error("free text status should be invalid")
	}
}

func TestTestRequest_AssignedTo(t *testing.T) {
	tr := request(1, StatusDiagnosisInProcess)
	if tr.AssignedTo(doctorD1) {
		t.Error("unassigned request reported as assigned")
	}
	tr.Consultation = &Consultation{Doctor: doctorD1}
	if !tr.AssignedTo(doctorD1) {
		t.Error("expected request assigned to D1")
	}
	if tr.AssignedTo(doctorD2) || tr.AssignedTo(nil) {
		t.Error("request must only be assigned to D1")
	}
}
