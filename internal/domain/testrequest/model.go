package testrequest

import (
	"time"

	"github.com/upstac/consultation/internal/domain/user"
)

// RequestStatus is the lifecycle position of a test request.
type RequestStatus string

const (
	StatusInitiated          RequestStatus = "INITIATED"
	StatusLabTestInProgress  RequestStatus = "LAB_TEST_IN_PROGRESS"
	StatusLabTestCompleted   RequestStatus = "LAB_TEST_COMPLETED"
	StatusDiagnosisInProcess RequestStatus = "DIAGNOSIS_IN_PROCESS"
	StatusCompleted          RequestStatus = "COMPLETED"
)

var validStatuses = map[RequestStatus]bool{
	StatusInitiated:          true,
	StatusLabTestInProgress:  true,
	StatusLabTestCompleted:   true,
	StatusDiagnosisInProcess: true,
	StatusCompleted:          true,
}

func (s RequestStatus) Valid() bool { return validStatuses[s] }

// DoctorSuggestion is the outcome of a consultation.
type DoctorSuggestion string

const (
	SuggestionNoIssues       DoctorSuggestion = "NO_ISSUES"
	SuggestionHomeQuarantine DoctorSuggestion = "HOME_QUARANTINE"
	SuggestionAdmit          DoctorSuggestion = "ADMIT"
)

type TestResult string

const (
	ResultNegative TestResult = "NEGATIVE"
	ResultPositive TestResult = "POSITIVE"
)

// TestRequest maps to the test_request table, with its consultation and lab
// result joined in when present.
type TestRequest struct {
	RequestID    int64         `db:"request_id" json:"request_id"`
	Name         string        `db:"name" json:"name"`
	Gender       string        `db:"gender" json:"gender"`
	Age          int           `db:"age" json:"age"`
	Email        string        `db:"email" json:"email"`
	PhoneNumber  string        `db:"phone_number" json:"phone_number"`
	PinCode      int           `db:"pin_code" json:"pin_code"`
	Address      string        `db:"address" json:"address"`
	Status       RequestStatus `db:"status" json:"status"`
	Created      time.Time     `db:"created" json:"created"`
	CreatedByID  *int64        `db:"created_by" json:"created_by,omitempty"`
	Consultation *Consultation `json:"consultation,omitempty"`
	LabResult    *LabResult    `json:"lab_result,omitempty"`
}

// Consultation maps to the consultation table. Suggestion, comments and
// updated_on stay empty until the doctor records an outcome.
type Consultation struct {
	ID         int64             `db:"id" json:"id"`
	RequestID  int64             `db:"request_id" json:"-"`
	Doctor     *user.User        `json:"doctor"`
	Suggestion *DoctorSuggestion `db:"suggestion" json:"suggestion,omitempty"`
	Comments   *string           `db:"comments" json:"comments,omitempty"`
	UpdatedOn  *time.Time        `db:"updated_on" json:"updated_on,omitempty"`
}

// LabResult maps to the lab_result table. It is written by testers and only
// read here.
type LabResult struct {
	ID            int64      `db:"result_id" json:"result_id"`
	RequestID     int64      `db:"request_id" json:"-"`
	BloodPressure string     `db:"blood_pressure" json:"blood_pressure"`
	HeartBeat     string     `db:"heart_beat" json:"heart_beat"`
	Temperature   string     `db:"temperature" json:"temperature"`
	OxygenLevel   string     `db:"oxygen_level" json:"oxygen_level"`
	Comments      string     `db:"comments" json:"comments"`
	Result        TestResult `db:"result" json:"result"`
	UpdatedOn     *time.Time `db:"updated_on" json:"updated_on,omitempty"`
	TesterID      *int64     `db:"tester_id" json:"tester_id,omitempty"`
}

// TestRequestFlow is one status transition of a test request.
type TestRequestFlow struct {
	ID         int64         `db:"id" json:"id"`
	RequestID  int64         `db:"request_id" json:"request_id"`
	FromStatus RequestStatus `db:"from_status" json:"from_status"`
	ToStatus   RequestStatus `db:"to_status" json:"to_status"`
	ChangedBy  *user.User    `json:"changed_by"`
	HappenedOn time.Time     `db:"happened_on" json:"happened_on"`
}

// CreateConsultationRequest is the payload a doctor submits to close a
// consultation.
type CreateConsultationRequest struct {
	Suggestion DoctorSuggestion `json:"suggestion" validate:"required,oneof=NO_ISSUES HOME_QUARANTINE ADMIT"`
	Comments   string           `json:"comments" validate:"required,notblank,max=500"`
}

// AssignedTo reports whether the request's consultation belongs to doctor.
func (t *TestRequest) AssignedTo(doctor *user.User) bool {
	if t.Consultation == nil || t.Consultation.Doctor == nil || doctor == nil {
		return false
	}
	return t.Consultation.Doctor.ID == doctor.ID
}
