package testrequest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/upstac/consultation/internal/domain/user"
	"github.com/upstac/consultation/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- test requests --

type testRequestRepoPG struct{ pool *pgxpool.Pool }

func NewTestRequestRepoPG(pool *pgxpool.Pool) TestRequestRepository {
	return &testRequestRepoPG{pool: pool}
}

const testRequestSelect = `SELECT
	t.request_id, t.name, t.gender, t.age, t.email, t.phone_number, t.pin_code,
	t.address, t.status, t.created, t.created_by,
	c.id, c.suggestion, c.comments, c.updated_on,
	d.id, d.user_name, d.first_name, d.last_name, d.email, d.phone_number,
	l.result_id, l.blood_pressure, l.heart_beat, l.temperature, l.oxygen_level,
	l.comments, l.result, l.updated_on, l.tester_id
FROM test_request t
LEFT JOIN consultation c ON c.request_id = t.request_id
LEFT JOIN users d ON d.id = c.doctor_id
LEFT JOIN lab_result l ON l.request_id = t.request_id`

func scanTestRequest(row pgx.Row) (*TestRequest, error) {
	var t TestRequest
	var (
		consID                                                  *int64
		suggestion                                              *DoctorSuggestion
		consComments                                            *string
		consUpdated                                             *time.Time
		docID                                                   *int64
		docUser, docFirst, docLast, docEmail, docPhone          *string
		labID                                                   *int64
		bp, heartBeat, temperature, oxygen, labComments, result *string
		labUpdated                                              *time.Time
		testerID                                                *int64
	)

	err := row.Scan(&t.RequestID, &t.Name, &t.Gender, &t.Age, &t.Email, &t.PhoneNumber, &t.PinCode,
		&t.Address, &t.Status, &t.Created, &t.CreatedByID,
		&consID, &suggestion, &consComments, &consUpdated,
		&docID, &docUser, &docFirst, &docLast, &docEmail, &docPhone,
		&labID, &bp, &heartBeat, &temperature, &oxygen,
		&labComments, &result, &labUpdated, &testerID)
	if err != nil {
		return nil, err
	}

	if consID != nil {
		t.Consultation = &Consultation{
			ID:         *consID,
			RequestID:  t.RequestID,
			Suggestion: suggestion,
			Comments:   consComments,
			UpdatedOn:  consUpdated,
		}
		if docID != nil {
			t.Consultation.Doctor = &user.User{
				ID:          *docID,
				UserName:    strVal(docUser),
				FirstName:   strVal(docFirst),
				LastName:    strVal(docLast),
				Email:       strVal(docEmail),
				PhoneNumber: strVal(docPhone),
			}
		}
	}

	if labID != nil {
		t.LabResult = &LabResult{
			ID:            *labID,
			RequestID:     t.RequestID,
			BloodPressure: strVal(bp),
			HeartBeat:     strVal(heartBeat),
			Temperature:   strVal(temperature),
			OxygenLevel:   strVal(oxygen),
			Comments:      strVal(labComments),
			Result:        TestResult(strVal(result)),
			UpdatedOn:     labUpdated,
			TesterID:      testerID,
		}
	}

	return &t, nil
}

func (r *testRequestRepoPG) list(ctx context.Context, sql string, args ...interface{}) ([]*TestRequest, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*TestRequest
	for rows.Next() {
		t, err := scanTestRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *testRequestRepoPG) GetByID(ctx context.Context, id int64) (*TestRequest, error) {
	return scanTestRequest(conn(ctx, r.pool).QueryRow(ctx, testRequestSelect+` WHERE t.request_id = $1`, id))
}

func (r *testRequestRepoPG) GetByIDForUpdate(ctx context.Context, id int64) (*TestRequest, error) {
	return scanTestRequest(conn(ctx, r.pool).QueryRow(ctx,
		testRequestSelect+` WHERE t.request_id = $1 FOR UPDATE OF t`, id))
}

func (r *testRequestRepoPG) ListByStatus(ctx context.Context, status RequestStatus) ([]*TestRequest, error) {
	return r.list(ctx, testRequestSelect+` WHERE t.status = $1 ORDER BY t.request_id`, status)
}

func (r *testRequestRepoPG) ListByDoctor(ctx context.Context, doctorID int64) ([]*TestRequest, error) {
	return r.list(ctx, testRequestSelect+` WHERE c.doctor_id = $1 ORDER BY t.request_id`, doctorID)
}

func (r *testRequestRepoPG) UpdateStatus(ctx context.Context, id int64, status RequestStatus) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `UPDATE test_request SET status = $2 WHERE request_id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// -- consultations --

type consultationRepoPG struct{ pool *pgxpool.Pool }

func NewConsultationRepoPG(pool *pgxpool.Pool) ConsultationRepository {
	return &consultationRepoPG{pool: pool}
}

func (r *consultationRepoPG) Create(ctx context.Context, c *Consultation) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO consultation (request_id, doctor_id, suggestion, comments, updated_on)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		c.RequestID, c.Doctor.ID, c.Suggestion, c.Comments, c.UpdatedOn).Scan(&c.ID)
}

func (r *consultationRepoPG) Update(ctx context.Context, c *Consultation) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE consultation SET suggestion = $2, comments = $3, updated_on = $4
		WHERE id = $1`,
		c.ID, c.Suggestion, c.Comments, c.UpdatedOn)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// -- flow --

type flowRepoPG struct{ pool *pgxpool.Pool }

func NewFlowRepoPG(pool *pgxpool.Pool) FlowRepository {
	return &flowRepoPG{pool: pool}
}

func (r *flowRepoPG) Create(ctx context.Context, f *TestRequestFlow) error {
	var changedBy *int64
	if f.ChangedBy != nil {
		changedBy = &f.ChangedBy.ID
	}
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO test_request_flow (request_id, from_status, to_status, changed_by, happened_on)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		f.RequestID, f.FromStatus, f.ToStatus, changedBy, f.HappenedOn).Scan(&f.ID)
}

func (r *flowRepoPG) ListByRequest(ctx context.Context, requestID int64) ([]*TestRequestFlow, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT f.id, f.request_id, f.from_status, f.to_status, f.happened_on,
			u.id, u.user_name, u.first_name, u.last_name
		FROM test_request_flow f
		LEFT JOIN users u ON u.id = f.changed_by
		WHERE f.request_id = $1
		ORDER BY f.happened_on, f.id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*TestRequestFlow
	for rows.Next() {
		var f TestRequestFlow
		var uid *int64
		var uname, first, last *string
		if err := rows.Scan(&f.ID, &f.RequestID, &f.FromStatus, &f.ToStatus, &f.HappenedOn,
			&uid, &uname, &first, &last); err != nil {
			return nil, err
		}
		if uid != nil {
			f.ChangedBy = &user.User{ID: *uid, UserName: strVal(uname), FirstName: strVal(first), LastName: strVal(last)}
		}
		items = append(items, &f)
	}
	return items, rows.Err()
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
