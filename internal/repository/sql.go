package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smartscan/internal/model"
	"smartscan/internal/store"
)

// SQL implements the student, attendance and operator repositories on Postgres (pgx)
// or SQLite through database/sql.
type SQL struct {
	db *sql.DB
	ph func(int) string
}

// NewSQL creates a repo over an opened store.DB.
func NewSQL(db *store.DB) *SQL {
	return &SQL{db: db.Client, ph: db.Dialect.Placeholder}
}

// Students exposes the StudentRepository view.
func (r *SQL) Students() StudentRepository { return sqlStudents{r} }

// Attendance exposes the AttendanceRepository view.
func (r *SQL) Attendance() AttendanceRepository { return sqlAttendance{r} }

// Operators exposes the OperatorRepository view.
func (r *SQL) Operators() OperatorRepository { return sqlOperators{r} }

type sqlStudents struct{ *SQL }

func (r sqlStudents) FindByQRCode(ctx context.Context, code string) (*model.Student, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, qr_code, name, email, contact FROM students WHERE qr_code = `+r.ph(1), code)
	var st model.Student
	if err := row.Scan(&st.ID, &st.QRCode, &st.Name, &st.Email, &st.Contact); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find student by qr code: %w", err)
	}
	return &st, nil
}

func (r sqlStudents) List(ctx context.Context) ([]model.Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, qr_code, name, email, contact FROM students ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var st model.Student
		if err := rows.Scan(&st.ID, &st.QRCode, &st.Name, &st.Email, &st.Contact); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

type sqlAttendance struct{ *SQL }

func (r sqlAttendance) InsertBatch(ctx context.Context, records []model.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert attendance: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO attendance (id, student_id, "date", "time", "type", status) VALUES (%s, %s, %s, %s, %s, %s)`,
		r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), r.ph(6)))
	if err != nil {
		return fmt.Errorf("insert attendance: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			uuid.NewString(), string(rec.StudentID), rec.Date.String(),
			rec.Timestamp.UTC().Format(time.RFC3339Nano), string(rec.Mode), rec.Status)
		if err != nil {
			return fmt.Errorf("insert attendance for %s: %w", rec.StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert attendance: commit: %w", err)
	}
	return nil
}

func (r sqlAttendance) List(ctx context.Context) ([]model.AttendanceEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.student_id, a."date", a."time", a."type", a.status,
		       s.id, s.qr_code, s.name, s.email
		FROM attendance a
		LEFT JOIN students s ON s.id = a.student_id
		ORDER BY a."time" DESC`)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var entries []model.AttendanceEntry
	for rows.Next() {
		var (
			e                         model.AttendanceEntry
			date, mode                string
			sID, sCode, sName, sEmail sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.StudentID, &date, &e.Time, &mode, &e.Status, &sID, &sCode, &sName, &sEmail); err != nil {
			return nil, err
		}
		if d, err := model.ParseDate(date); err == nil {
			e.Date = d
		}
		e.Mode = model.Mode(mode)
		if sID.Valid {
			e.Student = &model.Student{
				ID:     model.RowID(sID.String),
				QRCode: sCode.String,
				Name:   sName.String,
				Email:  sEmail.String,
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type sqlOperators struct{ *SQL }

func (r sqlOperators) FindByEmail(ctx context.Context, email string) (*Operator, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM operators WHERE email = `+r.ph(1), email)
	var op Operator
	if err := row.Scan(&op.ID, &op.Email, &op.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find operator: %w", err)
	}
	return &op, nil
}

func (r sqlOperators) Create(ctx context.Context, op *Operator) error {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO operators (id, email, password_hash) VALUES (%s, %s, %s)`, r.ph(1), r.ph(2), r.ph(3)),
		op.ID, op.Email, op.PasswordHash)
	if err != nil {
		return fmt.Errorf("create operator: %w", err)
	}
	return nil
}

// CreateStudent inserts a student row; used to seed self-hosted databases.
func (r *SQL) CreateStudent(ctx context.Context, st *model.Student) error {
	if st.ID == "" {
		st.ID = model.RowID(uuid.NewString())
	}
	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO students (id, qr_code, name, email, contact) VALUES (%s, %s, %s, %s, %s)`,
			r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5)),
		string(st.ID), st.QRCode, st.Name, st.Email, st.Contact)
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}
