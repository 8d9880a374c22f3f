// Package repository defines data access for students, attendance and operators.
package repository

import (
	"context"
	"errors"

	"smartscan/internal/model"
)

// ErrNotFound is returned when a lookup matched no row.
var ErrNotFound = errors.New("not found")

// StudentRepository reads the students table.
type StudentRepository interface {
	// FindByQRCode resolves a scanned payload to its student or returns ErrNotFound.
	FindByQRCode(ctx context.Context, code string) (*model.Student, error)
	// List returns every student.
	List(ctx context.Context) ([]model.Student, error)
}

// AttendanceRepository reads and writes the attendance table.
type AttendanceRepository interface {
	// InsertBatch writes all records in one request; either all rows land or none.
	InsertBatch(ctx context.Context, records []model.AttendanceRecord) error
	// List returns attendance rows with their student joined.
	List(ctx context.Context) ([]model.AttendanceEntry, error)
}

// Operator is a locally managed account allowed to run scan sessions.
type Operator struct {
	ID           string
	Email        string
	PasswordHash string
}

// OperatorRepository stores operator credentials for the self-hosted backends.
type OperatorRepository interface {
	FindByEmail(ctx context.Context, email string) (*Operator, error)
	Create(ctx context.Context, op *Operator) error
}
