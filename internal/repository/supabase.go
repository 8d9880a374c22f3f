package repository

import (
	"context"
	"errors"
	"fmt"

	"smartscan/internal/model"
	"smartscan/internal/supabase"
)

// SupabaseStudents implements StudentRepository over the hosted REST API.
type SupabaseStudents struct {
	client *supabase.Client
}

// NewSupabaseStudents creates the repository.
func NewSupabaseStudents(client *supabase.Client) *SupabaseStudents {
	return &SupabaseStudents{client: client}
}

// FindByQRCode matches the qr_code column exactly.
func (r *SupabaseStudents) FindByQRCode(ctx context.Context, code string) (*model.Student, error) {
	var st model.Student
	err := r.client.SelectOne(ctx, supabase.AccessToken(ctx), supabase.Query{
		Table:   "students",
		Select:  "id,name,email",
		Filters: []supabase.Filter{supabase.Eq("qr_code", code)},
	}, &st)
	if errors.Is(err, supabase.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find student by qr code: %w", err)
	}
	st.QRCode = code
	return &st, nil
}

// List returns every row of the students table.
func (r *SupabaseStudents) List(ctx context.Context) ([]model.Student, error) {
	var students []model.Student
	if err := r.client.Select(ctx, supabase.AccessToken(ctx), supabase.Query{Table: "students"}, &students); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// SupabaseAttendance implements AttendanceRepository over the hosted REST API.
type SupabaseAttendance struct {
	client *supabase.Client
}

// NewSupabaseAttendance creates the repository.
func NewSupabaseAttendance(client *supabase.Client) *SupabaseAttendance {
	return &SupabaseAttendance{client: client}
}

// InsertBatch relies on PostgREST executing a bulk insert as a single statement.
func (r *SupabaseAttendance) InsertBatch(ctx context.Context, records []model.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.client.Insert(ctx, supabase.AccessToken(ctx), "attendance", records)
}

// List returns attendance rows with their student embedded.
func (r *SupabaseAttendance) List(ctx context.Context) ([]model.AttendanceEntry, error) {
	var entries []model.AttendanceEntry
	err := r.client.Select(ctx, supabase.AccessToken(ctx), supabase.Query{
		Table:  "attendance",
		Select: "*,student:student_id(id,name,email,qr_code)",
	}, &entries)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return entries, nil
}
