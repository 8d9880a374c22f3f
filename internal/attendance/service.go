// Package attendance serves the student roster and the filtered attendance log.
package attendance

import (
	"context"
	"fmt"
	"strings"

	"smartscan/internal/model"
	"smartscan/internal/repository"
)

// Criteria narrows the attendance log. Zero fields match everything.
type Criteria struct {
	Date   model.Date
	Search string
	Type   string
}

// ParseCriteria builds criteria from query parameters.
func ParseCriteria(date, search, typ string) (Criteria, error) {
	c := Criteria{Search: strings.TrimSpace(search), Type: strings.TrimSpace(typ)}
	if date = strings.TrimSpace(date); date != "" {
		d, err := model.ParseDate(date)
		if err != nil {
			return Criteria{}, err
		}
		c.Date = d
	}
	return c, nil
}

// Match reports whether e passes every criterion. Entries without a joined student never
// match, even with an empty search.
func (c Criteria) Match(e model.AttendanceEntry) bool {
	if e.Student == nil {
		return false
	}
	if !c.Date.IsZero() && e.Date.String() != c.Date.String() {
		return false
	}
	if !strings.Contains(strings.ToLower(e.Student.Name), strings.ToLower(c.Search)) {
		return false
	}
	if c.Type != "" && !strings.EqualFold(string(e.Mode), c.Type) {
		return false
	}
	return true
}

// Filter returns the entries matching c, preserving order.
func Filter(entries []model.AttendanceEntry, c Criteria) []model.AttendanceEntry {
	out := make([]model.AttendanceEntry, 0, len(entries))
	for _, e := range entries {
		if c.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Service reads the roster and attendance log.
type Service struct {
	students   repository.StudentRepository
	attendance repository.AttendanceRepository
}

// NewService creates a service backed by the given repositories.
func NewService(students repository.StudentRepository, attendance repository.AttendanceRepository) *Service {
	return &Service{students: students, attendance: attendance}
}

// Students lists every registered student.
func (s *Service) Students(ctx context.Context) ([]model.Student, error) {
	list, err := s.students.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return list, nil
}

// Log returns the attendance rows matching c.
func (s *Service) Log(ctx context.Context, c Criteria) ([]model.AttendanceEntry, error) {
	entries, err := s.attendance.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return Filter(entries, c), nil
}
