package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Mode is the attendance direction chosen by the operator before a submit.
type Mode string

const (
	ModeUnset   Mode = ""
	ModeTimeIn  Mode = "time_in"
	ModeTimeOut Mode = "time_out"
)

// ParseMode accepts "time_in"/"time_out" in any case; an empty string yields ModeUnset.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeUnset:
		return ModeUnset, nil
	case ModeTimeIn:
		return ModeTimeIn, nil
	case ModeTimeOut:
		return ModeTimeOut, nil
	}
	return ModeUnset, fmt.Errorf("unknown attendance mode %q", s)
}

// StatusPresent is the only status written by a scan session.
const StatusPresent = "present"

// Student is a row of the students table. It is owned by the backend and only read here.
type Student struct {
	ID      RowID  `json:"id"`
	QRCode  string `json:"qr_code,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact,omitempty"`
}

// AttendanceRecord is one row written to the attendance table.
// Column names follow the hosted schema: time holds the instant, type holds the mode.
type AttendanceRecord struct {
	StudentID RowID     `json:"student_id"`
	Date      Date      `json:"date"`
	Timestamp time.Time `json:"time"`
	Mode      Mode      `json:"type"`
	Status    string    `json:"status"`
}

// AttendanceEntry is an attendance row read back with its student joined.
type AttendanceEntry struct {
	ID        RowID    `json:"id"`
	StudentID RowID    `json:"student_id"`
	Date      Date     `json:"date"`
	Time      string   `json:"time"` // as stored; column types differ between deployments
	Mode      Mode     `json:"type"`
	Status    string   `json:"status"`
	Student   *Student `json:"student,omitempty"`
}

// RowID is a primary key that may be stored as text (uuid) or as a number.
type RowID string

func (id *RowID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = RowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("row id: %w", err)
	}
	*id = RowID(n.String())
	return nil
}

// User is the signed-in operator.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

const dateLayout = "2006-01-02"

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD. Longer ISO timestamps are cut to their date part.
func ParseDate(s string) (Date, error) {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date format: %w", err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
