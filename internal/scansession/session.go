// Package scansession turns a stream of decoded QR payloads into a deduplicated roster of
// students and submits that roster as one dated attendance batch.
package scansession

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"smartscan/internal/metrics"
	"smartscan/internal/model"
	"smartscan/internal/repository"
	"smartscan/internal/supabase"
)

var (
	// ErrSubmitDisabled is returned when the roster is empty or no mode is selected.
	ErrSubmitDisabled = errors.New("submit disabled: roster empty or attendance mode unset")
	// ErrSubmitInFlight is returned while an earlier submit has not settled.
	ErrSubmitInFlight = errors.New("submit already in progress")
	// ErrAlreadyScanning is returned by Start when a decoder is already attached.
	ErrAlreadyScanning = errors.New("scan session already running")
	// ErrCameraUnavailable wraps decoder start failures; the session is not started.
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// Messages shown to the operator.
const (
	MsgNoPayload       = "No QR code data found."
	MsgStudentNotFound = "Student not found"
	MsgSubmitFailed    = "Error recording attendance"
	MsgCameraBlocked   = "Camera is blocked or not accessible. Please allow camera in your browser permissions and Reload."
)

// State is the coarse session state.
type State string

const (
	StateIdle       State = "idle"
	StateScanning   State = "scanning"
	StateSubmitting State = "submitting"
)

// Outcome describes what OnDecode did with a payload.
type Outcome string

const (
	OutcomeAdded         Outcome = "added"
	OutcomeEmpty         Outcome = "empty"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeResolving     Outcome = "resolving"
	OutcomeAlreadyListed Outcome = "already_listed"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeLookupFailed  Outcome = "lookup_failed"
)

// RosterEntry is a student waiting to be submitted, with the code that identified them.
type RosterEntry struct {
	Student model.Student `json:"student"`
	Code    string        `json:"code"`
	AddedAt time.Time     `json:"added_at"`
}

// Snapshot is a consistent copy of the session for display.
type Snapshot struct {
	State       State          `json:"state"`
	Mode        model.Mode     `json:"mode"`
	Roster      []RosterEntry  `json:"roster"`
	Processed   []string       `json:"processed"`
	Error       string         `json:"error,omitempty"`
	LastScanned string         `json:"last_scanned,omitempty"`
	Current     *model.Student `json:"current,omitempty"`
	Submitting  bool           `json:"submitting"`
	CanSubmit   bool           `json:"can_submit"`
}

// Session owns the scan state of one operator.
type Session struct {
	students   repository.StudentRepository
	attendance repository.AttendanceRepository

	now           func() time.Time
	debounce      time.Duration
	submitTimeout time.Duration

	mu          sync.Mutex
	mode        model.Mode
	processed   map[string]struct{}
	resolving   map[string]struct{}
	roster      []RosterEntry
	errMsg      string
	lastScanned string
	current     *model.Student
	submitting  bool
	token       string

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// WithDebounce sets the quiet interval applied to decoder output.
func WithDebounce(d time.Duration) Option { return func(s *Session) { s.debounce = d } }

// WithSubmitTimeout bounds the batch insert; zero disables the bound.
func WithSubmitTimeout(d time.Duration) Option { return func(s *Session) { s.submitTimeout = d } }

// WithMode preselects the attendance mode for the first batch.
func WithMode(m model.Mode) Option { return func(s *Session) { s.mode = m } }

// New creates an idle session.
func New(students repository.StudentRepository, attendance repository.AttendanceRepository, opts ...Option) *Session {
	s := &Session{
		students:   students,
		attendance: attendance,
		now:        time.Now,
		debounce:   500 * time.Millisecond,
		processed:  make(map[string]struct{}),
		resolving:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnDecode resolves a decoded payload and adds the student to the roster. Failures are
// logged and kept as the session error message; they never propagate to the caller.
// Only successful resolutions mark a payload processed, so a failed code is retried on its
// next scan.
func (s *Session) OnDecode(ctx context.Context, payload string) Outcome {
	s.mu.Lock()
	s.lastScanned = payload
	if payload == "" {
		s.errMsg = MsgNoPayload
		s.mu.Unlock()
		return OutcomeEmpty
	}
	if _, ok := s.processed[payload]; ok {
		s.mu.Unlock()
		metrics.DuplicateScans.Inc()
		return OutcomeDuplicate
	}
	if _, ok := s.resolving[payload]; ok {
		s.mu.Unlock()
		metrics.DuplicateScans.Inc()
		return OutcomeResolving
	}
	s.resolving[payload] = struct{}{}
	ctx = s.withTokenLocked(ctx)
	s.mu.Unlock()

	student, err := s.students.FindByQRCode(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resolving, payload)

	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.Lookups.WithLabelValues("not_found").Inc()
		log.Printf("scan %q: no student for code", payload)
		s.errMsg = MsgStudentNotFound
		s.current = nil
		return OutcomeNotFound
	case err != nil:
		metrics.Lookups.WithLabelValues("error").Inc()
		log.Printf("scan %q: lookup failed: %v", payload, err)
		if ctx.Err() == nil {
			s.errMsg = err.Error()
			s.current = nil
		}
		return OutcomeLookupFailed
	}
	metrics.Lookups.WithLabelValues("found").Inc()

	for _, e := range s.roster {
		if e.Student.ID == student.ID {
			return OutcomeAlreadyListed
		}
	}
	s.roster = append(s.roster, RosterEntry{Student: *student, Code: payload, AddedAt: s.now()})
	s.processed[payload] = struct{}{}
	s.errMsg = ""
	s.current = student
	metrics.RosterSize.Set(float64(len(s.roster)))
	return OutcomeAdded
}

// SetAccessToken records the operator's most recent access token. Lookups and inserts issued
// afterwards run with it, including those made by a runner started under an older token.
// An empty token leaves the caller's context untouched.
func (s *Session) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Session) withTokenLocked(ctx context.Context) context.Context {
	if s.token == "" {
		return ctx
	}
	return supabase.WithAccessToken(ctx, s.token)
}

// SetMode selects the attendance mode for the next submit. ModeUnset disables submit.
func (s *Session) SetMode(m model.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// CanSubmit reports whether SubmitBatch would issue a write.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSubmitLocked()
}

func (s *Session) canSubmitLocked() bool {
	return !s.submitting && len(s.roster) > 0 && s.mode != model.ModeUnset
}

// InFlight reports whether a submit is outstanding.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// SubmitBatch writes one present record per roster entry as a single batch insert.
// On success the submitted students and their codes leave the roster and the processed set
// together and the mode is cleared. On failure nothing is reset and the call can be retried.
func (s *Session) SubmitBatch(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return 0, ErrSubmitInFlight
	}
	if len(s.roster) == 0 || s.mode == model.ModeUnset {
		s.mu.Unlock()
		return 0, ErrSubmitDisabled
	}
	batch := make([]RosterEntry, len(s.roster))
	copy(batch, s.roster)
	mode := s.mode
	s.submitting = true
	ctx = s.withTokenLocked(ctx)
	s.mu.Unlock()

	now := s.now()
	records := make([]model.AttendanceRecord, 0, len(batch))
	for _, e := range batch {
		records = append(records, model.AttendanceRecord{
			StudentID: e.Student.ID,
			Date:      model.DateOf(now),
			Timestamp: now,
			Mode:      mode,
			Status:    model.StatusPresent,
		})
	}

	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
	}
	err := s.attendance.InsertBatch(ctx, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil {
		metrics.Submits.WithLabelValues("error").Inc()
		log.Printf("submit %d attendance records: %v", len(records), err)
		s.errMsg = MsgSubmitFailed
		return 0, fmt.Errorf("submit attendance: %w", err)
	}

	submitted := make(map[model.RowID]struct{}, len(batch))
	for _, e := range batch {
		submitted[e.Student.ID] = struct{}{}
		delete(s.processed, e.Code)
	}
	kept := s.roster[:0]
	for _, e := range s.roster {
		if _, ok := submitted[e.Student.ID]; !ok {
			kept = append(kept, e)
		}
	}
	s.roster = kept
	s.mode = model.ModeUnset
	s.errMsg = ""
	s.current = nil
	metrics.Submits.WithLabelValues("ok").Inc()
	metrics.RecordsWritten.Add(float64(len(records)))
	metrics.RosterSize.Set(float64(len(s.roster)))
	log.Printf("recorded %d %s attendance records", len(records), mode)
	return len(records), nil
}

// Reset discards the roster, processed codes, mode and error together.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = nil
	s.processed = make(map[string]struct{})
	s.mode = model.ModeUnset
	s.errMsg = ""
	s.current = nil
	s.lastScanned = ""
	metrics.RosterSize.Set(0)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:       s.stateLocked(),
		Mode:        s.mode,
		Roster:      append([]RosterEntry{}, s.roster...),
		Processed:   make([]string, 0, len(s.processed)),
		Error:       s.errMsg,
		LastScanned: s.lastScanned,
		Submitting:  s.submitting,
		CanSubmit:   s.canSubmitLocked(),
	}
	for code := range s.processed {
		snap.Processed = append(snap.Processed, code)
	}
	if s.current != nil {
		cur := *s.current
		snap.Current = &cur
	}
	return snap
}

// State reports the coarse session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.submitting:
		return StateSubmitting
	case s.cancel != nil:
		return StateScanning
	default:
		return StateIdle
	}
}
