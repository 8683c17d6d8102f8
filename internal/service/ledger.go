package service

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/sanitize"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	// DefaultCollegeID is used when a request names no college.
	DefaultCollegeID int64 = 1

	maxCommentLength = 300
)

// LedgerService owns every write that must keep the ledger invariants:
// capacity, one registration and one attendance per (student, event),
// attendance only after registration, one-way cancellation and ratings in
// 1..5. Each operation is one store transaction; a rejected operation
// leaves the store unchanged.
type LedgerService struct {
	store     repository.Store
	logger    zerolog.Logger
	validator *validator.Validate
}

// NewLedgerService constructs a LedgerService with its dependencies.
func NewLedgerService(store repository.Store, logger zerolog.Logger) *LedgerService {
	return &LedgerService{
		store:     store,
		logger:    logger.With().Str("component", "ledger").Logger(),
		validator: newValidator(),
	}
}

// CreateEvent validates the request and inserts an active event.
func (s *LedgerService) CreateEvent(ctx context.Context, p model.Principal, req model.CreateEventRequest) (id int64, err error) {
	defer func() { record(s.logger, "create_event", err) }()

	if !auth.CanPerform(p, auth.OpCreateEvent) {
		return 0, errAdminOnly
	}

	req.Title = sanitize.Text(req.Title)
	req.Type = sanitize.Text(req.Type)
	if req.CollegeID == 0 {
		req.CollegeID = DefaultCollegeID
	}
	if err := validateStruct(s.validator, req); err != nil {
		return 0, err
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetCollege(ctx, req.CollegeID); err != nil {
			return notFound(err, "college %d", req.CollegeID)
		}
		newID, err := tx.InsertEvent(ctx, model.Event{
			Title:     req.Title,
			Type:      req.Type,
			Capacity:  req.Capacity,
			CollegeID: req.CollegeID,
		})
		if err != nil {
			return err
		}
		id = newID
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}

	s.logger.Info().
		Int64("event_id", id).
		Int64("college_id", req.CollegeID).
		Int("capacity", req.Capacity).
		Msg("event created")
	return id, nil
}

// RegisterStudent registers a student for an event.
//
// The event row is locked before anything is read, so two registrations
// racing for the last seat are serialised: the second one sees the first
// one's row and fails with ErrEventFull (or ErrAlreadyRegistered for the
// same student). The unique (student_id, event_id) constraint backs up the
// duplicate check.
func (s *LedgerService) RegisterStudent(ctx context.Context, p model.Principal, eventID int64, studentID *int64) (regID int64, err error) {
	defer func() { record(s.logger, "register_student", err) }()

	if !auth.CanPerform(p, auth.OpRegisterStudent) {
		return 0, ErrUnauthorized
	}

	sid, ok := resolveStudent(p, studentID)
	if !ok {
		return 0, invalid("student_id required")
	}
	if eventID <= 0 {
		return 0, invalid("event_id required")
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		event, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return notFound(err, "event %d", eventID)
		}
		if event.IsCancelled {
			return ErrEventCancelled
		}
		if _, err := tx.GetStudent(ctx, sid); err != nil {
			return notFound(err, "student %d", sid)
		}

		registered, err := tx.RegistrationExists(ctx, sid, eventID)
		if err != nil {
			return err
		}
		if registered {
			return ErrAlreadyRegistered
		}

		count, err := tx.CountRegistrations(ctx, eventID)
		if err != nil {
			return err
		}
		if event.IsFull(count) {
			return ErrEventFull
		}

		newID, err := tx.InsertRegistration(ctx, sid, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrConstraint) {
				return ErrAlreadyRegistered
			}
			return err
		}
		regID = newID
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}

	s.logger.Info().
		Int64("registration_id", regID).
		Int64("event_id", eventID).
		Int64("student_id", sid).
		Msg("student registered")
	return regID, nil
}

// resolveStudent picks the student to register: an explicit id wins,
// otherwise a student principal registers themselves.
func resolveStudent(p model.Principal, studentID *int64) (int64, bool) {
	if studentID != nil && *studentID > 0 {
		return *studentID, true
	}
	if p.Role == model.RoleStudent && p.StudentID != nil && *p.StudentID > 0 {
		return *p.StudentID, true
	}
	return 0, false
}

// CancelEvent moves an event to the terminal cancelled state. Existing
// registrations and attendance are kept.
func (s *LedgerService) CancelEvent(ctx context.Context, p model.Principal, eventID int64) (err error) {
	defer func() { record(s.logger, "cancel_event", err) }()

	if !auth.CanPerform(p, auth.OpCancelEvent) {
		return errAdminOnly
	}
	if eventID <= 0 {
		return invalid("event_id required")
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		event, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return notFound(err, "event %d", eventID)
		}
		if event.IsCancelled {
			return ErrAlreadyCancelled
		}
		return tx.SetEventCancelled(ctx, eventID)
	})
	if err != nil {
		return translate(err)
	}

	s.logger.Info().Int64("event_id", eventID).Msg("event cancelled")
	return nil
}

// MarkAttendance records that a registered student attended an event.
func (s *LedgerService) MarkAttendance(ctx context.Context, p model.Principal, studentID, eventID int64) (attID int64, err error) {
	defer func() { record(s.logger, "mark_attendance", err) }()

	if !auth.CanPerform(p, auth.OpMarkAttendance) {
		return 0, ErrUnauthorized
	}
	if studentID <= 0 || eventID <= 0 {
		return 0, invalid("student_id and event_id required")
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		registered, err := tx.RegistrationExists(ctx, studentID, eventID)
		if err != nil {
			return err
		}
		if !registered {
			return ErrNotRegistered
		}

		marked, err := tx.AttendanceExists(ctx, studentID, eventID)
		if err != nil {
			return err
		}
		if marked {
			return ErrAlreadyMarked
		}

		newID, err := tx.InsertAttendance(ctx, studentID, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrConstraint) {
				return ErrAlreadyMarked
			}
			return err
		}
		attID = newID
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}

	s.logger.Info().
		Int64("attendance_id", attID).
		Int64("event_id", eventID).
		Int64("student_id", studentID).
		Msg("attendance marked")
	return attID, nil
}

// SubmitFeedback stores a rating. Repeat feedback for the same pair and
// feedback without a registration are both accepted.
func (s *LedgerService) SubmitFeedback(ctx context.Context, p model.Principal, req model.FeedbackRequest) (fbID int64, err error) {
	defer func() { record(s.logger, "submit_feedback", err) }()

	if !auth.CanPerform(p, auth.OpSubmitFeedback) {
		return 0, ErrUnauthorized
	}
	if req.StudentID <= 0 || req.EventID <= 0 || req.Rating == nil {
		return 0, invalid("student_id, event_id, rating required")
	}
	if *req.Rating < 1 || *req.Rating > 5 {
		return 0, invalid("rating must be 1-5")
	}

	fb := model.Feedback{
		StudentID: req.StudentID,
		EventID:   req.EventID,
		Rating:    *req.Rating,
		Comments:  sanitize.Truncate(sanitize.Text(req.Comments), maxCommentLength),
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		newID, err := tx.InsertFeedback(ctx, fb)
		if err != nil {
			return notFound(err, "student %d or event %d", fb.StudentID, fb.EventID)
		}
		fbID = newID
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}

	s.logger.Info().
		Int64("feedback_id", fbID).
		Int64("event_id", fb.EventID).
		Int("rating", fb.Rating).
		Msg("feedback submitted")
	return fbID, nil
}

// ListEvents returns events with their registration and attendance counts.
func (s *LedgerService) ListEvents(ctx context.Context, collegeID *int64) ([]model.EventSummary, error) {
	var events []model.EventSummary
	err := s.store.Snapshot(ctx, func(ctx context.Context, r repository.Reader) error {
		var err error
		events, err = r.ListEvents(ctx, collegeID)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return orEmpty(events), nil
}

// GetEvent returns a single event with its counts.
func (s *LedgerService) GetEvent(ctx context.Context, eventID int64) (*model.EventSummary, error) {
	if eventID <= 0 {
		return nil, invalid("event id is required")
	}
	var event *model.EventSummary
	err := s.store.Snapshot(ctx, func(ctx context.Context, r repository.Reader) error {
		var err error
		event, err = r.GetEventSummary(ctx, eventID)
		return notFound(err, "event %d", eventID)
	})
	if err != nil {
		return nil, translate(err)
	}
	return event, nil
}

// ListRegistrations returns all registrations for an event.
func (s *LedgerService) ListRegistrations(ctx context.Context, p model.Principal, eventID int64) ([]model.Registration, error) {
	if !auth.CanPerform(p, auth.OpListRegistrations) {
		return nil, errAdminOnly
	}
	var regs []model.Registration
	err := s.store.Snapshot(ctx, func(ctx context.Context, r repository.Reader) error {
		if _, err := r.GetEvent(ctx, eventID); err != nil {
			return notFound(err, "event %d", eventID)
		}
		var err error
		regs, err = r.ListRegistrations(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return orEmpty(regs), nil
}
