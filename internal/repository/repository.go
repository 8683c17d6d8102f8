// Package repository implements the entity store behind the ledger.
// It uses pgx and database/sql directly (no ORM); every operation runs
// inside a unit of work handed out by a Store.
package repository

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// ErrNotFound is returned when a requested row does not exist, or when an
// insert references a row that does not exist.
var ErrNotFound = errors.New("not found")

// ErrConstraint is returned when a write violates a unique or check
// constraint.
var ErrConstraint = errors.New("constraint violation")

// ErrUnavailable is returned for transient store failures (lost
// connections, timeouts, lock contention). Callers may retry.
var ErrUnavailable = errors.New("store unavailable")

// Store is the handle every ledger and report operation runs against.
type Store interface {
	// WithTx runs fn inside one read-write transaction. Any error returned by
	// fn rolls the transaction back.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Snapshot runs fn inside a read-only transaction; every query made
	// through r observes the same committed state.
	Snapshot(ctx context.Context, fn func(ctx context.Context, r Reader) error) error

	Ping(ctx context.Context) error
	Close()
}

// Reader is the read side of a unit of work.
type Reader interface {
	GetCollege(ctx context.Context, id int64) (*model.College, error)
	CountColleges(ctx context.Context) (int, error)
	GetStudent(ctx context.Context, id int64) (*model.Student, error)
	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	GetEventSummary(ctx context.Context, id int64) (*model.EventSummary, error)
	ListEvents(ctx context.Context, collegeID *int64) ([]model.EventSummary, error)
	ListRegistrations(ctx context.Context, eventID int64) ([]model.Registration, error)
	RegistrationExists(ctx context.Context, studentID, eventID int64) (bool, error)
	AttendanceExists(ctx context.Context, studentID, eventID int64) (bool, error)
	CountRegistrations(ctx context.Context, eventID int64) (int, error)
	GetUserByEmail(ctx context.Context, email string) (*model.UserCredential, error)

	EventPopularity(ctx context.Context, collegeID *int64) ([]model.EventPopularity, error)
	TopActiveStudents(ctx context.Context, collegeID *int64, limit int) ([]model.ActiveStudent, error)
	AverageFeedback(ctx context.Context, collegeID *int64) ([]model.EventFeedback, error)
	TopRatedEvents(ctx context.Context, collegeID *int64, limit int) ([]model.EventFeedback, error)
	InactiveStudents(ctx context.Context, collegeID *int64) ([]model.InactiveStudent, error)
}

// Tx is the read-write side of a unit of work.
type Tx interface {
	Reader

	// LockEvent loads an event and holds its row lock until the transaction
	// ends, serialising concurrent writers on the same event.
	LockEvent(ctx context.Context, id int64) (*model.Event, error)

	InsertCollege(ctx context.Context, name string) (int64, error)
	InsertStudent(ctx context.Context, s model.Student) (int64, error)
	InsertUser(ctx context.Context, u model.UserCredential) (int64, error)
	InsertEvent(ctx context.Context, e model.Event) (int64, error)
	SetEventCancelled(ctx context.Context, id int64) error
	InsertRegistration(ctx context.Context, studentID, eventID int64) (int64, error)
	InsertAttendance(ctx context.Context, studentID, eventID int64) (int64, error)
	InsertFeedback(ctx context.Context, f model.Feedback) (int64, error)
}
