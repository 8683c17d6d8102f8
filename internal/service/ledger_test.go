package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestCreateEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("admin creates active event", func(t *testing.T) {
		id, err := f.ledger.CreateEvent(ctx, admin, model.CreateEventRequest{
			Title: "AI Workshop", Type: "Workshop", Capacity: 100, CollegeID: f.collegeID,
		})
		require.NoError(t, err)

		ev, err := f.ledger.GetEvent(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "AI Workshop", ev.Title)
		assert.Equal(t, 100, ev.Capacity)
		assert.False(t, ev.IsCancelled)
		assert.Zero(t, ev.Registrations)
	})

	t.Run("college defaults to the first college", func(t *testing.T) {
		id, err := f.ledger.CreateEvent(ctx, admin, model.CreateEventRequest{
			Title: "HackWithInfy", Type: "Hackathon", Capacity: 200,
		})
		require.NoError(t, err)

		ev, err := f.ledger.GetEvent(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, DefaultCollegeID, ev.CollegeID)
	})

	t.Run("markup is stripped from title", func(t *testing.T) {
		id, err := f.ledger.CreateEvent(ctx, admin, model.CreateEventRequest{
			Title: "<b>Tech Talk</b>", Type: "Talk", Capacity: 5,
		})
		require.NoError(t, err)

		ev, err := f.ledger.GetEvent(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Tech Talk", ev.Title)
	})

	rejected := []struct {
		name string
		p    model.Principal
		req  model.CreateEventRequest
		want error
	}{
		{"student", studentPrincipal(1), model.CreateEventRequest{Title: "x", Type: "y", Capacity: 1}, ErrUnauthorized},
		{"anonymous", anonymous, model.CreateEventRequest{Title: "x", Type: "y", Capacity: 1}, ErrUnauthorized},
		{"empty title", admin, model.CreateEventRequest{Type: "y", Capacity: 1}, ErrInvalidArgument},
		{"markup only title", admin, model.CreateEventRequest{Title: "<i></i>", Type: "y", Capacity: 1}, ErrInvalidArgument},
		{"empty type", admin, model.CreateEventRequest{Title: "x", Capacity: 1}, ErrInvalidArgument},
		{"zero capacity", admin, model.CreateEventRequest{Title: "x", Type: "y"}, ErrInvalidArgument},
		{"negative capacity", admin, model.CreateEventRequest{Title: "x", Type: "y", Capacity: -3}, ErrInvalidArgument},
		{"unknown college", admin, model.CreateEventRequest{Title: "x", Type: "y", Capacity: 1, CollegeID: 999}, ErrNotFound},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CreateEvent(ctx, tt.p, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegisterStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addStudent(t, "Alice", f.collegeID)
	bob := f.addStudent(t, "Bob", f.collegeID)

	t.Run("admin registers on behalf", func(t *testing.T) {
		eventID := f.addEvent(t, "Workshop", 10, f.collegeID)
		id, err := f.ledger.RegisterStudent(ctx, admin, eventID, &alice)
		require.NoError(t, err)
		assert.Positive(t, id)
	})

	t.Run("student registers self", func(t *testing.T) {
		eventID := f.addEvent(t, "Workshop", 10, f.collegeID)
		_, err := f.ledger.RegisterStudent(ctx, studentPrincipal(bob), eventID, nil)
		require.NoError(t, err)

		regs, err := f.ledger.ListRegistrations(ctx, admin, eventID)
		require.NoError(t, err)
		require.Len(t, regs, 1)
		assert.Equal(t, bob, regs[0].StudentID)
	})

	t.Run("admin without student id", func(t *testing.T) {
		eventID := f.addEvent(t, "Workshop", 10, f.collegeID)
		_, err := f.ledger.RegisterStudent(ctx, admin, eventID, nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("anonymous", func(t *testing.T) {
		eventID := f.addEvent(t, "Workshop", 10, f.collegeID)
		_, err := f.ledger.RegisterStudent(ctx, anonymous, eventID, &alice)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := f.ledger.RegisterStudent(ctx, admin, 999, &alice)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown student", func(t *testing.T) {
		eventID := f.addEvent(t, "Workshop", 10, f.collegeID)
		ghost := int64(999)
		_, err := f.ledger.RegisterStudent(ctx, admin, eventID, &ghost)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate", func(t *testing.T) {
		eventID := f.addEvent(t, "Workshop", 10, f.collegeID)
		f.register(t, alice, eventID)

		_, err := f.ledger.RegisterStudent(ctx, admin, eventID, &alice)
		assert.ErrorIs(t, err, ErrAlreadyRegistered)
		assert.ErrorIs(t, err, ErrConstraintViolation)
		assert.Equal(t, 1, f.registrationCount(t, eventID))
	})

	t.Run("full", func(t *testing.T) {
		eventID := f.addEvent(t, "Workshop", 1, f.collegeID)
		f.register(t, alice, eventID)

		_, err := f.ledger.RegisterStudent(ctx, admin, eventID, &bob)
		assert.ErrorIs(t, err, ErrEventFull)
		assert.Equal(t, 1, f.registrationCount(t, eventID))
	})

	t.Run("cancelled", func(t *testing.T) {
		eventID := f.addEvent(t, "Workshop", 10, f.collegeID)
		require.NoError(t, f.ledger.CancelEvent(ctx, admin, eventID))

		_, err := f.ledger.RegisterStudent(ctx, admin, eventID, &alice)
		assert.ErrorIs(t, err, ErrEventCancelled)
		assert.Zero(t, f.registrationCount(t, eventID))
	})
}

func TestRegisterStudentLastSeatRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eventID := f.addEvent(t, "Last Seat", 1, f.collegeID)
	students := f.addStudents(t, 2)

	errs := make([]error, len(students))
	ids := make([]int64, len(students))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, sid := range students {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ids[i], errs[i] = f.ledger.RegisterStudent(ctx, admin, eventID, &sid)
		}()
	}
	close(start)
	wg.Wait()

	var won, full int
	for i, err := range errs {
		switch {
		case err == nil:
			won++
			assert.Positive(t, ids[i])
		case errors.Is(err, ErrEventFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, full)
	assert.Equal(t, 1, f.registrationCount(t, eventID))
}

func TestRegisterStudentNeverExceedsCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const capacity = 5
	eventID := f.addEvent(t, "Popular", capacity, f.collegeID)
	students := f.addStudents(t, 20)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		won  int
		errs []error
	)
	for _, sid := range students {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.RegisterStudent(ctx, admin, eventID, &sid)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, won)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrEventFull)
	}
	assert.Equal(t, capacity, f.registrationCount(t, eventID))
}

func TestRegisterStudentConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eventID := f.addEvent(t, "Workshop", 10, f.collegeID)
	alice := f.addStudent(t, "Alice", f.collegeID)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.ledger.RegisterStudent(ctx, studentPrincipal(alice), eventID, nil)
		}()
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyRegistered)
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, f.registrationCount(t, eventID))
}

func TestCancelEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addStudent(t, "Alice", f.collegeID)

	eventID := f.addEvent(t, "Workshop", 10, f.collegeID)
	f.register(t, alice, eventID)
	_, err := f.ledger.MarkAttendance(ctx, admin, alice, eventID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.ledger.CancelEvent(ctx, studentPrincipal(alice), eventID), ErrUnauthorized)
	assert.ErrorIs(t, f.ledger.CancelEvent(ctx, anonymous, eventID), ErrUnauthorized)
	assert.ErrorIs(t, f.ledger.CancelEvent(ctx, admin, 999), ErrNotFound)

	require.NoError(t, f.ledger.CancelEvent(ctx, admin, eventID))
	assert.ErrorIs(t, f.ledger.CancelEvent(ctx, admin, eventID), ErrAlreadyCancelled)

	ev, err := f.ledger.GetEvent(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, ev.IsCancelled)
	assert.Equal(t, 1, ev.Registrations, "registrations survive cancellation")
	assert.Equal(t, 1, ev.AttendanceCount, "attendance survives cancellation")
}

func TestMarkAttendance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addStudent(t, "Alice", f.collegeID)
	bob := f.addStudent(t, "Bob", f.collegeID)
	eventID := f.addEvent(t, "Workshop", 10, f.collegeID)
	f.register(t, alice, eventID)

	_, err := f.ledger.MarkAttendance(ctx, admin, bob, eventID)
	assert.ErrorIs(t, err, ErrNotRegistered)

	_, err = f.ledger.MarkAttendance(ctx, anonymous, alice, eventID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.ledger.MarkAttendance(ctx, admin, 0, eventID)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	id, err := f.ledger.MarkAttendance(ctx, studentPrincipal(alice), alice, eventID)
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = f.ledger.MarkAttendance(ctx, admin, alice, eventID)
	assert.ErrorIs(t, err, ErrAlreadyMarked)

	ev, err := f.ledger.GetEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, ev.AttendanceCount)
}

func TestMarkAttendanceConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addStudent(t, "Alice", f.collegeID)
	eventID := f.addEvent(t, "Workshop", 10, f.collegeID)
	f.register(t, alice, eventID)

	const attempts = 6
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.ledger.MarkAttendance(ctx, admin, alice, eventID)
		}()
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyMarked)
	}
	assert.Equal(t, 1, won)
}

func TestSubmitFeedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addStudent(t, "Alice", f.collegeID)
	eventID := f.addEvent(t, "Workshop", 10, f.collegeID)

	for _, rating := range []int{0, 6, -1} {
		_, err := f.ledger.SubmitFeedback(ctx, admin, model.FeedbackRequest{
			StudentID: alice, EventID: eventID, Rating: intPtr(rating),
		})
		assert.ErrorIs(t, err, ErrInvalidArgument, "rating %d", rating)
	}

	for rating := 1; rating <= 5; rating++ {
		_, err := f.ledger.SubmitFeedback(ctx, studentPrincipal(alice), model.FeedbackRequest{
			StudentID: alice, EventID: eventID, Rating: intPtr(rating),
		})
		assert.NoError(t, err, "rating %d", rating)
	}

	_, err := f.ledger.SubmitFeedback(ctx, admin, model.FeedbackRequest{StudentID: alice, EventID: eventID})
	assert.ErrorIs(t, err, ErrInvalidArgument, "missing rating")

	_, err = f.ledger.SubmitFeedback(ctx, admin, model.FeedbackRequest{EventID: eventID, Rating: intPtr(3)})
	assert.ErrorIs(t, err, ErrInvalidArgument, "missing student")

	_, err = f.ledger.SubmitFeedback(ctx, anonymous, model.FeedbackRequest{StudentID: alice, EventID: eventID, Rating: intPtr(3)})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.ledger.SubmitFeedback(ctx, admin, model.FeedbackRequest{StudentID: alice, EventID: 999, Rating: intPtr(3)})
	assert.ErrorIs(t, err, ErrNotFound)

	rows, err := f.reports.AverageFeedback(ctx, ReportFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].FeedbackCount, "repeat feedback is accepted without a registration")
	require.NotNil(t, rows[0].AverageRating)
	assert.InDelta(t, 3.0, *rows[0].AverageRating, 0.001)
}

func TestSubmitFeedbackCleansComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addStudent(t, "Alice", f.collegeID)
	eventID := f.addEvent(t, "Workshop", 10, f.collegeID)

	_, err := f.ledger.SubmitFeedback(ctx, admin, model.FeedbackRequest{
		StudentID: alice,
		EventID:   eventID,
		Rating:    intPtr(4),
		Comments:  "<script>x()</script>" + strings.Repeat("a", 400),
	})
	require.NoError(t, err)

	var comments string
	require.NoError(t, f.db.QueryRowContext(ctx, `SELECT comments FROM feedback`).Scan(&comments))
	assert.Equal(t, strings.Repeat("a", maxCommentLength), comments)
}

func TestListEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.addCollege(t, "Other College")
	alice := f.addStudent(t, "Alice", f.collegeID)

	first := f.addEvent(t, "First", 10, f.collegeID)
	f.addEvent(t, "Elsewhere", 10, other)
	f.register(t, alice, first)
	_, err := f.ledger.MarkAttendance(ctx, admin, alice, first)
	require.NoError(t, err)

	all, err := f.ledger.ListEvents(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := f.ledger.ListEvents(ctx, &f.collegeID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, first, scoped[0].ID)
	assert.Equal(t, 1, scoped[0].Registrations)
	assert.Equal(t, 1, scoped[0].AttendanceCount)

	_, err = f.ledger.GetEvent(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRegistrations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addStudent(t, "Alice", f.collegeID)
	eventID := f.addEvent(t, "Workshop", 10, f.collegeID)

	regs, err := f.ledger.ListRegistrations(ctx, admin, eventID)
	require.NoError(t, err)
	assert.NotNil(t, regs)
	assert.Empty(t, regs)

	f.register(t, alice, eventID)
	regs, err = f.ledger.ListRegistrations(ctx, admin, eventID)
	require.NoError(t, err)
	assert.Len(t, regs, 1)

	_, err = f.ledger.ListRegistrations(ctx, studentPrincipal(alice), eventID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.ledger.ListRegistrations(ctx, admin, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
