package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRollback = errors.New("rollback")

// testStoreContract runs the behaviour every Store implementation must
// share. The store may already hold rows; assertions only use ids created
// here.
func testStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	var collegeID, aliceID, bobID, eventID int64
	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if collegeID, err = tx.InsertCollege(ctx, "Acharya Institute"); err != nil {
			return err
		}
		if aliceID, err = tx.InsertStudent(ctx, model.Student{Name: "Alice", CollegeID: collegeID}); err != nil {
			return err
		}
		if bobID, err = tx.InsertStudent(ctx, model.Student{Name: "Bob", CollegeID: collegeID}); err != nil {
			return err
		}
		eventID, err = tx.InsertEvent(ctx, model.Event{Title: "AI Workshop", Type: "Workshop", Capacity: 2, CollegeID: collegeID})
		return err
	})
	require.NoError(t, err)

	t.Run("get rows", func(t *testing.T) {
		err := store.Snapshot(ctx, func(ctx context.Context, r Reader) error {
			c, err := r.GetCollege(ctx, collegeID)
			require.NoError(t, err)
			assert.Equal(t, "Acharya Institute", c.Name)

			s, err := r.GetStudent(ctx, aliceID)
			require.NoError(t, err)
			assert.Equal(t, "Alice", s.Name)
			assert.Equal(t, collegeID, s.CollegeID)

			e, err := r.GetEvent(ctx, eventID)
			require.NoError(t, err)
			assert.Equal(t, 2, e.Capacity)
			assert.False(t, e.IsCancelled)

			_, err = r.GetEvent(ctx, eventID+1000)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = r.GetStudent(ctx, aliceID+1000)
			assert.ErrorIs(t, err, ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		var before, after int
		require.NoError(t, store.Snapshot(ctx, func(ctx context.Context, r Reader) error {
			var err error
			before, err = r.CountColleges(ctx)
			return err
		}))

		err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			if _, err := tx.InsertCollege(ctx, "Doomed"); err != nil {
				return err
			}
			return errRollback
		})
		assert.ErrorIs(t, err, errRollback)

		require.NoError(t, store.Snapshot(ctx, func(ctx context.Context, r Reader) error {
			var err error
			after, err = r.CountColleges(ctx)
			return err
		}))
		assert.Equal(t, before, after)
	})

	t.Run("registration is unique per pair", func(t *testing.T) {
		err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			e, err := tx.LockEvent(ctx, eventID)
			require.NoError(t, err)
			assert.Equal(t, eventID, e.ID)

			id, err := tx.InsertRegistration(ctx, aliceID, eventID)
			require.NoError(t, err)
			assert.Positive(t, id)

			exists, err := tx.RegistrationExists(ctx, aliceID, eventID)
			require.NoError(t, err)
			assert.True(t, exists)

			n, err := tx.CountRegistrations(ctx, eventID)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			return nil
		})
		require.NoError(t, err)

		err = store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			_, err := tx.InsertRegistration(ctx, aliceID, eventID)
			return err
		})
		assert.ErrorIs(t, err, ErrConstraint)
	})

	t.Run("attendance is unique per pair", func(t *testing.T) {
		err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			_, err := tx.InsertAttendance(ctx, aliceID, eventID)
			return err
		})
		require.NoError(t, err)

		err = store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			_, err := tx.InsertAttendance(ctx, aliceID, eventID)
			return err
		})
		assert.ErrorIs(t, err, ErrConstraint)
	})

	t.Run("feedback constraints", func(t *testing.T) {
		insert := func(f model.Feedback) error {
			return store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
				_, err := tx.InsertFeedback(ctx, f)
				return err
			})
		}
		require.NoError(t, insert(model.Feedback{StudentID: bobID, EventID: eventID, Rating: 5}))
		require.NoError(t, insert(model.Feedback{StudentID: bobID, EventID: eventID, Rating: 3, Comments: "again"}))
		assert.ErrorIs(t, insert(model.Feedback{StudentID: bobID, EventID: eventID, Rating: 9}), ErrConstraint)
		assert.ErrorIs(t, insert(model.Feedback{StudentID: bobID, EventID: eventID + 1000, Rating: 4}), ErrNotFound)
	})

	t.Run("summary counts", func(t *testing.T) {
		err := store.Snapshot(ctx, func(ctx context.Context, r Reader) error {
			es, err := r.GetEventSummary(ctx, eventID)
			require.NoError(t, err)
			assert.Equal(t, 1, es.Registrations)
			assert.Equal(t, 1, es.AttendanceCount)

			events, err := r.ListEvents(ctx, &collegeID)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, eventID, events[0].ID)

			regs, err := r.ListRegistrations(ctx, eventID)
			require.NoError(t, err)
			require.Len(t, regs, 1)
			assert.Equal(t, aliceID, regs[0].StudentID)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("reports", func(t *testing.T) {
		err := store.Snapshot(ctx, func(ctx context.Context, r Reader) error {
			pop, err := r.EventPopularity(ctx, &collegeID)
			require.NoError(t, err)
			require.Len(t, pop, 1)
			assert.Equal(t, 1, pop[0].Registrations)

			active, err := r.TopActiveStudents(ctx, &collegeID, 5)
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, aliceID, active[0].StudentID)

			avg, err := r.AverageFeedback(ctx, &collegeID)
			require.NoError(t, err)
			require.Len(t, avg, 1)
			require.NotNil(t, avg[0].AverageRating)
			assert.InDelta(t, 4.0, *avg[0].AverageRating, 0.001)
			assert.Equal(t, 2, avg[0].FeedbackCount)

			top, err := r.TopRatedEvents(ctx, &collegeID, 3)
			require.NoError(t, err)
			assert.Len(t, top, 1)

			inactive, err := r.InactiveStudents(ctx, &collegeID)
			require.NoError(t, err)
			require.Len(t, inactive, 1)
			assert.Equal(t, bobID, inactive[0].StudentID)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("cancel is one way", func(t *testing.T) {
		err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			return tx.SetEventCancelled(ctx, eventID)
		})
		require.NoError(t, err)

		err = store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			return tx.SetEventCancelled(ctx, eventID)
		})
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, store.Snapshot(ctx, func(ctx context.Context, r Reader) error {
			e, err := r.GetEvent(ctx, eventID)
			require.NoError(t, err)
			assert.True(t, e.IsCancelled)
			return nil
		}))
	})

	t.Run("users", func(t *testing.T) {
		err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			_, err := tx.InsertUser(ctx, model.UserCredential{
				Email: "alice@demo", PasswordHash: "hash", Role: model.RoleStudent, StudentID: &aliceID,
			})
			return err
		})
		require.NoError(t, err)

		err = store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			_, err := tx.InsertUser(ctx, model.UserCredential{Email: "alice@demo", PasswordHash: "x", Role: model.RoleAdmin})
			return err
		})
		assert.ErrorIs(t, err, ErrConstraint)

		require.NoError(t, store.Snapshot(ctx, func(ctx context.Context, r Reader) error {
			u, err := r.GetUserByEmail(ctx, "alice@demo")
			require.NoError(t, err)
			assert.Equal(t, model.RoleStudent, u.Role)
			require.NotNil(t, u.StudentID)
			assert.Equal(t, aliceID, *u.StudentID)

			_, err = r.GetUserByEmail(ctx, "nobody@demo")
			assert.ErrorIs(t, err, ErrNotFound)
			return nil
		}))
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
