package repository

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/jackc/pgx/v5"
)

// Each report is a single aggregate statement. Ties are broken by id so
// repeated calls return rows in the same order.

func (q *pgQueries) EventPopularity(ctx context.Context, collegeID *int64) ([]model.EventPopularity, error) {
	rows, err := q.db.Query(ctx, `
SELECT e.id, e.title, e.type, COUNT(r.id) AS registrations
  FROM events e
  LEFT JOIN registrations r ON r.event_id = e.id
 WHERE ($1::bigint IS NULL OR e.college_id = $1)
 GROUP BY e.id
 ORDER BY registrations DESC, e.id ASC`, collegeID)
	if err != nil {
		return nil, fmt.Errorf("event popularity: %w", classifyPg(err))
	}
	return collectPg(rows, "event popularity", func(row pgx.CollectableRow) (model.EventPopularity, error) {
		var p model.EventPopularity
		err := row.Scan(&p.EventID, &p.Title, &p.Type, &p.Registrations)
		return p, err
	})
}

func (q *pgQueries) TopActiveStudents(ctx context.Context, collegeID *int64, limit int) ([]model.ActiveStudent, error) {
	rows, err := q.db.Query(ctx, `
SELECT s.id, s.name, COUNT(DISTINCT r.id) AS events_attended
  FROM students s
  JOIN registrations r ON r.student_id = s.id
  JOIN events e ON e.id = r.event_id
 WHERE ($1::bigint IS NULL OR s.college_id = $1)
 GROUP BY s.id
 ORDER BY events_attended DESC, s.id ASC
 LIMIT $2`, collegeID, limit)
	if err != nil {
		return nil, fmt.Errorf("top active students: %w", classifyPg(err))
	}
	return collectPg(rows, "top active students", func(row pgx.CollectableRow) (model.ActiveStudent, error) {
		var a model.ActiveStudent
		err := row.Scan(&a.StudentID, &a.Name, &a.EventsAttended)
		return a, err
	})
}

const pgFeedbackSelect = `
SELECT e.id, e.title, AVG(f.rating)::float8 AS average_rating, COUNT(f.id) AS feedback_count
  FROM events e
  LEFT JOIN feedback f ON f.event_id = e.id
 WHERE ($1::bigint IS NULL OR e.college_id = $1)
 GROUP BY e.id`

func scanPgFeedback(row pgx.CollectableRow) (model.EventFeedback, error) {
	var f model.EventFeedback
	err := row.Scan(&f.EventID, &f.Title, &f.AverageRating, &f.FeedbackCount)
	return f, err
}

func (q *pgQueries) AverageFeedback(ctx context.Context, collegeID *int64) ([]model.EventFeedback, error) {
	rows, err := q.db.Query(ctx, pgFeedbackSelect+` ORDER BY e.id ASC`, collegeID)
	if err != nil {
		return nil, fmt.Errorf("average feedback: %w", classifyPg(err))
	}
	return collectPg(rows, "average feedback", scanPgFeedback)
}

func (q *pgQueries) TopRatedEvents(ctx context.Context, collegeID *int64, limit int) ([]model.EventFeedback, error) {
	rows, err := q.db.Query(ctx,
		pgFeedbackSelect+` ORDER BY average_rating DESC NULLS LAST, feedback_count DESC, e.id ASC LIMIT $2`,
		collegeID, limit)
	if err != nil {
		return nil, fmt.Errorf("top rated events: %w", classifyPg(err))
	}
	return collectPg(rows, "top rated events", scanPgFeedback)
}

func (q *pgQueries) InactiveStudents(ctx context.Context, collegeID *int64) ([]model.InactiveStudent, error) {
	rows, err := q.db.Query(ctx, `
SELECT s.id, s.name
  FROM students s
 WHERE NOT EXISTS (SELECT 1 FROM registrations r WHERE r.student_id = s.id)
   AND ($1::bigint IS NULL OR s.college_id = $1)
 ORDER BY s.id ASC`, collegeID)
	if err != nil {
		return nil, fmt.Errorf("inactive students: %w", classifyPg(err))
	}
	return collectPg(rows, "inactive students", func(row pgx.CollectableRow) (model.InactiveStudent, error) {
		var s model.InactiveStudent
		err := row.Scan(&s.StudentID, &s.Name)
		return s, err
	})
}

func collectPg[T any](rows pgx.Rows, what string, fn pgx.RowToFunc[T]) ([]T, error) {
	out, err := pgx.CollectRows(rows, fn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, classifyPg(err))
	}
	return out, nil
}
