package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// SQLite variants of the report statements. The college filter is bound
// twice because positional ? parameters cannot be reused.

func (q *sqliteQueries) EventPopularity(ctx context.Context, collegeID *int64) ([]model.EventPopularity, error) {
	id := nullableID(collegeID)
	rows, err := q.db.QueryContext(ctx, `
SELECT e.id, e.title, e.type, COUNT(r.id) AS registrations
  FROM events e
  LEFT JOIN registrations r ON r.event_id = e.id
 WHERE (? IS NULL OR e.college_id = ?)
 GROUP BY e.id
 ORDER BY registrations DESC, e.id ASC`, id, id)
	if err != nil {
		return nil, fmt.Errorf("event popularity: %w", classifySQLite(err))
	}
	return collectSQLite(rows, "event popularity", func(rows *sql.Rows) (model.EventPopularity, error) {
		var p model.EventPopularity
		err := rows.Scan(&p.EventID, &p.Title, &p.Type, &p.Registrations)
		return p, err
	})
}

func (q *sqliteQueries) TopActiveStudents(ctx context.Context, collegeID *int64, limit int) ([]model.ActiveStudent, error) {
	id := nullableID(collegeID)
	rows, err := q.db.QueryContext(ctx, `
SELECT s.id, s.name, COUNT(DISTINCT r.id) AS events_attended
  FROM students s
  JOIN registrations r ON r.student_id = s.id
  JOIN events e ON e.id = r.event_id
 WHERE (? IS NULL OR s.college_id = ?)
 GROUP BY s.id
 ORDER BY events_attended DESC, s.id ASC
 LIMIT ?`, id, id, limit)
	if err != nil {
		return nil, fmt.Errorf("top active students: %w", classifySQLite(err))
	}
	return collectSQLite(rows, "top active students", func(rows *sql.Rows) (model.ActiveStudent, error) {
		var a model.ActiveStudent
		err := rows.Scan(&a.StudentID, &a.Name, &a.EventsAttended)
		return a, err
	})
}

const sqliteFeedbackSelect = `
SELECT e.id, e.title, AVG(f.rating) AS average_rating, COUNT(f.id) AS feedback_count
  FROM events e
  LEFT JOIN feedback f ON f.event_id = e.id
 WHERE (? IS NULL OR e.college_id = ?)
 GROUP BY e.id`

func scanSQLiteFeedback(rows *sql.Rows) (model.EventFeedback, error) {
	var (
		f   model.EventFeedback
		avg sql.NullFloat64
	)
	if err := rows.Scan(&f.EventID, &f.Title, &avg, &f.FeedbackCount); err != nil {
		return f, err
	}
	if avg.Valid {
		f.AverageRating = &avg.Float64
	}
	return f, nil
}

func (q *sqliteQueries) AverageFeedback(ctx context.Context, collegeID *int64) ([]model.EventFeedback, error) {
	id := nullableID(collegeID)
	rows, err := q.db.QueryContext(ctx, sqliteFeedbackSelect+` ORDER BY e.id ASC`, id, id)
	if err != nil {
		return nil, fmt.Errorf("average feedback: %w", classifySQLite(err))
	}
	return collectSQLite(rows, "average feedback", scanSQLiteFeedback)
}

func (q *sqliteQueries) TopRatedEvents(ctx context.Context, collegeID *int64, limit int) ([]model.EventFeedback, error) {
	id := nullableID(collegeID)
	rows, err := q.db.QueryContext(ctx,
		sqliteFeedbackSelect+` ORDER BY average_rating DESC NULLS LAST, feedback_count DESC, e.id ASC LIMIT ?`,
		id, id, limit)
	if err != nil {
		return nil, fmt.Errorf("top rated events: %w", classifySQLite(err))
	}
	return collectSQLite(rows, "top rated events", scanSQLiteFeedback)
}

func (q *sqliteQueries) InactiveStudents(ctx context.Context, collegeID *int64) ([]model.InactiveStudent, error) {
	id := nullableID(collegeID)
	rows, err := q.db.QueryContext(ctx, `
SELECT s.id, s.name
  FROM students s
 WHERE NOT EXISTS (SELECT 1 FROM registrations r WHERE r.student_id = s.id)
   AND (? IS NULL OR s.college_id = ?)
 ORDER BY s.id ASC`, id, id)
	if err != nil {
		return nil, fmt.Errorf("inactive students: %w", classifySQLite(err))
	}
	return collectSQLite(rows, "inactive students", func(rows *sql.Rows) (model.InactiveStudent, error) {
		var s model.InactiveStudent
		err := rows.Scan(&s.StudentID, &s.Name)
		return s, err
	})
}
