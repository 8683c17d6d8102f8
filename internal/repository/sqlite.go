package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/mattn/go-sqlite3"
)

type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore is the SQLite-backed Store. The database handle must come
// from database.OpenSQLite so that transactions begin IMMEDIATE.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore constructs a SQLiteStore.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(context.Context, Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classifySQLite(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &sqliteQueries{db: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", classifySQLite(err))
	}
	return nil
}

// Snapshot holds one transaction open for the duration of fn; SQLite
// readers see a single consistent state for the life of a transaction.
func (s *SQLiteStore) Snapshot(ctx context.Context, fn func(context.Context, Reader) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", classifySQLite(err))
	}
	defer func() { _ = tx.Rollback() }()

	return fn(ctx, &sqliteQueries{db: tx})
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classifySQLite(err)
	}
	return nil
}

func (s *SQLiteStore) Close() {
	_ = s.db.Close()
}

type sqliteQueries struct {
	db sqlExecutor
}

func (q *sqliteQueries) GetCollege(ctx context.Context, id int64) (*model.College, error) {
	var c model.College
	err := q.db.QueryRowContext(ctx, `SELECT id, name FROM colleges WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, fmt.Errorf("get college: %w", classifySQLite(err))
	}
	return &c, nil
}

func (q *sqliteQueries) CountColleges(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM colleges`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count colleges: %w", classifySQLite(err))
	}
	return n, nil
}

func (q *sqliteQueries) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	var s model.Student
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, college_id FROM students WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.CollegeID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", classifySQLite(err))
	}
	return &s, nil
}

func (q *sqliteQueries) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event
	err := q.db.QueryRowContext(ctx,
		`SELECT id, title, type, capacity, is_cancelled, college_id FROM events WHERE id = ?`, id,
	).Scan(&e.ID, &e.Title, &e.Type, &e.Capacity, &e.IsCancelled, &e.CollegeID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", classifySQLite(err))
	}
	return &e, nil
}

// LockEvent is a plain read: the enclosing transaction began IMMEDIATE and
// already holds the database write lock.
func (q *sqliteQueries) LockEvent(ctx context.Context, id int64) (*model.Event, error) {
	return q.GetEvent(ctx, id)
}

const sqliteEventSummarySelect = `
SELECT e.id, e.title, e.type, e.capacity, e.is_cancelled, e.college_id,
       (SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id),
       (SELECT COUNT(*) FROM attendance a WHERE a.event_id = e.id)
  FROM events e`

func scanEventSummary(scan func(dest ...any) error) (model.EventSummary, error) {
	var es model.EventSummary
	err := scan(
		&es.ID, &es.Title, &es.Type, &es.Capacity, &es.IsCancelled, &es.CollegeID,
		&es.Registrations, &es.AttendanceCount,
	)
	return es, err
}

func (q *sqliteQueries) GetEventSummary(ctx context.Context, id int64) (*model.EventSummary, error) {
	es, err := scanEventSummary(q.db.QueryRowContext(ctx, sqliteEventSummarySelect+` WHERE e.id = ?`, id).Scan)
	if err != nil {
		return nil, fmt.Errorf("get event summary: %w", classifySQLite(err))
	}
	return &es, nil
}

func (q *sqliteQueries) ListEvents(ctx context.Context, collegeID *int64) ([]model.EventSummary, error) {
	id := nullableID(collegeID)
	rows, err := q.db.QueryContext(ctx,
		sqliteEventSummarySelect+` WHERE (? IS NULL OR e.college_id = ?) ORDER BY e.id`, id, id)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", classifySQLite(err))
	}
	return collectSQLite(rows, "list events", func(rows *sql.Rows) (model.EventSummary, error) {
		return scanEventSummary(rows.Scan)
	})
}

func (q *sqliteQueries) ListRegistrations(ctx context.Context, eventID int64) ([]model.Registration, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, student_id, event_id FROM registrations WHERE event_id = ? ORDER BY id ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", classifySQLite(err))
	}
	return collectSQLite(rows, "list registrations", func(rows *sql.Rows) (model.Registration, error) {
		var reg model.Registration
		err := rows.Scan(&reg.ID, &reg.StudentID, &reg.EventID)
		return reg, err
	})
}

func (q *sqliteQueries) RegistrationExists(ctx context.Context, studentID, eventID int64) (bool, error) {
	return q.exists(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE student_id = ? AND event_id = ?)`, studentID, eventID)
}

func (q *sqliteQueries) AttendanceExists(ctx context.Context, studentID, eventID int64) (bool, error) {
	return q.exists(ctx, `SELECT EXISTS (SELECT 1 FROM attendance WHERE student_id = ? AND event_id = ?)`, studentID, eventID)
}

func (q *sqliteQueries) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("check existence: %w", classifySQLite(err))
	}
	return ok, nil
}

func (q *sqliteQueries) CountRegistrations(ctx context.Context, eventID int64) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = ?`, eventID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", classifySQLite(err))
	}
	return n, nil
}

func (q *sqliteQueries) GetUserByEmail(ctx context.Context, email string) (*model.UserCredential, error) {
	var (
		u         model.UserCredential
		role      string
		studentID sql.NullInt64
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, student_id FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &studentID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", classifySQLite(err))
	}
	u.Role = model.Role(role)
	if studentID.Valid {
		u.StudentID = &studentID.Int64
	}
	return &u, nil
}

func (q *sqliteQueries) insert(ctx context.Context, what, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", what, classifySQLite(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", what, err)
	}
	return id, nil
}

func (q *sqliteQueries) InsertCollege(ctx context.Context, name string) (int64, error) {
	return q.insert(ctx, "college", `INSERT INTO colleges (name) VALUES (?)`, name)
}

func (q *sqliteQueries) InsertStudent(ctx context.Context, s model.Student) (int64, error) {
	return q.insert(ctx, "student", `INSERT INTO students (name, college_id) VALUES (?, ?)`, s.Name, s.CollegeID)
}

func (q *sqliteQueries) InsertUser(ctx context.Context, u model.UserCredential) (int64, error) {
	return q.insert(ctx, "user",
		`INSERT INTO users (email, password_hash, role, student_id) VALUES (?, ?, ?, ?)`,
		u.Email, u.PasswordHash, string(u.Role), nullableID(u.StudentID))
}

func (q *sqliteQueries) InsertEvent(ctx context.Context, e model.Event) (int64, error) {
	return q.insert(ctx, "event",
		`INSERT INTO events (title, type, capacity, is_cancelled, college_id) VALUES (?, ?, ?, ?, ?)`,
		e.Title, e.Type, e.Capacity, e.IsCancelled, e.CollegeID)
}

func (q *sqliteQueries) SetEventCancelled(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE events SET is_cancelled = 1 WHERE id = ? AND is_cancelled = 0`, id)
	if err != nil {
		return fmt.Errorf("cancel event: %w", classifySQLite(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel event: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("cancel event: %w", ErrNotFound)
	}
	return nil
}

func (q *sqliteQueries) InsertRegistration(ctx context.Context, studentID, eventID int64) (int64, error) {
	return q.insert(ctx, "registration",
		`INSERT INTO registrations (student_id, event_id) VALUES (?, ?)`, studentID, eventID)
}

func (q *sqliteQueries) InsertAttendance(ctx context.Context, studentID, eventID int64) (int64, error) {
	return q.insert(ctx, "attendance",
		`INSERT INTO attendance (student_id, event_id) VALUES (?, ?)`, studentID, eventID)
}

func (q *sqliteQueries) InsertFeedback(ctx context.Context, f model.Feedback) (int64, error) {
	return q.insert(ctx, "feedback",
		`INSERT INTO feedback (student_id, event_id, rating, comments) VALUES (?, ?, ?, ?)`,
		f.StudentID, f.EventID, f.Rating, f.Comments)
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func collectSQLite[T any](rows *sql.Rows, what string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", what, classifySQLite(err))
	}
	return out, nil
}

func classifySQLite(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		switch {
		case sqErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case sqErr.Code == sqlite3.ErrConstraint:
			return fmt.Errorf("%w: %w", ErrConstraint, err)
		case sqErr.Code == sqlite3.ErrBusy, sqErr.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
