package repository

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// WithTx runs fn in a READ COMMITTED transaction. Invariants that depend on
// a check followed by an insert are protected by LockEvent and by the
// unique constraints on (student_id, event_id).
func (s *PostgresStore) WithTx(ctx context.Context, fn func(context.Context, Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classifyPg(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx, &pgQueries{db: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", classifyPg(err))
	}
	return nil
}

// Snapshot runs fn in a REPEATABLE READ, READ ONLY transaction so that
// several report queries agree with each other.
func (s *PostgresStore) Snapshot(ctx context.Context, fn func(context.Context, Reader) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", classifyPg(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	return fn(ctx, &pgQueries{db: tx})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return classifyPg(err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// pgQueries implements Tx on top of a pgx transaction.
type pgQueries struct {
	db pgExecutor
}

func (q *pgQueries) GetCollege(ctx context.Context, id int64) (*model.College, error) {
	var c model.College
	err := q.db.QueryRow(ctx, `SELECT id, name FROM colleges WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, fmt.Errorf("get college: %w", classifyPg(err))
	}
	return &c, nil
}

func (q *pgQueries) CountColleges(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM colleges`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count colleges: %w", classifyPg(err))
	}
	return n, nil
}

func (q *pgQueries) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	var s model.Student
	err := q.db.QueryRow(ctx,
		`SELECT id, name, college_id FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.CollegeID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", classifyPg(err))
	}
	return &s, nil
}

const pgEventColumns = `id, title, type, capacity, is_cancelled, college_id`

func (q *pgQueries) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	return q.scanEvent(ctx, `SELECT `+pgEventColumns+` FROM events WHERE id = $1`, id)
}

// LockEvent uses SELECT ... FOR UPDATE: a second transaction locking the
// same event blocks until the first commits or rolls back, and then reads
// the committed registration count.
func (q *pgQueries) LockEvent(ctx context.Context, id int64) (*model.Event, error) {
	return q.scanEvent(ctx, `SELECT `+pgEventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
}

func (q *pgQueries) scanEvent(ctx context.Context, sql string, id int64) (*model.Event, error) {
	var e model.Event
	err := q.db.QueryRow(ctx, sql, id).
		Scan(&e.ID, &e.Title, &e.Type, &e.Capacity, &e.IsCancelled, &e.CollegeID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", classifyPg(err))
	}
	return &e, nil
}

const pgEventSummarySelect = `
SELECT e.id, e.title, e.type, e.capacity, e.is_cancelled, e.college_id,
       (SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id),
       (SELECT COUNT(*) FROM attendance a WHERE a.event_id = e.id)
  FROM events e`

func (q *pgQueries) GetEventSummary(ctx context.Context, id int64) (*model.EventSummary, error) {
	var es model.EventSummary
	err := q.db.QueryRow(ctx, pgEventSummarySelect+` WHERE e.id = $1`, id).Scan(
		&es.ID, &es.Title, &es.Type, &es.Capacity, &es.IsCancelled, &es.CollegeID,
		&es.Registrations, &es.AttendanceCount,
	)
	if err != nil {
		return nil, fmt.Errorf("get event summary: %w", classifyPg(err))
	}
	return &es, nil
}

func (q *pgQueries) ListEvents(ctx context.Context, collegeID *int64) ([]model.EventSummary, error) {
	rows, err := q.db.Query(ctx,
		pgEventSummarySelect+` WHERE ($1::bigint IS NULL OR e.college_id = $1) ORDER BY e.id`,
		collegeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", classifyPg(err))
	}
	defer rows.Close()

	var events []model.EventSummary
	for rows.Next() {
		var es model.EventSummary
		if err := rows.Scan(
			&es.ID, &es.Title, &es.Type, &es.Capacity, &es.IsCancelled, &es.CollegeID,
			&es.Registrations, &es.AttendanceCount,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, es)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", classifyPg(err))
	}
	return events, nil
}

func (q *pgQueries) ListRegistrations(ctx context.Context, eventID int64) ([]model.Registration, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, student_id, event_id
		   FROM registrations
		  WHERE event_id = $1
		  ORDER BY id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", classifyPg(err))
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.StudentID, &reg.EventID); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", classifyPg(err))
	}
	return regs, nil
}

func (q *pgQueries) RegistrationExists(ctx context.Context, studentID, eventID int64) (bool, error) {
	return q.exists(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE student_id = $1 AND event_id = $2)`, studentID, eventID)
}

func (q *pgQueries) AttendanceExists(ctx context.Context, studentID, eventID int64) (bool, error) {
	return q.exists(ctx, `SELECT EXISTS (SELECT 1 FROM attendance WHERE student_id = $1 AND event_id = $2)`, studentID, eventID)
}

func (q *pgQueries) exists(ctx context.Context, sql string, args ...any) (bool, error) {
	var ok bool
	if err := q.db.QueryRow(ctx, sql, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("check existence: %w", classifyPg(err))
	}
	return ok, nil
}

func (q *pgQueries) CountRegistrations(ctx context.Context, eventID int64) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", classifyPg(err))
	}
	return n, nil
}

func (q *pgQueries) GetUserByEmail(ctx context.Context, email string) (*model.UserCredential, error) {
	var (
		u    model.UserCredential
		role string
	)
	err := q.db.QueryRow(ctx,
		`SELECT id, email, password_hash, role, student_id FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", classifyPg(err))
	}
	u.Role = model.Role(role)
	return &u, nil
}

func (q *pgQueries) insertReturningID(ctx context.Context, what, sql string, args ...any) (int64, error) {
	var id int64
	if err := q.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert %s: %w", what, classifyPg(err))
	}
	return id, nil
}

func (q *pgQueries) InsertCollege(ctx context.Context, name string) (int64, error) {
	return q.insertReturningID(ctx, "college",
		`INSERT INTO colleges (name) VALUES ($1) RETURNING id`, name)
}

func (q *pgQueries) InsertStudent(ctx context.Context, s model.Student) (int64, error) {
	return q.insertReturningID(ctx, "student",
		`INSERT INTO students (name, college_id) VALUES ($1, $2) RETURNING id`, s.Name, s.CollegeID)
}

func (q *pgQueries) InsertUser(ctx context.Context, u model.UserCredential) (int64, error) {
	return q.insertReturningID(ctx, "user",
		`INSERT INTO users (email, password_hash, role, student_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Email, u.PasswordHash, string(u.Role), u.StudentID)
}

func (q *pgQueries) InsertEvent(ctx context.Context, e model.Event) (int64, error) {
	return q.insertReturningID(ctx, "event",
		`INSERT INTO events (title, type, capacity, is_cancelled, college_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		e.Title, e.Type, e.Capacity, e.IsCancelled, e.CollegeID)
}

// SetEventCancelled only ever moves is_cancelled from false to true.
func (q *pgQueries) SetEventCancelled(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE events SET is_cancelled = TRUE WHERE id = $1 AND is_cancelled = FALSE`, id)
	if err != nil {
		return fmt.Errorf("cancel event: %w", classifyPg(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cancel event: %w", ErrNotFound)
	}
	return nil
}

func (q *pgQueries) InsertRegistration(ctx context.Context, studentID, eventID int64) (int64, error) {
	return q.insertReturningID(ctx, "registration",
		`INSERT INTO registrations (student_id, event_id) VALUES ($1, $2) RETURNING id`, studentID, eventID)
}

func (q *pgQueries) InsertAttendance(ctx context.Context, studentID, eventID int64) (int64, error) {
	return q.insertReturningID(ctx, "attendance",
		`INSERT INTO attendance (student_id, event_id) VALUES ($1, $2) RETURNING id`, studentID, eventID)
}

func (q *pgQueries) InsertFeedback(ctx context.Context, f model.Feedback) (int64, error) {
	return q.insertReturningID(ctx, "feedback",
		`INSERT INTO feedback (student_id, event_id, rating, comments) VALUES ($1, $2, $3, $4) RETURNING id`,
		f.StudentID, f.EventID, f.Rating, f.Comments)
}

// classifyPg maps driver errors onto the package's sentinel errors while
// keeping the original error in the chain.
func classifyPg(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23514": // unique_violation, check_violation
			return fmt.Errorf("%w: %w", ErrConstraint, err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case "40001", "40P01", "55P03", "57P01", "53300":
			// serialization_failure, deadlock_detected, lock_not_available,
			// admin_shutdown, too_many_connections
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		pgconn.Timeout(err) ||
		errors.As(err, &connectErr) ||
		errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
