// Package model defines the core domain types for the campus events ledger.
package model

// Role is the coarse permission level carried by a Principal.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// Principal is the already-authenticated caller of a ledger operation.
// The zero value is an anonymous caller.
type Principal struct {
	Role      Role   `json:"role"`
	StudentID *int64 `json:"student_id,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
}

// IsAnonymous returns true when no identity was resolved for the call.
func (p Principal) IsAnonymous() bool {
	return p.Role == ""
}

// College is the root of a tenancy scope.
type College struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Student belongs to exactly one College.
type Student struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CollegeID int64  `json:"college_id"`
}

// Event is a capacity-limited happening owned by a College.
type Event struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Capacity    int    `json:"capacity"`
	IsCancelled bool   `json:"is_cancelled"`
	CollegeID   int64  `json:"college_id"`
}

// IsFull returns true when registrations have used up every seat.
func (e *Event) IsFull(registrations int) bool {
	return registrations >= e.Capacity
}

// EventSummary is an Event together with its current ledger counts.
type EventSummary struct {
	Event
	Registrations   int `json:"registrations"`
	AttendanceCount int `json:"attendance_count"`
}

// Registration records a student's intent to attend an event.
type Registration struct {
	ID        int64 `json:"id"`
	StudentID int64 `json:"student_id"`
	EventID   int64 `json:"event_id"`
}

// Attendance records confirmed presence at an event.
type Attendance struct {
	ID        int64 `json:"id"`
	StudentID int64 `json:"student_id"`
	EventID   int64 `json:"event_id"`
}

// Feedback is a rating left by a student for an event.
type Feedback struct {
	ID        int64  `json:"id"`
	StudentID int64  `json:"student_id"`
	EventID   int64  `json:"event_id"`
	Rating    int    `json:"rating"`
	Comments  string `json:"comments"`
}

// UserCredential binds a login to a role and, for students, a Student row.
type UserCredential struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	StudentID    *int64 `json:"student_id,omitempty"`
}
