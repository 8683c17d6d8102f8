package model

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title     string `json:"title" validate:"required,max=150"`
	Type      string `json:"type" validate:"required,max=50"`
	Capacity  int    `json:"capacity" validate:"gt=0"`
	CollegeID int64  `json:"college_id" validate:"gte=0"`
}

// RegisterRequest is the payload for registering for an event. StudentID
// may be omitted by a student registering themselves.
type RegisterRequest struct {
	StudentID *int64 `json:"student_id"`
}

// AttendanceRequest is the payload for marking attendance.
type AttendanceRequest struct {
	StudentID int64 `json:"student_id"`
	EventID   int64 `json:"event_id"`
}

// FeedbackRequest is the payload for submitting feedback. Rating is a
// pointer so a missing rating can be told apart from zero.
type FeedbackRequest struct {
	StudentID int64  `json:"student_id"`
	EventID   int64  `json:"event_id"`
	Rating    *int   `json:"rating"`
	Comments  string `json:"comments"`
}

// SignupRequest is the payload for creating a login.
type SignupRequest struct {
	Email     string `json:"email" validate:"required,email,max=150"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	Role      Role   `json:"role" validate:"omitempty,oneof=admin student"`
	Name      string `json:"name" validate:"max=120"`
	CollegeID int64  `json:"college_id" validate:"gte=0"`
}

// LoginRequest is the payload for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	Role        Role   `json:"role"`
	StudentID   *int64 `json:"student_id"`
}

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BookingResult summarises the outcome of a single registration attempt.
// Used by the stress command.
type BookingResult struct {
	StudentID      int64
	RegistrationID int64
	Success        bool
	Error          error
}
