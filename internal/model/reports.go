package model

// EventPopularity is one row of the event popularity report.
type EventPopularity struct {
	EventID       int64  `json:"event_id"`
	Title         string `json:"title"`
	Type          string `json:"type"`
	Registrations int    `json:"registrations"`
}

// ActiveStudent is one row of the top active students report.
type ActiveStudent struct {
	StudentID      int64  `json:"student_id"`
	Name           string `json:"name"`
	EventsAttended int    `json:"events_attended"`
}

// EventFeedback aggregates the ratings of one event. AverageRating is nil
// when the event has no feedback rows.
type EventFeedback struct {
	EventID       int64    `json:"event_id"`
	Title         string   `json:"title"`
	AverageRating *float64 `json:"average_rating"`
	FeedbackCount int      `json:"feedback_count"`
}

// InactiveStudent is a student with no registrations at all.
type InactiveStudent struct {
	StudentID int64  `json:"student_id"`
	Name      string `json:"name"`
}

// Dashboard bundles every report computed from one snapshot.
type Dashboard struct {
	EventPopularity   []EventPopularity `json:"event_popularity"`
	TopActiveStudents []ActiveStudent   `json:"top_active_students"`
	AverageFeedback   []EventFeedback   `json:"average_feedback"`
	TopEventsFeedback []EventFeedback   `json:"top_events_feedback"`
	InactiveStudents  []InactiveStudent `json:"inactive_students"`
}
