// Package auth holds the authorization policy for ledger operations and
// the credential helpers (JWT, bcrypt) used by the HTTP shell.
package auth

import "github.com/Shivanand-hulikatti/campus-events/internal/model"

// Operation names a ledger or report entry point for authorization.
type Operation string

const (
	OpCreateEvent       Operation = "create_event"
	OpCancelEvent       Operation = "cancel_event"
	OpRegisterStudent   Operation = "register_student"
	OpMarkAttendance    Operation = "mark_attendance"
	OpSubmitFeedback    Operation = "submit_feedback"
	OpListRegistrations Operation = "list_registrations"
	OpViewEvents        Operation = "view_events"
	OpViewReports       Operation = "view_reports"
)

var adminOnly = map[Operation]bool{
	OpCreateEvent:       true,
	OpCancelEvent:       true,
	OpListRegistrations: true,
}

var public = map[Operation]bool{
	OpViewEvents:  true,
	OpViewReports: true,
}

// CanPerform reports whether p may invoke op. It is a pure function of the
// principal's role; ownership checks are not part of the policy.
func CanPerform(p model.Principal, op Operation) bool {
	if public[op] {
		return true
	}
	if !p.Role.Valid() {
		return false
	}
	if adminOnly[op] {
		return p.Role == model.RoleAdmin
	}
	switch op {
	case OpRegisterStudent, OpMarkAttendance, OpSubmitFeedback:
		return true
	}
	return false
}
