package auth

import (
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCanPerform(t *testing.T) {
	admin := model.Principal{Role: model.RoleAdmin}
	student := model.Principal{Role: model.RoleStudent, StudentID: int64Ptr(7)}
	anonymous := model.Principal{}
	bogus := model.Principal{Role: "superuser"}

	tests := []struct {
		op        Operation
		admin     bool
		student   bool
		anonymous bool
	}{
		{OpCreateEvent, true, false, false},
		{OpCancelEvent, true, false, false},
		{OpListRegistrations, true, false, false},
		{OpRegisterStudent, true, true, false},
		{OpMarkAttendance, true, true, false},
		{OpSubmitFeedback, true, true, false},
		{OpViewEvents, true, true, true},
		{OpViewReports, true, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.admin, CanPerform(admin, tt.op))
			assert.Equal(t, tt.student, CanPerform(student, tt.op))
			assert.Equal(t, tt.anonymous, CanPerform(anonymous, tt.op))
			assert.Equal(t, tt.anonymous, CanPerform(bogus, tt.op))
		})
	}

	assert.False(t, CanPerform(admin, Operation("drop_tables")))
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "campus-events")

	token, err := m.Generate(model.UserCredential{
		ID:        3,
		Email:     "alice@demo",
		Role:      model.RoleStudent,
		StudentID: int64Ptr(11),
	})
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)

	p := claims.Principal()
	assert.Equal(t, model.RoleStudent, p.Role)
	require.NotNil(t, p.StudentID)
	assert.Equal(t, int64(11), *p.StudentID)
	assert.Equal(t, int64(3), p.UserID)
	assert.Equal(t, "alice@demo", p.Email)
}

func TestJWTAdminHasNoStudentClaim(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "campus-events")

	token, err := m.Generate(model.UserCredential{ID: 1, Email: "admin@demo", Role: model.RoleAdmin, StudentID: int64Ptr(4)})
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Nil(t, claims.StudentID)
}

func TestJWTRejectsTamperedAndExpired(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "campus-events")
	other := NewJWTManager("other-secret", time.Hour, "campus-events")

	token, err := other.Generate(model.UserCredential{Email: "a@b", Role: model.RoleAdmin})
	require.NoError(t, err)
	_, err = m.Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := m.Generate(model.UserCredential{Email: "a@b", Role: model.RoleAdmin})
	require.NoError(t, err)
	m.now = time.Now
	_, err = m.Validate(expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate("  ")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestGenerateRejectsUnknownRole(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "campus-events")
	_, err := m.Generate(model.UserCredential{Email: "a@b", Role: "root"})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenFromHeader(t *testing.T) {
	token, err := TokenFromHeader("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	_, err = TokenFromHeader("Basic abc")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = TokenFromHeader("")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("alicepass")
	require.NoError(t, err)
	assert.NotEqual(t, "alicepass", hash)

	require.NoError(t, CheckPassword(hash, "alicepass"))
	require.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
}
