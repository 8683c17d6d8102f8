// Package service implements the ledger's business rules, the read-side
// reports and account handling on top of a repository.Store.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Error kinds returned by every service operation. Match with errors.Is;
// details are attached by wrapping.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrStoreUnavailable is the only kind worth retrying.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Constraint violations.
var (
	ErrAlreadyRegistered = fmt.Errorf("%w: already registered", ErrConstraintViolation)
	ErrEventFull         = fmt.Errorf("%w: event full", ErrConstraintViolation)
	ErrEventCancelled    = fmt.Errorf("%w: event cancelled", ErrConstraintViolation)
	ErrAlreadyCancelled  = fmt.Errorf("%w: already cancelled", ErrConstraintViolation)
	ErrAlreadyMarked     = fmt.Errorf("%w: attendance already marked", ErrConstraintViolation)
	ErrNotRegistered     = fmt.Errorf("%w: not registered", ErrConstraintViolation)
	ErrEmailTaken        = fmt.Errorf("%w: email already registered", ErrConstraintViolation)
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)

var (
	errAdminOnly           = fmt.Errorf("%w: admin only", ErrUnauthorized)
	errAdminSignupDisabled = fmt.Errorf("%w: admin signup is disabled", ErrUnauthorized)
)

var kinds = []error{
	ErrInvalidArgument,
	ErrUnauthorized,
	ErrNotFound,
	ErrConstraintViolation,
	ErrStoreUnavailable,
}

// translate maps store errors that escape a unit of work onto service
// kinds. Errors that already carry a kind pass through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	switch {
	case errors.Is(err, repository.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrConstraint):
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	}
	return err
}

// notFound turns a repository miss into a described ErrNotFound.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
	}
	return err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}

// outcome is the metrics label for an operation result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrEventFull):
		return "event_full"
	case errors.Is(err, ErrEventCancelled):
		return "event_cancelled"
	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, ErrAlreadyMarked):
		return "already_marked"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, ErrConstraintViolation):
		return "constraint_violation"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}

// record counts the result of op and logs failures: rule rejections at
// info, everything else at error.
func record(logger zerolog.Logger, op string, err error) {
	result := outcome(err)
	metrics.LedgerOperations.WithLabelValues(op, result).Inc()
	if err == nil {
		return
	}
	if result == "error" || result == "store_unavailable" {
		logger.Error().Err(err).Str("operation", op).Msg("operation failed")
		return
	}
	logger.Info().Err(err).Str("operation", op).Str("outcome", result).Msg("operation rejected")
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs struct-tag validation and reports the first failure
// as ErrInvalidArgument.
func validateStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("%v", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return invalid("%s is required", fe.Field())
	case "gt":
		return invalid("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return invalid("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return invalid("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return invalid("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email":
		return invalid("%s must be a valid email address", fe.Field())
	case "oneof":
		return invalid("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return invalid("%s is invalid", fe.Field())
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
