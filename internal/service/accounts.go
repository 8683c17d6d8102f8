package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/sanitize"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AccountService issues logins. It sits outside the ledger: its only
// output is the Principal carried by a signed token.
type AccountService struct {
	store            repository.Store
	tokens           *auth.JWTManager
	allowAdminSignup bool
	logger           zerolog.Logger
	validator        *validator.Validate
}

// NewAccountService constructs an AccountService. Admin accounts can only be
// created through Signup when allowAdminSignup is set.
func NewAccountService(store repository.Store, tokens *auth.JWTManager, allowAdminSignup bool, logger zerolog.Logger) *AccountService {
	return &AccountService{
		store:            store,
		tokens:           tokens,
		allowAdminSignup: allowAdminSignup,
		logger:           logger.With().Str("component", "accounts").Logger(),
		validator:        newValidator(),
	}
}

// Signup creates a login. A student login also creates its Student row in
// the given college (or the default one).
func (s *AccountService) Signup(ctx context.Context, req model.SignupRequest) (userID int64, err error) {
	defer func() { record(s.logger, "signup", err) }()

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = sanitize.Text(req.Name)
	if req.Role == "" {
		req.Role = model.RoleStudent
	}
	if err := validateStruct(s.validator, req); err != nil {
		return 0, err
	}
	if req.Role == model.RoleAdmin && !s.allowAdminSignup {
		return 0, errAdminSignupDisabled
	}
	if req.CollegeID == 0 {
		req.CollegeID = DefaultCollegeID
	}
	if req.Name == "" {
		req.Name = strings.SplitN(req.Email, "@", 2)[0]
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return 0, err
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetUserByEmail(ctx, req.Email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		user := model.UserCredential{
			Email:        req.Email,
			PasswordHash: hash,
			Role:         req.Role,
		}
		if req.Role == model.RoleStudent {
			if _, err := tx.GetCollege(ctx, req.CollegeID); err != nil {
				return notFound(err, "college %d", req.CollegeID)
			}
			studentID, err := tx.InsertStudent(ctx, model.Student{Name: req.Name, CollegeID: req.CollegeID})
			if err != nil {
				return err
			}
			user.StudentID = &studentID
		}

		id, err := tx.InsertUser(ctx, user)
		if err != nil {
			if errors.Is(err, repository.ErrConstraint) {
				return ErrEmailTaken
			}
			return err
		}
		userID = id
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}

	s.logger.Info().Int64("user_id", userID).Str("role", string(req.Role)).Msg("account created")
	return userID, nil
}

// Login checks credentials and returns a signed access token. Unknown
// emails and wrong passwords both fail with ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, invalid("email and password required")
	}

	var user *model.UserCredential
	err := s.store.Snapshot(ctx, func(ctx context.Context, r repository.Reader) error {
		var err error
		user, err = r.GetUserByEmail(ctx, email)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, translate(err)
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.logger.Info().Str("email", email).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(*user)
	if err != nil {
		return nil, err
	}
	res := &model.LoginResult{AccessToken: token, Role: user.Role}
	if user.Role == model.RoleStudent {
		res.StudentID = user.StudentID
	}
	return res, nil
}

// Authenticate resolves a bearer token into a Principal.
func (s *AccountService) Authenticate(token string) (model.Principal, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return model.Principal{}, err
	}
	return claims.Principal(), nil
}
