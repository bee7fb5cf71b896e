package service

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pluginverse/pluginverse/internal/auth"
	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

// UserService handles account management and authentication.
type UserService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
	logger   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, tokens *auth.TokenManager, logger zerolog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger.With().Str("service", "user").Logger(),
	}
}

// SignUpInput contains the data needed to register an account.
type SignUpInput struct {
	Username string
	Email    string
	Password string
}

// AuthOutput is returned by SignUp and LogIn.
type AuthOutput struct {
	User  *domain.User
	Token string
}

// SignUp registers a new account and returns a signed token.
func (s *UserService) SignUp(ctx context.Context, input SignUpInput) (*AuthOutput, error) {
	if err := s.validateSignUp(input); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to check username existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: username '%s'", domain.ErrUserAlreadyExists, input.Username)
	}

	exists, err = s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Error().Err(err).Str("email", input.Email).Msg("failed to check email existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: email '%s'", domain.ErrUserAlreadyExists, input.Email)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(uuid.New().String(), input.Username, input.Email, string(passwordHash))

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Concurrent signup can still trip the unique constraint.
		if isDomainErr(err) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to issue token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("user registered")

	return &AuthOutput{User: user, Token: token}, nil
}

// LogIn verifies credentials and returns a signed token. Login accepts
// either a username or an email address.
func (s *UserService) LogIn(ctx context.Context, login, password string) (*AuthOutput, error) {
	user, err := s.userRepo.GetByUsername(ctx, login)
	if err != nil {
		user, err = s.userRepo.GetByEmail(ctx, login)
	}
	if err != nil {
		// Don't expose whether the account exists.
		s.logger.Debug().Str("login", login).Msg("account not found during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug().Str("login", login).Msg("password mismatch during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to issue token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("user logged in")

	return &AuthOutput{User: user, Token: token}, nil
}

// GetByID returns a user by id.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// List returns all users with pagination.
func (s *UserService) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	result, err := s.userRepo.List(ctx, opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// Promote grants admin privileges to a user.
func (s *UserService) Promote(ctx context.Context, id string) error {
	if err := s.userRepo.SetAdmin(ctx, id, true); err != nil {
		if isDomainErr(err) {
			return err
		}
		s.logger.Error().Err(err).Str("user_id", id).Msg("failed to promote user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("user_id", id).Msg("user promoted to admin")
	return nil
}

// EnsureAdmin creates the bootstrap admin account if no account with the
// given email exists yet. Called at startup so a fresh deployment always
// has an administrator.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	admin := domain.NewUser(uuid.New().String(), username, email, string(passwordHash))
	admin.IsAdmin = true

	if err := s.userRepo.Create(ctx, admin); err != nil {
		// Another instance won the race; admin exists either way.
		if isDomainErr(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", admin.ID).
		Str("username", username).
		Msg("bootstrap admin created")

	return nil
}

func (s *UserService) validateSignUp(input SignUpInput) error {
	if len(input.Username) < 3 || len(input.Username) > 255 {
		return ErrInvalidUsername
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return ErrInvalidEmail
	}
	if len(input.Password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}
