package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-identity/internal/domain/repository"
	"github.com/oksasatya/go-ddd-identity/pkg/apperror"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
	"github.com/oksasatya/go-ddd-identity/pkg/metrics"
)

// ErrInvalidCredentials is the single login failure signal. Unknown email,
// inactive account and wrong password all return this exact value.
var ErrInvalidCredentials = apperror.Unauthorized("invalid email or password")

const conflictMessage = "user with this email already exists"

// UserEventSink is notified after a user has been persisted. Sinks are best
// effort: a failing sink is logged and never undoes the registration.
type UserEventSink interface {
	UserRegistered(ctx context.Context, u *entity.User) error
}

type RegisterInput struct {
	Email     string
	UserName  string
	Password  string
	FirstName string
	LastName  string
}

// AuthResponse is returned on successful login.
type AuthResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	UserName  string    `json:"userName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthService orchestrates registration and login. It holds no per-request
// state; uniqueness is left to the store.
type AuthService struct {
	Repo    repo.UserRepository
	Hasher  *helpers.PasswordHasher
	Tokens  *helpers.JWTManager
	Logger  *logrus.Logger
	Metrics *metrics.AuthMetrics
	Sinks   []UserEventSink

	now   func() time.Time
	newID func() string
}

func NewAuthService(r repo.UserRepository, hasher *helpers.PasswordHasher, tokens *helpers.JWTManager, logger *logrus.Logger, m *metrics.AuthMetrics, sinks ...UserEventSink) *AuthService {
	return &AuthService{
		Repo:    r,
		Hasher:  hasher,
		Tokens:  tokens,
		Logger:  logger,
		Metrics: m,
		Sinks:   sinks,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Register creates a user. A duplicate email, whether seen by the lookup or
// reported by the store on insert, yields a 409 AppError.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	email := entity.NormalizeEmail(in.Email)
	userName := strings.TrimSpace(in.UserName)
	if email == "" || userName == "" || in.Password == "" {
		s.Metrics.RecordRegistration(metrics.OutcomeInvalid)
		return nil, apperror.Validation("email, userName and password are required")
	}

	existing, err := s.Repo.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		s.Metrics.RecordRegistration(metrics.OutcomeConflict)
		return nil, apperror.AlreadyExists(conflictMessage)
	case err != nil && !errors.Is(err, apperror.ErrNotFound):
		s.Metrics.RecordRegistration(metrics.OutcomeError)
		return nil, s.internal("lookup before register failed", err, logrus.Fields{"email": email})
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			s.Metrics.RecordRegistration(metrics.OutcomeInvalid)
			return nil, apperror.Validation("password must be at most 72 bytes long")
		}
		s.Metrics.RecordRegistration(metrics.OutcomeError)
		return nil, s.internal("hash password failed", err, nil)
	}

	now := s.now()
	u := &entity.User{
		ID:           s.newID(),
		Email:        email,
		UserName:     userName,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, apperror.ErrAlreadyExists) {
			s.Metrics.RecordRegistration(metrics.OutcomeConflict)
			return nil, apperror.AlreadyExists(conflictMessage)
		}
		s.Metrics.RecordRegistration(metrics.OutcomeError)
		return nil, s.internal("create user failed", err, logrus.Fields{"email": email})
	}

	s.Metrics.RecordRegistration(metrics.OutcomeSuccess)
	s.log().WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("user registered")
	s.notify(ctx, u)
	return u, nil
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	start := time.Now()
	email = entity.NormalizeEmail(email)

	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		s.Metrics.RecordLogin(metrics.OutcomeError, time.Since(start))
		return nil, s.internal("lookup for login failed", err, logrus.Fields{"email": email})
	}

	var ok bool
	if u == nil {
		s.Hasher.VerifyDummy(password)
	} else {
		// Verify even for inactive users so timing does not reveal the flag.
		ok = s.Hasher.Verify(password, u.PasswordHash) && u.IsActive
	}
	if !ok {
		s.Metrics.RecordLogin(metrics.OutcomeInvalid, time.Since(start))
		s.log().WithField("email", email).Warn("login rejected")
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.Tokens.Issue(helpers.Identity{UserID: u.ID, Email: u.Email, UserName: u.UserName})
	if err != nil {
		s.Metrics.RecordLogin(metrics.OutcomeError, time.Since(start))
		return nil, s.internal("issue token failed", err, logrus.Fields{"user_id": u.ID})
	}

	s.Metrics.RecordLogin(metrics.OutcomeSuccess, time.Since(start))
	return &AuthResponse{
		Token:     token,
		UserID:    u.ID,
		Email:     u.Email,
		UserName:  u.UserName,
		ExpiresAt: exp,
	}, nil
}

// GetUserByEmail looks a user up by normalized email.
func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	return s.lookup(s.Repo.GetByEmail(ctx, entity.NormalizeEmail(email)))
}

func (s *AuthService) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	return s.lookup(s.Repo.GetByID(ctx, id))
}

// Deactivate disables an account. Later logins fail with ErrInvalidCredentials.
func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	if err := s.Repo.SetActive(ctx, userID, false); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("user")
		}
		return s.internal("deactivate user failed", err, logrus.Fields{"user_id": userID})
	}
	s.log().WithField("user_id", userID).Info("user deactivated")
	return nil
}

func (s *AuthService) lookup(u *entity.User, err error) (*entity.User, error) {
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("user")
		}
		return nil, s.internal("lookup user failed", err, nil)
	}
	return u, nil
}

func (s *AuthService) notify(ctx context.Context, u *entity.User) {
	for _, sink := range s.Sinks {
		if err := sink.UserRegistered(ctx, u); err != nil {
			s.log().WithError(err).WithField("user_id", u.ID).Warn("user registered hook failed")
		}
	}
}

func (s *AuthService) internal(msg string, err error, fields logrus.Fields) error {
	helpers.LogError(s.log(), msg, err, fields)
	return apperror.Internal(err)
}

func (s *AuthService) log() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}
