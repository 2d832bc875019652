package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ddd-identity/config"
	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-identity/pkg/apperror"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
	"github.com/oksasatya/go-ddd-identity/pkg/metrics"
)

var testTokens = config.TokenConfig{
	Secret:   "service-test-secret",
	Issuer:   "identity-test",
	Audience: "identity-clients",
	Lifetime: time.Hour,
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type recordingSink struct {
	mu    sync.Mutex
	users []*entity.User
	err   error
}

func (s *recordingSink) UserRegistered(_ context.Context, u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, u)
	return s.err
}

func newTestService(t *testing.T, sinks ...UserEventSink) (*AuthService, *memory.UserRepository) {
	t.Helper()
	repo := memory.NewUserRepository()
	svc := NewAuthService(
		repo,
		helpers.NewPasswordHasher(bcrypt.MinCost),
		helpers.NewJWTManager(testTokens),
		quietLogger(),
		metrics.NewAuthMetrics("test", prometheus.NewRegistry()),
		sinks...,
	)
	return svc, repo
}

func TestAuthService_RegisterLoginScenario(t *testing.T) {
	sink := &recordingSink{}
	svc, _ := newTestService(t, sink)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Email: "u@x.com", UserName: "u", Password: "Secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "u@x.com", u.Email)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "Secret123", u.PasswordHash)
	assert.Equal(t, time.UTC, u.CreatedAt.Location())
	require.Len(t, sink.users, 1)

	resp, err := svc.Login(ctx, "u@x.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, resp.UserID)
	assert.Equal(t, "u", resp.UserName)

	claims, err := svc.Tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, resp.ExpiresAt, claims.ExpiresAt.Time)

	_, err = svc.Login(ctx, "u@x.com", "wrong")
	assert.Same(t, ErrInvalidCredentials, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "u@x.com", UserName: "u2", Password: "Other123"})
	assert.True(t, errors.Is(err, apperror.ErrAlreadyExists))
	assert.Equal(t, http.StatusConflict, apperror.HTTPStatus(err))
	assert.Len(t, sink.users, 1, "a conflicting registration emits no event")
}

func TestAuthService_RegisterConflictIgnoresCase(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "A@B.com", UserName: "a", Password: "Secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "a@b.com", UserName: "b", Password: "Secret123"})
	require.Error(t, err)
	assert.Equal(t, "user with this email already exists", apperror.Message(err))

	resp, err := svc.Login(ctx, " a@B.COM ", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", resp.Email)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, repo := newTestService(t)

	for _, in := range []RegisterInput{
		{Email: "", UserName: "u", Password: "Secret123"},
		{Email: "u@x.com", UserName: "  ", Password: "Secret123"},
		{Email: "u@x.com", UserName: "u", Password: ""},
	} {
		_, err := svc.Register(context.Background(), in)
		assert.Equal(t, http.StatusBadRequest, apperror.HTTPStatus(err))
	}
	_, err := repo.GetByEmail(context.Background(), "u@x.com")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "nothing persisted")
}

// racingRepo reports a miss on lookup but a duplicate on insert, as happens
// when another request creates the same email in between.
type racingRepo struct {
	*memory.UserRepository
	createErr error
	lookupErr error
}

func (r *racingRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	return nil, fmt.Errorf("select user: %w", apperror.ErrNotFound)
}

func (r *racingRepo) Create(ctx context.Context, u *entity.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.UserRepository.Create(ctx, u)
}

func TestAuthService_RegisterStoreConflictIsAuthoritative(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Repo = &racingRepo{
		UserRepository: memory.NewUserRepository(),
		createErr:      fmt.Errorf("insert user: %w", apperror.ErrAlreadyExists),
	}

	_, err := svc.Register(context.Background(), RegisterInput{Email: "u@x.com", UserName: "u", Password: "Secret123"})
	assert.Equal(t, http.StatusConflict, apperror.HTTPStatus(err))
	assert.Equal(t, "user with this email already exists", apperror.Message(err))
}

func TestAuthService_StoreFailuresAreInternal(t *testing.T) {
	svc, _ := newTestService(t)
	reg := prometheus.NewRegistry()
	svc.Metrics = metrics.NewAuthMetrics("failures", reg)
	svc.Repo = &racingRepo{UserRepository: memory.NewUserRepository(), lookupErr: errors.New("connection refused")}

	_, err := svc.Register(context.Background(), RegisterInput{Email: "u@x.com", UserName: "u", Password: "Secret123"})
	assert.Equal(t, http.StatusInternalServerError, apperror.HTTPStatus(err))
	assert.Equal(t, "an internal error occurred", apperror.Message(err))

	_, err = svc.Login(context.Background(), "u@x.com", "Secret123")
	assert.Equal(t, http.StatusInternalServerError, apperror.HTTPStatus(err))

	svc.Repo = &racingRepo{UserRepository: memory.NewUserRepository(), createErr: errors.New("disk full")}
	_, err = svc.Register(context.Background(), RegisterInput{Email: "u@x.com", UserName: "u", Password: "Secret123"})
	assert.Equal(t, http.StatusInternalServerError, apperror.HTTPStatus(err))

	expected := `
# HELP failures_registrations_total Registration attempts by outcome.
# TYPE failures_registrations_total counter
failures_registrations_total{outcome="error"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "failures_registrations_total"))
}

func TestAuthService_RegisterPasswordOverBcryptLimit(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "u@x.com", UserName: "u", Password: strings.Repeat("é", 40)})
	assert.Equal(t, http.StatusBadRequest, apperror.HTTPStatus(err))
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = repo.GetByEmail(context.Background(), "u@x.com")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "active@x.com", UserName: "a", Password: "Secret123"})
	require.NoError(t, err)
	inactive, err := svc.Register(ctx, RegisterInput{Email: "inactive@x.com", UserName: "i", Password: "Secret123"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, inactive.ID))

	_, wrongPassword := svc.Login(ctx, "active@x.com", "nope")
	_, unknownEmail := svc.Login(ctx, "ghost@x.com", "Secret123")
	_, deactivated := svc.Login(ctx, "inactive@x.com", "Secret123")

	for _, err := range []error{wrongPassword, unknownEmail, deactivated} {
		assert.Same(t, ErrInvalidCredentials, err)
		assert.Equal(t, http.StatusUnauthorized, apperror.HTTPStatus(err))
		assert.Equal(t, "invalid email or password", apperror.Message(err))
	}
}

func TestAuthService_GetUserByEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Email: "Find@Me.com", UserName: "f", Password: "Secret123", FirstName: " Fin ", LastName: "Der"})
	require.NoError(t, err)

	got, err := svc.GetUserByEmail(ctx, "FIND@me.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Fin", got.FirstName)

	_, err = svc.GetUserByEmail(ctx, "missing@me.com")
	assert.Equal(t, http.StatusNotFound, apperror.HTTPStatus(err))

	byID, err := svc.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)
}

func TestAuthService_DeactivateUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Deactivate(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, apperror.HTTPStatus(err))
}

func TestAuthService_FailingSinkDoesNotFailRegistration(t *testing.T) {
	broken := &recordingSink{err: errors.New("es down")}
	after := &recordingSink{}
	svc, repo := newTestService(t, broken, after)

	u, err := svc.Register(context.Background(), RegisterInput{Email: "u@x.com", UserName: "u", Password: "Secret123"})
	require.NoError(t, err)
	assert.Len(t, after.users, 1, "later sinks still run")

	_, err = repo.GetByID(context.Background(), u.ID)
	assert.NoError(t, err)
}

func TestAuthService_ConcurrentRegisterSingleWinner(t *testing.T) {
	svc, _ := newTestService(t)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), RegisterInput{Email: "race@x.com", UserName: "r", Password: "Secret123"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, apperror.ErrAlreadyExists) {
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
}
