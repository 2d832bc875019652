package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-identity/config"
	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-identity/pkg/mailer/templates"
)

type fakePublisher struct {
	jobs []any
	err  error
}

func (f *fakePublisher) PublishJSON(_ context.Context, body any) error {
	f.jobs = append(f.jobs, body)
	return f.err
}

func TestWelcomeNotifier_PublishesWelcomeJob(t *testing.T) {
	pub := &fakePublisher{}
	n := NewWelcomeNotifier(pub, &config.Config{AppName: "Identity", LoginURL: "https://x.test/login"})

	u := &entity.User{ID: "id-1", Email: "ada@example.com", UserName: "ada", FirstName: "Ada", CreatedAt: time.Now().UTC()}
	require.NoError(t, n.UserRegistered(context.Background(), u))

	require.Len(t, pub.jobs, 1)
	job, ok := pub.jobs[0].(mailer.EmailJob)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", job.To)
	assert.Equal(t, mailtpl.Welcome, job.Template)
	assert.Equal(t, "Ada", job.Data["Name"])
	assert.Equal(t, "ada", job.Data["UserName"])
	assert.Equal(t, "https://x.test/login", job.Data["LoginURL"])
}

func TestWelcomeNotifier_PublishError(t *testing.T) {
	n := NewWelcomeNotifier(&fakePublisher{err: errors.New("channel closed")}, &config.Config{})
	assert.Error(t, n.UserRegistered(context.Background(), &entity.User{Email: "a@b.com"}))

	var disabled *WelcomeNotifier
	assert.NoError(t, disabled.UserRegistered(context.Background(), &entity.User{}))
}
