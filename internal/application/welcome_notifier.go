package application

import (
	"context"
	"time"

	"github.com/oksasatya/go-ddd-identity/config"
	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-identity/pkg/mailer/templates"
)

// JobPublisher puts a JSON job on a queue. helpers.RabbitPublisher satisfies it.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// WelcomeNotifier queues a welcome email for every new user.
type WelcomeNotifier struct {
	Publisher JobPublisher
	Cfg       *config.Config
}

func NewWelcomeNotifier(p JobPublisher, cfg *config.Config) *WelcomeNotifier {
	return &WelcomeNotifier{Publisher: p, Cfg: cfg}
}

func (w *WelcomeNotifier) UserRegistered(ctx context.Context, u *entity.User) error {
	if w == nil || w.Publisher == nil {
		return nil
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: mailtpl.Welcome,
		Data:     mailtpl.NewWelcomeData(w.Cfg, u.FullName(), u.UserName, u.Email, mailtpl.WithTime(u.CreatedAt)),
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return w.Publisher.PublishJSON(c, job)
}
