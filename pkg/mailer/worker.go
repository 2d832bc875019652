package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	mailtpl "github.com/oksasatya/go-ddd-identity/pkg/mailer/templates"
)

// Sender delivers one rendered email. *Mailgun satisfies it.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Disposition tells the consumer what to do with a delivery.
type Disposition int

const (
	Ack Disposition = iota
	Drop
	Retry
)

// Worker turns queued EmailJobs into sent emails.
type Worker struct {
	Sender      Sender
	Logger      *logrus.Logger
	SendTimeout time.Duration
}

func NewWorker(s Sender, logger *logrus.Logger) *Worker {
	return &Worker{Sender: s, Logger: logger, SendTimeout: 15 * time.Second}
}

var errNoRecipient = errors.New("email job has no recipient")

// Handle decodes, renders and sends one message body. Bad payloads are
// dropped, send failures are retried.
func (w *Worker) Handle(ctx context.Context, body []byte) Disposition {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Logger.WithError(err).Warn("bad email job")
		return Drop
	}
	subject, text, html, err := Prepare(&job)
	if err != nil {
		w.Logger.WithError(err).WithField("template", job.Template).Warn("render email failed")
		return Drop
	}

	c, cancel := context.WithTimeout(ctx, w.SendTimeout)
	defer cancel()
	if err := w.Sender.Send(c, job.To, subject, text, html); err != nil {
		w.Logger.WithError(err).WithField("to", job.To).Error("send email failed")
		return Retry
	}
	w.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sent")
	return Ack
}

// Prepare resolves the final subject and bodies of job.
func Prepare(job *EmailJob) (subject, text, html string, err error) {
	if job.To == "" {
		return "", "", "", errNoRecipient
	}
	if job.Template == "" {
		if job.Subject == "" || (job.Text == "" && job.HTML == "") {
			return "", "", "", fmt.Errorf("email job to %s has neither template nor content", job.To)
		}
		return job.Subject, job.Text, job.HTML, nil
	}
	job.EnsureRecipient()
	return mailtpl.Render(job.Template, job.Data)
}
