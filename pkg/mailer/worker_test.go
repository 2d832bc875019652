package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailtpl "github.com/oksasatya/go-ddd-identity/pkg/mailer/templates"
)

type sent struct{ to, subject, text, html string }

type fakeSender struct {
	err  error
	sent []sent
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{to, subject, text, html})
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestWorker_RendersWelcomeTemplate(t *testing.T) {
	s := &fakeSender{}
	w := NewWorker(s, quietLogger())

	body := mustJSON(t, EmailJob{
		To:       "ada@example.com",
		Template: mailtpl.Welcome,
		Data:     map[string]any{"Name": "Ada", "AppName": "Identity"},
	})

	assert.Equal(t, Ack, w.Handle(context.Background(), body))
	require.Len(t, s.sent, 1)
	assert.Equal(t, "ada@example.com", s.sent[0].to)
	assert.Equal(t, "Welcome to Identity, Ada", strings.TrimSpace(s.sent[0].subject))
	assert.Contains(t, s.sent[0].text, "ada@example.com", "recipient is backfilled into the data")
}

func TestWorker_PlainContent(t *testing.T) {
	s := &fakeSender{}
	w := NewWorker(s, quietLogger())

	body := mustJSON(t, EmailJob{To: "a@b.com", Subject: "hi", Text: "hello"})
	assert.Equal(t, Ack, w.Handle(context.Background(), body))
	assert.Equal(t, sent{"a@b.com", "hi", "hello", ""}, s.sent[0])
}

func TestWorker_Dispositions(t *testing.T) {
	tests := []struct {
		name    string
		body    []byte
		sendErr error
		want    Disposition
	}{
		{"not json", []byte("{"), nil, Drop},
		{"no recipient", mustJSON(t, EmailJob{Subject: "x", Text: "y"}), nil, Drop},
		{"no content", mustJSON(t, EmailJob{To: "a@b.com"}), nil, Drop},
		{"unknown template", mustJSON(t, EmailJob{To: "a@b.com", Template: "nope"}), nil, Drop},
		{"send failure", mustJSON(t, EmailJob{To: "a@b.com", Subject: "x", Text: "y"}), errors.New("mailgun 503"), Retry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorker(&fakeSender{err: tt.sendErr}, quietLogger())
			assert.Equal(t, tt.want, w.Handle(context.Background(), tt.body))
		})
	}
}
