package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
)

// Mailer delivers transactional email through a local SMTP relay.
// Development setups point it at Mailpit; no authentication is used.
type Mailer struct {
	addr string
	from string
}

// NewMailer constructs a Mailer for the given relay.
func NewMailer(host string, port int, from string) *Mailer {
	return &Mailer{addr: fmt.Sprintf("%s:%d", host, port), from: from}
}

// Send delivers one message.
func (m *Mailer) Send(_ context.Context, payload SendEmailPayload) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", payload.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", payload.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(payload.Body)
	return smtp.SendMail(m.addr, nil, m.from, []string{payload.To}, []byte(msg.String()))
}

// HandleSendEmail processes TaskTypeSendEmail tasks through the relay.
func (m *Mailer) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}
	return m.Send(ctx, payload)
}
