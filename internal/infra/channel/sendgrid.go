package channel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"school_admin/internal/domain/delivery"
)

var (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridSender delivers plain text email through the SendGrid v3 API.
type SendGridSender struct {
	key     string
	from    *sgmail.Email
	subject string
	logger  *logrus.Entry
}

func NewSendGridSender(key, fromName, fromEmail string, logger *logrus.Entry) *SendGridSender {
	subject := "School notes"
	if fromName != "" {
		subject = "[" + fromName + "] " + subject
	}
	return &SendGridSender{
		key:     key,
		from:    sgmail.NewEmail(fromName, fromEmail),
		subject: subject,
		logger:  logger,
	}
}

func (s *SendGridSender) message(to, text string) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subject
	p.AddTos(sgmail.NewEmail("", to))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", text))
	return m
}

// Send returns the X-Message-Id header as the provider id.
func (s *SendGridSender) Send(ctx context.Context, recipient, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	req := sendgrid.GetRequest(s.key, sendGridEndpoint, sendGridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.message(recipient, text))

	res, err := sendgrid.API(req)
	if err != nil {
		return "", fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}

	id := ""
	if ids := res.Headers["X-Message-Id"]; len(ids) > 0 {
		id = ids[0]
	}
	s.logger.WithFields(logrus.Fields{"to": recipient, "message_id": id}).Debug("SendGrid accepted email")
	return id, nil
}

var _ delivery.Sender = (*SendGridSender)(nil)
