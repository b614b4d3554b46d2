package channel

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"school_admin/internal/domain/delivery"
)

// messageCreator is the part of the Twilio REST client the sender uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender delivers WhatsApp messages through the Twilio messaging API.
type TwilioSender struct {
	api         messageCreator
	from        string
	countryCode string
	logger      *logrus.Entry
}

func NewTwilioSender(accountSID, authToken, from, countryCode string, logger *logrus.Entry) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{
		api:         client.Api,
		from:        whatsAppAddress(from),
		countryCode: countryCode,
		logger:      logger,
	}
}

// Send returns the Twilio message SID as the provider id.
func (s *TwilioSender) Send(ctx context.Context, recipient, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	phone, err := normalizePhone(recipient, s.countryCode)
	if err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(whatsAppAddress(phone))
	params.SetBody(text)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio: %w", err)
	}
	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	s.logger.WithFields(logrus.Fields{"to": phone, "sid": sid}).Debug("Twilio accepted WhatsApp message")
	return sid, nil
}

func whatsAppAddress(phone string) string {
	if len(phone) > 9 && phone[:9] == "whatsapp:" {
		return phone
	}
	return "whatsapp:" + phone
}

var _ delivery.Sender = (*TwilioSender)(nil)
