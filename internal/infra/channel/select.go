// Package channel holds the delivery transports and picks them from configuration.
package channel

import (
	"github.com/sirupsen/logrus"

	"school_admin/internal/domain/delivery"
	"school_admin/internal/infra/config"
)

// NewWhatsAppSender picks the first configured provider: Twilio, then
// WhatsApp Web, then the log stub.
func NewWhatsAppSender(cfg *config.AppConfig, logger *logrus.Entry) delivery.Sender {
	log := logger.WithField("channel", delivery.ChannelWhatsApp)
	switch {
	case cfg.TwilioConfigured():
		log.Info("WhatsApp provider: Twilio")
		return NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, cfg.WhatsAppCountryCode, log)
	case cfg.WhatsAppWebEnabled:
		log.Info("WhatsApp provider: WhatsApp Web")
		return NewWhatsAppWebSender(cfg.WhatsAppWebProfile, cfg.WhatsAppWebTimeout, cfg.WhatsAppCountryCode, log)
	default:
		log.Warn("No WhatsApp provider configured, messages will only be logged")
		return NewLogSender(delivery.ChannelWhatsApp, false, log)
	}
}

// NewEmailSender uses SendGrid when a key is set and logs otherwise.
func NewEmailSender(cfg *config.AppConfig, logger *logrus.Entry) delivery.Sender {
	log := logger.WithField("channel", delivery.ChannelEmail)
	if cfg.SendGridAPIKey != "" {
		log.Info("Email provider: SendGrid")
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.SenderName, cfg.SenderEmail, log)
	}
	log.Warn("No email provider configured, messages will only be logged")
	return NewLogSender(delivery.ChannelEmail, true, log)
}

// NewSenders builds the channel map handed to the dispatcher.
func NewSenders(cfg *config.AppConfig, logger *logrus.Entry) delivery.Senders {
	return delivery.Senders{
		delivery.ChannelEmail:    NewEmailSender(cfg, logger),
		delivery.ChannelWhatsApp: NewWhatsAppSender(cfg, logger),
	}
}
