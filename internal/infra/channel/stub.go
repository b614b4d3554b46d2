package channel

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"school_admin/internal/domain/delivery"
	"school_admin/internal/domain/errs"
)

// ErrNoProvider is what a non-delivering stub reports for every message.
var ErrNoProvider = fmt.Errorf("%w: no provider configured", errs.ErrDeliveryFailure)

// LogSender writes messages to the log instead of sending them. With deliver
// set it reports success, which is how email behaves in development; without
// it every message fails so the entry stays retryable.
type LogSender struct {
	channel delivery.Channel
	deliver bool
	logger  *logrus.Entry
}

func NewLogSender(ch delivery.Channel, deliver bool, logger *logrus.Entry) *LogSender {
	return &LogSender{channel: ch, deliver: deliver, logger: logger}
}

func (s *LogSender) Send(_ context.Context, recipient, text string) (string, error) {
	s.logger.WithFields(logrus.Fields{
		"channel": s.channel,
		"to":      recipient,
	}).Info("Message logged:\n" + text)
	if !s.deliver {
		return "", ErrNoProvider
	}
	return "", nil
}

var _ delivery.Sender = (*LogSender)(nil)
