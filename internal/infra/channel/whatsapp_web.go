package channel

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"school_admin/internal/domain/delivery"
)

const (
	whatsAppWebURL   = "https://web.whatsapp.com/send"
	sendButtonQuery  = `span[data-icon="send"]`
	afterSendPause   = 2 * time.Second
	defaultWebWaitOn = 45 * time.Second
)

// WhatsAppWebSender drives a logged-in WhatsApp Web session in Chrome. The
// profile directory keeps the session between runs. Sends are serialized by
// the single browser tab, so callers must not share one sender concurrently.
type WhatsAppWebSender struct {
	profileDir  string
	timeout     time.Duration
	countryCode string
	logger      *logrus.Entry
}

func NewWhatsAppWebSender(profileDir string, timeout time.Duration, countryCode string, logger *logrus.Entry) *WhatsAppWebSender {
	if timeout <= 0 {
		timeout = defaultWebWaitOn
	}
	return &WhatsAppWebSender{
		profileDir:  profileDir,
		timeout:     timeout,
		countryCode: countryCode,
		logger:      logger,
	}
}

// Send opens the chat with the text prefilled and clicks send. There is no
// provider id for this channel.
func (s *WhatsAppWebSender) Send(ctx context.Context, recipient, text string) (string, error) {
	phone, err := normalizePhone(recipient, s.countryCode)
	if err != nil {
		return "", err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
	)
	if s.profileDir != "" {
		opts = append(opts, chromedp.UserDataDir(s.profileDir))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancel := context.WithTimeout(browserCtx, s.timeout)
	defer cancel()

	start := time.Now()
	err = chromedp.Run(runCtx,
		chromedp.Navigate(chatURL(phone, text)),
		chromedp.WaitVisible(sendButtonQuery, chromedp.ByQuery),
		chromedp.Click(sendButtonQuery, chromedp.ByQuery),
		chromedp.Sleep(afterSendPause),
	)
	if err != nil {
		return "", fmt.Errorf("whatsapp web: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"to": phone, "took": time.Since(start)}).Debug("WhatsApp Web message sent")
	return "", nil
}

func chatURL(phone, text string) string {
	q := url.Values{}
	q.Set("phone", phone[1:])
	q.Set("text", text)
	return whatsAppWebURL + "?" + q.Encode()
}

var _ delivery.Sender = (*WhatsAppWebSender)(nil)
