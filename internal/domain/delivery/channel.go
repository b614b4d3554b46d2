package delivery

import "context"

// Sender transports a rendered message to one recipient address.
// A nil error means the provider accepted the message; providerID may be empty.
type Sender interface {
	Send(ctx context.Context, recipient, text string) (providerID string, err error)
}

// Senders maps each channel to its configured transport.
type Senders map[Channel]Sender
