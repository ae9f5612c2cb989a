package email

import (
	"context"

	"github.com/paddockhq/paddock/pkg/slogx"
)

// DevSender logs messages instead of delivering them. Default in dev
// environments so invite and confirmation codes show up in the console.
type DevSender struct{}

func NewDevSender() *DevSender { return &DevSender{} }

func (s *DevSender) Send(ctx context.Context, msg Message) error {
	slogx.FromContext(ctx).Info("dev email",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
