// Package email defines the outbound mail capability used for worker
// invitations and account confirmation. Delivery is best effort; callers
// never fail an operation because a mail could not be sent.
package email

import (
	"context"
	"fmt"
	"time"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages. Implementations must be safe for concurrent
// use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// InviteMessage renders the worker invitation mail. The raw invite token
// appears only here and in the create response.
func InviteMessage(to, ownerName, token string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "You've been invited to join a farm",
		Body: "Hi,\n\n" +
			ownerName + " has invited you to join their farm as a worker.\n\n" +
			"Use this invitation code to accept: " + token + "\n\n" +
			"The invitation expires in " + expiresIn(ttl) + ". If you weren't expecting this, you can ignore it.\n",
	}
}

// ConfirmationMessage renders the account confirmation mail.
func ConfirmationMessage(to, token string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Confirm your account",
		Body: "Hi,\n\n" +
			"Use this code to confirm your email address: " + token + "\n\n" +
			"The code expires in " + expiresIn(ttl) + ". If you didn't create an account, you can ignore this.\n",
	}
}

func expiresIn(ttl time.Duration) string {
	const day = 24 * time.Hour
	if ttl >= day && ttl%day == 0 {
		if d := int(ttl / day); d > 1 {
			return fmt.Sprintf("%d days", d)
		}
		return "1 day"
	}
	if ttl >= time.Hour && ttl%time.Hour == 0 {
		if h := int(ttl / time.Hour); h > 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
	return ttl.String()
}
