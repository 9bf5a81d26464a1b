package notifications

import (
	"context"
	"time"
)

type SendPasswordResetInput struct {
	Email string
	// Token is the plaintext reset token. It exists only in this payload and
	// in the link delivered to the user; storage keeps a hash.
	Token     string
	ExpiresAt time.Time
}

type Notifier interface {
	SendPasswordReset(ctx context.Context, input SendPasswordResetInput) error
}
