package app

import (
	"context"

	"github.com/AradIT/sipmask/internal/masking_service/adapters/ami"
)

// SwitchClient is the slice of the AMI client the workflows drive.
// Implementations exchange exactly one action per call and never keep a
// session open in between.
type SwitchClient interface {
	SendAction(ctx context.Context, action *ami.Action) (string, error)
	Command(ctx context.Context, command string) (string, error)
}

// Cipher is the reversible encryption capability used for the mask
// mirror. The key is provisioned at startup from configuration.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(token string) (string, error)
}

// Notifier publishes best-effort operator notifications.
type Notifier interface {
	Publish(ctx context.Context, subject string, data []byte) error
}
