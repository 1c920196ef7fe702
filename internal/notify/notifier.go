package notify

import "context"

// Notifier is the boundary to the push/announcement transports. Announce is
// for cycle-level broadcasts; Push signals a new message in a match so the
// real-time transport can wake polling clients.
type Notifier interface {
	Announce(ctx context.Context, text string) error
	Push(ctx context.Context, matchID, messageID string) error
}

type Nop struct{}

var _ Notifier = Nop{}

func (Nop) Announce(context.Context, string) error { return nil }

func (Nop) Push(context.Context, string, string) error { return nil }
