package bot

import "context"

// Button is one tappable choice attached to an outbound message.
type Button struct {
	Label   string
	Payload string
}

// Messenger is the outbound half of the chat transport. Each button renders
// on its own row, in order.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, buttons ...Button) error
}
