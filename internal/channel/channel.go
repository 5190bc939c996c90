// Package channel defines the chat channel identifiers and the outbound
// sender contract shared by the channel adapters.
package channel

import "context"

// Kind identifies a chat channel.
type Kind string

const (
	Telegram  Kind = "telegram"
	Instagram Kind = "instagram"
)

// Valid reports whether k is a known channel.
func (k Kind) Valid() bool {
	return k == Telegram || k == Instagram
}

// Sender delivers one outbound text to a user on a single channel.
// Implementations live in the adapter subpackages; failures are returned
// to the caller, which logs and does not retry.
type Sender interface {
	Send(ctx context.Context, externalID, text string) error
}
