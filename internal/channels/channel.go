package channels

import "fmt"

// Channel is a communication medium for lead engagement.
//
// The orchestration core only ever routes across these three; anything else
// at a boundary is a caller error, not a new medium.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelChat  Channel = "chat"
)

// None is the zero value used before the router assigns a channel.
const None Channel = ""

func Valid(c Channel) bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelChat:
		return true
	default:
		return false
	}
}

// Parse converts a wire string into a Channel.
func Parse(s string) (Channel, error) {
	c := Channel(s)
	if !Valid(c) {
		return None, fmt.Errorf("channels: unknown channel %q", s)
	}
	return c, nil
}
