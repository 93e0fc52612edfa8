package command

import "encoding/json"

// The payload's own user field is echoed but membership is checked for the
// session identity.
type newMessageResponse struct {
	NewMessage json.RawMessage `json:"new_message"`
}

func messageCommands() []*command {
	return []*command{
		{
			name:   "new_message",
			gated:  true,
			schema: jsonObject("channel_receiving_message", "user", "timestamp", "message"),
			checks: []check{
				channelExists(field("channel_receiving_message")),
				isMember,
			},
			run: newMessage,
		},
	}
}

func newMessage(c *call) (any, error) {
	return newMessageResponse{NewMessage: c.body.raw}, nil
}
