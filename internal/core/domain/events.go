package domain

import "encoding/json"

// Event names are the wire contract with clients.
const (
	EventAuthenticate  = "authenticate"
	EventSetup         = "setup"
	EventConnected     = "connected"
	EventJoinChannel   = "joinChannel"
	EventJoinBoard     = "joinBoard"
	EventLeaveChannel  = "leaveChannel"
	EventLeaveBoard    = "leaveBoard"
	EventNewMessage    = "newMessage"
	EventNewChannel    = "newChannel"
	EventDeleteChannel = "deleteChannel"
	EventError         = "error"
)

// OutboundEvent is what the registry fans out. Data is encoded once per
// broadcast and shared by every recipient.
type OutboundEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewOutboundEvent(name string, data interface{}) (*OutboundEvent, error) {
	if data == nil {
		return &OutboundEvent{Name: name}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &OutboundEvent{Name: name, Data: raw}, nil
}

type ChannelDeletedPayload struct {
	ChannelID ChannelID `json:"channel_id"`
	BoardID   BoardID   `json:"board_id"`
}
