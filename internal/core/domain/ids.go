package domain

import "fmt"

type UserID string
type BoardID string
type ChannelID string
type MessageID string
type SessionID string

type RoomKind string

const (
	RoomKindBoard   RoomKind = "board"
	RoomKindChannel RoomKind = "channel"
)

// RoomID identifies a live broadcast scope. Rooms are never persisted; they
// exist only as keys in the room registry.
type RoomID struct {
	Kind RoomKind
	ID   string
}

func BoardRoom(id BoardID) RoomID {
	return RoomID{Kind: RoomKindBoard, ID: string(id)}
}

func ChannelRoom(id ChannelID) RoomID {
	return RoomID{Kind: RoomKindChannel, ID: string(id)}
}

func (r RoomID) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

func (r RoomID) IsZero() bool {
	return r.ID == ""
}
