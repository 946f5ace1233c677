package model

// BroadcastTarget is the recipient value that makes a message visible to everyone in the room.
const BroadcastTarget = "Todos"

// MessageType classifies a message for display and validation.
type MessageType string

const (
	TypeBroadcast MessageType = "broadcast_message"
	TypePrivate   MessageType = "private_message"
	// TypeStatus is reserved for join/leave events generated by the server.
	TypeStatus MessageType = "status"
)

// Synthetic event texts
const (
	JoinedText = "joined"
	LeftText   = "left"
)

// Message represents a chat message
type Message struct {
	ID   string      `json:"id"`
	From string      `json:"from"`
	To   string      `json:"to"`
	Text string      `json:"text"`
	Type MessageType `json:"type"`
	Time string      `json:"time"`
}

// VisibleTo reports whether viewer may read m.
func (m Message) VisibleTo(viewer string) bool {
	return m.From == viewer || m.To == BroadcastTarget || m.To == viewer
}

// StatusEvent builds the synthetic event announcing that name joined or left.
func StatusEvent(name, text string) Message {
	return Message{
		From: name,
		To:   BroadcastTarget,
		Text: text,
		Type: TypeStatus,
	}
}
