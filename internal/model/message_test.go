package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessage_VisibleTo(t *testing.T) {
	req := require.New(t)

	broadcast := Message{From: "Alice", To: BroadcastTarget, Type: TypeBroadcast}
	private := Message{From: "Alice", To: "Bob", Type: TypePrivate}

	req.True(broadcast.VisibleTo("Alice"))
	req.True(broadcast.VisibleTo("Carol"))
	req.True(private.VisibleTo("Alice"))
	req.True(private.VisibleTo("Bob"))
	req.False(private.VisibleTo("Carol"))
}

func TestStatusEvent(t *testing.T) {
	req := require.New(t)

	ev := StatusEvent("Bob", LeftText)
	req.Equal("Bob", ev.From)
	req.Equal(BroadcastTarget, ev.To)
	req.Equal(TypeStatus, ev.Type)
	req.Equal("left", ev.Text)
}
