package model

import "time"

// Participant is a user currently present in the room.
type Participant struct {
	Name     string    `json:"name"`
	LastSeen time.Time `json:"lastSeen"`
}
