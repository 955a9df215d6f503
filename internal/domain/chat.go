package domain

import "time"

// ChatEntry is one message in a room channel.
type ChatEntry struct {
	Sender string    `json:"sender"`
	Role   string    `json:"role,omitempty"`
	Text   string    `json:"message"`
	At     time.Time `json:"at"`
}

// ChatLog is an append-only ordered message log. Rooms keep two:
// the player channel and the spectator channel.
type ChatLog struct {
	entries []ChatEntry
}

func (l *ChatLog) Append(sender, role, text string) ChatEntry {
	entry := ChatEntry{Sender: sender, Role: role, Text: text, At: time.Now()}
	l.entries = append(l.entries, entry)
	return entry
}

// History returns the log in order. The slice is a copy.
func (l *ChatLog) History() []ChatEntry {
	out := make([]ChatEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ChatLog) Len() int {
	return len(l.entries)
}
