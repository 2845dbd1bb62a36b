// Package chat holds the append-only conversation log.
package chat

import (
	"iter"
	"slices"
	"sync"
)

// Role tags the sender of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one immutable transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is an ordered, append-only log of messages. Insertion order is
// the only ordering; entries are never edited, removed or reordered.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds a message at the end.
func (t *Transcript) Append(role Role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, Message{Role: role, Content: content})
}

// All yields the messages present when iteration starts, in order. Each call
// to the returned sequence starts over from the first message.
func (t *Transcript) All() iter.Seq[Message] {
	return func(yield func(Message) bool) {
		t.mu.RLock()
		n := len(t.messages)
		t.mu.RUnlock()

		for i := 0; i < n; i++ {
			t.mu.RLock()
			m := t.messages[i]
			t.mu.RUnlock()
			if !yield(m) {
				return
			}
		}
	}
}

// Messages returns a copy of the log.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.messages)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
