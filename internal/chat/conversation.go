// Package chat holds the direct-messaging view state: the canonical
// conversation identity for a pair of members and the reconciliation store
// that merges history, optimistic sends and realtime pushes into one
// deduplicated list.
package chat

import (
	"strings"

	"github.com/google/uuid"
)

// Conversation channel names share a namespace with the other realtime
// feeds delivered over the hub.
const channelPrefix = "dm:"

// ConversationID derives the canonical channel identifier for a pair of
// participants. The pair is unordered: ConversationID(a, b) equals
// ConversationID(b, a), so exactly one realtime channel exists per
// conversation regardless of who opened it.
func ConversationID(a, b uuid.UUID) string {
	first, second := a.String(), b.String()
	if second < first {
		first, second = second, first
	}
	return channelPrefix + first + ":" + second
}

// Participants recovers the pair from a conversation identifier. The second
// return is false when the identifier is not a conversation channel.
func Participants(id string) (uuid.UUID, uuid.UUID, bool) {
	rest, found := strings.CutPrefix(id, channelPrefix)
	if !found {
		return uuid.Nil, uuid.Nil, false
	}
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return uuid.Nil, uuid.Nil, false
	}
	a, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	b, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return a, b, true
}
