package chat

import (
	"darkroom/internal/models"

	"github.com/google/uuid"
)

// Store is the ordered message history for one active conversation. It is
// fed from three sources: a point-in-time history load, optimistic local
// sends, and the realtime feed. Entries are appended in arrival order and
// never re-sorted; history loads ascending and later arrivals are newer, so
// the list stays chronological in the steady state. Out-of-order realtime
// delivery is not defended against.
//
// A Store is owned exclusively by one view component and is not safe for
// concurrent use.
type Store struct {
	key  string
	list []*models.Message
	seen map[uuid.UUID]int // message id -> index in list
}

// NewStore creates the store for the conversation between two members.
func NewStore(a, b uuid.UUID) *Store {
	return &Store{
		key:  ConversationID(a, b),
		list: []*models.Message{},
		seen: make(map[uuid.UUID]int),
	}
}

// Key returns the conversation's canonical channel identifier.
func (s *Store) Key() string {
	return s.key
}

// Reset replaces the entire list with a freshly loaded history. Used on
// conversation switch; the history query is ordered by creation time
// ascending.
func (s *Store) Reset(history []*models.Message) {
	s.list = make([]*models.Message, 0, len(history))
	s.seen = make(map[uuid.UUID]int, len(history))
	for _, m := range history {
		s.append(m)
	}
}

// AppendLocal records an optimistic local send before backend confirmation.
// The id is client-generated, so the realtime echo carrying the same id is
// dropped as a duplicate later.
func (s *Store) AppendLocal(m *models.Message) {
	s.append(m)
}

// ApplyEvent merges a realtime push. The message is dropped when it belongs
// to a different pair or its id is already present (the optimistic echo, or
// a duplicate delivery). Reports whether the list changed.
func (s *Store) ApplyEvent(m *models.Message) bool {
	if ConversationID(m.SenderID, m.ReceiverID) != s.key {
		return false
	}
	if _, dup := s.seen[m.ID]; dup {
		return false
	}
	s.append(m)
	return true
}

// Rollback removes a previously appended optimistic message after its
// backend confirmation failed, restoring the pre-send contents. Reports
// whether the id was present.
func (s *Store) Rollback(id uuid.UUID) bool {
	idx, ok := s.seen[id]
	if !ok {
		return false
	}
	s.list = append(s.list[:idx], s.list[idx+1:]...)
	delete(s.seen, id)
	for i := idx; i < len(s.list); i++ {
		s.seen[s.list[i].ID] = i
	}
	return true
}

// Messages returns the current list in arrival order. The caller must not
// mutate the returned slice.
func (s *Store) Messages() []*models.Message {
	return s.list
}

// Len reports the number of messages currently held.
func (s *Store) Len() int {
	return len(s.list)
}

func (s *Store) append(m *models.Message) {
	if _, dup := s.seen[m.ID]; dup {
		return
	}
	s.seen[m.ID] = len(s.list)
	s.list = append(s.list, m)
}
