package chat

import (
	"testing"
	"time"

	"darkroom/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newMessage(from, to uuid.UUID, body string) *models.Message {
	return &models.Message{
		ID:         uuid.New(),
		SenderID:   from,
		ReceiverID: to,
		Body:       body,
		CreatedAt:  time.Now(),
	}
}

func TestStoreResetReplacesHistory(t *testing.T) {
	me := uuid.New()
	peer := uuid.New()
	store := NewStore(me, peer)

	store.AppendLocal(newMessage(me, peer, "stale"))

	history := []*models.Message{
		newMessage(peer, me, "hello"),
		newMessage(me, peer, "hi"),
	}
	store.Reset(history)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, "hello", store.Messages()[0].Body)
	assert.Equal(t, "hi", store.Messages()[1].Body)
}

func TestStoreDeduplicatesOptimisticEcho(t *testing.T) {
	me := uuid.New()
	peer := uuid.New()
	store := NewStore(me, peer)

	sent := newMessage(me, peer, "on my way")
	store.AppendLocal(sent)

	// Realtime pushes the authoritative copy with the same id.
	echo := &models.Message{
		ID:         sent.ID,
		SenderID:   sent.SenderID,
		ReceiverID: sent.ReceiverID,
		Body:       sent.Body,
		CreatedAt:  sent.CreatedAt,
	}
	changed := store.ApplyEvent(echo)

	assert.False(t, changed)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, sent.ID, store.Messages()[0].ID)
}

func TestStoreDropsDuplicateDeliveries(t *testing.T) {
	me := uuid.New()
	peer := uuid.New()
	store := NewStore(me, peer)

	incoming := newMessage(peer, me, "ping")
	assert.True(t, store.ApplyEvent(incoming))
	assert.False(t, store.ApplyEvent(incoming))
	assert.Equal(t, 1, store.Len())
}

func TestStoreIgnoresOtherConversations(t *testing.T) {
	me := uuid.New()
	peer := uuid.New()
	stranger := uuid.New()
	store := NewStore(me, peer)

	assert.False(t, store.ApplyEvent(newMessage(stranger, me, "wrong pair")))
	assert.False(t, store.ApplyEvent(newMessage(stranger, peer, "also wrong")))
	assert.Equal(t, 0, store.Len())
}

func TestStoreAcceptsBothDirections(t *testing.T) {
	me := uuid.New()
	peer := uuid.New()
	store := NewStore(me, peer)

	assert.True(t, store.ApplyEvent(newMessage(me, peer, "out")))
	assert.True(t, store.ApplyEvent(newMessage(peer, me, "in")))
	assert.Equal(t, 2, store.Len())
}

func TestStoreRollbackRestoresPreSendContents(t *testing.T) {
	me := uuid.New()
	peer := uuid.New()
	store := NewStore(me, peer)

	store.Reset([]*models.Message{
		newMessage(peer, me, "one"),
		newMessage(me, peer, "two"),
	})
	before := make([]uuid.UUID, 0, store.Len())
	for _, m := range store.Messages() {
		before = append(before, m.ID)
	}

	failed := newMessage(me, peer, "never lands")
	store.AppendLocal(failed)
	assert.Equal(t, 3, store.Len())

	assert.True(t, store.Rollback(failed.ID))

	after := make([]uuid.UUID, 0, store.Len())
	for _, m := range store.Messages() {
		after = append(after, m.ID)
	}
	assert.Equal(t, before, after)

	// Rolling back twice is a no-op.
	assert.False(t, store.Rollback(failed.ID))
}

func TestStoreRollbackMidListKeepsDedup(t *testing.T) {
	me := uuid.New()
	peer := uuid.New()
	store := NewStore(me, peer)

	first := newMessage(me, peer, "first")
	second := newMessage(me, peer, "second")
	third := newMessage(peer, me, "third")
	store.AppendLocal(first)
	store.AppendLocal(second)
	assert.True(t, store.ApplyEvent(third))

	assert.True(t, store.Rollback(second.ID))
	assert.Equal(t, 2, store.Len())

	// Index bookkeeping survives the removal: third is still a known id.
	assert.False(t, store.ApplyEvent(third))
	assert.Equal(t, []*models.Message{first, third}, store.Messages())
}
