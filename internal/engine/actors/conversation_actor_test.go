package actors

import (
	"context"
	"errors"
	"testing"
	"time"

	"darkroom/internal/backend"
	"darkroom/internal/models"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingSends refuses message persistence so optimistic sends roll back.
type failingSends struct {
	*backend.MemoryDB
}

func (f *failingSends) InsertMessage(ctx context.Context, m *models.Message) error {
	return errors.New("backend unavailable")
}

func spawnChatSupervisor(t *testing.T, db backend.Adapter) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewChatSupervisor(db, testLogger())
	})
	return system, system.Root.Spawn(props)
}

func getSnapshot(t *testing.T, system *actor.ActorSystem, pid *actor.PID, viewerID uuid.UUID) *ConversationSnapshot {
	t.Helper()
	snap := trySnapshot(system, pid, viewerID)
	require.NotNil(t, snap)
	return snap
}

// trySnapshot never fails the test, so it is safe inside Eventually
// conditions.
func trySnapshot(system *actor.ActorSystem, pid *actor.PID, viewerID uuid.UUID) *ConversationSnapshot {
	future := system.Root.RequestFuture(pid, &ViewerGetConversationMsg{ViewerID: viewerID}, 5*time.Second)
	result, err := future.Result()
	if err != nil {
		return nil
	}
	snap, ok := result.(*ConversationSnapshot)
	if !ok {
		return nil
	}
	return snap
}

func TestConversationOpenSendGet(t *testing.T) {
	db := backend.NewMemoryDB()
	viewerID := uuid.New()
	peerID := uuid.New()

	system, pid := spawnChatSupervisor(t, db)

	future := system.Root.RequestFuture(pid, &ViewerOpenConversationMsg{
		ViewerID: viewerID,
		PeerID:   peerID,
	}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)

	snap := result.(*ConversationSnapshot)
	assert.True(t, snap.Open)
	assert.Equal(t, peerID, snap.PeerID)
	assert.Empty(t, snap.Messages)

	future = system.Root.RequestFuture(pid, &ViewerSendMessageMsg{
		ViewerID: viewerID,
		Body:     "hey",
	}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)

	sent := result.(*models.Message)
	assert.Equal(t, viewerID, sent.SenderID)
	assert.Equal(t, peerID, sent.ReceiverID)

	// The optimistic record is visible immediately
	snap = getSnapshot(t, system, pid, viewerID)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, sent.ID, snap.Messages[0].ID)

	// Persistence confirms in the background; the realtime echo must not
	// duplicate the optimistic record.
	require.Eventually(t, func() bool {
		history, err := db.Conversation(context.Background(), viewerID, peerID)
		return err == nil && len(history) == 1
	}, 2*time.Second, 10*time.Millisecond)

	snap = getSnapshot(t, system, pid, viewerID)
	assert.Len(t, snap.Messages, 1)
	assert.Empty(t, snap.Err)
}

func TestConversationPeerReceivesRealtime(t *testing.T) {
	db := backend.NewMemoryDB()
	viewerID := uuid.New()
	peerID := uuid.New()

	system, pid := spawnChatSupervisor(t, db)

	for _, id := range []uuid.UUID{viewerID, peerID} {
		other := peerID
		if id == peerID {
			other = viewerID
		}
		future := system.Root.RequestFuture(pid, &ViewerOpenConversationMsg{
			ViewerID: id,
			PeerID:   other,
		}, 5*time.Second)
		_, err := future.Result()
		require.NoError(t, err)
	}

	future := system.Root.RequestFuture(pid, &ViewerSendMessageMsg{
		ViewerID: viewerID,
		Body:     "you there?",
	}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	sent := result.(*models.Message)

	require.Eventually(t, func() bool {
		snap := trySnapshot(system, pid, peerID)
		return snap != nil && len(snap.Messages) == 1 && snap.Messages[0].ID == sent.ID
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConversationHistoryLoadedOnOpen(t *testing.T) {
	db := backend.NewMemoryDB()
	viewerID := uuid.New()
	peerID := uuid.New()

	base := time.Now().Add(-time.Hour)
	for i, body := range []string{"first", "second"} {
		err := db.InsertMessage(context.Background(), &models.Message{
			ID:         uuid.New(),
			SenderID:   peerID,
			ReceiverID: viewerID,
			Body:       body,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	system, pid := spawnChatSupervisor(t, db)

	future := system.Root.RequestFuture(pid, &ViewerOpenConversationMsg{
		ViewerID: viewerID,
		PeerID:   peerID,
	}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)

	snap := result.(*ConversationSnapshot)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "first", snap.Messages[0].Body)
	assert.Equal(t, "second", snap.Messages[1].Body)
}

func TestConversationSwitchDropsOldPair(t *testing.T) {
	db := backend.NewMemoryDB()
	viewerID := uuid.New()
	firstPeer := uuid.New()
	secondPeer := uuid.New()

	system, pid := spawnChatSupervisor(t, db)

	future := system.Root.RequestFuture(pid, &ViewerOpenConversationMsg{
		ViewerID: viewerID,
		PeerID:   firstPeer,
	}, 5*time.Second)
	_, err := future.Result()
	require.NoError(t, err)

	future = system.Root.RequestFuture(pid, &ViewerOpenConversationMsg{
		ViewerID: viewerID,
		PeerID:   secondPeer,
	}, 5*time.Second)
	_, err = future.Result()
	require.NoError(t, err)

	// A message on the superseded pair must not surface in the new view.
	err = db.InsertMessage(context.Background(), &models.Message{
		ID:         uuid.New(),
		SenderID:   firstPeer,
		ReceiverID: viewerID,
		Body:       "too late",
		CreatedAt:  time.Now(),
	})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	snap := getSnapshot(t, system, pid, viewerID)
	assert.Equal(t, secondPeer, snap.PeerID)
	assert.Empty(t, snap.Messages)
}

func TestConversationSendRollback(t *testing.T) {
	db := &failingSends{MemoryDB: backend.NewMemoryDB()}
	viewerID := uuid.New()
	peerID := uuid.New()

	system, pid := spawnChatSupervisor(t, db)

	future := system.Root.RequestFuture(pid, &ViewerOpenConversationMsg{
		ViewerID: viewerID,
		PeerID:   peerID,
	}, 5*time.Second)
	_, err := future.Result()
	require.NoError(t, err)

	future = system.Root.RequestFuture(pid, &ViewerSendMessageMsg{
		ViewerID: viewerID,
		Body:     "doomed",
	}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)

	// Optimistic response arrives before the backend rejects the write
	sent, ok := result.(*models.Message)
	require.True(t, ok)
	assert.Equal(t, "doomed", sent.Body)

	require.Eventually(t, func() bool {
		snap := trySnapshot(system, pid, viewerID)
		return snap != nil && len(snap.Messages) == 0 && snap.Err != ""
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConversationClose(t *testing.T) {
	db := backend.NewMemoryDB()
	viewerID := uuid.New()

	system, pid := spawnChatSupervisor(t, db)

	future := system.Root.RequestFuture(pid, &ViewerOpenConversationMsg{
		ViewerID: viewerID,
		PeerID:   uuid.New(),
	}, 5*time.Second)
	_, err := future.Result()
	require.NoError(t, err)

	future = system.Root.RequestFuture(pid, &ViewerCloseConversationMsg{ViewerID: viewerID}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	assert.True(t, result.(*models.StatusResponse).Success)

	snap := getSnapshot(t, system, pid, viewerID)
	assert.False(t, snap.Open)
	assert.Empty(t, snap.Messages)
}
