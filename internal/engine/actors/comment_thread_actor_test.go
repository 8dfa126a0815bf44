package actors

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"darkroom/internal/backend"
	"darkroom/internal/models"
	"darkroom/internal/thread"
	"darkroom/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func spawnThreadActor(t *testing.T, db backend.Adapter) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewCommentThreadActor(db, testLogger())
	})
	return system, system.Root.Spawn(props)
}

func TestCommentThreadActor(t *testing.T) {
	db := backend.NewMemoryDB()
	authorID := uuid.New()
	photoID := uuid.New()

	err := db.InsertProfile(context.Background(), &models.Profile{
		ID:          authorID,
		DisplayName: "mallory",
	})
	require.NoError(t, err)

	system, pid := spawnThreadActor(t, db)

	// Root comment
	future := system.Root.RequestFuture(pid, &AddCommentMsg{
		PhotoID:  photoID,
		AuthorID: authorID,
		Body:     "great shot",
	}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)

	root, ok := result.(*models.Comment)
	require.True(t, ok, "unexpected response: %v", result)
	assert.Equal(t, "great shot", root.Body)
	assert.Equal(t, "mallory", root.AuthorName)
	assert.Nil(t, root.ParentID)

	// Reply nested under the root
	future = system.Root.RequestFuture(pid, &AddCommentMsg{
		PhotoID:  photoID,
		ParentID: &root.ID,
		AuthorID: authorID,
		Body:     "thanks",
	}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)

	reply := result.(*models.Comment)
	assert.Equal(t, root.ID, *reply.ParentID)

	// Derived tree groups the reply under the root
	future = system.Root.RequestFuture(pid, &GetThreadMsg{PhotoID: photoID}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)

	forest := result.([]*thread.Node)
	require.Len(t, forest, 1)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, reply.ID, forest[0].Children[0].ID)

	// Only the author may delete
	future = system.Root.RequestFuture(pid, &DeleteCommentMsg{
		PhotoID:   photoID,
		CommentID: root.ID,
		AuthorID:  uuid.New(),
	}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)

	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrUnauthorized, appErr.Code)

	// Deleting the root cascades to the reply
	future = system.Root.RequestFuture(pid, &DeleteCommentMsg{
		PhotoID:   photoID,
		CommentID: root.ID,
		AuthorID:  authorID,
	}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)

	deleted := result.(*DeleteResult)
	assert.ElementsMatch(t, []uuid.UUID{root.ID, reply.ID}, deleted.Removed)

	// Both the local view and the backend are empty afterwards
	future = system.Root.RequestFuture(pid, &GetThreadMsg{PhotoID: photoID}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	assert.Empty(t, result.([]*thread.Node))

	remaining, err := db.Comments(context.Background(), photoID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestCommentSnapshotsNameAtCreation(t *testing.T) {
	db := backend.NewMemoryDB()
	authorID := uuid.New()
	photoID := uuid.New()

	require.NoError(t, db.InsertProfile(context.Background(), &models.Profile{
		ID:          authorID,
		DisplayName: "early name",
	}))

	system, pid := spawnThreadActor(t, db)

	future := system.Root.RequestFuture(pid, &AddCommentMsg{
		PhotoID:  photoID,
		AuthorID: authorID,
		Body:     "before rename",
	}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	first := result.(*models.Comment)
	assert.Equal(t, "early name", first.AuthorName)

	require.NoError(t, db.UpdateProfile(context.Background(), &models.Profile{
		ID:          authorID,
		DisplayName: "later name",
	}))

	// A comment after the rename snapshots the current name, while the
	// earlier comment keeps the name it was created under.
	future = system.Root.RequestFuture(pid, &AddCommentMsg{
		PhotoID:  photoID,
		AuthorID: authorID,
		Body:     "after rename",
	}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	second := result.(*models.Comment)
	assert.Equal(t, "later name", second.AuthorName)

	stored, err := db.Comments(context.Background(), photoID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "early name", stored[0].AuthorName)
	assert.Equal(t, "later name", stored[1].AuthorName)
}

func TestCommentThreadDeleteUnknownComment(t *testing.T) {
	db := backend.NewMemoryDB()
	system, pid := spawnThreadActor(t, db)

	future := system.Root.RequestFuture(pid, &DeleteCommentMsg{
		PhotoID:   uuid.New(),
		CommentID: uuid.New(),
		AuthorID:  uuid.New(),
	}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)

	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrNotFound, appErr.Code)
}

func TestCommentThreadReplyTargetClearedByCascade(t *testing.T) {
	db := backend.NewMemoryDB()
	authorID := uuid.New()
	viewerID := uuid.New()
	photoID := uuid.New()

	system, pid := spawnThreadActor(t, db)

	future := system.Root.RequestFuture(pid, &AddCommentMsg{
		PhotoID:  photoID,
		AuthorID: authorID,
		Body:     "root",
	}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	root := result.(*models.Comment)

	future = system.Root.RequestFuture(pid, &AddCommentMsg{
		PhotoID:  photoID,
		ParentID: &root.ID,
		AuthorID: authorID,
		Body:     "reply",
	}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	reply := result.(*models.Comment)

	// Viewer starts composing a reply to the nested comment
	future = system.Root.RequestFuture(pid, &SetReplyTargetMsg{
		ViewerID:  viewerID,
		CommentID: reply.ID,
	}, 5*time.Second)
	_, err = future.Result()
	require.NoError(t, err)

	future = system.Root.RequestFuture(pid, &GetReplyTargetMsg{ViewerID: viewerID}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	target := result.(*ReplyTarget)
	assert.True(t, target.Set)
	assert.Equal(t, reply.ID, target.CommentID)

	// Deleting the ancestor removes the target and resets the composer
	future = system.Root.RequestFuture(pid, &DeleteCommentMsg{
		PhotoID:   photoID,
		CommentID: root.ID,
		AuthorID:  authorID,
	}, 5*time.Second)
	_, err = future.Result()
	require.NoError(t, err)

	future = system.Root.RequestFuture(pid, &GetReplyTargetMsg{ViewerID: viewerID}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	assert.False(t, result.(*ReplyTarget).Set)
}

func TestCommentThreadAppliesFeedEvents(t *testing.T) {
	db := backend.NewMemoryDB()
	photoID := uuid.New()

	system, pid := spawnThreadActor(t, db)

	// Make the photo's collection resident
	future := system.Root.RequestFuture(pid, &LoadThreadMsg{PhotoID: photoID}, 5*time.Second)
	_, err := future.Result()
	require.NoError(t, err)

	remote := &models.Comment{
		ID:         uuid.New(),
		PhotoID:    photoID,
		AuthorID:   uuid.New(),
		AuthorName: "peer",
		Body:       "from another session",
		CreatedAt:  time.Now(),
	}
	payload, err := json.Marshal(remote)
	require.NoError(t, err)

	ev := backend.Event{
		Channel: backend.CommentsChannel(photoID),
		Op:      backend.OpInsert,
		Payload: payload,
	}
	system.Root.Send(pid, &ApplyCommentEventMsg{Event: ev})
	// Duplicate delivery of the same record is dropped
	system.Root.Send(pid, &ApplyCommentEventMsg{Event: ev})

	future = system.Root.RequestFuture(pid, &GetThreadMsg{PhotoID: photoID}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)

	forest := result.([]*thread.Node)
	require.Len(t, forest, 1)
	assert.Equal(t, remote.ID, forest[0].ID)

	// A delete event prunes the local view the same way a local delete does
	ev.Op = backend.OpDelete
	system.Root.Send(pid, &ApplyCommentEventMsg{Event: ev})

	future = system.Root.RequestFuture(pid, &GetThreadMsg{PhotoID: photoID}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	assert.Empty(t, result.([]*thread.Node))
}
