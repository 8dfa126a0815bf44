package actors

import (
	stdctx "context"
	"log/slog"
	"time"

	"darkroom/internal/backend"
	"darkroom/internal/models"
	"darkroom/internal/thread"
	"darkroom/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for CommentThreadActor
type (
	LoadThreadMsg struct {
		PhotoID uuid.UUID `json:"photoId"`
	}

	GetThreadMsg struct {
		PhotoID uuid.UUID `json:"photoId"`
	}

	AddCommentMsg struct {
		PhotoID  uuid.UUID  `json:"photoId"`
		ParentID *uuid.UUID `json:"parentId,omitempty"`
		AuthorID uuid.UUID  `json:"authorId"`
		Body     string     `json:"body"`
	}

	DeleteCommentMsg struct {
		PhotoID   uuid.UUID `json:"photoId"`
		CommentID uuid.UUID `json:"commentId"`
		AuthorID  uuid.UUID `json:"authorId"`
	}

	SetReplyTargetMsg struct {
		ViewerID  uuid.UUID `json:"viewerId"`
		CommentID uuid.UUID `json:"commentId"`
	}

	GetReplyTargetMsg struct {
		ViewerID uuid.UUID `json:"viewerId"`
	}

	// ApplyCommentEventMsg feeds a change-feed event into the local view.
	ApplyCommentEventMsg struct {
		Event backend.Event
	}

	// DeleteResult reports which comment ids the cascade removed.
	DeleteResult struct {
		Removed []uuid.UUID `json:"removed"`
	}

	// ReplyTarget is the response to GetReplyTargetMsg.
	ReplyTarget struct {
		CommentID uuid.UUID `json:"commentId"`
		Set       bool      `json:"set"`
	}
)

// CommentThreadActor owns the flat comment collections, one per photo, and
// derives reply trees on demand. All mutation of the flat collections
// happens inside this actor; the tree builder and cascade resolver stay
// pure.
type CommentThreadActor struct {
	db      backend.Adapter
	logger  *slog.Logger
	threads map[uuid.UUID][]*models.Comment // photo id -> flat collection

	// Currently selected reply target per viewer; cleared when the target
	// is removed by a cascade.
	replyTargets map[uuid.UUID]uuid.UUID
}

func NewCommentThreadActor(db backend.Adapter, logger *slog.Logger) actor.Actor {
	return &CommentThreadActor{
		db:           db,
		logger:       logger,
		threads:      make(map[uuid.UUID][]*models.Comment),
		replyTargets: make(map[uuid.UUID]uuid.UUID),
	}
}

func (a *CommentThreadActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.logger.Debug("comment thread actor started", "pid", context.Self().String())

	case *LoadThreadMsg:
		a.handleLoadThread(context, msg)

	case *GetThreadMsg:
		a.handleGetThread(context, msg)

	case *AddCommentMsg:
		a.handleAddComment(context, msg)

	case *DeleteCommentMsg:
		a.handleDeleteComment(context, msg)

	case *SetReplyTargetMsg:
		a.replyTargets[msg.ViewerID] = msg.CommentID
		context.Respond(&models.StatusResponse{Success: true})

	case *GetReplyTargetMsg:
		id, ok := a.replyTargets[msg.ViewerID]
		context.Respond(&ReplyTarget{CommentID: id, Set: ok})

	case *ApplyCommentEventMsg:
		a.handleCommentEvent(msg.Event)
	}
}

// displayName resolves the snapshot name for a new comment. The profile is
// read fresh every time so the snapshot reflects the name at creation, not
// the name at some earlier comment's creation.
func (a *CommentThreadActor) displayName(ctx stdctx.Context, userID uuid.UUID) string {
	prof, err := a.db.Profile(ctx, userID)
	if err != nil || prof.DisplayName == "" {
		return "[unknown]"
	}
	return prof.DisplayName
}

func (a *CommentThreadActor) handleLoadThread(context actor.Context, msg *LoadThreadMsg) {
	ctx := stdctx.Background()

	comments, err := a.db.Comments(ctx, msg.PhotoID)
	if err != nil {
		context.Respond(utils.NewDataAccessError("load comments", err))
		return
	}

	a.threads[msg.PhotoID] = comments
	context.Respond(thread.Build(comments))
}

func (a *CommentThreadActor) handleGetThread(context actor.Context, msg *GetThreadMsg) {
	flat, ok := a.threads[msg.PhotoID]
	if !ok {
		a.handleLoadThread(context, &LoadThreadMsg{PhotoID: msg.PhotoID})
		return
	}
	context.Respond(thread.Build(flat))
}

func (a *CommentThreadActor) handleAddComment(context actor.Context, msg *AddCommentMsg) {
	ctx := stdctx.Background()

	newComment := &models.Comment{
		ID:         uuid.New(),
		PhotoID:    msg.PhotoID,
		ParentID:   msg.ParentID,
		AuthorID:   msg.AuthorID,
		AuthorName: a.displayName(ctx, msg.AuthorID),
		Body:       msg.Body,
		CreatedAt:  time.Now(),
	}

	if err := a.db.InsertComment(ctx, newComment); err != nil {
		a.logger.Warn("comment insert failed", "photo", msg.PhotoID, "error", err)
		context.Respond(utils.NewDataAccessError("save comment", err))
		return
	}

	if flat, ok := a.threads[msg.PhotoID]; ok {
		a.threads[msg.PhotoID] = append(flat, newComment)
	}
	context.Respond(newComment)
}

func (a *CommentThreadActor) handleDeleteComment(context actor.Context, msg *DeleteCommentMsg) {
	flat, ok := a.threads[msg.PhotoID]
	if !ok {
		ctx := stdctx.Background()
		loaded, err := a.db.Comments(ctx, msg.PhotoID)
		if err != nil {
			context.Respond(utils.NewDataAccessError("load comments", err))
			return
		}
		a.threads[msg.PhotoID] = loaded
		flat = loaded
	}

	var target *models.Comment
	for _, c := range flat {
		if c.ID == msg.CommentID {
			target = c
			break
		}
	}
	if target == nil {
		context.Respond(utils.NewNotFoundError("comment"))
		return
	}
	if target.AuthorID != msg.AuthorID {
		context.Respond(utils.NewUnauthorizedError("only the author may delete a comment"))
		return
	}

	// Remote delete must succeed before the local prune; pruning first
	// would desynchronize the view from the store on reload.
	ctx := stdctx.Background()
	if err := a.db.DeleteComment(ctx, msg.CommentID); err != nil {
		a.logger.Warn("comment delete failed", "comment", msg.CommentID, "error", err)
		context.Respond(utils.NewDataAccessError("delete comment", err))
		return
	}

	removed := a.prune(msg.PhotoID, msg.CommentID)
	context.Respond(&DeleteResult{Removed: removed})
}

// prune removes the target's subtree from the local flat collection and
// clears any reply target that pointed into it.
func (a *CommentThreadActor) prune(photoID, commentID uuid.UUID) []uuid.UUID {
	flat, ok := a.threads[photoID]
	if !ok {
		return nil
	}

	removedSet, remaining := thread.Prune(commentID, flat)
	a.threads[photoID] = remaining

	for viewer, target := range a.replyTargets {
		if _, gone := removedSet[target]; gone {
			delete(a.replyTargets, viewer)
		}
	}

	removed := make([]uuid.UUID, 0, len(removedSet))
	for id := range removedSet {
		removed = append(removed, id)
	}
	return removed
}

// handleCommentEvent applies a change-feed event from another writer.
// Inserts append when the photo's collection is resident and the id is new;
// deletes run the same cascade as a local delete.
func (a *CommentThreadActor) handleCommentEvent(ev backend.Event) {
	c, err := backend.DecodeComment(ev)
	if err != nil {
		a.logger.Warn("dropping malformed comment event", "error", err)
		return
	}

	switch ev.Op {
	case backend.OpInsert:
		flat, ok := a.threads[c.PhotoID]
		if !ok {
			return
		}
		for _, existing := range flat {
			if existing.ID == c.ID {
				return
			}
		}
		a.threads[c.PhotoID] = append(flat, c)

	case backend.OpDelete:
		a.prune(c.PhotoID, c.ID)
	}
}
