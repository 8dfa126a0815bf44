package actors

import (
	stdctx "context"
	"log/slog"
	"time"

	"darkroom/internal/backend"
	"darkroom/internal/chat"
	"darkroom/internal/models"
	"darkroom/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for ConversationActor
type (
	OpenConversationMsg struct {
		PeerID uuid.UUID `json:"peerId"`
	}

	SendMessageMsg struct {
		Body string `json:"body"`
	}

	GetConversationMsg struct{}

	CloseConversationMsg struct{}

	// ConversationSnapshot is the observable state of the active
	// conversation. Err carries the last optimistic-send failure.
	ConversationSnapshot struct {
		PeerID   uuid.UUID         `json:"peerId"`
		Open     bool              `json:"open"`
		Messages []*models.Message `json:"messages"`
		Err      string            `json:"error,omitempty"`
	}

	// feedEventMsg delivers one change-feed event tagged with the
	// subscription epoch it came from.
	feedEventMsg struct {
		epoch uint64
		event backend.Event
	}

	// sendResultMsg reports the backend confirmation of an optimistic send.
	sendResultMsg struct {
		messageID uuid.UUID
		err       error
	}
)

// ConversationActor owns one member's active direct-message view: the
// reconciliation store for the current pair and the realtime subscription
// scoped to it. Switching conversations tears the old subscription down and
// bumps the epoch, so a stale feed can never deliver into the new list.
type ConversationActor struct {
	viewerID uuid.UUID
	db       backend.Adapter
	logger   *slog.Logger

	peerID     uuid.UUID
	store      *chat.Store
	cancelFeed func()
	epoch      uint64
	lastErr    string
}

func NewConversationActor(viewerID uuid.UUID, db backend.Adapter, logger *slog.Logger) actor.Actor {
	return &ConversationActor{
		viewerID: viewerID,
		db:       db,
		logger:   logger,
	}
}

func (a *ConversationActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *OpenConversationMsg:
		a.handleOpen(context, msg)

	case *SendMessageMsg:
		a.handleSend(context, msg)

	case *GetConversationMsg:
		context.Respond(a.snapshot())

	case *CloseConversationMsg:
		a.teardown()
		context.Respond(&models.StatusResponse{Success: true})

	case *feedEventMsg:
		a.handleFeedEvent(msg)

	case *sendResultMsg:
		a.handleSendResult(msg)

	case *actor.Stopping:
		a.teardown()
	}
}

func (a *ConversationActor) snapshot() *ConversationSnapshot {
	snap := &ConversationSnapshot{
		PeerID: a.peerID,
		Open:   a.store != nil,
		Err:    a.lastErr,
	}
	if a.store != nil {
		snap.Messages = a.store.Messages()
	}
	return snap
}

// teardown cancels the active subscription and bumps the epoch so any event
// already in flight from the old feed is discarded on arrival.
func (a *ConversationActor) teardown() {
	if a.cancelFeed != nil {
		a.cancelFeed()
		a.cancelFeed = nil
	}
	a.epoch++
	a.store = nil
	a.peerID = uuid.Nil
	a.lastErr = ""
}

func (a *ConversationActor) handleOpen(context actor.Context, msg *OpenConversationMsg) {
	a.teardown()

	store := chat.NewStore(a.viewerID, msg.PeerID)

	ctx := stdctx.Background()
	history, err := a.db.Conversation(ctx, a.viewerID, msg.PeerID)
	if err != nil {
		context.Respond(utils.NewDataAccessError("load conversation", err))
		return
	}
	store.Reset(history)

	a.store = store
	a.peerID = msg.PeerID

	events, cancel := a.db.Subscribe(store.Key())
	a.cancelFeed = cancel

	epoch := a.epoch
	self := context.Self()
	root := context.ActorSystem().Root
	go func() {
		for ev := range events {
			root.Send(self, &feedEventMsg{epoch: epoch, event: ev})
		}
	}()

	context.Respond(a.snapshot())
}

func (a *ConversationActor) handleSend(context actor.Context, msg *SendMessageMsg) {
	if a.store == nil {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "no conversation open", nil))
		return
	}

	// Optimistic append with a locally generated id: the sender sees the
	// message immediately, and the realtime echo deduplicates against it.
	outgoing := &models.Message{
		ID:         uuid.New(),
		SenderID:   a.viewerID,
		ReceiverID: a.peerID,
		Body:       msg.Body,
		CreatedAt:  time.Now(),
	}
	a.store.AppendLocal(outgoing)
	context.Respond(outgoing)

	self := context.Self()
	root := context.ActorSystem().Root
	db := a.db
	go func() {
		ctx, cancel := stdctx.WithTimeout(stdctx.Background(), 10*time.Second)
		defer cancel()
		err := db.InsertMessage(ctx, outgoing)
		root.Send(self, &sendResultMsg{messageID: outgoing.ID, err: err})
	}()
}

func (a *ConversationActor) handleSendResult(msg *sendResultMsg) {
	if msg.err == nil {
		return
	}
	// Confirmation failed: remove the optimistic record and surface the
	// error. The composed text is not restored.
	if a.store != nil {
		a.store.Rollback(msg.messageID)
	}
	a.lastErr = utils.NewAppError(utils.ErrSendRollback, "message could not be sent", msg.err).Error()
	a.logger.Warn("optimistic send rolled back", "viewer", a.viewerID, "message", msg.messageID, "error", msg.err)
}

func (a *ConversationActor) handleFeedEvent(msg *feedEventMsg) {
	// Events from a superseded subscription are dropped unseen.
	if msg.epoch != a.epoch || a.store == nil {
		return
	}
	if msg.event.Op != backend.OpInsert {
		return
	}

	m, err := backend.DecodeMessage(msg.event)
	if err != nil {
		a.logger.Warn("dropping malformed message event", "error", err)
		return
	}
	a.store.ApplyEvent(m)
}
