package actors

import (
	"log/slog"
	"sync"
	"time"

	"darkroom/internal/backend"
	"darkroom/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Envelope messages routed by the supervisor to a viewer's conversation
// actor.
type (
	ViewerOpenConversationMsg struct {
		ViewerID uuid.UUID `json:"viewerId"`
		PeerID   uuid.UUID `json:"peerId"`
	}

	ViewerSendMessageMsg struct {
		ViewerID uuid.UUID `json:"viewerId"`
		Body     string    `json:"body"`
	}

	ViewerGetConversationMsg struct {
		ViewerID uuid.UUID `json:"viewerId"`
	}

	ViewerCloseConversationMsg struct {
		ViewerID uuid.UUID `json:"viewerId"`
	}
)

// ChatSupervisor spawns one ConversationActor per signed-in viewer on
// demand and routes conversation requests to it. Each viewer's view state
// is owned exclusively by their actor.
type ChatSupervisor struct {
	conversations map[uuid.UUID]*actor.PID
	mu            sync.RWMutex
	db            backend.Adapter
	logger        *slog.Logger
}

func NewChatSupervisor(db backend.Adapter, logger *slog.Logger) actor.Actor {
	return &ChatSupervisor{
		conversations: make(map[uuid.UUID]*actor.PID),
		db:            db,
		logger:        logger,
	}
}

func (s *ChatSupervisor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *ViewerOpenConversationMsg:
		s.forward(context, msg.ViewerID, &OpenConversationMsg{PeerID: msg.PeerID})

	case *ViewerSendMessageMsg:
		s.forward(context, msg.ViewerID, &SendMessageMsg{Body: msg.Body})

	case *ViewerGetConversationMsg:
		s.forward(context, msg.ViewerID, &GetConversationMsg{})

	case *ViewerCloseConversationMsg:
		s.forward(context, msg.ViewerID, &CloseConversationMsg{})
	}
}

func (s *ChatSupervisor) forward(context actor.Context, viewerID uuid.UUID, inner interface{}) {
	pid := s.viewerActor(context, viewerID)

	future := context.RequestFuture(pid, inner, 5*time.Second)
	result, err := future.Result()
	if err != nil {
		s.logger.Warn("conversation actor request failed", "viewer", viewerID, "error", err)
		context.Respond(utils.NewAppError(utils.ErrActorTimeout, "conversation request timed out", err))
		return
	}
	context.Respond(result)
}

func (s *ChatSupervisor) viewerActor(context actor.Context, viewerID uuid.UUID) *actor.PID {
	s.mu.RLock()
	pid, exists := s.conversations[viewerID]
	s.mu.RUnlock()
	if exists {
		return pid
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewConversationActor(viewerID, s.db, s.logger)
	})
	pid = context.Spawn(props)

	s.mu.Lock()
	s.conversations[viewerID] = pid
	s.mu.Unlock()

	return pid
}
