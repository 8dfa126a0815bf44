// Package engine spawns and owns the actor system's top-level actors.
package engine

import (
	"log/slog"

	"darkroom/internal/backend"
	"darkroom/internal/engine/actors"

	"github.com/asynkron/protoactor-go/actor"
)

type Engine struct {
	threadActor    *actor.PID
	chatSupervisor *actor.PID
}

func NewEngine(system *actor.ActorSystem, db backend.Adapter, logger *slog.Logger) *Engine {
	context := system.Root

	threadProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewCommentThreadActor(db, logger)
	})
	threadPID := context.Spawn(threadProps)

	chatProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewChatSupervisor(db, logger)
	})
	chatPID := context.Spawn(chatProps)

	return &Engine{
		threadActor:    threadPID,
		chatSupervisor: chatPID,
	}
}

// GetThreadActor returns the PID of the comment thread actor
func (e *Engine) GetThreadActor() *actor.PID {
	return e.threadActor
}

// GetChatSupervisor returns the PID of the chat supervisor
func (e *Engine) GetChatSupervisor() *actor.PID {
	return e.chatSupervisor
}
