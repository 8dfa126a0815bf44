package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct message between two members. The ID is generated on
// the sender's side at send time so the optimistic local copy and the
// authoritative realtime echo carry the same identifier.
type Message struct {
	ID         uuid.UUID `json:"id" db:"id" bson:"_id"`
	SenderID   uuid.UUID `json:"senderId" db:"sender_id" bson:"sender_id"`
	ReceiverID uuid.UUID `json:"receiverId" db:"receiver_id" bson:"receiver_id"`
	Body       string    `json:"body" db:"body" bson:"body"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at" bson:"created_at"`
}
