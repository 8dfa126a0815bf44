package models

import (
	"time"

	"github.com/google/uuid"
)

// Photo is an entry in the gallery grid. ContentID identifies the stored
// image at the delivery host; display URLs are derived from it per request.
type Photo struct {
	ID        uuid.UUID `json:"id" db:"id" bson:"_id"`
	OwnerID   uuid.UUID `json:"ownerId" db:"owner_id" bson:"owner_id"`
	ContentID string    `json:"contentId" db:"content_id" bson:"content_id"`
	Caption   string    `json:"caption" db:"caption" bson:"caption"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"created_at"`
}

// StatusResponse is the generic success/failure envelope for mutations.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
