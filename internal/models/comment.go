package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a single row from the comments collection. AuthorName is a
// snapshot captured at creation time and is never re-derived from the
// author's current profile.
type Comment struct {
	ID         uuid.UUID  `json:"id" db:"id" bson:"_id"`
	PhotoID    uuid.UUID  `json:"photoId" db:"photo_id" bson:"photo_id"`
	ParentID   *uuid.UUID `json:"parentId,omitempty" db:"parent_id" bson:"parent_id,omitempty"`
	AuthorID   uuid.UUID  `json:"authorId" db:"author_id" bson:"author_id"`
	AuthorName string     `json:"authorName" db:"author_name" bson:"author_name"`
	Body       string     `json:"body" db:"body" bson:"body"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at" bson:"created_at"`
}
