package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the stored profile record for an account. Exactly one profile
// exists per account; it is created lazily on first sign-in. DisplayName and
// AvatarURL are empty until the member sets them or the hydrator back-fills
// them from identity-provider defaults.
type Profile struct {
	ID          uuid.UUID `json:"id" db:"id" bson:"_id"`
	DisplayName string    `json:"displayName" db:"display_name" bson:"display_name"`
	AvatarURL   string    `json:"avatarUrl" db:"avatar_url" bson:"avatar_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at" bson:"updated_at"`
}

// Account is an authentication record owned by the identity provider.
type Account struct {
	ID             uuid.UUID `json:"id" db:"id" bson:"_id"`
	Email          string    `json:"email" db:"email" bson:"email"`
	HashedPassword string    `json:"-" db:"password_hash" bson:"password_hash"`
	Name           string    `json:"name" db:"name" bson:"name"`
	Picture        string    `json:"picture" db:"picture" bson:"picture"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at" bson:"created_at"`
}
