// Package backend is the data-access capability the rest of the system is
// injected with: filtered reads, inserts, updates and deletes against the
// backing collections, plus a change-feed subscription scoped by channel.
// Components depend on the Adapter interface, never on a concrete client, so
// tests substitute the in-memory implementation.
package backend

import (
	"context"
	"encoding/json"
	"sync"

	"darkroom/internal/models"

	"github.com/google/uuid"
)

// Event ops carried on the change feed.
const (
	OpInsert = "insert"
	OpDelete = "delete"
)

// Event is one change-feed notification. Payload is the JSON encoding of
// the changed record; consumers parse it at the boundary.
type Event struct {
	Channel string `json:"channel"`
	Op      string `json:"op"`
	Payload []byte `json:"payload"`
}

// CommentsChannel names the realtime feed for one photo's comment thread.
func CommentsChannel(photoID uuid.UUID) string {
	return "comments:" + photoID.String()
}

// ChannelAll subscribes to every event regardless of channel. It is used by
// the realtime bridge that forwards changes to connected clients.
const ChannelAll = "*"

// Adapter is the injected backing-store capability.
type Adapter interface {
	Close(ctx context.Context) error

	// Photos
	Photos(ctx context.Context) ([]*models.Photo, error)
	Photo(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	InsertPhoto(ctx context.Context, p *models.Photo) error

	// Comments. Reads are filtered to one photo and ordered by creation
	// time ascending. DeleteComment removes the target and, in the backing
	// store, its descendants; the local view prunes via the cascade
	// resolver without re-fetching.
	Comments(ctx context.Context, photoID uuid.UUID) ([]*models.Comment, error)
	InsertComment(ctx context.Context, c *models.Comment) error
	DeleteComment(ctx context.Context, id uuid.UUID) error

	// Messages. Conversation returns both directions of the pair, ordered
	// by creation time ascending.
	Conversation(ctx context.Context, a, b uuid.UUID) ([]*models.Message, error)
	InsertMessage(ctx context.Context, m *models.Message) error

	// Profiles
	Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	InsertProfile(ctx context.Context, p *models.Profile) error
	UpdateProfile(ctx context.Context, p *models.Profile) error

	// Accounts (identity provider storage)
	Account(ctx context.Context, id uuid.UUID) (*models.Account, error)
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	InsertAccount(ctx context.Context, a *models.Account) error

	// Subscribe opens a change feed scoped to one channel. The cancel func
	// tears the subscription down; after it returns no further events are
	// delivered on the channel.
	Subscribe(channel string) (<-chan Event, func())
}

// DecodeComment parses a comment record off the change feed.
func DecodeComment(ev Event) (*models.Comment, error) {
	var c models.Comment
	if err := json.Unmarshal(ev.Payload, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DecodeMessage parses a message record off the change feed.
func DecodeMessage(ev Event) (*models.Message, error) {
	var m models.Message
	if err := json.Unmarshal(ev.Payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// feed fans change events out to per-channel subscribers. Slow subscribers
// drop events rather than block the publisher.
type feed struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func newFeed() *feed {
	return &feed{subs: make(map[string]map[chan Event]struct{})}
}

func (f *feed) subscribe(channel string) (<-chan Event, func()) {
	ch := make(chan Event, 64)

	f.mu.Lock()
	if _, ok := f.subs[channel]; !ok {
		f.subs[channel] = make(map[chan Event]struct{})
	}
	f.subs[channel][ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			if set, ok := f.subs[channel]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(f.subs, channel)
				}
			}
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (f *feed) publish(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subs[ev.Channel] {
		select {
		case ch <- ev:
		default:
		}
	}
	for ch := range f.subs[ChannelAll] {
		select {
		case ch <- ev:
		default:
		}
	}
}
