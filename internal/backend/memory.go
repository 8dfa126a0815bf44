package backend

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"darkroom/internal/chat"
	"darkroom/internal/models"
	"darkroom/internal/thread"
	"darkroom/internal/utils"

	"github.com/google/uuid"
)

// MemoryDB is the in-memory Adapter used by tests and local development. It
// mirrors the backing service's semantics, including cascading comment
// deletes and change-feed publication after confirmed writes.
type MemoryDB struct {
	mu       sync.RWMutex
	photos   map[uuid.UUID]*models.Photo
	comments map[uuid.UUID]*models.Comment
	messages map[uuid.UUID]*models.Message
	profiles map[uuid.UUID]*models.Profile
	accounts map[uuid.UUID]*models.Account
	feed     *feed
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		photos:   make(map[uuid.UUID]*models.Photo),
		comments: make(map[uuid.UUID]*models.Comment),
		messages: make(map[uuid.UUID]*models.Message),
		profiles: make(map[uuid.UUID]*models.Profile),
		accounts: make(map[uuid.UUID]*models.Account),
		feed:     newFeed(),
	}
}

func (m *MemoryDB) Close(ctx context.Context) error {
	return nil
}

func (m *MemoryDB) Photos(ctx context.Context) ([]*models.Photo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Photo, 0, len(m.photos))
	for _, p := range m.photos {
		cp := *p
		out = append(out, &cp)
	}
	// Gallery grid shows newest first.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryDB) Photo(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.photos[id]
	if !ok {
		return nil, utils.NewNotFoundError("photo")
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryDB) InsertPhoto(ctx context.Context, p *models.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.photos[p.ID]; exists {
		return utils.NewAppError(utils.ErrDuplicate, "photo already exists", nil)
	}
	cp := *p
	m.photos[p.ID] = &cp
	return nil
}

func (m *MemoryDB) Comments(ctx context.Context, photoID uuid.UUID) ([]*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Comment, 0)
	for _, c := range m.comments {
		if c.PhotoID == photoID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryDB) InsertComment(ctx context.Context, c *models.Comment) error {
	m.mu.Lock()
	if _, exists := m.comments[c.ID]; exists {
		m.mu.Unlock()
		return utils.NewAppError(utils.ErrDuplicate, "comment already exists", nil)
	}
	cp := *c
	m.comments[c.ID] = &cp
	m.mu.Unlock()

	m.publishRecord(CommentsChannel(c.PhotoID), OpInsert, c)
	return nil
}

func (m *MemoryDB) DeleteComment(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	target, ok := m.comments[id]
	if !ok {
		m.mu.Unlock()
		return utils.NewNotFoundError("comment")
	}

	flat := make([]*models.Comment, 0, len(m.comments))
	for _, c := range m.comments {
		flat = append(flat, c)
	}
	removed := thread.Descendants(id, flat)
	for rid := range removed {
		delete(m.comments, rid)
	}
	m.mu.Unlock()

	// One delete event for the target; subscribers run the cascade
	// resolver locally.
	m.publishRecord(CommentsChannel(target.PhotoID), OpDelete, target)
	return nil
}

func (m *MemoryDB) Conversation(ctx context.Context, a, b uuid.UUID) ([]*models.Message, error) {
	key := chat.ConversationID(a, b)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Message, 0)
	for _, msg := range m.messages {
		if chat.ConversationID(msg.SenderID, msg.ReceiverID) == key {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryDB) InsertMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	if _, exists := m.messages[msg.ID]; exists {
		m.mu.Unlock()
		return utils.NewAppError(utils.ErrDuplicate, "message already exists", nil)
	}
	cp := *msg
	m.messages[msg.ID] = &cp
	m.mu.Unlock()

	m.publishRecord(chat.ConversationID(msg.SenderID, msg.ReceiverID), OpInsert, msg)
	return nil
}

func (m *MemoryDB) Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, utils.NewNotFoundError("profile")
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryDB) InsertProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[p.ID]; exists {
		return utils.NewAppError(utils.ErrDuplicate, "profile already exists", nil)
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *MemoryDB) UpdateProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[p.ID]; !exists {
		return utils.NewNotFoundError("profile")
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *MemoryDB) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrAccountNotFound, "account not found", nil)
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryDB) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, utils.NewAppError(utils.ErrAccountNotFound, "account not found", nil)
}

func (m *MemoryDB) InsertAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return utils.NewAppError(utils.ErrAccountAlreadyExists, "email already registered", nil)
		}
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *MemoryDB) Subscribe(channel string) (<-chan Event, func()) {
	return m.feed.subscribe(channel)
}

func (m *MemoryDB) publishRecord(channel, op string, record any) {
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	m.feed.publish(Event{Channel: channel, Op: op, Payload: payload})
}
