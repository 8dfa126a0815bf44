package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"darkroom/internal/chat"
	"darkroom/internal/models"
	"darkroom/internal/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Single NOTIFY channel; logical channels travel in the envelope because
// Postgres channel names are too short for uuid-pair keys.
const notifyChannel = "darkroom_events"

type eventEnvelope struct {
	Channel string          `json:"channel"`
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload"`
}

// PostgresDB is the Adapter backed by PostgreSQL. The change feed rides on
// LISTEN/NOTIFY so every service instance sees writes from every other.
type PostgresDB struct {
	DB       *sqlx.DB
	logger   *slog.Logger
	listener *pq.Listener
	feed     *feed
}

// NewPostgresDB connects, verifies the connection, and starts the
// notification listener.
func NewPostgresDB(connectionString string, logger *slog.Logger) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %v", err)
	}

	p := &PostgresDB{
		DB:     db,
		logger: logger,
		feed:   newFeed(),
	}

	p.listener = pq.NewListener(connectionString, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Warn("postgres listener event", "event", ev, "error", err)
			}
		})
	if err := p.listener.Listen(notifyChannel); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to LISTEN on %s: %v", notifyChannel, err)
	}
	go p.pump()

	logger.Info("connected to PostgreSQL")
	return p, nil
}

// pump forwards NOTIFY payloads into the local feed.
func (p *PostgresDB) pump() {
	for n := range p.listener.Notify {
		if n == nil {
			// Connection re-established; subscribers may have missed
			// events, which the append-only stores tolerate.
			continue
		}
		var env eventEnvelope
		if err := json.Unmarshal([]byte(n.Extra), &env); err != nil {
			p.logger.Warn("dropping malformed notification", "error", err)
			continue
		}
		p.feed.publish(Event{Channel: env.Channel, Op: env.Op, Payload: env.Payload})
	}
}

func (p *PostgresDB) Close(ctx context.Context) error {
	if p.listener != nil {
		p.listener.Close()
	}
	return p.DB.Close()
}

// InitializeTables creates the schema if it does not exist. Comment rows
// cascade on delete so a single remote delete removes the whole subtree.
func (p *PostgresDB) InitializeTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY,
			email VARCHAR(100) UNIQUE NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			name VARCHAR(100) NOT NULL DEFAULT '',
			picture VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY REFERENCES accounts(id),
			display_name VARCHAR(100) NOT NULL DEFAULT '',
			avatar_url VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS photos (
			id UUID PRIMARY KEY,
			owner_id UUID REFERENCES accounts(id),
			content_id VARCHAR(255) NOT NULL,
			caption TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id UUID PRIMARY KEY,
			photo_id UUID REFERENCES photos(id) ON DELETE CASCADE,
			parent_id UUID REFERENCES comments(id) ON DELETE CASCADE,
			author_id UUID REFERENCES accounts(id),
			author_name VARCHAR(100) NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			sender_id UUID REFERENCES accounts(id),
			receiver_id UUID REFERENCES accounts(id),
			body TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := p.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %v", err)
		}
	}
	return nil
}

func (p *PostgresDB) Photos(ctx context.Context) ([]*models.Photo, error) {
	query := `SELECT id, owner_id, content_id, caption, created_at FROM photos ORDER BY created_at DESC`
	var photos []*models.Photo
	if err := p.DB.SelectContext(ctx, &photos, query); err != nil {
		return nil, utils.NewDataAccessError("list photos", err)
	}
	return photos, nil
}

func (p *PostgresDB) Photo(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	query := `SELECT id, owner_id, content_id, caption, created_at FROM photos WHERE id = $1`
	var photo models.Photo
	if err := p.DB.GetContext(ctx, &photo, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewNotFoundError("photo")
		}
		return nil, utils.NewDataAccessError("get photo", err)
	}
	return &photo, nil
}

func (p *PostgresDB) InsertPhoto(ctx context.Context, photo *models.Photo) error {
	query := `INSERT INTO photos (id, owner_id, content_id, caption, created_at)
		VALUES (:id, :owner_id, :content_id, :caption, :created_at)`
	if _, err := p.DB.NamedExecContext(ctx, query, photo); err != nil {
		return utils.NewDataAccessError("insert photo", err)
	}
	return nil
}

func (p *PostgresDB) Comments(ctx context.Context, photoID uuid.UUID) ([]*models.Comment, error) {
	query := `SELECT id, photo_id, parent_id, author_id, author_name, body, created_at
		FROM comments WHERE photo_id = $1 ORDER BY created_at ASC`
	var comments []*models.Comment
	if err := p.DB.SelectContext(ctx, &comments, query, photoID); err != nil {
		return nil, utils.NewDataAccessError("list comments", err)
	}
	return comments, nil
}

func (p *PostgresDB) InsertComment(ctx context.Context, c *models.Comment) error {
	query := `INSERT INTO comments (id, photo_id, parent_id, author_id, author_name, body, created_at)
		VALUES (:id, :photo_id, :parent_id, :author_id, :author_name, :body, :created_at)`
	if _, err := p.DB.NamedExecContext(ctx, query, c); err != nil {
		return utils.NewDataAccessError("insert comment", err)
	}
	return p.notify(ctx, CommentsChannel(c.PhotoID), OpInsert, c)
}

func (p *PostgresDB) DeleteComment(ctx context.Context, id uuid.UUID) error {
	// Fetch first so the delete event can carry the record.
	query := `SELECT id, photo_id, parent_id, author_id, author_name, body, created_at
		FROM comments WHERE id = $1`
	var target models.Comment
	if err := p.DB.GetContext(ctx, &target, query, id); err != nil {
		if err == sql.ErrNoRows {
			return utils.NewNotFoundError("comment")
		}
		return utils.NewDataAccessError("get comment for delete", err)
	}

	// ON DELETE CASCADE removes the descendants server-side.
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return utils.NewDataAccessError("delete comment", err)
	}
	return p.notify(ctx, CommentsChannel(target.PhotoID), OpDelete, &target)
}

func (p *PostgresDB) Conversation(ctx context.Context, a, b uuid.UUID) ([]*models.Message, error) {
	query := `SELECT id, sender_id, receiver_id, body, created_at FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC`
	var messages []*models.Message
	if err := p.DB.SelectContext(ctx, &messages, query, a, b); err != nil {
		return nil, utils.NewDataAccessError("load conversation", err)
	}
	return messages, nil
}

func (p *PostgresDB) InsertMessage(ctx context.Context, m *models.Message) error {
	query := `INSERT INTO messages (id, sender_id, receiver_id, body, created_at)
		VALUES (:id, :sender_id, :receiver_id, :body, :created_at)`
	if _, err := p.DB.NamedExecContext(ctx, query, m); err != nil {
		return utils.NewDataAccessError("insert message", err)
	}
	return p.notify(ctx, chat.ConversationID(m.SenderID, m.ReceiverID), OpInsert, m)
}

func (p *PostgresDB) Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `SELECT id, display_name, avatar_url, created_at, updated_at FROM profiles WHERE id = $1`
	var profile models.Profile
	if err := p.DB.GetContext(ctx, &profile, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewNotFoundError("profile")
		}
		return nil, utils.NewDataAccessError("get profile", err)
	}
	return &profile, nil
}

func (p *PostgresDB) InsertProfile(ctx context.Context, profile *models.Profile) error {
	query := `INSERT INTO profiles (id, display_name, avatar_url, created_at, updated_at)
		VALUES (:id, :display_name, :avatar_url, :created_at, :updated_at)`
	if _, err := p.DB.NamedExecContext(ctx, query, profile); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return utils.NewAppError(utils.ErrDuplicate, "profile already exists", err)
		}
		return utils.NewDataAccessError("insert profile", err)
	}
	return nil
}

func (p *PostgresDB) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	query := `UPDATE profiles SET display_name = :display_name, avatar_url = :avatar_url, updated_at = :updated_at
		WHERE id = :id`
	res, err := p.DB.NamedExecContext(ctx, query, profile)
	if err != nil {
		return utils.NewDataAccessError("update profile", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return utils.NewNotFoundError("profile")
	}
	return nil
}

func (p *PostgresDB) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT id, email, password_hash, name, picture, created_at FROM accounts WHERE id = $1`
	var account models.Account
	if err := p.DB.GetContext(ctx, &account, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewAppError(utils.ErrAccountNotFound, "account not found", err)
		}
		return nil, utils.NewDataAccessError("get account", err)
	}
	return &account, nil
}

func (p *PostgresDB) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT id, email, password_hash, name, picture, created_at FROM accounts WHERE email = $1`
	var account models.Account
	if err := p.DB.GetContext(ctx, &account, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewAppError(utils.ErrAccountNotFound, "account not found", err)
		}
		return nil, utils.NewDataAccessError("get account by email", err)
	}
	return &account, nil
}

func (p *PostgresDB) InsertAccount(ctx context.Context, a *models.Account) error {
	query := `INSERT INTO accounts (id, email, password_hash, name, picture, created_at)
		VALUES (:id, :email, :password_hash, :name, :picture, :created_at)`
	if _, err := p.DB.NamedExecContext(ctx, query, a); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return utils.NewAppError(utils.ErrAccountAlreadyExists, "email already registered", err)
		}
		return utils.NewDataAccessError("insert account", err)
	}
	return nil
}

func (p *PostgresDB) Subscribe(channel string) (<-chan Event, func()) {
	return p.feed.subscribe(channel)
}

// notify publishes a change event through the database so all instances'
// listeners observe it.
func (p *PostgresDB) notify(ctx context.Context, channel, op string, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return utils.NewDataAccessError("encode notification", err)
	}
	env, err := json.Marshal(eventEnvelope{Channel: channel, Op: op, Payload: payload})
	if err != nil {
		return utils.NewDataAccessError("encode notification envelope", err)
	}
	if _, err := p.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(env)); err != nil {
		// The write itself succeeded; a lost notification only delays
		// convergence until the next history load.
		p.logger.Warn("pg_notify failed", "channel", channel, "error", err)
	}
	return nil
}
