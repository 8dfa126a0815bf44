package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"darkroom/internal/backend"
	"darkroom/internal/middleware"
	"darkroom/internal/models"
	"darkroom/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// LocalProvider authenticates against the accounts collection with bcrypt
// password hashes and issues JWT session tokens.
type LocalProvider struct {
	db     backend.Adapter
	logger *slog.Logger

	mu        sync.Mutex
	listeners []func(*Session)
}

func NewLocalProvider(db backend.Adapter, logger *slog.Logger) *LocalProvider {
	return &LocalProvider{db: db, logger: logger}
}

func (p *LocalProvider) OnChange(fn func(*Session)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *LocalProvider) notify(s *Session) {
	p.mu.Lock()
	listeners := make([]func(*Session), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (p *LocalProvider) Register(ctx context.Context, email, password, name string) (*Session, error) {
	if email == "" || password == "" {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "email and password are required", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrAuth, "failed to hash password", err)
	}

	account := &models.Account{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: string(hashed),
		Name:           name,
		CreatedAt:      time.Now(),
	}
	if err := p.db.InsertAccount(ctx, account); err != nil {
		return nil, err
	}

	session, err := p.issue(account)
	if err != nil {
		return nil, err
	}

	p.logger.Info("account registered", "user", account.ID, "email", email)
	p.notify(session)
	return session, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	account, err := p.db.AccountByEmail(ctx, email)
	if err != nil {
		if utils.IsErrorCode(err, utils.ErrAccountNotFound) {
			return nil, utils.NewAppError(utils.ErrInvalidCredentials, "invalid email or password", nil)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.HashedPassword), []byte(password)); err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidCredentials, "invalid email or password", nil)
	}

	session, err := p.issue(account)
	if err != nil {
		return nil, err
	}

	p.logger.Info("member signed in", "user", account.ID)
	p.notify(session)
	return session, nil
}

func (p *LocalProvider) SignOut(ctx context.Context, userID uuid.UUID) error {
	p.logger.Info("member signed out", "user", userID)
	p.notify(nil)
	return nil
}

func (p *LocalProvider) issue(account *models.Account) (*Session, error) {
	token, err := middleware.GenerateToken(account.ID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrAuth, "failed to issue session token", err)
	}
	return &Session{
		UserID: account.ID,
		Email:  account.Email,
		Metadata: Metadata{
			Name:    account.Name,
			Picture: account.Picture,
		},
		Token: token,
	}, nil
}
