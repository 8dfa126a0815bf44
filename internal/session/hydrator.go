// Package session merges authentication identity with the stored profile
// record. Identity commits immediately so auth-dependent surfaces unblock
// without waiting on profile I/O; the profile itself is hydrated
// asynchronously behind a monotonic generation guard, so a stale attempt can
// never overwrite the outcome of a newer one.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"darkroom/internal/models"
	"darkroom/internal/utils"

	"github.com/google/uuid"
)

// State is the hydration lifecycle of the signed-in member.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateNoProfile // identity present, no usable provider metadata yet
	StateDefaults  // placeholder profile derived from identity metadata, read in flight
	StateHydrated  // authoritative profile confirmed from the backing store
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateNoProfile:
		return "authenticated-no-profile"
	case StateDefaults:
		return "authenticated-with-defaults"
	case StateHydrated:
		return "authenticated-hydrated"
	}
	return "unknown"
}

// Identity is the slice of the provider session the hydrator needs: who the
// member is plus the provider-supplied display defaults.
type Identity struct {
	UserID  uuid.UUID
	Email   string
	Name    string
	Picture string
}

// Snapshot is the externally observable auth/profile state.
type Snapshot struct {
	State    State
	Identity *Identity
	Profile  *models.Profile
	Err      string // non-fatal hydration error, if any
}

// ProfileStore is the slice of the backing store the hydrator reads and
// back-fills profiles through.
type ProfileStore interface {
	Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	InsertProfile(ctx context.Context, p *models.Profile) error
	UpdateProfile(ctx context.Context, p *models.Profile) error
}

// DefaultTimeout bounds a single hydration attempt. On expiry the attempt is
// treated as failed; the identity state remains valid and the placeholder
// profile stays up.
const DefaultTimeout = 5 * time.Second

// Hydrator tracks the current session and runs one hydration attempt per
// identity-change event. Each attempt captures the generation counter at
// start and may only commit while the counter is unchanged.
type Hydrator struct {
	store   ProfileStore
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	gen      uint64
	snap     Snapshot
	onChange func(Snapshot)
}

func NewHydrator(store ProfileStore, logger *slog.Logger) *Hydrator {
	return &Hydrator{
		store:   store,
		logger:  logger,
		timeout: DefaultTimeout,
		snap:    Snapshot{State: StateUnauthenticated},
	}
}

// SetTimeout overrides the per-attempt hydration timeout.
func (h *Hydrator) SetTimeout(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timeout = d
}

// OnChange registers a callback invoked after every committed snapshot
// change. The callback runs outside the hydrator's lock.
func (h *Hydrator) OnChange(fn func(Snapshot)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

// Snapshot returns the current observable state.
func (h *Hydrator) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}

// BeginAuth marks a sign-in in progress. It bumps the generation so any
// hydration still in flight from the previous session is discarded.
func (h *Hydrator) BeginAuth() {
	h.mu.Lock()
	h.gen++
	h.snap = Snapshot{State: StateAuthenticating}
	fn, snap := h.onChange, h.snap
	h.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

// SetIdentity is the identity-change entry point (sign-in, sign-out, token
// refresh all land here; nil means signed out). Identity and a
// locally-derived placeholder profile commit immediately; the authoritative
// profile read runs asynchronously and commits only if no newer attempt has
// started in the meantime.
func (h *Hydrator) SetIdentity(ident *Identity) {
	h.mu.Lock()
	h.gen++
	gen := h.gen

	if ident == nil {
		h.snap = Snapshot{State: StateUnauthenticated}
		fn, snap := h.onChange, h.snap
		h.mu.Unlock()
		if fn != nil {
			fn(snap)
		}
		return
	}

	placeholder := &models.Profile{
		ID:          ident.UserID,
		DisplayName: ident.Name,
		AvatarURL:   ident.Picture,
	}
	state := StateDefaults
	if ident.Name == "" && ident.Picture == "" {
		state = StateNoProfile
	}
	h.snap = Snapshot{State: state, Identity: ident, Profile: placeholder}
	fn, snap := h.onChange, h.snap
	timeout := h.timeout
	h.mu.Unlock()

	if fn != nil {
		fn(snap)
	}

	go h.hydrate(gen, ident, timeout)
}

func (h *Hydrator) hydrate(gen uint64, ident *Identity, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	prof, err := h.store.Profile(ctx, ident.UserID)
	switch {
	case err == nil:
		prof, err = h.backfill(ctx, prof, ident)
	case utils.IsErrorCode(err, utils.ErrNotFound):
		prof, err = h.create(ctx, ident)
	}

	if err != nil {
		h.commitError(gen, err)
		return
	}
	h.commit(gen, prof)
}

// backfill patches only missing fields from identity-provider defaults. A
// display name or avatar the member has set is never overwritten.
func (h *Hydrator) backfill(ctx context.Context, prof *models.Profile, ident *Identity) (*models.Profile, error) {
	changed := false
	if prof.DisplayName == "" && ident.Name != "" {
		prof.DisplayName = ident.Name
		changed = true
	}
	if prof.AvatarURL == "" && ident.Picture != "" {
		prof.AvatarURL = ident.Picture
		changed = true
	}
	if !changed {
		return prof, nil
	}

	prof.UpdatedAt = time.Now()
	if err := h.store.UpdateProfile(ctx, prof); err != nil {
		return nil, utils.NewHydrationError("back-fill", err)
	}
	return prof, nil
}

// create inserts the lazy first-sign-in profile. A concurrent creator
// winning the race surfaces as a duplicate; the record is re-read rather
// than treated as a failure.
func (h *Hydrator) create(ctx context.Context, ident *Identity) (*models.Profile, error) {
	now := time.Now()
	prof := &models.Profile{
		ID:          ident.UserID,
		DisplayName: ident.Name,
		AvatarURL:   ident.Picture,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := h.store.InsertProfile(ctx, prof)
	if err == nil {
		return prof, nil
	}
	if utils.IsErrorCode(err, utils.ErrDuplicate) {
		existing, rerr := h.store.Profile(ctx, ident.UserID)
		if rerr != nil {
			return nil, utils.NewHydrationError("re-read after create race", rerr)
		}
		return existing, nil
	}
	return nil, utils.NewHydrationError("create", err)
}

func (h *Hydrator) commit(gen uint64, prof *models.Profile) {
	h.mu.Lock()
	if h.gen != gen {
		h.mu.Unlock()
		h.logger.Debug("discarding superseded hydration result", "gen", gen)
		return
	}
	h.snap.Profile = prof
	h.snap.State = StateHydrated
	h.snap.Err = ""
	fn, snap := h.onChange, h.snap
	h.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

// commitError keeps the placeholder and records a non-fatal error.
func (h *Hydrator) commitError(gen uint64, err error) {
	h.mu.Lock()
	if h.gen != gen {
		h.mu.Unlock()
		return
	}
	h.snap.Err = err.Error()
	fn, snap := h.onChange, h.snap
	h.mu.Unlock()

	h.logger.Warn("profile hydration failed", "error", err)
	if fn != nil {
		fn(snap)
	}
}
