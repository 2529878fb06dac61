// Package session implements the admin session guard: a credential blob
// plus two clocks persisted in storage, checked against an absolute
// session ceiling and a rolling inactivity ceiling.
package session

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chezmonami/marketplace-server/internal/storage"
)

// Storage keys for the persisted session state.
const (
	AuthKey         = "adminAuth"
	SessionStartKey = "adminSessionStart"
	LastActivityKey = "adminLastActivity"
)

const (
	DefaultSessionMax    = 2 * time.Hour
	DefaultInactivityMax = 30 * time.Minute
	DefaultCheckInterval = 30 * time.Second
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Identity is the credential blob written at login. Field names follow
// the admin backend's record.
type Identity struct {
	ID                 string `json:"id"`
	Name               string `json:"nom"`
	Email              string `json:"email"`
	Role               Role   `json:"role"`
	MustChangePassword bool   `json:"doit_changer_mdp"`
	Token              string `json:"token"`
}

// EvictReason distinguishes why a session ended.
type EvictReason string

const (
	EvictUnauthenticated EvictReason = "unauthenticated"
	EvictSessionExpired  EvictReason = "session_expired"
	EvictIdleTimeout     EvictReason = "idle_timeout"
	EvictLogout          EvictReason = "logout"
)

// ActivityKind is a user interaction that may reset the idle clock.
type ActivityKind string

const (
	ActivityPointerDown ActivityKind = "pointerdown"
	ActivityKeyDown     ActivityKind = "keydown"
	ActivityScroll      ActivityKind = "scroll"
	ActivityTouchStart  ActivityKind = "touchstart"
	ActivityClick       ActivityKind = "click"
)

// QualifiesActivity reports whether kind is one of the fixed set of
// interactions that reset the idle clock.
func QualifiesActivity(kind ActivityKind) bool {
	switch kind {
	case ActivityPointerDown, ActivityKeyDown, ActivityScroll, ActivityTouchStart, ActivityClick:
		return true
	default:
		return false
	}
}

// Status is the outcome of a session check.
type Status struct {
	Valid     bool
	Identity  *Identity
	Remaining time.Duration
	Reason    EvictReason
}

type Option func(*Guard)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithCeilings overrides the absolute and inactivity ceilings.
func WithCeilings(sessionMax, inactivityMax time.Duration) Option {
	return func(g *Guard) {
		g.sessionMax = sessionMax
		g.inactivityMax = inactivityMax
	}
}

// WithCheckInterval overrides the periodic check interval.
func WithCheckInterval(interval time.Duration) Option {
	return func(g *Guard) { g.checkInterval = interval }
}

// Guard enforces the two session ceilings over a storage scope. Both
// must hold for the session to stay valid; breaching either evicts
// immediately and irreversibly.
type Guard struct {
	storage storage.Store
	onEvict func(EvictReason)

	now           func() time.Time
	sessionMax    time.Duration
	inactivityMax time.Duration
	checkInterval time.Duration

	mu      sync.Mutex
	done    chan struct{}
	running bool
}

// NewGuard creates a guard over the given storage scope. onEvict runs
// once per eviction with the reason; it may be nil.
func NewGuard(st storage.Store, onEvict func(EvictReason), opts ...Option) *Guard {
	g := &Guard{
		storage:       st,
		onEvict:       onEvict,
		now:           time.Now,
		sessionMax:    DefaultSessionMax,
		inactivityMax: DefaultInactivityMax,
		checkInterval: DefaultCheckInterval,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Initialize validates the stored state on mount: no credential means
// immediate eviction, an authenticated-but-unstamped state has both
// clocks stamped to now, then one synchronous check runs. A storage
// read failure defers the decision: the state stays untouched and the
// returned status is invalid with no eviction reason.
func (g *Guard) Initialize(ctx context.Context) Status {
	identity, ok, err := g.loadIdentity(ctx)
	if err != nil {
		return Status{}
	}
	if !ok || identity == nil {
		g.evict(ctx, EvictUnauthenticated)
		return Status{Reason: EvictUnauthenticated}
	}

	_, startOK, startErr := g.loadClock(ctx, SessionStartKey)
	_, actOK, actErr := g.loadClock(ctx, LastActivityKey)
	if startErr != nil || actErr != nil {
		return Status{}
	}
	if !startOK || !actOK {
		g.stampBoth(ctx)
	}

	return g.Check(ctx)
}

// Check computes both ages against their ceilings. The absolute ceiling
// is tested first; either breach evicts. A valid session reports the
// minimum remaining time across both ceilings. A storage read failure
// never evicts: the check is deferred to the next tick and the session
// state stays intact.
func (g *Guard) Check(ctx context.Context) Status {
	identity, ok, err := g.loadIdentity(ctx)
	if err != nil {
		return Status{}
	}
	if !ok {
		g.evict(ctx, EvictUnauthenticated)
		return Status{Reason: EvictUnauthenticated}
	}

	startedAt, startOK, startErr := g.loadClock(ctx, SessionStartKey)
	lastActivityAt, actOK, actErr := g.loadClock(ctx, LastActivityKey)
	if startErr != nil || actErr != nil {
		return Status{}
	}
	if !startOK || !actOK {
		g.evict(ctx, EvictUnauthenticated)
		return Status{Reason: EvictUnauthenticated}
	}

	now := g.now()
	sessionAge := now.Sub(startedAt)
	idleAge := now.Sub(lastActivityAt)

	if sessionAge > g.sessionMax {
		g.evict(ctx, EvictSessionExpired)
		return Status{Reason: EvictSessionExpired}
	}
	if idleAge > g.inactivityMax {
		g.evict(ctx, EvictIdleTimeout)
		return Status{Reason: EvictIdleTimeout}
	}

	remaining := g.sessionMax - sessionAge
	if idleRemaining := g.inactivityMax - idleAge; idleRemaining < remaining {
		remaining = idleRemaining
	}

	return Status{Valid: true, Identity: identity, Remaining: remaining}
}

// TouchActivity resets the idle clock for a qualifying interaction.
// The absolute session clock is never touched.
func (g *Guard) TouchActivity(ctx context.Context, kind ActivityKind) {
	if !QualifiesActivity(kind) {
		return
	}
	g.setClock(ctx, LastActivityKey, g.now())
}

// Logout clears the stored credential and clocks unconditionally.
func (g *Guard) Logout(ctx context.Context) {
	g.evict(ctx, EvictLogout)
}

// Start launches the periodic check. Stop tears it down; both are safe
// to call more than once.
func (g *Guard) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return
	}
	g.running = true
	g.done = make(chan struct{})
	go g.run(g.done)
}

func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return
	}
	g.running = false
	close(g.done)
}

// Running reports whether the periodic check is active.
func (g *Guard) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

func (g *Guard) run(done chan struct{}) {
	ticker := time.NewTicker(g.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			// A deferred check (invalid with no reason) keeps ticking;
			// only an eviction ends the loop.
			status := g.Check(context.Background())
			if status.Reason != "" {
				return
			}
		}
	}
}

func (g *Guard) evict(ctx context.Context, reason EvictReason) {
	for _, key := range []string{AuthKey, SessionStartKey, LastActivityKey} {
		if err := g.storage.Remove(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("session: failed to clear stored state")
		}
	}

	g.Stop()

	if g.onEvict != nil {
		g.onEvict(reason)
	}
}

func (g *Guard) loadIdentity(ctx context.Context) (*Identity, bool, error) {
	value, ok, err := g.storage.Get(ctx, AuthKey)
	if err != nil {
		log.Warn().Err(err).Msg("session: failed to read credential, deferring check")
		return nil, false, err
	}
	if !ok || value == "" {
		return nil, false, nil
	}

	var identity Identity
	if err := json.Unmarshal([]byte(value), &identity); err != nil {
		// A malformed blob is treated like an absent one.
		return nil, false, nil
	}
	return &identity, true, nil
}

func (g *Guard) loadClock(ctx context.Context, key string) (time.Time, bool, error) {
	value, ok, err := g.storage.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("session: failed to read clock, deferring check")
		return time.Time{}, false, err
	}
	if !ok || value == "" {
		return time.Time{}, false, nil
	}

	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(millis), true, nil
}

func (g *Guard) setClock(ctx context.Context, key string, t time.Time) {
	value := strconv.FormatInt(t.UnixMilli(), 10)
	if err := g.storage.Set(ctx, key, value); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("session: failed to write clock")
	}
}

func (g *Guard) stampBoth(ctx context.Context) {
	now := g.now()
	g.setClock(ctx, SessionStartKey, now)
	g.setClock(ctx, LastActivityKey, now)
}
