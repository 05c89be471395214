// Package botgate holds the per-identity bot enable flag and the unanswered
// message counter. The gate decides whether an inbound message reaches the
// assistant at all: customer-service staff disable the bot for a user while
// handling the conversation by hand, and the counter tracks how many inbound
// messages piled up unanswered in the meantime.
//
// State is in-memory and lock-guarded. An optional Persister mirrors every
// mutation to durable storage and seeds the map at startup, so operators can
// choose whether gate state survives a restart.
package botgate

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rsh-ai/assistant-backend/internal/identity"
)

// State is the gate record for one identity.
type State struct {
	Identity        string `json:"identity"`
	Enabled         bool   `json:"enabled"`
	UnansweredCount int    `json:"unanswered_count"`
}

// Persister mirrors gate mutations to durable storage.
type Persister interface {
	Save(ctx context.Context, s State) error
	LoadAll(ctx context.Context) ([]State, error)
}

// Gate is the in-memory gate. Safe for concurrent use.
type Gate struct {
	mu      sync.Mutex
	states  map[string]*State
	persist Persister
	log     zerolog.Logger
}

// New returns an ephemeral gate whose state lives only in process memory.
func New(log zerolog.Logger) *Gate {
	return &Gate{
		states: make(map[string]*State),
		log:    log.With().Str("component", "botgate").Logger(),
	}
}

// NewPersistent returns a gate seeded from p and mirroring every mutation to
// it. Persist failures after startup are logged, not fatal; the in-memory
// state stays authoritative for the life of the process.
func NewPersistent(ctx context.Context, p Persister, log zerolog.Logger) (*Gate, error) {
	g := New(log)
	g.persist = p
	loaded, err := p.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range loaded {
		s := s
		g.states[s.Identity] = &s
	}
	return g, nil
}

// IsEnabled reports whether the bot answers for rawIdentity. Identities never
// toggled are enabled.
func (g *Gate) IsEnabled(rawIdentity string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.states[g.key(rawIdentity)]
	if !ok {
		return true
	}
	return s.Enabled
}

// SetEnabled toggles the bot for rawIdentity. Re-enabling keeps the counter;
// OnAdminReply is the reset path.
func (g *Gate) SetEnabled(ctx context.Context, rawIdentity string, enabled bool) {
	g.mu.Lock()
	s := g.state(rawIdentity)
	s.Enabled = enabled
	snapshot := *s
	g.mu.Unlock()

	g.log.Info().Str("identity", snapshot.Identity).Bool("enabled", enabled).Msg("bot gate toggled")
	g.save(ctx, snapshot)
}

// OnInbound records an inbound message. When the gate is disabled the
// unanswered counter increments and the new count is returned; when enabled
// it is a no-op.
func (g *Gate) OnInbound(ctx context.Context, rawIdentity string) (disabled bool, count int) {
	g.mu.Lock()
	s, ok := g.states[g.key(rawIdentity)]
	if !ok || s.Enabled {
		g.mu.Unlock()
		return false, 0
	}
	s.UnansweredCount++
	snapshot := *s
	g.mu.Unlock()

	g.save(ctx, snapshot)
	return true, snapshot.UnansweredCount
}

// OnAdminReply records an outbound staff message and unconditionally resets
// the unanswered counter.
func (g *Gate) OnAdminReply(ctx context.Context, rawIdentity string) {
	g.mu.Lock()
	s := g.state(rawIdentity)
	s.UnansweredCount = 0
	snapshot := *s
	g.mu.Unlock()

	g.save(ctx, snapshot)
}

// Forget drops the in-memory record for rawIdentity. Used by data erasure;
// the durable row is removed separately by the caller.
func (g *Gate) Forget(rawIdentity string) {
	g.mu.Lock()
	delete(g.states, g.key(rawIdentity))
	g.mu.Unlock()
}

// UnansweredCount returns the current counter for rawIdentity.
func (g *Gate) UnansweredCount(rawIdentity string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.states[g.key(rawIdentity)]; ok {
		return s.UnansweredCount
	}
	return 0
}

// Snapshot returns all known gate records, sorted by identity. Used by the
// admin surface.
func (g *Gate) Snapshot() []State {
	g.mu.Lock()
	out := make([]State, 0, len(g.states))
	for _, s := range g.states {
		out = append(out, *s)
	}
	g.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// key merges surface-form variants of the same user onto one gate record.
func (g *Gate) key(rawIdentity string) string {
	return identity.Bare(rawIdentity)
}

// state returns the record for rawIdentity, creating the default-enabled
// record on first touch. Caller holds the lock.
func (g *Gate) state(rawIdentity string) *State {
	k := g.key(rawIdentity)
	s, ok := g.states[k]
	if !ok {
		s = &State{Identity: k, Enabled: true}
		g.states[k] = s
	}
	return s
}

func (g *Gate) save(ctx context.Context, s State) {
	if g.persist == nil {
		return
	}
	if err := g.persist.Save(ctx, s); err != nil {
		g.log.Error().Err(err).Str("identity", s.Identity).Msg("bot gate persist failed")
	}
}
