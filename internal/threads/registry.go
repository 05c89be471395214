// Package threads – Registry.
//
// The Registry enforces the single-thread-per-identity invariant on top of a
// Store and the remote thread API. Lookups probe the ordered surface-form
// candidates produced by the identity package; creation persists under the
// originally supplied identity, never a normalized form, so existing data in
// either historical key format keeps resolving.
//
// Rebinding (replacing a user's thread handle) is a correction path, never a
// normal operation: it requires Verify to confirm unreachability twice, with
// a short delay between attempts, because mistaking a transient network blip
// for thread loss would silently fork the user's conversation history.
package threads

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rsh-ai/assistant-backend/internal/assistant"
	"github.com/rsh-ai/assistant-backend/internal/identity"
)

// ThreadAPI is the slice of the remote client the registry needs.
type ThreadAPI interface {
	CreateThread(ctx context.Context) (string, error)
	GetThread(ctx context.Context, threadID string) (*assistant.Thread, error)
}

// Registry maps identities to remote thread handles.
// Safe for concurrent use; creation for a given identity is single-flight.
type Registry struct {
	store Store
	api   ThreadAPI
	log   zerolog.Logger

	// VerifyRetryDelay separates the two existence checks in Verify.
	VerifyRetryDelay time.Duration

	// inflight serializes get-or-create per identity so two concurrent
	// requests cannot both miss and create two remote threads.
	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

// NewRegistry constructs a Registry over the given store and remote API.
func NewRegistry(store Store, api ThreadAPI, log zerolog.Logger) *Registry {
	return &Registry{
		store:            store,
		api:              api,
		log:              log.With().Str("component", "threads").Logger(),
		VerifyRetryDelay: 2 * time.Second,
		inflight:         make(map[string]*sync.Mutex),
	}
}

// Lookup probes the normalized candidates in priority order and returns the
// first bound thread handle, or ErrNoBinding.
func (r *Registry) Lookup(rawIdentity string) (string, error) {
	for _, cand := range identity.Candidates(rawIdentity) {
		if id, err := r.store.Get(cand); err == nil {
			return id, nil
		}
	}
	return "", ErrNoBinding
}

// GetOrCreate returns the thread bound to rawIdentity, creating and persisting
// a new remote thread on total miss. The new binding is stored under the
// originally supplied identity.
func (r *Registry) GetOrCreate(ctx context.Context, rawIdentity string) (string, error) {
	tr := otel.Tracer("threads/Registry")
	ctx, span := tr.Start(ctx, "GetOrCreate",
		trace.WithAttributes(attribute.String("identity", rawIdentity)),
	)
	defer span.End()

	if id, err := r.Lookup(rawIdentity); err == nil {
		return id, nil
	}

	lock := r.identityLock(rawIdentity)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the lock: a concurrent request may have won the race.
	if id, err := r.Lookup(rawIdentity); err == nil {
		return id, nil
	}

	threadID, err := r.api.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	if err := r.store.Put(rawIdentity, threadID); err != nil {
		return "", err
	}
	r.log.Info().
		Str("identity", rawIdentity).
		Str("thread_id", threadID).
		Msg("created thread binding")
	return threadID, nil
}

// Verify issues a lightweight existence check for threadID, retrying once
// after VerifyRetryDelay. It returns false only when BOTH attempts came back
// as a definitive not-found. Transport errors and cancellations are
// inconclusive and report true, so callers never rebind on a network blip.
func (r *Registry) Verify(ctx context.Context, threadID string) bool {
	notFound := 0
	for attempt := 1; attempt <= 2; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(r.VerifyRetryDelay):
			case <-ctx.Done():
				return true
			}
		}
		_, err := r.api.GetThread(ctx, threadID)
		if err == nil {
			return true
		}
		if assistant.IsNotFound(err) {
			notFound++
			r.log.Warn().Str("thread_id", threadID).Int("attempt", attempt).
				Msg("thread not found")
			continue
		}
		r.log.Warn().Err(err).Str("thread_id", threadID).Int("attempt", attempt).
			Msg("thread verify inconclusive")
	}
	return notFound < 2
}

// Rebind replaces the binding for rawIdentity with newThreadID. Callers must
// have confirmed permanent unreachability via Verify first. The old handle is
// logged for audit before it is overwritten.
func (r *Registry) Rebind(rawIdentity, newThreadID string) error {
	old, _ := r.Lookup(rawIdentity)
	if err := r.store.Put(rawIdentity, newThreadID); err != nil {
		return err
	}
	r.log.Warn().
		Str("identity", rawIdentity).
		Str("old_thread_id", old).
		Str("new_thread_id", newThreadID).
		Msg("rebound identity to replacement thread")
	return nil
}

// Delete removes every surface-form binding for rawIdentity in the primary
// namespace. Analytics-namespace bindings are the analytics pipeline's
// responsibility and are removed via DeleteAllNamespaces.
func (r *Registry) Delete(rawIdentity string) error {
	for _, cand := range identity.Candidates(rawIdentity) {
		if identity.IsAnalytics(cand) && !identity.IsAnalytics(rawIdentity) {
			continue
		}
		if err := r.store.Delete(cand); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAllNamespaces removes bindings for rawIdentity across both the
// primary and analytics namespaces. Used for user-data erasure requests.
func (r *Registry) DeleteAllNamespaces(rawIdentity string) error {
	for _, key := range identity.ErasureKeys(rawIdentity) {
		if err := r.store.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// identityLock returns the per-identity creation mutex, creating it lazily.
// Locks are keyed by the bare identity so that surface-form variants of the
// same user contend on one lock.
func (r *Registry) identityLock(rawIdentity string) *sync.Mutex {
	key := identity.Bare(rawIdentity)
	if identity.IsAnalytics(rawIdentity) {
		key = identity.AnalyticsPrefix + key
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.inflight[key]
	if !ok {
		lock = &sync.Mutex{}
		r.inflight[key] = lock
	}
	return lock
}
