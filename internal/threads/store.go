// Package threads owns the durable identity→thread bindings and the registry
// logic built on top of them (get-or-create, verify, rebind, delete).
//
// This file implements the binding store: a flat JSON object mapping identity
// keys to remote thread handles. The whole document is rewritten atomically on
// every mutation; there is no append log. That keeps the on-disk format
// trivially inspectable and compatible with the historical dashboard tooling
// that reads it directly.
package threads

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rsh-ai/assistant-backend/internal/sysutil"
)

// ErrNoBinding is returned when an identity has no stored thread binding.
var ErrNoBinding = errors.New("threads: no binding for identity")

// Binding associates one identity with one remote thread handle.
type Binding struct {
	Identity  string
	ThreadID  string
	CreatedAt time.Time
}

// Store is the persistence contract for identity→thread bindings.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the thread handle bound to identity, or ErrNoBinding.
	Get(identity string) (string, error)
	// Put binds identity to threadID, replacing any previous binding, and
	// persists synchronously before returning.
	Put(identity, threadID string) error
	// Delete removes the binding for identity. Deleting an absent identity
	// is a no-op.
	Delete(identity string) error
	// Keys returns all bound identities, sorted.
	Keys() ([]string, error)
}

// FileStore keeps bindings in memory and mirrors every mutation to a JSON
// file via atomic rewrite. Reads are served from memory under a read lock;
// writes serialize on the write lock so the file never sees interleaved
// rewrites.
type FileStore struct {
	path string

	mu       sync.RWMutex
	bindings map[string]string
}

// writeFile is a seam over sysutil.WriteFileAtomic so tests can inject
// persist failures without touching the filesystem.
var writeFile = func(path string, data []byte, perm os.FileMode) error {
	return sysutil.WriteFileAtomic(path, data, perm)
}

// OpenFileStore loads (or initializes) the binding file at path.
// A missing file yields an empty store; a corrupt file is an error, because
// silently starting empty would fork every user's conversation history.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, bindings: make(map[string]string)}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fs, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fs.bindings); err != nil {
			return nil, errors.Join(errors.New("threads: binding file is corrupt"), err)
		}
	}
	return fs, nil
}

// Get implements Store.
func (fs *FileStore) Get(identity string) (string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	id, ok := fs.bindings[identity]
	if !ok {
		return "", ErrNoBinding
	}
	return id, nil
}

// Put implements Store. The file is rewritten before the in-memory map is
// considered authoritative, so a failed persist leaves no phantom binding.
func (fs *FileStore) Put(identity, threadID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	next := make(map[string]string, len(fs.bindings)+1)
	for k, v := range fs.bindings {
		next[k] = v
	}
	next[identity] = threadID
	if err := fs.persist(next); err != nil {
		return err
	}
	fs.bindings = next
	return nil
}

// Delete implements Store.
func (fs *FileStore) Delete(identity string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.bindings[identity]; !ok {
		return nil
	}
	next := make(map[string]string, len(fs.bindings))
	for k, v := range fs.bindings {
		if k != identity {
			next[k] = v
		}
	}
	if err := fs.persist(next); err != nil {
		return err
	}
	fs.bindings = next
	return nil
}

// Keys implements Store.
func (fs *FileStore) Keys() ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make([]string, 0, len(fs.bindings))
	for k := range fs.bindings {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// persist rewrites the whole document. Caller holds the write lock.
func (fs *FileStore) persist(m map[string]string) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(fs.path, raw, 0o600)
}
