package botgate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestGateDefaultsEnabled(t *testing.T) {
	g := New(zerolog.Nop())
	if !g.IsEnabled("628123") {
		t.Fatal("never-seen identity must default to enabled")
	}
	if disabled, count := g.OnInbound(context.Background(), "628123"); disabled || count != 0 {
		t.Fatalf("inbound on enabled gate = (%v, %d)", disabled, count)
	}
}

func TestGateCountingSequence(t *testing.T) {
	g := New(zerolog.Nop())
	ctx := context.Background()
	g.SetEnabled(ctx, "628123", false)

	for want := 1; want <= 3; want++ {
		disabled, count := g.OnInbound(ctx, "628123")
		if !disabled || count != want {
			t.Fatalf("inbound %d = (%v, %d)", want, disabled, count)
		}
	}

	g.OnAdminReply(ctx, "628123")
	if got := g.UnansweredCount("628123"); got != 0 {
		t.Fatalf("count after admin reply = %d", got)
	}

	if _, count := g.OnInbound(ctx, "628123"); count != 1 {
		t.Fatalf("count after reset = %d, want 1", count)
	}
}

func TestGateMergesSurfaceForms(t *testing.T) {
	g := New(zerolog.Nop())
	ctx := context.Background()

	g.SetEnabled(ctx, "628123@s.whatsapp.net", false)
	if g.IsEnabled("628123") {
		t.Fatal("bare form should see the suffixed toggle")
	}
	g.OnInbound(ctx, "628123")
	if got := g.UnansweredCount("628123@s.whatsapp.net"); got != 1 {
		t.Fatalf("count via suffixed form = %d", got)
	}
}

func TestGateConcurrentInbound(t *testing.T) {
	g := New(zerolog.Nop())
	ctx := context.Background()
	g.SetEnabled(ctx, "628123", false)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.OnInbound(ctx, "628123")
		}()
	}
	wg.Wait()

	if got := g.UnansweredCount("628123"); got != n {
		t.Fatalf("count = %d, want %d", got, n)
	}
}

// ----- Persistence -----

type fakePersister struct {
	mu     sync.Mutex
	rows   map[string]State
	saves  int
	failed bool
}

func (p *fakePersister) Save(ctx context.Context, s State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed {
		return errors.New("db down")
	}
	if p.rows == nil {
		p.rows = map[string]State{}
	}
	p.rows[s.Identity] = s
	p.saves++
	return nil
}

func (p *fakePersister) LoadAll(ctx context.Context) ([]State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]State, 0, len(p.rows))
	for _, s := range p.rows {
		out = append(out, s)
	}
	return out, nil
}

func TestGatePersistsMutations(t *testing.T) {
	ctx := context.Background()
	p := &fakePersister{}
	g, err := NewPersistent(ctx, p, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPersistent: %v", err)
	}

	g.SetEnabled(ctx, "628123", false)
	g.OnInbound(ctx, "628123")

	row, ok := p.rows["628123"]
	if !ok || row.Enabled || row.UnansweredCount != 1 {
		t.Fatalf("persisted row = %+v, ok = %v", row, ok)
	}

	// A fresh gate seeded from the same persister sees the state.
	g2, err := NewPersistent(ctx, p, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPersistent reseed: %v", err)
	}
	if g2.IsEnabled("628123") {
		t.Fatal("reseeded gate lost the disabled flag")
	}
	if got := g2.UnansweredCount("628123"); got != 1 {
		t.Fatalf("reseeded count = %d", got)
	}
}

func TestGatePersistFailureKeepsMemoryAuthoritative(t *testing.T) {
	ctx := context.Background()
	p := &fakePersister{failed: true}
	g, err := NewPersistent(ctx, p, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPersistent: %v", err)
	}

	g.SetEnabled(ctx, "628123", false)
	if g.IsEnabled("628123") {
		t.Fatal("in-memory state must survive a persist failure")
	}
}

func TestGateSnapshotSorted(t *testing.T) {
	g := New(zerolog.Nop())
	ctx := context.Background()
	g.SetEnabled(ctx, "628999", false)
	g.SetEnabled(ctx, "628111", false)

	snap := g.Snapshot()
	if len(snap) != 2 || snap[0].Identity != "628111" || snap[1].Identity != "628999" {
		t.Fatalf("snapshot = %+v", snap)
	}
}
