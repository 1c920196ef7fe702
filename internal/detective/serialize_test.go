package detective

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/thisyearnofear/detective-sub003/internal/ai"
	"github.com/thisyearnofear/detective-sub003/internal/database"
	cycleDb "github.com/thisyearnofear/detective-sub003/internal/database/cycle/database"
	matchDb "github.com/thisyearnofear/detective-sub003/internal/database/match/database"
	replyDb "github.com/thisyearnofear/detective-sub003/internal/database/reply/database"
	statDb "github.com/thisyearnofear/detective-sub003/internal/database/stat/database"
	"github.com/thisyearnofear/detective-sub003/internal/notify"
)

// unavailableProvider keeps message sends from scheduling background
// replies, so tests control the reply set exactly.
type unavailableProvider struct{}

func (unavailableProvider) Complete(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("provider unavailable")
}

func (unavailableProvider) CompleteWithSystem(context.Context, string, string, string) (string, error) {
	return "", fmt.Errorf("provider unavailable")
}

var _ ai.Provider = unavailableProvider{}

// bbolt holds an exclusive file lock, so the previous handle must be closed
// before reopening the same path.
func newPersistedManager(t *testing.T, path string, start time.Time) (*Manager, func()) {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewFromEnv(ctx, &database.Config{FilePath: path})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	m := NewManager(testConfig(), unavailableProvider{}, notify.Nop{},
		cycleDb.New(db), matchDb.New(db), replyDb.New(db), statDb.New(db, nil))
	m.now = func() time.Time { return start }
	m.cycle = newCycle(1, start, m.config)
	return m, func() { _ = db.Close(ctx) }
}

func TestRestoreResumesMidCycle(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "detective.db")
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	m, closeDb := newPersistedManager(t, path, start)
	if _, err := m.Register(ctx, player(7)); err != nil {
		t.Fatalf("register: %v", err)
	}

	live := m.cycle.registrationClosesAt.Add(time.Second)
	m.now = func() time.Time { return live }
	m.Tick(ctx, live)

	view, err := m.RequestMatch(ctx, 7)
	if err != nil {
		t.Fatalf("request match: %v", err)
	}
	if _, err := m.SendMessage(ctx, view.ID, 7, "anyone home"); err != nil {
		t.Fatalf("send: %v", err)
	}

	persona := m.Cycle().active[view.ID].Bot
	scheduled := m.sched.schedule(ctx, view.ID, persona.ID, "yep. just me", live)

	closeDb()

	// a second process comes up against the same file
	resumeAt := live.Add(time.Minute)
	fresh, closeFresh := newPersistedManager(t, path, resumeAt)
	defer closeFresh()
	if err := fresh.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}

	c := fresh.Cycle()
	if c.ID() != 1 {
		t.Fatalf("expected cycle 1, got %d", c.ID())
	}
	if _, ok := c.players[7]; !ok {
		t.Fatal("registry lost across restart")
	}

	restored, ok := c.active[view.ID]
	if !ok {
		t.Fatal("active match lost across restart")
	}
	if len(restored.Messages) != 1 || restored.Messages[0].Text != "anyone home" {
		t.Fatalf("messages lost across restart: %+v", restored.Messages)
	}

	// the pending reply survived and still delivers exactly once
	outcomes := fresh.Sweep(ctx, scheduled.DeliverAt.Add(time.Second), nil)
	if len(outcomes) != 1 || !outcomes[0].Delivered {
		t.Fatalf("restored reply not delivered: %+v", outcomes)
	}
	msgs := fresh.PollMessages(view.ID, time.Time{})
	if len(msgs) != 2 {
		t.Fatalf("expected human message plus delivered reply, got %d", len(msgs))
	}
}

func TestRestoreWithoutStateStartsFresh(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "detective.db")
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m, closeDb := newPersistedManager(t, path, start)
	defer closeDb()

	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("restore on empty store: %v", err)
	}
	if m.Cycle().ID() != 1 {
		t.Fatalf("expected fresh cycle 1, got %d", m.Cycle().ID())
	}
}

func TestCycleModelRoundTrip(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, start)
	if _, err := m.Register(context.Background(), player(3)); err != nil {
		t.Fatalf("register: %v", err)
	}

	s := m.Cycle().toModel()
	back := cycleFromModel(s, nil, m.config)

	if back.id != m.Cycle().id || back.phase != m.Cycle().phase {
		t.Fatalf("identity lost: %d/%s vs %d/%s", back.id, back.phase, m.Cycle().id, m.Cycle().phase)
	}
	if _, ok := back.players[3]; !ok {
		t.Fatal("players lost in round trip")
	}
	if !back.registrationClosesAt.Equal(m.Cycle().registrationClosesAt) {
		t.Fatal("timestamps lost in round trip")
	}
}
