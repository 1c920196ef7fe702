package detective

import (
	"context"
	"sync"
	"testing"
	"time"
)

// liveManager returns a manager in the LIVE phase with the given fids
// registered.
func liveManager(t *testing.T, fids ...uint64) *Manager {
	t.Helper()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, start)
	ctx := context.Background()

	for _, fid := range fids {
		if _, err := m.Register(ctx, player(fid)); err != nil {
			t.Fatalf("register fid %d: %v", fid, err)
		}
	}

	live := m.cycle.registrationClosesAt.Add(time.Second)
	m.now = func() time.Time { return live }
	if tr := m.Tick(ctx, live); !tr.Transitioned {
		t.Fatal("cycle did not go live")
	}
	return m
}

func TestRequestMatchRequiresLive(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, start)
	ctx := context.Background()
	if _, err := m.Register(ctx, player(1)); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := m.RequestMatch(ctx, 1); err != ErrNotLive {
		t.Fatalf("expected ErrNotLive, got %v", err)
	}
}

func TestRequestMatchUnknownPlayer(t *testing.T) {
	t.Parallel()

	m := liveManager(t, 1)
	if _, err := m.RequestMatch(context.Background(), 99); err != ErrUnknownPlayer {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
}

func TestRequestMatchIsIdempotent(t *testing.T) {
	t.Parallel()

	m := liveManager(t, 1, 2)
	ctx := context.Background()

	first, err := m.RequestMatch(ctx, 1)
	if err != nil {
		t.Fatalf("request match: %v", err)
	}

	second, err := m.RequestMatch(ctx, 1)
	if err != nil {
		t.Fatalf("re-request match: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("re-poll must return the same match, got %s and %s", first.ID, second.ID)
	}
}

func TestRequestMatchFallsBackToBot(t *testing.T) {
	t.Parallel()

	m := liveManager(t, 1)
	m.config.BotChancePct = 0 // force the human path; no candidates exist
	ctx := context.Background()

	view, err := m.RequestMatch(ctx, 1)
	if err != nil {
		t.Fatalf("request match: %v", err)
	}

	mt, ok := m.Cycle().active[view.ID]
	if !ok {
		t.Fatal("match missing from active map")
	}
	if !mt.IsBotMatch() {
		t.Fatal("with no human candidates the opponent must be a bot")
	}
	if view.Opponent.DisplayName == "" {
		t.Fatal("bot opponent must expose a display name")
	}
}

func TestHumanPairMarksBothMatched(t *testing.T) {
	t.Parallel()

	m := liveManager(t, 1, 2)
	m.config.BotChancePct = 0
	ctx := context.Background()

	view, err := m.RequestMatch(ctx, 1)
	if err != nil {
		t.Fatalf("request match: %v", err)
	}

	mt := m.Cycle().active[view.ID]
	if mt.IsBotMatch() {
		t.Fatal("expected a human opponent")
	}
	if _, ok := m.Cycle().matched[1]; !ok {
		t.Fatal("requester not marked matched")
	}
	if _, ok := m.Cycle().matched[mt.OpponentFid]; !ok {
		t.Fatal("opponent not marked matched")
	}

	// the paired opponent re-polling gets the same match, not a new one
	other, err := m.RequestMatch(ctx, mt.OpponentFid)
	if err != nil {
		t.Fatalf("opponent request: %v", err)
	}
	if other.ID != view.ID {
		t.Fatalf("expected shared match %s, got %s", view.ID, other.ID)
	}
}

func TestBotMatchLeavesOpponentPoolIntact(t *testing.T) {
	t.Parallel()

	m := liveManager(t, 1, 2)
	m.config.BotChancePct = 100
	ctx := context.Background()

	view, err := m.RequestMatch(ctx, 1)
	if err != nil {
		t.Fatalf("request match: %v", err)
	}
	if !m.Cycle().active[view.ID].IsBotMatch() {
		t.Fatal("expected bot opponent at 100% chance")
	}
	if _, ok := m.Cycle().matched[2]; ok {
		t.Fatal("bots are inexhaustible, fid 2 must remain available")
	}
}

func TestNoSecondMatchAfterFinalization(t *testing.T) {
	t.Parallel()

	m, matchID := botMatchManager(t)
	ctx := context.Background()

	if _, err := m.SubmitVote(ctx, matchID, 1, false); err != nil {
		t.Fatalf("vote: %v", err)
	}

	// the finalized match spent fid 1's slot for this cycle
	if _, err := m.RequestMatch(ctx, 1); err != ErrAlreadyMatched {
		t.Fatalf("expected ErrAlreadyMatched, got %v", err)
	}
}

func TestConcurrentRequestsYieldOneMatch(t *testing.T) {
	t.Parallel()

	m := liveManager(t, 1, 2, 3, 4)
	ctx := context.Background()

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			view, err := m.RequestMatch(ctx, 1)
			if err != nil {
				t.Errorf("request match: %v", err)
				return
			}
			ids[i] = view.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("concurrent requests produced different matches: %s and %s", ids[0], ids[i])
		}
	}
}
