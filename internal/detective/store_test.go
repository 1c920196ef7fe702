package detective

import (
	"context"
	"testing"
	"time"
)

// botMatchManager returns a live manager with fid 1 in a match against a bot.
func botMatchManager(t *testing.T) (*Manager, string) {
	t.Helper()
	m := liveManager(t, 1)
	view, err := m.RequestMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("request match: %v", err)
	}
	return m, view.ID
}

func TestSendAndPollMessages(t *testing.T) {
	t.Parallel()

	m, matchID := botMatchManager(t)
	ctx := context.Background()

	first, err := m.SendMessage(ctx, matchID, 1, "hey")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	second, err := m.SendMessage(ctx, matchID, 1, "you real?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if !second.SentAt.After(first.SentAt) {
		t.Fatalf("timestamps must be strictly increasing: %s then %s", first.SentAt, second.SentAt)
	}

	msgs := m.PollMessages(matchID, time.Time{})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "hey" || msgs[1].Text != "you real?" {
		t.Fatalf("append order violated: %q, %q", msgs[0].Text, msgs[1].Text)
	}

	// cursor poll returns exactly the strict suffix
	tail := m.PollMessages(matchID, first.SentAt)
	if len(tail) != 1 || tail[0].ID != second.ID {
		t.Fatalf("expected only the second message, got %d messages", len(tail))
	}

	if got := m.PollMessages(matchID, second.SentAt); len(got) != 0 {
		t.Fatalf("poll past the last message must be empty, got %d", len(got))
	}
}

// gatedProvider holds the completion until released, and fails if its
// context ended in the meantime.
type gatedProvider struct {
	release chan struct{}
}

func (p gatedProvider) Complete(ctx context.Context, _, _ string) (string, error) {
	<-p.release
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "still typing", nil
}

func (p gatedProvider) CompleteWithSystem(ctx context.Context, model, _, prompt string) (string, error) {
	return p.Complete(ctx, model, prompt)
}

func TestBotReplyOutlivesCallerContext(t *testing.T) {
	t.Parallel()

	m, matchID := botMatchManager(t)
	provider := gatedProvider{release: make(chan struct{})}
	m.provider = provider

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := m.SendMessage(ctx, matchID, 1, "you real?"); err != nil {
		t.Fatalf("send: %v", err)
	}

	// the sender's context ends before generation runs, as it does when an
	// HTTP handler returns
	cancel()
	close(provider.release)

	deadline := time.Now().Add(2 * time.Second)
	for {
		m.sched.mtx.Lock()
		pending := len(m.sched.replies)
		m.sched.mtx.Unlock()
		if pending == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("reply was never scheduled once the caller's context ended")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPollAbsentMatchIsEmpty(t *testing.T) {
	t.Parallel()

	m := liveManager(t, 1)
	if got := m.PollMessages("nope", time.Time{}); len(got) != 0 {
		t.Fatalf("absent match must poll empty, got %d messages", len(got))
	}
}

func TestSendMessageAfterMatchEnd(t *testing.T) {
	t.Parallel()

	m, matchID := botMatchManager(t)
	ctx := context.Background()

	ends := m.Cycle().active[matchID].EndsAt
	m.now = func() time.Time { return ends.Add(time.Second) }

	if _, err := m.SendMessage(ctx, matchID, 1, "too late"); err != ErrMatchEnded {
		t.Fatalf("expected ErrMatchEnded, got %v", err)
	}
}

func TestSendMessageUnknownMatch(t *testing.T) {
	t.Parallel()

	m := liveManager(t, 1)
	if _, err := m.SendMessage(context.Background(), "nope", 1, "hi"); err != ErrMatchNotFound {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestBotMatchFinalizesOnSingleVote(t *testing.T) {
	t.Parallel()

	m, matchID := botMatchManager(t)
	ctx := context.Background()

	result, err := m.SubmitVote(ctx, matchID, 1, false)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if !result.Finalized {
		t.Fatal("human-vs-bot match must finalize on the single human vote")
	}

	c := m.Cycle()
	if _, ok := c.active[matchID]; ok {
		t.Fatal("finalized match still in active map")
	}
	if !c.wasCompleted(matchID) {
		t.Fatal("finalized match missing from completed sequence")
	}

	// correct guess against a bot scores on the leaderboard
	if len(result.Leaderboard) != 1 || result.Leaderboard[0].Correct != 1 {
		t.Fatalf("expected one correct vote on the board, got %+v", result.Leaderboard)
	}
}

func TestHumanMatchNeedsBothVotes(t *testing.T) {
	t.Parallel()

	m := liveManager(t, 1, 2)
	m.config.BotChancePct = 0
	ctx := context.Background()

	view, err := m.RequestMatch(ctx, 1)
	if err != nil {
		t.Fatalf("request match: %v", err)
	}
	mt := m.Cycle().active[view.ID]

	result, err := m.SubmitVote(ctx, view.ID, mt.HumanFid, true)
	if err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if result.Finalized {
		t.Fatal("human-vs-human match must not finalize on one vote")
	}

	// overwrite is idempotent, still one vote recorded
	if _, err := m.SubmitVote(ctx, view.ID, mt.HumanFid, false); err != nil {
		t.Fatalf("revote: %v", err)
	}
	if len(m.Cycle().active[view.ID].Votes) != 1 {
		t.Fatalf("revote duplicated the ballot: %d votes", len(m.Cycle().active[view.ID].Votes))
	}

	result, err = m.SubmitVote(ctx, view.ID, mt.OpponentFid, true)
	if err != nil {
		t.Fatalf("second vote: %v", err)
	}
	if !result.Finalized {
		t.Fatal("both votes recorded, match must finalize")
	}
}

func TestVoteAfterFinalization(t *testing.T) {
	t.Parallel()

	m, matchID := botMatchManager(t)
	ctx := context.Background()

	if _, err := m.SubmitVote(ctx, matchID, 1, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := m.SubmitVote(ctx, matchID, 1, false); err != ErrMatchEnded {
		t.Fatalf("expected ErrMatchEnded after finalization, got %v", err)
	}
}

func TestOpponentViewNeverExposesKind(t *testing.T) {
	t.Parallel()

	m, matchID := botMatchManager(t)

	view, err := m.RequestMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("re-poll: %v", err)
	}
	if view.ID != matchID {
		t.Fatalf("expected match %s, got %s", matchID, view.ID)
	}

	// the view carries only public profile fields
	if view.Opponent.Username == "" || view.Opponent.DisplayName == "" || view.Opponent.AvatarURL == "" {
		t.Fatalf("opponent public fields incomplete: %+v", view.Opponent)
	}
}
