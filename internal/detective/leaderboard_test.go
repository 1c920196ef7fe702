package detective

import (
	"testing"
	"time"

	matchModel "github.com/thisyearnofear/detective-sub003/internal/database/match/model"
)

// completedBotMatch fabricates a finalized human-vs-bot match with one vote.
func completedBotMatch(id string, fid uint64, start time.Time, guess bool, voteAfter time.Duration) *matchModel.Match {
	ended := start.Add(voteAfter)
	return &matchModel.Match{
		ID:        id,
		HumanFid:  fid,
		Bot:       &matchModel.Persona{ID: "persona-" + id, SourceFid: 42},
		StartedAt: start,
		EndsAt:    start.Add(3 * time.Minute),
		EndedAt:   &ended,
		Votes: map[uint64]matchModel.Vote{
			fid: {Guess: guess, VotedAt: ended},
		},
		VoteLocked: true,
		Completed:  true,
	}
}

func TestLeaderboardRanksAccuracyThenSpeed(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, start)

	// fid 1: two correct votes, slow. fid 2: one correct one wrong, fast.
	// fid 3: two correct votes, fast — must lead.
	m.cycle.completed = []*matchModel.Match{
		completedBotMatch("a", 1, start, false, 60*time.Second),
		completedBotMatch("b", 1, start, false, 80*time.Second),
		completedBotMatch("c", 2, start, false, 10*time.Second),
		completedBotMatch("d", 2, start, true, 12*time.Second),
		completedBotMatch("e", 3, start, false, 20*time.Second),
		completedBotMatch("f", 3, start, false, 30*time.Second),
	}

	board := m.Leaderboard()
	if len(board) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(board))
	}
	if board[0].Fid != 3 || board[1].Fid != 1 || board[2].Fid != 2 {
		t.Fatalf("unexpected order: %d, %d, %d", board[0].Fid, board[1].Fid, board[2].Fid)
	}
	if board[0].Accuracy != 1.0 {
		t.Fatalf("expected perfect accuracy, got %f", board[0].Accuracy)
	}
	if board[2].Accuracy != 0.5 {
		t.Fatalf("expected 0.5 accuracy, got %f", board[2].Accuracy)
	}
}

func TestLeaderboardMinimumMatches(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, start)
	m.config.MinLeaderboardMatches = 2

	m.cycle.completed = []*matchModel.Match{
		completedBotMatch("a", 1, start, false, 30*time.Second),
		completedBotMatch("b", 2, start, false, 10*time.Second),
		completedBotMatch("c", 2, start, false, 20*time.Second),
	}

	board := m.Leaderboard()
	if len(board) != 1 || board[0].Fid != 2 {
		t.Fatalf("only fid 2 qualifies, got %+v", board)
	}
}

func TestHumanVsHumanScoring(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, start)

	ended := start.Add(time.Minute)
	m.cycle.completed = []*matchModel.Match{{
		ID:          "hh",
		HumanFid:    1,
		OpponentFid: 2,
		StartedAt:   start,
		EndsAt:      start.Add(3 * time.Minute),
		EndedAt:     &ended,
		Votes: map[uint64]matchModel.Vote{
			1: {Guess: true, VotedAt: ended},  // correct, counterpart is human
			2: {Guess: false, VotedAt: ended}, // wrong
		},
		VoteLocked: true,
		Completed:  true,
	}}

	board := m.Leaderboard()
	if len(board) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board))
	}
	if board[0].Fid != 1 || board[0].Correct != 1 {
		t.Fatalf("fid 1 should lead with the correct guess: %+v", board[0])
	}
	if board[1].Correct != 0 {
		t.Fatalf("fid 2 guessed wrong: %+v", board[1])
	}
}
