package detective

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	matchModel "github.com/thisyearnofear/detective-sub003/internal/database/match/model"
	"github.com/thisyearnofear/detective-sub003/internal/logging"
)

// SendMessage appends a human message to a live match. The append is
// non-blocking; any bot reply is generated and scheduled in the background.
func (m *Manager) SendMessage(ctx context.Context, matchID string, sender uint64, text string) (matchModel.Message, error) {
	now := m.now()

	m.mtx.Lock()
	mt, ok := m.cycle.active[matchID]
	if !ok {
		completed := m.cycle.wasCompleted(matchID)
		m.mtx.Unlock()
		if completed {
			return matchModel.Message{}, ErrMatchEnded
		}
		return matchModel.Message{}, ErrMatchNotFound
	}
	if !now.Before(mt.EndsAt) {
		m.mtx.Unlock()
		return matchModel.Message{}, ErrMatchEnded
	}

	participant := false
	for _, fid := range mt.Participants() {
		if fid == sender {
			participant = true
		}
	}
	if !participant {
		m.mtx.Unlock()
		return matchModel.Message{}, ErrUnknownPlayer
	}

	msg := appendMessage(mt, strconv.FormatUint(sender, 10), text, now)

	var persona *matchModel.Persona
	var transcript []matchModel.Message
	if mt.IsBotMatch() && sender == mt.HumanFid {
		persona = mt.Bot
		transcript = append(transcript, mt.Messages...)
	}
	snapshot := *mt
	m.mtx.Unlock()

	m.persistMatch(ctx, snapshot)

	// the request context dies with the handler; background work keeps the
	// logger but must not inherit the cancellation
	bg := context.WithoutCancel(ctx)

	if persona != nil {
		// text generation is network I/O, keep it off the caller's path
		go m.scheduleReply(bg, snapshot.ID, persona, transcript)
	}

	go func() {
		if err := m.notifier.Push(bg, snapshot.ID, msg.ID); err != nil {
			logging.FromContext(bg).Debugf("push notify: %v", err)
		}
	}()

	return msg, nil
}

// appendMessage stamps a server timestamp, strictly later than the previous
// message so poll cursors never skip or duplicate. Caller holds the lock.
func appendMessage(mt *matchModel.Match, sender, text string, now time.Time) matchModel.Message {
	ts := now
	if n := len(mt.Messages); n > 0 {
		if last := mt.Messages[n-1].SentAt; !ts.After(last) {
			ts = last.Add(time.Millisecond)
		}
	}

	msg := matchModel.Message{
		ID:     uuid.NewString(),
		Sender: sender,
		Text:   text,
		SentAt: ts,
	}
	mt.Messages = append(mt.Messages, msg)
	return msg
}

// AppendBotMessage writes a delivered bot reply into its match. It reports
// ErrMatchEnded or ErrMatchNotFound so the sweep can discard stale replies,
// and returns the time remaining in the match for the follow-up decision.
func (m *Manager) AppendBotMessage(ctx context.Context, matchID, personaID, text string) (matchModel.Message, time.Duration, error) {
	now := m.now()

	m.mtx.Lock()
	mt, ok := m.cycle.active[matchID]
	if !ok {
		m.mtx.Unlock()
		return matchModel.Message{}, 0, ErrMatchNotFound
	}
	if !now.Before(mt.EndsAt) {
		m.mtx.Unlock()
		return matchModel.Message{}, 0, ErrMatchEnded
	}
	if mt.Bot == nil || mt.Bot.ID != personaID {
		m.mtx.Unlock()
		return matchModel.Message{}, 0, ErrMatchNotFound
	}

	msg := appendMessage(mt, personaID, text, now)
	remaining := mt.EndsAt.Sub(now)
	snapshot := *mt
	m.mtx.Unlock()

	m.persistMatch(ctx, snapshot)

	bg := context.WithoutCancel(ctx)
	go func() {
		if err := m.notifier.Push(bg, snapshot.ID, msg.ID); err != nil {
			logging.FromContext(bg).Debugf("push notify: %v", err)
		}
	}()

	return msg, remaining, nil
}

// PollMessages returns the messages strictly newer than since, in append
// order. Absent or ended matches yield an empty result so polling clients
// degrade gracefully.
func (m *Manager) PollMessages(matchID string, since time.Time) []matchModel.Message {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	mt, ok := m.cycle.active[matchID]
	if !ok {
		for _, completed := range m.cycle.completed {
			if completed.ID == matchID {
				mt = completed
				break
			}
		}
	}
	if mt == nil {
		return nil
	}

	// messages are already in timestamp order; find the suffix
	idx := sort.Search(len(mt.Messages), func(i int) bool {
		return mt.Messages[i].SentAt.After(since)
	})

	out := make([]matchModel.Message, len(mt.Messages)-idx)
	copy(out, mt.Messages[idx:])
	return out
}

type VoteResult struct {
	Finalized   bool               `json:"finalized"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// SubmitVote records a guess ("my counterpart is human") keyed by voter.
// Resubmission overwrites. A human-vs-bot match finalizes on the single human
// vote; human-vs-human needs both.
func (m *Manager) SubmitVote(ctx context.Context, matchID string, voter uint64, guess bool) (VoteResult, error) {
	logger := logging.FromContext(ctx).Named("vote")
	now := m.now()

	m.mtx.Lock()
	mt, ok := m.cycle.active[matchID]
	if !ok {
		completed := m.cycle.wasCompleted(matchID)
		m.mtx.Unlock()
		if completed {
			return VoteResult{}, ErrMatchEnded
		}
		return VoteResult{}, ErrMatchNotFound
	}
	if mt.VoteLocked {
		m.mtx.Unlock()
		return VoteResult{}, ErrMatchEnded
	}

	eligible := false
	for _, fid := range mt.Participants() {
		if fid == voter {
			eligible = true
		}
	}
	if !eligible {
		m.mtx.Unlock()
		return VoteResult{}, ErrUnknownPlayer
	}

	mt.Votes[voter] = matchModel.Vote{Guess: guess, VotedAt: now}

	finalized := false
	if mt.IsBotMatch() {
		finalized = true
	} else {
		_, aVoted := mt.Votes[mt.HumanFid]
		_, bVoted := mt.Votes[mt.OpponentFid]
		finalized = aVoted && bVoted
	}

	if finalized {
		m.cycle.completeMatch(mt, now)
	}

	snapshot := *mt
	cycleSnapshot := m.cycle.toModel()
	board := m.leaderboardLocked()
	m.mtx.Unlock()

	if finalized {
		logger.Infof("match %s finalized by vote from fid %d", matchID, voter)
	}

	m.persistMatch(ctx, snapshot)
	m.persistCycle(ctx, cycleSnapshot)

	return VoteResult{Finalized: finalized, Leaderboard: board}, nil
}

func (c *Cycle) wasCompleted(matchID string) bool {
	for _, mt := range c.completed {
		if mt.ID == matchID {
			return true
		}
	}
	return false
}

// OpponentView carries only the public fields of a counterpart. Whether the
// counterpart is human or synthetic is deliberately absent.
type OpponentView struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type MatchView struct {
	ID        string               `json:"id"`
	StartedAt time.Time            `json:"startedAt"`
	EndsAt    time.Time            `json:"endsAt"`
	Opponent  OpponentView         `json:"opponent"`
	Messages  []matchModel.Message `json:"messages"`
}

// matchView renders the match as seen by fid. Caller holds the lock.
func (m *Manager) matchView(mt *matchModel.Match, fid uint64) MatchView {
	view := MatchView{
		ID:        mt.ID,
		StartedAt: mt.StartedAt,
		EndsAt:    mt.EndsAt,
		Messages:  append([]matchModel.Message(nil), mt.Messages...),
	}

	if mt.IsBotMatch() {
		view.Opponent = OpponentView{
			Username:    handleFromName(mt.Bot.DisplayName),
			DisplayName: mt.Bot.DisplayName,
			AvatarURL:   mt.Bot.AvatarURL,
		}
		return view
	}

	other := mt.HumanFid
	if fid == mt.HumanFid {
		other = mt.OpponentFid
	}
	if p, ok := m.cycle.players[other]; ok {
		view.Opponent = OpponentView{
			Username:    p.Username,
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
		}
	}
	return view
}
