package detective

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	matchModel "github.com/thisyearnofear/detective-sub003/internal/database/match/model"
	replyDb "github.com/thisyearnofear/detective-sub003/internal/database/reply/database"
	replyModel "github.com/thisyearnofear/detective-sub003/internal/database/reply/model"
	"github.com/thisyearnofear/detective-sub003/internal/logging"
	"github.com/thisyearnofear/detective-sub003/internal/util"
	"github.com/valyala/fastrand"
)

// matchAppender is the slice of the match store the scheduler needs to
// deliver a reply.
type matchAppender interface {
	AppendBotMessage(ctx context.Context, matchID, personaID, text string) (matchModel.Message, time.Duration, error)
}

// Scheduler owns every ScheduledBotReply until delivery. Replies are durable
// records fired by the sweep against the wall clock, never by in-process
// timers, so they survive restarts.
type Scheduler struct {
	mtx        sync.Mutex
	replies    map[string]*replyModel.Reply
	inFlight   map[string]struct{}
	generating map[string]struct{}

	config *Config
	db     *replyDb.DB
}

func NewScheduler(config *Config, db *replyDb.DB) *Scheduler {
	return &Scheduler{
		replies:    map[string]*replyModel.Reply{},
		inFlight:   map[string]struct{}{},
		generating: map[string]struct{}{},
		config:     config,
		db:         db,
	}
}

// restore reloads pending replies at boot.
func (s *Scheduler) restore(list []replyModel.Reply) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for i := range list {
		r := list[i]
		s.replies[r.ID] = &r
	}
}

// replyDelay models human timing: a noticing delay with jitter, plus typing
// time proportional to the reply length.
func (s *Scheduler) replyDelay(text string) time.Duration {
	delay := s.config.BotBaseReaction
	if jitter := s.config.BotReactionJitter; jitter > 0 {
		delay += time.Duration(fastrand.Uint32n(uint32(jitter / time.Millisecond))) * time.Millisecond
	}

	typing := time.Duration(len(text)) * s.config.BotTypingPerChar
	if typing > s.config.BotTypingMax {
		typing = s.config.BotTypingMax
	}

	return delay + typing
}

// beginReply claims the single reply slot for a match. A second human message
// while a reply is pending or generating produces nothing extra.
func (s *Scheduler) beginReply(matchID string) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, busy := s.generating[matchID]; busy {
		return false
	}
	for _, r := range s.replies {
		if r.MatchID == matchID {
			return false
		}
	}
	s.generating[matchID] = struct{}{}
	return true
}

func (s *Scheduler) endReply(matchID string) {
	s.mtx.Lock()
	delete(s.generating, matchID)
	s.mtx.Unlock()
}

// schedule stores text as a pending reply due at now plus the computed delay.
func (s *Scheduler) schedule(ctx context.Context, matchID, personaID, text string, now time.Time) *replyModel.Reply {
	r := &replyModel.Reply{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		PersonaID: personaID,
		Text:      text,
		DeliverAt: now.Add(s.replyDelay(text)),
		CreatedAt: now,
		Status:    replyModel.StatusPending,
	}

	s.mtx.Lock()
	s.replies[r.ID] = r
	s.mtx.Unlock()

	if s.db != nil {
		if err := s.db.Store(*r); err != nil {
			logging.FromContext(ctx).Errorf("store scheduled reply: %v", err)
		}
	}

	return r
}

// DeliveryOutcome is the per-reply result of one sweep.
type DeliveryOutcome struct {
	ReplyID   string `json:"replyId"`
	MatchID   string `json:"matchId"`
	Delivered bool   `json:"delivered"`
	Discarded bool   `json:"discarded"`
	Failed    bool   `json:"failed"`
	Retried   bool   `json:"retried"`
}

// sweep attempts delivery of every due pending reply. matchIDs narrows the
// batch when non-empty. Each reply is claimed in-flight before any store
// access, so concurrent sweeps cannot double-append.
func (s *Scheduler) sweep(ctx context.Context, appender matchAppender, now time.Time, matchIDs []string) []DeliveryOutcome {
	logger := logging.FromContext(ctx).Named("sweep")

	filter := map[string]struct{}{}
	for _, id := range matchIDs {
		filter[id] = struct{}{}
	}

	s.mtx.Lock()
	var due []*replyModel.Reply
	for _, r := range s.replies {
		if r.Status != replyModel.StatusPending || r.DeliverAt.After(now) {
			continue
		}
		if len(filter) > 0 {
			if _, ok := filter[r.MatchID]; !ok {
				continue
			}
		}
		if _, busy := s.inFlight[r.ID]; busy {
			continue
		}
		s.inFlight[r.ID] = struct{}{}
		due = append(due, r)
	}
	s.mtx.Unlock()

	var outcomes []DeliveryOutcome
	for _, r := range due {
		outcome := DeliveryOutcome{ReplyID: r.ID, MatchID: r.MatchID}

		_, remaining, err := appender.AppendBotMessage(ctx, r.MatchID, r.PersonaID, r.Text)

		s.mtx.Lock()
		switch {
		case err == nil:
			r.Status = replyModel.StatusDelivered
			outcome.Delivered = true
		case errors.Is(err, ErrMatchEnded) || errors.Is(err, ErrMatchNotFound):
			// the match is gone; never leak the reply, never retry
			r.Status = replyModel.StatusDelivered
			outcome.Discarded = true
		default:
			r.Retries++
			if r.Retries >= s.config.DeliveryRetryLimit {
				r.Status = replyModel.StatusFailed
				outcome.Failed = true
			} else {
				outcome.Retried = true
			}
		}
		done := r.Status != replyModel.StatusPending
		if done {
			delete(s.replies, r.ID)
		}
		delete(s.inFlight, r.ID)
		s.mtx.Unlock()

		switch {
		case outcome.Failed:
			logger.Errorf("reply %s for match %s failed after %d attempts: %v", r.ID, r.MatchID, r.Retries, err)
		case outcome.Retried:
			logger.Warnf("reply %s for match %s delivery attempt failed, will retry: %v", r.ID, r.MatchID, err)
		case outcome.Discarded:
			logger.Debugf("reply %s discarded, match %s no longer accepts messages", r.ID, r.MatchID)
		}

		if s.db != nil {
			var dbErr error
			if done {
				dbErr = s.db.Delete(r.ID)
			} else {
				dbErr = s.db.Store(*r)
			}
			if dbErr != nil {
				logger.Errorf("persist reply %s: %v", r.ID, dbErr)
			}
		}

		if outcome.Delivered && remaining > s.config.FollowUpMinRemaining &&
			int(fastrand.Uint32n(100)) < s.config.FollowUpChancePct {
			go s.followUp(ctx, appender, r.MatchID, r.PersonaID)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

var followUps = []string{
	"oh also",
	"wait no",
	"actually nvm",
	"you still there?",
	"anyway",
}

// followUp appends one extra message shortly after a delivered reply. It is
// best-effort: no scheduling record, no retries, errors only logged.
func (s *Scheduler) followUp(ctx context.Context, appender matchAppender, matchID, personaID string) {
	util.Sleep(time.Second + time.Duration(fastrand.Uint32n(2000))*time.Millisecond)

	text := followUps[fastrand.Uint32n(uint32(len(followUps)))]
	if _, _, err := appender.AppendBotMessage(ctx, matchID, personaID, text); err != nil {
		logging.FromContext(ctx).Debugf("follow-up for match %s dropped: %v", matchID, err)
	}
}

// scheduleReply generates reply text for the persona and hands it to the
// scheduler. Runs outside any manager critical section.
func (m *Manager) scheduleReply(ctx context.Context, matchID string, persona *matchModel.Persona, transcript []matchModel.Message) {
	logger := logging.FromContext(ctx).Named("scheduler")

	if !m.sched.beginReply(matchID) {
		return
	}
	defer m.sched.endReply(matchID)

	var b strings.Builder
	for _, msg := range transcript {
		if msg.Sender == persona.ID {
			b.WriteString("you: ")
		} else {
			b.WriteString("them: ")
		}
		b.WriteString(msg.Text)
		b.WriteString("\n")
	}

	text, err := m.provider.CompleteWithSystem(ctx, m.config.AIModel, personaSystemPrompt(persona), b.String())
	if err != nil {
		logger.Errorf("generate reply for match %s: %v", matchID, err)
		return
	}

	r := m.sched.schedule(ctx, matchID, persona.ID, text, m.now())
	logger.Debugf("reply %s scheduled for match %s at %s", r.ID, matchID, r.DeliverAt)
}

// Sweep runs one delivery pass. It is driven by the periodic loop and by the
// on-demand endpoint; both may fire concurrently without double-delivery.
func (m *Manager) Sweep(ctx context.Context, now time.Time, matchIDs []string) []DeliveryOutcome {
	return m.sched.sweep(ctx, m, now, matchIDs)
}
