package detective

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thisyearnofear/detective-sub003/internal/ai"
	cycleDb "github.com/thisyearnofear/detective-sub003/internal/database/cycle/database"
	cycleModel "github.com/thisyearnofear/detective-sub003/internal/database/cycle/model"
	matchDb "github.com/thisyearnofear/detective-sub003/internal/database/match/database"
	matchModel "github.com/thisyearnofear/detective-sub003/internal/database/match/model"
	replyDb "github.com/thisyearnofear/detective-sub003/internal/database/reply/database"
	statDb "github.com/thisyearnofear/detective-sub003/internal/database/stat/database"
	statModel "github.com/thisyearnofear/detective-sub003/internal/database/stat/model"
	"github.com/thisyearnofear/detective-sub003/internal/logging"
	"github.com/thisyearnofear/detective-sub003/internal/notify"
)

// Manager is the single authority over the active cycle. Every mutation of
// cycle, registry, matched-set and match state goes through its mutex.
type Manager struct {
	mtx sync.RWMutex

	config *Config
	cycle  *Cycle
	sched  *Scheduler

	provider ai.Provider
	notifier notify.Notifier

	cycleDb *cycleDb.DB
	matchDb *matchDb.DB
	statDb  *statDb.DB

	now func() time.Time
}

func NewManager(config *Config, provider ai.Provider, notifier notify.Notifier,
	cycles *cycleDb.DB, matches *matchDb.DB, replies *replyDb.DB, stats *statDb.DB) *Manager {
	m := &Manager{
		config:   config,
		provider: provider,
		notifier: notifier,
		cycleDb:  cycles,
		matchDb:  matches,
		statDb:   stats,
		now:      time.Now,
	}
	m.sched = NewScheduler(config, replies)
	m.cycle = newCycle(1, m.now(), config)
	return m
}

// Register adds a verified profile to the current cycle's registry. Only
// possible while the cycle is in REGISTRATION and below capacity.
func (m *Manager) Register(ctx context.Context, p cycleModel.Player) (cycleModel.Player, error) {
	logger := logging.FromContext(ctx).Named("registry")
	now := m.now()

	m.mtx.Lock()
	if m.cycle.PhaseAt(now) != PhaseRegistration {
		m.mtx.Unlock()
		return cycleModel.Player{}, ErrNotRegistration
	}

	p.RegisteredAt = now
	registered, err := m.cycle.register(p)
	if err != nil {
		m.mtx.Unlock()
		return cycleModel.Player{}, err
	}

	snapshot := m.cycle.toModel()
	m.mtx.Unlock()

	logger.Infof("fid %d registered for cycle %d", registered.Fid, snapshot.ID)
	m.persistCycle(ctx, snapshot)

	return registered, nil
}

// Tick evaluates cycle boundaries once. Safe to call at any frequency; calls
// between boundaries are no-ops.
func (m *Manager) Tick(ctx context.Context, now time.Time) Transition {
	logger := logging.FromContext(ctx).Named("cycle")

	m.mtx.Lock()
	c := m.cycle
	tr, finished := c.tick(now)

	var expired []matchModel.Match
	var board []LeaderboardEntry
	var statMatches []matchModel.Match
	var players map[uint64]cycleModel.Player
	if finished {
		before := len(c.completed)
		c.expireOpenMatches(now)
		for _, mt := range c.completed[before:] {
			expired = append(expired, *mt)
		}

		board = m.leaderboardLocked()
		for _, mt := range c.completed {
			statMatches = append(statMatches, *mt)
		}
		players = map[uint64]cycleModel.Player{}
		for fid, p := range c.players {
			players[fid] = p
		}
	}

	if !tr.Transitioned && c.phase == PhaseFinished && c.graceElapsed(now, m.config.GracePeriod) {
		m.cycle = newCycle(c.id+1, now, m.config)
		tr = Transition{Transitioned: true, From: PhaseFinished, To: PhaseRegistration}
	}

	var snapshot cycleModel.Cycle
	if tr.Transitioned {
		snapshot = m.cycle.toModel()
	}
	m.mtx.Unlock()

	if !tr.Transitioned {
		return tr
	}

	logger.Infof("cycle %d moved %s -> %s", snapshot.ID, tr.From, tr.To)
	m.persistCycle(ctx, snapshot)

	for _, mt := range expired {
		m.persistMatch(ctx, mt)
	}

	if finished {
		m.applyStats(ctx, statMatches, players)
		m.announceResults(ctx, snapshot.ID, board)
	} else {
		m.announceTransition(ctx, snapshot.ID, tr)
	}

	return tr
}

func (m *Manager) announceTransition(ctx context.Context, cycleID uint64, tr Transition) {
	var text string
	switch tr.To {
	case PhaseLive:
		text = fmt.Sprintf("Cycle %d is live. Matches are open — can you spot the bot?", cycleID)
	case PhaseRegistration:
		text = fmt.Sprintf("Registration for cycle %d is open.", cycleID)
	default:
		return
	}

	if err := m.notifier.Announce(ctx, text); err != nil {
		logging.FromContext(ctx).Errorf("announce transition: %v", err)
	}
}

func (m *Manager) announceResults(ctx context.Context, cycleID uint64, board []LeaderboardEntry) {
	text := fmt.Sprintf("Cycle %d is over.", cycleID)
	if len(board) > 0 {
		top := board[0]
		text = fmt.Sprintf("Cycle %d is over. Top detective: %s (%.0f%% accuracy over %d matches).",
			cycleID, top.DisplayName, top.Accuracy*100, top.Matches)
	}

	if err := m.notifier.Announce(ctx, text); err != nil {
		logging.FromContext(ctx).Errorf("announce results: %v", err)
	}
}

// applyStats folds a finished cycle's completed matches into the lifetime
// per-player stats. Detective side counts votes; subject side counts how the
// voter judged the counterpart, attributed to the fingerprint source when the
// counterpart was a persona.
func (m *Manager) applyStats(ctx context.Context, completed []matchModel.Match, players map[uint64]cycleModel.Player) {
	if m.statDb == nil {
		return
	}
	logger := logging.FromContext(ctx).Named("stats")

	update := func(fid uint64, fn func(*statModel.Stat)) {
		if fid == 0 {
			return
		}
		s, err := m.statDb.Fetch(fid)
		if err != nil {
			s = statModel.Stat{Fid: fid}
			if p, ok := players[fid]; ok {
				s.Username = p.Username
				s.DisplayName = p.DisplayName
			}
		}
		fn(&s)
		s.UpdatedAt = m.now()
		if err := m.statDb.Store(s); err != nil {
			logger.Errorf("store stat for fid %d: %v", fid, err)
		}
	}

	for i := range completed {
		mt := completed[i]
		for voter, vote := range mt.Votes {
			guess := vote.Guess
			correct := guess == !mt.CounterpartIsBot(voter)
			duration := vote.VotedAt.Sub(mt.StartedAt)

			update(voter, func(s *statModel.Stat) {
				s.Matches++
				if correct {
					s.Correct++
				}
				s.VoteDuration += duration
			})

			// who was judged, and were they believed to be real
			var judged uint64
			if mt.CounterpartIsBot(voter) {
				judged = mt.Bot.SourceFid
			} else if voter == mt.HumanFid {
				judged = mt.OpponentFid
			} else {
				judged = mt.HumanFid
			}
			update(judged, func(s *statModel.Stat) {
				s.TimesJudged++
				if guess {
					s.TimesJudgedReal++
				}
			})
		}
	}
}

// CycleInfo is the public snapshot of the current cycle.
type CycleInfo struct {
	ID                   uint64    `json:"id"`
	Phase                Phase     `json:"phase"`
	RegistrationClosesAt time.Time `json:"registrationClosesAt"`
	EndsAt               time.Time `json:"endsAt"`
	Players              int       `json:"players"`
	MaxPlayers           int       `json:"maxPlayers"`
}

func (m *Manager) CycleInfo() CycleInfo {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return CycleInfo{
		ID:                   m.cycle.id,
		Phase:                m.cycle.PhaseAt(m.now()),
		RegistrationClosesAt: m.cycle.registrationClosesAt,
		EndsAt:               m.cycle.endsAt,
		Players:              len(m.cycle.players),
		MaxPlayers:           m.cycle.maxPlayers,
	}
}
