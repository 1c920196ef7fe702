package detective

import (
	"context"
	"errors"
	"fmt"
	"sort"

	cycleDb "github.com/thisyearnofear/detective-sub003/internal/database/cycle/database"
	cycleModel "github.com/thisyearnofear/detective-sub003/internal/database/cycle/model"
	matchModel "github.com/thisyearnofear/detective-sub003/internal/database/match/model"
	"github.com/thisyearnofear/detective-sub003/internal/logging"
)

func (c *Cycle) toModel() cycleModel.Cycle {
	s := cycleModel.Cycle{
		ID:                   c.id,
		Phase:                string(c.phase),
		RegistrationOpenedAt: c.registrationOpenedAt,
		RegistrationClosesAt: c.registrationClosesAt,
		StartsAt:             c.startsAt,
		EndsAt:               c.endsAt,
		FinishedAt:           c.finishedAt,
		MaxPlayers:           c.maxPlayers,
		Version:              c.version,
	}

	for _, p := range c.players {
		s.Players = append(s.Players, p)
	}
	sort.Slice(s.Players, func(i, j int) bool { return s.Players[i].Fid < s.Players[j].Fid })

	for fid := range c.matched {
		s.Matched = append(s.Matched, fid)
	}
	sort.Slice(s.Matched, func(i, j int) bool { return s.Matched[i] < s.Matched[j] })

	for id := range c.active {
		s.ActiveMatchIDs = append(s.ActiveMatchIDs, id)
	}
	sort.Strings(s.ActiveMatchIDs)

	for _, mt := range c.completed {
		s.CompletedMatchIDs = append(s.CompletedMatchIDs, mt.ID)
	}

	return s
}

func cycleFromModel(s cycleModel.Cycle, matches []matchModel.Match, config *Config) *Cycle {
	c := &Cycle{
		id:                   s.ID,
		phase:                Phase(s.Phase),
		registrationOpenedAt: s.RegistrationOpenedAt,
		registrationClosesAt: s.RegistrationClosesAt,
		startsAt:             s.StartsAt,
		endsAt:               s.EndsAt,
		finishedAt:           s.FinishedAt,
		maxPlayers:           s.MaxPlayers,
		version:              s.Version,
		players:              map[uint64]cycleModel.Player{},
		matched:              map[uint64]struct{}{},
		active:               map[string]*matchModel.Match{},
	}
	if c.phase == "" {
		c.phase = PhaseRegistration
	}
	if c.maxPlayers == 0 {
		c.maxPlayers = config.MaxPlayers
	}

	for _, p := range s.Players {
		c.players[p.Fid] = p
	}
	for _, fid := range s.Matched {
		c.matched[fid] = struct{}{}
	}

	byID := map[string]*matchModel.Match{}
	for i := range matches {
		byID[matches[i].ID] = &matches[i]
	}
	for _, id := range s.ActiveMatchIDs {
		if mt, ok := byID[id]; ok {
			c.active[id] = mt
		}
	}
	for _, id := range s.CompletedMatchIDs {
		if mt, ok := byID[id]; ok {
			c.completed = append(c.completed, mt)
		}
	}

	return c
}

// Restore reloads the most recent cycle, its matches and the pending bot
// replies, so a restart resumes mid-cycle instead of starting over.
func (m *Manager) Restore(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("restore")
	if m.cycleDb == nil {
		return nil
	}

	s, err := m.cycleDb.FetchLatest()
	if err != nil {
		if errors.Is(err, cycleDb.ErrNotFound) {
			logger.Infof("no persisted cycle, starting fresh")
			return nil
		}
		return fmt.Errorf("fetch latest cycle: %w", err)
	}

	var matches []matchModel.Match
	if m.matchDb != nil {
		matches, err = m.matchDb.FetchByCycle(s.ID)
		if err != nil {
			return fmt.Errorf("fetch matches for cycle %d: %w", s.ID, err)
		}
	}

	m.mtx.Lock()
	m.cycle = cycleFromModel(s, matches, m.config)
	m.mtx.Unlock()

	if m.sched.db != nil {
		pending, err := m.sched.db.FetchPending()
		if err != nil {
			return fmt.Errorf("fetch pending replies: %w", err)
		}
		m.sched.restore(pending)
		logger.Infof("restored cycle %d with %d matches and %d pending replies", s.ID, len(matches), len(pending))
	} else {
		logger.Infof("restored cycle %d with %d matches", s.ID, len(matches))
	}

	return nil
}

func (m *Manager) persistCycle(ctx context.Context, s cycleModel.Cycle) {
	if m.cycleDb == nil {
		return
	}
	if err := m.cycleDb.Store(s); err != nil {
		logging.FromContext(ctx).Errorf("persist cycle %d: %v", s.ID, err)
	}
}

func (m *Manager) persistMatch(ctx context.Context, mt matchModel.Match) {
	if m.matchDb == nil {
		return
	}
	if err := m.matchDb.Store(mt); err != nil {
		logging.FromContext(ctx).Errorf("persist match %s: %v", mt.ID, err)
	}
}
