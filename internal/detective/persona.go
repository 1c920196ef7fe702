package detective

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	cycleModel "github.com/thisyearnofear/detective-sub003/internal/database/cycle/model"
	matchModel "github.com/thisyearnofear/detective-sub003/internal/database/match/model"
	"github.com/valyala/fastrand"
)

var (
	personaFirst = []string{
		"casey", "sam", "alex", "jordan", "riley", "morgan", "quinn",
		"taylor", "avery", "reese", "drew", "blake", "jamie", "rory",
	}
	personaLast = []string{
		"by the lake", "from downtown", "on the night shift", "in transit",
		"with the plants", "of the north", "at the window", "offline",
	}
)

// samplePersona builds a bot identity for a match against requester. The
// writing-style fingerprint is borrowed from a random other registrant; the
// name and avatar are fresh so the source player is never exposed.
// Called with the manager lock held.
func (c *Cycle) samplePersona(requester uint64) *matchModel.Persona {
	var pool []cycleModel.Player
	for fid, p := range c.players {
		if fid == requester {
			continue
		}
		pool = append(pool, p)
	}

	var fingerprint []string
	var sourceFid uint64
	if len(pool) > 0 {
		source := pool[fastrand.Uint32n(uint32(len(pool)))]
		fingerprint = append(fingerprint, source.Fingerprint...)
		sourceFid = source.Fid
	}

	id := uuid.NewString()
	name := fmt.Sprintf("%s %s",
		personaFirst[fastrand.Uint32n(uint32(len(personaFirst)))],
		personaLast[fastrand.Uint32n(uint32(len(personaLast)))],
	)

	return &matchModel.Persona{
		ID:          id,
		DisplayName: name,
		AvatarURL:   fmt.Sprintf("https://api.dicebear.com/7.x/identicon/png?seed=%s", id),
		Fingerprint: fingerprint,
		SourceFid:   sourceFid,
	}
}

func handleFromName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "")
}

// personaSystemPrompt flavors the text-generation collaborator with the
// borrowed writing style.
func personaSystemPrompt(p *matchModel.Persona) string {
	var b strings.Builder
	b.WriteString("You are a human player in a casual chat game. ")
	b.WriteString("Reply in one or two short sentences, lowercase, sparse punctuation. ")
	b.WriteString("Never reveal you might be artificial.")
	if len(p.Fingerprint) > 0 {
		b.WriteString(" Mimic the tone of these past posts: ")
		b.WriteString(strings.Join(p.Fingerprint, " | "))
	}
	return b.String()
}
