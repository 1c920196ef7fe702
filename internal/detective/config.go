package detective

import (
	"time"

	"github.com/thisyearnofear/detective-sub003/internal/database"
)

type Config struct {
	Debug bool `envconfig:"DETECTIVE_DEBUG" default:"false"`

	// Port on which the JSON API and health check are served
	Port string `envconfig:"DETECTIVE_PORT" default:"8080"`

	// profile port, pprof is disabled when empty
	ProfPort string `envconfig:"DETECTIVE_PROF_PORT" default:""`

	// Number of items in the stat cache
	CacheSize int `envconfig:"DETECTIVE_CACHE_SIZE" default:"1024"`

	// Cycle timing
	RegistrationWindow time.Duration `envconfig:"DETECTIVE_REGISTRATION_WINDOW" default:"10m"`
	LiveDuration       time.Duration `envconfig:"DETECTIVE_LIVE_DURATION" default:"30m"`
	GracePeriod        time.Duration `envconfig:"DETECTIVE_GRACE_PERIOD" default:"5m"`
	MatchDuration      time.Duration `envconfig:"DETECTIVE_MATCH_DURATION" default:"3m"`
	MaxPlayers         int           `envconfig:"DETECTIVE_MAX_PLAYERS" default:"256"`

	// Chance in percent that a requester is paired with a bot even when
	// human candidates exist
	BotChancePct int `envconfig:"DETECTIVE_BOT_CHANCE_PCT" default:"50"`

	// Bot reply timing. The delivery instant of a reply is
	// base reaction + jitter + per-character typing time, capped.
	BotBaseReaction   time.Duration `envconfig:"DETECTIVE_BOT_BASE_REACTION" default:"2s"`
	BotReactionJitter time.Duration `envconfig:"DETECTIVE_BOT_REACTION_JITTER" default:"3s"`
	BotTypingPerChar  time.Duration `envconfig:"DETECTIVE_BOT_TYPING_PER_CHAR" default:"60ms"`
	BotTypingMax      time.Duration `envconfig:"DETECTIVE_BOT_TYPING_MAX" default:"8s"`

	// Best-effort follow-up message after a delivered reply
	FollowUpChancePct    int           `envconfig:"DETECTIVE_FOLLOWUP_CHANCE_PCT" default:"10"`
	FollowUpMinRemaining time.Duration `envconfig:"DETECTIVE_FOLLOWUP_MIN_REMAINING" default:"30s"`

	DeliveryRetryLimit    int `envconfig:"DETECTIVE_DELIVERY_RETRY_LIMIT" default:"3"`
	MinLeaderboardMatches int `envconfig:"DETECTIVE_MIN_LEADERBOARD_MATCHES" default:"1"`

	TickInterval  time.Duration `envconfig:"DETECTIVE_TICK_INTERVAL" default:"5s"`
	SweepInterval time.Duration `envconfig:"DETECTIVE_SWEEP_INTERVAL" default:"2s"`

	// Optional channel announcements for cycle transitions
	TelegramToken   string `envconfig:"DETECTIVE_TELEGRAM_TOKEN"`
	TelegramChannel string `envconfig:"DETECTIVE_TELEGRAM_CHANNEL"`

	// Text generation collaborator; canned replies are used without a key
	OpenAIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	AIModel       string `envconfig:"DETECTIVE_AI_MODEL" default:"gpt-4o-mini"`

	Db database.Config
}
