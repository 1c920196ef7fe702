package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/thisyearnofear/detective-sub003/internal/ai"
	"github.com/thisyearnofear/detective-sub003/internal/ai/openai"
	"github.com/thisyearnofear/detective-sub003/internal/cache/cachelru"
	"github.com/thisyearnofear/detective-sub003/internal/database"
	cycleDb "github.com/thisyearnofear/detective-sub003/internal/database/cycle/database"
	matchDb "github.com/thisyearnofear/detective-sub003/internal/database/match/database"
	replyDb "github.com/thisyearnofear/detective-sub003/internal/database/reply/database"
	statDb "github.com/thisyearnofear/detective-sub003/internal/database/stat/database"
	"github.com/thisyearnofear/detective-sub003/internal/detective"
	"github.com/thisyearnofear/detective-sub003/internal/httpapi"
	"github.com/thisyearnofear/detective-sub003/internal/logging"
	"github.com/thisyearnofear/detective-sub003/internal/notify"
	"github.com/thisyearnofear/detective-sub003/internal/shutdown"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, done := shutdown.New()
	defer done()

	_ = godotenv.Load()

	config := detective.Config{}
	if err := envconfig.Process("", &config); err != nil {
		logging.DefaultLogger().Fatalf("processing the config: %v", err)
	}

	logger := logging.NewLogger(config.Debug)
	ctx = logging.WithLogger(ctx, logger)

	if err := realMain(ctx, &config); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context, config *detective.Config) error {
	logger := logging.FromContext(ctx)

	db, err := database.NewFromEnv(ctx, &config.Db)
	if err != nil {
		return fmt.Errorf("new database from env: %v", err)
	}
	defer db.Close(ctx)

	statCache, err := cachelru.NewLRU(config.CacheSize)
	if err != nil {
		return fmt.Errorf("can not create lru cache: %v", err)
	}

	var provider ai.Provider = ai.Canned{}
	if config.OpenAIKey != "" {
		provider = openai.New(config.OpenAIKey, config.OpenAIBaseURL)
	} else {
		logger.Warnf("no OpenAI key configured, bot replies fall back to canned text")
	}

	var notifier notify.Notifier = notify.Nop{}
	if config.TelegramToken != "" && config.TelegramChannel != "" {
		tg, err := notify.NewTelegram(config.TelegramToken, config.TelegramChannel)
		if err != nil {
			return fmt.Errorf("telegram notifier: %v", err)
		}
		notifier = tg
	}

	manager := detective.NewManager(
		config,
		provider,
		notifier,
		cycleDb.New(db),
		matchDb.New(db),
		replyDb.New(db),
		statDb.New(db, statCache),
	)
	if err := manager.Restore(ctx); err != nil {
		return fmt.Errorf("restore: %v", err)
	}

	if config.ProfPort != "" {
		go func() {
			if err := http.ListenAndServe(":"+config.ProfPort, nil); err != nil {
				logger.Errorf("pprof default server: %v", err)
			}
		}()
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		ticker := time.NewTicker(config.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				manager.Tick(ctx, now)
			}
		}
	})

	group.Go(func() error {
		ticker := time.NewTicker(config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				manager.Sweep(ctx, now, nil)
			}
		}
	})

	group.Go(func() error {
		srv := &http.Server{Addr: ":" + config.Port, Handler: httpapi.New(ctx, manager)}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logger.Infof("listening on :%s", config.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	return group.Wait()
}
