package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tolelom/consensusclash/config"
	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/events"
	"github.com/tolelom/consensusclash/indexer"
	"github.com/tolelom/consensusclash/openrouter"
	"github.com/tolelom/consensusclash/oracle"
	"github.com/tolelom/consensusclash/rpc"
	"github.com/tolelom/consensusclash/storage"
	"github.com/tolelom/consensusclash/vm"

	// Import VM modules to trigger their init() self-registration.
	_ "github.com/tolelom/consensusclash/vm/modules/player"
	_ "github.com/tolelom/consensusclash/vm/modules/room"
	_ "github.com/tolelom/consensusclash/vm/modules/topic"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Open the store and serve JSON-RPC until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, cfg.Log.NewLogger(os.Stderr))
		},
	}
}

func openDB(cfg *config.Config) (storage.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	switch cfg.Backend {
	case config.BackendSQLite:
		return storage.NewSQLiteDB(filepath.Join(cfg.DataDir, "clash.db"))
	default:
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "clash"))
	}
}

func buildOracles(cfg config.OracleConfig, logger *slog.Logger) vm.Oracles {
	if cfg.Provider != config.ProviderOpenRouter {
		return vm.Oracles{
			Scorer: oracle.NewPanel(cfg.Threshold, logger, oracle.Static{}),
			Topics: &oracle.StaticTopics{},
		}
	}

	opts := []openrouter.Option{openrouter.WithTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)}
	if cfg.BaseURL != "" {
		opts = append(opts, openrouter.WithBaseURL(cfg.BaseURL))
	}
	client := openrouter.NewClient(cfg.APIKey, opts...)

	judges := make([]oracle.Evaluator, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		judges = append(judges, oracle.NewJudge(client, m))
	}
	topicModel := cfg.TopicModel
	if topicModel == "" {
		topicModel = cfg.Models[0]
	}
	return vm.Oracles{
		Scorer: oracle.NewPanel(cfg.Threshold, logger, judges...),
		Topics: oracle.NewTopics(client, topicModel),
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	state := storage.NewStateDB(db)
	fresh, err := config.InitState(cfg, state)
	if err != nil {
		return fmt.Errorf("init state: %w", err)
	}
	meta, err := state.GetMeta()
	if err != nil {
		return err
	}
	if fresh {
		logger.Info("initialized new store", "owner", meta.Owner)
	} else if meta.Owner != cfg.Owner {
		logger.Warn("configured owner differs from stored owner; stored owner wins", "stored", meta.Owner, "configured", cfg.Owner)
	}

	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter, logger.With("component", "indexer"))
	emitter.Subscribe(events.EventGameCompleted, func(ev events.Event) {
		logger.Info("game completed", "game_id", ev.GameID, "winner", ev.Data["winner"])
	})

	oracles := buildOracles(cfg.Oracle, logger.With("component", "oracle"))
	exec := vm.NewExecutor(state, emitter, oracles, vm.WithLogger(logger.With("component", "vm")))

	tlsCfg, err := config.LoadTLSConfig(cfg.RPC.TLS)
	if err != nil {
		return fmt.Errorf("tls: %w", err)
	}
	handler := rpc.NewHandler(exec, idx, rpc.WithHandlerLogger(logger))
	opts := []rpc.ServerOption{rpc.WithTLS(tlsCfg), rpc.WithServerLogger(logger.With("component", "rpc"))}
	if cfg.RPC.AuthTokenHash != "" {
		opts = append(opts, rpc.WithAuthTokenHash(cfg.RPC.AuthTokenHash))
		logger.Info("rpc bearer token authentication enabled")
	}
	server := rpc.NewServer(fmt.Sprintf(":%d", cfg.RPC.Port), handler, emitter, opts...)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil {
			return fmt.Errorf("rpc start: %w", err)
		}
		<-ctx.Done()
		logger.Info("shutting down")
		return server.Stop()
	})
	g.Go(func() error {
		return reportWeek(ctx, exec, logger)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// reportWeek logs once a week boundary passes without a topic for the new
// week, so the owner knows to call generateWeeklyTopic.
func reportWeek(ctx context.Context, exec *vm.Executor, logger *slog.Logger) error {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			week := core.WeekNumber(now.Unix())
			var stale bool
			err := exec.View(func(s core.State) error {
				topic, err := s.GetTopic()
				if err != nil {
					return err
				}
				stale = topic.WeekNumber < week
				return nil
			})
			if err != nil {
				logger.Error("check weekly topic", "err", err)
				continue
			}
			if stale {
				logger.Warn("weekly topic is stale", "week", week)
			}
		}
	}
}
