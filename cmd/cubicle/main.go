package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"cubicle/internal/agents"
	"cubicle/internal/api"
	"cubicle/internal/config"
	"cubicle/internal/content"
	"cubicle/internal/guardrail"
	"cubicle/internal/llm"
	"cubicle/internal/logging"
	"cubicle/internal/orchestrator"
	"cubicle/internal/prompt"
	"cubicle/internal/session"
	"cubicle/internal/store"
)

const version = "0.3.0"

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cubicle",
	Short: "cubicle - interactive workplace training scenarios",
	Long: `cubicle runs turn-based interactive training scenarios. Players respond
to unfolding workplace situations in free text or by picking offered
choices; model-backed characters react, a judge scores each response,
and a coach debriefs the playthrough.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var modulesCmd = &cobra.Command{
	Use:   "modules [module-id]",
	Short: "List available training scenarios",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		loader, err := content.NewLoader(cfg.Content.Dir)
		if err != nil {
			return err
		}

		moduleIDs := args
		if len(moduleIDs) == 0 {
			entries, err := os.ReadDir(cfg.Content.Dir)
			if err != nil {
				return fmt.Errorf("read content dir %s: %w", cfg.Content.Dir, err)
			}
			for _, e := range entries {
				if e.IsDir() && e.Name() != "skills" {
					moduleIDs = append(moduleIDs, e.Name())
				}
			}
		}

		for _, moduleID := range moduleIDs {
			ids, err := loader.ListScenarios(moduleID)
			if err != nil {
				return err
			}
			for _, id := range ids {
				scenario, err := loader.LoadScenario(moduleID, id)
				if err != nil {
					fmt.Printf("%s/%s (invalid: %v)\n", moduleID, id, err)
					continue
				}
				fmt.Printf("%s/%s  %s (%d steps)\n", moduleID, id, scenario.Title, scenario.MaxSteps)
			}
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cubicle %s\n", version)
	},
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	categories := map[string]bool{}
	for _, c := range cfg.Logging.Categories {
		categories[c] = true
	}
	if len(categories) == 0 {
		categories = nil
	}
	if err := logging.Initialize(logging.Options{
		Enabled:    cfg.Logging.Enabled,
		Dir:        cfg.Logging.Dir,
		Level:      cfg.Logging.Level,
		Categories: categories,
	}); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer logging.CloseAll()

	var backend store.Store
	switch cfg.Store.Backend {
	case "memory":
		backend = store.NewMemoryStore()
	default:
		backend, err = store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return err
		}
	}
	defer backend.Close()

	loader, err := content.NewLoader(cfg.Content.Dir)
	if err != nil {
		return err
	}
	if cfg.Content.Watch {
		if err := loader.Watch(); err != nil {
			logger.Warn("content watch disabled", zap.Error(err))
		}
	}
	defer loader.Close()

	client := llm.NewGeminiClientWithConfig(llm.GeminiConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.RequestTimeoutDuration(),
	})
	chats, err := llm.NewGenAIChatFactory(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return fmt.Errorf("create chat factory: %w", err)
	}

	builder := prompt.NewBuilder(loader.Skills())
	sessions := session.NewManager(backend)
	orch := orchestrator.New(orchestrator.Config{
		Sessions:  sessions,
		Guard:     guardrail.New(agents.NewGeminiSafety(client)),
		Evaluator: agents.NewGeminiEvaluator(client, loader, builder),
		Narrator:  agents.NewGeminiNarrator(client, loader, builder),
		Actors:    orchestrator.NewActorCache(agents.NewChatActorFactory(chats, loader, builder)),
	})

	server := api.NewServer(api.ServerConfig{
		Sessions:     sessions,
		Orchestrator: orch,
		Initializer:  content.NewInitializer(loader),
		Loader:       loader,
		Coach:        agents.NewGeminiCoach(client, loader),
		Logger:       logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.Boot("cubicle %s wired: addr=%s store=%s content=%s model=%s",
		version, cfg.Server.Addr, cfg.Store.Backend, cfg.Content.Dir, cfg.LLM.Model)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "cubicle.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd, modulesCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
