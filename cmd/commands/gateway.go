package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/urfave/cli/v3"

	"github.com/mnemo-ai/mnemo/internal/assistant"
	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/events"
	"github.com/mnemo-ai/mnemo/internal/gateway"
	"github.com/mnemo-ai/mnemo/internal/gateway/ws"
	"github.com/mnemo-ai/mnemo/internal/heartbeat"
	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/models"
	"github.com/mnemo-ai/mnemo/internal/scanner"
	"github.com/mnemo-ai/mnemo/internal/sessions"
	"github.com/mnemo-ai/mnemo/internal/source"
	"github.com/mnemo-ai/mnemo/internal/storage"
	"github.com/mnemo-ai/mnemo/internal/tools"
)

// NewGatewayCommand returns the gateway subcommand.
func NewGatewayCommand() *cli.Command {
	return &cli.Command{
		Name:  "gateway",
		Usage: "Start the mnemo gateway daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runGateway,
	}
}

func runGateway(_ context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", configPath, "error", err)
		cfg = config.Default()
	}

	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bus := events.NewBus(256)
	defer bus.Close()

	chatModel, err := models.CreateDefault(ctx, cfg.Models)
	if err != nil {
		return fmt.Errorf("init default model: %w", err)
	}

	embedder, err := memory.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}

	if err := os.MkdirAll(cfg.Memory.Dir, 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	store, err := memory.NewVectorStore(cfg.Memory.Dir, embedder)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}

	audit, err := storage.OpenAuditLog(cfg.Memory.AuditDB)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer audit.Close()

	eventLogger := storage.NewEventLogger(filepath.Join(config.MnemoPath(), "events"), bus)
	defer eventLogger.Close()

	// The WS hub exists only after the server does; route deliveries through
	// this indirection so the hub can be the conversation transport.
	var wsHub *ws.Hub
	chans := source.NewChannelHub(func(ctx context.Context, sourceID, content string) error {
		if wsHub == nil {
			return nil
		}
		return wsHub.Deliver(ctx, sourceID, content)
	})

	completer := models.NewCompleter(chatModel)
	consolidator := memory.NewConsolidator(memory.ConsolidatorConfig{
		Extractor: memory.NewExtractor(completer),
		Resolver:  memory.NewResolver(embedder, store, cfg.Memory.NeighborLimit),
		Planner:   memory.NewPlanner(completer),
		Mutator:   memory.NewMutator(store),
		Bus:       bus,
		Audit:     audit,
	})

	var searchTools []tool.InvokableTool
	if webSearch, err := tools.NewWebSearch(ctx, cfg.WebSearch); err != nil {
		slog.Warn("web search disabled", "error", err)
	} else {
		searchTools = append(searchTools, webSearch)
	}

	asst, err := assistant.New(ctx, assistant.Config{
		Model:           chatModel,
		Tools:           searchTools,
		Sessions:        sessions.NewRegistry(cfg.Session.HistoryLimit, cfg.Session.IdleTimeout.Duration()),
		Retriever:       memory.NewRetriever(embedder, store, cfg.Memory.RetrievalLimit),
		Source:          chans,
		Replies:         chans,
		Bus:             bus,
		FollowUpTimeout: cfg.Session.FollowUpTimeout.Duration(),
		Budget:          cfg.Session.RequestBudget,
	})
	if err != nil {
		return fmt.Errorf("init assistant: %w", err)
	}

	scan := scanner.New(scanner.Config{
		Source:        chans,
		Runner:        consolidator,
		Bus:           bus,
		Sources:       cfg.Scanner.Sources,
		Lookback:      cfg.Scanner.Lookback.Duration(),
		CommandPrefix: cfg.Scanner.CommandPrefix,
		Announce:      true,
	})

	schedule := scanner.NewSchedule(scan, cfg.Scanner.Interval.Duration(), cfg.Scanner.SeenClearEvery.Duration())
	if err := schedule.Start(ctx); err != nil {
		return fmt.Errorf("start scan schedule: %w", err)
	}
	defer schedule.Stop()

	server := gateway.NewServer(gateway.Config{
		Host:      cfg.Gateway.Host,
		Port:      cfg.Gateway.Port,
		Bus:       bus,
		Assistant: asst,
		Scanner:   scan,
		Store:     store,
		Audit:     audit,
		Dispatch:  gateway.NewDispatcher(chans, asst),
	})
	wsHub = server.Hub()

	hb := heartbeat.NewWriter(filepath.Join(config.MnemoPath(), "heartbeat.json"), func() map[string]any {
		return map[string]any{
			"facts":   store.Count(),
			"watched": len(scan.Watched()),
		}
	})
	hb.Start()
	defer hb.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
